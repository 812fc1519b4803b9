package services_test

import (
	"context"
	"errors"
	"testing"

	"invtrack/internal/services"
)

func TestStockRecord(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	// seeded drop cable reel has quantity 4
	if _, err := e.stock.Record(ctx, services.StockMovementRequest{
		ProductID: "prd-drop-1km", Type: "OUT", Quantity: 5, UserID: e.operator.ID,
	}); !errors.Is(err, services.ErrConflict) {
		t.Fatalf("want insufficient stock, got %v", err)
	}
	if p, _ := e.catalog.GetProduct(ctx, "prd-drop-1km"); p.Quantity != 4 {
		t.Fatalf("quantity changed to %d", p.Quantity)
	}

	for _, req := range []services.StockMovementRequest{
		{ProductID: "prd-drop-1km", Type: "OUT", Quantity: 4, UserID: e.operator.ID},
		{ProductID: "prd-drop-1km", Type: "in", Quantity: 10, UserID: e.operator.ID},
	} {
		if _, err := e.stock.Record(ctx, req); err != nil {
			t.Fatal(err)
		}
	}
	if p, _ := e.catalog.GetProduct(ctx, "prd-drop-1km"); p.Quantity != 10 {
		t.Fatalf("quantity = %d, want 10", p.Quantity)
	}

	list, err := e.stock.List(ctx)
	if err != nil || len(list) != 2 || list[0].Type != "IN" || list[0].ProductName != "Drop cable 1km" {
		t.Fatalf("list = %+v, %v", list, err)
	}

	if _, err := e.stock.Record(ctx, services.StockMovementRequest{
		ProductID: "missing", Type: "IN", Quantity: 1, UserID: e.operator.ID,
	}); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("want not found, got %v", err)
	}
	var verr *services.ValidationError
	if _, err := e.stock.Record(ctx, services.StockMovementRequest{ProductID: "x", Type: "IN"}); !errors.As(err, &verr) {
		t.Fatalf("want validation error, got %v", err)
	}
}
