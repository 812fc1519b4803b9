package services_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"invtrack/internal/broadcast"
	"invtrack/internal/domain"
	"invtrack/internal/services"
)

func TestLifecycle_OutConflictIn(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	eq := e.unit(t, "AA:BB:CC:00:00:01")

	// deploy
	mv, err := e.lifecycle.RequestMovement(ctx, services.MovementRequest{
		EquipmentID: eq.ID, Type: "OUT", UserID: e.operator.ID,
	})
	if err != nil {
		t.Fatal(err)
	}
	if mv.Type != domain.MovementOut || mv.EquipmentID != eq.ID || mv.Date == "" {
		t.Fatalf("unexpected movement %+v", mv)
	}
	if got, _ := e.equipment.Get(ctx, eq.ID); got.Status != domain.StatusDeployed {
		t.Fatalf("status = %s, want DEPLOYED", got.Status)
	}

	// second OUT is refused
	_, err = e.lifecycle.RequestMovement(ctx, services.MovementRequest{
		EquipmentID: eq.ID, Type: "OUT", UserID: e.operator.ID,
	})
	if !errors.Is(err, services.ErrConflict) || services.Reason(err) != "equipment already deployed" {
		t.Fatalf("want already deployed conflict, got %v", err)
	}

	// return with notes
	back, err := e.lifecycle.RequestMovement(ctx, services.MovementRequest{
		EquipmentID: eq.ID, Type: "in", UserID: e.operator.ID, Notes: " returned ",
	})
	if err != nil {
		t.Fatal(err)
	}
	if back.Notes != "returned" || back.Date < mv.Date {
		t.Fatalf("unexpected return movement %+v", back)
	}
	if got, _ := e.equipment.Get(ctx, eq.ID); got.Status != domain.StatusInStock {
		t.Fatalf("status = %s, want IN_STOCK", got.Status)
	}

	entries, err := e.ledger.ListFor(ctx, eq.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 || entries[0].Type != "IN" || entries[1].Type != "OUT" {
		t.Fatalf("ledger should be [IN, OUT] newest first, got %+v", entries)
	}
	if entries[0].Username != "oper" || entries[0].MACAddress != eq.MACAddress {
		t.Fatalf("view fields not resolved: %+v", entries[0])
	}
}

func TestLifecycle_InOnStockIsRejectedWithoutChanges(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	eq := e.unit(t, "AA:BB:CC:00:00:02")

	_, err := e.lifecycle.RequestMovement(ctx, services.MovementRequest{
		EquipmentID: eq.ID, Type: "IN", UserID: e.operator.ID,
	})
	if !errors.Is(err, services.ErrConflict) || services.Reason(err) != "equipment already in stock" {
		t.Fatalf("want already in stock conflict, got %v", err)
	}
	entries, _ := e.ledger.ListFor(ctx, eq.ID)
	if len(entries) != 0 {
		t.Fatalf("rejected movement wrote %d ledger rows", len(entries))
	}
	if got, _ := e.equipment.Get(ctx, eq.ID); got.Status != domain.StatusInStock || got.UpdatedAt != eq.UpdatedAt {
		t.Fatalf("rejected movement touched the unit: %+v", got)
	}
}

func TestLifecycle_ValidationAndNotFound(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	var verr *services.ValidationError
	_, err := e.lifecycle.RequestMovement(ctx, services.MovementRequest{Type: "MOVE"})
	if !errors.As(err, &verr) || len(verr.Fields) != 3 {
		t.Fatalf("want 3 field errors, got %v", err)
	}

	_, err = e.lifecycle.RequestMovement(ctx, services.MovementRequest{
		EquipmentID: "nope", Type: "OUT", UserID: e.operator.ID,
	})
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("want not found, got %v", err)
	}

	// validation never reaches the store
	_ = e.db.Close()
	_, err = e.lifecycle.RequestMovement(ctx, services.MovementRequest{EquipmentID: " ", Type: "OUT", UserID: "u"})
	if !errors.As(err, &verr) {
		t.Fatalf("want validation error with closed store, got %v", err)
	}
}

func TestLifecycle_ConcurrentOutHasOneWinner(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	eq := e.unit(t, "AA:BB:CC:00:00:03")

	const n = 8
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = e.lifecycle.RequestMovement(ctx, services.MovementRequest{
				EquipmentID: eq.ID, Type: "OUT", UserID: e.operator.ID,
			})
		}(i)
	}
	wg.Wait()

	ok := 0
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case !errors.Is(err, services.ErrConflict):
			t.Fatalf("unexpected error %v", err)
		}
	}
	if ok != 1 {
		t.Fatalf("%d requests succeeded, want 1", ok)
	}
	entries, _ := e.ledger.ListFor(ctx, eq.ID)
	if len(entries) != 1 {
		t.Fatalf("ledger has %d rows, want 1", len(entries))
	}
}

func TestLifecycle_ReplayMatchesStatus(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	a := e.unit(t, "AA:BB:CC:00:00:04")
	b := e.unit(t, "AA:BB:CC:00:00:05")

	for _, step := range []struct{ id, typ string }{
		{a.ID, "OUT"}, {b.ID, "OUT"}, {a.ID, "IN"}, {a.ID, "IN"}, {a.ID, "OUT"}, {b.ID, "OUT"},
	} {
		// the second IN on a is refused and must not disturb the replay
		_, _ = e.lifecycle.RequestMovement(ctx, services.MovementRequest{EquipmentID: step.id, Type: step.typ, UserID: e.operator.ID})
	}

	for _, id := range []string{a.ID, b.ID} {
		got, err := e.ledger.Replay(ctx, id)
		if err != nil {
			t.Fatal(err)
		}
		cur, _ := e.equipment.Get(ctx, id)
		if got != cur.Status {
			t.Fatalf("replay = %s, status = %s", got, cur.Status)
		}
	}

	fresh := e.unit(t, "AA:BB:CC:00:00:06")
	if got, err := e.ledger.Replay(ctx, fresh.ID); err != nil || got != domain.StatusInStock {
		t.Fatalf("replay of fresh unit = %s, %v", got, err)
	}
	if _, err := e.ledger.Replay(ctx, "missing"); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("want not found, got %v", err)
	}
}

func TestLedgerIsAppendOnly(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	eq := e.unit(t, "AA:BB:CC:00:00:07")
	if _, err := e.lifecycle.RequestMovement(ctx, services.MovementRequest{EquipmentID: eq.ID, Type: "OUT", UserID: e.operator.ID}); err != nil {
		t.Fatal(err)
	}
	if _, err := e.db.Exec(`UPDATE equipment_movements SET type = 'IN'`); err == nil {
		t.Fatal("update on ledger should fail")
	}
	if _, err := e.db.Exec(`DELETE FROM equipment_movements`); err == nil {
		t.Fatal("delete on ledger should fail")
	}
}

func TestLifecycle_PublishesMovedEvent(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	eq := e.unit(t, "AA:BB:CC:00:00:08")

	events, cancel := e.hub.Subscribe()
	defer cancel()
	if _, err := e.lifecycle.RequestMovement(ctx, services.MovementRequest{EquipmentID: eq.ID, Type: "OUT", UserID: e.operator.ID}); err != nil {
		t.Fatal(err)
	}
	ev := <-events
	if ev.Type != broadcast.EquipmentMoved || ev.Equipment == nil || ev.Equipment.Status != domain.StatusDeployed {
		t.Fatalf("unexpected event %+v", ev)
	}
	if ev.Movement == nil || ev.Movement.EquipmentID != eq.ID {
		t.Fatalf("event movement missing: %+v", ev)
	}
}
