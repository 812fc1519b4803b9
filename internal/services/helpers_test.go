package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"

	"invtrack/internal/broadcast"
	"invtrack/internal/domain"
	"invtrack/internal/repos"
	"invtrack/internal/services"
	"invtrack/internal/tokens"
)

type env struct {
	db        *sqlx.DB
	hub       *broadcast.Hub
	auth      *services.AuthService
	users     *services.UserService
	catalog   *services.CatalogService
	stock     *services.StockService
	equipment *services.EquipmentService
	ledger    *services.LedgerService
	lifecycle *services.LifecycleService
	reports   *services.ReportService
	admin     *domain.User
	operator  *domain.User
}

func newEnv(t *testing.T) *env {
	t.Helper()
	services.BcryptCost = bcrypt.MinCost

	db, err := repos.OpenDB(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })

	userRepo := repos.NewUserRepo(db)
	prodRepo := repos.NewProductRepo(db)
	equipRepo := repos.NewEquipmentRepo(db)
	ledgerRepo := repos.NewLedgerRepo(db)
	stockRepo := repos.NewStockRepo(db)

	e := &env{db: db, hub: broadcast.NewHub()}
	e.auth = services.NewAuthService(userRepo, tokens.NewManager("test", time.Minute), "inventory.local")
	e.users = services.NewUserService(userRepo, e.auth)
	e.catalog = services.NewCatalogService(repos.NewCategoryRepo(db), prodRepo)
	e.stock = services.NewStockService(stockRepo)
	e.equipment = services.NewEquipmentService(equipRepo, e.hub)
	e.ledger = services.NewLedgerService(ledgerRepo, equipRepo)
	e.lifecycle = services.NewLifecycleService(equipRepo, e.hub)
	e.reports = services.NewReportService(prodRepo, equipRepo, ledgerRepo, stockRepo, 10, time.UTC)

	ctx := context.Background()
	if _, err := e.auth.EnsureAdmin(ctx, "admin123"); err != nil {
		t.Fatal(err)
	}
	if e.admin, err = userRepo.ByUsername(ctx, "admin"); err != nil {
		t.Fatal(err)
	}
	if e.operator, err = e.users.CreateUser(ctx, e.admin, services.UserInput{
		Username: "oper", Password: "secret1", Name: "Operator", Role: "OPERATOR",
	}); err != nil {
		t.Fatal(err)
	}
	return e
}

// unit registers one piece of equipment for the seeded HG8245 product.
func (e *env) unit(t *testing.T, mac string) domain.EquipmentView {
	t.Helper()
	eq, err := e.equipment.Create(context.Background(), services.EquipmentInput{
		ProductID: "prd-hg8245", MACAddress: mac, GponSN: "HWTC" + mac, Customer: "ACME",
	})
	if err != nil {
		t.Fatal(err)
	}
	return eq
}
