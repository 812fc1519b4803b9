package handlers

import (
	"github.com/jmoiron/sqlx"

	"invtrack/internal/broadcast"
	"invtrack/internal/config"
	"invtrack/internal/repos"
	"invtrack/internal/services"
	"invtrack/internal/tokens"
)

type Deps struct {
	Auth *services.AuthService
	Hub  *broadcast.Hub

	AuthHandler      *AuthHandler
	EquipmentHandler *EquipmentHandler
	CatalogHandler   *CatalogHandler
	StockHandler     *StockHandler
	ReportHandler    *ReportHandler
	AdminHandler     *AdminHandler
	LiveHandler      *LiveHandler
}

func NewDeps(db *sqlx.DB, cfg config.Config, hub *broadcast.Hub) *Deps {
	userRepo := repos.NewUserRepo(db)
	catRepo := repos.NewCategoryRepo(db)
	prodRepo := repos.NewProductRepo(db)
	stockRepo := repos.NewStockRepo(db)
	equipRepo := repos.NewEquipmentRepo(db)
	ledgerRepo := repos.NewLedgerRepo(db)

	authSvc := services.NewAuthService(userRepo, tokens.NewManager(cfg.JWTSecret, cfg.JWTTTL), cfg.AuthEmailDomain)
	userSvc := services.NewUserService(userRepo, authSvc)
	catalogSvc := services.NewCatalogService(catRepo, prodRepo)
	stockSvc := services.NewStockService(stockRepo)
	equipSvc := services.NewEquipmentService(equipRepo, hub)
	ledgerSvc := services.NewLedgerService(ledgerRepo, equipRepo)
	lifecycleSvc := services.NewLifecycleService(equipRepo, hub)
	reportSvc := services.NewReportService(prodRepo, equipRepo, ledgerRepo, stockRepo, cfg.LowStock, cfg.Location)

	return &Deps{
		Auth: authSvc,
		Hub:  hub,

		AuthHandler: &AuthHandler{Auth: authSvc},
		EquipmentHandler: &EquipmentHandler{
			Equipment: equipSvc, Ledger: ledgerSvc, Lifecycle: lifecycleSvc, Catalog: catalogSvc,
		},
		CatalogHandler: &CatalogHandler{Catalog: catalogSvc},
		StockHandler:   &StockHandler{Stock: stockSvc, Catalog: catalogSvc},
		ReportHandler:  &ReportHandler{Reports: reportSvc},
		AdminHandler:   &AdminHandler{Users: userSvc},
		LiveHandler:    &LiveHandler{Hub: hub},
	}
}
