package services

import (
	"context"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"invtrack/internal/domain"
	"invtrack/internal/repos"
)

type ReportService struct {
	Prods     *repos.ProductRepo
	Equipment *repos.EquipmentRepo
	Ledger    *repos.LedgerRepo
	Moves     *repos.StockRepo
	LowStock  int
	// Loc decides where "today" starts for the dashboard.
	Loc *time.Location
}

func NewReportService(prods *repos.ProductRepo, equipment *repos.EquipmentRepo, ledger *repos.LedgerRepo, moves *repos.StockRepo, lowStock int, loc *time.Location) *ReportService {
	if lowStock <= 0 {
		lowStock = 10
	}
	if loc == nil {
		loc = time.UTC
	}
	return &ReportService{Prods: prods, Equipment: equipment, Ledger: ledger, Moves: moves, LowStock: lowStock, Loc: loc}
}

const recentLimit = 5

type Dashboard struct {
	TotalProducts int                   `json:"totalProducts"`
	LowStock      int                   `json:"lowStock"`
	OutOfStock    int                   `json:"outOfStock"`
	InStock       int                   `json:"equipmentInStock"`
	Deployed      int                   `json:"equipmentDeployed"`
	OutToday      int                   `json:"deployedToday"`
	Brands        []repos.BrandCount    `json:"brands"`
	Recent        []domain.MovementView `json:"recentMovements"`
}

// startOfDay returns local midnight of t's day in loc, as a stored (UTC)
// timestamp.
func startOfDay(t time.Time, loc *time.Location) string {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc).UTC().Format(domain.TimeLayout)
}

// Dashboard gathers the home page figures. The queries run concurrently.
func (s *ReportService) Dashboard(ctx context.Context) (Dashboard, error) {
	var d Dashboard
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		st, err := s.Prods.Stats(gctx, "", s.LowStock)
		d.TotalProducts, d.LowStock, d.OutOfStock = st.Total, st.LowStock, st.OutOfStock
		return err
	})
	g.Go(func() error {
		counts, err := s.Equipment.CountByStatus(gctx)
		for _, c := range counts {
			switch c.Status {
			case domain.StatusInStock:
				d.InStock = c.Count
			case domain.StatusDeployed:
				d.Deployed = c.Count
			}
		}
		return err
	})
	g.Go(func() error {
		n, err := s.Ledger.CountSince(gctx, domain.MovementOut, startOfDay(time.Now(), s.Loc))
		d.OutToday = n
		return err
	})
	g.Go(func() error {
		b, err := s.Prods.BrandCounts(gctx)
		d.Brands = b
		return err
	})
	g.Go(func() error {
		r, err := s.Ledger.List(gctx, recentLimit)
		for i := range r {
			if r[i].ProductName == "" {
				r[i].ProductName = domain.ProductNotFound
			}
		}
		d.Recent = r
		return err
	})

	if err := g.Wait(); err != nil {
		return Dashboard{}, backend("dashboard", err)
	}
	return d, nil
}

type StockReport struct {
	Category   string                     `json:"category"`
	Total      int                        `json:"totalProducts"`
	LowStock   int                        `json:"lowStock"`
	OutOfStock int                        `json:"outOfStock"`
	LowItems   []domain.Product           `json:"lowItems"`
	In         int                        `json:"totalIn"`
	Out        int                        `json:"totalOut"`
	Recent     []domain.StockMovementView `json:"recentMovements"`
}

// Stock summarizes product stock, optionally for one category.
func (s *ReportService) Stock(ctx context.Context, category string) (StockReport, error) {
	r := StockReport{Category: strings.TrimSpace(category)}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		st, err := s.Prods.Stats(gctx, r.Category, s.LowStock)
		r.Total, r.LowStock, r.OutOfStock = st.Total, st.LowStock, st.OutOfStock
		return err
	})
	g.Go(func() error {
		low, err := s.Prods.LowStock(gctx, r.Category, s.LowStock)
		r.LowItems = low
		return err
	})
	g.Go(func() error {
		t, err := s.Moves.Totals(gctx, r.Category)
		r.In, r.Out = t.In, t.Out
		return err
	})
	g.Go(func() error {
		mv, err := s.Moves.List(gctx, r.Category, recentLimit)
		r.Recent = mv
		return err
	})

	if err := g.Wait(); err != nil {
		return StockReport{}, backend("stock report", err)
	}
	return r, nil
}
