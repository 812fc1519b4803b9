package services

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"invtrack/internal/domain"
	"invtrack/internal/repos"
	"invtrack/internal/validate"
)

type StockService struct {
	Stock *repos.StockRepo
}

func NewStockService(stock *repos.StockRepo) *StockService {
	return &StockService{Stock: stock}
}

type StockMovementRequest struct {
	ProductID string
	Type      string
	Quantity  int
	UserID    string
}

func (r *StockMovementRequest) Validate() []validate.FieldError {
	var errs validate.Errors
	var ok bool
	r.ProductID, ok = validate.Required(r.ProductID)
	errs.Check(ok, "productId", "is required")
	r.Type, ok = validate.MovementType(r.Type)
	errs.Check(ok, "type", "must be IN or OUT")
	errs.Check(r.Quantity >= 1, "quantity", "must be at least 1")
	r.UserID, ok = validate.Required(r.UserID)
	errs.Check(ok, "userId", "is required")
	return errs
}

// Record applies a quantity change to a product. An OUT never takes the
// quantity below zero.
func (s *StockService) Record(ctx context.Context, req StockMovementRequest) (domain.StockMovement, error) {
	if err := invalid(req.Validate()); err != nil {
		return domain.StockMovement{}, err
	}
	mv := domain.StockMovement{
		ID:        uuid.NewString(),
		ProductID: req.ProductID,
		Type:      req.Type,
		Quantity:  req.Quantity,
		Date:      domain.Now(),
		UserID:    req.UserID,
	}
	switch err := s.Stock.Apply(ctx, mv); {
	case err == nil:
		return mv, nil
	case errors.Is(err, repos.ErrNotFound):
		return domain.StockMovement{}, notFound("product")
	case errors.Is(err, repos.ErrStale):
		return domain.StockMovement{}, conflict("insufficient stock")
	default:
		return domain.StockMovement{}, backend("record stock movement", err)
	}
}

// List returns stock movements, most recent first.
func (s *StockService) List(ctx context.Context) ([]domain.StockMovementView, error) {
	out, err := s.Stock.List(ctx, "", 0)
	return out, backend("list stock movements", err)
}
