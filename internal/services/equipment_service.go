package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"invtrack/internal/broadcast"
	"invtrack/internal/domain"
	"invtrack/internal/repos"
	"invtrack/internal/validate"
)

// EquipmentService is the equipment registry. It never changes a unit's
// status; only LifecycleService does.
type EquipmentService struct {
	Equipment *repos.EquipmentRepo
	Hub       *broadcast.Hub

	lists singleflight.Group
}

func NewEquipmentService(equipment *repos.EquipmentRepo, hub *broadcast.Hub) *EquipmentService {
	return &EquipmentService{Equipment: equipment, Hub: hub}
}

type EquipmentInput struct {
	ProductID   string
	MACAddress  string
	GponSN      string
	Customer    string
	Description string
}

func (in *EquipmentInput) Validate() []validate.FieldError {
	var errs validate.Errors
	var ok bool
	in.ProductID, ok = validate.Required(in.ProductID)
	errs.Check(ok, "productId", "is required")
	in.MACAddress, ok = validate.Required(in.MACAddress)
	errs.Check(ok, "macAddress", "is required")
	in.GponSN, ok = validate.Required(in.GponSN)
	errs.Check(ok, "gponSn", "is required")
	in.Customer, ok = validate.Required(in.Customer)
	errs.Check(ok, "customer", "is required")
	in.Description = strings.TrimSpace(in.Description)
	return errs
}

// EquipmentPatch holds the fields to change; nil leaves a field as is.
// Status is not part of it.
type EquipmentPatch struct {
	ProductID   *string
	MACAddress  *string
	GponSN      *string
	Customer    *string
	Description *string
}

func (p *EquipmentPatch) Validate() []validate.FieldError {
	var errs validate.Errors
	required := func(v **string, field string) {
		if *v == nil {
			return
		}
		s, ok := validate.Required(**v)
		errs.Check(ok, field, "cannot be empty")
		*v = &s
	}
	required(&p.ProductID, "productId")
	required(&p.MACAddress, "macAddress")
	required(&p.GponSN, "gponSn")
	required(&p.Customer, "customer")
	if p.Description != nil {
		d := strings.TrimSpace(*p.Description)
		p.Description = &d
	}
	return errs
}

func annotate(v *domain.EquipmentView) {
	if !v.ProductFound {
		v.ProductName = domain.ProductNotFound
	}
}

// changed reads back the unit just written, annotated, and announces it.
func (s *EquipmentService) changed(ctx context.Context, typ, id string) (domain.EquipmentView, error) {
	v, err := s.Get(ctx, id)
	if err != nil {
		return v, err
	}
	if s.Hub != nil {
		s.Hub.Publish(broadcast.Event{Type: typ, EquipmentID: id, Equipment: &v})
	}
	return v, nil
}

// Create registers a new unit. New units always start IN_STOCK.
func (s *EquipmentService) Create(ctx context.Context, in EquipmentInput) (domain.EquipmentView, error) {
	if err := invalid(in.Validate()); err != nil {
		return domain.EquipmentView{}, err
	}
	now := domain.Now()
	e := domain.Equipment{
		ID:          uuid.NewString(),
		ProductID:   in.ProductID,
		MACAddress:  in.MACAddress,
		GponSN:      in.GponSN,
		Customer:    in.Customer,
		Description: in.Description,
		Status:      domain.StatusInStock,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.Equipment.Create(ctx, e); err != nil {
		return domain.EquipmentView{}, backend("create equipment", err)
	}
	return s.changed(ctx, broadcast.EquipmentCreated, e.ID)
}

func (s *EquipmentService) Get(ctx context.Context, id string) (domain.EquipmentView, error) {
	v, err := s.Equipment.Get(ctx, id)
	if errors.Is(err, repos.ErrNotFound) {
		return v, notFound("equipment")
	}
	if err != nil {
		return v, backend("get equipment", err)
	}
	annotate(&v)
	return v, nil
}

func (s *EquipmentService) Update(ctx context.Context, id string, p EquipmentPatch) (domain.EquipmentView, error) {
	if err := invalid(p.Validate()); err != nil {
		return domain.EquipmentView{}, err
	}
	v, err := s.Get(ctx, id)
	if err != nil {
		return domain.EquipmentView{}, err
	}
	e := v.Equipment
	set := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	set(&e.ProductID, p.ProductID)
	set(&e.MACAddress, p.MACAddress)
	set(&e.GponSN, p.GponSN)
	set(&e.Customer, p.Customer)
	set(&e.Description, p.Description)
	e.UpdatedAt = domain.Now()
	if err := s.Equipment.Update(ctx, e); err != nil {
		if errors.Is(err, repos.ErrNotFound) {
			return domain.EquipmentView{}, notFound("equipment")
		}
		return domain.EquipmentView{}, backend("update equipment", err)
	}
	return s.changed(ctx, broadcast.EquipmentUpdated, id)
}

// Delete removes a unit. Its ledger entries stay.
func (s *EquipmentService) Delete(ctx context.Context, id string) error {
	if err := s.Equipment.Delete(ctx, id); err != nil {
		if errors.Is(err, repos.ErrNotFound) {
			return notFound("equipment")
		}
		return backend("delete equipment", err)
	}
	if s.Hub != nil {
		s.Hub.Publish(broadcast.Event{Type: broadcast.EquipmentDeleted, EquipmentID: id})
	}
	return nil
}

// EquipmentFilter narrows List. Empty fields, and status "all", match everything.
type EquipmentFilter struct {
	Query  string
	Status string
}

func (f *EquipmentFilter) Validate() []validate.FieldError {
	var errs validate.Errors
	f.Status = strings.ToUpper(strings.TrimSpace(f.Status))
	if f.Status == "ALL" {
		f.Status = ""
	}
	errs.Check(f.Status == "" || f.Status == domain.StatusInStock || f.Status == domain.StatusDeployed,
		"status", "must be all, IN_STOCK or DEPLOYED")
	return errs
}

// List returns units newest first, narrowed by f. A query that fails the
// search character rules yields no results. Concurrent callers with the same
// filter share one query.
func (s *EquipmentService) List(ctx context.Context, f EquipmentFilter) ([]domain.EquipmentView, error) {
	if err := invalid(f.Validate()); err != nil {
		return nil, err
	}
	q := ""
	if strings.TrimSpace(f.Query) != "" {
		var ok bool
		if q, ok = validate.Q(f.Query); !ok {
			return []domain.EquipmentView{}, nil
		}
	}
	return s.list(ctx, f.Status, q)
}

// Candidates returns the units a movement of type t can be requested for:
// IN_STOCK units for OUT, DEPLOYED units for IN.
func (s *EquipmentService) Candidates(ctx context.Context, t string) ([]domain.EquipmentView, error) {
	mt, ok := validate.MovementType(t)
	if !ok {
		return nil, &ValidationError{Fields: []validate.FieldError{{Field: "type", Message: "must be IN or OUT"}}}
	}
	_, from, _ := domain.TargetStatus(mt)
	return s.list(ctx, from, "")
}

// list coalesces identical reads. The key carries the table version, so a
// caller never joins a read that started before a write it has seen commit.
func (s *EquipmentService) list(ctx context.Context, status, q string) ([]domain.EquipmentView, error) {
	key := fmt.Sprintf("%d|%s|%s", s.Equipment.Version(), status, q)
	v, err, _ := s.lists.Do(key, func() (any, error) {
		out, err := s.Equipment.List(ctx, status, q)
		if err != nil {
			return nil, err
		}
		for i := range out {
			annotate(&out[i])
		}
		return out, nil
	})
	if err != nil {
		return nil, backend("list equipment", err)
	}
	shared := v.([]domain.EquipmentView)
	return append(make([]domain.EquipmentView, 0, len(shared)), shared...), nil
}
