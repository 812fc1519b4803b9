package services

import (
	"context"
	"errors"
	"unicode/utf8"

	"github.com/google/uuid"

	"invtrack/internal/broadcast"
	"invtrack/internal/domain"
	"invtrack/internal/repos"
	"invtrack/internal/validate"
)

const maxNotes = 500

// LifecycleService is the only writer of equipment status and the movement
// ledger.
type LifecycleService struct {
	Equipment *repos.EquipmentRepo
	Hub       *broadcast.Hub
}

func NewLifecycleService(equipment *repos.EquipmentRepo, hub *broadcast.Hub) *LifecycleService {
	return &LifecycleService{Equipment: equipment, Hub: hub}
}

type MovementRequest struct {
	EquipmentID string
	Type        string
	UserID      string
	Notes       string
}

func (r *MovementRequest) Validate() []validate.FieldError {
	var errs validate.Errors
	var ok bool
	r.EquipmentID, ok = validate.Required(r.EquipmentID)
	errs.Check(ok, "equipmentId", "is required")
	r.Type, ok = validate.MovementType(r.Type)
	errs.Check(ok, "type", "must be IN or OUT")
	r.UserID, ok = validate.Required(r.UserID)
	errs.Check(ok, "userId", "is required")
	r.Notes, _ = validate.Required(r.Notes)
	errs.Check(utf8.RuneCountInString(r.Notes) <= maxNotes, "notes", "at most 500 characters")
	return errs
}

func alreadyThere(t string) error {
	if t == domain.MovementOut {
		return conflict("equipment already deployed")
	}
	return conflict("equipment already in stock")
}

// RequestMovement checks a movement against the unit's current status and,
// when allowed, flips the status and appends the ledger entry atomically.
// Rejected requests change nothing.
func (s *LifecycleService) RequestMovement(ctx context.Context, req MovementRequest) (domain.EquipmentMovement, error) {
	if err := invalid(req.Validate()); err != nil {
		return domain.EquipmentMovement{}, err
	}
	target, from, _ := domain.TargetStatus(req.Type)

	mv := domain.EquipmentMovement{
		ID:          uuid.NewString(),
		EquipmentID: req.EquipmentID,
		Type:        req.Type,
		Date:        domain.Now(),
		UserID:      req.UserID,
		Notes:       req.Notes,
	}
	mv, err := s.Equipment.ApplyMovement(ctx, mv, from, target)
	switch {
	case errors.Is(err, repos.ErrNotFound):
		return domain.EquipmentMovement{}, notFound("equipment")
	case errors.Is(err, repos.ErrStale):
		return domain.EquipmentMovement{}, alreadyThere(req.Type)
	case err != nil:
		return domain.EquipmentMovement{}, backend("apply movement", err)
	}

	if s.Hub != nil {
		ev := broadcast.Event{Type: broadcast.EquipmentMoved, EquipmentID: mv.EquipmentID, Movement: &mv}
		if v, err := s.Equipment.Get(ctx, mv.EquipmentID); err == nil {
			annotate(&v)
			ev.Equipment = &v
		}
		s.Hub.Publish(ev)
	}
	return mv, nil
}
