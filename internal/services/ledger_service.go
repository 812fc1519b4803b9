package services

import (
	"context"
	"errors"
	"fmt"

	"invtrack/internal/domain"
	"invtrack/internal/repos"
)

// LedgerService reads the equipment movement ledger. Entries are appended
// only by LifecycleService.
type LedgerService struct {
	Ledger    *repos.LedgerRepo
	Equipment *repos.EquipmentRepo
}

func NewLedgerService(ledger *repos.LedgerRepo, equipment *repos.EquipmentRepo) *LedgerService {
	return &LedgerService{Ledger: ledger, Equipment: equipment}
}

func (s *LedgerService) List(ctx context.Context) ([]domain.MovementView, error) {
	out, err := s.Ledger.List(ctx, 0)
	return out, backend("list movements", err)
}

func (s *LedgerService) Recent(ctx context.Context, n int) ([]domain.MovementView, error) {
	out, err := s.Ledger.List(ctx, n)
	return out, backend("recent movements", err)
}

// ListFor returns one unit's entries, most recent first. Entries of deleted
// units are still returned.
func (s *LedgerService) ListFor(ctx context.Context, equipmentID string) ([]domain.MovementView, error) {
	out, err := s.Ledger.ListFor(ctx, equipmentID)
	return out, backend("list unit movements", err)
}

// Replay derives a unit's status by applying its entries in order, starting
// from IN_STOCK. Each entry must be allowed from the status before it.
func (s *LedgerService) Replay(ctx context.Context, equipmentID string) (string, error) {
	entries, err := s.Ledger.History(ctx, equipmentID)
	if err != nil {
		return "", backend("replay", err)
	}
	if len(entries) == 0 {
		if _, err := s.Equipment.Get(ctx, equipmentID); err != nil {
			if errors.Is(err, repos.ErrNotFound) {
				return "", notFound("equipment")
			}
			return "", backend("replay", err)
		}
	}

	status := domain.StatusInStock
	for _, e := range entries {
		target, from, ok := domain.TargetStatus(e.Type)
		if !ok || status != from {
			return status, conflict(fmt.Sprintf("entry %s (%s) not allowed from %s", e.ID, e.Type, status))
		}
		status = target
	}
	return status, nil
}
