package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/paraje-tours/reservas/backend/internal/domain"
	"github.com/paraje-tours/reservas/backend/internal/repo"
)

// CatalogService manages the bookable catalog: activities and their schedule
// slots. Capacity mutation is not its business — that stays with the booking
// lifecycle — but slot creation and the published flag live here.
type CatalogService struct {
	activities repo.ActivityRepo
	slots      repo.SlotRepo
}

// NewCatalogService constructs a CatalogService backed by the provided repos.
func NewCatalogService(activities repo.ActivityRepo, slots repo.SlotRepo) *CatalogService {
	return &CatalogService{activities: activities, slots: slots}
}

// CreateActivity validates and persists a new activity.
func (s *CatalogService) CreateActivity(ctx context.Context, act domain.Activity) (domain.Activity, error) {
	if strings.TrimSpace(act.Name) == "" {
		return domain.Activity{}, fmt.Errorf(
			"service.CatalogService.CreateActivity: %w: name is required", domain.ErrValidation)
	}
	if act.BasePriceCents < 0 {
		return domain.Activity{}, fmt.Errorf(
			"service.CatalogService.CreateActivity: %w: price must not be negative", domain.ErrValidation)
	}

	created, err := s.activities.Create(ctx, act)
	if err != nil {
		return domain.Activity{}, fmt.Errorf("service.CatalogService.CreateActivity: %w", err)
	}
	return created, nil
}

// ListActivities returns all activities, newest first.
func (s *CatalogService) ListActivities(ctx context.Context) ([]domain.Activity, error) {
	acts, err := s.activities.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("service.CatalogService.ListActivities: %w", err)
	}
	if acts == nil {
		acts = []domain.Activity{}
	}
	return acts, nil
}

// GetActivity returns one activity by ID.
func (s *CatalogService) GetActivity(ctx context.Context, id uuid.UUID) (domain.Activity, error) {
	act, err := s.activities.GetByID(ctx, id)
	if err != nil {
		return domain.Activity{}, fmt.Errorf("service.CatalogService.GetActivity: %w", err)
	}
	return act, nil
}

// DeleteActivity removes an activity. Existing slots and reservations keep
// their references; the public listing simply stops showing them.
func (s *CatalogService) DeleteActivity(ctx context.Context, id uuid.UUID) error {
	if err := s.activities.Delete(ctx, id); err != nil {
		return fmt.Errorf("service.CatalogService.DeleteActivity: %w", err)
	}
	return nil
}

// CreateSlot validates and persists a new schedule slot for an activity.
// New slots always start with zero seats reserved.
func (s *CatalogService) CreateSlot(ctx context.Context, slot domain.ScheduleSlot) (domain.ScheduleSlot, error) {
	if slot.CapacityTotal < 0 {
		return domain.ScheduleSlot{}, fmt.Errorf(
			"service.CatalogService.CreateSlot: %w: capacity must not be negative", domain.ErrValidation)
	}
	if slot.PriceCents < 0 {
		return domain.ScheduleSlot{}, fmt.Errorf(
			"service.CatalogService.CreateSlot: %w: price must not be negative", domain.ErrValidation)
	}
	if !slot.EndAt.After(slot.StartAt) {
		return domain.ScheduleSlot{}, fmt.Errorf(
			"service.CatalogService.CreateSlot: %w: end time must be after start time", domain.ErrValidation)
	}

	// The activity must exist; a slot pointing at nothing would be
	// unbookable and invisible.
	if _, err := s.activities.GetByID(ctx, slot.ActivityID); err != nil {
		return domain.ScheduleSlot{}, fmt.Errorf("service.CatalogService.CreateSlot: %w", err)
	}

	slot.CapacityReserved = 0
	created, err := s.slots.Create(ctx, slot)
	if err != nil {
		return domain.ScheduleSlot{}, fmt.Errorf("service.CatalogService.CreateSlot: %w", err)
	}
	return created, nil
}

// ListSlots returns an activity's slots ordered by start time. Public callers
// pass publishedOnly=true; the admin panel sees unpublished slots too.
func (s *CatalogService) ListSlots(ctx context.Context, activityID uuid.UUID, publishedOnly bool) ([]domain.ScheduleSlot, error) {
	slots, err := s.slots.ListByActivity(ctx, activityID, publishedOnly)
	if err != nil {
		return nil, fmt.Errorf("service.CatalogService.ListSlots: %w", err)
	}
	if slots == nil {
		slots = []domain.ScheduleSlot{}
	}
	return slots, nil
}

// DeleteSlot removes a slot, orphaning any reservations that reference it.
func (s *CatalogService) DeleteSlot(ctx context.Context, id uuid.UUID) error {
	if err := s.slots.Delete(ctx, id); err != nil {
		return fmt.Errorf("service.CatalogService.DeleteSlot: %w", err)
	}
	return nil
}
