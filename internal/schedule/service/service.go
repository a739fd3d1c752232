// Package service implements blocked-slot checks and administration.
package service

import (
	"context"
	"errors"
	"time"

	"leadbook/internal/schedule/repository"
	"leadbook/platform/apperr"

	"github.com/google/uuid"
)

// Store is the blocked-slot persistence the service depends on.
type Store interface {
	FindForDate(ctx context.Context, date time.Time) ([]repository.BlockedSlot, error)
	List(ctx context.Context, from time.Time) ([]repository.BlockedSlot, error)
	Create(ctx context.Context, slot *repository.BlockedSlot) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// Service answers availability checks against the exclusion list and manages
// the entries themselves.
type Service struct {
	repo Store
	now  func() time.Time
}

// New creates the schedule service.
func New(repo Store) *Service {
	return &Service{repo: repo, now: time.Now}
}

// Match specificity: a day-level block beats nothing, a time-slot block
// beats a day block, a numbered-slot block beats both. The reason of the
// most specific match wins.
const (
	matchNone = iota
	matchDay
	matchTimeSlot
	matchSlotNumber
)

// IsBlocked reports whether the requested date/time/slot is excluded and
// returns the reason of the most specific matching block.
func (s *Service) IsBlocked(ctx context.Context, date time.Time, timeSlot *string, slotNumber *int) (bool, string, error) {
	blocks, err := s.repo.FindForDate(ctx, date)
	if err != nil {
		return false, "", err
	}

	best := matchNone
	reason := ""
	for _, block := range blocks {
		level := matchLevel(block, timeSlot, slotNumber)
		if level > best {
			best = level
			reason = block.Reason
		}
	}
	return best > matchNone, reason, nil
}

func matchLevel(block repository.BlockedSlot, timeSlot *string, slotNumber *int) int {
	if block.TimeSlot == nil {
		// Day-level block excludes every request on that date, unless a
		// slot number narrows it to one slot across all time slots.
		if block.SlotNumber == nil {
			return matchDay
		}
		if slotNumber != nil && *slotNumber == *block.SlotNumber {
			return matchSlotNumber
		}
		return matchNone
	}
	if timeSlot == nil || *timeSlot != *block.TimeSlot {
		return matchNone
	}
	if block.SlotNumber == nil {
		return matchTimeSlot
	}
	if slotNumber != nil && *slotNumber == *block.SlotNumber {
		return matchSlotNumber
	}
	return matchNone
}

// BlockParams describes a new exclusion entry.
type BlockParams struct {
	Date       time.Time
	TimeSlot   *string
	SlotNumber *int
	Reason     string
}

// Block creates an exclusion entry. A slot number without a time slot is
// valid and blocks that slot number across every time slot of the day.
func (s *Service) Block(ctx context.Context, params BlockParams) (*repository.BlockedSlot, error) {
	if params.Reason == "" {
		return nil, apperr.Validation("a reason is required").WithOp("schedule.Block")
	}

	slot := &repository.BlockedSlot{
		ID:         uuid.New(),
		BlockDate:  params.Date,
		TimeSlot:   params.TimeSlot,
		SlotNumber: params.SlotNumber,
		Reason:     params.Reason,
		CreatedAt:  s.now().UTC(),
	}
	if err := s.repo.Create(ctx, slot); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to create blocked slot", err).WithOp("schedule.Block")
	}
	return slot, nil
}

// Unblock removes an exclusion entry.
func (s *Service) Unblock(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperr.NotFound("blocked slot not found").WithOp("schedule.Unblock")
		}
		return apperr.Wrap(apperr.KindInternal, "failed to delete blocked slot", err).WithOp("schedule.Unblock")
	}
	return nil
}

// List returns upcoming exclusion entries.
func (s *Service) List(ctx context.Context) ([]repository.BlockedSlot, error) {
	slots, err := s.repo.List(ctx, s.now().UTC().Truncate(24*time.Hour))
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to list blocked slots", err).WithOp("schedule.List")
	}
	return slots, nil
}
