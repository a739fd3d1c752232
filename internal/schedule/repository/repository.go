// Package repository provides pgx-backed persistence for blocked slots.
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned when a blocked slot does not exist.
var ErrNotFound = errors.New("blocked slot not found")

// BlockedSlot is one exclusion entry. A nil TimeSlot blocks the whole day;
// a nil SlotNumber blocks every slot within the time slot.
type BlockedSlot struct {
	ID         uuid.UUID `json:"id"`
	BlockDate  time.Time `json:"date"`
	TimeSlot   *string   `json:"timeSlot,omitempty"`
	SlotNumber *int      `json:"slotNumber,omitempty"`
	Reason     string    `json:"reason"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Repository persists blocked slots in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a new blocked slots repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// FindForDate returns every block covering the given calendar date.
func (r *Repository) FindForDate(ctx context.Context, date time.Time) ([]BlockedSlot, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, block_date, time_slot, slot_number, reason, created_at
		FROM blocked_slots
		WHERE block_date = $1::date
	`, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSlots(rows)
}

// List returns all blocks from the given date onward, soonest first.
func (r *Repository) List(ctx context.Context, from time.Time) ([]BlockedSlot, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, block_date, time_slot, slot_number, reason, created_at
		FROM blocked_slots
		WHERE block_date >= $1::date
		ORDER BY block_date, time_slot NULLS FIRST, slot_number NULLS FIRST
	`, from)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSlots(rows)
}

// Create inserts a blocked slot.
func (r *Repository) Create(ctx context.Context, slot *BlockedSlot) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO blocked_slots (id, block_date, time_slot, slot_number, reason, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, slot.ID, slot.BlockDate, slot.TimeSlot, slot.SlotNumber, slot.Reason, slot.CreatedAt)
	return err
}

// Delete removes a blocked slot.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM blocked_slots WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func scanSlots(rows rowScanner) ([]BlockedSlot, error) {
	slots := make([]BlockedSlot, 0)
	for rows.Next() {
		var slot BlockedSlot
		if err := rows.Scan(&slot.ID, &slot.BlockDate, &slot.TimeSlot, &slot.SlotNumber, &slot.Reason, &slot.CreatedAt); err != nil {
			return nil, err
		}
		slots = append(slots, slot)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return slots, nil
}
