// Package repository provides pgx-backed persistence for leads and their
// booking history.
package repository

import (
	"context"
	"errors"

	"leadbook/internal/leads/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned when a lead does not exist.
var ErrNotFound = errors.New("lead not found")

// Repository persists leads in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a new leads repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const leadSelectCols = `
	id, name, phone, email, postcode, status, date_booked, time_booked,
	booking_slot, booking_status, is_confirmed, booker_id, ever_booked,
	has_sale, booked_at, assigned_at, reject_reason, created_at, updated_at, updated_by`

// leadRowScanner is satisfied by pgx.Rows and pgx.Row so scanLead can be
// shared between single-row and multi-row queries.
type leadRowScanner interface {
	Scan(dest ...any) error
}

func scanLead(s leadRowScanner) (*domain.Lead, error) {
	var lead domain.Lead
	if err := s.Scan(
		&lead.ID,
		&lead.Name,
		&lead.Phone,
		&lead.Email,
		&lead.Postcode,
		&lead.Status,
		&lead.DateBooked,
		&lead.TimeBooked,
		&lead.BookingSlot,
		&lead.BookingStatus,
		&lead.IsConfirmed,
		&lead.BookerID,
		&lead.EverBooked,
		&lead.HasSale,
		&lead.BookedAt,
		&lead.AssignedAt,
		&lead.RejectReason,
		&lead.CreatedAt,
		&lead.UpdatedAt,
		&lead.UpdatedBy,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &lead, nil
}

// GetByID returns the lead with the given id.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Lead, error) {
	row := r.pool.QueryRow(ctx, `SELECT`+leadSelectCols+` FROM leads WHERE id = $1`, id)
	return scanLead(row)
}

// FindByPhone returns the most recently created lead with the given phone
// number, or nil when none exists.
func (r *Repository) FindByPhone(ctx context.Context, phone string) (*domain.Lead, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT`+leadSelectCols+`
		FROM leads
		WHERE phone = $1
		ORDER BY created_at DESC
		LIMIT 1
	`, phone)

	lead, err := scanLead(row)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	return lead, err
}

// Create inserts a new lead.
func (r *Repository) Create(ctx context.Context, lead *domain.Lead) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO leads (
			id, name, phone, email, postcode, status, date_booked, time_booked,
			booking_slot, booking_status, is_confirmed, booker_id, ever_booked,
			has_sale, booked_at, assigned_at, reject_reason, created_at, updated_at, updated_by
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
	`,
		lead.ID, lead.Name, lead.Phone, lead.Email, lead.Postcode, lead.Status,
		lead.DateBooked, lead.TimeBooked, lead.BookingSlot, lead.BookingStatus,
		lead.IsConfirmed, lead.BookerID, lead.EverBooked, lead.HasSale,
		lead.BookedAt, lead.AssignedAt, lead.RejectReason, lead.CreatedAt,
		lead.UpdatedAt, lead.UpdatedBy,
	)
	return err
}

// Update persists the full lead row. The store's per-row update semantics
// make a single status update atomic; no explicit transaction is used.
func (r *Repository) Update(ctx context.Context, lead *domain.Lead) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE leads SET
			name = $2, phone = $3, email = $4, postcode = $5, status = $6,
			date_booked = $7, time_booked = $8, booking_slot = $9,
			booking_status = $10, is_confirmed = $11, booker_id = $12,
			ever_booked = $13, has_sale = $14, booked_at = $15, assigned_at = $16,
			reject_reason = $17, updated_at = $18, updated_by = $19
		WHERE id = $1
	`,
		lead.ID, lead.Name, lead.Phone, lead.Email, lead.Postcode, lead.Status,
		lead.DateBooked, lead.TimeBooked, lead.BookingSlot, lead.BookingStatus,
		lead.IsConfirmed, lead.BookerID, lead.EverBooked, lead.HasSale,
		lead.BookedAt, lead.AssignedAt, lead.RejectReason, lead.UpdatedAt, lead.UpdatedBy,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a lead. Only used by the administrative purge.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM leads WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
