// Package repository provides pgx-backed persistence for message templates.
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned when a template does not exist.
var ErrNotFound = errors.New("template not found")

// TypeBookingConfirmation is the default template type for dispatch.
const TypeBookingConfirmation = "booking_confirmation"

// Template holds the channel bodies for one message kind. Bodies may
// contain {{name}}, {{date}} and {{time}} placeholders.
type Template struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Type         string    `json:"type"`
	EmailSubject string    `json:"emailSubject"`
	EmailBody    string    `json:"emailBody"`
	SMSBody      string    `json:"smsBody"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Repository persists message templates in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a new templates repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const templateCols = `id, name, type, email_subject, email_body, sms_body, active, created_at`

func scanTemplate(row pgx.Row) (*Template, error) {
	var t Template
	err := row.Scan(&t.ID, &t.Name, &t.Type, &t.EmailSubject, &t.EmailBody, &t.SMSBody, &t.Active, &t.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// GetByID returns the template with the given id.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*Template, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+templateCols+` FROM message_templates WHERE id = $1`, id)
	return scanTemplate(row)
}

// FindDefault returns the newest active template of the given type, or nil
// when none exists. Absence is not an error; dispatch treats it as a no-op.
func (r *Repository) FindDefault(ctx context.Context, msgType string) (*Template, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+templateCols+`
		FROM message_templates
		WHERE type = $1 AND active = true
		ORDER BY created_at DESC
		LIMIT 1
	`, msgType)

	t, err := scanTemplate(row)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	return t, err
}

// List returns all templates, newest first.
func (r *Repository) List(ctx context.Context) ([]Template, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+templateCols+` FROM message_templates ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	templates := make([]Template, 0)
	for rows.Next() {
		var t Template
		if err := rows.Scan(&t.ID, &t.Name, &t.Type, &t.EmailSubject, &t.EmailBody, &t.SMSBody, &t.Active, &t.CreatedAt); err != nil {
			return nil, err
		}
		templates = append(templates, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return templates, nil
}

// Create inserts a template.
func (r *Repository) Create(ctx context.Context, t *Template) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO message_templates (id, name, type, email_subject, email_body, sms_body, active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, t.ID, t.Name, t.Type, t.EmailSubject, t.EmailBody, t.SMSBody, t.Active, t.CreatedAt)
	return err
}

// SetActive flips a template's active flag.
func (r *Repository) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	tag, err := r.pool.Exec(ctx, `UPDATE message_templates SET active = $2 WHERE id = $1`, id, active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
