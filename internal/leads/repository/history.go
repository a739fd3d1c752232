package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// HistoryEntry is one immutable record of a state-affecting action taken on
// a lead. Entries are never mutated after append, except for the Read flag
// on received-message entries.
type HistoryEntry struct {
	ID              uuid.UUID      `json:"id"`
	LeadID          uuid.UUID      `json:"leadId"`
	Action          string         `json:"action"`
	PerformedBy     uuid.UUID      `json:"performedBy"`
	PerformedByName string         `json:"performedByName"`
	Details         map[string]any `json:"details,omitempty"`
	LeadSnapshot    map[string]any `json:"leadSnapshot,omitempty"`
	Read            bool           `json:"read"`
	Timestamp       time.Time      `json:"timestamp"`
}

// AppendHistoryParams carries one history append.
type AppendHistoryParams struct {
	LeadID          uuid.UUID
	Action          string
	PerformedBy     uuid.UUID
	PerformedByName string
	Details         map[string]any
	LeadSnapshot    map[string]any
}

// HistoryRepository persists the booking history log. History lives in its
// own table keyed by lead id rather than embedded in the lead row, so reads
// and writes stay bounded as the log grows.
type HistoryRepository struct {
	*Repository
}

// NewHistory creates a history repository sharing the leads pool.
func NewHistory(repo *Repository) *HistoryRepository {
	return &HistoryRepository{Repository: repo}
}

// Append inserts a history entry. The caller decides whether failures are
// fatal; for lifecycle mutations they never are.
func (r *HistoryRepository) Append(ctx context.Context, params AppendHistoryParams) error {
	detailsJSON, err := json.Marshal(params.Details)
	if err != nil {
		return err
	}
	snapshotJSON, err := json.Marshal(params.LeadSnapshot)
	if err != nil {
		return err
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO booking_history (
			id, lead_id, action, performed_by, performed_by_name, details, lead_snapshot, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, uuid.New(), params.LeadID, params.Action, params.PerformedBy,
		params.PerformedByName, detailsJSON, snapshotJSON, time.Now().UTC())
	return err
}

// ListByLead returns history entries for a lead sorted newest-first.
// Rows whose stored JSON cannot be parsed are returned with empty
// details/snapshot rather than failing the whole read; this read path
// favors availability over strict validation.
func (r *HistoryRepository) ListByLead(ctx context.Context, leadID uuid.UUID, limit, offset int) ([]HistoryEntry, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id, lead_id, action, performed_by, performed_by_name, details, lead_snapshot, read, created_at
		FROM booking_history
		WHERE lead_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, leadID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]HistoryEntry, 0)
	for rows.Next() {
		var entry HistoryEntry
		var rawDetails, rawSnapshot []byte
		if err := rows.Scan(
			&entry.ID,
			&entry.LeadID,
			&entry.Action,
			&entry.PerformedBy,
			&entry.PerformedByName,
			&rawDetails,
			&rawSnapshot,
			&entry.Read,
			&entry.Timestamp,
		); err != nil {
			return nil, err
		}
		if len(rawDetails) > 0 {
			_ = json.Unmarshal(rawDetails, &entry.Details)
		}
		if len(rawSnapshot) > 0 {
			_ = json.Unmarshal(rawSnapshot, &entry.LeadSnapshot)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

// MarkRead flips the read flag on a received-message entry. This is the only
// permitted mutation of an appended entry.
func (r *HistoryRepository) MarkRead(ctx context.Context, leadID, entryID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE booking_history SET read = true WHERE id = $1 AND lead_id = $2
	`, entryID, leadID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
