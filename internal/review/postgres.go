package review

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/mindstorm-criteria-engine/internal/domain"
	_ "github.com/lib/pq"
)

// PostgresStore implements the Store interface using PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL review store.
// It expects the schema to already exist (created via migrations).
func NewPostgresStore(db *sql.DB) (*PostgresStore, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

// NewPostgresStoreFromConfig opens a lib/pq connection pool for the review store.
func NewPostgresStoreFromConfig(cfg domain.DatabaseConfig) (*PostgresStore, error) {
	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	store, err := NewPostgresStore(db)
	if err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

// SaveOverride stores or updates an override.
func (s *PostgresStore) SaveOverride(ctx context.Context, override *Override) error {
	if err := override.Validate(); err != nil {
		return err
	}
	now := time.Now().UTC()

	query := `
		INSERT INTO clinician_overrides (
			clinician_id, patient_id, node_id, status, original_status,
			original_evidence, note, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (clinician_id, patient_id, node_id) DO UPDATE SET
			status = EXCLUDED.status,
			original_status = EXCLUDED.original_status,
			original_evidence = EXCLUDED.original_evidence,
			note = EXCLUDED.note,
			updated_at = EXCLUDED.updated_at
		RETURNING id, created_at
	`

	err := s.db.QueryRowContext(ctx, query,
		override.ClinicianID,
		override.PatientID,
		override.NodeID,
		string(override.Status),
		string(override.OriginalStatus),
		override.OriginalEvidence,
		override.Note,
		now,
		now,
	).Scan(&override.ID, &override.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save override: %w", err)
	}

	override.UpdatedAt = now
	return nil
}

// GetOverride retrieves an override by its key.
func (s *PostgresStore) GetOverride(ctx context.Context, clinicianID, patientID, nodeID string) (*Override, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+overrideColumns+`
		FROM clinician_overrides
		WHERE clinician_id = $1 AND patient_id = $2 AND node_id = $3
	`, clinicianID, patientID, nodeID)

	o, err := scanOverride(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get override: %w", err)
	}
	return o, nil
}

// ListOverrides returns overrides for a patient, oldest update first.
func (s *PostgresStore) ListOverrides(ctx context.Context, patientID string) ([]*Override, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+overrideColumns+`
		FROM clinician_overrides
		WHERE $1::text = '' OR patient_id = $1
		ORDER BY updated_at ASC, id ASC
	`, patientID)
	if err != nil {
		return nil, fmt.Errorf("failed to list overrides: %w", err)
	}
	defer rows.Close()

	var result []*Override
	for rows.Next() {
		o, err := scanOverride(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		result = append(result, o)
	}
	return result, rows.Err()
}

// DeleteOverride removes an override by ID.
func (s *PostgresStore) DeleteOverride(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM clinician_overrides WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete override: %w", err)
	}
	return nil
}

// SaveEvidenceFeedback stores or updates evidence feedback.
func (s *PostgresStore) SaveEvidenceFeedback(ctx context.Context, feedback *EvidenceFeedback) error {
	if err := feedback.Validate(); err != nil {
		return err
	}
	now := time.Now().UTC()

	query := `
		INSERT INTO evidence_feedback (
			clinician_id, patient_id, entry_date_iso, span, label,
			feedback_type, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (clinician_id, patient_id, entry_date_iso, span, label) DO UPDATE SET
			feedback_type = EXCLUDED.feedback_type,
			updated_at = EXCLUDED.updated_at
		RETURNING id, created_at
	`

	err := s.db.QueryRowContext(ctx, query,
		feedback.ClinicianID,
		feedback.PatientID,
		feedback.EntryDateISO,
		feedback.Span,
		feedback.Label,
		string(feedback.FeedbackType),
		now,
		now,
	).Scan(&feedback.ID, &feedback.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save feedback: %w", err)
	}

	feedback.UpdatedAt = now
	return nil
}

// GetEvidenceFeedback retrieves feedback by its key.
func (s *PostgresStore) GetEvidenceFeedback(ctx context.Context, clinicianID, patientID, entryDateISO, span, label string) (*EvidenceFeedback, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+feedbackColumns+`
		FROM evidence_feedback
		WHERE clinician_id = $1 AND patient_id = $2 AND entry_date_iso = $3 AND span = $4 AND label = $5
	`, clinicianID, patientID, entryDateISO, span, label)

	f, err := scanEvidenceFeedback(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get feedback: %w", err)
	}
	return f, nil
}

// ListEvidenceFeedback returns feedback for a patient in creation order.
func (s *PostgresStore) ListEvidenceFeedback(ctx context.Context, patientID string) ([]*EvidenceFeedback, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+feedbackColumns+`
		FROM evidence_feedback
		WHERE $1::text = '' OR patient_id = $1
		ORDER BY created_at ASC, id ASC
	`, patientID)
	if err != nil {
		return nil, fmt.Errorf("failed to list feedback: %w", err)
	}
	defer rows.Close()

	var result []*EvidenceFeedback
	for rows.Next() {
		f, err := scanEvidenceFeedback(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		result = append(result, f)
	}
	return result, rows.Err()
}

// ExportJSON exports all review data to a JSON writer.
func (s *PostgresStore) ExportJSON(ctx context.Context, writer io.Writer) error {
	return exportJSON(ctx, s, writer)
}

// ImportJSON imports review data from a JSON reader.
func (s *PostgresStore) ImportJSON(ctx context.Context, reader io.Reader) (imported int, skipped int, err error) {
	return importJSON(ctx, s, reader)
}

// Close closes the store and releases resources.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
