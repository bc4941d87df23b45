package review

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/mindstorm-criteria-engine/pkg/criteria"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements the Store interface using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteStore creates a new SQLite review store.
// It creates the database file and schema if they don't exist.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// WAL lets readers proceed while a review is being written
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &SQLiteStore{
		db:     db,
		dbPath: dbPath,
	}, nil
}

// scanner is an interface for sql.Row and sql.Rows
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanOverride(s scanner) (*Override, error) {
	o := &Override{}
	var status, originalStatus string

	err := s.Scan(
		&o.ID, &o.ClinicianID, &o.PatientID, &o.NodeID,
		&status, &originalStatus, &o.OriginalEvidence, &o.Note,
		&o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	o.Status = criteria.Status(status)
	o.OriginalStatus = criteria.Status(originalStatus)
	return o, nil
}

func scanEvidenceFeedback(s scanner) (*EvidenceFeedback, error) {
	f := &EvidenceFeedback{}
	var feedbackType string

	err := s.Scan(
		&f.ID, &f.ClinicianID, &f.PatientID, &f.EntryDateISO,
		&f.Span, &f.Label, &feedbackType, &f.CreatedAt, &f.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	f.FeedbackType = FeedbackType(feedbackType)
	return f, nil
}

// createSchema creates the database tables and indexes.
func createSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS clinician_overrides (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		clinician_id TEXT NOT NULL,
		patient_id TEXT NOT NULL,
		node_id TEXT NOT NULL,
		status TEXT NOT NULL,
		original_status TEXT NOT NULL DEFAULT 'UNKNOWN',
		original_evidence TEXT DEFAULT '',
		note TEXT DEFAULT '',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(clinician_id, patient_id, node_id)
	);

	CREATE INDEX IF NOT EXISTS idx_overrides_patient ON clinician_overrides(patient_id);

	CREATE TABLE IF NOT EXISTS evidence_feedback (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		clinician_id TEXT NOT NULL,
		patient_id TEXT NOT NULL,
		entry_date_iso TEXT NOT NULL,
		span TEXT NOT NULL DEFAULT '',
		label TEXT NOT NULL,
		feedback_type TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(clinician_id, patient_id, entry_date_iso, span, label)
	);

	CREATE INDEX IF NOT EXISTS idx_feedback_patient ON evidence_feedback(patient_id);
	`

	_, err := db.Exec(schema)
	return err
}

const overrideColumns = `id, clinician_id, patient_id, node_id, status, original_status,
	original_evidence, note, created_at, updated_at`

const feedbackColumns = `id, clinician_id, patient_id, entry_date_iso, span, label,
	feedback_type, created_at, updated_at`

// SaveOverride stores or updates an override.
func (s *SQLiteStore) SaveOverride(ctx context.Context, override *Override) error {
	if err := override.Validate(); err != nil {
		return err
	}
	now := time.Now().UTC()

	var existingID int64
	var createdAt time.Time
	err := s.db.QueryRowContext(ctx,
		"SELECT id, created_at FROM clinician_overrides WHERE clinician_id = ? AND patient_id = ? AND node_id = ?",
		override.ClinicianID, override.PatientID, override.NodeID,
	).Scan(&existingID, &createdAt)

	if err == nil {
		override.ID = existingID
		override.CreatedAt = createdAt
		override.UpdatedAt = now

		_, err = s.db.ExecContext(ctx, `
			UPDATE clinician_overrides SET
				status = ?,
				original_status = ?,
				original_evidence = ?,
				note = ?,
				updated_at = ?
			WHERE id = ?
		`,
			string(override.Status),
			string(override.OriginalStatus),
			override.OriginalEvidence,
			override.Note,
			now,
			existingID,
		)
		if err != nil {
			return fmt.Errorf("failed to update override: %w", err)
		}
		return nil
	}

	if !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("failed to check existing: %w", err)
	}

	override.CreatedAt = now
	override.UpdatedAt = now

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO clinician_overrides (
			clinician_id, patient_id, node_id, status, original_status,
			original_evidence, note, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		override.ClinicianID,
		override.PatientID,
		override.NodeID,
		string(override.Status),
		string(override.OriginalStatus),
		override.OriginalEvidence,
		override.Note,
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to insert override: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get insert ID: %w", err)
	}
	override.ID = id
	return nil
}

// GetOverride retrieves an override by its key.
func (s *SQLiteStore) GetOverride(ctx context.Context, clinicianID, patientID, nodeID string) (*Override, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+overrideColumns+`
		FROM clinician_overrides
		WHERE clinician_id = ? AND patient_id = ? AND node_id = ?
	`, clinicianID, patientID, nodeID)

	o, err := scanOverride(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan: %w", err)
	}
	return o, nil
}

// ListOverrides returns overrides for a patient, oldest update first.
func (s *SQLiteStore) ListOverrides(ctx context.Context, patientID string) ([]*Override, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+overrideColumns+`
		FROM clinician_overrides
		WHERE ? = '' OR patient_id = ?
		ORDER BY updated_at ASC, id ASC
	`, patientID, patientID)
	if err != nil {
		return nil, fmt.Errorf("failed to query: %w", err)
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
func (s *SQLiteStore) DeleteOverride(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM clinician_overrides WHERE id = ?", id)
	return err
}

// SaveEvidenceFeedback stores or updates evidence feedback.
func (s *SQLiteStore) SaveEvidenceFeedback(ctx context.Context, feedback *EvidenceFeedback) error {
	if err := feedback.Validate(); err != nil {
		return err
	}
	now := time.Now().UTC()

	var existingID int64
	var createdAt time.Time
	err := s.db.QueryRowContext(ctx, `
		SELECT id, created_at FROM evidence_feedback
		WHERE clinician_id = ? AND patient_id = ? AND entry_date_iso = ? AND span = ? AND label = ?
	`,
		feedback.ClinicianID, feedback.PatientID, feedback.EntryDateISO, feedback.Span, feedback.Label,
	).Scan(&existingID, &createdAt)

	if err == nil {
		feedback.ID = existingID
		feedback.CreatedAt = createdAt
		feedback.UpdatedAt = now

		_, err = s.db.ExecContext(ctx,
			"UPDATE evidence_feedback SET feedback_type = ?, updated_at = ? WHERE id = ?",
			string(feedback.FeedbackType), now, existingID,
		)
		if err != nil {
			return fmt.Errorf("failed to update feedback: %w", err)
		}
		return nil
	}

	if !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("failed to check existing: %w", err)
	}

	feedback.CreatedAt = now
	feedback.UpdatedAt = now

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO evidence_feedback (
			clinician_id, patient_id, entry_date_iso, span, label,
			feedback_type, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		feedback.ClinicianID,
		feedback.PatientID,
		feedback.EntryDateISO,
		feedback.Span,
		feedback.Label,
		string(feedback.FeedbackType),
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to insert feedback: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get insert ID: %w", err)
	}
	feedback.ID = id
	return nil
}

// GetEvidenceFeedback retrieves feedback by its key.
func (s *SQLiteStore) GetEvidenceFeedback(ctx context.Context, clinicianID, patientID, entryDateISO, span, label string) (*EvidenceFeedback, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+feedbackColumns+`
		FROM evidence_feedback
		WHERE clinician_id = ? AND patient_id = ? AND entry_date_iso = ? AND span = ? AND label = ?
	`, clinicianID, patientID, entryDateISO, span, label)

	f, err := scanEvidenceFeedback(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan: %w", err)
	}
	return f, nil
}

// ListEvidenceFeedback returns feedback for a patient in creation order.
func (s *SQLiteStore) ListEvidenceFeedback(ctx context.Context, patientID string) ([]*EvidenceFeedback, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+feedbackColumns+`
		FROM evidence_feedback
		WHERE ? = '' OR patient_id = ?
		ORDER BY created_at ASC, id ASC
	`, patientID, patientID)
	if err != nil {
		return nil, fmt.Errorf("failed to query: %w", err)
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
func (s *SQLiteStore) ExportJSON(ctx context.Context, writer io.Writer) error {
	return exportJSON(ctx, s, writer)
}

// ImportJSON imports review data from a JSON reader.
func (s *SQLiteStore) ImportJSON(ctx context.Context, reader io.Reader) (imported int, skipped int, err error) {
	return importJSON(ctx, s, reader)
}

// Close closes the store and releases resources.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
