package review

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"
)

const exportVersion = "1.0"

func exportJSON(ctx context.Context, s Store, writer io.Writer) error {
	overrides, err := s.ListOverrides(ctx, "")
	if err != nil {
		return fmt.Errorf("failed to list overrides: %w", err)
	}
	feedback, err := s.ListEvidenceFeedback(ctx, "")
	if err != nil {
		return fmt.Errorf("failed to list evidence feedback: %w", err)
	}
	if overrides == nil {
		overrides = []*Override{}
	}
	if feedback == nil {
		feedback = []*EvidenceFeedback{}
	}

	export := &Export{
		Version:          exportVersion,
		ExportedAt:       time.Now().UTC(),
		Overrides:        overrides,
		EvidenceFeedback: feedback,
	}

	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(export)
}

func importJSON(ctx context.Context, s Store, reader io.Reader) (imported int, skipped int, err error) {
	var export Export
	if err := json.NewDecoder(reader).Decode(&export); err != nil {
		return 0, 0, fmt.Errorf("failed to decode JSON: %w", err)
	}

	for _, o := range export.Overrides {
		existing, err := s.GetOverride(ctx, o.ClinicianID, o.PatientID, o.NodeID)
		if err != nil {
			return imported, skipped, fmt.Errorf("failed to check existing override: %w", err)
		}
		if existing != nil {
			skipped++
			continue
		}
		if err := s.SaveOverride(ctx, o); err != nil {
			return imported, skipped, fmt.Errorf("failed to save override: %w", err)
		}
		imported++
	}

	for _, f := range export.EvidenceFeedback {
		existing, err := s.GetEvidenceFeedback(ctx, f.ClinicianID, f.PatientID, f.EntryDateISO, f.Span, f.Label)
		if err != nil {
			return imported, skipped, fmt.Errorf("failed to check existing feedback: %w", err)
		}
		if existing != nil {
			skipped++
			continue
		}
		if err := s.SaveEvidenceFeedback(ctx, f); err != nil {
			return imported, skipped, fmt.Errorf("failed to save feedback: %w", err)
		}
		imported++
	}

	return imported, skipped, nil
}
