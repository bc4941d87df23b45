package review

import (
	"context"
	"fmt"
	"io"

	"github.com/mindstorm-criteria-engine/internal/domain"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
)

// GuardedStore wraps a Store with a circuit breaker so a failing database is not
// hammered by every evaluation request. Validation errors do not count as failures.
type GuardedStore struct {
	store   Store
	breaker *gobreaker.CircuitBreaker
}

// NewGuardedStore creates a circuit-breaking decorator around store.
func NewGuardedStore(store Store, cfg domain.BreakerConfig, logger *logrus.Logger) *GuardedStore {
	threshold := cfg.FailureThreshold
	if threshold == 0 {
		threshold = 5
	}

	settings := gobreaker.Settings{
		Name:        "ReviewStore",
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		IsSuccessful: func(err error) bool {
			return err == nil || domain.IsValidationError(err)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.WithFields(logrus.Fields{
				"circuit_breaker": name,
				"from_state":      from.String(),
				"to_state":        to.String(),
			}).Warn("Circuit breaker state changed")
		},
	}

	return &GuardedStore{
		store:   store,
		breaker: gobreaker.NewCircuitBreaker(settings),
	}
}

// State reports the breaker state, for health endpoints.
func (g *GuardedStore) State() string {
	return g.breaker.State().String()
}

func (g *GuardedStore) run(op string, fn func() (interface{}, error)) (interface{}, error) {
	result, err := g.breaker.Execute(fn)
	if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
		return nil, fmt.Errorf("review store %s: %w", op, err)
	}
	return result, err
}

func (g *GuardedStore) SaveOverride(ctx context.Context, override *Override) error {
	_, err := g.run("save override", func() (interface{}, error) {
		return nil, g.store.SaveOverride(ctx, override)
	})
	return err
}

func (g *GuardedStore) GetOverride(ctx context.Context, clinicianID, patientID, nodeID string) (*Override, error) {
	result, err := g.run("get override", func() (interface{}, error) {
		return g.store.GetOverride(ctx, clinicianID, patientID, nodeID)
	})
	if err != nil {
		return nil, err
	}
	return result.(*Override), nil
}

func (g *GuardedStore) ListOverrides(ctx context.Context, patientID string) ([]*Override, error) {
	result, err := g.run("list overrides", func() (interface{}, error) {
		return g.store.ListOverrides(ctx, patientID)
	})
	if err != nil {
		return nil, err
	}
	return result.([]*Override), nil
}

func (g *GuardedStore) DeleteOverride(ctx context.Context, id int64) error {
	_, err := g.run("delete override", func() (interface{}, error) {
		return nil, g.store.DeleteOverride(ctx, id)
	})
	return err
}

func (g *GuardedStore) SaveEvidenceFeedback(ctx context.Context, feedback *EvidenceFeedback) error {
	_, err := g.run("save feedback", func() (interface{}, error) {
		return nil, g.store.SaveEvidenceFeedback(ctx, feedback)
	})
	return err
}

func (g *GuardedStore) GetEvidenceFeedback(ctx context.Context, clinicianID, patientID, entryDateISO, span, label string) (*EvidenceFeedback, error) {
	result, err := g.run("get feedback", func() (interface{}, error) {
		return g.store.GetEvidenceFeedback(ctx, clinicianID, patientID, entryDateISO, span, label)
	})
	if err != nil {
		return nil, err
	}
	return result.(*EvidenceFeedback), nil
}

func (g *GuardedStore) ListEvidenceFeedback(ctx context.Context, patientID string) ([]*EvidenceFeedback, error) {
	result, err := g.run("list feedback", func() (interface{}, error) {
		return g.store.ListEvidenceFeedback(ctx, patientID)
	})
	if err != nil {
		return nil, err
	}
	return result.([]*EvidenceFeedback), nil
}

// ExportJSON and ImportJSON bypass the breaker; they are operator commands.
func (g *GuardedStore) ExportJSON(ctx context.Context, writer io.Writer) error {
	return g.store.ExportJSON(ctx, writer)
}

func (g *GuardedStore) ImportJSON(ctx context.Context, reader io.Reader) (int, int, error) {
	return g.store.ImportJSON(ctx, reader)
}

func (g *GuardedStore) Close() error {
	return g.store.Close()
}
