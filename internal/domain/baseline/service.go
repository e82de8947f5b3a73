package baseline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/healthlens/healthlens/internal/config"
	"github.com/healthlens/healthlens/internal/platform/cache"
	"github.com/healthlens/healthlens/pkg/engineerr"
)

// alpha is the fixed EWMA learning rate for baseline updates.
const alpha = 0.1

// Service maintains per-user metric baselines. Baselines carry no TTL; the
// cached copy is always the freshest and is replaced on every update.
type Service struct {
	cfg    *config.Config
	repo   Repository
	store  cache.Store
	logger zerolog.Logger
}

func NewService(cfg *config.Config, repo Repository, store cache.Store, logger zerolog.Logger) *Service {
	return &Service{cfg: cfg, repo: repo, store: store, logger: logger.With().Str("component", "baseline").Logger()}
}

func cacheKey(userID, metric string) string {
	return fmt.Sprintf("baseline:%s:%s", userID, metric)
}

// Update folds a new observation into the user's baseline for metric. The
// first observation seeds the baseline, its normal range, and its confidence;
// later observations only move the EWMA and bump the sample size.
func (s *Service) Update(ctx context.Context, userID, metric string, value float64, at time.Time) (*Baseline, error) {
	if s.cfg == nil {
		return nil, engineerr.New(engineerr.CodeServiceNotInitialized, "analytics service not initialized")
	}
	if !s.cfg.EnablePersonalizedBaselines {
		return nil, engineerr.New(engineerr.CodeFeatureDisabled, "personalized baselines are disabled")
	}
	if metric == "" {
		return nil, engineerr.New(engineerr.CodeInvalidRequest, "metric is required")
	}
	if at.IsZero() {
		at = time.Now().UTC()
	}

	b, err := s.repo.Get(ctx, userID, metric)
	switch {
	case errors.Is(err, ErrNotFound):
		b = &Baseline{
			ID:          uuid.New(),
			UserID:      userID,
			Metric:      metric,
			Baseline:    value,
			NormalRange: NormalRange{Min: 0.8 * value, Max: 1.2 * value},
			Confidence:  0.5,
			SampleSize:  1,
			LastUpdated: at,
			CreatedAt:   at,
		}
	case err != nil:
		return nil, engineerr.Wrap(engineerr.CodeBaselineUpdateFailed, err, "failed to load baseline")
	default:
		b.Baseline = b.Baseline*(1-alpha) + value*alpha
		b.SampleSize++
		b.LastUpdated = at
	}

	if err := s.repo.Upsert(ctx, b); err != nil {
		return nil, engineerr.Wrap(engineerr.CodeBaselineUpdateFailed, err, "failed to persist baseline")
	}
	if s.store != nil {
		if err := cache.PutJSON(ctx, s.store, cacheKey(userID, metric), b, at); err != nil {
			s.logger.Warn().Err(err).Str("metric", metric).Msg("baseline cache write failed")
		}
	}

	s.logger.Info().
		Str("user_id", userID).
		Str("metric", metric).
		Float64("baseline", b.Baseline).
		Int("sample_size", b.SampleSize).
		Msg("baseline updated")

	return b, nil
}

// Get returns the user's baseline for metric, preferring the cached copy.
func (s *Service) Get(ctx context.Context, userID, metric string) (*Baseline, error) {
	if s.cfg == nil {
		return nil, engineerr.New(engineerr.CodeServiceNotInitialized, "analytics service not initialized")
	}
	if s.store != nil {
		var cached Baseline
		if ok, _ := cache.GetJSON(ctx, s.store, cacheKey(userID, metric), s.cfg.BaselineCacheTTL, time.Now().UTC(), &cached); ok {
			return &cached, nil
		}
	}

	b, err := s.repo.Get(ctx, userID, metric)
	if errors.Is(err, ErrNotFound) {
		return nil, engineerr.New(engineerr.CodeNotFound, "no baseline for metric %q", metric)
	}
	if err != nil {
		return nil, engineerr.Wrap(engineerr.CodeBaselineUpdateFailed, err, "failed to load baseline")
	}
	return b, nil
}

func (s *Service) List(ctx context.Context, userID string) ([]*Baseline, error) {
	if s.cfg == nil {
		return nil, engineerr.New(engineerr.CodeServiceNotInitialized, "analytics service not initialized")
	}
	return s.repo.ListByUser(ctx, userID)
}
