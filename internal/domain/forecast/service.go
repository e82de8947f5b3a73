package forecast

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/healthlens/healthlens/internal/config"
	"github.com/healthlens/healthlens/internal/platform/cache"
	"github.com/healthlens/healthlens/internal/platform/stats"
	"github.com/healthlens/healthlens/pkg/engineerr"
	"github.com/healthlens/healthlens/pkg/health"
)

// minHistory is the fewest observations a forecast accepts.
const minHistory = 3

// Service generates multi-step forecasts per (user, metric, horizon). The
// model label is selected by data volume; computationally every branch
// extrapolates the series' linear trend bounded by its volatility.
type Service struct {
	cfg    *config.Config
	repo   Repository
	store  cache.Store
	logger zerolog.Logger
}

func NewService(cfg *config.Config, repo Repository, store cache.Store, logger zerolog.Logger) *Service {
	return &Service{cfg: cfg, repo: repo, store: store, logger: logger}
}

// Generate returns the forecast for (userID, metric, horizon), serving a
// cached result younger than the configured TTL without recomputation.
func (s *Service) Generate(ctx context.Context, userID, metric, horizon string, data []health.DataPoint) (*Result, error) {
	if s.cfg == nil {
		return nil, engineerr.New(engineerr.CodeServiceNotInitialized, "forecast service has no configuration")
	}
	if !s.cfg.EnableTimeSeriesForecasting {
		return nil, engineerr.New(engineerr.CodeFeatureDisabled, "time-series forecasting is disabled")
	}
	if len(data) > s.cfg.MaxDataPointsPerRequest {
		return nil, engineerr.New(engineerr.CodeInvalidRequest,
			"request carries %d points, limit is %d", len(data), s.cfg.MaxDataPointsPerRequest)
	}
	if len(data) < minHistory {
		return nil, engineerr.New(engineerr.CodeInsufficientData,
			"forecast requires at least %d points, got %d", minHistory, len(data))
	}

	key := fmt.Sprintf("forecast:%s:%s:%s", userID, metric, horizon)
	now := time.Now().UTC()

	var cached Result
	hit, err := cache.GetJSON(ctx, s.store, key, s.cfg.ForecastCacheTTL, now, &cached)
	if err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("forecast cache read failed")
	}
	if hit {
		return &cached, nil
	}

	result, err := s.compute(userID, metric, horizon, data, now)
	if err != nil {
		return nil, err
	}

	if s.repo != nil {
		if err := s.repo.Create(ctx, result); err != nil {
			return nil, engineerr.Wrap(engineerr.CodeForecastGenerationFailed, err, "persist forecast")
		}
	}

	if err := cache.PutJSON(ctx, s.store, key, result, now); err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("forecast cache write failed")
	}

	s.logger.Info().
		Str("user_id", userID).
		Str("metric", metric).
		Str("model", result.Model).
		Int("steps", len(result.Predictions)).
		Msg("forecast generated")

	return result, nil
}

func (s *Service) compute(userID, metric, horizon string, data []health.DataPoint, now time.Time) (*Result, error) {
	points := make([]health.DataPoint, len(data))
	copy(points, data)
	health.SortByTimestamp(points)

	values := health.Values(points)
	trend := stats.Trend(values)
	volatility := stats.Volatility(values)
	last := points[len(points)-1]

	horizonDays := parseHorizonDays(horizon)
	if horizonDays > s.cfg.MaxForecastHorizonDays {
		horizonDays = s.cfg.MaxForecastHorizonDays
	}

	predictions := make([]Prediction, 0, horizonDays)
	for i := 1; i <= horizonDays; i++ {
		value := last.Value + trend*float64(i) + noise(volatility, i)
		if value < 0 {
			value = 0
		}

		confidence := 0.9 - float64(i)*0.1
		if confidence < 0.1 {
			confidence = 0.1
		}

		lower := value - volatility
		if lower < 0 {
			lower = 0
		}

		predictions = append(predictions, Prediction{
			Timestamp:  last.Timestamp.AddDate(0, 0, i),
			Value:      value,
			Confidence: confidence,
			UpperBound: value + volatility,
			LowerBound: lower,
		})
	}

	return &Result{
		ID:          uuid.New(),
		UserID:      userID,
		Metric:      metric,
		Predictions: predictions,
		Model:       selectModel(len(values)),
		Accuracy:    estimateAccuracy(values, volatility),
		Horizon:     horizon,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// selectModel is a labeling policy by data volume. All labels share the same
// trend-extrapolation computation in this engine.
func selectModel(n int) string {
	switch {
	case n < 10:
		return "linear"
	case n < 30:
		return "arima"
	default:
		return "prophet"
	}
}

// parseHorizonDays normalizes "<N>-<unit>" (unit day|week|month) to a day
// count. Unparseable horizons default to 7 days.
func parseHorizonDays(horizon string) int {
	parts := strings.SplitN(strings.TrimSpace(horizon), "-", 2)
	if len(parts) != 2 {
		return 7
	}
	n, err := strconv.Atoi(parts[0])
	if err != nil || n <= 0 {
		return 7
	}
	switch strings.TrimSuffix(strings.ToLower(parts[1]), "s") {
	case "day":
		return n
	case "week":
		return n * 7
	case "month":
		return n * 30
	default:
		return 7
	}
}

// noise returns a deterministic perturbation bounded by the series
// volatility, so repeated computation over the same history is reproducible.
func noise(volatility float64, step int) float64 {
	return volatility * 0.5 * math.Sin(float64(step))
}

// estimateAccuracy reports a transparency estimate in [0.7, 1.0]: the calmer
// the series relative to its mean, the higher the estimate. It is not a
// back-tested accuracy.
func estimateAccuracy(values []float64, volatility float64) float64 {
	m := math.Abs(stats.Mean(values))
	if m == 0 {
		return 0.7
	}
	acc := 0.95 - volatility/m
	if acc > 1.0 {
		acc = 1.0
	}
	if acc < 0.7 {
		acc = 0.7
	}
	return acc
}
