package anomaly

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/healthlens/healthlens/internal/config"
	"github.com/healthlens/healthlens/internal/platform/cache"
	"github.com/healthlens/healthlens/internal/platform/stats"
	"github.com/healthlens/healthlens/pkg/engineerr"
	"github.com/healthlens/healthlens/pkg/health"
)

// minGroupSize is the fewest points a metric group needs for z-score
// analysis; smaller groups are skipped, not an error.
const minGroupSize = 5

// sensitivityThresholds maps caller sensitivity to the z-score threshold.
var sensitivityThresholds = map[string]float64{
	"low":    3.0,
	"medium": 2.5,
	"high":   2.0,
}

// DefaultSensitivity applies when the caller does not choose one.
const DefaultSensitivity = "medium"

// Service flags statistical outliers per metric group using z-score
// thresholds parameterized by caller sensitivity.
type Service struct {
	cfg    *config.Config
	repo   Repository
	store  cache.Store
	logger zerolog.Logger
}

func NewService(cfg *config.Config, repo Repository, store cache.Store, logger zerolog.Logger) *Service {
	return &Service{cfg: cfg, repo: repo, store: store, logger: logger}
}

// Detect scores every point against its metric group and returns the flagged
// ones ordered by severity descending, ties broken most-recent-first. A
// cached result younger than the anomaly TTL is returned as-is.
func (s *Service) Detect(ctx context.Context, userID string, data []health.DataPoint, algorithms []string, sensitivity string) ([]*Record, error) {
	if s.cfg == nil {
		return nil, engineerr.New(engineerr.CodeServiceNotInitialized, "anomaly service has no configuration")
	}
	if !s.cfg.EnableAnomalyDetection {
		return nil, engineerr.New(engineerr.CodeFeatureDisabled, "anomaly detection is disabled")
	}
	if len(data) > s.cfg.MaxDataPointsPerRequest {
		return nil, engineerr.New(engineerr.CodeInvalidRequest,
			"request carries %d points, limit is %d", len(data), s.cfg.MaxDataPointsPerRequest)
	}
	if len(data) < minGroupSize {
		return nil, engineerr.New(engineerr.CodeInsufficientData,
			"anomaly detection requires at least %d points, got %d", minGroupSize, len(data))
	}

	key := "anomalies:" + userID
	now := time.Now().UTC()

	var cached []*Record
	hit, err := cache.GetJSON(ctx, s.store, key, s.cfg.AnomalyCacheTTL, now, &cached)
	if err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("anomaly cache read failed")
	}
	if hit {
		return cached, nil
	}

	threshold, ok := sensitivityThresholds[sensitivity]
	if !ok {
		threshold = sensitivityThresholds[DefaultSensitivity]
	}
	algorithm := "zscore"
	if len(algorithms) > 0 {
		algorithm = algorithms[0]
	}

	var records []*Record
	for metric, group := range health.GroupByMetric(data) {
		if len(group) < minGroupSize {
			continue
		}

		values := health.Values(group)
		var sum, sumSq float64
		for _, v := range values {
			sum += v
			sumSq += v * v
		}
		n := float64(len(values))

		for _, p := range group {
			// Each point is scored against its peer group (the metric
			// group excluding the point itself); including the point
			// in its own baseline caps the reachable z-score at
			// sqrt(n-1) and masks single extreme outliers in small
			// groups.
			peerMean := (sum - p.Value) / (n - 1)
			peerVar := (sumSq-p.Value*p.Value)/(n-1) - peerMean*peerMean
			peerStd := 0.0
			if peerVar > 0 {
				peerStd = math.Sqrt(peerVar)
			}

			z := math.Abs(stats.ZScore(p.Value, peerMean, peerStd))
			if z <= threshold {
				continue
			}
			records = append(records, &Record{
				ID:           uuid.New(),
				UserID:       userID,
				Timestamp:    p.Timestamp,
				Metric:       metric,
				Value:        p.Value,
				AnomalyScore: z / 5,
				IsAnomaly:    true,
				Severity:     classifySeverity(z, threshold),
				Explanation: fmt.Sprintf("value %.2f deviates %.1f standard deviations from the %s mean of %.2f",
					p.Value, z, metric, peerMean),
				Algorithm: algorithm,
				CreatedAt: now,
			})
		}
	}

	sortRecords(records)

	if s.repo != nil && len(records) > 0 {
		if err := s.repo.CreateBatch(ctx, records); err != nil {
			return nil, engineerr.Wrap(engineerr.CodeAnomalyDetectionFailed, err, "persist anomaly records")
		}
	}

	if err := cache.PutJSON(ctx, s.store, key, records, now); err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("anomaly cache write failed")
	}

	s.logger.Info().
		Str("user_id", userID).
		Str("sensitivity", sensitivity).
		Int("flagged", len(records)).
		Msg("anomaly detection completed")

	return records, nil
}

// classifySeverity grades a flagged z-score by threshold multiples. Flagged
// points always land at medium or above.
func classifySeverity(z, threshold float64) Severity {
	switch {
	case z > 2*threshold:
		return SeverityCritical
	case z > 1.5*threshold:
		return SeverityHigh
	case z > threshold:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

// sortRecords orders by severity descending, then timestamp descending.
func sortRecords(records []*Record) {
	sort.Slice(records, func(i, j int) bool {
		ri, rj := severityRank[records[i].Severity], severityRank[records[j].Severity]
		if ri != rj {
			return ri > rj
		}
		return records[i].Timestamp.After(records[j].Timestamp)
	})
}
