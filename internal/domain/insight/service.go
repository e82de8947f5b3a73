package insight

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/healthlens/healthlens/internal/config"
	"github.com/healthlens/healthlens/internal/domain/anomaly"
	"github.com/healthlens/healthlens/internal/domain/circadian"
	"github.com/healthlens/healthlens/internal/platform/stats"
	"github.com/healthlens/healthlens/pkg/engineerr"
	"github.com/healthlens/healthlens/pkg/health"
)

const (
	minTrendPoints = 3
	trendThreshold = 0.1
	baseScore      = 75.0
	trendWeight    = 5.0
)

// AnomalyDetector is the slice of the anomaly service the aggregator needs.
type AnomalyDetector interface {
	Detect(ctx context.Context, userID string, data []health.DataPoint, algorithms []string, sensitivity string) ([]*anomaly.Record, error)
}

// CircadianAnalyzer is the slice of the circadian service the aggregator needs.
type CircadianAnalyzer interface {
	Analyze(ctx context.Context, userID string, data []health.DataPoint) (*circadian.Analysis, error)
}

// Service folds per-metric trends, anomaly findings, and circadian analysis
// into a single report.
type Service struct {
	cfg       *config.Config
	anomalies AnomalyDetector
	circadian CircadianAnalyzer
	logger    zerolog.Logger
}

func NewService(cfg *config.Config, anomalies AnomalyDetector, circ CircadianAnalyzer, logger zerolog.Logger) *Service {
	return &Service{
		cfg:       cfg,
		anomalies: anomalies,
		circadian: circ,
		logger:    logger.With().Str("component", "insight").Logger(),
	}
}

// Generate builds the aggregated report for the user's data. Subsystems that
// decline to run, because their feature is off or their data is too thin, are
// skipped rather than failing the report.
func (s *Service) Generate(ctx context.Context, userID string, data []health.DataPoint) (*Report, error) {
	if s.cfg == nil {
		return nil, engineerr.New(engineerr.CodeServiceNotInitialized, "analytics service not initialized")
	}
	if len(data) > s.cfg.MaxDataPointsPerRequest {
		return nil, engineerr.New(engineerr.CodeInvalidRequest,
			"request exceeds %d data points", s.cfg.MaxDataPointsPerRequest)
	}

	report := &Report{
		UserID:          userID,
		Insights:        []Insight{},
		Recommendations: []string{},
		RiskFactors:     []string{},
		Score:           baseScore,
		GeneratedAt:     time.Now().UTC(),
	}

	s.addTrendInsights(report, data)
	s.addAnomalyFindings(ctx, report, userID, data)
	s.addCircadianFindings(ctx, report, userID, data)

	report.Score = clamp(report.Score, 0, 100)
	report.Confidence = confidence(len(data), len(report.Insights))

	s.logger.Info().
		Str("user_id", userID).
		Int("data_points", len(data)).
		Int("insights", len(report.Insights)).
		Float64("score", report.Score).
		Msg("health insights generated")

	return report, nil
}

func (s *Service) addTrendInsights(report *Report, data []health.DataPoint) {
	groups := health.GroupByMetric(data)

	metrics := make([]string, 0, len(groups))
	for m := range groups {
		metrics = append(metrics, m)
	}
	sort.Strings(metrics)

	for _, metric := range metrics {
		points := groups[metric]
		if len(points) < minTrendPoints {
			continue
		}
		health.SortByTimestamp(points)
		trend := classifyTrend(stats.Trend(health.Values(points)))

		report.Insights = append(report.Insights, Insight{
			Type:        "trend",
			Metric:      metric,
			Trend:       trend,
			Description: fmt.Sprintf("%s has been %s over the last %d readings", metric, trend, len(points)),
		})
		report.Score += trendScoreDelta(metric, trend)
	}
}

func (s *Service) addAnomalyFindings(ctx context.Context, report *Report, userID string, data []health.DataPoint) {
	if s.anomalies == nil {
		return
	}
	records, err := s.anomalies.Detect(ctx, userID, data, nil, "")
	if err != nil {
		// Disabled features and thin data are expected; anything else is
		// logged and the report continues without anomaly findings.
		if !engineerr.Is(err, engineerr.CodeFeatureDisabled) && !engineerr.Is(err, engineerr.CodeInsufficientData) {
			s.logger.Warn().Err(err).Str("user_id", userID).Msg("anomaly detection failed during insight generation")
		}
		return
	}

	seekCare := false
	for _, r := range records {
		if r.Severity != anomaly.SeverityCritical && r.Severity != anomaly.SeverityHigh {
			continue
		}
		report.RiskFactors = append(report.RiskFactors,
			fmt.Sprintf("%s severity anomaly in %s (value %.2f)", r.Severity, r.Metric, r.Value))
		report.Insights = append(report.Insights, Insight{
			Type:        "anomaly",
			Metric:      r.Metric,
			Description: r.Explanation,
		})
		seekCare = true
	}
	if seekCare {
		report.Recommendations = append(report.Recommendations,
			"Unusual readings detected; consider consulting a healthcare provider")
	}
}

func (s *Service) addCircadianFindings(ctx context.Context, report *Report, userID string, data []health.DataPoint) {
	if s.circadian == nil {
		return
	}
	relevant := health.FilterMetricContains(data, "sleep", "activity", "steps")
	if len(relevant) == 0 {
		return
	}

	analysis, err := s.circadian.Analyze(ctx, userID, relevant)
	if err != nil {
		if !engineerr.Is(err, engineerr.CodeFeatureDisabled) {
			s.logger.Warn().Err(err).Str("user_id", userID).Msg("circadian analysis failed during insight generation")
		}
		return
	}

	report.Insights = append(report.Insights, Insight{
		Type:        "circadian",
		Score:       analysis.Score,
		Description: fmt.Sprintf("circadian rhythm score is %.2f", analysis.Score),
	})
	report.Recommendations = append(report.Recommendations, analysis.Recommendations...)
}

// positiveDirection reports whether more of the metric is better.
func positiveDirection(metric string) bool {
	m := strings.ToLower(metric)
	for _, p := range []string{"steps", "sleep", "activity", "water"} {
		if strings.Contains(m, p) {
			return true
		}
	}
	return false
}

func trendScoreDelta(metric string, trend Trend) float64 {
	if trend == TrendStable {
		return 0
	}
	improving := (trend == TrendIncreasing) == positiveDirection(metric)
	if improving {
		return trendWeight
	}
	return -trendWeight
}

func classifyTrend(slope float64) Trend {
	switch {
	case slope > trendThreshold:
		return TrendIncreasing
	case slope < -trendThreshold:
		return TrendDecreasing
	default:
		return TrendStable
	}
}

func confidence(pointCount, insightCount int) float64 {
	volume := minF(1, float64(pointCount)/30)
	density := minF(1, float64(insightCount)/5)
	return (volume + density) / 2
}

func minF(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
