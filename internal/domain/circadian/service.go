package circadian

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/healthlens/healthlens/internal/config"
	"github.com/healthlens/healthlens/internal/platform/stats"
	"github.com/healthlens/healthlens/pkg/engineerr"
	"github.com/healthlens/healthlens/pkg/health"
)

// Defaults used when the input carries no usable sleep or activity signal.
// They are chosen so an empty request produces a neutral analysis with no
// recommendations.
const (
	defaultSleepDuration = 7.0
	defaultSleepQuality  = 0.75
	defaultConsistency   = 0.8
	defaultRegularity    = 0.7
	defaultBedtimeHour   = 23.0
)

// Service computes sleep/activity rhythm analyses.
type Service struct {
	cfg    *config.Config
	repo   Repository
	logger zerolog.Logger
}

func NewService(cfg *config.Config, repo Repository, logger zerolog.Logger) *Service {
	return &Service{cfg: cfg, repo: repo, logger: logger.With().Str("component", "circadian").Logger()}
}

// Analyze partitions the input into sleep and activity signals and derives a
// composite rhythm score with recommendations. Empty subsets fall back to
// neutral defaults rather than failing.
func (s *Service) Analyze(ctx context.Context, userID string, data []health.DataPoint) (*Analysis, error) {
	if s.cfg == nil {
		return nil, engineerr.New(engineerr.CodeServiceNotInitialized, "analytics service not initialized")
	}
	if !s.cfg.EnableCircadianAnalysis {
		return nil, engineerr.New(engineerr.CodeFeatureDisabled, "circadian analysis is disabled")
	}
	if len(data) > s.cfg.MaxDataPointsPerRequest {
		return nil, engineerr.New(engineerr.CodeInvalidRequest,
			"request exceeds %d data points", s.cfg.MaxDataPointsPerRequest)
	}

	sleepPoints := health.FilterMetricContains(data, "sleep")
	activityPoints := health.FilterMetricContains(data, "activity", "steps")

	sleep := s.sleepPattern(sleepPoints)
	activity := s.activityPattern(activityPoints)

	score := (sleep.SleepQuality + sleep.Consistency + activity.RegularityScore) / 3
	score = clamp01(score)

	now := time.Now().UTC()
	analysis := &Analysis{
		ID:              uuid.New(),
		UserID:          userID,
		SleepPattern:    sleep,
		ActivityPattern: activity,
		Recommendations: recommendations(sleep, activity),
		Score:           score,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if s.repo != nil {
		if err := s.repo.Create(ctx, analysis); err != nil {
			return nil, engineerr.Wrap(engineerr.CodeCircadianAnalysisFailed, err, "failed to persist circadian analysis")
		}
	}

	s.logger.Info().
		Str("user_id", userID).
		Int("sleep_points", len(sleepPoints)).
		Int("activity_points", len(activityPoints)).
		Float64("score", score).
		Msg("circadian analysis complete")

	return analysis, nil
}

func (s *Service) List(ctx context.Context, userID string, limit, offset int) ([]*Analysis, int, error) {
	if s.repo == nil {
		return nil, 0, engineerr.New(engineerr.CodeServiceNotInitialized, "analytics service not initialized")
	}
	return s.repo.ListByUser(ctx, userID, limit, offset)
}

func (s *Service) sleepPattern(points []health.DataPoint) SleepPattern {
	pattern := SleepPattern{
		Bedtime:       clockLabel(defaultBedtimeHour),
		WakeTime:      clockLabel(defaultBedtimeHour + defaultSleepDuration),
		SleepDuration: defaultSleepDuration,
		SleepQuality:  defaultSleepQuality,
		Consistency:   defaultConsistency,
	}
	if len(points) == 0 {
		return pattern
	}

	var durations, qualities, hours []float64
	for _, p := range points {
		switch p.Metric {
		case "sleep_duration":
			durations = append(durations, p.Value)
		case "sleep_quality":
			qualities = append(qualities, clamp01(p.Value))
		}
		h := float64(p.Timestamp.UTC().Hour()) + float64(p.Timestamp.UTC().Minute())/60
		hours = append(hours, h)
	}

	if len(durations) > 0 {
		pattern.SleepDuration = stats.Mean(durations)
	}
	if len(qualities) > 0 {
		pattern.SleepQuality = stats.Mean(qualities)
	}
	if len(hours) >= 2 {
		// Hour-of-day spread across sleep records; a 6h spread or worse
		// zeroes the consistency score.
		pattern.Consistency = clamp01(1 - stats.Std(hours)/6)
	}
	if len(hours) > 0 {
		bed := stats.Mean(hours)
		pattern.Bedtime = clockLabel(bed)
		pattern.WakeTime = clockLabel(bed + pattern.SleepDuration)
	}
	return pattern
}

func (s *Service) activityPattern(points []health.DataPoint) ActivityPattern {
	pattern := ActivityPattern{
		PeakActivityTime:    clockLabel(17),
		LowActivityTime:     clockLabel(3),
		ActivityVariability: 0,
		RegularityScore:     defaultRegularity,
	}
	if len(points) == 0 {
		return pattern
	}

	values := health.Values(points)
	mean := stats.Mean(values)
	std := stats.Std(values)
	pattern.ActivityVariability = std
	if mean > 0 {
		pattern.RegularityScore = clamp01(1 - std/mean)
	}

	// Bucket activity by hour of day and take the strongest and weakest
	// hours as the rhythm anchors.
	sums := make(map[int]float64)
	counts := make(map[int]int)
	for _, p := range points {
		h := p.Timestamp.UTC().Hour()
		sums[h] += p.Value
		counts[h]++
	}
	peakHour, lowHour := -1, -1
	var peakAvg, lowAvg float64
	for h, c := range counts {
		avg := sums[h] / float64(c)
		if peakHour < 0 || avg > peakAvg {
			peakHour, peakAvg = h, avg
		}
		if lowHour < 0 || avg < lowAvg {
			lowHour, lowAvg = h, avg
		}
	}
	if peakHour >= 0 {
		pattern.PeakActivityTime = clockLabel(float64(peakHour))
	}
	if lowHour >= 0 {
		pattern.LowActivityTime = clockLabel(float64(lowHour))
	}
	return pattern
}

func recommendations(sleep SleepPattern, activity ActivityPattern) []string {
	recs := []string{}
	if sleep.SleepDuration < 7 {
		recs = append(recs, "Aim for at least 7 hours of sleep per night")
	}
	if sleep.Consistency < 0.8 {
		recs = append(recs, "Keep a consistent bedtime and wake time, including weekends")
	}
	if activity.RegularityScore < 0.7 {
		recs = append(recs, "Spread activity more evenly across the day to stabilize your rhythm")
	}
	return recs
}

func clockLabel(hour float64) string {
	for hour < 0 {
		hour += 24
	}
	h := int(hour) % 24
	m := int((hour - float64(int(hour))) * 60)
	return fmt.Sprintf("%02d:%02d", h, m)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
