package feature

import "github.com/healthlens/healthlens/internal/platform/stats"

// ActivityExtractor derives movement and cardio features from a daily
// activity summary payload.
type ActivityExtractor struct{}

func (e *ActivityExtractor) Domain() string { return "activity" }

// Activity feature defaults. HRV defaults to 30 ms, a neutral resting value.
const (
	defaultRestingHR = 70.0
	defaultHRV       = 30.0
)

func (e *ActivityExtractor) Extract(payload map[string]interface{}) (map[string]float64, error) {
	steps := num(payload, "steps", 0)
	calories := num(payload, "calories_burned", 0)
	activeMinutes := num(payload, "active_minutes", 0)
	hourlySteps := numSeries(payload, "hourly_steps")

	// Consistency of movement across the day: high hourly variability
	// relative to the hourly mean means bursty, irregular activity.
	consistency := 1.0
	if len(hourlySteps) >= 2 {
		m := stats.Mean(hourlySteps)
		consistency = 1 - stats.Std(hourlySteps)/clampDenom(m)
		if consistency < 0 {
			consistency = 0
		}
	}

	return map[string]float64{
		"steps":                  steps,
		"calories_burned":        calories,
		"active_minutes":         activeMinutes,
		"distance_km":            num(payload, "distance_km", 0),
		"heart_rate_avg":         num(payload, "heart_rate_avg", defaultRestingHR),
		"heart_rate_variability": num(payload, "heart_rate_variability", defaultHRV),
		"calories_per_step":      calories / clampDenom(steps),
		"active_ratio":           activeMinutes / clampDenom(num(payload, "total_minutes", 1440)),
		"activity_consistency":   consistency,
	}, nil
}
