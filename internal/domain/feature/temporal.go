package feature

import (
	"math"
	"time"
)

// TemporalExtractor encodes when an observation happened. Hour of day is
// mapped onto the unit circle so midnight and 23:00 stay close in feature
// space.
type TemporalExtractor struct{}

func (e *TemporalExtractor) Domain() string { return "temporal" }

func (e *TemporalExtractor) Extract(payload map[string]interface{}) (map[string]float64, error) {
	ts := time.Now().UTC()
	if raw, ok := payload["timestamp"].(string); ok {
		if parsed, err := time.Parse(time.RFC3339, raw); err == nil {
			ts = parsed.UTC()
		}
	} else if epoch := num(payload, "timestamp", 0); epoch > 0 {
		ts = time.Unix(int64(epoch), 0).UTC()
	}

	hour := float64(ts.Hour()) + float64(ts.Minute())/60
	angle := hour / 24 * 2 * math.Pi

	weekday := float64(ts.Weekday())
	isWeekend := 0.0
	if ts.Weekday() == time.Saturday || ts.Weekday() == time.Sunday {
		isWeekend = 1
	}

	return map[string]float64{
		"hour_of_day":  hour,
		"hour_sin":     math.Sin(angle),
		"hour_cos":     math.Cos(angle),
		"day_of_week":  weekday,
		"is_weekend":   isWeekend,
		"day_of_month": float64(ts.Day()),
		"month":        float64(ts.Month()),
	}, nil
}
