package feature

import "github.com/healthlens/healthlens/internal/platform/stats"

// SleepExtractor derives sleep quality features from a nightly sleep summary
// payload.
type SleepExtractor struct{}

func (e *SleepExtractor) Domain() string { return "sleep" }

// Sleep feature defaults. Efficiency defaults to 0.85, a typical healthy
// night; duration to 7 hours.
const (
	defaultSleepHours      = 7.0
	defaultSleepEfficiency = 0.85
	defaultDeepRatio       = 0.2
	defaultREMRatio        = 0.22
)

func (e *SleepExtractor) Extract(payload map[string]interface{}) (map[string]float64, error) {
	duration := num(payload, "duration_hours", defaultSleepHours)
	efficiency := num(payload, "efficiency", defaultSleepEfficiency)
	deepRatio := num(payload, "deep_ratio", defaultDeepRatio)
	remRatio := num(payload, "rem_ratio", defaultREMRatio)
	awakenings := num(payload, "awakenings", 0)

	// Night-to-night bedtime spread (minutes after midnight). A tight
	// spread reads as consistent; 120 minutes of drift reads as zero.
	bedtimes := numSeries(payload, "bedtime_minutes")
	consistency := 1.0
	if len(bedtimes) >= 2 {
		consistency = 1 - stats.Std(bedtimes)/120
		if consistency < 0 {
			consistency = 0
		}
	}

	quality := efficiency*0.5 + deepRatio*1.25 + remRatio*0.5 - awakenings*0.02
	if quality > 1 {
		quality = 1
	}
	if quality < 0 {
		quality = 0
	}

	return map[string]float64{
		"duration_hours":  duration,
		"efficiency":      efficiency,
		"deep_ratio":      deepRatio,
		"rem_ratio":       remRatio,
		"awakenings":      awakenings,
		"latency_minutes": num(payload, "latency_minutes", 15),
		"consistency":     consistency,
		"quality_score":   quality,
	}, nil
}
