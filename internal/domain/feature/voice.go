package feature

import "github.com/healthlens/healthlens/internal/platform/stats"

// VoiceExtractor derives acoustic features from a voice-sample summary
// payload. Defaults reflect a neutral adult speaking voice.
type VoiceExtractor struct{}

func (e *VoiceExtractor) Domain() string { return "voice" }

// Voice feature defaults.
const (
	defaultPitchHz     = 150.0
	defaultJitter      = 0.01
	defaultShimmer     = 0.05
	defaultSpeechRate  = 4.0 // syllables per second
	defaultPauseRatio  = 0.2
	defaultVoiceEnergy = 60.0 // dB
)

func (e *VoiceExtractor) Extract(payload map[string]interface{}) (map[string]float64, error) {
	pitchSeries := numSeries(payload, "pitch_samples")

	pitchMean := num(payload, "pitch_mean", defaultPitchHz)
	pitchVariability := num(payload, "pitch_variability", 0)
	if len(pitchSeries) > 0 {
		pitchMean = stats.Mean(pitchSeries)
		pitchVariability = stats.Std(pitchSeries)
	}

	speechRate := num(payload, "speech_rate", defaultSpeechRate)
	pauseCount := num(payload, "pause_count", 0)
	duration := clampDenom(num(payload, "duration_seconds", 30))

	return map[string]float64{
		"pitch_mean":        pitchMean,
		"pitch_variability": pitchVariability,
		"jitter":            num(payload, "jitter", defaultJitter),
		"shimmer":           num(payload, "shimmer", defaultShimmer),
		"speech_rate":       speechRate,
		"pause_ratio":       num(payload, "pause_ratio", defaultPauseRatio),
		"pauses_per_minute": pauseCount / duration * 60,
		"energy_mean":       num(payload, "energy_mean", defaultVoiceEnergy),
	}, nil
}
