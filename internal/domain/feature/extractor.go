// Package feature turns raw per-domain payloads into fixed-schema numeric
// feature vectors. Extraction never fails on missing input fields: every
// extractor defines a neutral default per feature, so the returned vector is
// always complete. Non-finite results are a validation failure, never a
// silently accepted feature.
package feature

import (
	"fmt"
	"math"
	"time"

	"github.com/healthlens/healthlens/pkg/engineerr"
)

// SchemaVersion identifies the feature schema emitted by the extractors.
// Bump when a feature is added, removed, or its semantics change.
const SchemaVersion = "1.2.0"

// Extractor maps a raw payload for one data domain to a feature vector.
type Extractor interface {
	// Domain returns the extractor's domain key ("voice", "activity",
	// "sleep", "temporal").
	Domain() string
	// Extract returns the complete feature vector for the payload. Missing
	// fields fall back to documented neutral defaults; Extract only errors
	// on payloads it cannot interpret at all.
	Extract(payload map[string]interface{}) (map[string]float64, error)
}

// Result is the outcome of one extraction run.
type Result struct {
	UserID      string             `json:"user_id"`
	DataType    string             `json:"data_type"`
	Features    map[string]float64 `json:"features"`
	ExtractedAt time.Time          `json:"extracted_at"`
	Version     string             `json:"version"`
}

// Registry holds the known extractors keyed by domain. Lookup of an unknown
// domain is an explicit ExtractorNotFound error, never a nil dispatch.
type Registry struct {
	extractors map[string]Extractor
}

// NewRegistry returns a registry preloaded with the four standard domains.
func NewRegistry() *Registry {
	r := &Registry{extractors: make(map[string]Extractor)}
	r.Register(&VoiceExtractor{})
	r.Register(&ActivityExtractor{})
	r.Register(&SleepExtractor{})
	r.Register(&TemporalExtractor{})
	return r
}

// Register adds or replaces the extractor for its domain.
func (r *Registry) Register(e Extractor) {
	r.extractors[e.Domain()] = e
}

// Get returns the extractor for domain.
func (r *Registry) Get(domain string) (Extractor, error) {
	e, ok := r.extractors[domain]
	if !ok {
		return nil, engineerr.New(engineerr.CodeExtractorNotFound, "no extractor registered for domain %q", domain)
	}
	return e, nil
}

// Domains returns the registered domain keys.
func (r *Registry) Domains() []string {
	out := make([]string, 0, len(r.extractors))
	for d := range r.extractors {
		out = append(out, d)
	}
	return out
}

// Extract runs the extractor for domain and validates the vector: every
// feature must be a finite number. A panicking or erroring extractor
// surfaces as ExtractionFailed wrapping the cause.
func (r *Registry) Extract(userID, domain string, payload map[string]interface{}) (res *Result, err error) {
	e, lookupErr := r.Get(domain)
	if lookupErr != nil {
		return nil, lookupErr
	}

	defer func() {
		if rec := recover(); rec != nil {
			err = engineerr.Wrap(engineerr.CodeExtractionFailed,
				fmt.Errorf("panic: %v", rec), "extractor %q failed", domain)
		}
	}()

	features, extractErr := e.Extract(payload)
	if extractErr != nil {
		return nil, engineerr.Wrap(engineerr.CodeExtractionFailed, extractErr, "extractor %q failed", domain)
	}

	for name, v := range features {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, engineerr.New(engineerr.CodeExtractionFailed,
				"extractor %q produced non-finite feature %q", domain, name)
		}
	}

	return &Result{
		UserID:      userID,
		DataType:    domain,
		Features:    features,
		ExtractedAt: time.Now().UTC(),
		Version:     SchemaVersion,
	}, nil
}

// -- payload helpers shared by the extractors --

// num reads a numeric field, falling back to def when the field is absent or
// not a number. JSON decoding hands us float64, but int and string-encoded
// numbers show up in device payloads too.
func num(payload map[string]interface{}, key string, def float64) float64 {
	v, ok := payload[key]
	if !ok || v == nil {
		return def
	}
	switch n := v.(type) {
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return def
		}
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case bool:
		if n {
			return 1
		}
		return 0
	default:
		return def
	}
}

// numSeries reads an array field as a float series; non-numeric elements are
// skipped. An absent or empty field yields nil.
func numSeries(payload map[string]interface{}, key string) []float64 {
	v, ok := payload[key]
	if !ok {
		return nil
	}
	arr, ok := v.([]interface{})
	if !ok {
		return nil
	}
	var out []float64
	for _, el := range arr {
		switch n := el.(type) {
		case float64:
			if !math.IsNaN(n) && !math.IsInf(n, 0) {
				out = append(out, n)
			}
		case int:
			out = append(out, float64(n))
		}
	}
	return out
}

// clampDenom guards derived-feature divisions: denominators below 1 are
// raised to 1.
func clampDenom(d float64) float64 {
	if d < 1 {
		return 1
	}
	return d
}
