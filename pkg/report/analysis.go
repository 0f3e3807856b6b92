package report

import (
	"encoding/json"
	"errors"
	"strings"
)

var (
	ErrUnparsableResponse = errors.New("analysis response could not be parsed")
	ErrMalformedResponse  = errors.New("analysis response did not match expected structure")
)

// NormalizedAnalysis is the canonical form of a provider response. Array
// fields are flattened to newline-joined strings before anything is
// persisted, so callers never re-inspect the raw JSON.
type NormalizedAnalysis struct {
	Summary        string
	Details        string
	Actions        string
	AttentionCount int
}

type rawAnalysis struct {
	Summary          json.RawMessage `json:"summary"`
	DetailedAnalysis json.RawMessage `json:"detailed_analysis"`
	NextSteps        json.RawMessage `json:"next_steps"`
}

// ParseAnalysis validates and normalizes the raw text returned by the
// interpretation provider. The attention count is derived from the
// original shape of next_steps: array length when the provider sent an
// array, non-empty line count when it sent a string. Both paths agree on
// canonical round-trips.
func ParseAnalysis(raw string) (NormalizedAnalysis, error) {
	var parsed rawAnalysis
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return NormalizedAnalysis{}, ErrUnparsableResponse
	}

	summary, ok := asString(parsed.Summary)
	if !ok {
		return NormalizedAnalysis{}, ErrMalformedResponse
	}

	details, _, ok := flatten(parsed.DetailedAnalysis)
	if !ok {
		return NormalizedAnalysis{}, ErrMalformedResponse
	}

	actions, attentionCount, ok := flatten(parsed.NextSteps)
	if !ok {
		return NormalizedAnalysis{}, ErrMalformedResponse
	}

	return NormalizedAnalysis{
		Summary:        summary,
		Details:        details,
		Actions:        actions,
		AttentionCount: attentionCount,
	}, nil
}

// flatten accepts a JSON array of strings or a single string. Arrays are
// joined with newlines; strings pass through unchanged. The returned count
// is the array length or the string's non-empty line count.
func flatten(raw json.RawMessage) (text string, count int, ok bool) {
	if len(raw) == 0 || string(raw) == "null" {
		return "", 0, false
	}

	var lines []string
	if err := json.Unmarshal(raw, &lines); err == nil {
		return strings.Join(lines, "\n"), len(lines), true
	}

	value, ok := asString(raw)
	if !ok {
		return "", 0, false
	}
	return value, len(SplitLines(value)), true
}

func asString(raw json.RawMessage) (string, bool) {
	if len(raw) == 0 || string(raw) == "null" {
		return "", false
	}
	var value string
	if err := json.Unmarshal(raw, &value); err != nil {
		return "", false
	}
	return value, true
}

// SplitLines breaks a canonical newline-joined string back into trimmed,
// non-empty lines for display.
func SplitLines(value string) []string {
	var lines []string
	for _, line := range strings.Split(value, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			lines = append(lines, trimmed)
		}
	}
	return lines
}
