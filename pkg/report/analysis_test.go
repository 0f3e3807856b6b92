package report

import (
	"errors"
	"reflect"
	"testing"
)

func TestParseAnalysisArrayFields(t *testing.T) {
	raw := `{"summary":"S","detailed_analysis":["a","b"],"next_steps":["x","y","z"]}`

	normalized, err := ParseAnalysis(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if normalized.Summary != "S" {
		t.Fatalf("expected summary S, got %q", normalized.Summary)
	}
	if normalized.Details != "a\nb" {
		t.Fatalf("expected details joined with newline, got %q", normalized.Details)
	}
	if normalized.Actions != "x\ny\nz" {
		t.Fatalf("expected actions joined with newline, got %q", normalized.Actions)
	}
	if normalized.AttentionCount != 3 {
		t.Fatalf("expected attention count 3, got %d", normalized.AttentionCount)
	}
}

func TestParseAnalysisStringFields(t *testing.T) {
	raw := `{"summary":"S","detailed_analysis":"all good","next_steps":"rest\n\ndrink water\n"}`

	normalized, err := ParseAnalysis(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if normalized.Details != "all good" {
		t.Fatalf("expected details unchanged, got %q", normalized.Details)
	}
	if normalized.Actions != "rest\n\ndrink water\n" {
		t.Fatalf("expected actions unchanged, got %q", normalized.Actions)
	}
	if normalized.AttentionCount != 2 {
		t.Fatalf("expected attention count 2 from non-empty lines, got %d", normalized.AttentionCount)
	}
}

func TestParseAnalysisUnparsable(t *testing.T) {
	_, err := ParseAnalysis("The patient seems fine overall.")
	if !errors.Is(err, ErrUnparsableResponse) {
		t.Fatalf("expected ErrUnparsableResponse, got %v", err)
	}
}

func TestParseAnalysisMissingFields(t *testing.T) {
	cases := []string{
		`{"detailed_analysis":["a"],"next_steps":["x"]}`,
		`{"summary":"S","next_steps":["x"]}`,
		`{"summary":"S","detailed_analysis":["a"]}`,
		`{"summary":42,"detailed_analysis":["a"],"next_steps":["x"]}`,
		`{"summary":"S","detailed_analysis":{"k":"v"},"next_steps":["x"]}`,
		`{"summary":"S","detailed_analysis":["a"],"next_steps":null}`,
	}

	for _, raw := range cases {
		if _, err := ParseAnalysis(raw); !errors.Is(err, ErrMalformedResponse) {
			t.Fatalf("expected ErrMalformedResponse for %s, got %v", raw, err)
		}
	}
}

func TestParseAnalysisDeterministic(t *testing.T) {
	raw := `{"summary":"S","detailed_analysis":["a","b"],"next_steps":["x","y"]}`

	first, err := ParseAnalysis(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := ParseAnalysis(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("expected identical normalization, got %+v vs %+v", first, second)
	}
}

func TestSplitLines(t *testing.T) {
	lines := SplitLines("  one \n\n two\nthree  \n")
	expected := []string{"one", "two", "three"}
	if !reflect.DeepEqual(lines, expected) {
		t.Fatalf("expected %v, got %v", expected, lines)
	}
}
