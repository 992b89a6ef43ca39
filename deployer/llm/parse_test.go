package llm

import (
	"testing"
)

func TestParseAnalysis(t *testing.T) {
	// Test case 1: well-formed reply.
	content := `SEVERITY: HIGH
CAUSE: NullPointerException in MainActivity.onCreate when the intent extras are missing.
SUGGESTION: Guard getIntent().getExtras() against null before reading keys.`

	result := ParseAnalysis(content)
	if result.Severity != "HIGH" {
		t.Errorf("Expected severity HIGH, got: %s", result.Severity)
	}
	if result.Cause == "" || result.Suggestion == "" {
		t.Errorf("Expected cause and suggestion parsed, got: %+v", result)
	}
	t.Logf("=== parsed ===\n%+v\n", result)

	// Test case 2: reply ignoring the format keeps the raw text.
	result = ParseAnalysis("  The app crashed because of a null pointer.  ")
	if result.Severity != "" || result.Cause != "" || result.Suggestion != "" {
		t.Errorf("Expected no structured fields, got: %+v", result)
	}
	if result.Raw != "The app crashed because of a null pointer." {
		t.Errorf("Expected trimmed raw text preserved, got: %q", result.Raw)
	}

	// Test case 3: leading whitespace around the section lines.
	result = ParseAnalysis("  SEVERITY: LOW  \n  CAUSE: flaky emulator  \n  SUGGESTION: retry  ")
	if result.Severity != "LOW" || result.Cause != "flaky emulator" || result.Suggestion != "retry" {
		t.Errorf("Expected trimmed fields, got: %+v", result)
	}
}
