package llm

import (
	"strings"
)

// Analysis is the structured triage pulled out of a model reply.
type Analysis struct {
	Severity   string
	Cause      string
	Suggestion string
	Raw        string
}

// ParseAnalysis splits a model reply into its SEVERITY / CAUSE / SUGGESTION
// lines. Replies that ignore the format keep the raw text, so nothing the
// model said is lost.
func ParseAnalysis(content string) *Analysis {
	result := &Analysis{Raw: strings.TrimSpace(content)}

	for _, line := range strings.Split(result.Raw, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, "SEVERITY:"):
			result.Severity = strings.TrimSpace(strings.TrimPrefix(line, "SEVERITY:"))
		case strings.HasPrefix(line, "CAUSE:"):
			result.Cause = strings.TrimSpace(strings.TrimPrefix(line, "CAUSE:"))
		case strings.HasPrefix(line, "SUGGESTION:"):
			result.Suggestion = strings.TrimSpace(strings.TrimPrefix(line, "SUGGESTION:"))
		}
	}
	return result
}
