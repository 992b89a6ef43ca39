package constants

const (
	// CrashAnalysisPrompt is rendered with fasttemplate before being sent to
	// the model. Placeholders: datetime, component, log.
	CrashAnalysisPrompt = `The current date: {{ datetime }}

You are an Android crash triage assistant. Below is the device crash buffer
captured right after deploying and launching {{ component }}.

Crash buffer:
{{ log }}

Respond with exactly three lines:
SEVERITY: one of LOW, MEDIUM, HIGH
CAUSE: one sentence naming the most likely root cause
SUGGESTION: one sentence telling the developer what to try first
`
)
