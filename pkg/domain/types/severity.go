package types

import "github.com/m-mizutani/goerr/v2"

// Severity is the severity of the triggering incident or alert. It is carried
// through escalation runs into notification payloads unmodified.
type Severity string

const (
	SeverityUnknown  Severity = "unknown"
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

var severityLabels = map[Severity]string{
	SeverityUnknown:  "❓️ Unknown",
	SeverityLow:      "🟢 Low",
	SeverityMedium:   "🟡 Medium",
	SeverityHigh:     "🔴 High",
	SeverityCritical: "🚨 Critical",
}

// severityColors follow the chat-ops attachment color convention.
var severityColors = map[Severity]string{
	SeverityUnknown:  "#808080",
	SeverityLow:      "#36a64f",
	SeverityMedium:   "#f2c744",
	SeverityHigh:     "#e01e5a",
	SeverityCritical: "#8b0000",
}

func (s Severity) String() string {
	return string(s)
}

func (s Severity) Label() string {
	return severityLabels[s]
}

func (s Severity) Color() string {
	if c, ok := severityColors[s]; ok {
		return c
	}
	return severityColors[SeverityUnknown]
}

func (s Severity) Validate() error {
	switch s {
	case SeverityUnknown, SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return nil
	}
	return goerr.New("invalid severity", goerr.V("severity", s))
}
