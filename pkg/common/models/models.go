package models

import "time"

// Event is the envelope published to the report lifecycle topic.
type Event struct {
	ID        string                 `json:"id"`
	Type      string                 `json:"type"`
	Source    string                 `json:"source"`
	Data      map[string]interface{} `json:"data"`
	Timestamp time.Time              `json:"timestamp"`
}

const (
	EventReportCompleted = "report.completed"
	EventReportFailed    = "report.failed"
)

// ErrorResponse is the uniform JSON error payload.
type ErrorResponse struct {
	Error string `json:"error"`
}
