package report

import "time"

// AnalyzeRequest is the ingestion payload: metadata for an object already
// written by the upload gatekeeper.
type AnalyzeRequest struct {
	UserID       string `json:"userId"`
	Bucket       string `json:"bucket"`
	Key          string `json:"key"`
	OriginalName string `json:"originalName"`
	ContentType  string `json:"contentType"`
	Size         int64  `json:"size"`
	Language     string `json:"language,omitempty"`
}

type AnalysisPayload struct {
	Summary   string    `json:"summary"`
	Details   string    `json:"details"`
	Actions   string    `json:"actions"`
	Language  string    `json:"language"`
	CreatedAt time.Time `json:"createdAt"`
}

type AnalyzeResponse struct {
	ReportID string          `json:"reportId"`
	Analysis AnalysisPayload `json:"analysis"`
}

// HistoryEntry is a display-ready row of the history projection. It is
// derived at read time, never persisted.
type HistoryEntry struct {
	ID             string   `json:"id"`
	Title          string   `json:"title"`
	Summary        string   `json:"summary"`
	Date           string   `json:"date"`
	Highlights     []string `json:"highlights"`
	AttentionCount *int     `json:"attentionCount"`
}

type DetailResponse struct {
	ID             string          `json:"id"`
	OriginalName   string          `json:"originalName"`
	Status         string          `json:"status"`
	Summary        *string         `json:"summary"`
	AttentionCount *int            `json:"attentionCount"`
	UploadedAt     time.Time       `json:"uploadedAt"`
	CompletedAt    *time.Time      `json:"completedAt"`
	Analysis       AnalysisPayload `json:"analysis"`
}
