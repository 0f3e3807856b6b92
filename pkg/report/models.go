package report

import (
	"time"

	"gorm.io/datatypes"
)

const (
	StatusProcessing = "PROCESSING"
	StatusComplete   = "COMPLETE"
	StatusFailed     = "FAILED"
)

// Report is the durable record of one uploaded file and its processing
// status. It is written exactly twice: once at creation (PROCESSING) and
// once by the orchestrator's terminal transition.
type Report struct {
	ID             string     `json:"id" gorm:"primaryKey;column:id"`
	UserID         string     `json:"user_id" gorm:"column:user_id;index"`
	OriginalName   string     `json:"original_name" gorm:"column:original_name"`
	StorageBucket  string     `json:"storage_bucket" gorm:"column:storage_bucket"`
	StorageKey     string     `json:"storage_key" gorm:"column:storage_key"`
	ContentType    string     `json:"content_type" gorm:"column:content_type"`
	FileSizeBytes  int64      `json:"file_size_bytes" gorm:"column:file_size_bytes"`
	Status         string     `json:"status" gorm:"column:status"`
	Summary        *string    `json:"summary,omitempty" gorm:"column:summary"`
	AttentionCount *int       `json:"attention_count,omitempty" gorm:"column:attention_count"`
	UploadedAt     time.Time  `json:"uploaded_at" gorm:"column:uploaded_at"`
	CompletedAt    *time.Time `json:"completed_at,omitempty" gorm:"column:completed_at"`
}

func (Report) TableName() string {
	return "reports"
}

// ReportAnalysis holds one completed interpretation, 1:1 with its Report.
// Immutable once inserted.
type ReportAnalysis struct {
	ID           string            `json:"id" gorm:"primaryKey;column:id"`
	ReportID     string            `json:"report_id" gorm:"column:report_id;uniqueIndex"`
	Language     string            `json:"language" gorm:"column:language"`
	Summary      string            `json:"summary" gorm:"column:summary"`
	Details      string            `json:"details" gorm:"column:details"`
	Actions      string            `json:"actions" gorm:"column:actions"`
	ProviderMeta datatypes.JSONMap `json:"provider_meta,omitempty" gorm:"column:provider_meta;type:jsonb"`
	CreatedAt    time.Time         `json:"created_at" gorm:"column:created_at"`
}

func (ReportAnalysis) TableName() string {
	return "report_analyses"
}

// ReportWithAnalysis pairs a report with its analysis for read projections.
// Analysis is nil for reports that never completed.
type ReportWithAnalysis struct {
	Report   Report
	Analysis *ReportAnalysis
}
