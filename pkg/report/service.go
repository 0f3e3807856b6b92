package report

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/carelytic/platform/pkg/common/logger"
	"github.com/carelytic/platform/pkg/common/models"
	"github.com/carelytic/platform/pkg/provider"
	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	defaultHistoryLimit = 25
	maxHighlights       = 3
	cleanupTimeout      = 30 * time.Second
)

var (
	ErrUserNotFound      = errors.New("user not found")
	ErrEmptyStoredObject = errors.New("retrieved file is empty")
	ErrNoOutputText      = errors.New("provider did not return textual output")
)

// ObjectStore is the read side of the blob store the orchestrator needs.
type ObjectStore interface {
	Get(ctx context.Context, bucket, key string) ([]byte, error)
}

// Provider is the interpretation provider contract: upload a transient
// file, run inference against it, delete the handle afterwards.
type Provider interface {
	UploadFile(ctx context.Context, name, contentType string, data []byte) (string, error)
	Interpret(ctx context.Context, systemPrompt, userPrompt, fileID string) (provider.Result, error)
	DeleteFile(ctx context.Context, fileID string) error
}

// UserDirectory answers whether a user id refers to a real account.
type UserDirectory interface {
	Exists(ctx context.Context, id string) (bool, error)
}

// Store is the persistence slice the service drives.
type Store interface {
	CreateReport(ctx context.Context, rep *Report) error
	MarkFailed(ctx context.Context, id string) error
	CompleteReport(ctx context.Context, rep *Report, analysis *ReportAnalysis) error
	GetWithAnalysis(ctx context.Context, id string) (*Report, *ReportAnalysis, error)
	ListWithAnalyses(ctx context.Context, userID string, limit int) ([]ReportWithAnalysis, error)
}

// EventPublisher mirrors the kafka producer; nil disables publishing.
type EventPublisher interface {
	PublishEvent(ctx context.Context, eventType, source string, data map[string]interface{}) error
}

type Service struct {
	validator       *Validator
	store           Store
	objects         ObjectStore
	provider        Provider
	users           UserDirectory
	events          EventPublisher
	cache           *ProjectionCache
	providerTimeout time.Duration
}

func NewService(validator *Validator, store Store, objects ObjectStore, prov Provider, users UserDirectory, events EventPublisher, cache *ProjectionCache, providerTimeout time.Duration) *Service {
	return &Service{
		validator:       validator,
		store:           store,
		objects:         objects,
		provider:        prov,
		users:           users,
		events:          events,
		cache:           cache,
		providerTimeout: providerTimeout,
	}
}

// Analyze drives one report through PROCESSING to a terminal status. Any
// failure after the report row exists marks it FAILED before the error is
// surfaced; the caller must resubmit a fresh upload, there is no resume.
func (s *Service) Analyze(ctx context.Context, req AnalyzeRequest) (*AnalyzeResponse, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	exists, err := s.users.Exists(ctx, req.UserID)
	if err != nil {
		return nil, fmt.Errorf("looking up user: %w", err)
	}
	if !exists {
		return nil, ErrUserNotFound
	}

	language := NormalizeLanguage(req.Language)

	rep := &Report{
		ID:            uuid.New().String(),
		UserID:        req.UserID,
		OriginalName:  req.OriginalName,
		StorageBucket: req.Bucket,
		StorageKey:    req.Key,
		ContentType:   req.ContentType,
		FileSizeBytes: req.Size,
		Status:        StatusProcessing,
		UploadedAt:    time.Now().UTC(),
	}

	if err := s.store.CreateReport(ctx, rep); err != nil {
		return nil, fmt.Errorf("persisting report: %w", err)
	}

	resp, err := s.ingest(ctx, rep, language)
	if err != nil {
		s.fail(ctx, rep, err)
		return nil, err
	}
	return resp, nil
}

func (s *Service) ingest(ctx context.Context, rep *Report, language Language) (*AnalyzeResponse, error) {
	data, err := s.objects.Get(ctx, rep.StorageBucket, rep.StorageKey)
	if err != nil {
		return nil, fmt.Errorf("fetching stored object: %w", err)
	}
	if len(data) == 0 {
		return nil, ErrEmptyStoredObject
	}

	fileID, err := s.provider.UploadFile(ctx, rep.OriginalName, rep.ContentType, data)
	if err != nil {
		return nil, fmt.Errorf("uploading file to provider: %w", err)
	}

	systemPrompt, userPrompt := BuildPrompts(language)

	inferCtx, cancel := context.WithTimeout(ctx, s.providerTimeout)
	result, err := s.provider.Interpret(inferCtx, systemPrompt, userPrompt, fileID)
	cancel()

	// The transient provider-side handle is deleted regardless of the
	// inference outcome; failure to delete never affects this request.
	go s.deleteProviderFile(fileID)

	if err != nil {
		return nil, fmt.Errorf("provider interpretation: %w", err)
	}

	if result.OutputText == "" {
		return nil, ErrNoOutputText
	}

	normalized, err := ParseAnalysis(result.OutputText)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	analysis := &ReportAnalysis{
		ID:       uuid.New().String(),
		ReportID: rep.ID,
		Language: string(language),
		Summary:  normalized.Summary,
		Details:  normalized.Details,
		Actions:  normalized.Actions,
		ProviderMeta: datatypes.JSONMap{
			"model":         result.Model,
			"output_tokens": result.OutputTokens,
		},
		CreatedAt: now,
	}

	rep.Status = StatusComplete
	rep.Summary = &normalized.Summary
	rep.AttentionCount = &normalized.AttentionCount
	rep.CompletedAt = &now

	if err := s.store.CompleteReport(ctx, rep, analysis); err != nil {
		return nil, fmt.Errorf("persisting analysis: %w", err)
	}

	s.publishEvent(ctx, models.EventReportCompleted, rep)
	s.cache.Invalidate(ctx, rep.UserID)

	return &AnalyzeResponse{
		ReportID: rep.ID,
		Analysis: AnalysisPayload{
			Summary:   normalized.Summary,
			Details:   normalized.Details,
			Actions:   normalized.Actions,
			Language:  string(language),
			CreatedAt: analysis.CreatedAt,
		},
	}, nil
}

// fail is the single place a created report transitions to FAILED. The
// update is best-effort: a secondary failure is logged and swallowed since
// no compensating mechanism exists.
func (s *Service) fail(ctx context.Context, rep *Report, cause error) {
	logger.Log.WithError(cause).WithField("report_id", rep.ID).Error("report ingestion failed")

	rep.Status = StatusFailed
	if err := s.store.MarkFailed(ctx, rep.ID); err != nil {
		logger.Log.WithError(err).WithField("report_id", rep.ID).Warn("failed to mark report as failed")
	}

	s.publishEvent(ctx, models.EventReportFailed, rep)
}

func (s *Service) deleteProviderFile(fileID string) {
	ctx, cancel := context.WithTimeout(context.Background(), cleanupTimeout)
	defer cancel()

	if err := s.provider.DeleteFile(ctx, fileID); err != nil {
		logger.Log.WithError(err).WithField("file_id", fileID).Warn("failed to delete provider file")
	}
}

func (s *Service) publishEvent(ctx context.Context, eventType string, rep *Report) {
	if s.events == nil {
		return
	}

	err := s.events.PublishEvent(ctx, eventType, "report-service", map[string]interface{}{
		"report_id": rep.ID,
		"user_id":   rep.UserID,
		"status":    rep.Status,
	})
	if err != nil {
		logger.Log.WithError(err).WithField("report_id", rep.ID).Warn("failed to publish report event")
	}
}

// History assembles the read-side projection for a user. Reports without a
// completed analysis are dropped silently, whatever their status.
func (s *Service) History(ctx context.Context, userID string, limit int) ([]HistoryEntry, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}

	if entries, ok := s.cache.Get(ctx, userID, limit); ok {
		return entries, nil
	}

	pairs, err := s.store.ListWithAnalyses(ctx, userID, limit)
	if err != nil {
		return nil, err
	}

	entries := make([]HistoryEntry, 0, len(pairs))
	for _, pair := range pairs {
		if pair.Analysis == nil {
			continue
		}
		entries = append(entries, buildHistoryEntry(pair.Report, *pair.Analysis))
	}

	s.cache.Set(ctx, userID, limit, entries)
	return entries, nil
}

func buildHistoryEntry(rep Report, analysis ReportAnalysis) HistoryEntry {
	highlights := SplitLines(analysis.Actions)
	if len(highlights) > maxHighlights {
		highlights = highlights[:maxHighlights]
	}

	date := rep.UploadedAt
	if rep.CompletedAt != nil {
		date = *rep.CompletedAt
	}

	summary := analysis.Summary
	if summary == "" && rep.Summary != nil {
		summary = *rep.Summary
	}

	return HistoryEntry{
		ID:             rep.ID,
		Title:          rep.OriginalName,
		Summary:        summary,
		Date:           date.UTC().Format(time.RFC3339),
		Highlights:     highlights,
		AttentionCount: rep.AttentionCount,
	}
}

// Detail returns one report with its analysis; ErrNotFound covers both a
// missing report and a report that never produced an analysis.
func (s *Service) Detail(ctx context.Context, reportID string) (*DetailResponse, error) {
	rep, analysis, err := s.store.GetWithAnalysis(ctx, reportID)
	if err != nil {
		return nil, err
	}
	if rep == nil || analysis == nil {
		return nil, ErrNotFound
	}

	return &DetailResponse{
		ID:             rep.ID,
		OriginalName:   rep.OriginalName,
		Status:         rep.Status,
		Summary:        rep.Summary,
		AttentionCount: rep.AttentionCount,
		UploadedAt:     rep.UploadedAt,
		CompletedAt:    rep.CompletedAt,
		Analysis: AnalysisPayload{
			Summary:   analysis.Summary,
			Details:   analysis.Details,
			Actions:   analysis.Actions,
			Language:  analysis.Language,
			CreatedAt: analysis.CreatedAt,
		},
	}, nil
}
