package report

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

var ErrNotFound = errors.New("report not found")

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) AutoMigrate() error {
	return r.db.AutoMigrate(&Report{}, &ReportAnalysis{})
}

func (r *Repository) CreateReport(ctx context.Context, rep *Report) error {
	if rep.UploadedAt.IsZero() {
		rep.UploadedAt = time.Now().UTC()
	}
	return r.db.WithContext(ctx).Create(rep).Error
}

// MarkFailed is the best-effort terminal transition on the error path. It
// leaves summary, attention count, and completed_at untouched.
func (r *Repository) MarkFailed(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Model(&Report{}).
		Where("id = ?", id).
		Update("status", StatusFailed).Error
}

// CompleteReport inserts the analysis and flips the report to COMPLETE in
// one transaction, so a crash cannot leave an orphaned analysis behind a
// report stuck in PROCESSING.
func (r *Repository) CompleteReport(ctx context.Context, rep *Report, analysis *ReportAnalysis) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if analysis.CreatedAt.IsZero() {
			analysis.CreatedAt = time.Now().UTC()
		}
		if err := tx.Create(analysis).Error; err != nil {
			return err
		}

		return tx.Model(&Report{}).
			Where("id = ?", rep.ID).
			Updates(map[string]interface{}{
				"status":          StatusComplete,
				"summary":         rep.Summary,
				"attention_count": rep.AttentionCount,
				"completed_at":    rep.CompletedAt,
			}).Error
	})
}

func (r *Repository) GetWithAnalysis(ctx context.Context, id string) (*Report, *ReportAnalysis, error) {
	var rep Report
	err := r.db.WithContext(ctx).First(&rep, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, ErrNotFound
	}
	if err != nil {
		return nil, nil, err
	}

	var analysis ReportAnalysis
	err = r.db.WithContext(ctx).First(&analysis, "report_id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &rep, nil, nil
	}
	if err != nil {
		return nil, nil, err
	}
	return &rep, &analysis, nil
}

func (r *Repository) ListWithAnalyses(ctx context.Context, userID string, limit int) ([]ReportWithAnalysis, error) {
	var reports []Report
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("uploaded_at DESC").
		Limit(limit).
		Find(&reports).Error
	if err != nil {
		return nil, err
	}
	if len(reports) == 0 {
		return nil, nil
	}

	ids := make([]string, 0, len(reports))
	for _, rep := range reports {
		ids = append(ids, rep.ID)
	}

	var analyses []ReportAnalysis
	if err := r.db.WithContext(ctx).Where("report_id IN ?", ids).Find(&analyses).Error; err != nil {
		return nil, err
	}

	byReport := make(map[string]*ReportAnalysis, len(analyses))
	for i := range analyses {
		byReport[analyses[i].ReportID] = &analyses[i]
	}

	pairs := make([]ReportWithAnalysis, 0, len(reports))
	for _, rep := range reports {
		pairs = append(pairs, ReportWithAnalysis{Report: rep, Analysis: byReport[rep.ID]})
	}
	return pairs, nil
}
