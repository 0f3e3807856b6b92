package report

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/carelytic/platform/pkg/common/logger"
	"github.com/carelytic/platform/pkg/provider"
)

func TestMain(m *testing.M) {
	logger.Init()
	m.Run()
}

type fakeStore struct {
	mu       sync.Mutex
	order    []string
	reports  map[string]*Report
	analyses map[string]*ReportAnalysis
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		reports:  make(map[string]*Report),
		analyses: make(map[string]*ReportAnalysis),
	}
}

func (f *fakeStore) CreateReport(ctx context.Context, rep *Report) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored := *rep
	f.reports[rep.ID] = &stored
	f.order = append(f.order, rep.ID)
	return nil
}

func (f *fakeStore) MarkFailed(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	rep, ok := f.reports[id]
	if !ok {
		return ErrNotFound
	}
	rep.Status = StatusFailed
	return nil
}

func (f *fakeStore) CompleteReport(ctx context.Context, rep *Report, analysis *ReportAnalysis) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	storedAnalysis := *analysis
	f.analyses[analysis.ReportID] = &storedAnalysis
	stored := *rep
	f.reports[rep.ID] = &stored
	return nil
}

func (f *fakeStore) GetWithAnalysis(ctx context.Context, id string) (*Report, *ReportAnalysis, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rep, ok := f.reports[id]
	if !ok {
		return nil, nil, ErrNotFound
	}
	repCopy := *rep
	analysis, ok := f.analyses[id]
	if !ok {
		return &repCopy, nil, nil
	}
	analysisCopy := *analysis
	return &repCopy, &analysisCopy, nil
}

func (f *fakeStore) ListWithAnalyses(ctx context.Context, userID string, limit int) ([]ReportWithAnalysis, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var pairs []ReportWithAnalysis
	for i := len(f.order) - 1; i >= 0 && len(pairs) < limit; i-- {
		rep := f.reports[f.order[i]]
		if rep.UserID != userID {
			continue
		}
		pair := ReportWithAnalysis{Report: *rep}
		if analysis, ok := f.analyses[rep.ID]; ok {
			analysisCopy := *analysis
			pair.Analysis = &analysisCopy
		}
		pairs = append(pairs, pair)
	}
	return pairs, nil
}

type fakeObjects struct {
	data map[string][]byte
}

func (f *fakeObjects) Get(ctx context.Context, bucket, key string) ([]byte, error) {
	return f.data[bucket+"/"+key], nil
}

type fakeProvider struct {
	output       string
	uploadErr    error
	interpretErr error
	deleted      chan string
}

func newFakeProvider(output string) *fakeProvider {
	return &fakeProvider{output: output, deleted: make(chan string, 4)}
}

func (f *fakeProvider) UploadFile(ctx context.Context, name, contentType string, data []byte) (string, error) {
	if f.uploadErr != nil {
		return "", f.uploadErr
	}
	return "file-123", nil
}

func (f *fakeProvider) Interpret(ctx context.Context, systemPrompt, userPrompt, fileID string) (provider.Result, error) {
	if f.interpretErr != nil {
		return provider.Result{}, f.interpretErr
	}
	return provider.Result{OutputText: f.output, Model: "test-model", OutputTokens: 42}, nil
}

func (f *fakeProvider) DeleteFile(ctx context.Context, fileID string) error {
	f.deleted <- fileID
	return nil
}

type fakeUsers struct {
	known map[string]bool
}

func (f *fakeUsers) Exists(ctx context.Context, id string) (bool, error) {
	return f.known[id], nil
}

const sampleOutput = `{"summary":"S","detailed_analysis":["a","b"],"next_steps":["x","y","z"]}`

func newTestService(store *fakeStore, objects *fakeObjects, prov *fakeProvider) *Service {
	users := &fakeUsers{known: map[string]bool{"u1": true}}
	return NewService(NewValidator("carelytic-reports"), store, objects, prov, users, nil, nil, time.Second)
}

func testRequest() AnalyzeRequest {
	return AnalyzeRequest{
		UserID:       "u1",
		Bucket:       "carelytic-reports",
		Key:          "2026-08-31/abc.pdf",
		OriginalName: "cbc.pdf",
		ContentType:  "application/pdf",
		Size:         120 * 1024,
		Language:     "en",
	}
}

func testObjects() *fakeObjects {
	return &fakeObjects{data: map[string][]byte{
		"carelytic-reports/2026-08-31/abc.pdf": []byte("%PDF-1.4 fake report"),
	}}
}

func TestAnalyzeEndToEnd(t *testing.T) {
	store := newFakeStore()
	prov := newFakeProvider(sampleOutput)
	svc := newTestService(store, testObjects(), prov)

	resp, err := svc.Analyze(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.ReportID == "" {
		t.Fatal("expected a report id")
	}
	if resp.Analysis.Summary != "S" || resp.Analysis.Language != "en" {
		t.Fatalf("unexpected analysis payload: %+v", resp.Analysis)
	}

	rep := store.reports[resp.ReportID]
	if rep.Status != StatusComplete {
		t.Fatalf("expected COMPLETE, got %s", rep.Status)
	}
	if rep.AttentionCount == nil || *rep.AttentionCount != 3 {
		t.Fatalf("expected attention count 3, got %v", rep.AttentionCount)
	}
	if rep.CompletedAt == nil {
		t.Fatal("expected completed_at to be set")
	}

	analysis := store.analyses[resp.ReportID]
	if analysis.Details != "a\nb" {
		t.Fatalf("expected details a\\nb, got %q", analysis.Details)
	}
	if analysis.Actions != "x\ny\nz" {
		t.Fatalf("expected actions x\\ny\\nz, got %q", analysis.Actions)
	}

	select {
	case fileID := <-prov.deleted:
		if fileID != "file-123" {
			t.Fatalf("expected provider file cleanup for file-123, got %s", fileID)
		}
	case <-time.After(time.Second):
		t.Fatal("expected provider file cleanup")
	}

	detail, err := svc.Detail(context.Background(), resp.ReportID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if detail.Status != StatusComplete || detail.Analysis.Summary != "S" {
		t.Fatalf("unexpected detail: %+v", detail)
	}
}

func TestAnalyzeStringShapedFields(t *testing.T) {
	store := newFakeStore()
	output := `{"summary":"S","detailed_analysis":"stable results","next_steps":"rest\ndrink water"}`
	svc := newTestService(store, testObjects(), newFakeProvider(output))

	resp, err := svc.Analyze(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rep := store.reports[resp.ReportID]
	if rep.AttentionCount == nil || *rep.AttentionCount != 2 {
		t.Fatalf("expected attention count 2, got %v", rep.AttentionCount)
	}
	analysis := store.analyses[resp.ReportID]
	if analysis.Details != "stable results" || analysis.Actions != "rest\ndrink water" {
		t.Fatalf("expected string fields unchanged, got %+v", analysis)
	}
}

func TestAnalyzeRejectsBeforeAnyRow(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, testObjects(), newFakeProvider(sampleOutput))

	req := testRequest()
	req.Bucket = "wrong-bucket"
	if _, err := svc.Analyze(context.Background(), req); !IsValidationError(err) {
		t.Fatalf("expected validation error, got %v", err)
	}

	req = testRequest()
	req.UserID = "ghost"
	if _, err := svc.Analyze(context.Background(), req); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}

	if len(store.reports) != 0 {
		t.Fatalf("expected no reports created, got %d", len(store.reports))
	}
}

func TestAnalyzeEmptyObjectMarksFailed(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, &fakeObjects{data: map[string][]byte{}}, newFakeProvider(sampleOutput))

	_, err := svc.Analyze(context.Background(), testRequest())
	if !errors.Is(err, ErrEmptyStoredObject) {
		t.Fatalf("expected ErrEmptyStoredObject, got %v", err)
	}
	assertSingleFailedReport(t, store)
}

func TestAnalyzeUnparsableResponseMarksFailed(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, testObjects(), newFakeProvider("sorry, not json"))

	_, err := svc.Analyze(context.Background(), testRequest())
	if !errors.Is(err, ErrUnparsableResponse) {
		t.Fatalf("expected ErrUnparsableResponse, got %v", err)
	}
	assertSingleFailedReport(t, store)
}

func TestAnalyzeMalformedResponseMarksFailed(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, testObjects(), newFakeProvider(`{"summary":"S","next_steps":["x"]}`))

	_, err := svc.Analyze(context.Background(), testRequest())
	if !errors.Is(err, ErrMalformedResponse) {
		t.Fatalf("expected ErrMalformedResponse, got %v", err)
	}
	assertSingleFailedReport(t, store)
}

func TestAnalyzeProviderFailureMarksFailed(t *testing.T) {
	store := newFakeStore()
	prov := newFakeProvider(sampleOutput)
	prov.interpretErr = errors.New("provider unavailable")
	svc := newTestService(store, testObjects(), prov)

	if _, err := svc.Analyze(context.Background(), testRequest()); err == nil {
		t.Fatal("expected error")
	}
	assertSingleFailedReport(t, store)
}

func TestAnalyzeEmptyOutputMarksFailed(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, testObjects(), newFakeProvider(""))

	_, err := svc.Analyze(context.Background(), testRequest())
	if !errors.Is(err, ErrNoOutputText) {
		t.Fatalf("expected ErrNoOutputText, got %v", err)
	}
	assertSingleFailedReport(t, store)
}

func assertSingleFailedReport(t *testing.T, store *fakeStore) {
	t.Helper()
	if len(store.reports) != 1 {
		t.Fatalf("expected one report, got %d", len(store.reports))
	}
	for _, rep := range store.reports {
		if rep.Status != StatusFailed {
			t.Fatalf("expected FAILED, got %s", rep.Status)
		}
		if rep.Summary != nil || rep.AttentionCount != nil || rep.CompletedAt != nil {
			t.Fatalf("expected failed report to leave analysis fields unset: %+v", rep)
		}
	}
	if len(store.analyses) != 0 {
		t.Fatalf("expected no analyses, got %d", len(store.analyses))
	}
}

func TestAnalyzeIsDeterministicAcrossRuns(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, testObjects(), newFakeProvider(sampleOutput))

	first, err := svc.Analyze(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := svc.Analyze(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first.ReportID == second.ReportID {
		t.Fatal("expected distinct report ids")
	}

	a, b := store.analyses[first.ReportID], store.analyses[second.ReportID]
	if a.Summary != b.Summary || a.Details != b.Details || a.Actions != b.Actions {
		t.Fatalf("expected identical normalized output, got %+v vs %+v", a, b)
	}
	if *store.reports[first.ReportID].AttentionCount != *store.reports[second.ReportID].AttentionCount {
		t.Fatal("expected identical attention counts")
	}
}

func TestHistoryDropsReportsWithoutAnalysis(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, &fakeObjects{data: map[string][]byte{}}, newFakeProvider(sampleOutput))

	// One failed ingestion, then one successful one.
	if _, err := svc.Analyze(context.Background(), testRequest()); err == nil {
		t.Fatal("expected failure for missing object")
	}

	okSvc := newTestService(store, testObjects(), newFakeProvider(sampleOutput))
	resp, err := okSvc.Analyze(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	entries, err := okSvc.History(context.Background(), "u1", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected one history entry, got %d", len(entries))
	}

	entry := entries[0]
	if entry.ID != resp.ReportID {
		t.Fatalf("expected entry for %s, got %s", resp.ReportID, entry.ID)
	}
	if entry.Title != "cbc.pdf" {
		t.Fatalf("expected title cbc.pdf, got %s", entry.Title)
	}
	if len(entry.Highlights) != 3 {
		t.Fatalf("expected 3 highlights, got %v", entry.Highlights)
	}
	if entry.AttentionCount == nil || *entry.AttentionCount != 3 {
		t.Fatalf("expected attention count 3, got %v", entry.AttentionCount)
	}
}

func TestHistoryCapsHighlights(t *testing.T) {
	output := `{"summary":"S","detailed_analysis":["a"],"next_steps":["one","two","three","four","five"]}`
	store := newFakeStore()
	svc := newTestService(store, testObjects(), newFakeProvider(output))

	if _, err := svc.Analyze(context.Background(), testRequest()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	entries, err := svc.History(context.Background(), "u1", 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries[0].Highlights) != 3 {
		t.Fatalf("expected highlights capped at 3, got %v", entries[0].Highlights)
	}
	if *entries[0].AttentionCount != 5 {
		t.Fatalf("expected attention count 5, got %d", *entries[0].AttentionCount)
	}
}

func TestDetailNotFound(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, &fakeObjects{data: map[string][]byte{}}, newFakeProvider(sampleOutput))

	if _, err := svc.Detail(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	// A failed report exists but has no analysis; the detail read treats it
	// as not found.
	if _, err := svc.Analyze(context.Background(), testRequest()); err == nil {
		t.Fatal("expected failure for missing object")
	}
	for id := range store.reports {
		if _, err := svc.Detail(context.Background(), id); !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound for analysis-less report, got %v", err)
		}
	}
}
