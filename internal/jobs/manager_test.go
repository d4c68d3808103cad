package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/pdf-extractor/internal/config"
	"github.com/yourusername/pdf-extractor/internal/pdf"
)

type memoryStore struct {
	mu      sync.Mutex
	records map[string]*Record
}

func newMemoryStore() *memoryStore {
	return &memoryStore{records: map[string]*Record{}}
}

func (s *memoryStore) Get(ctx context.Context, jobID string) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.records[jobID]
	if !ok {
		return nil, nil
	}
	cp := *r
	return &cp, nil
}

func (s *memoryStore) Upsert(ctx context.Context, record *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *record
	s.records[record.JobID] = &cp
	return nil
}

func (s *memoryStore) update(jobID string, mutate func(*Record)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.records[jobID]
	if !ok {
		return ErrJobNotFound
	}
	mutate(r)
	return nil
}

func (s *memoryStore) UpdateProgress(ctx context.Context, jobID string, progress ProgressInfo) error {
	return s.update(jobID, func(r *Record) { r.Progress = progress })
}

func (s *memoryStore) MarkDone(ctx context.Context, jobID string, downloadURL string, meta any) error {
	return s.update(jobID, func(r *Record) {
		r.Status = StatusSucceeded
		r.DownloadURL = downloadURL
		r.Meta = meta
	})
}

func (s *memoryStore) MarkFailed(ctx context.Context, jobID string, errInfo *ErrorInfo) error {
	return s.update(jobID, func(r *Record) {
		r.Status = StatusFailed
		r.Error = errInfo
	})
}

type stubRunner struct {
	result *pdf.Result
	err    error
}

func (r *stubRunner) RunJob(ctx context.Context, jobID string, reporter pdf.ProgressReporter) (*pdf.Result, error) {
	if reporter != nil {
		reporter(pdf.StageProcess, 20)
		reporter(pdf.StageWrite, 80)
	}
	return r.result, r.err
}

func (r *stubRunner) DiscardJob(ctx context.Context, jobID string) error { return nil }

func newTestManager(cfg *config.Config, runner pdf.JobRunner, store RecordStore) *Manager {
	return &Manager{cfg: cfg, store: store, runner: runner, logger: zerolog.Nop()}
}

func task(t *testing.T, payload TaskPayload) *asynq.Task {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	return asynq.NewTask(taskTypePDF, body)
}

func TestHandlePDFTaskSuccess(t *testing.T) {
	store := newMemoryStore()
	runner := &stubRunner{result: &pdf.Result{
		JobID:      "job-1",
		OutputName: "modified_1-abc.pdf",
		Pages:      2,
		Meta:       &pdf.ExtractMeta{Selected: []int{3, 1}},
	}}
	m := newTestManager(&config.Config{}, runner, store)

	require.NoError(t, m.handlePDFTask(context.Background(), task(t, TaskPayload{JobID: "job-1", Operation: pdf.OperationExtract})))

	record, err := store.Get(context.Background(), "job-1")
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Equal(t, StatusSucceeded, record.Status)
	assert.Equal(t, "/api/modified_1-abc.pdf", record.DownloadURL)
	assert.Equal(t, string(pdf.OperationExtract), record.Operation)
}

func TestHandlePDFTaskFailureRecordsCode(t *testing.T) {
	store := newMemoryStore()
	runner := &stubRunner{err: &pdf.Error{Code: pdf.CodeUnsupportedPDF, Message: "Failed to copy the selected pages"}}
	m := newTestManager(&config.Config{}, runner, store)

	err := m.handlePDFTask(context.Background(), task(t, TaskPayload{JobID: "job-2", Operation: pdf.OperationExtract}))
	require.Error(t, err)
	assert.True(t, errors.Is(err, asynq.SkipRetry))

	record, err := store.Get(context.Background(), "job-2")
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, record.Status)
	require.NotNil(t, record.Error)
	assert.Equal(t, pdf.CodeUnsupportedPDF, record.Error.Code)
}

func TestHandlePDFTaskRejectsBadPayload(t *testing.T) {
	m := newTestManager(&config.Config{}, &stubRunner{}, newMemoryStore())

	err := m.handlePDFTask(context.Background(), asynq.NewTask(taskTypePDF, []byte("{")))
	assert.True(t, errors.Is(err, asynq.SkipRetry))

	err = m.handlePDFTask(context.Background(), task(t, TaskPayload{}))
	assert.True(t, errors.Is(err, asynq.SkipRetry))
}

func TestBuildDownloadURL(t *testing.T) {
	result := &pdf.Result{JobID: "job-9", OutputName: "modified_5-xyz.pdf"}

	m := newTestManager(&config.Config{}, &stubRunner{}, newMemoryStore())
	assert.Equal(t, "/api/modified_5-xyz.pdf", m.buildDownloadURL(result))

	m.cfg.JobResultBaseURL = "https://files.example.com/results/"
	assert.Equal(t, "https://files.example.com/results/job-9/modified_5-xyz.pdf", m.buildDownloadURL(result))
}

func TestErrorInfoFrom(t *testing.T) {
	info := errorInfoFrom(errors.New("disk full"))
	assert.Equal(t, pdf.CodeInternal, info.Code)
	assert.Equal(t, "disk full", info.Message)
}

func TestStatusTerminal(t *testing.T) {
	assert.False(t, StatusQueued.Terminal())
	assert.False(t, StatusRunning.Terminal())
	assert.True(t, StatusSucceeded.Terminal())
	assert.True(t, StatusFailed.Terminal())
}

func TestNewManagerValidatesArguments(t *testing.T) {
	_, err := NewManager(nil, &stubRunner{}, newMemoryStore(), zerolog.Nop())
	assert.Error(t, err)
	_, err = NewManager(&config.Config{QueueRedisURL: "redis://localhost:6379/0"}, nil, newMemoryStore(), zerolog.Nop())
	assert.Error(t, err)
	_, err = NewManager(&config.Config{QueueRedisURL: "::bad"}, &stubRunner{}, newMemoryStore(), zerolog.Nop())
	assert.Error(t, err)
}
