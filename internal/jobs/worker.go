package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"

	"github.com/yourusername/pdf-extractor/internal/pdf"
)

func (m *Manager) handlePDFTask(ctx context.Context, task *asynq.Task) error {
	var payload TaskPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("invalid payload: %v: %w", err, asynq.SkipRetry)
	}
	if payload.JobID == "" {
		return fmt.Errorf("missing jobId in payload: %w", asynq.SkipRetry)
	}

	if err := m.store.Upsert(ctx, &Record{
		JobID:     payload.JobID,
		Operation: string(payload.Operation),
		Status:    StatusRunning,
		Progress: ProgressInfo{
			Percent: 0,
			Stage:   pdf.StageLoad,
		},
	}); err != nil {
		return err
	}

	result, err := m.runner.RunJob(ctx, payload.JobID, m.progressReporter(ctx, payload.JobID))
	if err != nil {
		m.logger.Warn().Err(err).Str("job_id", payload.JobID).Msg("job failed")
		return m.failJobWithError(ctx, payload.JobID, err)
	}
	return m.finishJob(ctx, payload.JobID, result)
}

func (m *Manager) progressReporter(ctx context.Context, jobID string) pdf.ProgressReporter {
	return func(stage string, percent int) {
		if err := m.store.UpdateProgress(ctx, jobID, ProgressInfo{
			Stage:   stage,
			Percent: percent,
		}); err != nil {
			m.logger.Warn().Err(err).Str("job_id", jobID).Msg("failed to update progress")
		}
	}
}

func (m *Manager) finishJob(ctx context.Context, jobID string, result *pdf.Result) error {
	if result == nil {
		return fmt.Errorf("result is nil")
	}
	return m.store.MarkDone(ctx, jobID, m.buildDownloadURL(result), result.Meta)
}

func (m *Manager) failJobWithError(ctx context.Context, jobID string, err error) error {
	info := errorInfoFrom(err)
	if markErr := m.store.MarkFailed(ctx, jobID, info); markErr != nil {
		return markErr
	}
	// 入力は RunJob が破棄済みなので再試行しない
	return fmt.Errorf("%s: %w", info.Code, asynq.SkipRetry)
}

func errorInfoFrom(err error) *ErrorInfo {
	var apiErr *pdf.Error
	if errors.As(err, &apiErr) {
		return &ErrorInfo{Code: apiErr.Code, Message: apiErr.Message}
	}
	return &ErrorInfo{Code: pdf.CodeInternal, Message: err.Error()}
}
