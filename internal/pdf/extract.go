package pdf

import (
	"bytes"
	"context"
	"errors"
	"mime/multipart"

	"github.com/yourusername/pdf-extractor/internal/metrics"
	"github.com/yourusername/pdf-extractor/internal/storage"
)

type extractState struct {
	jobID     string
	file      storedFile
	selection Selection
}

// PrepareExtractJob は原本とマニフェストをストアへ保存し、RunJob で実行できる状態にします。
func (s *Service) PrepareExtractJob(ctx context.Context, file *multipart.FileHeader, pages []int) (*JobManifest, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	state, err := s.prepareExtract(ctx, file, pages)
	if err != nil {
		return nil, err
	}

	manifest := &JobManifest{
		JobID:     state.jobID,
		Operation: OperationExtract,
		Files:     []JobFile{toJobFile(state.file)},
		Pages:     state.selection.Pages(),
		CreatedAt: s.now().UTC(),
	}
	if err := writeManifest(ctx, s.store, manifest); err != nil {
		s.discard(ctx, state.file.name)
		return nil, err
	}
	return manifest, nil
}

func (s *Service) prepareExtract(ctx context.Context, file *multipart.FileHeader, pages []int) (*extractState, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	stored, err := s.storeMultipartFile(ctx, file)
	if err != nil {
		s.observeRejected(err)
		return nil, err
	}

	selection, err := ValidateSelection(pages, stored.pages)
	if err != nil {
		s.discard(ctx, stored.name)
		s.observeRejected(err)
		return nil, err
	}

	return &extractState{
		jobID:     storage.NewJobID(),
		file:      stored,
		selection: selection,
	}, nil
}

func (s *Service) executeExtract(ctx context.Context, state *extractState, progress ProgressReporter) (*Result, error) {
	start := s.now()
	indices := state.selection.Indices()

	reportProgress(progress, StageProcess, 20)
	var out bytes.Buffer
	if err := s.engine.CollectPages(ctx, bytes.NewReader(state.file.data), indices, &out); err != nil {
		metrics.ObserveExtraction("error", 0, 0)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, newError(CodeUnsupportedPDF, "Failed to copy the selected pages", err)
	}

	reportProgress(progress, StageWrite, 80)
	outputName := s.namer.OutputName()
	info, err := s.store.Save(ctx, outputName, &out)
	if err != nil {
		metrics.ObserveExtraction("error", 0, 0)
		return nil, err
	}

	elapsed := s.now().Sub(start)
	metrics.ObserveExtraction("ok", len(indices), elapsed)
	s.logger.Info().
		Str("job_id", state.jobID).
		Str("source", state.file.name).
		Str("output", outputName).
		Ints("pages", state.selection.Pages()).
		Dur("elapsed", elapsed).
		Msg("pages extracted")

	reportProgress(progress, StageCompleted, 100)

	return &Result{
		JobID:      state.jobID,
		Operation:  OperationExtract,
		OutputName: outputName,
		OutputSize: info.Size,
		Pages:      state.selection.Len(),
		Meta: &ExtractMeta{
			Source:   state.file.meta(),
			Selected: state.selection.Pages(),
		},
	}, nil
}

func (s *Service) observeRejected(err error) {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		metrics.ObserveExtraction("rejected", 0, 0)
	}
}
