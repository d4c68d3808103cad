package pdf

import (
	"context"
	"fmt"

	"github.com/yourusername/pdf-extractor/internal/storage"
)

// RunJob はジョブIDに対応する抽出処理を実行します。
// 成功時はマニフェストを削除します（原本と成果物はストアの期限まで残ります）。
func (s *Service) RunJob(ctx context.Context, jobID string, reporter ProgressReporter) (*Result, error) {
	if jobID == "" {
		return nil, fmt.Errorf("jobID is required")
	}
	manifest, err := loadManifest(ctx, s.store, jobID)
	if err != nil {
		return nil, err
	}
	if manifest.Operation != OperationExtract {
		_ = s.DiscardJob(ctx, jobID)
		return nil, fmt.Errorf("unsupported operation: %s", manifest.Operation)
	}
	if len(manifest.Files) == 0 {
		_ = s.DiscardJob(ctx, jobID)
		return nil, fmt.Errorf("manifest has no input files")
	}

	reportProgress(reporter, StageLoad, 0)
	input := manifest.Files[0]
	data, _, err := storage.ReadAll(ctx, s.store, input.StoredName)
	if err != nil {
		_ = s.DiscardJob(ctx, jobID)
		return nil, fmt.Errorf("ジョブ入力の読み込みに失敗しました: %w", err)
	}

	selection, err := ValidateSelection(manifest.Pages, input.Pages)
	if err != nil {
		_ = s.DiscardJob(ctx, jobID)
		return nil, err
	}

	state := &extractState{
		jobID: jobID,
		file: storedFile{
			name:         input.StoredName,
			originalName: input.OriginalName,
			size:         input.Size,
			pages:        input.Pages,
			data:         data,
		},
		selection: selection,
	}

	result, runErr := s.executeExtract(ctx, state, reporter)
	if runErr != nil {
		if cleanupErr := s.DiscardJob(ctx, jobID); cleanupErr != nil {
			runErr = fmt.Errorf("%w (ジョブの削除にも失敗しました: %v)", runErr, cleanupErr)
		}
		return nil, runErr
	}

	s.discard(ctx, storage.ManifestName(jobID))
	return result, nil
}

// DiscardJob はジョブのマニフェストと入力ファイルを削除します。
func (s *Service) DiscardJob(ctx context.Context, jobID string) error {
	if jobID == "" {
		return fmt.Errorf("jobID is required")
	}
	manifest, err := loadManifest(ctx, s.store, jobID)
	if err == nil {
		for _, f := range manifest.Files {
			if err := s.store.Delete(ctx, f.StoredName); err != nil {
				return err
			}
		}
	}
	return s.store.Delete(ctx, storage.ManifestName(jobID))
}
