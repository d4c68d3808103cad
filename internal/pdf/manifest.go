package pdf

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/yourusername/pdf-extractor/internal/storage"
)

// JobManifest はジョブに必要な情報を保持します。ストアに `job_<jobId>.json` として保存されます。
type JobManifest struct {
	JobID     string        `json:"jobId"`
	Operation OperationType `json:"operation"`
	Files     []JobFile     `json:"files"`
	Pages     []int         `json:"pages"`
	CreatedAt time.Time     `json:"createdAt"`
}

// JobFile はジョブ入力ファイルのメタデータを表します。
type JobFile struct {
	StoredName   string `json:"storedName"`
	OriginalName string `json:"originalName"`
	Size         int64  `json:"size"`
	Pages        int    `json:"pages"`
}

func toJobFile(sf storedFile) JobFile {
	return JobFile{
		StoredName:   sf.name,
		OriginalName: sf.originalName,
		Size:         sf.size,
		Pages:        sf.pages,
	}
}

func writeManifest(ctx context.Context, store storage.Store, manifest *JobManifest) error {
	if manifest == nil {
		return fmt.Errorf("manifest is nil")
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	if err := enc.Encode(manifest); err != nil {
		return err
	}
	if _, err := store.Save(ctx, storage.ManifestName(manifest.JobID), &buf); err != nil {
		return fmt.Errorf("failed to save manifest: %w", err)
	}
	return nil
}

func loadManifest(ctx context.Context, store storage.Store, jobID string) (*JobManifest, error) {
	data, _, err := storage.ReadAll(ctx, store, storage.ManifestName(jobID))
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	var manifest JobManifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}
	return &manifest, nil
}
