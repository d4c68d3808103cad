package pdf

import (
	"context"
	"mime/multipart"
)

// InspectResult はアップロードされたPDFの基本メタデータを表します。
type InspectResult struct {
	Source SourceFileMeta `json:"source"`
}

// InspectMultipart は単一PDFファイルを受け取り、ページ数などのメタデータを返します。
// ファイルはストアへ保存しません。
func (s *Service) InspectMultipart(ctx context.Context, file *multipart.FileHeader) (*InspectResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	stored, err := s.readMultipartFile(ctx, file)
	if err != nil {
		return nil, err
	}

	return &InspectResult{Source: stored.meta()}, nil
}
