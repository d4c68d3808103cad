// Package pdf はアップロードされたPDFから選択ページを抽出する機能を提供します。
package pdf

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog"

	"github.com/yourusername/pdf-extractor/internal/config"
	"github.com/yourusername/pdf-extractor/internal/storage"
)

const pdfContentType = "application/pdf"

// Service はページ抽出ジョブの準備と実行を行います。
type Service struct {
	cfg    *config.Config
	store  storage.Store
	namer  *storage.Namer
	engine Engine
	logger zerolog.Logger
	now    func() time.Time
}

// NewService は Service を作成します。
func NewService(cfg *config.Config, store storage.Store, logger zerolog.Logger) (*Service, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	if store == nil {
		return nil, errors.New("store is nil")
	}
	return &Service{
		cfg:    cfg,
		store:  store,
		namer:  storage.NewNamer(),
		engine: NewEngine(),
		logger: logger,
		now:    time.Now,
	}, nil
}

// SourceFileMeta はアップロード原本のメタデータです。
type SourceFileMeta struct {
	Name  string `json:"name"`
	Size  int64  `json:"size"`
	Pages int    `json:"pages"`
}

type storedFile struct {
	name         string
	originalName string
	size         int64
	pages        int
	data         []byte
}

func (f storedFile) meta() SourceFileMeta {
	return SourceFileMeta{Name: f.originalName, Size: f.size, Pages: f.pages}
}

// ValidateDeclaredType はマルチパートで宣言されたContent-TypeがPDFかどうかを確認します。
// ファイル本体は読み込みません。
func ValidateDeclaredType(file *multipart.FileHeader) error {
	if file == nil {
		return newError(CodeNoFile, "No file uploaded", nil)
	}
	mediaType, _, err := mime.ParseMediaType(file.Header.Get("Content-Type"))
	if err != nil || mediaType != pdfContentType {
		return newError(CodeInvalidFileType, "Only PDF files are allowed!", err)
	}
	return nil
}

// readMultipartFile はアップロードを検証し、内容とページ数を読み取ります。
func (s *Service) readMultipartFile(ctx context.Context, file *multipart.FileHeader) (storedFile, error) {
	if err := ValidateDeclaredType(file); err != nil {
		return storedFile{}, err
	}
	if s.cfg.MaxFileSize > 0 && file.Size > s.cfg.MaxFileSize {
		return storedFile{}, newError(CodeLimitExceeded,
			fmt.Sprintf("File size exceeds the limit of %d bytes", s.cfg.MaxFileSize), nil)
	}

	src, err := file.Open()
	if err != nil {
		return storedFile{}, fmt.Errorf("アップロードファイルのオープンに失敗しました: %w", err)
	}
	defer src.Close()

	var r io.Reader = src
	if s.cfg.MaxFileSize > 0 {
		r = io.LimitReader(src, s.cfg.MaxFileSize+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return storedFile{}, fmt.Errorf("アップロードファイルの読み込みに失敗しました: %w", err)
	}
	if s.cfg.MaxFileSize > 0 && int64(len(data)) > s.cfg.MaxFileSize {
		return storedFile{}, newError(CodeLimitExceeded,
			fmt.Sprintf("File size exceeds the limit of %d bytes", s.cfg.MaxFileSize), nil)
	}
	if err := ctx.Err(); err != nil {
		return storedFile{}, err
	}

	if !mimetype.Detect(data).Is(pdfContentType) {
		return storedFile{}, newError(CodeUnsupportedPDF, "The uploaded file is not a readable PDF", nil)
	}

	pages, err := s.engine.PageCount(ctx, bytes.NewReader(data))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return storedFile{}, ctxErr
		}
		return storedFile{}, newError(CodeUnsupportedPDF, "The uploaded file is not a readable PDF", err)
	}
	if s.cfg.MaxPages > 0 && pages > s.cfg.MaxPages {
		return storedFile{}, newError(CodeLimitExceeded,
			fmt.Sprintf("Document has %d pages, the limit is %d", pages, s.cfg.MaxPages), nil)
	}

	return storedFile{
		originalName: file.Filename,
		size:         int64(len(data)),
		pages:        pages,
		data:         data,
	}, nil
}

// storeMultipartFile はアップロードを検証したうえで原本をストアへ保存します。
func (s *Service) storeMultipartFile(ctx context.Context, file *multipart.FileHeader) (storedFile, error) {
	stored, err := s.readMultipartFile(ctx, file)
	if err != nil {
		return storedFile{}, err
	}

	stored.name = s.namer.UploadName(file.Filename)
	if _, err := s.store.Save(ctx, stored.name, bytes.NewReader(stored.data)); err != nil {
		return storedFile{}, fmt.Errorf("アップロードファイルの保存に失敗しました: %w", err)
	}
	return stored, nil
}

// OpenOutput は生成済みPDFをストアから開きます。
func (s *Service) OpenOutput(ctx context.Context, name string) (io.ReadCloser, storage.ObjectInfo, error) {
	return s.store.Open(ctx, name)
}

func (s *Service) discard(ctx context.Context, names ...string) {
	for _, name := range names {
		if name == "" {
			continue
		}
		if err := s.store.Delete(ctx, name); err != nil {
			s.logger.Warn().Err(err).Str("file", name).Msg("failed to delete stored file")
		}
	}
}
