package selector

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
)

// 通知メッセージ
const (
	MsgDownloaded = "Modified file has been downloaded"
	MsgSelectFile = "Please select a PDF file."
)

// Submitter は文書と選択ページを送信して生成PDFを受け取ります。
type Submitter interface {
	Extract(ctx context.Context, doc Document, pages []int) (*Download, error)
}

// Saver は受け取ったPDFを保存し、保存先を返します。
type Saver interface {
	Save(dl *Download) (string, error)
}

// Notifier は利用者への通知を行います。
type Notifier interface {
	Success(msg string)
	Failure(msg string)
}

// Session は State を保持し、読み込み・選択・送信を仲介します。
type Session struct {
	state    State
	loader   *Loader
	client   Submitter
	saver    Saver
	notifier Notifier
	logger   zerolog.Logger
}

// NewSession は Session を作成します。
func NewSession(loader *Loader, client Submitter, saver Saver, notifier Notifier, logger zerolog.Logger) *Session {
	return &Session{
		loader:   loader,
		client:   client,
		saver:    saver,
		notifier: notifier,
		logger:   logger,
	}
}

// State は現在の状態を返します。
func (s *Session) State() State { return s.state }

// LoadFile はファイルを読み込みます。失敗した場合は状態をすべてクリアします。
func (s *Session) LoadFile(ctx context.Context, path string) error {
	doc, err := s.loader.LoadFile(ctx, path)
	if err != nil {
		s.state = s.state.Reset()
		s.notifier.Failure(err.Error())
		return err
	}
	s.state = s.state.Load(doc)
	s.logger.Debug().Str("file", doc.Name).Int("pages", doc.PageCount).Msg("file loaded")
	return nil
}

// Toggle はページの選択を切り替えます。
func (s *Session) Toggle(page int, included bool) error {
	next, err := s.state.Toggle(page, included)
	if err != nil {
		return err
	}
	s.state = next
	return nil
}

// Submit は選択ページを送信し、結果を保存します。成否にかかわらず状態はクリアされます。
func (s *Session) Submit(ctx context.Context) (string, error) {
	doc, ok := s.state.Document()
	if !ok {
		s.notifier.Failure(MsgSelectFile)
		return "", ErrNoFile
	}
	pages := s.state.Selection()
	if len(pages) == 0 {
		return "", ErrEmptySelection
	}
	defer func() { s.state = s.state.Reset() }()

	s.logger.Debug().Str("file", doc.Name).Ints("pages", pages).Msg("submitting")
	dl, err := s.client.Extract(ctx, doc, pages)
	if err != nil {
		s.notifier.Failure("Error uploading the file: " + err.Error())
		return "", err
	}
	path, err := s.saver.Save(dl)
	if err != nil {
		s.notifier.Failure("Error uploading the file: " + err.Error())
		return "", err
	}
	s.notifier.Success(MsgDownloaded)
	return path, nil
}

// FileSaver は Path（指定時）または Dir 配下のサーバー指定ファイル名に保存します。
type FileSaver struct {
	Path string
	Dir  string
}

// Save implements Saver.
func (f FileSaver) Save(dl *Download) (string, error) {
	path := f.Path
	if path == "" {
		name := filepath.Base(dl.Filename)
		if name == "." || name == "/" || name == "" {
			name = defaultDownloadName
		}
		path = filepath.Join(f.Dir, name)
	}
	if err := os.WriteFile(path, dl.Data, 0o644); err != nil {
		return "", fmt.Errorf("save %s: %w", path, err)
	}
	return path, nil
}
