package selector

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// DefaultMaxSize はクライアント側で受け付けるファイルサイズの上限です。
const DefaultMaxSize int64 = 2 << 20

// ErrUnsupportedFile は読み込んだファイルがPDFとして解析できないことを表します。
var ErrUnsupportedFile = errors.New("unsupported file")

// SizeError はファイルが上限を超えたことを表します。
type SizeError struct {
	Limit int64
}

func (e *SizeError) Error() string {
	return fmt.Sprintf("File size cannot exceed %dMB", e.Limit>>20)
}

// Is は errors.Is(err, ErrUnsupportedFile) を満たします。
func (e *SizeError) Is(target error) bool { return target == ErrUnsupportedFile }

// PageCounter はPDFのページ数を数えます。
type PageCounter interface {
	PageCount(ctx context.Context, src io.ReadSeeker) (int, error)
}

// Loader はファイルを読み込み、ページ数を取得して Document を作ります。
type Loader struct {
	MaxSize int64
	counter PageCounter
}

// NewLoader は既定の上限で Loader を作成します。
func NewLoader(counter PageCounter) *Loader {
	return &Loader{MaxSize: DefaultMaxSize, counter: counter}
}

// Load は r を最後まで読み込みます。
func (l *Loader) Load(ctx context.Context, name string, r io.Reader) (Document, error) {
	var src io.Reader = r
	if l.MaxSize > 0 {
		src = io.LimitReader(r, l.MaxSize+1)
	}
	data, err := io.ReadAll(src)
	if err != nil {
		return Document{}, fmt.Errorf("read %s: %w", name, err)
	}
	if l.MaxSize > 0 && int64(len(data)) > l.MaxSize {
		return Document{}, &SizeError{Limit: l.MaxSize}
	}

	pages, err := l.counter.PageCount(ctx, bytes.NewReader(data))
	if err != nil {
		return Document{}, fmt.Errorf("%w: %s: %v", ErrUnsupportedFile, name, err)
	}
	return Document{Name: name, Data: data, PageCount: pages}, nil
}

// LoadFile はパスからファイルを読み込みます。
func (l *Loader) LoadFile(ctx context.Context, path string) (Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return Document{}, err
	}
	defer f.Close()

	if info, err := f.Stat(); err == nil && l.MaxSize > 0 && info.Size() > l.MaxSize {
		return Document{}, &SizeError{Limit: l.MaxSize}
	}
	return l.Load(ctx, filepath.Base(path), f)
}
