package pdf

import (
	"context"
	"fmt"
	"io"
	"strconv"

	pdfapi "github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// Engine はPDFの読み込みとページ複製を行います。
type Engine interface {
	PageCount(ctx context.Context, src io.ReadSeeker) (int, error)
	// CollectPages は indices（0-based）のページをその順序で新しい文書へ複製し、w へ書き出します。
	CollectPages(ctx context.Context, src io.ReadSeeker, indices []int, w io.Writer) error
}

type pdfcpuEngine struct {
	conf *model.Configuration
}

// NewEngine は pdfcpu を用いる Engine を返します。
// 設定ディレクトリ（~/.config/pdfcpu）は作成しません。
func NewEngine() Engine {
	pdfapi.DisableConfigDir()
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return &pdfcpuEngine{conf: conf}
}

func (e *pdfcpuEngine) PageCount(ctx context.Context, src io.ReadSeeker) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	n, err := pdfapi.PageCount(src, e.conf)
	if err != nil {
		return 0, err
	}
	if n <= 0 {
		return 0, fmt.Errorf("document has no pages")
	}
	return n, nil
}

func (e *pdfcpuEngine) CollectPages(ctx context.Context, src io.ReadSeeker, indices []int, w io.Writer) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	selectedPages := make([]string, len(indices))
	for i, idx := range indices {
		selectedPages[i] = strconv.Itoa(idx + 1)
	}
	return pdfapi.Collect(src, w, selectedPages, e.conf)
}
