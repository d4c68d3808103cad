package selector

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/go-pdf/fpdf"
	"github.com/stretchr/testify/require"
)

func buildPDF(t *testing.T, pages int) []byte {
	t.Helper()
	doc := fpdf.New("P", "pt", "A4", "")
	doc.SetFont("Helvetica", "", 14)
	for p := 1; p <= pages; p++ {
		doc.AddPageFormat("P", fpdf.SizeType{Wd: 200 + 10*float64(p-1), Ht: 300})
		doc.Text(20, 40, fmt.Sprintf("Page %d", p))
	}
	var buf bytes.Buffer
	require.NoError(t, doc.Output(&buf))
	return buf.Bytes()
}

type fixedCounter struct {
	pages int
	err   error
}

func (c fixedCounter) PageCount(ctx context.Context, src io.ReadSeeker) (int, error) {
	return c.pages, c.err
}

var errNotPDF = errors.New("not a pdf")

type recordingNotifier struct {
	successes []string
	failures  []string
}

func (n *recordingNotifier) Success(msg string) { n.successes = append(n.successes, msg) }
func (n *recordingNotifier) Failure(msg string) { n.failures = append(n.failures, msg) }
