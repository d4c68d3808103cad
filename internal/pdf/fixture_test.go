package pdf

import (
	"bytes"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/go-pdf/fpdf"
	pdfapi "github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/pdf-extractor/internal/config"
	"github.com/yourusername/pdf-extractor/internal/storage"
)

const fixtureHeight = 300.0

// fixtureWidth はページ番号（1-based）ごとに異なる幅を返します。
func fixtureWidth(page int) float64 {
	return 200 + 10*float64(page-1)
}

// buildPDF は各ページの幅が異なる pages ページのPDFを生成します。
func buildPDF(t *testing.T, pages int) []byte {
	t.Helper()
	doc := fpdf.New("P", "pt", "A4", "")
	doc.SetFont("Helvetica", "", 14)
	for p := 1; p <= pages; p++ {
		doc.AddPageFormat("P", fpdf.SizeType{Wd: fixtureWidth(p), Ht: fixtureHeight})
		doc.Text(20, 40, fmt.Sprintf("Page %d", p))
	}
	var buf bytes.Buffer
	require.NoError(t, doc.Output(&buf))
	return buf.Bytes()
}

// pageWidths は PDF の各ページ幅を返します。
func pageWidths(t *testing.T, data []byte) []float64 {
	t.Helper()
	dims, err := pdfapi.PageDims(bytes.NewReader(data), nil)
	require.NoError(t, err)
	widths := make([]float64, len(dims))
	for i, d := range dims {
		widths[i] = d.Width
	}
	return widths
}

type uploadPart struct {
	field       string
	filename    string
	contentType string
	data        []byte
}

func pdfPart(data []byte) uploadPart {
	return uploadPart{field: "pdfFile", filename: "input.pdf", contentType: "application/pdf", data: data}
}

func newUploadRequest(t *testing.T, target string, part *uploadPart, fields map[string]string) *http.Request {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	if part != nil {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, part.field, part.filename))
		h.Set("Content-Type", part.contentType)
		w, err := writer.CreatePart(h)
		require.NoError(t, err)
		_, err = w.Write(part.data)
		require.NoError(t, err)
	}
	for k, v := range fields {
		require.NoError(t, writer.WriteField(k, v))
	}
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, target, body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func testConfig() *config.Config {
	return &config.Config{
		MaxFileSize: 10 << 20,
		MaxPages:    50,
	}
}

func newTestService(t *testing.T, cfg *config.Config) (*Service, *storage.Local) {
	t.Helper()
	store, err := storage.NewLocal(t.TempDir())
	require.NoError(t, err)
	svc, err := NewService(cfg, store, zerolog.Nop())
	require.NoError(t, err)
	return svc, store
}

func newTestRouter(svc *Service, store storage.Store, opts HandlerOptions) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/api/upload", UploadHandler(svc, opts))
	router.POST("/api/inspect", InspectHandler(svc))
	router.GET("/api/:filename", FileHandler(store))
	return router
}
