package selector

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/pdf-extractor/internal/config"
	"github.com/yourusername/pdf-extractor/internal/pdf"
	"github.com/yourusername/pdf-extractor/internal/storage"
)

func TestClientSendsFileAndRepeatedPages(t *testing.T) {
	var gotPages []string
	var gotType string
	var gotData []byte

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/upload", r.URL.Path)
		gotPages = r.URL.Query()["selectedPages"]

		file, header, err := r.FormFile("pdfFile")
		if !assert.NoError(t, err) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		defer file.Close()
		gotType = header.Header.Get("Content-Type")
		gotData, _ = io.ReadAll(file)

		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition", `attachment; filename="modified_1-abc.pdf"`)
		w.Header().Set("X-Page-Count", "2")
		w.Header().Set("X-Job-Id", "job-1")
		_, _ = w.Write([]byte("%PDF-out"))
	}))
	defer srv.Close()

	client, err := NewClient(srv.URL, srv.Client())
	require.NoError(t, err)

	dl, err := client.Extract(context.Background(), Document{Name: "in.pdf", Data: []byte("%PDF-in"), PageCount: 3}, []int{3, 1})
	require.NoError(t, err)

	assert.Equal(t, []string{"3", "1"}, gotPages)
	assert.Equal(t, "application/pdf", gotType)
	assert.Equal(t, "%PDF-in", string(gotData))
	assert.Equal(t, "modified_1-abc.pdf", dl.Filename)
	assert.Equal(t, "%PDF-out", string(dl.Data))
	assert.Equal(t, 2, dl.Pages)
	assert.Equal(t, "job-1", dl.JobID)
}

func TestClientDecodesErrorBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"code":"PAGE_OUT_OF_RANGE","error":"Page 9 is out of range, the document has 3 pages"}`))
	}))
	defer srv.Close()

	client, err := NewClient(srv.URL, srv.Client())
	require.NoError(t, err)

	_, err = client.Extract(context.Background(), Document{Name: "in.pdf", Data: []byte("x")}, []int{9})
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Equal(t, "PAGE_OUT_OF_RANGE", apiErr.Code)
	assert.Contains(t, apiErr.Message, "Page 9")
}

func TestClientWaitsForAsyncJob(t *testing.T) {
	var polls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/api/upload", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
		_ = json.NewEncoder(w).Encode(map[string]string{"jobId": "job-42"})
	})
	mux.HandleFunc("/jobs/job-42", func(w http.ResponseWriter, r *http.Request) {
		status := "running"
		if polls.Add(1) >= 3 {
			status = "done"
		}
		_ = json.NewEncoder(w).Encode(map[string]string{
			"jobId":       "job-42",
			"status":      status,
			"downloadUrl": "/api/modified_9-xyz.pdf",
		})
	})
	mux.HandleFunc("/api/modified_9-xyz.pdf", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = w.Write([]byte("%PDF-async"))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	client, err := NewClient(srv.URL, srv.Client())
	require.NoError(t, err)
	client.PollInterval = 5 * time.Millisecond

	dl, err := client.Extract(context.Background(), Document{Name: "in.pdf", Data: []byte("x")}, []int{1})
	require.NoError(t, err)
	assert.Equal(t, "job-42", dl.JobID)
	assert.Equal(t, "modified_9-xyz.pdf", dl.Filename)
	assert.Equal(t, "%PDF-async", string(dl.Data))
	assert.GreaterOrEqual(t, polls.Load(), int32(3))
}

func TestClientReportsFailedJob(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/upload", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte(`{"jobId":"job-7"}`))
	})
	mux.HandleFunc("/jobs/job-7", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"jobId":"job-7","status":"error","error":{"code":"UNSUPPORTED_PDF","message":"Failed to copy the selected pages"}}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	client, err := NewClient(srv.URL, srv.Client())
	require.NoError(t, err)
	client.PollInterval = 5 * time.Millisecond

	_, err = client.Extract(context.Background(), Document{Name: "in.pdf", Data: []byte("x")}, []int{1})
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr), "err = %v", err)
	assert.Equal(t, "UNSUPPORTED_PDF", apiErr.Code)
}

func TestNewClientRejectsBadURL(t *testing.T) {
	_, err := NewClient("localhost", nil)
	assert.Error(t, err)
}

// サーバー側の実装と組み合わせて抽出結果を確認します。
func TestClientAgainstServer(t *testing.T) {
	gin.SetMode(gin.TestMode)
	store, err := storage.NewLocal(t.TempDir())
	require.NoError(t, err)
	svc, err := pdf.NewService(&config.Config{MaxFileSize: 10 << 20, MaxPages: 50}, store, zerolog.Nop())
	require.NoError(t, err)

	router := gin.New()
	router.POST("/api/upload", pdf.UploadHandler(svc, pdf.HandlerOptions{}))
	router.GET("/api/:filename", pdf.FileHandler(store))
	srv := httptest.NewServer(router)
	defer srv.Close()

	client, err := NewClient(srv.URL, srv.Client())
	require.NoError(t, err)

	doc, err := NewLoader(pdf.NewEngine()).Load(context.Background(), "five.pdf", bytesReader(buildPDF(t, 5)))
	require.NoError(t, err)

	dl, err := client.Extract(context.Background(), doc, []int{5, 2})
	require.NoError(t, err)
	assert.Equal(t, 2, dl.Pages)

	out, err := NewLoader(pdf.NewEngine()).Load(context.Background(), dl.Filename, bytesReader(dl.Data))
	require.NoError(t, err)
	assert.Equal(t, 2, out.PageCount)

	fetched, err := client.Fetch(context.Background(), dl.Filename)
	require.NoError(t, err)
	assert.Equal(t, dl.Data, fetched.Data)

	_, err = client.Fetch(context.Background(), "doesNotExist.pdf")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
	assert.Equal(t, "Requested file not found on the server", apiErr.Message)
}
