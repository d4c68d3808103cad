package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-pdf/fpdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writePDF(t *testing.T, pages int) string {
	t.Helper()
	doc := fpdf.New("P", "pt", "A4", "")
	for p := 1; p <= pages; p++ {
		doc.AddPage()
	}
	path := filepath.Join(t.TempDir(), "in.pdf")
	require.NoError(t, doc.OutputFileAndClose(path))
	return path
}

func fakeServer(t *testing.T, gotPages *[]string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*gotPages = r.URL.Query()["selectedPages"]
		w.Header().Set("Content-Disposition", `attachment; filename="modified_1-a.pdf"`)
		_, _ = w.Write([]byte("%PDF-out"))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestParsePages(t *testing.T) {
	pages, err := parsePages("3, 1,5")
	require.NoError(t, err)
	assert.Equal(t, []int{3, 1, 5}, pages)

	_, err = parsePages("a")
	assert.Error(t, err)
	_, err = parsePages(" , ")
	assert.Error(t, err)
}

func TestRunNonInteractive(t *testing.T) {
	var gotPages []string
	srv := fakeServer(t, &gotPages)
	out := filepath.Join(t.TempDir(), "out.pdf")

	var stdout, stderr bytes.Buffer
	err := run(context.Background(), []string{"-server", srv.URL, "-pages", "3,1", "-o", out, writePDF(t, 3)}, strings.NewReader(""), &stdout, &stderr)
	require.NoError(t, err, stderr.String())

	assert.Equal(t, []string{"3", "1"}, gotPages)
	assert.Contains(t, stdout.String(), "Modified file has been downloaded")
	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-out", string(data))
}

func TestRunInteractive(t *testing.T) {
	var gotPages []string
	srv := fakeServer(t, &gotPages)
	out := filepath.Join(t.TempDir(), "out.pdf")

	var stdout, stderr bytes.Buffer
	stdin := strings.NewReader("2\n9\n1\n2\n2\ns\n")
	err := run(context.Background(), []string{"-server", srv.URL, "-o", out, writePDF(t, 2)}, stdin, &stdout, &stderr)
	require.NoError(t, err, stderr.String())

	// 2 → 選択, 9 → 範囲外, 1 → 選択, 2 → 解除, 2 → 再選択
	assert.Equal(t, []string{"1", "2"}, gotPages)
	assert.Contains(t, stdout.String(), "< Select at least one page to continue >")
	assert.Contains(t, stdout.String(), "page out of range")
}

func TestRunRequiresFile(t *testing.T) {
	var stdout, stderr bytes.Buffer
	err := run(context.Background(), nil, strings.NewReader(""), &stdout, &stderr)
	assert.Error(t, err)
	assert.Contains(t, stderr.String(), "usage: pdfpick")
}

func TestRunQuit(t *testing.T) {
	var gotPages []string
	srv := fakeServer(t, &gotPages)

	var stdout, stderr bytes.Buffer
	err := run(context.Background(), []string{"-server", srv.URL, writePDF(t, 1)}, strings.NewReader("q\n"), &stdout, &stderr)
	require.NoError(t, err)
	assert.Nil(t, gotPages)
}

func TestRunFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/modified_1-a.pdf" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"code":"FILE_NOT_FOUND","message":"Requested file not found on the server"}`))
			return
		}
		_, _ = w.Write([]byte("%PDF-stored"))
	}))
	t.Cleanup(srv.Close)
	out := filepath.Join(t.TempDir(), "fetched.pdf")

	var stdout, stderr bytes.Buffer
	err := run(context.Background(), []string{"-server", srv.URL, "-o", out, "-fetch", "modified_1-a.pdf"}, strings.NewReader(""), &stdout, &stderr)
	require.NoError(t, err, stderr.String())
	assert.Contains(t, stdout.String(), out)
	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-stored", string(data))

	err = run(context.Background(), []string{"-server", srv.URL, "-o", out, "-fetch", "missing.pdf"}, strings.NewReader(""), &stdout, &stderr)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Requested file not found on the server")
}
