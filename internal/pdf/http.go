package pdf

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"

	"github.com/yourusername/pdf-extractor/internal/storage"
)

// JobRunner はジョブを実行できるサービスが実装します。
type JobRunner interface {
	RunJob(ctx context.Context, jobID string, reporter ProgressReporter) (*Result, error)
	DiscardJob(ctx context.Context, jobID string) error
}

// ExtractService はページ抽出ジョブの準備・実行と成果物の取得を提供します。
type ExtractService interface {
	JobRunner
	PrepareExtractJob(ctx context.Context, file *multipart.FileHeader, pages []int) (*JobManifest, error)
	OpenOutput(ctx context.Context, name string) (io.ReadCloser, storage.ObjectInfo, error)
}

// InspectService はアップロードされたPDFのメタデータ取得を提供します。
type InspectService interface {
	InspectMultipart(ctx context.Context, file *multipart.FileHeader) (*InspectResult, error)
}

// JobScheduler はジョブを非同期キューに投入するためのインターフェースです。
type JobScheduler interface {
	Schedule(ctx context.Context, op OperationType, jobID string) error
}

// HandlerOptions は同期/非同期切り替えのための設定です。
type HandlerOptions struct {
	Scheduler           JobScheduler
	AsyncThresholdBytes int64
	AsyncThresholdPages int
}

// UploadHandler は POST /api/upload のハンドラーを返します。
func UploadHandler(svc ExtractService, opts HandlerOptions) gin.HandlerFunc {
	return func(c *gin.Context) {
		form, err := c.MultipartForm()
		if err != nil {
			respondWithError(c, newError(CodeNoFile, "No file uploaded", err))
			return
		}
		defer form.RemoveAll()

		file, err := extractSingleFile(form)
		if err != nil {
			respondWithError(c, err)
			return
		}
		if err := ValidateDeclaredType(file); err != nil {
			respondWithError(c, err)
			return
		}

		pages, err := parseSelectedPages(c)
		if err != nil {
			respondWithError(c, err)
			return
		}

		manifest, err := svc.PrepareExtractJob(c.Request.Context(), file, pages)
		if err != nil {
			respondWithError(c, err)
			return
		}

		if shouldProcessAsync(manifest, opts) {
			if err := opts.Scheduler.Schedule(c.Request.Context(), manifest.Operation, manifest.JobID); err != nil {
				if cleanupErr := svc.DiscardJob(c.Request.Context(), manifest.JobID); cleanupErr != nil {
					err = fmt.Errorf("%w (cleanup failed: %v)", err, cleanupErr)
				}
				respondWithError(c, err)
				return
			}
			c.JSON(http.StatusAccepted, gin.H{"jobId": manifest.JobID})
			return
		}

		result, err := svc.RunJob(c.Request.Context(), manifest.JobID, nil)
		if err != nil {
			respondWithError(c, err)
			return
		}

		if err := streamResult(c, svc, result); err != nil {
			respondWithError(c, err)
		}
	}
}

// InspectHandler は POST /api/inspect のハンドラーを返します。
func InspectHandler(svc InspectService) gin.HandlerFunc {
	return func(c *gin.Context) {
		form, err := c.MultipartForm()
		if err != nil {
			respondWithError(c, newError(CodeNoFile, "No file uploaded", err))
			return
		}
		defer form.RemoveAll()

		file, err := extractSingleFile(form)
		if err != nil {
			respondWithError(c, err)
			return
		}

		result, err := svc.InspectMultipart(c.Request.Context(), file)
		if err != nil {
			respondWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

// FileHandler は GET /api/:filename のハンドラーを返します。
func FileHandler(store storage.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		name := c.Param("filename")
		rc, info, err := store.Open(c.Request.Context(), name)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) || errors.Is(err, storage.ErrInvalidName) {
				c.JSON(http.StatusNotFound, gin.H{
					"code":    CodeFileNotFound,
					"message": "Requested file not found on the server",
				})
				return
			}
			respondWithError(c, newError(CodeDownloadFailed, "Failed to download the file", err))
			return
		}
		defer rc.Close()

		br := bufio.NewReaderSize(rc, 3072)
		head, _ := br.Peek(3072)
		contentType := mimetype.Detect(head).String()

		c.Header("Cache-Control", "no-store")
		c.DataFromReader(http.StatusOK, info.Size, contentType, br, nil)
	}
}

func shouldProcessAsync(manifest *JobManifest, opts HandlerOptions) bool {
	if manifest == nil || opts.Scheduler == nil {
		return false
	}

	if opts.AsyncThresholdBytes > 0 {
		var total int64
		for _, f := range manifest.Files {
			total += f.Size
		}
		if total > opts.AsyncThresholdBytes {
			return true
		}
	}

	if opts.AsyncThresholdPages > 0 {
		var total int
		for _, f := range manifest.Files {
			total += f.Pages
		}
		if total > opts.AsyncThresholdPages {
			return true
		}
	}

	return false
}

// parseSelectedPages はクエリの selectedPages（無ければフォーム値）を読み取ります。
func parseSelectedPages(c *gin.Context) ([]int, error) {
	values := append(c.QueryArray("selectedPages"), c.QueryArray("selectedPages[]")...)
	if len(values) == 0 {
		values = append(c.PostFormArray("selectedPages"), c.PostFormArray("selectedPages[]")...)
	}
	return ParseSelection(values)
}

func respondWithError(c *gin.Context, err error) {
	_ = c.Error(err)

	var apiErr *Error
	switch {
	case errors.As(err, &apiErr):
		c.JSON(apiErr.Status(), gin.H{
			"code":  apiErr.Code,
			"error": apiErr.Message,
		})
	case errors.Is(err, context.Canceled):
		c.JSON(http.StatusRequestTimeout, gin.H{
			"code":  CodeRequestCanceled,
			"error": "Request was canceled",
		})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":  CodeInternal,
			"error": "Internal server error",
		})
	}
}

func extractSingleFile(form *multipart.Form) (*multipart.FileHeader, error) {
	if form == nil {
		return nil, newError(CodeNoFile, "No file uploaded", nil)
	}
	for _, key := range []string{"pdfFile", "file", "file[]", "files", "files[]"} {
		if files := form.File[key]; len(files) > 0 {
			return files[0], nil
		}
	}
	return nil, newError(CodeNoFile, "No file uploaded", nil)
}

func streamResult(c *gin.Context, svc ExtractService, result *Result) error {
	rc, info, err := svc.OpenOutput(c.Request.Context(), result.OutputName)
	if err != nil {
		return newError(CodeDownloadFailed, "Failed to download the file", err)
	}
	defer rc.Close()

	encodedName := url.PathEscape(result.OutputName)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"; filename*=UTF-8''%s", result.OutputName, encodedName))
	c.Header("Cache-Control", "no-store")
	c.Header("X-Job-Id", result.JobID)
	c.Header("X-Page-Count", strconv.Itoa(result.Pages))
	c.DataFromReader(http.StatusOK, info.Size, pdfContentType, rc, nil)
	return nil
}
