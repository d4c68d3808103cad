package selector

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const defaultDownloadName = "modified-file.pdf"

// APIError はサーバーが返したエラー応答です。
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("server returned %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("%s (%d): %s", e.Code, e.Status, e.Message)
}

// Download はサーバーから受け取った生成PDFです。
type Download struct {
	Filename string
	Data     []byte
	JobID    string
	Pages    int
}

// Client は抽出APIのクライアントです。
type Client struct {
	baseURL      *url.URL
	http         *http.Client
	PollInterval time.Duration
	PollTimeout  time.Duration
}

// NewClient は baseURL（例: http://localhost:8080）に対するクライアントを作成します。
func NewClient(baseURL string, httpClient *http.Client) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid server url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid server url %q", baseURL)
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 2 * time.Minute}
	}
	return &Client{
		baseURL:      u,
		http:         httpClient,
		PollInterval: 500 * time.Millisecond,
		PollTimeout:  5 * time.Minute,
	}, nil
}

// Extract は文書と選択ページを送信し、生成PDFを受け取ります。
// サーバーが非同期ジョブ（202）を返した場合は完了まで待ってからダウンロードします。
func (c *Client) Extract(ctx context.Context, doc Document, pages []int) (*Download, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="pdfFile"; filename=%q`, doc.Name))
	h.Set("Content-Type", "application/pdf")
	part, err := writer.CreatePart(h)
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(doc.Data); err != nil {
		return nil, err
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}

	q := url.Values{}
	for _, p := range pages {
		q.Add("selectedPages", strconv.Itoa(p))
	}
	endpoint := c.resolve("/api/upload")
	endpoint.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.String(), body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		return readDownload(resp)
	case http.StatusAccepted:
		var accepted struct {
			JobID string `json:"jobId"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&accepted); err != nil {
			return nil, fmt.Errorf("decode job response: %w", err)
		}
		return c.waitForJob(ctx, accepted.JobID)
	default:
		return nil, decodeAPIError(resp)
	}
}

// Fetch は GET /api/:filename で保存済みファイルを取得します。
func (c *Client) Fetch(ctx context.Context, name string) (*Download, error) {
	return c.fetchURL(ctx, c.resolve("/api/"+url.PathEscape(name)).String())
}

type jobStatus struct {
	JobID       string `json:"jobId"`
	Status      string `json:"status"`
	DownloadURL string `json:"downloadUrl"`
	Error       *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

var errJobPending = errors.New("job pending")

func (c *Client) waitForJob(ctx context.Context, jobID string) (*Download, error) {
	if jobID == "" {
		return nil, errors.New("server accepted the upload without a job id")
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = c.PollInterval
	policy.MaxInterval = 5 * c.PollInterval
	policy.MaxElapsedTime = c.PollTimeout

	var status jobStatus
	op := func() error {
		s, err := c.jobStatus(ctx, jobID)
		if err != nil {
			var apiErr *APIError
			if errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound {
				return backoff.Permanent(err)
			}
			return err
		}
		switch s.Status {
		case "done":
			status = *s
			return nil
		case "error":
			apiErr := &APIError{Status: http.StatusOK, Code: "JOB_FAILED", Message: "job failed"}
			if s.Error != nil {
				apiErr.Code, apiErr.Message = s.Error.Code, s.Error.Message
			}
			return backoff.Permanent(apiErr)
		default:
			return errJobPending
		}
	}
	if err := backoff.Retry(op, backoff.WithContext(policy, ctx)); err != nil {
		return nil, err
	}

	target := status.DownloadURL
	if u, err := url.Parse(target); err == nil && !u.IsAbs() {
		target = c.baseURL.ResolveReference(u).String()
	}
	dl, err := c.fetchURL(ctx, target)
	if err != nil {
		return nil, err
	}
	dl.JobID = jobID
	return dl, nil
}

func (c *Client) jobStatus(ctx context.Context, jobID string) (*jobStatus, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.resolve("/jobs/"+url.PathEscape(jobID)).String(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, decodeAPIError(resp)
	}
	var s jobStatus
	if err := json.NewDecoder(resp.Body).Decode(&s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (c *Client) fetchURL(ctx context.Context, target string) (*Download, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, decodeAPIError(resp)
	}
	dl, err := readDownload(resp)
	if err != nil {
		return nil, err
	}
	if dl.Filename == defaultDownloadName {
		if name := lastSegment(req.URL.Path); name != "" {
			dl.Filename = name
		}
	}
	return dl, nil
}

func (c *Client) resolve(path string) *url.URL {
	u := *c.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + path
	return &u
}

func readDownload(resp *http.Response) (*Download, error) {
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	dl := &Download{
		Filename: defaultDownloadName,
		Data:     data,
		JobID:    resp.Header.Get("X-Job-Id"),
	}
	if _, params, err := mime.ParseMediaType(resp.Header.Get("Content-Disposition")); err == nil && params["filename"] != "" {
		dl.Filename = params["filename"]
	}
	if n, err := strconv.Atoi(resp.Header.Get("X-Page-Count")); err == nil {
		dl.Pages = n
	}
	return dl, nil
}

func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var body struct {
		Code    string `json:"code"`
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if json.Unmarshal(data, &body) == nil {
		apiErr.Code = body.Code
		switch {
		case body.Error != "":
			apiErr.Message = body.Error
		case body.Message != "":
			apiErr.Message = body.Message
		}
	} else if text := strings.TrimSpace(string(data)); text != "" {
		apiErr.Message = text
	}
	return apiErr
}

func lastSegment(p string) string {
	if i := strings.LastIndex(p, "/"); i >= 0 {
		p = p[i+1:]
	}
	if unescaped, err := url.PathUnescape(p); err == nil {
		return unescaped
	}
	return p
}
