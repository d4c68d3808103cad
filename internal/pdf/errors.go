package pdf

import "net/http"

// エラーコード一覧
const (
	CodeNoFile           = "NO_FILE"
	CodeInvalidFileType  = "INVALID_FILE_TYPE"
	CodeInvalidSelection = "INVALID_SELECTION"
	CodeEmptySelection   = "EMPTY_SELECTION"
	CodePageOutOfRange   = "PAGE_OUT_OF_RANGE"
	CodeDuplicatePage    = "DUPLICATE_PAGE"
	CodeUnsupportedPDF   = "UNSUPPORTED_PDF"
	CodeLimitExceeded    = "LIMIT_EXCEEDED"
	CodeDownloadFailed   = "DOWNLOAD_FAILED"
	CodeFileNotFound     = "FILE_NOT_FOUND"
	CodeInternal         = "INTERNAL_ERROR"
	CodeRequestCanceled  = "REQUEST_CANCELED"
)

// Error はクライアントへ返すエラーコードとメッセージを保持します。
type Error struct {
	Code    string
	Message string
	Err     error
}

func newError(code, message string, err error) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Code + ": " + e.Message + ": " + e.Err.Error()
	}
	return e.Code + ": " + e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Status はエラーコードに対応するHTTPステータスを返します。
func (e *Error) Status() int {
	switch e.Code {
	case CodeLimitExceeded:
		return http.StatusRequestEntityTooLarge
	case CodeFileNotFound:
		return http.StatusNotFound
	case CodeDownloadFailed, CodeInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusBadRequest
	}
}
