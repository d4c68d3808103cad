package pdf

// OperationType はPDF処理の種別を表します。
type OperationType string

// OperationExtract は選択ページの抽出です。
const OperationExtract OperationType = "extract"

// Result は抽出処理の成果を表します。成果物はストアに OutputName で保存されています。
type Result struct {
	JobID      string        `json:"jobId"`
	Operation  OperationType `json:"operation"`
	OutputName string        `json:"outputName"`
	OutputSize int64         `json:"outputSize"`
	Pages      int           `json:"pages"`
	Meta       *ExtractMeta  `json:"meta,omitempty"`
}

// ExtractMeta は抽出処理のメタデータです。
type ExtractMeta struct {
	Source   SourceFileMeta `json:"source"`
	Selected []int          `json:"selectedPages"`
}
