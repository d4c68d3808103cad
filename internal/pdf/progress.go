package pdf

// 進捗ステージ
const (
	StageLoad      = "load"
	StageProcess   = "process"
	StageWrite     = "write"
	StageCompleted = "completed"
)

// ProgressReporter は進捗更新用コールバックです。
type ProgressReporter func(stage string, percent int)

func reportProgress(cb ProgressReporter, stage string, percent int) {
	if cb == nil {
		return
	}
	cb(stage, min(max(percent, 0), 100))
}
