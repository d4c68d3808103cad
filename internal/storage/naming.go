package storage

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"
)

const (
	outputPrefix   = "modified_"
	manifestPrefix = "job_"
	defaultUpload  = "upload.pdf"

	// 保存名は `<ms>-<id>-` を前置するため、ファイルシステムの255バイト制限に収まるよう元名を切り詰める
	maxSanitizedBytes = 150
	maxExtBytes       = 16
)

// Namer はストア内のファイル名を生成します。
// ミリ秒タイムスタンプに加えてランダムIDを含めるため、同一ミリ秒の並行リクエストでも衝突しません。
type Namer struct {
	now   func() time.Time
	newID func() string
}

// NewNamer は現在時刻と UUID を用いる Namer を返します。
func NewNamer() *Namer {
	return &Namer{now: time.Now, newID: shortID}
}

// NewNamerWith は時刻とID生成関数を差し替えた Namer を返します（テスト用）。
func NewNamerWith(now func() time.Time, newID func() string) *Namer {
	if now == nil {
		now = time.Now
	}
	if newID == nil {
		newID = shortID
	}
	return &Namer{now: now, newID: newID}
}

// UploadName はアップロード原本の保存名 `<ms>-<id>-<元ファイル名>` を返します。
func (n *Namer) UploadName(original string) string {
	return fmt.Sprintf("%d-%s-%s", n.now().UnixMilli(), n.newID(), SanitizeFilename(original))
}

// OutputName は生成PDFの保存名 `modified_<ms>-<id>.pdf` を返します。
func (n *Namer) OutputName() string {
	return fmt.Sprintf("%s%d-%s.pdf", outputPrefix, n.now().UnixMilli(), n.newID())
}

// ManifestName は非同期ジョブのマニフェスト保存名を返します。
func ManifestName(jobID string) string {
	return manifestPrefix + jobID + ".json"
}

// NewJobID はジョブIDを生成します。
func NewJobID() string {
	return uuid.NewString()
}

// SanitizeFilename はクライアントから渡されたファイル名をストアで安全に扱える形に変換します。
func SanitizeFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, `\`, "/"))
	if name == "." || name == "/" {
		name = ""
	}

	var b strings.Builder
	for _, r := range name {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	cleaned := strings.Trim(b.String(), "._")
	for strings.Contains(cleaned, "..") {
		cleaned = strings.ReplaceAll(cleaned, "..", ".")
	}
	if cleaned == "" {
		return defaultUpload
	}
	return truncateName(cleaned, maxSanitizedBytes)
}

// truncateName は拡張子を残したまま、ルーン境界で name を limit バイト以内に切り詰めます。
func truncateName(name string, limit int) string {
	if len(name) <= limit {
		return name
	}
	ext := filepath.Ext(name)
	if len(ext) > maxExtBytes {
		ext = ""
	}
	base := strings.TrimSuffix(name, ext)

	budget := limit - len(ext)
	cut := 0
	for i, r := range base {
		if i+utf8.RuneLen(r) > budget {
			break
		}
		cut = i + utf8.RuneLen(r)
	}
	base = strings.TrimRight(base[:cut], "._")
	if base == "" {
		base = strings.TrimSuffix(defaultUpload, ".pdf")
	}
	return base + ext
}

func shortID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}
