// Package config は環境変数から設定を読み込み、アプリケーション全体で使用する設定を提供します。
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// ストレージバックエンドの種別
const (
	StorageLocal = "local"
	StorageS3    = "s3"
)

// Config はアプリケーションの設定を保持する構造体です。
type Config struct {
	// サーバー設定
	Port    string `validate:"required,numeric"`                // APIサーバーのポート番号
	GinMode string `validate:"required,oneof=debug release test"` // Ginの実行モード

	// CORS設定
	CORSAllowedOrigins string // CORS許可オリジン（カンマ区切り）

	// ファイル制限
	MaxFileSize int64 `validate:"gt=0"` // 単一ファイルの最大サイズ（バイト）
	MaxPages    int   `validate:"gt=0"` // 単一ファイルの最大ページ数

	// 一時ファイルストア設定
	StorageBackend     string `validate:"required,oneof=local s3"`
	UploadDir          string `validate:"required_if=StorageBackend local"`
	S3Bucket           string `validate:"required_if=StorageBackend s3"`
	S3Prefix           string
	FileTTLMinutes     int    `validate:"gte=0"` // 0 の場合は自動削除しない
	StoreSweepSchedule string `validate:"required"`

	// ジョブ/キュー設定
	AsyncEnabled        bool
	QueueRedisURL       string `validate:"required_if=AsyncEnabled true"` // Asynq用Redis接続URL
	AsyncThresholdBytes int64  `validate:"gte=0"`                          // 同期処理から非同期へ切り替えるサイズ閾値
	AsyncThresholdPages int    `validate:"gte=0"`                          // 同期処理から非同期へ切り替えるページ閾値
	JobExpireMinutes    int    `validate:"gte=0"`                          // ジョブ記録の有効期限（分）
	JobResultBaseURL    string `validate:"omitempty,url"`                  // 結果ファイル取得用のベースURL

	// ログ設定
	LogLevel      string
	LogPretty     bool
	LogFile       string
	LogMaxSizeMB  int
	LogMaxBackups int
	LogMaxAgeDays int
	LogCompress   bool

	// メトリクス
	MetricsEnabled bool
}

// Load は環境変数から設定を読み込みます。
// .env.local ファイルが存在する場合はそこから読み込みます。
func Load() (*Config, error) {
	// .env.local ファイルを読み込む（存在しない場合はスキップ）
	loadEnvFile()

	config := &Config{
		// サーバー設定
		Port:    getEnv("PORT", "8080"),
		GinMode: getEnv("GIN_MODE", "debug"),

		// CORS設定
		CORSAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),

		// ファイル制限
		MaxFileSize: getEnvAsInt64("MAX_FILE_SIZE", 104857600), // 100MB
		MaxPages:    getEnvAsInt("MAX_PAGES", 500),

		// 一時ファイルストア設定
		StorageBackend:     strings.ToLower(getEnv("STORAGE_BACKEND", StorageLocal)),
		UploadDir:          getEnv("UPLOAD_DIR", "uploads"),
		S3Bucket:           getEnv("S3_BUCKET", ""),
		S3Prefix:           getEnv("S3_PREFIX", ""),
		FileTTLMinutes:     getEnvAsInt("FILE_TTL_MINUTES", 10),
		StoreSweepSchedule: getEnv("STORE_SWEEP_SCHEDULE", "@every 1m"),

		// ジョブ/キュー設定
		AsyncEnabled:        getEnvAsBool("ASYNC_ENABLED", false),
		QueueRedisURL:       getEnv("QUEUE_REDIS_URL", ""),
		AsyncThresholdBytes: getEnvAsInt64("ASYNC_THRESHOLD_BYTES", 50*1024*1024), // 50MB
		AsyncThresholdPages: getEnvAsInt("ASYNC_THRESHOLD_PAGES", 300),
		JobExpireMinutes:    getEnvAsInt("JOB_EXPIRE_MINUTES", 10),
		JobResultBaseURL:    getEnv("JOB_RESULT_BASE_URL", ""),

		// ログ設定
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		LogPretty:     getEnvAsBool("LOG_PRETTY", false),
		LogFile:       getEnv("LOG_FILE", ""),
		LogMaxSizeMB:  getEnvAsInt("LOG_MAX_SIZE_MB", 100),
		LogMaxBackups: getEnvAsInt("LOG_MAX_BACKUPS", 5),
		LogMaxAgeDays: getEnvAsInt("LOG_MAX_AGE_DAYS", 14),
		LogCompress:   getEnvAsBool("LOG_COMPRESS", true),

		MetricsEnabled: getEnvAsBool("METRICS_ENABLED", true),
	}

	// 必須設定のバリデーション
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func loadEnvFile() {
	if err := godotenv.Load(".env.local"); err == nil {
		return
	}

	cwd, err := os.Getwd()
	if err != nil {
		return
	}

	parent := filepath.Dir(cwd)
	if parent == "" || parent == cwd {
		return
	}

	_ = godotenv.Load(filepath.Join(parent, ".env.local"))
}

var validate = validator.New()

// Validate は設定の妥当性を検証します。
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			return fmt.Errorf("invalid config %s: failed on %q", fe.Field(), fe.Tag())
		}
		return fmt.Errorf("invalid config: %w", err)
	}

	// 本番環境ではCORSの許可オリジンを明示させる
	if c.GinMode == "release" && strings.TrimSpace(c.CORSAllowedOrigins) == "" {
		return fmt.Errorf("CORS_ALLOWED_ORIGINS is required in release mode")
	}

	return nil
}

// FileTTLEnabled は一時ファイルの自動削除が有効かどうかを返します。
func (c *Config) FileTTLEnabled() bool {
	return c.FileTTLMinutes > 0
}

// AllowedOrigins はCORS許可オリジンを配列で返します。
func (c *Config) AllowedOrigins() []string {
	var origins []string
	for _, o := range strings.Split(c.CORSAllowedOrigins, ",") {
		if trimmed := strings.TrimSpace(o); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	return origins
}

// getEnv は環境変数を取得し、存在しない場合はデフォルト値を返します。
func getEnv(key string, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvAsInt は環境変数を整数として取得します。
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsInt64 は環境変数を64ビット整数として取得します。
func getEnvAsInt64(key string, defaultValue int64) int64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseInt(valueStr, 10, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsBool は環境変数を真偽値として取得します（1/true/yes/on を真とみなす）。
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if valueStr == "" {
		return defaultValue
	}
	switch valueStr {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return defaultValue
	}
}
