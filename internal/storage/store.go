// Package storage はアップロード原本と生成PDFを一時的に保持するファイルストアを提供します。
//
// 保存先はフラットな名前空間で、ローカルディスク（開発環境・既定）と S3 を切り替えられます。
// 期限切れファイルの削除は Sweeper が EvictionPolicy に従って行います。
package storage

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"
)

var (
	// ErrNotFound は指定した名前のファイルが存在しないことを表します。
	ErrNotFound = errors.New("storage: object not found")
	// ErrInvalidName はパス区切りや相対参照を含む不正な名前を表します。
	ErrInvalidName = errors.New("storage: invalid object name")
	// ErrExists は同名のファイルが既に存在することを表します。
	ErrExists = errors.New("storage: object already exists")
)

// ObjectInfo は保存済みファイルのメタデータです。
type ObjectInfo struct {
	Name    string    `json:"name"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"modTime"`
}

// Store は一時ファイルストアのインターフェースです。
// Save は同名のファイルを上書きせず ErrExists を返します。
type Store interface {
	Save(ctx context.Context, name string, r io.Reader) (ObjectInfo, error)
	Open(ctx context.Context, name string) (io.ReadCloser, ObjectInfo, error)
	Delete(ctx context.Context, name string) error
	List(ctx context.Context) ([]ObjectInfo, error)
}

// ValidateName はストア内で使用できる名前かどうかを検証します。
func ValidateName(name string) error {
	if strings.TrimSpace(name) == "" || name == "." || name == ".." {
		return ErrInvalidName
	}
	if strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") || strings.ContainsRune(name, 0) {
		return ErrInvalidName
	}
	return nil
}

// ReadAll はファイルを開いて内容をすべて読み込みます。
func ReadAll(ctx context.Context, s Store, name string) ([]byte, ObjectInfo, error) {
	rc, info, err := s.Open(ctx, name)
	if err != nil {
		return nil, ObjectInfo{}, err
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, ObjectInfo{}, err
	}
	return data, info, nil
}
