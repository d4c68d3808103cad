package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

const tempPrefix = ".tmp-"

// Local はローカルディスク上の単一ディレクトリをストアとして扱います。
type Local struct {
	dir string
}

var _ Store = (*Local)(nil)

// NewLocal は保存先ディレクトリを作成して Local を返します。
func NewLocal(dir string) (*Local, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("storage dir is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("保存先ディレクトリの作成に失敗しました: %w", err)
	}
	return &Local{dir: dir}, nil
}

// Dir は保存先ディレクトリを返します。
func (l *Local) Dir() string { return l.dir }

// Save は一時ファイルへ書き込んでからリネームし、途中状態のファイルを残しません。
func (l *Local) Save(ctx context.Context, name string, r io.Reader) (ObjectInfo, error) {
	if err := ValidateName(name); err != nil {
		return ObjectInfo{}, err
	}
	if err := ctx.Err(); err != nil {
		return ObjectInfo{}, err
	}

	dst := filepath.Join(l.dir, name)
	if _, err := os.Stat(dst); err == nil {
		return ObjectInfo{}, fmt.Errorf("%w: %s", ErrExists, name)
	}

	tmp, err := os.CreateTemp(l.dir, tempPrefix+"*")
	if err != nil {
		return ObjectInfo{}, fmt.Errorf("一時ファイルの作成に失敗しました: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		_ = os.Remove(tmpPath)
	}()

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return ObjectInfo{}, fmt.Errorf("ファイルの書き込みに失敗しました: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return ObjectInfo{}, fmt.Errorf("ファイルのクローズに失敗しました: %w", err)
	}
	if err := os.Chmod(tmpPath, 0o640); err != nil {
		return ObjectInfo{}, err
	}
	if err := os.Rename(tmpPath, dst); err != nil {
		return ObjectInfo{}, fmt.Errorf("ファイルの配置に失敗しました: %w", err)
	}

	info, err := os.Stat(dst)
	if err != nil {
		return ObjectInfo{}, err
	}
	return toObjectInfo(info), nil
}

// Open は名前に一致するファイルを開きます。
func (l *Local) Open(ctx context.Context, name string) (io.ReadCloser, ObjectInfo, error) {
	if err := ValidateName(name); err != nil {
		return nil, ObjectInfo{}, err
	}
	if err := ctx.Err(); err != nil {
		return nil, ObjectInfo{}, err
	}

	file, err := os.Open(filepath.Join(l.dir, name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ObjectInfo{}, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return nil, ObjectInfo{}, err
	}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, ObjectInfo{}, err
	}
	if info.IsDir() {
		file.Close()
		return nil, ObjectInfo{}, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return file, toObjectInfo(info), nil
}

// Delete はファイルを削除します。存在しない場合は何もしません。
func (l *Local) Delete(ctx context.Context, name string) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	if err := os.Remove(filepath.Join(l.dir, name)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// List は保存済みファイルを列挙します（書き込み途中の一時ファイルは除外）。
func (l *Local) List(ctx context.Context) ([]ObjectInfo, error) {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		return nil, err
	}

	objects := make([]ObjectInfo, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), tempPrefix) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, err
		}
		objects = append(objects, toObjectInfo(info))
	}
	return objects, nil
}

// ListTemp は書き込み途中で残った一時ファイルを列挙します。
func (l *Local) ListTemp(ctx context.Context) ([]ObjectInfo, error) {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		return nil, err
	}

	var temps []ObjectInfo
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasPrefix(entry.Name(), tempPrefix) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, err
		}
		temps = append(temps, toObjectInfo(info))
	}
	return temps, nil
}

// DeleteTemp は一時ファイルを削除します。一時ファイル以外の名前は拒否します。
func (l *Local) DeleteTemp(ctx context.Context, name string) error {
	if !strings.HasPrefix(name, tempPrefix) {
		return fmt.Errorf("%w: %s", ErrInvalidName, name)
	}
	return l.Delete(ctx, name)
}

func toObjectInfo(info fs.FileInfo) ObjectInfo {
	return ObjectInfo{
		Name:    info.Name(),
		Size:    info.Size(),
		ModTime: info.ModTime(),
	}
}
