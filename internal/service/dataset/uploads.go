package dataset

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// UploadStore 上传文件存储
// 文件落在导入目录下，之后可以作为 upload 来源装载
type UploadStore struct {
	dir string
}

// NewUploadStore 创建上传存储
func NewUploadStore(dir string) *UploadStore {
	return &UploadStore{dir: dir}
}

// Save 保存上传文件，返回落盘路径
func (s *UploadStore) Save(ctx context.Context, filename string, reader io.Reader) (string, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create import dir: %w", err)
	}

	target := filepath.Join(s.dir, uuid.New().String()[:8]+"_"+sanitizeFilename(filename))
	file, err := os.Create(target)
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	if _, err := io.Copy(file, reader); err != nil {
		os.Remove(target)
		return "", fmt.Errorf("failed to write file: %w", err)
	}
	return target, nil
}

// Remove 删除落盘文件，文件已不存在不算错误
func (s *UploadStore) Remove(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}
