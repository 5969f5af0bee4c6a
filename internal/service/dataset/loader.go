package dataset

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"

	"github.com/kgbold/bold/internal/service/stardog"
)

// ErrAppendUnsupported 往已有数据库追加装载不受支持
var ErrAppendUnsupported = errors.New("loading into an existing database is not supported")

const dbNameCharset = "abcdefghijklmnopqrstuvwxyz0123456789"

// NewDatabaseName 生成新数据库名，以字母开头满足 Stardog 命名要求
func NewDatabaseName() string {
	suffix := make([]byte, 10)
	for i := range suffix {
		suffix[i] = dbNameCharset[rand.Intn(len(dbNameCharset))]
	}
	return "a" + string(suffix)
}

// Loader 把本地文件装载进新建的 Stardog 数据库
type Loader struct {
	store *stardog.Client

	// 服务进程与 Stardog 容器看到的路径不同，装载前做前缀映射
	importDir    string
	importRoot   string
	downloadDir  string
	downloadRoot string
}

// NewLoader 创建装载器
func NewLoader(store *stardog.Client, importDir, importRoot, downloadDir, downloadRoot string) *Loader {
	return &Loader{
		store:        store,
		importDir:    importDir,
		importRoot:   importRoot,
		downloadDir:  downloadDir,
		downloadRoot: downloadRoot,
	}
}

// Load 创建数据库并装载文件，返回数据库名
// name 为空时生成新库名，指定已有库名的追加装载不受支持
func (l *Loader) Load(ctx context.Context, name string, files []string) (string, error) {
	if name != "" {
		return "", ErrAppendUnsupported
	}
	if len(files) == 0 {
		return "", fmt.Errorf("no files to load")
	}

	mapped := make([]string, len(files))
	for i, file := range files {
		mapped[i] = l.mapPath(file)
	}

	name = NewDatabaseName()
	if err := l.store.CreateDatabase(ctx, name, mapped, stardog.DefaultCreateOptions); err != nil {
		return "", fmt.Errorf("failed to load files into %s: %w", name, err)
	}
	return name, nil
}

// mapPath 把本地路径换成 Stardog 容器内的路径
func (l *Loader) mapPath(path string) string {
	if l.downloadDir != "" && strings.HasPrefix(path, l.downloadDir) {
		return l.downloadRoot + strings.TrimPrefix(path, l.downloadDir)
	}
	if l.importDir != "" && strings.HasPrefix(path, l.importDir) {
		return l.importRoot + strings.TrimPrefix(path, l.importDir)
	}
	return path
}
