package dataset

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Downloader 把远程数据文件下载到暂存目录
type Downloader struct {
	dir  string
	http *http.Client
}

// NewDownloader 创建下载器，timeout 为单个文件的下载超时秒数
func NewDownloader(dir string, timeoutSec int) *Downloader {
	if timeoutSec <= 0 {
		timeoutSec = 600
	}
	return &Downloader{
		dir:  dir,
		http: &http.Client{Timeout: time.Duration(timeoutSec) * time.Second},
	}
}

// Download 下载单个文件，返回本地路径
// GitHub 页面链接会改写成原始文件链接
func (d *Downloader) Download(ctx context.Context, rawURL string) (string, error) {
	fetchURL, err := rewriteGithubURL(rawURL)
	if err != nil {
		return "", fmt.Errorf("invalid source url %s: %w", rawURL, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fetchURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := d.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to download %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("download %s returned %d", rawURL, resp.StatusCode)
	}

	filename := downloadFilename(resp, fetchURL)
	if err := os.MkdirAll(d.dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create download dir: %w", err)
	}
	// 前缀避免不同来源的同名文件互相覆盖
	target := filepath.Join(d.dir, uuid.New().String()[:8]+"_"+filename)

	file, err := os.Create(target)
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", target, err)
	}

	if _, err := io.Copy(file, resp.Body); err != nil {
		file.Close()
		os.Remove(target)
		return "", fmt.Errorf("failed to write %s: %w", target, err)
	}
	if err := file.Close(); err != nil {
		os.Remove(target)
		return "", fmt.Errorf("failed to close %s: %w", target, err)
	}
	return target, nil
}

// rewriteGithubURL 给 GitHub 文件链接追加 raw=true，拿到文件本体而不是网页
func rewriteGithubURL(rawURL string) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	if parsed.Host != "github.com" && parsed.Host != "www.github.com" {
		return rawURL, nil
	}
	if parsed.Query().Get("raw") != "" {
		return rawURL, nil
	}
	if parsed.RawQuery == "" {
		return rawURL + "?raw=true", nil
	}
	return rawURL + "&raw=true", nil
}

// downloadFilename 从 Content-Disposition 或 URL 路径推断文件名
func downloadFilename(resp *http.Response, fetchURL string) string {
	if cd := resp.Header.Get("Content-Disposition"); cd != "" {
		if _, params, err := mime.ParseMediaType(cd); err == nil {
			if name := params["filename"]; name != "" {
				return sanitizeFilename(name)
			}
		}
	}
	if parsed, err := url.Parse(fetchURL); err == nil {
		if name := path.Base(parsed.Path); name != "" && name != "/" && name != "." {
			return sanitizeFilename(name)
		}
	}
	return "download.dat"
}

func sanitizeFilename(name string) string {
	name = filepath.Base(name)
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, name)
}
