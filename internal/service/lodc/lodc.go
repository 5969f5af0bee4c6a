// Package lodc 访问 LOD Cloud 目录（https://lod-cloud.net）
package lodc

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// 常见知识图谱序列化格式的媒体类型关键词
var kgMediaHints = []string{
	"rdf", "turtle", "ttl", "n3", "triples", "ntriples", "nt",
	"nquads", "quads", "trig", "owl", "xml",
}

// 明确不是数据转储的格式
var nonKGMediaHints = []string{"html", "sitemap", "void"}

// Download 目录中数据集的一个下载项
type Download struct {
	Title       string `json:"title"`
	MediaType   string `json:"media_type"`
	AccessURL   string `json:"access_url"`
	DownloadURL string `json:"download_url"`
	Status      string `json:"status"`
}

// URL 优先返回直接下载地址
func (d *Download) URL() string {
	if d.DownloadURL != "" {
		return d.DownloadURL
	}
	return d.AccessURL
}

// IsDownloadable 下载项是否可用
func (d *Download) IsDownloadable() bool {
	return d.URL() != "" && !strings.EqualFold(d.Status, "FAIL")
}

// IsKG 媒体类型是否明确为知识图谱转储
func (d *Download) IsKG() bool {
	media := strings.ToLower(d.MediaType)
	for _, hint := range nonKGMediaHints {
		if strings.Contains(media, hint) {
			return false
		}
	}
	for _, hint := range kgMediaHints {
		if strings.Contains(media, hint) {
			return true
		}
	}
	return false
}

// IsPossiblyKG 媒体类型未知但也未被排除
func (d *Download) IsPossiblyKG() bool {
	media := strings.ToLower(d.MediaType)
	for _, hint := range nonKGMediaHints {
		if strings.Contains(media, hint) {
			return false
		}
	}
	return true
}

// Dataset 目录中的数据集条目
type Dataset struct {
	Identifier   string      `json:"identifier"`
	Title        string      `json:"title"`
	Description  interface{} `json:"description"`
	Domain       string      `json:"domain"`
	Website      string      `json:"website"`
	Triples      string      `json:"triples"`
	FullDownload []Download  `json:"full_download"`
	Other        []Download  `json:"other_download"`
}

// Downloads 汇总全部下载项，完整转储在前
func (d *Dataset) Downloads() []Download {
	downloads := make([]Download, 0, len(d.FullDownload)+len(d.Other))
	downloads = append(downloads, d.FullDownload...)
	downloads = append(downloads, d.Other...)
	return downloads
}

// KGDownloads 返回可用作导入源的下载项
// 先选媒体类型明确的转储，没有时回退到未被排除的项
func (d *Dataset) KGDownloads() []Download {
	var exact, possible []Download
	for _, dl := range d.Downloads() {
		if !dl.IsDownloadable() {
			continue
		}
		if dl.IsKG() {
			exact = append(exact, dl)
		} else if dl.IsPossiblyKG() {
			possible = append(possible, dl)
		}
	}
	if len(exact) > 0 {
		return exact
	}
	return possible
}

// Client LOD Cloud 目录客户端，结果缓存到 redis
type Client struct {
	endpoint string
	cacheTTL time.Duration
	http     *http.Client
	redis    *redis.Client
}

// NewClient 创建目录客户端，redis 可为 nil（不启用缓存）
func NewClient(endpoint string, cacheTTL time.Duration, httpClient *http.Client, redisClient *redis.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	return &Client{
		endpoint: strings.TrimSuffix(endpoint, "/"),
		cacheTTL: cacheTTL,
		http:     httpClient,
		redis:    redisClient,
	}
}

// FetchDataset 获取单个数据集条目
func (c *Client) FetchDataset(ctx context.Context, id string) (*Dataset, error) {
	body, err := c.fetch(ctx, fmt.Sprintf("%s/json/%s", c.endpoint, id), "lodc:dataset:"+id)
	if err != nil {
		return nil, err
	}

	var dataset Dataset
	if err := json.Unmarshal(body, &dataset); err != nil {
		return nil, fmt.Errorf("failed to decode LODC dataset %s: %w", id, err)
	}
	return &dataset, nil
}

// FetchAll 获取整个目录，键为数据集标识
func (c *Client) FetchAll(ctx context.Context) (map[string]Dataset, error) {
	body, err := c.fetch(ctx, c.endpoint+"/lod-data.json", "lodc:catalog")
	if err != nil {
		return nil, err
	}

	var catalog map[string]Dataset
	if err := json.Unmarshal(body, &catalog); err != nil {
		return nil, fmt.Errorf("failed to decode LODC catalog: %w", err)
	}
	return catalog, nil
}

// fetch 带 redis 缓存的 GET
func (c *Client) fetch(ctx context.Context, url, cacheKey string) ([]byte, error) {
	if c.redis != nil {
		if cached, err := c.redis.Get(ctx, cacheKey).Bytes(); err == nil {
			return cached, nil
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("LODC request %s returned %d", url, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read LODC response: %w", err)
	}

	if c.redis != nil {
		// 缓存失败不影响结果
		c.redis.Set(ctx, cacheKey, body, c.cacheTTL)
	}
	return body, nil
}
