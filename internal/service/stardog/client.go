// Package stardog 提供 Stardog 三元组存储的 HTTP 客户端
// 覆盖流水线需要的最小接口：建库、删库、查询、统计与命名空间
package stardog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/kgbold/bold/internal/config"
)

// 建库默认选项：容忍格式错误的三元组，跳过链式统计索引
var DefaultCreateOptions = []string{
	"strict.parsing=false",
	"index.statistics.chains.enabled=false",
}

// Error Stardog 返回的非 2xx 响应
type Error struct {
	Status  int
	Message string
}

// Error 实现 error 接口
func (e *Error) Error() string {
	return fmt.Sprintf("stardog: %d %s", e.Status, e.Message)
}

// Namespace 前缀映射
type Namespace struct {
	Prefix string `json:"prefix"`
	Name   string `json:"name"`
}

// Client Stardog HTTP 客户端
type Client struct {
	endpoint string
	username string
	password string
	http     *http.Client
}

// NewClient 创建 Stardog 客户端
func NewClient(cfg *config.StardogConfig, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Minute}
	}
	return &Client{
		endpoint: strings.TrimRight(cfg.Endpoint, "/"),
		username: cfg.Username,
		password: cfg.Password,
		http:     httpClient,
	}
}

// CreateDatabase 从服务端可见的文件批量创建数据库
// files 必须是 Stardog 进程视角下的路径（见 loader 的路径映射）
func (c *Client) CreateDatabase(ctx context.Context, name string, files []string, options []string) error {
	if options == nil {
		options = DefaultCreateOptions
	}

	optionMap := make(map[string]interface{}, len(options))
	for _, opt := range options {
		key, value, found := strings.Cut(opt, "=")
		if !found {
			return fmt.Errorf("invalid database option %q", opt)
		}
		optionMap[key] = value
	}

	fileEntries := make([]map[string]string, 0, len(files))
	for _, f := range files {
		fileEntries = append(fileEntries, map[string]string{"filename": f})
	}

	root, err := json.Marshal(map[string]interface{}{
		"dbname":  name,
		"options": optionMap,
		"files":   fileEntries,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal create request: %w", err)
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	if err := writer.WriteField("root", string(root)); err != nil {
		return fmt.Errorf("failed to write multipart field: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to finish multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/admin/databases", &body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.SetBasicAuth(c.username, c.password)

	return c.expectOK(req)
}

// DropDatabase 删除数据库
func (c *Client) DropDatabase(ctx context.Context, name string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete,
		c.endpoint+"/admin/databases/"+url.PathEscape(name), nil)
	if err != nil {
		return err
	}
	req.SetBasicAuth(c.username, c.password)

	return c.expectOK(req)
}

// Size 返回数据库中三元组数量（估算值）
func (c *Client) Size(ctx context.Context, name string) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.endpoint+"/"+url.PathEscape(name)+"/size?exact=false", nil)
	if err != nil {
		return 0, err
	}
	req.SetBasicAuth(c.username, c.password)

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("failed to get database size: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, readError(resp)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, fmt.Errorf("failed to read size response: %w", err)
	}

	size, err := strconv.ParseInt(strings.TrimSpace(string(raw)), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("unexpected size response %q: %w", raw, err)
	}
	return size, nil
}

// Namespaces 返回数据库的命名空间列表
func (c *Client) Namespaces(ctx context.Context, name string) ([]Namespace, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.endpoint+"/"+url.PathEscape(name)+"/namespaces", nil)
	if err != nil {
		return nil, err
	}
	req.SetBasicAuth(c.username, c.password)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to get namespaces: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, readError(resp)
	}

	var payload struct {
		Namespaces []Namespace `json:"namespaces"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode namespaces: %w", err)
	}
	return payload.Namespaces, nil
}

// Query 执行 SPARQL 查询并返回请求的内容类型的原始字节
// limit 为 nil 时不附加结果上限参数
func (c *Client) Query(ctx context.Context, database, query, accept string, limit *int, timeoutMs int) ([]byte, error) {
	resp, err := c.doQuery(ctx, database, query, accept, limit, timeoutMs)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, readError(resp)
	}
	return io.ReadAll(resp.Body)
}

// QueryToFile 执行查询并将响应流式写入文件
// 词项导出的结果集可能非常大，不能整体读入内存
func (c *Client) QueryToFile(ctx context.Context, database, query, accept string, timeoutMs int, path string) error {
	resp, err := c.doQuery(ctx, database, query, accept, nil, timeoutMs)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return readError(resp)
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create export file: %w", err)
	}
	defer file.Close()

	if _, err := io.Copy(file, resp.Body); err != nil {
		return fmt.Errorf("failed to stream query result: %w", err)
	}
	return nil
}

func (c *Client) doQuery(ctx context.Context, database, query, accept string, limit *int, timeoutMs int) (*http.Response, error) {
	params := url.Values{}
	if timeoutMs > 0 {
		params.Set("timeout", strconv.Itoa(timeoutMs))
	}
	if limit != nil {
		params.Set("limit", strconv.Itoa(*limit))
	}

	endpoint := c.endpoint + "/" + url.PathEscape(database) + "/query"
	if encoded := params.Encode(); encoded != "" {
		endpoint += "?" + encoded
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(query))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/sparql-query")
	req.Header.Set("Accept", accept)
	req.SetBasicAuth(c.username, c.password)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	return resp, nil
}

func (c *Client) expectOK(req *http.Request) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("stardog request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return readError(resp)
	}
	// 消费响应体以复用连接
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func readError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return &Error{Status: resp.StatusCode, Message: strings.TrimSpace(string(raw))}
}
