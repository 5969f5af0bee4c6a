package query

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const userAgent = "https://github.com/kgbold/bold"

// ErrMissingLimit 远程查询未指定 LIMIT 且未显式豁免
var ErrMissingLimit = errors.New("SPARQL queries must specify a LIMIT")

// SparqlService 针对远程 SPARQL 端点的查询服务
type SparqlService struct {
	endpoint     string
	maxRedirects int
	http         *http.Client
}

// NewSparqlService 创建远程查询服务
// 重定向由服务自行跟随，最多 maxRedirects 次
func NewSparqlService(endpoint string, maxRedirects int, httpClient *http.Client) *SparqlService {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 5 * time.Minute}
	}
	// 禁用自动重定向，重定向次数由下面的循环控制
	client := *httpClient
	client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		return http.ErrUseLastResponse
	}
	return &SparqlService{
		endpoint:     endpoint,
		maxRedirects: maxRedirects,
		http:         &client,
	}
}

// Query 执行远程查询
// 未带 LIMIT 的查询在发起网络调用前即被拒绝，防止无界的远程查询
func (s *SparqlService) Query(ctx context.Context, text string, opts Options) (*Result, error) {
	if !HasLimit(text) && !opts.IgnoreLimit {
		return nil, ErrMissingLimit
	}

	accept := acceptFor(text)

	params := url.Values{}
	if opts.Limit > 0 && !HasLimit(text) {
		params.Set("limit", strconv.Itoa(opts.Limit))
	}
	if opts.TimeoutMs > 0 {
		params.Set("timeout", strconv.Itoa(opts.TimeoutMs))
	}

	endpoint := s.endpoint
	if encoded := params.Encode(); encoded != "" {
		endpoint += "?" + encoded
	}

	resp, err := s.post(ctx, endpoint, text, accept)
	if err != nil {
		return nil, &ExecutionError{Message: err.Error()}
	}

	// 手动跟随重定向，重发原始查询
	redirects := 0
	for resp.StatusCode/100 == 3 && redirects < s.maxRedirects {
		location := resp.Header.Get("Location")
		_, _ = io.Copy(io.Discard, resp.Body)
		resp.Body.Close()

		if location == "" {
			return nil, &ExecutionError{Status: resp.StatusCode, Message: "redirect without location"}
		}

		resp, err = s.post(ctx, location, text, accept)
		if err != nil {
			return nil, &ExecutionError{Message: err.Error()}
		}
		redirects++
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 == 3 {
		return nil, &ExecutionError{
			Status:  resp.StatusCode,
			Message: fmt.Sprintf("too many redirects (%d)", redirects+1),
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &ExecutionError{Message: err.Error()}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &ExecutionError{Status: resp.StatusCode, Message: strings.TrimSpace(string(body))}
	}

	return &Result{ContentType: accept, Data: body}, nil
}

func (s *SparqlService) post(ctx context.Context, endpoint, text, accept string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(text))
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "application/sparql-query")
	req.Header.Set("Accept", accept)

	return s.http.Do(req)
}
