// Package testutil 提供测试辅助工具
package testutil

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"time"
)

// RewriteRoundTripper 把发往真实主机的请求重写到测试服务器
// hosts 非空时只重写列出的主机
type RewriteRoundTripper struct {
	base  *url.URL
	hosts []string
	next  http.RoundTripper
}

// NewRewriteRoundTripper 创建请求重写器
func NewRewriteRoundTripper(ts *httptest.Server, hosts ...string) *RewriteRoundTripper {
	u, _ := url.Parse(ts.URL)
	return &RewriteRoundTripper{
		base:  u,
		hosts: hosts,
		next:  http.DefaultTransport,
	}
}

// RoundTrip 实现 http.RoundTripper 接口
func (t *RewriteRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.shouldRewrite(req) {
		cloned := *req
		u := *req.URL
		u.Scheme = t.base.Scheme
		u.Host = t.base.Host
		cloned.URL = &u
		req = &cloned
	}
	return t.next.RoundTrip(req)
}

func (t *RewriteRoundTripper) shouldRewrite(req *http.Request) bool {
	if len(t.hosts) == 0 {
		return true
	}
	for _, host := range t.hosts {
		if req.URL.Host == host {
			return true
		}
	}
	return false
}

// NewTestClient 创建指向测试服务器的 HTTP 客户端
func NewTestClient(ts *httptest.Server, hosts ...string) *http.Client {
	return &http.Client{
		Timeout:   5 * time.Second,
		Transport: NewRewriteRoundTripper(ts, hosts...),
	}
}
