// Package query 提供针对数据集的 SPARQL 查询服务
// 本地数据库与远程端点两种实现共用同一个接口
package query

import (
	"context"
	"fmt"
	"strings"
)

// 查询结果的内容类型
const (
	ContentTypeSparqlJSON = "application/sparql-results+json"
	ContentTypeNTriples   = "application/n-triples"
)

// ExecutionError 查询执行失败，携带后端状态码与消息
type ExecutionError struct {
	Status  int
	Message string
}

// Error 实现 error 接口
func (e *ExecutionError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("query execution failed: %d %s", e.Status, e.Message)
	}
	return "query execution failed: " + e.Message
}

// Options 查询选项
type Options struct {
	Limit       int  // 结果上限，查询文本自带 LIMIT 时忽略
	TimeoutMs   int  // 毫秒
	IgnoreLimit bool // 允许远程查询不带 LIMIT（仅供内部统计查询使用）
}

// Result 查询结果，Data 是 ContentType 对应的原始字节
type Result struct {
	ContentType string `json:"content_type"`
	Data        []byte `json:"data"`
}

// Service 查询服务接口
type Service interface {
	Query(ctx context.Context, text string, opts Options) (*Result, error)
}

// IsGraphQuery 判断查询是否产生图结果（CONSTRUCT/DESCRIBE）
func IsGraphQuery(text string) bool {
	upper := strings.ToUpper(strings.TrimSpace(text))
	return strings.Contains(upper, "CONSTRUCT") || strings.Contains(upper, "DESCRIBE")
}

// HasLimit 判断查询文本是否自带 LIMIT 关键字
func HasLimit(text string) bool {
	return strings.Contains(strings.ToUpper(text), "LIMIT")
}

// acceptFor 返回查询类型对应的内容类型
func acceptFor(text string) string {
	if IsGraphQuery(text) {
		return ContentTypeNTriples
	}
	return ContentTypeSparqlJSON
}
