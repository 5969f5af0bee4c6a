// Package search 提供词项搜索服务
// 本地索引、Wikidata 与 TriplyDB 三种后端共用同一个接口，
// 联邦查询时结果经 Merge 重排去重
package search

import "context"

// TermPos 词项在三元组中的位置
type TermPos string

const (
	PosSubject   TermPos = "SUBJECT"
	PosPredicate TermPos = "PREDICATE"
	PosObject    TermPos = "OBJECT"
)

// Int 返回位置的索引编码
func (p TermPos) Int() int {
	switch p {
	case PosPredicate:
		return 1
	case PosObject:
		return 2
	default:
		return 0
	}
}

// PosFromInt 从索引编码还原位置
func PosFromInt(value int) TermPos {
	switch value {
	case 1:
		return PosPredicate
	case 2:
		return PosObject
	default:
		return PosSubject
	}
}

// TermDocument 词项文档
type TermDocument struct {
	Type        string  `json:"type"` // uri 或 literal
	Value       string  `json:"value"`
	SearchText  string  `json:"search_text"`
	Pos         TermPos `json:"pos"`
	Lang        string  `json:"lang,omitempty"`
	RDFType     string  `json:"rdf_type,omitempty"`
	Label       string  `json:"label,omitempty"`
	Description string  `json:"description,omitempty"`
	Count       int64   `json:"count,omitempty"`
}

// SearchableText 拼接用于模糊匹配的文本
func (d *TermDocument) SearchableText() string {
	return d.SearchText + " " + d.Label + " " + d.Description + " " + d.Value
}

// Hit 单条搜索命中
type Hit struct {
	Score    float64      `json:"score"`
	Document TermDocument `json:"document"`
}

// Result 搜索结果
// Error 记录后端的非致命失败，联邦查询时另一个后端仍可返回结果
type Result struct {
	Count int64  `json:"count"`
	Hits  []Hit  `json:"hits"`
	Error string `json:"error,omitempty"`
}

// Options 搜索过滤选项
type Options struct {
	URLOnly  bool   // 仅返回 URI 词项
	MinCount *int64 // 出现次数下限
	MaxCount *int64 // 出现次数上限
}

// Request 搜索请求
type Request struct {
	Query     string
	Pos       TermPos
	Limit     int
	Offset    int
	TimeoutMs int
	Options   Options
}

// Service 词项搜索服务接口
type Service interface {
	Search(ctx context.Context, req *Request) (*Result, error)
}

// ValidationError 请求无法被后端满足（例如端点不可达）
type ValidationError struct {
	Message string
}

// Error 实现 error 接口
func (e *ValidationError) Error() string {
	return e.Message
}
