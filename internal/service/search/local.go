package search

import (
	"context"
	"fmt"
	"regexp"
	"strings"
)

// langSuffixRe 匹配带语言标签的字面量，如 "hello"@en
var langSuffixRe = regexp.MustCompile(`^.*@[a-z]*$`)

// LocalService 本地词项索引搜索
type LocalService struct {
	index TermIndex
	name  string
}

// NewLocalService 创建本地搜索服务，name 为数据集对应的索引名
func NewLocalService(index TermIndex, name string) *LocalService {
	return &LocalService{index: index, name: name}
}

// Search 在本地索引中搜索词项
func (s *LocalService) Search(ctx context.Context, req *Request) (*Result, error) {
	filter := buildFilter(req)

	limit := req.Limit
	if limit <= 0 {
		limit = 10
	}

	raw, err := s.index.Search(ctx, s.name, req.Query, filter, int64(limit), int64(req.Offset))
	if err != nil {
		return nil, fmt.Errorf("failed to search local index: %w", err)
	}

	hits := make([]Hit, 0, len(raw.Hits))
	for _, doc := range raw.Hits {
		hits = append(hits, Hit{
			Score:    hitScore(doc),
			Document: parseIndexDocument(doc),
		})
	}

	return &Result{
		Count: raw.Count,
		Hits:  hits,
	}, nil
}

// buildFilter 组装 Meilisearch 过滤表达式
func buildFilter(req *Request) string {
	filter := fmt.Sprintf("pos = '%d'", req.Pos.Int())
	if req.Options.URLOnly {
		filter += " AND is_url = true"
	}
	if req.Options.MinCount != nil {
		filter += fmt.Sprintf(" AND count >= %d", *req.Options.MinCount)
	}
	if req.Options.MaxCount != nil {
		filter += fmt.Sprintf(" AND count <= %d", *req.Options.MaxCount)
	}
	return filter
}

// hitScore 读取排名得分，缺失时记为 1.0
func hitScore(doc map[string]interface{}) float64 {
	if v, ok := doc["_rankingScore"].(float64); ok {
		return v
	}
	return 1.0
}

// parseIndexDocument 把索引命中转换为词项文档
func parseIndexDocument(doc map[string]interface{}) TermDocument {
	iri := stringField(doc, "iri")
	value := strings.TrimPrefix(strings.TrimSuffix(iri, ">"), "<")

	termType := "literal"
	lang := ""
	if strings.Contains(iri, "http") {
		termType = "uri"
	} else if langSuffixRe.MatchString(value) {
		idx := strings.LastIndex(value, "@")
		lang = value[idx+1:]
		value = value[:idx]
	}
	value = strings.Trim(value, `"`)

	return TermDocument{
		Type:        termType,
		Value:       value,
		SearchText:  stringField(doc, "iri_text"),
		Pos:         PosFromInt(intField(doc, "pos")),
		Lang:        lang,
		RDFType:     stringField(doc, "rdf_type"),
		Label:       stringField(doc, "label"),
		Description: stringField(doc, "description"),
		Count:       int64(intField(doc, "count")),
	}
}

func stringField(doc map[string]interface{}, key string) string {
	if v, ok := doc[key].(string); ok {
		return v
	}
	return ""
}

func intField(doc map[string]interface{}, key string) int {
	switch v := doc[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	case int64:
		return int(v)
	}
	return 0
}
