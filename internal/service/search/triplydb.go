package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// TriplyDB 的索引把字段名里 IRI 的点替换成了空格，
// 查询子句和 _source 取值都要用替换后的名字，值本身仍是原始 IRI
const (
	esTypeField        = "http://www w3 org/1999/02/22-rdf-syntax-ns#type"
	esLabelField       = "http://www w3 org/2000/01/rdf-schema#label"
	esCommentField     = "http://www w3 org/2000/01/rdf-schema#comment"
	owlDatatypePropIRI = "http://www.w3.org/2002/07/owl#DatatypeProperty"
)

// TriplyDBService 通过 TriplyDB 托管的 Elasticsearch 服务搜索词项
// 服务端点在首次搜索时从数据集的服务列表中发现
type TriplyDBService struct {
	sparqlEndpoint string
	searchEndpoint string
	http           *http.Client
}

// NewTriplyDBService 创建 TriplyDB 搜索服务
// sparqlEndpoint 为数据集的 SPARQL 端点，形如
// https://api.triplydb.com/datasets/{account}/{dataset}/services/{name}/sparql
func NewTriplyDBService(client *http.Client, sparqlEndpoint string) *TriplyDBService {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &TriplyDBService{sparqlEndpoint: sparqlEndpoint, http: client}
}

type triplyService struct {
	Type     string `json:"type"`
	Endpoint string `json:"endpoint"`
}

// discoverEndpoint 在数据集服务列表中查找 elasticSearch 服务
func (s *TriplyDBService) discoverEndpoint(ctx context.Context) (string, error) {
	if s.searchEndpoint != "" {
		return s.searchEndpoint, nil
	}

	idx := strings.Index(s.sparqlEndpoint, "/services/")
	if idx < 0 {
		return "", &ValidationError{Message: fmt.Sprintf("not a TriplyDB endpoint: %s", s.sparqlEndpoint)}
	}
	servicesURL := s.sparqlEndpoint[:idx] + "/services/"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, servicesURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := s.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to list TriplyDB services: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &ValidationError{Message: fmt.Sprintf("TriplyDB services request returned %d", resp.StatusCode)}
	}

	var services []triplyService
	if err := json.NewDecoder(resp.Body).Decode(&services); err != nil {
		return "", fmt.Errorf("failed to decode TriplyDB services: %w", err)
	}

	for _, svc := range services {
		if svc.Type == "elasticSearch" && svc.Endpoint != "" {
			s.searchEndpoint = svc.Endpoint
			return s.searchEndpoint, nil
		}
	}
	return "", &ValidationError{Message: "dataset has no elasticSearch service"}
}

// buildQuery 组装 Elasticsearch bool 查询
// 谓词位置要求实体为 DatatypeProperty，其他位置将其排除
// 查询文本为空时不加全文子句，返回未过滤的结果集
func buildQuery(req *Request, limit int) map[string]interface{} {
	boolQuery := map[string]interface{}{}

	if req.Pos != PosPredicate {
		boolQuery["must_not"] = []interface{}{
			map[string]interface{}{
				"terms": map[string]interface{}{
					esTypeField: []string{owlDatatypePropIRI},
				},
			},
		}
	}

	if req.Query != "" {
		boolQuery["must"] = []interface{}{
			map[string]interface{}{
				"simple_query_string": map[string]interface{}{
					"query": req.Query,
				},
			},
		}
		boolQuery["should"] = []interface{}{
			map[string]interface{}{
				"simple_query_string": map[string]interface{}{
					"query":  req.Query,
					"fields": []string{esLabelField},
				},
			},
		}
	}

	if req.Pos == PosPredicate {
		must, _ := boolQuery["must"].([]interface{})
		boolQuery["must"] = append(must, map[string]interface{}{
			"match": map[string]interface{}{
				esTypeField: owlDatatypePropIRI,
			},
		})
	}

	return map[string]interface{}{
		"from":  req.Offset,
		"size":  limit,
		"query": map[string]interface{}{"bool": boolQuery},
	}
}

type esResponse struct {
	Hits struct {
		Total struct {
			Value int64 `json:"value"`
		} `json:"total"`
		Hits []struct {
			ID     string                 `json:"_id"`
			Score  float64                `json:"_score"`
			Source map[string]interface{} `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

// Search 搜索远端 Elasticsearch 索引
func (s *TriplyDBService) Search(ctx context.Context, req *Request) (*Result, error) {
	endpoint, err := s.discoverEndpoint(ctx)
	if err != nil {
		return nil, err
	}

	limit := req.Limit
	if limit <= 0 {
		limit = 10
	}

	payload, err := json.Marshal(buildQuery(req, limit))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal search query: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := s.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to search TriplyDB: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read search response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return &Result{Error: strings.TrimSpace(string(body))}, nil
	}

	var decoded esResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}

	hits := make([]Hit, 0, len(decoded.Hits.Hits))
	for _, hit := range decoded.Hits.Hits {
		hits = append(hits, Hit{Score: hit.Score, Document: parseSourceDocument(hit.ID, hit.Source)})
	}

	return &Result{Count: decoded.Hits.Total.Value, Hits: hits}, nil
}

// parseSourceDocument 把 _source 转换为词项文档
// 位置由文档自身的 rdf:type 推断，而不是回显请求的位置
func parseSourceDocument(id string, source map[string]interface{}) TermDocument {
	iri := sourceString(source, "@id")
	if iri == "" {
		iri = id
	}
	rdfType := sourceString(source, esTypeField)

	pos := PosObject
	switch {
	case rdfType == owlDatatypePropIRI:
		pos = PosPredicate
	case strings.Contains(iri, "http"):
		pos = PosSubject
	}

	label := sourceString(source, esLabelField)
	searchText := label
	if searchText == "" {
		searchText = localNameText(iri)
	}

	return TermDocument{
		Type:        "uri",
		Value:       iri,
		Pos:         pos,
		RDFType:     rdfType,
		Label:       label,
		Description: sourceString(source, esCommentField),
		SearchText:  searchText,
	}
}

// localNameText 取 IRI 局部名并把分隔符换成空格
func localNameText(iri string) string {
	if idx := strings.LastIndex(iri, "/"); idx >= 0 {
		iri = iri[idx+1:]
	}
	if idx := strings.LastIndex(iri, "#"); idx >= 0 {
		iri = iri[idx+1:]
	}
	return strings.Map(func(r rune) rune {
		switch r {
		case '-', '_', '#':
			return ' '
		}
		return r
	}, iri)
}

// sourceString 读取 _source 字段，兼容字符串与字符串数组
func sourceString(source map[string]interface{}, key string) string {
	switch v := source[key].(type) {
	case string:
		return v
	case []interface{}:
		if len(v) > 0 {
			if s, ok := v[0].(string); ok {
				return s
			}
		}
	}
	return ""
}
