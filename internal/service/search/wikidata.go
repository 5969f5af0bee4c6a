package search

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const wikidataAPI = "https://www.wikidata.org/w/api.php"

// continuedCount Wikidata 未返回总数时的占位值，表示还有更多结果
const continuedCount = 999999

// WikidataService 基于 wbsearchentities 接口的实体搜索
type WikidataService struct {
	endpoint string
	http     *http.Client
}

// NewWikidataService 创建 Wikidata 搜索服务
func NewWikidataService(client *http.Client) *WikidataService {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &WikidataService{endpoint: wikidataAPI, http: client}
}

type wikidataResponse struct {
	Search []struct {
		ID          string `json:"id"`
		ConceptURI  string `json:"concepturi"`
		Label       string `json:"label"`
		Description string `json:"description"`
	} `json:"search"`
	SearchContinue *int `json:"search-continue"`
}

// Search 搜索 Wikidata 实体，谓词位置映射为属性搜索
func (s *WikidataService) Search(ctx context.Context, req *Request) (*Result, error) {
	entityType := "item"
	if req.Pos == PosPredicate {
		entityType = "property"
	}

	limit := req.Limit
	if limit <= 0 {
		limit = 10
	}

	params := url.Values{}
	params.Set("action", "wbsearchentities")
	params.Set("search", req.Query)
	params.Set("language", "en")
	params.Set("uselang", "en")
	params.Set("type", entityType)
	params.Set("format", "json")
	params.Set("formatversion", "2")
	params.Set("errorformat", "plaintext")
	params.Set("limit", strconv.Itoa(limit))
	params.Set("continue", strconv.Itoa(req.Offset))

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, s.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("User-Agent", "https://github.com/kgbold/bold")

	resp, err := s.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to query wikidata: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read wikidata response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return &Result{Error: strings.TrimSpace(string(body))}, nil
	}

	var decoded wikidataResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, fmt.Errorf("failed to decode wikidata response: %w", err)
	}

	hits := make([]Hit, 0, len(decoded.Search))
	for _, entity := range decoded.Search {
		value := entity.ConceptURI
		if req.Pos == PosPredicate {
			value = "http://www.wikidata.org/prop/direct/" + entity.ID
		}
		hits = append(hits, Hit{
			Score: 1.0,
			Document: TermDocument{
				Type:        "uri",
				Value:       value,
				SearchText:  entity.Label,
				Pos:         req.Pos,
				Label:       entity.Label,
				Description: entity.Description,
			},
		})
	}

	// 接口不报告总数，仅提示是否还有下一页
	count := int64(req.Offset + len(hits))
	if decoded.SearchContinue != nil {
		count = continuedCount
	}

	return &Result{Count: count, Hits: hits}, nil
}
