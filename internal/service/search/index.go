package search

import (
	"context"
	"errors"
	"fmt"

	"github.com/meilisearch/meilisearch-go"
)

// 索引文档字段约定（与词项导出文件的列对应）：
// id, iri, iri_text, label, description, rdf_type, count, pos, is_url

// IndexSearchResult 索引后端的原始搜索结果
type IndexSearchResult struct {
	Count int64
	Hits  []map[string]interface{}
}

// TermIndex 词项索引后端的最小接口
// 生产实现基于 Meilisearch，测试中用内存假实现替换
type TermIndex interface {
	EnsureIndex(ctx context.Context, name string) error
	AddDocuments(ctx context.Context, name string, docs []map[string]interface{}) error
	Search(ctx context.Context, name, query, filter string, limit, offset int64) (*IndexSearchResult, error)
	DeleteIndex(ctx context.Context, name string) error
	HasIndex(ctx context.Context, name string) (bool, error)
}

// MeiliIndex Meilisearch 实现
type MeiliIndex struct {
	client *meilisearch.Client
}

// NewMeiliIndex 创建 Meilisearch 词项索引
func NewMeiliIndex(host, apiKey string) *MeiliIndex {
	client := meilisearch.NewClient(meilisearch.ClientConfig{
		Host:   host,
		APIKey: apiKey,
	})
	return &MeiliIndex{client: client}
}

// EnsureIndex 创建索引并配置可过滤/可搜索/可排序属性
func (m *MeiliIndex) EnsureIndex(ctx context.Context, name string) error {
	task, err := m.client.CreateIndex(&meilisearch.IndexConfig{
		Uid:        name,
		PrimaryKey: "id",
	})
	if err != nil {
		return fmt.Errorf("failed to create index %s: %w", name, err)
	}
	if _, err := m.client.WaitForTask(task.TaskUID); err != nil {
		return fmt.Errorf("failed to wait for index creation: %w", err)
	}

	settingsTask, err := m.client.Index(name).UpdateSettings(&meilisearch.Settings{
		FilterableAttributes: []string{"rdf_type", "pos", "is_url", "count"},
		SearchableAttributes: []string{"iri_text", "label", "description"},
		SortableAttributes:   []string{"count"},
	})
	if err != nil {
		return fmt.Errorf("failed to update index settings: %w", err)
	}
	if _, err := m.client.WaitForTask(settingsTask.TaskUID); err != nil {
		return fmt.Errorf("failed to wait for index settings: %w", err)
	}
	return nil
}

// AddDocuments 批量写入文档
func (m *MeiliIndex) AddDocuments(ctx context.Context, name string, docs []map[string]interface{}) error {
	if len(docs) == 0 {
		return nil
	}
	task, err := m.client.Index(name).AddDocuments(docs)
	if err != nil {
		return fmt.Errorf("failed to add documents to %s: %w", name, err)
	}
	if _, err := m.client.WaitForTask(task.TaskUID); err != nil {
		return fmt.Errorf("failed to wait for document indexing: %w", err)
	}
	return nil
}

// Search 按过滤表达式搜索索引
func (m *MeiliIndex) Search(ctx context.Context, name, query, filter string, limit, offset int64) (*IndexSearchResult, error) {
	resp, err := m.client.Index(name).Search(query, &meilisearch.SearchRequest{
		Filter:           filter,
		Limit:            limit,
		Offset:           offset,
		ShowRankingScore: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search index %s: %w", name, err)
	}

	hits := make([]map[string]interface{}, 0, len(resp.Hits))
	for _, hit := range resp.Hits {
		if doc, ok := hit.(map[string]interface{}); ok {
			hits = append(hits, doc)
		}
	}

	return &IndexSearchResult{
		Count: resp.EstimatedTotalHits,
		Hits:  hits,
	}, nil
}

// DeleteIndex 删除索引
func (m *MeiliIndex) DeleteIndex(ctx context.Context, name string) error {
	task, err := m.client.DeleteIndex(name)
	if err != nil {
		return fmt.Errorf("failed to delete index %s: %w", name, err)
	}
	if _, err := m.client.WaitForTask(task.TaskUID); err != nil {
		return fmt.Errorf("failed to wait for index deletion: %w", err)
	}
	return nil
}

// HasIndex 索引是否存在
func (m *MeiliIndex) HasIndex(ctx context.Context, name string) (bool, error) {
	_, err := m.client.GetIndex(name)
	if err != nil {
		var apiErr *meilisearch.Error
		if errors.As(err, &apiErr) && apiErr.StatusCode == 404 {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
