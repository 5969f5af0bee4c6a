// Package terms 从数据集中导出词项并写入搜索索引
package terms

import (
	"bufio"
	"context"
	"crypto/md5"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/kgbold/bold/internal/service/search"
	"github.com/kgbold/bold/internal/service/stardog"
)

// DefaultIndexName 共享的基础词表索引
const DefaultIndexName = "default_terms"

const tsvContentType = "text/tab-separated-values"

// Indexer 词项导出与索引构建
type Indexer struct {
	store     *stardog.Client
	index     search.TermIndex
	dataDir   string
	minCount  int
	batchSize int
	timeoutMs int
}

// NewIndexer 创建词项索引构建器
// dataDir 用于暂存导出文件，timeout 为单个导出查询的超时秒数
func NewIndexer(store *stardog.Client, index search.TermIndex, dataDir string, minCount, batchSize, timeoutSec int) *Indexer {
	if minCount <= 0 {
		minCount = 3
	}
	if batchSize <= 0 {
		batchSize = 5000
	}
	if timeoutSec <= 0 {
		timeoutSec = 3600
	}
	return &Indexer{
		store:     store,
		index:     index,
		dataDir:   dataDir,
		minCount:  minCount,
		batchSize: batchSize,
		timeoutMs: timeoutSec * 1000,
	}
}

// IndexDataset 为数据集构建词项索引
// force 为 false 时已存在的索引直接跳过
func (i *Indexer) IndexDataset(ctx context.Context, database, indexName string, force bool) error {
	exists, err := i.index.HasIndex(ctx, indexName)
	if err != nil {
		return fmt.Errorf("failed to check index %s: %w", indexName, err)
	}
	if exists {
		if !force {
			log.Printf("index %s already exists, skipping", indexName)
			return nil
		}
		if err := i.index.DeleteIndex(ctx, indexName); err != nil {
			return fmt.Errorf("failed to rebuild index %s: %w", indexName, err)
		}
	}

	if err := i.index.EnsureIndex(ctx, indexName); err != nil {
		return err
	}

	for pos := 0; pos < 3; pos++ {
		if err := i.exportAndIndex(ctx, database, indexName, pos); err != nil {
			return fmt.Errorf("failed to index pos %d terms: %w", pos, err)
		}
	}
	return nil
}

// DeleteDatasetIndex 删除数据集的词项索引，索引不存在时静默成功
func (i *Indexer) DeleteDatasetIndex(ctx context.Context, indexName string) error {
	exists, err := i.index.HasIndex(ctx, indexName)
	if err != nil {
		return err
	}
	if !exists {
		return nil
	}
	return i.index.DeleteIndex(ctx, indexName)
}

// exportAndIndex 导出一个位置的词项到暂存文件并批量写入索引
func (i *Indexer) exportAndIndex(ctx context.Context, database, indexName string, pos int) error {
	path := filepath.Join(i.dataDir, fmt.Sprintf("terms_%s_%d_%s.tsv", database, pos, uuid.New().String()[:8]))
	defer os.Remove(path)

	query := exportQuery(pos, i.minCount)
	if err := i.store.QueryToFile(ctx, database, query, tsvContentType, i.timeoutMs, path); err != nil {
		return fmt.Errorf("failed to export terms: %w", err)
	}

	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open export file: %w", err)
	}
	defer file.Close()

	return i.indexRows(ctx, indexName, file, pos)
}

// indexRows 解析 TSV 行并按批写入索引
func (i *Indexer) indexRows(ctx context.Context, indexName string, file *os.File, pos int) error {
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	batch := make([]map[string]interface{}, 0, i.batchSize)
	first := true
	for scanner.Scan() {
		line := scanner.Text()
		if first {
			// 首行是列头
			first = false
			continue
		}
		if line == "" {
			continue
		}
		doc, ok := parseRow(line, pos)
		if !ok {
			continue
		}
		batch = append(batch, doc)
		if len(batch) >= i.batchSize {
			if err := i.index.AddDocuments(ctx, indexName, batch); err != nil {
				return err
			}
			batch = batch[:0]
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read export file: %w", err)
	}
	if len(batch) > 0 {
		return i.index.AddDocuments(ctx, indexName, batch)
	}
	return nil
}

// parseRow 把一行导出结果转换为索引文档
// 列为 iri、count、label、description、type，
// IRI 带尖括号，字面量带引号和语言标签
func parseRow(line string, pos int) (map[string]interface{}, bool) {
	cols := strings.Split(line, "\t")
	if len(cols) < 2 {
		return nil, false
	}
	iri := strings.TrimSpace(cols[0])
	if iri == "" {
		return nil, false
	}

	count, err := strconv.ParseInt(strings.TrimSpace(cols[1]), 10, 64)
	if err != nil {
		return nil, false
	}

	label := ""
	if len(cols) > 2 {
		label = literalText(cols[2])
	}
	description := ""
	if len(cols) > 3 {
		description = literalText(cols[3])
	}
	rdfType := ""
	if len(cols) > 4 {
		rdfType = stripAngles(cols[4])
	}

	isURL := strings.Contains(iri, "http")
	var iriText string
	if isURL {
		iriText = search.IRIText(iri)
	} else {
		iriText = literalText(iri)
	}

	return map[string]interface{}{
		"id":          docID(iri, pos),
		"iri":         iri,
		"iri_text":    iriText,
		"label":       label,
		"description": description,
		"rdf_type":    rdfType,
		"count":       count,
		"pos":         strconv.Itoa(pos),
		"is_url":      isURL,
	}, true
}

// docID 文档主键只允许字母数字，取 IRI 与位置的散列
func docID(iri string, pos int) string {
	return fmt.Sprintf("%x", md5.Sum([]byte(fmt.Sprintf("%d:%s", pos, iri))))
}

// literalText 去掉字面量的引号与语言标签
func literalText(value string) string {
	value = strings.TrimSpace(value)
	if idx := strings.LastIndex(value, "@"); idx > 0 && strings.HasSuffix(value[:idx], `"`) {
		value = value[:idx]
	}
	return strings.Trim(value, `"`)
}

// stripAngles 去掉 IRI 的尖括号
func stripAngles(value string) string {
	value = strings.TrimSpace(value)
	return strings.TrimSuffix(strings.TrimPrefix(value, "<"), ">")
}
