package terms

import (
	"bufio"
	"context"
	"embed"
	"fmt"
	"log"
	"strings"
)

//go:embed vocab/*.tsv
var vocabFS embed.FS

// 内置词表文件与其对应的词项位置
var vocabFiles = map[string]int{
	"vocab/predicates.tsv": 1,
	"vocab/classes.tsv":    2,
}

// EnsureDefaultIndex 构建共享的基础词表索引
// 包含 RDF、RDFS、OWL、FOAF 等常用词汇，所有数据集的搜索都会合并它的结果
func (i *Indexer) EnsureDefaultIndex(ctx context.Context, force bool) error {
	exists, err := i.index.HasIndex(ctx, DefaultIndexName)
	if err != nil {
		return fmt.Errorf("failed to check default index: %w", err)
	}
	if exists {
		if !force {
			return nil
		}
		if err := i.index.DeleteIndex(ctx, DefaultIndexName); err != nil {
			return fmt.Errorf("failed to rebuild default index: %w", err)
		}
	}

	if err := i.index.EnsureIndex(ctx, DefaultIndexName); err != nil {
		return err
	}

	for name, pos := range vocabFiles {
		if err := i.indexVocabFile(ctx, name, pos); err != nil {
			return fmt.Errorf("failed to index %s: %w", name, err)
		}
	}
	log.Printf("default term index %s ready", DefaultIndexName)
	return nil
}

func (i *Indexer) indexVocabFile(ctx context.Context, name string, pos int) error {
	file, err := vocabFS.Open(name)
	if err != nil {
		return err
	}
	defer file.Close()

	var docs []map[string]interface{}
	scanner := bufio.NewScanner(file)
	first := true
	for scanner.Scan() {
		line := scanner.Text()
		if first || line == "" {
			first = false
			continue
		}
		if doc, ok := parseRow(strings.TrimRight(line, "\r"), pos); ok {
			docs = append(docs, doc)
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	return i.index.AddDocuments(ctx, DefaultIndexName, docs)
}
