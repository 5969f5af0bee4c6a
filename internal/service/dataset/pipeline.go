package dataset

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"

	"github.com/kgbold/bold/internal/model"
	"github.com/kgbold/bold/internal/repository"
	"github.com/kgbold/bold/internal/service/lodc"
	"github.com/kgbold/bold/internal/service/query"
	"github.com/kgbold/bold/internal/service/stardog"
	"github.com/kgbold/bold/internal/service/terms"
)

const tripleCountQuery = `SELECT (COUNT(*) AS ?count) WHERE { ?s ?p ?o }`

// Pipeline 数据集导入流水线
// 状态机：QUEUED → IMPORTING → IMPORTED / FAILED
type Pipeline struct {
	datasets     repository.DatasetRepository
	store        *stardog.Client
	downloader   *Downloader
	loader       *Loader
	indexer      *terms.Indexer
	lodc         *lodc.Client
	uploads      *UploadStore
	maxRedirects int
}

// NewPipeline 创建导入流水线
func NewPipeline(datasets repository.DatasetRepository, store *stardog.Client, downloader *Downloader,
	loader *Loader, indexer *terms.Indexer, lodcClient *lodc.Client, uploads *UploadStore, maxRedirects int) *Pipeline {
	return &Pipeline{
		datasets:     datasets,
		store:        store,
		downloader:   downloader,
		loader:       loader,
		indexer:      indexer,
		lodc:         lodcClient,
		uploads:      uploads,
		maxRedirects: maxRedirects,
	}
}

// Run 执行导入
// 失败时回收本次创建的数据库，暂存文件无论成败都会清理
func (p *Pipeline) Run(ctx context.Context, datasetID string) error {
	ds, err := p.datasets.GetByID(datasetID)
	if err != nil {
		return fmt.Errorf("failed to load dataset %s: %w", datasetID, err)
	}

	if err := p.datasets.UpdateFields(ds.ID, map[string]interface{}{
		"state": model.DatasetImporting,
	}); err != nil {
		return err
	}

	createdDB, scratch, runErr := p.execute(ctx, ds)
	for _, file := range scratch {
		if err := p.uploads.Remove(file); err != nil {
			log.Printf("failed to remove scratch file %s: %v", file, err)
		}
	}

	if runErr != nil {
		if createdDB != "" {
			if err := p.store.DropDatabase(ctx, createdDB); err != nil {
				log.Printf("failed to drop database %s after import failure: %v", createdDB, err)
			}
		}
		if err := p.datasets.UpdateFields(ds.ID, map[string]interface{}{
			"state": model.DatasetFailed,
		}); err != nil {
			log.Printf("failed to mark dataset %s failed: %v", ds.ID, err)
		}
		return runErr
	}

	return p.datasets.UpdateFields(ds.ID, map[string]interface{}{
		"state":           model.DatasetImported,
		"local_database":  ds.LocalDatabase,
		"sparql_endpoint": ds.SparqlEndpoint,
		"statistics":      ds.Statistics,
		"namespaces":      ds.Namespaces,
	})
}

// execute 解析来源、装载数据、刷新统计并建索引
// 返回本次新建的数据库名和需要清理的暂存文件
func (p *Pipeline) execute(ctx context.Context, ds *model.Dataset) (string, []string, error) {
	createdDB := ""
	var scratch []string

	switch {
	case ds.Mode == model.ModeLocal && ds.SourceType() == model.SourceExisting:
		name := ds.SourceString("database")
		if name == "" {
			return "", nil, fmt.Errorf("existing source is missing database name")
		}
		ds.LocalDatabase = name

	case ds.Mode == model.ModeLocal:
		files, downloaded, err := p.resolveFiles(ctx, ds)
		scratch = downloaded
		if err != nil {
			return "", scratch, err
		}
		name, err := p.loader.Load(ctx, "", files)
		if err != nil {
			return "", scratch, err
		}
		createdDB = name
		ds.LocalDatabase = name

	case ds.Mode == model.ModeSparql && ds.SourceType() == model.SourceSparql:
		endpoint := ds.SourceString("sparql")
		if endpoint == "" {
			return "", nil, fmt.Errorf("sparql source is missing endpoint")
		}
		ds.SparqlEndpoint = endpoint

	default:
		return "", nil, fmt.Errorf("unsupported import: mode=%s source_type=%s", ds.Mode, ds.SourceType())
	}

	if err := p.refreshStatistics(ctx, ds); err != nil {
		return createdDB, scratch, err
	}

	if ds.Mode == model.ModeLocal && ds.SearchMode == model.SearchLocal {
		if err := p.indexer.IndexDataset(ctx, ds.LocalDatabase, ds.LocalDatabase, false); err != nil {
			return createdDB, scratch, err
		}
	}
	if err := p.indexer.EnsureDefaultIndex(ctx, false); err != nil {
		return createdDB, scratch, err
	}

	return createdDB, scratch, nil
}

// resolveFiles 按来源类型准备待装载的文件列表
// 第二个返回值是下载产生的暂存文件
func (p *Pipeline) resolveFiles(ctx context.Context, ds *model.Dataset) ([]string, []string, error) {
	switch ds.SourceType() {
	case model.SourceURLs:
		return p.downloadAll(ctx, ds.SourceURLList())

	case model.SourceLODC:
		id := ds.SourceString("lodc_id")
		if id == "" {
			return nil, nil, fmt.Errorf("lodc source is missing dataset id")
		}
		entry, err := p.lodc.FetchDataset(ctx, id)
		if err != nil {
			return nil, nil, err
		}
		downloads := entry.KGDownloads()
		if len(downloads) == 0 {
			return nil, nil, fmt.Errorf("LODC dataset %s has no downloadable dumps", id)
		}
		urls := make([]string, 0, len(downloads))
		for _, dl := range downloads {
			urls = append(urls, dl.URL())
		}
		return p.downloadFirst(ctx, urls)

	case model.SourceUpload:
		files := ds.SourceURLList()
		if files == nil {
			// 上传来源在 source.files 里记录落盘路径
			if raw, ok := ds.Source["files"].([]interface{}); ok {
				for _, f := range raw {
					if s, ok := f.(string); ok {
						files = append(files, s)
					}
				}
			}
		}
		if len(files) == 0 {
			return nil, nil, fmt.Errorf("upload source has no files")
		}
		// 上传文件用完即删，和下载暂存同样处理
		return files, files, nil

	default:
		return nil, nil, fmt.Errorf("unsupported source type %q", ds.SourceType())
	}
}

// downloadAll 下载全部 URL，任何一个失败都终止本次导入
// 已落盘的文件作为暂存文件返回，供失败后清理
func (p *Pipeline) downloadAll(ctx context.Context, urls []string) ([]string, []string, error) {
	if len(urls) == 0 {
		return nil, nil, fmt.Errorf("source has no urls")
	}

	seen := make(map[string]struct{}, len(urls))
	var files []string
	for _, u := range urls {
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		path, err := p.downloader.Download(ctx, u)
		if err != nil {
			return nil, files, fmt.Errorf("failed to download %s: %w", u, err)
		}
		files = append(files, path)
	}
	return files, files, nil
}

// downloadFirst 按候选顺序逐个尝试，第一个下载成功的生效
func (p *Pipeline) downloadFirst(ctx context.Context, urls []string) ([]string, []string, error) {
	for _, u := range urls {
		path, err := p.downloader.Download(ctx, u)
		if err != nil {
			log.Printf("failed to download candidate %s: %v", u, err)
			continue
		}
		return []string{path}, []string{path}, nil
	}
	return nil, nil, fmt.Errorf("all %d download candidates failed", len(urls))
}

// refreshStatistics 刷新三元组数量与命名空间
func (p *Pipeline) refreshStatistics(ctx context.Context, ds *model.Dataset) error {
	switch ds.Mode {
	case model.ModeLocal:
		size, err := p.store.Size(ctx, ds.LocalDatabase)
		if err != nil {
			return fmt.Errorf("failed to get database size: %w", err)
		}
		namespaces, err := p.store.Namespaces(ctx, ds.LocalDatabase)
		if err != nil {
			return fmt.Errorf("failed to get namespaces: %w", err)
		}
		converted := make(model.Namespaces, 0, len(namespaces))
		for _, ns := range namespaces {
			converted = append(converted, model.Namespace{Prefix: ns.Prefix, Name: ns.Name})
		}
		ds.Statistics = model.JSON{"triple_count": size}
		ds.Namespaces = converted

	case model.ModeSparql:
		count, err := p.remoteTripleCount(ctx, ds.SparqlEndpoint)
		if err != nil {
			return fmt.Errorf("failed to count triples at %s: %w", ds.SparqlEndpoint, err)
		}
		ds.Statistics = model.JSON{"triple_count": count}
		ds.Namespaces = model.Namespaces{}
	}
	return nil
}

// remoteTripleCount 向远程端点发 COUNT 查询
func (p *Pipeline) remoteTripleCount(ctx context.Context, endpoint string) (int64, error) {
	svc := query.NewSparqlService(endpoint, p.maxRedirects, nil)
	result, err := svc.Query(ctx, tripleCountQuery, query.Options{IgnoreLimit: true})
	if err != nil {
		return 0, err
	}

	var decoded struct {
		Results struct {
			Bindings []map[string]struct {
				Value string `json:"value"`
			} `json:"bindings"`
		} `json:"results"`
	}
	if err := json.Unmarshal(result.Data, &decoded); err != nil {
		return 0, fmt.Errorf("failed to decode count result: %w", err)
	}
	if len(decoded.Results.Bindings) == 0 {
		return 0, fmt.Errorf("count query returned no bindings")
	}
	count, err := strconv.ParseInt(decoded.Results.Bindings[0]["count"].Value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid count value: %w", err)
	}
	return count, nil
}

// Teardown 回收数据集占用的索引与数据库，最后删除记录
func (p *Pipeline) Teardown(ctx context.Context, ds *model.Dataset) error {
	if ds.LocalDatabase != "" {
		if err := p.indexer.DeleteDatasetIndex(ctx, ds.LocalDatabase); err != nil {
			log.Printf("failed to delete term index %s: %v", ds.LocalDatabase, err)
		}
		// 复用已有数据库的数据集不拥有它，删除时保留
		if ds.SourceType() != model.SourceExisting {
			if err := p.store.DropDatabase(ctx, ds.LocalDatabase); err != nil {
				log.Printf("failed to drop database %s: %v", ds.LocalDatabase, err)
			}
		}
	}
	return p.datasets.Delete(ds.ID)
}
