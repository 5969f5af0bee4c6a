// Package dataset 数据集的创建、导入、查询与搜索
package dataset

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/kgbold/bold/internal/config"
	"github.com/kgbold/bold/internal/model"
	"github.com/kgbold/bold/internal/repository"
	"github.com/kgbold/bold/internal/service/query"
	"github.com/kgbold/bold/internal/service/search"
	"github.com/kgbold/bold/internal/service/stardog"
	"github.com/kgbold/bold/internal/service/task"
	"github.com/kgbold/bold/internal/service/terms"
)

// OwnerKind 任务记录中数据集所有者的类型标签
const OwnerKind = "dataset"

const wikidataSparqlEndpoint = "https://query.wikidata.org/sparql"

// Service 数据集服务
type Service struct {
	datasets repository.DatasetRepository
	tasks    repository.TaskRepository
	runner   *task.Runner
	pipeline *Pipeline
	store    *stardog.Client
	index    search.TermIndex
	wikidata *search.WikidataService
	uploads  *UploadStore
	http     *http.Client
	queryCfg config.QueryConfig
}

// NewService 创建数据集服务
func NewService(repos *repository.Repositories, runner *task.Runner, pipeline *Pipeline,
	store *stardog.Client, index search.TermIndex, uploads *UploadStore, queryCfg config.QueryConfig) *Service {
	httpClient := &http.Client{Timeout: 30 * time.Second}
	return &Service{
		datasets: repos.Dataset,
		tasks:    repos.Task,
		runner:   runner,
		pipeline: pipeline,
		store:    store,
		index:    index,
		wikidata: search.NewWikidataService(httpClient),
		uploads:  uploads,
		http:     httpClient,
		queryCfg: queryCfg,
	}
}

// SaveUpload 保存上传文件，返回可用于 upload 来源的路径
func (s *Service) SaveUpload(ctx context.Context, filename string, reader io.Reader) (string, error) {
	return s.uploads.Save(ctx, filename, reader)
}

// ========== 增删改查 ==========

// CreateRequest 创建数据集请求
type CreateRequest struct {
	Name        string            `json:"name" binding:"required"`
	Description string            `json:"description"`
	Source      model.JSON        `json:"source" binding:"required"`
	Mode        model.DatasetMode `json:"mode"`
	SearchMode  model.SearchMode  `json:"search_mode"`
}

// Create 创建数据集并排队导入
func (s *Service) Create(ctx context.Context, req *CreateRequest) (*model.Dataset, error) {
	if req.Mode == "" {
		req.Mode = model.ModeLocal
	}
	if req.SearchMode == "" {
		req.SearchMode = model.SearchLocal
	}

	ds := &model.Dataset{
		Name:        req.Name,
		Description: req.Description,
		Source:      req.Source,
		Mode:        req.Mode,
		SearchMode:  req.SearchMode,
		State:       model.DatasetQueued,
	}
	if err := s.datasets.Create(ds); err != nil {
		return nil, fmt.Errorf("failed to create dataset: %w", err)
	}

	if err := s.scheduleImport(ds); err != nil {
		return nil, err
	}
	return s.datasets.GetByID(ds.ID)
}

// Get 获取数据集
func (s *Service) Get(id string) (*model.Dataset, error) {
	return s.datasets.GetByID(id)
}

// List 分页列出数据集
func (s *Service) List(page, pageSize int, searchTerm string) ([]*model.Dataset, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	return s.datasets.List((page-1)*pageSize, pageSize, searchTerm)
}

// Update 更新名称和描述
func (s *Service) Update(id, name, description string) (*model.Dataset, error) {
	if _, err := s.datasets.GetByID(id); err != nil {
		return nil, err
	}
	fields := map[string]interface{}{}
	if name != "" {
		fields["name"] = name
	}
	if description != "" {
		fields["description"] = description
	}
	if len(fields) > 0 {
		if err := s.datasets.UpdateFields(id, fields); err != nil {
			return nil, err
		}
	}
	return s.datasets.GetByID(id)
}

// Delete 排队回收数据集的索引、数据库和记录
func (s *Service) Delete(id string) (string, error) {
	ds, err := s.datasets.GetByID(id)
	if err != nil {
		return "", err
	}
	return s.runner.Submit(OwnerKind, ds.ID, "delete_dataset", func(ctx context.Context) error {
		return s.pipeline.Teardown(ctx, ds)
	})
}

// ========== 导入 ==========

// Import 重新排队导入，已有导入在跑时拒绝
func (s *Service) Import(id string) (*model.Dataset, error) {
	ds, err := s.datasets.GetByID(id)
	if err != nil {
		return nil, err
	}

	running, err := s.tasks.HasRunning(OwnerKind, ds.ID)
	if err != nil {
		return nil, err
	}
	if running {
		return nil, fmt.Errorf("dataset %s already has a running task", id)
	}

	if err := s.datasets.UpdateFields(ds.ID, map[string]interface{}{
		"state": model.DatasetQueued,
	}); err != nil {
		return nil, err
	}
	if err := s.scheduleImport(ds); err != nil {
		return nil, err
	}
	return s.datasets.GetByID(ds.ID)
}

func (s *Service) scheduleImport(ds *model.Dataset) error {
	taskID, err := s.runner.Submit(OwnerKind, ds.ID, "import_dataset", func(ctx context.Context) error {
		return s.pipeline.Run(ctx, ds.ID)
	})
	if err != nil {
		return fmt.Errorf("failed to schedule import: %w", err)
	}
	return s.datasets.UpdateFields(ds.ID, map[string]interface{}{
		"import_task_id": taskID,
	})
}

// ========== 词项搜索 ==========

// SearchTermsRequest 词项搜索请求
type SearchTermsRequest struct {
	Query    string `form:"query" binding:"required"`
	Pos      string `form:"pos"`
	Limit    int    `form:"limit"`
	Offset   int    `form:"offset"`
	URLOnly  bool   `form:"url_only"`
	MinCount *int64 `form:"min_count"`
	MaxCount *int64 `form:"max_count"`
}

// SearchTerms 在数据集的搜索后端中查找词项
// 结果总是与共享基础词表的命中合并
func (s *Service) SearchTerms(ctx context.Context, id string, req *SearchTermsRequest) (*search.Result, error) {
	ds, err := s.datasets.GetByID(id)
	if err != nil {
		return nil, err
	}
	if ds.State != model.DatasetImported {
		return nil, fmt.Errorf("dataset %s is not imported yet (state=%s)", id, ds.State)
	}

	searchReq := &search.Request{
		Query:  req.Query,
		Pos:    search.TermPos(req.Pos),
		Limit:  req.Limit,
		Offset: req.Offset,
		Options: search.Options{
			URLOnly:  req.URLOnly,
			MinCount: req.MinCount,
			MaxCount: req.MaxCount,
		},
	}
	if searchReq.Pos == "" {
		searchReq.Pos = search.PosSubject
	}
	if searchReq.Limit <= 0 {
		searchReq.Limit = s.queryCfg.DefaultLimit
	}

	backend, err := s.searchBackend(ds)
	if err != nil {
		return nil, err
	}

	primary, err := backend.Search(ctx, searchReq)
	if err != nil {
		return nil, err
	}

	defaults := search.NewLocalService(s.index, terms.DefaultIndexName)
	secondary, err := defaults.Search(ctx, searchReq)
	if err != nil {
		// 基础词表不可用不应拖垮数据集自身的搜索
		log.Printf("default term index search failed: %v", err)
		secondary = &search.Result{}
	}

	return search.Merge(primary, secondary, req.Query), nil
}

// searchBackend 按数据集的搜索模式选择后端
func (s *Service) searchBackend(ds *model.Dataset) (search.Service, error) {
	switch ds.SearchMode {
	case model.SearchLocal:
		if ds.LocalDatabase == "" {
			return nil, fmt.Errorf("dataset %s has no local database", ds.ID)
		}
		return search.NewLocalService(s.index, ds.LocalDatabase), nil
	case model.SearchWikidata:
		return s.wikidata, nil
	case model.SearchTriplyDB:
		if ds.SparqlEndpoint == "" {
			return nil, fmt.Errorf("dataset %s has no sparql endpoint", ds.ID)
		}
		return search.NewTriplyDBService(s.http, ds.SparqlEndpoint), nil
	default:
		return nil, fmt.Errorf("unsupported search mode %q", ds.SearchMode)
	}
}

// ========== 查询 ==========

// QueryRequest SPARQL 查询请求
type QueryRequest struct {
	Query     string `json:"query" binding:"required"`
	Limit     int    `json:"limit"`
	TimeoutMs int    `json:"timeout_ms"`
}

// RunQuery 在数据集的查询后端上执行 SPARQL
func (s *Service) RunQuery(ctx context.Context, id string, req *QueryRequest) (*query.Result, error) {
	ds, err := s.datasets.GetByID(id)
	if err != nil {
		return nil, err
	}
	if ds.State != model.DatasetImported {
		return nil, fmt.Errorf("dataset %s is not imported yet (state=%s)", id, ds.State)
	}

	opts := query.Options{
		Limit:     req.Limit,
		TimeoutMs: req.TimeoutMs,
	}
	if opts.Limit <= 0 {
		opts.Limit = s.queryCfg.DefaultLimit
	}
	if opts.TimeoutMs <= 0 {
		opts.TimeoutMs = s.queryCfg.DefaultTimeout
	}

	svc, err := s.queryService(ds)
	if err != nil {
		return nil, err
	}
	return svc.Query(ctx, req.Query, opts)
}

// queryService 按数据集模式选择查询服务
func (s *Service) queryService(ds *model.Dataset) (query.Service, error) {
	switch ds.Mode {
	case model.ModeLocal:
		if ds.LocalDatabase == "" {
			return nil, fmt.Errorf("dataset %s has no local database", ds.ID)
		}
		return query.NewLocalService(ds.LocalDatabase, s.store), nil
	case model.ModeSparql:
		if ds.SparqlEndpoint == "" {
			return nil, fmt.Errorf("dataset %s has no sparql endpoint", ds.ID)
		}
		return query.NewSparqlService(ds.SparqlEndpoint, s.queryCfg.MaxRedirects, s.http), nil
	default:
		return nil, fmt.Errorf("unsupported dataset mode %q", ds.Mode)
	}
}

// ========== 预置数据集 ==========

// SeedWikidata 确保 Wikidata 预置数据集存在
func (s *Service) SeedWikidata() error {
	if existing, err := s.datasets.FindBySparqlEndpoint(wikidataSparqlEndpoint); err == nil && existing != nil {
		return nil
	}

	ds := &model.Dataset{
		Name:        "Wikidata",
		Description: "Wikidata knowledge base, queried through its public SPARQL endpoint",
		Source: model.JSON{
			"source_type": model.SourceSparql,
			"sparql":      wikidataSparqlEndpoint,
		},
		Mode:           model.ModeSparql,
		SearchMode:     model.SearchWikidata,
		State:          model.DatasetImported,
		SparqlEndpoint: wikidataSparqlEndpoint,
	}
	if err := s.datasets.Create(ds); err != nil {
		return fmt.Errorf("failed to seed Wikidata dataset: %w", err)
	}
	log.Printf("seeded Wikidata dataset %s", ds.ID)
	return nil
}
