package service

import (
	"log"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/kgbold/bold/internal/config"
	"github.com/kgbold/bold/internal/repository"
	"github.com/kgbold/bold/internal/service/dataset"
	"github.com/kgbold/bold/internal/service/lodc"
	"github.com/kgbold/bold/internal/service/search"
	"github.com/kgbold/bold/internal/service/stardog"
	"github.com/kgbold/bold/internal/service/task"
	"github.com/kgbold/bold/internal/service/terms"
)

// Services 服务集合
type Services struct {
	// 业务服务
	Dataset *dataset.Service
	LODC    *lodc.Client
	Runner  *task.Runner

	// 基础组件
	Store   *stardog.Client
	Index   search.TermIndex
	Indexer *terms.Indexer
	Config  *config.Config
}

// NewServices 创建所有服务
func NewServices(repos *repository.Repositories, cfg *config.Config, redisClient *redis.Client) (*Services, error) {
	store := stardog.NewClient(&cfg.Stardog, nil)
	index := search.NewMeiliIndex(cfg.Meili.Host, cfg.Meili.APIKey)

	indexer := terms.NewIndexer(store, index, cfg.Storage.DataDir,
		cfg.Import.MinTermCount, cfg.Import.IndexBatchSize, cfg.Import.ExportTimeout)

	var lodcHTTP *http.Client
	if cfg.Lodc.Timeout > 0 {
		lodcHTTP = &http.Client{Timeout: time.Duration(cfg.Lodc.Timeout) * time.Second}
	}
	lodcClient := lodc.NewClient(cfg.Lodc.Endpoint,
		time.Duration(cfg.Lodc.CacheTTL)*time.Second, lodcHTTP, redisClient)

	runner := task.NewRunner(repos.Task, redisClient, cfg.Import.Workers)

	downloader := dataset.NewDownloader(cfg.Storage.DownloadDir, cfg.Import.DownloadTimeout)
	loader := dataset.NewLoader(store,
		cfg.Storage.ImportDir, cfg.Stardog.ImportRoot,
		cfg.Storage.DownloadDir, cfg.Stardog.DownloadRoot)
	uploads := dataset.NewUploadStore(cfg.Storage.ImportDir)
	pipeline := dataset.NewPipeline(repos.Dataset, store, downloader, loader,
		indexer, lodcClient, uploads, cfg.Query.MaxRedirects)
	datasetService := dataset.NewService(repos, runner, pipeline, store, index, uploads, cfg.Query)

	if err := datasetService.SeedWikidata(); err != nil {
		log.Printf("Warning: %v", err)
	}

	return &Services{
		Dataset: datasetService,
		LODC:    lodcClient,
		Runner:  runner,
		Store:   store,
		Index:   index,
		Indexer: indexer,
		Config:  cfg,
	}, nil
}
