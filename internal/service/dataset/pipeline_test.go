package dataset

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/kgbold/bold/internal/config"
	"github.com/kgbold/bold/internal/model"
	"github.com/kgbold/bold/internal/service/lodc"
	"github.com/kgbold/bold/internal/service/search"
	"github.com/kgbold/bold/internal/service/stardog"
	"github.com/kgbold/bold/internal/service/terms"
	"github.com/kgbold/bold/internal/testutil"
)

// mockDatasetRepo 函数字段式的假数据集仓库
type mockDatasetRepo struct {
	mu sync.Mutex
	ds *model.Dataset
}

func (m *mockDatasetRepo) Create(dataset *model.Dataset) error { m.ds = dataset; return nil }

func (m *mockDatasetRepo) GetByID(id string) (*model.Dataset, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ds == nil || m.ds.ID != id {
		return nil, fmt.Errorf("dataset %s not found", id)
	}
	copied := *m.ds
	return &copied, nil
}

func (m *mockDatasetRepo) List(offset, limit int, search string) ([]*model.Dataset, int64, error) {
	return nil, 0, nil
}

func (m *mockDatasetRepo) Update(dataset *model.Dataset) error { m.ds = dataset; return nil }

func (m *mockDatasetRepo) UpdateFields(id string, fields map[string]interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if state, ok := fields["state"].(model.DatasetState); ok {
		m.ds.State = state
	}
	if db, ok := fields["local_database"].(string); ok {
		m.ds.LocalDatabase = db
	}
	if endpoint, ok := fields["sparql_endpoint"].(string); ok {
		m.ds.SparqlEndpoint = endpoint
	}
	if stats, ok := fields["statistics"].(model.JSON); ok {
		m.ds.Statistics = stats
	}
	if namespaces, ok := fields["namespaces"].(model.Namespaces); ok {
		m.ds.Namespaces = namespaces
	}
	return nil
}

func (m *mockDatasetRepo) Delete(id string) error {
	m.ds = nil
	return nil
}

func (m *mockDatasetRepo) FindBySparqlEndpoint(endpoint string) (*model.Dataset, error) {
	return nil, fmt.Errorf("not found")
}

// recordingIndex 记录操作的假词项索引
type recordingIndex struct {
	mu      sync.Mutex
	ensured []string
	deleted []string
	docs    map[string]int
}

func newRecordingIndex() *recordingIndex {
	return &recordingIndex{docs: map[string]int{}}
}

func (r *recordingIndex) EnsureIndex(ctx context.Context, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ensured = append(r.ensured, name)
	return nil
}

func (r *recordingIndex) AddDocuments(ctx context.Context, name string, docs []map[string]interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.docs[name] += len(docs)
	return nil
}

func (r *recordingIndex) Search(ctx context.Context, name, query, filter string, limit, offset int64) (*search.IndexSearchResult, error) {
	return &search.IndexSearchResult{}, nil
}

func (r *recordingIndex) DeleteIndex(ctx context.Context, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deleted = append(r.deleted, name)
	return nil
}

func (r *recordingIndex) HasIndex(ctx context.Context, name string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, n := range r.ensured {
		if n == name {
			return true, nil
		}
	}
	return false, nil
}

// stardogStub 覆盖流水线用到的 Stardog 端点
type stardogStub struct {
	mu       sync.Mutex
	created  []string
	dropped  []string
	failSize bool
}

func (s *stardogStub) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/admin/databases":
			r.ParseMultipartForm(1 << 20)
			s.created = append(s.created, r.FormValue("root"))
		case r.Method == http.MethodDelete && strings.HasPrefix(r.URL.Path, "/admin/databases/"):
			s.dropped = append(s.dropped, strings.TrimPrefix(r.URL.Path, "/admin/databases/"))
		case strings.HasSuffix(r.URL.Path, "/size"):
			if s.failSize {
				http.Error(w, "boom", http.StatusInternalServerError)
				return
			}
			w.Write([]byte("42"))
		case strings.HasSuffix(r.URL.Path, "/namespaces"):
			w.Write([]byte(`{"namespaces":[{"prefix":"ex","name":"http://example.org/"}]}`))
		case strings.HasSuffix(r.URL.Path, "/query"):
			w.Write([]byte(testutil.TermExportTSV("<http://example.org/thing>\t12\t\"Thing\"@en")))
		default:
			http.NotFound(w, r)
		}
	})
}

type pipelineEnv struct {
	repo        *mockDatasetRepo
	index       *recordingIndex
	stub        *stardogStub
	pipe        *Pipeline
	dataDir     string
	downloadDir string
}

func newPipelineEnv(t *testing.T) *pipelineEnv {
	t.Helper()

	stub := &stardogStub{}
	ts := httptest.NewServer(stub.handler())
	t.Cleanup(ts.Close)

	store := stardog.NewClient(&config.StardogConfig{
		Endpoint:     ts.URL,
		ImportRoot:   "/var/data/import",
		DownloadRoot: "/var/data/downloads",
	}, ts.Client())

	repo := &mockDatasetRepo{}
	index := newRecordingIndex()
	dataDir := t.TempDir()
	downloadDir := t.TempDir()

	indexer := terms.NewIndexer(store, index, dataDir, 3, 5000, 60)
	downloader := NewDownloader(downloadDir, 10)
	loader := NewLoader(store, t.TempDir(), "/var/data/import", downloadDir, "/var/data/downloads")
	lodcClient := lodc.NewClient("https://lod-cloud.net", 0, ts.Client(), nil)
	uploads := NewUploadStore(t.TempDir())

	return &pipelineEnv{
		repo:        repo,
		index:       index,
		stub:        stub,
		pipe:        NewPipeline(repo, store, downloader, loader, indexer, lodcClient, uploads, 3),
		dataDir:     dataDir,
		downloadDir: downloadDir,
	}
}

func TestPipelineImportsFromURLs(t *testing.T) {
	files := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<a> <b> <c> ."))
	}))
	defer files.Close()

	env := newPipelineEnv(t)
	env.repo.ds = &model.Dataset{
		ID:         "ds1",
		Mode:       model.ModeLocal,
		SearchMode: model.SearchLocal,
		State:      model.DatasetQueued,
		Source: model.JSON{
			"source_type": model.SourceURLs,
			"urls":        []interface{}{files.URL + "/people.ttl"},
		},
	}

	if err := env.pipe.Run(context.Background(), "ds1"); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	ds := env.repo.ds
	if ds.State != model.DatasetImported {
		t.Errorf("expected IMPORTED, got %s", ds.State)
	}
	if ds.LocalDatabase == "" {
		t.Error("expected local database to be recorded")
	}
	if ds.TripleCount() != 42 {
		t.Errorf("expected triple count 42, got %d", ds.TripleCount())
	}
	if len(ds.Namespaces) != 1 || ds.Namespaces[0].Prefix != "ex" {
		t.Errorf("unexpected namespaces %+v", ds.Namespaces)
	}
	// 数据集索引与基础词表都要就位
	if _, ok := env.index.docs[ds.LocalDatabase]; !ok {
		t.Error("expected dataset term index to be populated")
	}
	if _, ok := env.index.docs[terms.DefaultIndexName]; !ok {
		t.Error("expected default term index to be populated")
	}
	// 导出暂存文件必须清理
	entries, _ := os.ReadDir(env.dataDir)
	if len(entries) != 0 {
		t.Errorf("expected scratch files removed, found %d", len(entries))
	}
	// 下载暂存文件同样清理
	downloads, _ := os.ReadDir(env.downloadDir)
	if len(downloads) != 0 {
		t.Errorf("expected downloaded files removed, found %d", len(downloads))
	}
}

func TestPipelineFailsWhenAnyDownloadFails(t *testing.T) {
	files := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "bad.ttl") {
			http.Error(w, "gone", http.StatusInternalServerError)
			return
		}
		w.Write([]byte("<a> <b> <c> ."))
	}))
	defer files.Close()

	env := newPipelineEnv(t)
	env.repo.ds = &model.Dataset{
		ID:         "ds1",
		Mode:       model.ModeLocal,
		SearchMode: model.SearchWikidata,
		State:      model.DatasetQueued,
		Source: model.JSON{
			"source_type": model.SourceURLs,
			"urls": []interface{}{
				files.URL + "/good.ttl",
				files.URL + "/bad.ttl",
			},
		},
	}

	if err := env.pipe.Run(context.Background(), "ds1"); err == nil {
		t.Fatal("expected run to fail when one download fails")
	}
	if env.repo.ds.State != model.DatasetFailed {
		t.Errorf("expected FAILED, got %s", env.repo.ds.State)
	}
	env.stub.mu.Lock()
	created := len(env.stub.created)
	env.stub.mu.Unlock()
	if created != 0 {
		t.Error("no database may be created when downloads fail")
	}
	// 失败前已下载的文件也要清理
	downloads, _ := os.ReadDir(env.downloadDir)
	if len(downloads) != 0 {
		t.Errorf("expected partial downloads removed, found %d", len(downloads))
	}
}

func TestPipelineLODCUsesFirstWorkingCandidate(t *testing.T) {
	var mu sync.Mutex
	hits := map[string]int{}
	catalog := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		hits[r.URL.Path]++
		mu.Unlock()
		switch r.URL.Path {
		case "/json/cities":
			host := "http://" + r.Host
			fmt.Fprintf(w, `{"identifier":"cities","full_download":[
				{"media_type":"text/turtle","download_url":%q,"status":"OK"},
				{"media_type":"text/turtle","download_url":%q,"status":"OK"},
				{"media_type":"text/turtle","download_url":%q,"status":"OK"}]}`,
				host+"/dumps/broken.ttl", host+"/dumps/cities.ttl", host+"/dumps/extra.ttl")
		case "/dumps/broken.ttl":
			http.Error(w, "mirror down", http.StatusBadGateway)
		case "/dumps/cities.ttl", "/dumps/extra.ttl":
			w.Write([]byte("<a> <b> <c> ."))
		default:
			http.NotFound(w, r)
		}
	}))
	defer catalog.Close()

	env := newPipelineEnv(t)
	env.pipe.lodc = lodc.NewClient(catalog.URL, 0, catalog.Client(), nil)
	env.repo.ds = &model.Dataset{
		ID:         "ds1",
		Mode:       model.ModeLocal,
		SearchMode: model.SearchWikidata,
		State:      model.DatasetQueued,
		Source: model.JSON{
			"source_type": model.SourceLODC,
			"lodc_id":     "cities",
		},
	}

	if err := env.pipe.Run(context.Background(), "ds1"); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if env.repo.ds.State != model.DatasetImported {
		t.Errorf("expected IMPORTED, got %s", env.repo.ds.State)
	}

	mu.Lock()
	defer mu.Unlock()
	if hits["/dumps/broken.ttl"] != 1 {
		t.Errorf("broken candidate should be tried once, got %d", hits["/dumps/broken.ttl"])
	}
	if hits["/dumps/cities.ttl"] != 1 {
		t.Errorf("first working candidate should be downloaded, got %d", hits["/dumps/cities.ttl"])
	}
	// 拿到第一个可用转储后停止尝试
	if hits["/dumps/extra.ttl"] != 0 {
		t.Errorf("later candidates must not be downloaded, got %d", hits["/dumps/extra.ttl"])
	}
}

func TestPipelineCleansUploadedFiles(t *testing.T) {
	env := newPipelineEnv(t)

	uploadDir := t.TempDir()
	path := uploadDir + "/people.ttl"
	if err := os.WriteFile(path, []byte("<a> <b> <c> ."), 0o644); err != nil {
		t.Fatal(err)
	}

	env.repo.ds = &model.Dataset{
		ID:         "ds1",
		Mode:       model.ModeLocal,
		SearchMode: model.SearchWikidata,
		State:      model.DatasetQueued,
		Source: model.JSON{
			"source_type": model.SourceUpload,
			"files":       []interface{}{path},
		},
	}

	if err := env.pipe.Run(context.Background(), "ds1"); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if env.repo.ds.State != model.DatasetImported {
		t.Errorf("expected IMPORTED, got %s", env.repo.ds.State)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("uploaded file must be removed after import")
	}
}

func TestPipelineDeduplicatesURLs(t *testing.T) {
	var mu sync.Mutex
	requests := 0
	files := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		requests++
		mu.Unlock()
		w.Write([]byte("<a> <b> <c> ."))
	}))
	defer files.Close()

	env := newPipelineEnv(t)
	env.repo.ds = &model.Dataset{
		ID:         "ds1",
		Mode:       model.ModeLocal,
		SearchMode: model.SearchWikidata,
		State:      model.DatasetQueued,
		Source: model.JSON{
			"source_type": model.SourceURLs,
			"urls": []interface{}{
				files.URL + "/people.ttl",
				files.URL + "/people.ttl",
			},
		},
	}

	if err := env.pipe.Run(context.Background(), "ds1"); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if requests != 1 {
		t.Errorf("duplicate url should be fetched once, got %d requests", requests)
	}
}

func TestPipelineExistingDatabaseSkipsLoad(t *testing.T) {
	env := newPipelineEnv(t)
	env.repo.ds = &model.Dataset{
		ID:         "ds2",
		Mode:       model.ModeLocal,
		SearchMode: model.SearchWikidata,
		State:      model.DatasetQueued,
		Source: model.JSON{
			"source_type": model.SourceExisting,
			"database":    "existdb",
		},
	}

	if err := env.pipe.Run(context.Background(), "ds2"); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(env.stub.created) != 0 {
		t.Error("existing source must not create a database")
	}
	ds := env.repo.ds
	if ds.LocalDatabase != "existdb" || ds.State != model.DatasetImported {
		t.Errorf("unexpected dataset: db=%s state=%s", ds.LocalDatabase, ds.State)
	}
	// 统计照常刷新
	if ds.TripleCount() != 42 {
		t.Errorf("expected stats refresh, got %d", ds.TripleCount())
	}
	// 搜索模式不是本地时不建数据集索引
	if _, ok := env.index.docs["existdb"]; ok {
		t.Error("non-local search mode should not build a dataset index")
	}
}

func TestPipelineSparqlSource(t *testing.T) {
	endpoint := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(testutil.SparqlCountJSON(1234)))
	}))
	defer endpoint.Close()

	env := newPipelineEnv(t)
	env.repo.ds = &model.Dataset{
		ID:         "ds3",
		Mode:       model.ModeSparql,
		SearchMode: model.SearchWikidata,
		State:      model.DatasetQueued,
		Source: model.JSON{
			"source_type": model.SourceSparql,
			"sparql":      endpoint.URL,
		},
	}

	if err := env.pipe.Run(context.Background(), "ds3"); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	ds := env.repo.ds
	if ds.State != model.DatasetImported || ds.SparqlEndpoint != endpoint.URL {
		t.Errorf("unexpected dataset: state=%s endpoint=%s", ds.State, ds.SparqlEndpoint)
	}
	if ds.TripleCount() != 1234 {
		t.Errorf("expected remote count 1234, got %d", ds.TripleCount())
	}
	if len(ds.Namespaces) != 0 {
		t.Errorf("remote datasets carry no namespaces, got %+v", ds.Namespaces)
	}
}

func TestPipelineFailureDropsCreatedDatabase(t *testing.T) {
	files := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<a> <b> <c> ."))
	}))
	defer files.Close()

	env := newPipelineEnv(t)
	env.stub.failSize = true
	env.repo.ds = &model.Dataset{
		ID:         "ds4",
		Mode:       model.ModeLocal,
		SearchMode: model.SearchLocal,
		State:      model.DatasetQueued,
		Source: model.JSON{
			"source_type": model.SourceURLs,
			"urls":        []interface{}{files.URL + "/people.ttl"},
		},
	}

	if err := env.pipe.Run(context.Background(), "ds4"); err == nil {
		t.Fatal("expected failure when statistics refresh breaks")
	}

	if env.repo.ds.State != model.DatasetFailed {
		t.Errorf("expected FAILED, got %s", env.repo.ds.State)
	}
	env.stub.mu.Lock()
	defer env.stub.mu.Unlock()
	if len(env.stub.created) != 1 || len(env.stub.dropped) != 1 {
		t.Errorf("created database must be dropped on failure: created=%d dropped=%d",
			len(env.stub.created), len(env.stub.dropped))
	}
}

func TestPipelineUnsupportedCombination(t *testing.T) {
	env := newPipelineEnv(t)
	env.repo.ds = &model.Dataset{
		ID:         "ds5",
		Mode:       model.ModeSparql,
		SearchMode: model.SearchLocal,
		State:      model.DatasetQueued,
		Source: model.JSON{
			"source_type": model.SourceURLs,
			"urls":        []interface{}{"http://example.org/x.ttl"},
		},
	}

	if err := env.pipe.Run(context.Background(), "ds5"); err == nil {
		t.Fatal("expected error for sparql mode with urls source")
	}
	if env.repo.ds.State != model.DatasetFailed {
		t.Errorf("expected FAILED, got %s", env.repo.ds.State)
	}
}

func TestPipelineTeardown(t *testing.T) {
	env := newPipelineEnv(t)
	env.index.ensured = append(env.index.ensured, "adb123")
	env.repo.ds = &model.Dataset{
		ID:            "ds6",
		Mode:          model.ModeLocal,
		LocalDatabase: "adb123",
		Source:        model.JSON{"source_type": model.SourceURLs},
	}

	if err := env.pipe.Teardown(context.Background(), env.repo.ds); err != nil {
		t.Fatalf("Teardown failed: %v", err)
	}

	if env.repo.ds != nil {
		t.Error("expected dataset record deleted")
	}
	if len(env.index.deleted) != 1 || env.index.deleted[0] != "adb123" {
		t.Errorf("expected term index deleted, got %v", env.index.deleted)
	}
	env.stub.mu.Lock()
	defer env.stub.mu.Unlock()
	if len(env.stub.dropped) != 1 {
		t.Errorf("expected database dropped, got %v", env.stub.dropped)
	}
}

func TestPipelineTeardownKeepsExistingDatabase(t *testing.T) {
	env := newPipelineEnv(t)
	env.repo.ds = &model.Dataset{
		ID:            "ds7",
		Mode:          model.ModeLocal,
		LocalDatabase: "existdb",
		Source:        model.JSON{"source_type": model.SourceExisting, "database": "existdb"},
	}

	if err := env.pipe.Teardown(context.Background(), env.repo.ds); err != nil {
		t.Fatalf("Teardown failed: %v", err)
	}

	env.stub.mu.Lock()
	defer env.stub.mu.Unlock()
	// 复用的数据库不属于该数据集，删除时保留
	if len(env.stub.dropped) != 0 {
		t.Errorf("pre-existing database must be kept, got drops %v", env.stub.dropped)
	}
}
