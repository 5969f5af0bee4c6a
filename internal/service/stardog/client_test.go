package stardog

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/kgbold/bold/internal/config"
)

func testClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)
	return NewClient(&config.StardogConfig{
		Endpoint: ts.URL,
		Username: "admin",
		Password: "admin",
	}, ts.Client())
}

func TestCreateDatabasePayload(t *testing.T) {
	var root map[string]interface{}
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/admin/databases" || r.Method != http.MethodPost {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if user, pass, ok := r.BasicAuth(); !ok || user != "admin" || pass != "admin" {
			t.Error("missing basic auth")
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("failed to parse multipart: %v", err)
		}
		if err := json.Unmarshal([]byte(r.FormValue("root")), &root); err != nil {
			t.Fatalf("failed to decode root field: %v", err)
		}
	}))

	err := client.CreateDatabase(context.Background(), "a1234567890",
		[]string{"/var/data/import/people.ttl"}, nil)
	if err != nil {
		t.Fatalf("CreateDatabase failed: %v", err)
	}

	if root["dbname"] != "a1234567890" {
		t.Errorf("unexpected dbname %v", root["dbname"])
	}
	options := root["options"].(map[string]interface{})
	if options["strict.parsing"] != "false" {
		t.Errorf("expected lenient parsing option, got %v", options)
	}
	if options["index.statistics.chains.enabled"] != "false" {
		t.Errorf("expected chain statistics disabled, got %v", options)
	}
	files := root["files"].([]interface{})
	if len(files) != 1 || files[0].(map[string]interface{})["filename"] != "/var/data/import/people.ttl" {
		t.Errorf("unexpected files %v", files)
	}
}

func TestSizeParsesPlainNumber(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/testdb/size" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("exact") != "false" {
			t.Error("size should be requested as an estimate")
		}
		w.Write([]byte("12345\n"))
	}))

	size, err := client.Size(context.Background(), "testdb")
	if err != nil {
		t.Fatalf("Size failed: %v", err)
	}
	if size != 12345 {
		t.Errorf("expected 12345, got %d", size)
	}
}

func TestNamespacesDecoding(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"namespaces": []map[string]string{
				{"prefix": "rdfs", "name": "http://www.w3.org/2000/01/rdf-schema#"},
			},
		})
	}))

	namespaces, err := client.Namespaces(context.Background(), "testdb")
	if err != nil {
		t.Fatalf("Namespaces failed: %v", err)
	}
	if len(namespaces) != 1 || namespaces[0].Prefix != "rdfs" {
		t.Errorf("unexpected namespaces %+v", namespaces)
	}
}

func TestQuerySendsSparqlBody(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/testdb/query" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/sparql-query" {
			t.Errorf("unexpected content type %s", ct)
		}
		if got := r.URL.Query().Get("limit"); got != "7" {
			t.Errorf("expected limit=7, got %q", got)
		}
		if got := r.URL.Query().Get("timeout"); got != "1000" {
			t.Errorf("expected timeout=1000, got %q", got)
		}
		w.Write([]byte(`{"results":{"bindings":[]}}`))
	}))

	limit := 7
	data, err := client.Query(context.Background(), "testdb",
		"SELECT * WHERE { ?s ?p ?o }", "application/sparql-results+json", &limit, 1000)
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(data) == 0 {
		t.Error("expected response body")
	}
}

func TestQueryToFileStreamsBody(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("?iri\t?count\t?label\n<http://example.org/a>\t10\t\n"))
	}))

	path := filepath.Join(t.TempDir(), "terms.tsv")
	if err := client.QueryToFile(context.Background(), "testdb",
		"SELECT ...", "text/tab-separated-values", 1000, path); err != nil {
		t.Fatalf("QueryToFile failed: %v", err)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read export: %v", err)
	}
	if len(content) == 0 {
		t.Error("expected exported rows")
	}
}

func TestErrorMapping(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "db already exists", http.StatusConflict)
	}))

	err := client.CreateDatabase(context.Background(), "dup", nil, nil)

	var storeErr *Error
	if !errors.As(err, &storeErr) {
		t.Fatalf("expected stardog.Error, got %v", err)
	}
	if storeErr.Status != http.StatusConflict || storeErr.Message != "db already exists" {
		t.Errorf("unexpected error %+v", storeErr)
	}
}
