package dataset

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"

	"github.com/kgbold/bold/internal/config"
	"github.com/kgbold/bold/internal/service/stardog"
)

func TestNewDatabaseName(t *testing.T) {
	pattern := regexp.MustCompile(`^a[a-z0-9]{10}$`)
	seen := map[string]struct{}{}
	for i := 0; i < 20; i++ {
		name := NewDatabaseName()
		if !pattern.MatchString(name) {
			t.Fatalf("invalid database name %q", name)
		}
		seen[name] = struct{}{}
	}
	if len(seen) < 2 {
		t.Error("database names should vary between calls")
	}
}

func TestLoaderMapsPaths(t *testing.T) {
	l := NewLoader(nil,
		"/srv/bold/import", "/var/data/import",
		"/srv/bold/downloads", "/var/data/downloads")

	tests := []struct {
		in   string
		want string
	}{
		{"/srv/bold/downloads/abc_people.ttl", "/var/data/downloads/abc_people.ttl"},
		{"/srv/bold/import/upload.nt", "/var/data/import/upload.nt"},
		{"/elsewhere/file.ttl", "/elsewhere/file.ttl"},
	}
	for _, tt := range tests {
		if got := l.mapPath(tt.in); got != tt.want {
			t.Errorf("mapPath(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestLoaderCreatesDatabase(t *testing.T) {
	var root map[string]interface{}
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("failed to parse multipart: %v", err)
		}
		if err := json.Unmarshal([]byte(r.FormValue("root")), &root); err != nil {
			t.Fatalf("failed to decode root: %v", err)
		}
	}))
	defer ts.Close()

	store := stardog.NewClient(&config.StardogConfig{Endpoint: ts.URL}, ts.Client())
	l := NewLoader(store,
		"/srv/bold/import", "/var/data/import",
		"/srv/bold/downloads", "/var/data/downloads")

	name, err := l.Load(context.Background(), "", []string{"/srv/bold/downloads/people.ttl"})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if name == "" || root["dbname"] != name {
		t.Errorf("database name mismatch: returned %q, sent %v", name, root["dbname"])
	}

	files := root["files"].([]interface{})
	if got := files[0].(map[string]interface{})["filename"]; got != "/var/data/downloads/people.ttl" {
		t.Errorf("expected mapped path, got %v", got)
	}
}

func TestLoaderRejectsEmptyFileList(t *testing.T) {
	l := NewLoader(nil, "", "", "", "")
	if _, err := l.Load(context.Background(), "", nil); err == nil {
		t.Fatal("expected error for empty file list")
	}
}

func TestLoaderRejectsExistingDatabase(t *testing.T) {
	l := NewLoader(nil, "", "", "", "")
	_, err := l.Load(context.Background(), "db1", []string{"/tmp/people.ttl"})
	if !errors.Is(err, ErrAppendUnsupported) {
		t.Fatalf("expected ErrAppendUnsupported, got %v", err)
	}
}
