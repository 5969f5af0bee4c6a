package query

import (
	"context"
	"errors"
	"testing"

	"github.com/kgbold/bold/internal/service/stardog"
)

// fakeStore 函数字段式的假 Stardog 客户端
type fakeStore struct {
	queryFunc func(ctx context.Context, database, text, accept string, limit *int, timeoutMs int) ([]byte, error)
}

func (f *fakeStore) Query(ctx context.Context, database, text, accept string, limit *int, timeoutMs int) ([]byte, error) {
	return f.queryFunc(ctx, database, text, accept, limit, timeoutMs)
}

func TestLocalQueryAppliesLimit(t *testing.T) {
	var gotLimit *int
	store := &fakeStore{
		queryFunc: func(ctx context.Context, database, text, accept string, limit *int, timeoutMs int) ([]byte, error) {
			gotLimit = limit
			return []byte(`{}`), nil
		},
	}

	svc := NewLocalService("testdb", store)
	result, err := svc.Query(context.Background(), "SELECT * WHERE { ?s ?p ?o }", Options{Limit: 25})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if gotLimit == nil || *gotLimit != 25 {
		t.Errorf("expected limit 25 to be passed, got %v", gotLimit)
	}
	if result.ContentType != ContentTypeSparqlJSON {
		t.Errorf("unexpected content type %s", result.ContentType)
	}
}

func TestLocalQueryKeepsInlineLimit(t *testing.T) {
	var gotLimit *int
	store := &fakeStore{
		queryFunc: func(ctx context.Context, database, text, accept string, limit *int, timeoutMs int) ([]byte, error) {
			gotLimit = limit
			return []byte(`{}`), nil
		},
	}

	svc := NewLocalService("testdb", store)
	// 查询文本自带 LIMIT 时不叠加调用方上限
	if _, err := svc.Query(context.Background(), "SELECT * WHERE { ?s ?p ?o } LIMIT 5", Options{Limit: 25}); err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if gotLimit != nil {
		t.Errorf("expected no limit override, got %v", *gotLimit)
	}
}

func TestLocalQueryMapsStoreErrors(t *testing.T) {
	store := &fakeStore{
		queryFunc: func(ctx context.Context, database, text, accept string, limit *int, timeoutMs int) ([]byte, error) {
			return nil, &stardog.Error{Status: 400, Message: "malformed query"}
		},
	}

	svc := NewLocalService("testdb", store)
	_, err := svc.Query(context.Background(), "SELECT * WHERE { ?s ?p ?o }", Options{})

	var execErr *ExecutionError
	if !errors.As(err, &execErr) {
		t.Fatalf("expected ExecutionError, got %v", err)
	}
	if execErr.Status != 400 || execErr.Message != "malformed query" {
		t.Errorf("unexpected error mapping: %+v", execErr)
	}
}

func TestLocalQueryGraphContentType(t *testing.T) {
	store := &fakeStore{
		queryFunc: func(ctx context.Context, database, text, accept string, limit *int, timeoutMs int) ([]byte, error) {
			if accept != ContentTypeNTriples {
				t.Errorf("graph query should request n-triples, got %s", accept)
			}
			return []byte(""), nil
		},
	}

	svc := NewLocalService("testdb", store)
	result, err := svc.Query(context.Background(), "CONSTRUCT { ?s ?p ?o } WHERE { ?s ?p ?o } LIMIT 1", Options{})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if result.ContentType != ContentTypeNTriples {
		t.Errorf("unexpected content type %s", result.ContentType)
	}
}
