package query

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

func TestSparqlQueryRejectsMissingLimit(t *testing.T) {
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))
	defer ts.Close()

	svc := NewSparqlService(ts.URL, 3, nil)
	_, err := svc.Query(context.Background(), "SELECT * WHERE { ?s ?p ?o }", Options{})
	if !errors.Is(err, ErrMissingLimit) {
		t.Fatalf("expected ErrMissingLimit, got %v", err)
	}
	// 校验发生在网络调用之前
	if atomic.LoadInt32(&calls) != 0 {
		t.Errorf("expected no request, got %d", calls)
	}
}

func TestSparqlQueryIgnoreLimitBypass(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"results":{"bindings":[]}}`))
	}))
	defer ts.Close()

	svc := NewSparqlService(ts.URL, 3, nil)
	result, err := svc.Query(context.Background(), "SELECT * WHERE { ?s ?p ?o }", Options{IgnoreLimit: true})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if result.ContentType != ContentTypeSparqlJSON {
		t.Errorf("unexpected content type %s", result.ContentType)
	}
}

func TestSparqlQueryFollowsRedirects(t *testing.T) {
	var mux http.ServeMux
	ts := httptest.NewServer(&mux)
	defer ts.Close()

	mux.HandleFunc("/a", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, ts.URL+"/b", http.StatusSeeOther)
	})
	mux.HandleFunc("/b", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, ts.URL+"/c", http.StatusSeeOther)
	})
	mux.HandleFunc("/c", func(w http.ResponseWriter, r *http.Request) {
		// 重定向后重发的仍然是原始查询
		if r.Method != http.MethodPost {
			t.Errorf("expected POST after redirect, got %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/sparql-query" {
			t.Errorf("unexpected content type %s", ct)
		}
		w.Write([]byte(`{"results":{"bindings":[]}}`))
	})

	svc := NewSparqlService(ts.URL+"/a", 3, nil)
	if _, err := svc.Query(context.Background(), "SELECT * WHERE { ?s ?p ?o } LIMIT 1", Options{}); err != nil {
		t.Fatalf("Query failed: %v", err)
	}
}

func TestSparqlQueryTooManyRedirects(t *testing.T) {
	var mux http.ServeMux
	ts := httptest.NewServer(&mux)
	defer ts.Close()

	for i := 0; i < 6; i++ {
		step := i
		mux.HandleFunc(fmt.Sprintf("/r%d", step), func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, fmt.Sprintf("%s/r%d", ts.URL, step+1), http.StatusSeeOther)
		})
	}

	svc := NewSparqlService(ts.URL+"/r0", 3, nil)
	_, err := svc.Query(context.Background(), "SELECT * WHERE { ?s ?p ?o } LIMIT 1", Options{})

	var execErr *ExecutionError
	if !errors.As(err, &execErr) {
		t.Fatalf("expected ExecutionError, got %v", err)
	}
	if execErr.Status != http.StatusSeeOther {
		t.Errorf("unexpected status %d", execErr.Status)
	}
}

func TestSparqlQueryPassesLimitAndTimeout(t *testing.T) {
	var gotLimit, gotTimeout string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotLimit = r.URL.Query().Get("limit")
		gotTimeout = r.URL.Query().Get("timeout")
		w.Write([]byte(`{}`))
	}))
	defer ts.Close()

	svc := NewSparqlService(ts.URL, 3, nil)
	// 文本不带 LIMIT 时叠加参数上限
	if _, err := svc.Query(context.Background(), "SELECT * WHERE { ?s ?p ?o }", Options{Limit: 10, TimeoutMs: 5000, IgnoreLimit: true}); err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if gotLimit != "10" || gotTimeout != "5000" {
		t.Errorf("expected limit=10 timeout=5000, got limit=%q timeout=%q", gotLimit, gotTimeout)
	}
}

func TestSparqlQueryErrorBody(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "syntax error near '}'", http.StatusBadRequest)
	}))
	defer ts.Close()

	svc := NewSparqlService(ts.URL, 3, nil)
	_, err := svc.Query(context.Background(), "SELECT * LIMIT 1", Options{})

	var execErr *ExecutionError
	if !errors.As(err, &execErr) {
		t.Fatalf("expected ExecutionError, got %v", err)
	}
	if execErr.Status != http.StatusBadRequest || execErr.Message != "syntax error near '}'" {
		t.Errorf("unexpected error: %+v", execErr)
	}
}
