package mediamtx

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestClientPath(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v3/paths/list" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"itemCount":1,"items":[{"name":"live","source":{"type":"rtspSession"},"ready":true,"readers":[]}]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	paths, err := c.ListPaths(context.Background())
	if err != nil || len(paths) != 1 {
		t.Fatalf("ListPaths() = %v, %v", paths, err)
	}

	p, err := c.Path(context.Background(), "live")
	if err != nil {
		t.Fatalf("Path() error = %v", err)
	}
	if !p.Ready || p.Source == nil || p.Source.Type != "rtspSession" {
		t.Errorf("Path() = %+v", p)
	}

	if _, err := c.Path(context.Background(), "other"); !errors.Is(err, ErrPathNotFound) {
		t.Errorf("Path(other) error = %v, want ErrPathNotFound", err)
	}
}

func TestClientUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	c := NewClient(srv.URL)
	if _, err := c.Path(context.Background(), "live"); err == nil || errors.Is(err, ErrPathNotFound) {
		t.Errorf("Path() error = %v, want request failure on 503", err)
	}

	srv.Close()
	if _, err := c.ListPaths(context.Background()); err == nil {
		t.Error("ListPaths() expected error on closed server")
	}
}
