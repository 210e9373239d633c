package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/covtrace/tracerd/internal/app"
	"github.com/covtrace/tracerd/internal/config"
	"github.com/covtrace/tracerd/internal/metrics"
	"github.com/covtrace/tracerd/internal/store/bucket"
)

// TestNewServer ensures timeouts and addr applied.
func TestNewServer(t *testing.T) {
	cfg := &config.Config{Addr: ":9999"}
	srv := newServer(cfg, http.NewServeMux())
	if srv.Addr != ":9999" {
		t.Fatalf("addr mismatch got %s", srv.Addr)
	}
	if srv.ReadTimeout == 0 || srv.WriteTimeout == 0 {
		t.Fatalf("expected non-zero timeouts")
	}
}

// TestBuildHandler exercises route wiring end to end against real adapters.
func TestBuildHandler_Routes(t *testing.T) {
	tmp := t.TempDir()
	clock := realClock{}
	st, err := bucket.Open(filepath.Join(tmp, "buckets"), clock, 504)
	if err != nil {
		t.Fatalf("open bucket store: %v", err)
	}
	db, err := sql.Open("sqlite3", filepath.Join(tmp, "tracerd.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	mgr := metrics.New(db, metrics.Config{})
	if err := mgr.InitSchema(context.Background()); err != nil {
		t.Fatalf("init metrics schema: %v", err)
	}

	cfg := &config.Config{MaxCheckContacts: 100}
	svc := &app.Service{Store: st}
	h := buildHandler(cfg, svc, st, mgr)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("healthz status got %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("readyz status got %d", rr.Code)
	}

	since := time.Now().Add(-time.Hour).Unix()
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, fmt.Sprintf("/fetch/%d", since), nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("fetch status got %d body %s", rr.Code, rr.Body)
	}
	if !strings.Contains(rr.Body.String(), `"codes"`) {
		t.Fatalf("fetch body missing codes: %s", rr.Body)
	}

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("metrics status got %d", rr.Code)
	}
}
