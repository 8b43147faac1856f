package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestFetchRoute(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/buffspecs/research" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(`[{"buff_id":1}]`))
	}))
	defer srv.Close()

	c := New(srv.URL+"/", WithRateLimit(0, 0))
	body, err := c.Fetch(context.Background(), "/v1/buffspecs/research")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if string(body) != `[{"buff_id":1}]` {
		t.Errorf("body = %s", body)
	}
}

func TestFetchStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone fishing", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := New(srv.URL).Fetch(context.Background(), "building")
	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("expected *StatusError, got %v", err)
	}
	if se.Status != http.StatusServiceUnavailable || se.Route != "building" || se.Body != "gone fishing" {
		t.Errorf("status error = %+v", se)
	}
}

func TestFetchIsRateLimited(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	c := New(srv.URL, WithRateLimit(1, 1))
	if _, err := c.Fetch(context.Background(), "research"); err != nil {
		t.Fatal(err)
	}

	// The burst is spent; the next request cannot start before the deadline
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := c.Fetch(ctx, "research"); err == nil {
		t.Error("second request should be throttled past the deadline")
	}
	if hits.Load() != 1 {
		t.Errorf("server saw %d requests, want 1", hits.Load())
	}
}
