package telemetry

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/yelix-cloud/yelix-sdk-go/internal/collectortest"
)

func TestMiddlewareObservesRequests(t *testing.T) {
	srv := collectortest.New("integration-key", "abc123")
	defer srv.Close()

	c, err := New(collectorConfig(srv.URL()), WithBootstrap("prod", map[string]any{}))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	handler := Middleware(c)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	host := httptest.NewServer(handler)
	defer host.Close()

	resp, err := http.Get(host.URL + "/observed")
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("middleware altered response: %d", resp.StatusCode)
	}

	deadline := time.Now().Add(3 * time.Second)
	for {
		events := srv.Events()
		if len(events) == 1 {
			ev := events[0]
			if ev.Method != http.MethodGet || ev.Path != "/observed" {
				t.Fatalf("unexpected event %+v", ev)
			}
			if ev.DurationMS < 0 {
				t.Fatalf("negative duration %v", ev.DurationMS)
			}
			if ev.StartTime <= 0 {
				t.Fatalf("missing start time %v", ev.StartTime)
			}
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("event never reached the collector, got %d", len(events))
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestMiddlewareWithNilClientPassesThrough(t *testing.T) {
	handler := Middleware(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))
	if rec.Code != http.StatusTeapot {
		t.Fatalf("unexpected status %d", rec.Code)
	}
}
