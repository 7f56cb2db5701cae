package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/amaumene/airdate/internal/utils"
)

func TestWebhookNotifierPostsJSON(t *testing.T) {
	var got Notification
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("Expected JSON content type, got %q", r.Header.Get("Content-Type"))
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("Failed to decode body: %v", err)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	n := NewWebhookNotifier(srv.URL, utils.NewDiscardLogger())
	note := Notification{RuleID: "r1", EventID: "tv:1:s2e5", Title: "Show", ReleaseDate: "2024-06-10"}
	if err := n.Notify(context.Background(), note); err != nil {
		t.Fatalf("Notify failed: %v", err)
	}
	if got.RuleID != "r1" || got.EventID != "tv:1:s2e5" {
		t.Errorf("Unexpected payload: %+v", got)
	}
}

func TestWebhookNotifierRetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := NewWebhookNotifier(srv.URL, utils.NewDiscardLogger())
	if err := n.Notify(context.Background(), Notification{RuleID: "r1"}); err != nil {
		t.Fatalf("Expected retry to succeed, got %v", err)
	}
	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Errorf("Expected 2 calls, got %d", got)
	}
}

func TestWebhookNotifierDoesNotRetryClientErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	n := NewWebhookNotifier(srv.URL, utils.NewDiscardLogger())
	if err := n.Notify(context.Background(), Notification{}); err == nil {
		t.Error("Expected error for 400 response")
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("Expected a single call, got %d", got)
	}
}

type failingNotifier struct{ calls int }

func (f *failingNotifier) Notify(ctx context.Context, note Notification) error {
	f.calls++
	return errors.New("boom")
}

func TestMultiDeliversToAll(t *testing.T) {
	a, b := &failingNotifier{}, &failingNotifier{}
	err := Multi{a, NewLogNotifier(utils.NewDiscardLogger()), b}.Notify(context.Background(), Notification{})
	if err == nil {
		t.Error("Expected first error to be returned")
	}
	if a.calls != 1 || b.calls != 1 {
		t.Errorf("Expected every notifier called once, got %d and %d", a.calls, b.calls)
	}
}
