package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/amaumene/airdate/internal/config"
	"github.com/amaumene/airdate/internal/controllers"
	"github.com/amaumene/airdate/internal/utils"
)

type recorder struct {
	mu    sync.Mutex
	calls []string
}

func (r *recorder) add(call string) {
	r.mu.Lock()
	r.calls = append(r.calls, call)
	r.mu.Unlock()
}

func (r *recorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.calls))
	copy(out, r.calls)
	return out
}

type fakeSyncer struct {
	rec *recorder
	err error
}

func (f *fakeSyncer) Sync(ctx context.Context, force bool) (*controllers.SyncReport, error) {
	f.rec.add("sync")
	if f.err != nil {
		return nil, f.err
	}
	return &controllers.SyncReport{Scope: controllers.ScopeSkip}, nil
}

type fakeLists struct {
	rec *recorder
	err error
}

func (f *fakeLists) RefreshLists(ctx context.Context) error {
	f.rec.add("lists")
	return f.err
}

type fakePoller struct {
	rec *recorder
}

func (f *fakePoller) Poll(ctx context.Context) (int, error) {
	f.rec.add("poll")
	return 0, nil
}

func testConfig() config.SyncConfig {
	cfg := config.DefaultSyncConfig()
	cfg.ReminderInterval = time.Hour
	return cfg
}

func TestInitialRunOrder(t *testing.T) {
	rec := &recorder{}
	s := NewScheduler(&fakeSyncer{rec: rec}, &fakeLists{rec: rec}, &fakePoller{rec: rec}, testConfig(), utils.NewDiscardLogger())

	if err := s.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	s.Stop()

	expected := []string{"poll", "lists", "sync", "poll"}
	calls := rec.snapshot()
	if len(calls) != len(expected) {
		t.Fatalf("Expected calls %v, got %v", expected, calls)
	}
	for i := range expected {
		if calls[i] != expected[i] {
			t.Errorf("Expected call %d to be %s, got %s", i, expected[i], calls[i])
		}
	}
}

func TestListRefreshFailureStillSyncs(t *testing.T) {
	rec := &recorder{}
	s := NewScheduler(&fakeSyncer{rec: rec}, &fakeLists{rec: rec, err: errors.New("offline")}, &fakePoller{rec: rec}, testConfig(), utils.NewDiscardLogger())

	s.runSync()

	calls := rec.snapshot()
	if len(calls) != 2 || calls[1] != "sync" {
		t.Errorf("Expected sync after failed refresh, got %v", calls)
	}
}

func TestInvalidScheduleIsRejected(t *testing.T) {
	rec := &recorder{}
	cfg := testConfig()
	cfg.SyncSchedule = "every now and then"
	s := NewScheduler(&fakeSyncer{rec: rec}, &fakeLists{rec: rec}, &fakePoller{rec: rec}, cfg, utils.NewDiscardLogger())

	if err := s.Start(); err == nil {
		t.Error("Expected invalid cron spec to fail")
	}
}
