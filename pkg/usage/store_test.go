package usage

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	store, err := NewStore(filepath.Join(t.TempDir(), "usage.db"))
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func record(id, provider, status string, ts time.Time) Record {
	return Record{
		RequestID:        id,
		Timestamp:        ts,
		Provider:         provider,
		Model:            "test-model",
		Status:           status,
		Attempts:         1,
		Latency:          250 * time.Millisecond,
		PromptTokens:     10,
		CompletionTokens: 20,
	}
}

// ============================================================================
// Store Tests
// ============================================================================

func TestStore_RecordAndRecent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	base := time.Now().Truncate(time.Millisecond)
	for i, id := range []string{"req-1", "req-2", "req-3"} {
		rec := record(id, "groq", "success", base.Add(time.Duration(i)*time.Second))
		if err := store.Record(ctx, rec); err != nil {
			t.Fatalf("Record(%s) error = %v", id, err)
		}
	}

	recent, err := store.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("Recent() returned %d records, want 2", len(recent))
	}
	if recent[0].RequestID != "req-3" || recent[1].RequestID != "req-2" {
		t.Errorf("Recent() order = [%s, %s], want newest first [req-3, req-2]",
			recent[0].RequestID, recent[1].RequestID)
	}

	got := recent[0]
	if got.Provider != "groq" || got.Model != "test-model" || got.Status != "success" {
		t.Errorf("round-tripped record = %+v", got)
	}
	if got.Latency != 250*time.Millisecond {
		t.Errorf("Latency = %v, want 250ms", got.Latency)
	}
	if got.PromptTokens != 10 || got.CompletionTokens != 20 {
		t.Errorf("tokens = %d/%d, want 10/20", got.PromptTokens, got.CompletionTokens)
	}
}

func TestStore_RecordRejectsEmptyID(t *testing.T) {
	store := newTestStore(t)

	if err := store.Record(context.Background(), Record{}); err == nil {
		t.Fatal("Record() with empty request id should fail")
	}
}

func TestStore_Summarize(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	now := time.Now()

	seed := []Record{
		record("a-1", "groq", "success", now),
		record("a-2", "groq", "success", now),
		record("a-3", "groq", "error", now),
		record("b-1", "gemini", "success", now),
	}
	for _, rec := range seed {
		if err := store.Record(ctx, rec); err != nil {
			t.Fatalf("Record(%s) error = %v", rec.RequestID, err)
		}
	}

	summaries, err := store.Summarize(ctx, time.Time{})
	if err != nil {
		t.Fatalf("Summarize() error = %v", err)
	}
	if len(summaries) != 2 {
		t.Fatalf("Summarize() returned %d providers, want 2", len(summaries))
	}

	// Ordered by provider name.
	gemini, groq := summaries[0], summaries[1]
	if gemini.Provider != "gemini" || groq.Provider != "groq" {
		t.Fatalf("provider order = [%s, %s]", gemini.Provider, groq.Provider)
	}
	if groq.Requests != 3 || groq.Successes != 2 || groq.Failures != 1 {
		t.Errorf("groq summary = %+v", groq)
	}
	if groq.PromptTokens != 30 || groq.CompletionTokens != 60 {
		t.Errorf("groq tokens = %d/%d, want 30/60", groq.PromptTokens, groq.CompletionTokens)
	}
	if groq.AvgLatency != 250*time.Millisecond {
		t.Errorf("groq AvgLatency = %v, want 250ms", groq.AvgLatency)
	}
	if gemini.Requests != 1 || gemini.Successes != 1 {
		t.Errorf("gemini summary = %+v", gemini)
	}
}

func TestStore_SummarizeSinceFiltersOld(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	now := time.Now()

	if err := store.Record(ctx, record("old", "groq", "success", now.Add(-48*time.Hour))); err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if err := store.Record(ctx, record("new", "groq", "success", now)); err != nil {
		t.Fatalf("Record() error = %v", err)
	}

	summaries, err := store.Summarize(ctx, now.Add(-time.Hour))
	if err != nil {
		t.Fatalf("Summarize() error = %v", err)
	}
	if len(summaries) != 1 || summaries[0].Requests != 1 {
		t.Fatalf("Summarize(since) = %+v, want single groq row with 1 request", summaries)
	}
}

func TestStore_Prune(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	now := time.Now()

	if err := store.Record(ctx, record("old-1", "groq", "success", now.Add(-72*time.Hour))); err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if err := store.Record(ctx, record("old-2", "groq", "success", now.Add(-48*time.Hour))); err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if err := store.Record(ctx, record("fresh", "groq", "success", now)); err != nil {
		t.Fatalf("Record() error = %v", err)
	}

	deleted, err := store.Prune(ctx, now.Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("Prune() error = %v", err)
	}
	if deleted != 2 {
		t.Errorf("Prune() deleted = %d, want 2", deleted)
	}

	recent, err := store.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(recent) != 1 || recent[0].RequestID != "fresh" {
		t.Errorf("after prune Recent() = %+v, want only fresh", recent)
	}
}

func TestStore_Persistence(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "usage.db")
	ctx := context.Background()

	store, err := NewStore(dbPath)
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	if err := store.Record(ctx, record("survivor", "groq", "success", time.Now())); err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	reopened, err := NewStore(dbPath)
	if err != nil {
		t.Fatalf("NewStore() reopen error = %v", err)
	}
	defer reopened.Close()

	recent, err := reopened.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(recent) != 1 || recent[0].RequestID != "survivor" {
		t.Errorf("reopened Recent() = %+v, want survivor", recent)
	}
}

func TestStore_EmptyPathRejected(t *testing.T) {
	if _, err := NewStore(""); err == nil {
		t.Fatal("NewStore(\"\") should fail")
	}
}

// ============================================================================
// Retention Scheduler Tests
// ============================================================================

func TestScheduler_EmptyScheduleIsNoop(t *testing.T) {
	store := newTestStore(t)

	sched := NewScheduler(store, RetentionConfig{RetentionDays: 30})
	if err := sched.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if sched.IsRunning() {
		t.Error("scheduler with empty schedule should not be running")
	}
}

func TestScheduler_InvalidSchedule(t *testing.T) {
	store := newTestStore(t)

	sched := NewScheduler(store, RetentionConfig{RetentionDays: 30, Schedule: "not a cron expr"})
	if err := sched.Start(context.Background()); err == nil {
		t.Fatal("Start() with invalid cron expression should fail")
	}
}

func TestScheduler_StartStop(t *testing.T) {
	store := newTestStore(t)

	sched := NewScheduler(store, RetentionConfig{RetentionDays: 30, Schedule: "0 3 * * *"})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := sched.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if !sched.IsRunning() {
		t.Fatal("scheduler should be running after Start")
	}
	if sched.NextRun() == nil {
		t.Error("NextRun() should be set for an active schedule")
	}

	sched.Stop()
	if sched.IsRunning() {
		t.Error("scheduler should not be running after Stop")
	}
}
