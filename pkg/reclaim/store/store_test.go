package store_test

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/reclaimtool/reclaim/pkg/reclaim/store"
	"github.com/reclaimtool/reclaim/pkg/reclaim/types"
)

func sessionAt(id string, started time.Time) store.Session {
	return store.Session{
		Summary: types.ScanSummary{
			SessionID:  id,
			Started:    started,
			Duration:   3 * time.Second,
			TotalFiles: 42,
			TotalBytes: 1 << 20,
			Reason:     types.ReasonFinished,
		},
		Classifications: []types.Classification{
			{
				Path:       "/home/u/old.tmp",
				Category:   types.CategoryTemp,
				Action:     types.ActionDelete,
				Rationale:  "temp extension and stale",
				Confidence: 0.75,
				Size:       128,
			},
		},
		Groups: []types.DuplicateGroup{
			{
				Hash:    "abc123",
				Size:    64,
				Members: []string{"/a/x", "/b/x"},
				Keeper:  "/a/x",
			},
		},
	}
}

func TestSaveAndLoadSession(t *testing.T) {
	s, err := store.Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer s.Close()

	want := sessionAt("sess-1", time.Now())
	if err := s.SaveSession(want); err != nil {
		t.Fatalf("SaveSession failed: %v", err)
	}

	got, err := s.Session("sess-1")
	if err != nil {
		t.Fatalf("Session failed: %v", err)
	}

	if got.Summary.SessionID != "sess-1" {
		t.Errorf("session id: got %s", got.Summary.SessionID)
	}
	if got.Summary.TotalFiles != 42 {
		t.Errorf("total files: got %d, want 42", got.Summary.TotalFiles)
	}
	if len(got.Classifications) != 1 {
		t.Fatalf("classifications: got %d, want 1", len(got.Classifications))
	}
	if got.Classifications[0].Category != types.CategoryTemp {
		t.Errorf("category: got %s", got.Classifications[0].Category)
	}
	if len(got.Groups) != 1 {
		t.Fatalf("groups: got %d, want 1", len(got.Groups))
	}
	if got.Groups[0].Keeper != "/a/x" {
		t.Errorf("keeper: got %s", got.Groups[0].Keeper)
	}
}

func TestSessionNotFound(t *testing.T) {
	s, err := store.Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer s.Close()

	if _, err := s.Session("ghost"); !errors.Is(err, store.ErrNoSession) {
		t.Errorf("expected ErrNoSession, got %v", err)
	}
}

func TestSaveSessionRequiresID(t *testing.T) {
	s, err := store.Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer s.Close()

	if err := s.SaveSession(store.Session{}); err == nil {
		t.Error("expected error for empty session id")
	}
}

func TestSummariesNewestFirst(t *testing.T) {
	s, err := store.Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer s.Close()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		sess := sessionAt(fmt.Sprintf("sess-%d", i), base.Add(time.Duration(i)*time.Hour))
		if err := s.SaveSession(sess); err != nil {
			t.Fatalf("SaveSession failed: %v", err)
		}
	}

	summaries, err := s.Summaries(3)
	if err != nil {
		t.Fatalf("Summaries failed: %v", err)
	}
	if len(summaries) != 3 {
		t.Fatalf("expected 3 summaries, got %d", len(summaries))
	}
	if summaries[0].SessionID != "sess-4" {
		t.Errorf("newest first: got %s, want sess-4", summaries[0].SessionID)
	}
	for i := 1; i < len(summaries); i++ {
		if summaries[i].Started.After(summaries[i-1].Started) {
			t.Error("summaries out of order")
		}
	}
}

func TestPrune(t *testing.T) {
	s, err := store.Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer s.Close()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 6; i++ {
		sess := sessionAt(fmt.Sprintf("sess-%d", i), base.Add(time.Duration(i)*time.Hour))
		if err := s.SaveSession(sess); err != nil {
			t.Fatalf("SaveSession failed: %v", err)
		}
	}

	removed, err := s.Prune(4)
	if err != nil {
		t.Fatalf("Prune failed: %v", err)
	}
	if removed != 2 {
		t.Errorf("removed: got %d, want 2", removed)
	}

	summaries, err := s.Summaries(0)
	if err != nil {
		t.Fatalf("Summaries failed: %v", err)
	}
	if len(summaries) != 4 {
		t.Fatalf("expected 4 surviving summaries, got %d", len(summaries))
	}

	// The oldest two sessions are gone entirely, result sets included.
	if _, err := s.Session("sess-0"); !errors.Is(err, store.ErrNoSession) {
		t.Errorf("sess-0 should be pruned, got %v", err)
	}
	if _, err := s.Session("sess-1"); !errors.Is(err, store.ErrNoSession) {
		t.Errorf("sess-1 should be pruned, got %v", err)
	}
	if _, err := s.Session("sess-5"); err != nil {
		t.Errorf("sess-5 should survive: %v", err)
	}
}

func TestPruneUnderLimit(t *testing.T) {
	s, err := store.Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer s.Close()

	if err := s.SaveSession(sessionAt("only", time.Now())); err != nil {
		t.Fatalf("SaveSession failed: %v", err)
	}

	removed, err := s.Prune(10)
	if err != nil {
		t.Fatalf("Prune failed: %v", err)
	}
	if removed != 0 {
		t.Errorf("removed: got %d, want 0", removed)
	}
}

func TestWorkerHint(t *testing.T) {
	s, err := store.Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer s.Close()

	if _, ok := s.WorkerHint(); ok {
		t.Error("fresh store should have no hint")
	}

	if err := s.SaveWorkerHint(4); err != nil {
		t.Fatalf("SaveWorkerHint failed: %v", err)
	}

	workers, ok := s.WorkerHint()
	if !ok {
		t.Fatal("expected a stored hint")
	}
	if workers != 4 {
		t.Errorf("hint: got %d, want 4", workers)
	}

	// Nonsense hints are ignored rather than stored.
	if err := s.SaveWorkerHint(0); err != nil {
		t.Fatalf("SaveWorkerHint failed: %v", err)
	}
	if workers, _ := s.WorkerHint(); workers != 4 {
		t.Errorf("hint overwritten by invalid value: %d", workers)
	}
}
