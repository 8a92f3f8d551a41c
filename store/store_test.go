package store_test

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/franksops/gopull/engine"
	"github.com/franksops/gopull/store"
)

func newTestStore(t *testing.T) *store.BoltStore {
	t.Helper()
	s, err := store.NewBoltStore(filepath.Join(t.TempDir(), "journal.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSaveAndGetRecord(t *testing.T) {
	s := newTestStore(t)

	rec := &store.DownloadRecord{
		ID:          "job-1",
		URL:         "http://host/a.wav",
		Destination: "/downloads/a.wav",
		Status:      "completed",
		Bytes:       2048,
		Checksum:    0xdeadbeef,
	}
	if err := s.SaveRecord(rec); err != nil {
		t.Fatalf("SaveRecord failed: %v", err)
	}

	got, err := s.GetRecord("job-1")
	if err != nil {
		t.Fatalf("GetRecord failed: %v", err)
	}
	if got.URL != rec.URL || got.Status != rec.Status || got.Bytes != rec.Bytes || got.Checksum != rec.Checksum {
		t.Errorf("Record round-trip mismatch: got %+v", got)
	}
}

func TestGetRecordNotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.GetRecord("missing")
	if !errors.Is(err, store.ErrRecordNotFound) {
		t.Errorf("Expected ErrRecordNotFound, got %v", err)
	}
}

func TestSaveRecordReplaces(t *testing.T) {
	s := newTestStore(t)

	first := &store.DownloadRecord{ID: "job-2", Status: "failed", Error: "boom"}
	if err := s.SaveRecord(first); err != nil {
		t.Fatalf("SaveRecord failed: %v", err)
	}
	second := &store.DownloadRecord{ID: "job-2", Status: "completed", Bytes: 10}
	if err := s.SaveRecord(second); err != nil {
		t.Fatalf("SaveRecord failed: %v", err)
	}

	got, err := s.GetRecord("job-2")
	if err != nil {
		t.Fatalf("GetRecord failed: %v", err)
	}
	if got.Status != "completed" || got.Error != "" {
		t.Errorf("Expected the record to be replaced, got %+v", got)
	}
}

func TestJournalRecord(t *testing.T) {
	s := newTestStore(t)
	j := store.NewJournal(s)

	spec := engine.JobSpec{
		ID:          "job-3",
		PrimaryURL:  "http://host/b.wav",
		Destination: "/downloads/b.wav",
	}
	res := engine.ResultEvent{
		JobID:       "job-3",
		Destination: "/downloads/b.wav",
		Status:      engine.StatusFailed,
		Err:         "no route to host",
	}
	if err := j.Record(spec, res); err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	got, err := s.GetRecord("job-3")
	if err != nil {
		t.Fatalf("GetRecord failed: %v", err)
	}
	if got.URL != spec.PrimaryURL {
		t.Errorf("Expected URL %s, got %s", spec.PrimaryURL, got.URL)
	}
	if got.Status != string(engine.StatusFailed) {
		t.Errorf("Expected status failed, got %s", got.Status)
	}
	if got.Error != res.Err {
		t.Errorf("Expected error %q, got %q", res.Err, got.Error)
	}
	if got.FinishedAt.IsZero() {
		t.Error("Expected FinishedAt to be stamped")
	}
}
