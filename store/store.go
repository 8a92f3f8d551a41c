// Package store persists a journal of terminal download outcomes in a
// bbolt database. The journal is a write-mostly audit trail; the engine
// never reads it back to resume work.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.etcd.io/bbolt"
)

var (
	// ErrRecordNotFound is returned when a record is not in the journal.
	ErrRecordNotFound = errors.New("record not found")
)

var (
	downloadsBucket = []byte("downloads")
)

// DownloadRecord is one terminal download outcome.
type DownloadRecord struct {
	ID          string    `json:"id"`
	URL         string    `json:"url"`
	Destination string    `json:"destination"`
	Status      string    `json:"status"`
	Bytes       int64     `json:"bytes"`
	Checksum    uint64    `json:"checksum,omitempty"`
	Error       string    `json:"error,omitempty"`
	FinishedAt  time.Time `json:"finished_at"`
}

// Store defines the interface for recording download outcomes.
type Store interface {
	SaveRecord(rec *DownloadRecord) error
	GetRecord(id string) (*DownloadRecord, error)
	Close() error
}

// BoltStore is a Store implementation backed by bbolt.
type BoltStore struct {
	db *bbolt.DB
}

// NewBoltStore creates a new BoltStore at the given path.
func NewBoltStore(path string) (*BoltStore, error) {
	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open bbolt database: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(downloadsBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create downloads bucket: %w", err)
	}

	return &BoltStore{db: db}, nil
}

// SaveRecord writes a record to the journal, replacing any previous
// record with the same ID.
func (s *BoltStore) SaveRecord(rec *DownloadRecord) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(downloadsBucket)

		data, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("failed to marshal record: %w", err)
		}

		if err := b.Put([]byte(rec.ID), data); err != nil {
			return fmt.Errorf("failed to put record: %w", err)
		}

		return nil
	})
}

// GetRecord retrieves a record from the journal.
func (s *BoltStore) GetRecord(id string) (*DownloadRecord, error) {
	var rec DownloadRecord
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(downloadsBucket)
		data := b.Get([]byte(id))
		if data == nil {
			return ErrRecordNotFound
		}

		if err := json.Unmarshal(data, &rec); err != nil {
			return fmt.Errorf("failed to unmarshal record: %w", err)
		}
		return nil
	})

	if err != nil {
		return nil, err
	}

	return &rec, nil
}

// Close closes the underlying database.
func (s *BoltStore) Close() error {
	return s.db.Close()
}
