package store

import (
	"time"

	"github.com/franksops/gopull/engine"
)

// Journal adapts a Store to the engine's journal hook. The engine calls
// Record from its consumer loop only, so no locking is needed here.
type Journal struct {
	store Store
}

// NewJournal wraps a Store.
func NewJournal(s Store) *Journal {
	return &Journal{store: s}
}

// Record persists one terminal result.
func (j *Journal) Record(spec engine.JobSpec, res engine.ResultEvent) error {
	return j.store.SaveRecord(&DownloadRecord{
		ID:          spec.ID,
		URL:         spec.PrimaryURL,
		Destination: spec.Destination,
		Status:      string(res.Status),
		Bytes:       res.Bytes,
		Checksum:    res.Checksum,
		Error:       res.Err,
		FinishedAt:  time.Now().UTC(),
	})
}
