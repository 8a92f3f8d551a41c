package engine

// Status is the terminal outcome of a job.
type Status string

const (
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Event is a tagged variant carried by a Sink: either a ProgressEvent or
// a ResultEvent.
type Event interface {
	isEvent()
}

// ProgressEvent is an advisory update for one job. Progress events may be
// dropped under backpressure and may arrive out of order; only the most
// recent one is worth displaying.
type ProgressEvent struct {
	JobID   string
	Message string
	Percent int // 0..100
}

func (ProgressEvent) isEvent() {}

// ResultEvent closes a job's lifecycle. Exactly one is emitted per job
// that was admitted to a worker.
type ResultEvent struct {
	JobID       string
	Destination string
	Status      Status
	Bytes       int64
	Checksum    uint64 // CRC64 of the payload, zero unless enabled
	Err         string // last error for failed jobs, empty otherwise
}

func (ResultEvent) isEvent() {}
