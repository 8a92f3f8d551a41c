package engine

import (
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Aggregate is the counter set for one run. It is mutated only by the
// session's consumer loop; snapshots of it are safe to hand out.
type Aggregate struct {
	Total     int
	Finished  int
	Failed    int
	Cancelled int
	Active    int
}

// Notification is what the session reports to its collaborator (a UI or
// CLI driver): advisory progress, per-job terminal lines, and run-level
// transitions.
type Notification interface {
	isNotification()
}

func (ProgressEvent) isNotification() {}

// JobDone reports one job's terminal result together with the aggregate
// counters after it was accounted for.
type JobDone struct {
	Result ResultEvent
	Agg    Aggregate
}

func (JobDone) isNotification() {}

// RunStopped reports that CancelAll took effect: Dropped jobs were removed
// from the backlog without ever running, InFlight jobs have been signalled
// and will still settle through JobDone notifications.
type RunStopped struct {
	Dropped  int
	InFlight int
}

func (RunStopped) isNotification() {}

// RunCompleted fires exactly once per run, when the backlog and the
// active-set are both empty.
type RunCompleted struct {
	Finished  int
	Failed    int
	Cancelled int
	Total     int
}

func (RunCompleted) isNotification() {}

// Journal records terminal outcomes. Called only from the consumer loop.
type Journal interface {
	Record(spec JobSpec, res ResultEvent) error
}

// Options configures a Session.
type Options struct {
	// Fetcher performs the network reads. Required.
	Fetcher Fetcher

	// Writer materializes files on disk. Nil gets a default AtomicWriter
	// with a shared buffer pool.
	Writer *AtomicWriter

	// Journal, when set, receives every terminal result.
	Journal Journal

	// Logger, when set, gets one line per terminal result and run
	// transition.
	Logger *log.Logger

	// BackoffUnit overrides the retry backoff base unit. Zero means
	// DefaultBackoffUnit.
	BackoffUnit time.Duration

	// Checksum enables CRC64 fingerprinting of downloads.
	Checksum bool

	// EventBuffer is the sink capacity. Zero means 256.
	EventBuffer int

	// NotifyBuffer is the notification channel capacity. Zero means 256.
	NotifyBuffer int
}

// Session owns the backlog, the active-set and the aggregate counters for
// one run at a time. All of that state is confined to a single consumer
// goroutine; Submit, CancelAll and Cancel communicate with it through
// channels only.
type Session struct {
	policy  *Policy
	journal Journal
	logger  *log.Logger

	eventBuf int
	notif    chan Notification

	mu      sync.Mutex
	ctrl    chan command
	running atomic.Bool
}

type commandOp int

const (
	opCancelAll commandOp = iota
	opCancelJob
)

type command struct {
	op    commandOp
	jobID string
}

// runState is the consumer loop's private view of one run.
type runState struct {
	limit   int
	backlog []JobSpec
	active  map[string]*Token
	specs   map[string]JobSpec
	agg     Aggregate
}

// New creates a Session.
func New(opts Options) *Session {
	writer := opts.Writer
	if writer == nil {
		writer = &AtomicWriter{Buffers: NewBufferPool(0)}
	}

	eventBuf := opts.EventBuffer
	if eventBuf <= 0 {
		eventBuf = 256
	}
	notifyBuf := opts.NotifyBuffer
	if notifyBuf <= 0 {
		notifyBuf = 256
	}

	return &Session{
		policy: &Policy{
			Fetcher:     opts.Fetcher,
			Writer:      writer,
			BackoffUnit: opts.BackoffUnit,
			Checksum:    opts.Checksum,
		},
		journal:  opts.Journal,
		logger:   opts.Logger,
		eventBuf: eventBuf,
		notif:    make(chan Notification, notifyBuf),
	}
}

// Notifications is the stream of run events for the collaborator. The
// consumer must keep draining it until RunCompleted arrives; advisory
// progress is dropped when the channel is full, terminal notifications
// are not.
func (s *Session) Notifications() <-chan Notification {
	return s.notif
}

// Submit validates jobs and starts a run executing them with at most
// limit concurrent workers. It returns an *InvalidConfigError
// synchronously for a bad configuration, before any worker starts, and
// ErrRunActive while a previous run is still draining.
func (s *Session) Submit(jobs []JobSpec, limit int) error {
	if limit < 1 {
		return &InvalidConfigError{Reason: "concurrency limit must be at least 1"}
	}

	accepted := make([]JobSpec, len(jobs))
	copy(accepted, jobs)
	for i := range accepted {
		if err := accepted[i].validate(); err != nil {
			return err
		}
		if accepted[i].ID == "" {
			accepted[i].ID = uuid.New().String()
		}
	}

	if !s.running.CompareAndSwap(false, true) {
		return ErrRunActive
	}

	st := &runState{
		limit:   limit,
		backlog: accepted,
		active:  make(map[string]*Token),
		specs:   make(map[string]JobSpec, len(accepted)),
		agg:     Aggregate{Total: len(accepted)},
	}
	for _, spec := range accepted {
		st.specs[spec.ID] = spec
	}

	ctrl := make(chan command, 16)
	s.mu.Lock()
	s.ctrl = ctrl
	s.mu.Unlock()

	sink := NewSink(s.eventBuf)

	s.logf("run started: %d jobs, %d workers", len(accepted), limit)
	go s.run(st, sink, ctrl)
	return nil
}

// CancelAll stops the current run: every active job's token is set and
// the backlog is dropped without running. Best effort and non-blocking;
// in-flight jobs still settle through the normal event path.
func (s *Session) CancelAll() {
	s.send(command{op: opCancelAll})
}

// Cancel requests cancellation of a single job, whether it is still
// queued or already running. Best effort.
func (s *Session) Cancel(jobID string) {
	s.send(command{op: opCancelJob, jobID: jobID})
}

func (s *Session) send(cmd command) {
	if !s.running.Load() {
		return
	}
	s.mu.Lock()
	ctrl := s.ctrl
	s.mu.Unlock()
	if ctrl == nil {
		return
	}
	select {
	case ctrl <- cmd:
	default:
	}
}

// run is the single consumer loop. It owns st exclusively; nothing else
// reads or writes the backlog, active-set or aggregate.
func (s *Session) run(st *runState, sink *Sink, ctrl chan command) {
	defer s.running.Store(false)

	s.admit(st, sink)

	for len(st.active) > 0 || len(st.backlog) > 0 {
		select {
		case ev := <-sink.Events():
			s.handleEvent(st, sink, ev)
		case cmd := <-ctrl:
			s.handleCommand(st, cmd)
		}
	}

	s.logf("run completed: %d finished, %d failed, %d cancelled of %d",
		st.agg.Finished, st.agg.Failed, st.agg.Cancelled, st.agg.Total)

	// Flip to idle before announcing completion, so a collaborator that
	// reacts to RunCompleted by submitting again is never bounced.
	s.running.Store(false)
	s.notif <- RunCompleted{
		Finished:  st.agg.Finished,
		Failed:    st.agg.Failed,
		Cancelled: st.agg.Cancelled,
		Total:     st.agg.Total,
	}
}

// admit moves jobs from the backlog to the active-set until the pool is
// saturated, launching one worker goroutine per admitted job. Only ever
// called from the consumer loop, so the limit cannot be overshot.
func (s *Session) admit(st *runState, sink *Sink) {
	for len(st.backlog) > 0 && len(st.active) < st.limit {
		spec := st.backlog[0]
		st.backlog = st.backlog[1:]

		tok := NewToken()
		st.active[spec.ID] = tok
		st.agg.Active = len(st.active)

		go s.policy.Execute(spec, tok, sink)
	}
}

func (s *Session) handleEvent(st *runState, sink *Sink, ev Event) {
	switch ev := ev.(type) {
	case ProgressEvent:
		s.notifyAdvisory(ev)

	case ResultEvent:
		delete(st.active, ev.JobID)
		st.agg.Active = len(st.active)

		switch ev.Status {
		case StatusCompleted:
			st.agg.Finished++
		case StatusCancelled:
			st.agg.Cancelled++
		default:
			st.agg.Failed++
		}

		if s.journal != nil {
			if err := s.journal.Record(st.specs[ev.JobID], ev); err != nil {
				s.logf("journal: %v", err)
			}
		}
		switch ev.Status {
		case StatusCompleted:
			s.logf("job %s: completed %s (%d bytes)", ev.JobID, ev.Destination, ev.Bytes)
		case StatusCancelled:
			s.logf("job %s: cancelled %s", ev.JobID, ev.Destination)
		default:
			s.logf("job %s: failed %s: %s", ev.JobID, ev.Destination, ev.Err)
		}

		s.notif <- JobDone{Result: ev, Agg: st.agg}

		s.admit(st, sink)
	}
}

func (s *Session) handleCommand(st *runState, cmd command) {
	switch cmd.op {
	case opCancelAll:
		dropped := len(st.backlog)
		st.backlog = nil
		st.agg.Total -= dropped
		for _, tok := range st.active {
			tok.Cancel()
		}
		s.logf("stop requested: dropped %d queued jobs, %d in flight", dropped, len(st.active))
		s.notif <- RunStopped{Dropped: dropped, InFlight: len(st.active)}

	case opCancelJob:
		if tok, ok := st.active[cmd.jobID]; ok {
			tok.Cancel()
			return
		}
		for i, spec := range st.backlog {
			if spec.ID == cmd.jobID {
				st.backlog = append(st.backlog[:i], st.backlog[i+1:]...)
				st.agg.Total--
				return
			}
		}
	}
}

func (s *Session) notifyAdvisory(n Notification) {
	select {
	case s.notif <- n:
	default:
	}
}

func (s *Session) logf(format string, args ...any) {
	if s.logger != nil {
		s.logger.Printf(format, args...)
	}
}
