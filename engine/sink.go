package engine

// Sink is the multi-producer single-consumer channel carrying events from
// workers to the session's consumer loop. Progress sends are lossy: when
// the channel is full the event is silently dropped. Result sends block
// until the consumer makes room, so a terminal event is never lost.
type Sink struct {
	ch chan Event
}

// NewSink creates a sink with the given buffer size.
func NewSink(size int) *Sink {
	if size < 1 {
		size = 1
	}
	return &Sink{ch: make(chan Event, size)}
}

// Progress enqueues an advisory event, dropping it under backpressure.
func (s *Sink) Progress(ev ProgressEvent) {
	select {
	case s.ch <- ev:
	default:
	}
}

// Result enqueues a terminal event. Blocks until delivered.
func (s *Sink) Result(ev ResultEvent) {
	s.ch <- ev
}

// Events exposes the receive side for the single consumer.
func (s *Sink) Events() <-chan Event {
	return s.ch
}
