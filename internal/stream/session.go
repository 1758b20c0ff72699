package stream

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"
	"time"
)

// DropPolicy decides what happens when a subscriber cannot keep up with the
// publish rate.
type DropPolicy int

const (
	// DropOldest discards the subscriber's oldest buffered event to make room.
	DropOldest DropPolicy = iota
	// DropNewest discards the event being published for that subscriber.
	DropNewest
)

type Config struct {
	BufferSize     int
	ListenerBuffer int
	DropPolicy     DropPolicy
}

const (
	defaultBufferSize     = 1024
	defaultListenerBuffer = 64
)

// Stats accumulates totals for one connection.
type Stats struct {
	StartedAt   time.Time
	EndedAt     time.Time
	EventsTotal uint64
	BytesTotal  uint64
	Dropped     uint64
}

// Session is the event log of a single WebSocket connection. The transport
// publishes frames into it; the UI subscribes. State moves through
// connecting, open, closing and ends in closed or failed.
type Session struct {
	id     string
	cfg    Config
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	mu      sync.RWMutex
	state   State
	err     error
	ring    *ringBuffer
	subs    map[int]*subscriber
	nextSub int
	stats   Stats
	ended   bool
}

type subscriber struct {
	mu     sync.Mutex
	ch     chan *Event
	closed bool
	policy DropPolicy
}

// Listener is one subscription: a snapshot of everything published so far plus
// a live channel for what follows. Cancel releases the subscription; the
// channel also closes when the session ends.
type Listener struct {
	C        <-chan *Event
	Cancel   func()
	Snapshot Snapshot
}

type Snapshot struct {
	Events []*Event
	State  State
	Err    error
}

var sessionSeq uint64

func NewSession(parent context.Context, cfg Config) *Session {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = defaultBufferSize
	}
	if cfg.ListenerBuffer <= 0 {
		cfg.ListenerBuffer = defaultListenerBuffer
	}

	ctx, cancel := context.WithCancel(parent)
	n := atomic.AddUint64(&sessionSeq, 1)
	return &Session{
		id:     "ws-" + time.Now().UTC().Format("20060102T150405.000000Z") + "-" + strconv.FormatUint(n, 10),
		cfg:    cfg,
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
		state:  StateConnecting,
		ring:   newRingBuffer(cfg.BufferSize),
		subs:   make(map[int]*subscriber),
		stats:  Stats{StartedAt: time.Now()},
	}
}

func (s *Session) ID() string { return s.id }

func (s *Session) Context() context.Context { return s.ctx }

func (s *Session) Cancel() { s.cancel() }

func (s *Session) Done() <-chan struct{} { return s.done }

func (s *Session) State() (State, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state, s.err
}

func (s *Session) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

func (s *Session) StatsSnapshot() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stats
}

func (s *Session) EventsSnapshot() []*Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ring.snapshot()
}

// Subscribe registers a listener. The snapshot and the live channel are taken
// under one lock so no event can fall between them.
func (s *Session) Subscribe() Listener {
	sub := &subscriber{policy: s.cfg.DropPolicy}

	s.mu.Lock()
	sub.ch = make(chan *Event, s.cfg.ListenerBuffer)
	id := s.nextSub
	s.nextSub++
	s.subs[id] = sub
	snapshot := Snapshot{
		Events: s.ring.snapshot(),
		State:  s.state,
		Err:    s.err,
	}
	if s.ended {
		sub.close()
	}
	s.mu.Unlock()

	return Listener{
		C:        sub.ch,
		Cancel:   func() { s.unsubscribe(id) },
		Snapshot: snapshot,
	}
}

func (s *Session) unsubscribe(id int) {
	s.mu.Lock()
	sub, ok := s.subs[id]
	delete(s.subs, id)
	s.mu.Unlock()
	if ok {
		sub.close()
	}
}

// Publish stamps sequence and timestamp, records the event in the ring and
// fans it out to subscribers. Slow subscribers lose events per the drop
// policy; they never block the transport.
func (s *Session) Publish(evt *Event) {
	if evt == nil {
		return
	}
	evt.Sequence = nextSequence()
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now()
	}

	s.mu.Lock()
	s.ring.append(evt)
	s.stats.EventsTotal++
	s.stats.BytesTotal += uint64(len(evt.Payload))
	targets := make([]*subscriber, 0, len(s.subs))
	for _, sub := range s.subs {
		targets = append(targets, sub)
	}
	s.mu.Unlock()

	var dropped uint64
	for _, sub := range targets {
		if !sub.deliver(evt) {
			dropped++
		}
	}
	if dropped > 0 {
		s.mu.Lock()
		s.stats.Dropped += dropped
		s.mu.Unlock()
	}
}

func (sub *subscriber) deliver(evt *Event) bool {
	sub.mu.Lock()
	defer sub.mu.Unlock()
	if sub.closed {
		return false
	}

	select {
	case sub.ch <- evt:
		return true
	default:
	}

	if sub.policy == DropNewest {
		return false
	}
	select {
	case <-sub.ch:
	default:
	}
	select {
	case sub.ch <- evt:
		return true
	default:
		return false
	}
}

func (sub *subscriber) close() {
	sub.mu.Lock()
	defer sub.mu.Unlock()
	if sub.closed {
		return
	}
	sub.closed = true
	close(sub.ch)
}

func (s *Session) MarkOpen() { s.setState(StateOpen, nil) }

func (s *Session) MarkClosing() { s.setState(StateClosing, nil) }

// Close ends the session: failed with the given error, closed otherwise. All
// subscriber channels close and the session context cancels. Calling it again
// is a no-op for listeners already released.
func (s *Session) Close(err error) {
	if err != nil {
		s.setState(StateFailed, err)
	} else {
		s.setState(StateClosed, nil)
	}
	s.cancel()

	s.mu.Lock()
	if s.stats.EndedAt.IsZero() {
		s.stats.EndedAt = time.Now()
	}
	s.ended = true
	targets := make([]*subscriber, 0, len(s.subs))
	for id, sub := range s.subs {
		targets = append(targets, sub)
		delete(s.subs, id)
	}
	s.mu.Unlock()

	for _, sub := range targets {
		sub.close()
	}
	select {
	case <-s.done:
	default:
		close(s.done)
	}
}

func (s *Session) setState(state State, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state
	if err != nil {
		s.err = err
	} else if state == StateClosed {
		s.err = nil
	}
}
