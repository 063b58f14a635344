// Package mailbox hands the latest published Location from the tracking loop
// to any number of independent consumers.
//
// Each subscriber owns a single-slot buffer guarded by its own mutex and
// sync.Cond. Publish overwrites every slot (an unread value is dropped) and
// signals it; Next blocks until the subscriber's own slot holds an unconsumed
// value and clears it before returning. Consumers may therefore skip values
// but never see the same publish twice, and never see an older value after a
// newer one.
package mailbox

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
)

// ErrClosed is returned by Next once the subscription or the mailbox has
// been closed.
var ErrClosed = errors.New("mailbox: closed")

// Mailbox is the shared current-value cell plus the set of subscriber slots.
type Mailbox struct {
	mu        sync.RWMutex
	current   Location
	published bool
	seq       uint64
	slots     map[string]*slot
	closed    bool

	publishes atomic.Uint64
}

// New returns an empty mailbox. Peek reports false until the first Publish.
func New() *Mailbox {
	return &Mailbox{slots: make(map[string]*slot)}
}

// slot is one subscriber's mailbox.
type slot struct {
	mu      sync.Mutex
	cond    *sync.Cond
	value   Location
	seq     uint64
	pending bool // unconsumed value present
	closed  bool

	lastConsumedSeq uint64
	drops           uint64
}

// Publish replaces the current value and hands it to every subscriber slot.
// It never blocks on consumers.
func (m *Mailbox) Publish(loc Location) {
	m.mu.Lock()
	m.seq++
	m.current = loc
	m.published = true
	seq := m.seq
	m.mu.Unlock()
	m.publishes.Add(1)

	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, s := range m.slots {
		s.put(loc, seq)
	}
}

func (s *slot) put(loc Location, seq uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || seq <= s.seq {
		return
	}
	if s.pending {
		s.drops++
	}
	s.value = loc
	s.seq = seq
	s.pending = true
	s.cond.Signal()
}

func (s *slot) close() {
	s.mu.Lock()
	s.closed = true
	s.cond.Broadcast()
	s.mu.Unlock()
}

// Peek returns the current value without consuming anything. The bool is
// false until the first Publish.
func (m *Mailbox) Peek() (Location, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current, m.published
}

// Subscribe registers a consumer under id. If a value has already been
// published the new slot is primed with it, so a consumer that connects late
// receives the current position on its first Next. Subscribing an id that is
// already registered replaces (and closes) the previous subscription. After
// Close the returned subscription is already closed.
func (m *Mailbox) Subscribe(id string) *Subscription {
	s := &slot{}
	s.cond = sync.NewCond(&s.mu)
	sub := &Subscription{id: id, slot: s, mailbox: m}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		s.closed = true
		return sub
	}
	if m.published {
		s.value = m.current
		s.seq = m.seq
		s.pending = true
	}
	if prev, ok := m.slots[id]; ok {
		prev.close()
	}
	m.slots[id] = s
	return sub
}

func (m *Mailbox) remove(id string, s *slot) {
	m.mu.Lock()
	if cur, ok := m.slots[id]; ok && cur == s {
		delete(m.slots, id)
	}
	m.mu.Unlock()
}

// Close wakes every blocked consumer and makes all current and future
// subscriptions return ErrClosed. Publish keeps updating the current value so
// Peek stays meaningful during shutdown. Idempotent.
func (m *Mailbox) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	slots := m.slots
	m.slots = make(map[string]*slot)
	m.mu.Unlock()

	for _, s := range slots {
		s.close()
	}
}

// Subscription is one consumer's handle on the mailbox. Next must be called
// from a single goroutine.
type Subscription struct {
	id      string
	slot    *slot
	mailbox *Mailbox
	once    sync.Once
}

// ID returns the subscriber id.
func (s *Subscription) ID() string { return s.id }

// Next blocks until a value this subscriber has not consumed yet is
// available, then consumes and returns it. It returns ctx.Err() if ctx is
// done first and ErrClosed once the subscription or mailbox is closed.
func (s *Subscription) Next(ctx context.Context) (Location, error) {
	sl := s.slot

	// sync.Cond cannot select on a channel; wake the waiter when ctx ends.
	stop := context.AfterFunc(ctx, func() {
		sl.mu.Lock()
		sl.cond.Broadcast()
		sl.mu.Unlock()
	})
	defer stop()

	sl.mu.Lock()
	defer sl.mu.Unlock()
	for !sl.pending && !sl.closed && ctx.Err() == nil {
		sl.cond.Wait()
	}
	if sl.closed {
		return Location{}, ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return Location{}, err
	}

	sl.pending = false
	sl.lastConsumedSeq = sl.seq
	return sl.value, nil
}

// Close unregisters the subscription and wakes a blocked Next. Idempotent.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.slot.close()
		s.mailbox.remove(s.id, s.slot)
	})
}

// Stats is a point-in-time view of the mailbox.
type Stats struct {
	Publishes   uint64
	Subscribers []SubscriberStats
}

// SubscriberStats describes one subscriber slot.
type SubscriberStats struct {
	ID              string
	Pending         bool
	LastConsumedSeq uint64
	Drops           uint64 // values overwritten before they were consumed
}

// Stats returns publish and per-subscriber counters.
func (m *Mailbox) Stats() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	st := Stats{
		Publishes:   m.publishes.Load(),
		Subscribers: make([]SubscriberStats, 0, len(m.slots)),
	}
	for id, s := range m.slots {
		s.mu.Lock()
		st.Subscribers = append(st.Subscribers, SubscriberStats{
			ID:              id,
			Pending:         s.pending,
			LastConsumedSeq: s.lastConsumedSeq,
			Drops:           s.drops,
		})
		s.mu.Unlock()
	}
	return st
}
