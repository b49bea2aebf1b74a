// Package progress tracks ingestion progress and pushes updates to
// subscribers.
package progress

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/torikomi/internal/models"
)

// cacheKey is the single key the current ingestion run is cached under.
// Progress is a single-record cache: a new run overwrites the previous one.
const cacheKey = "ingestion-progress"

// DefaultTTL is how long a progress record stays readable after its last
// update.
const DefaultTTL = 2 * time.Hour

// Subscriber receives push notifications as ingestion advances. Delivery is
// fire-and-forget: a failing subscriber is logged and never blocks or fails
// the ingestion run.
type Subscriber interface {
	ReceiveProgress(p models.IngestionProgress)
	ReceiveCompleted(p models.IngestionProgress)
	ReceiveMessage(msg string)
}

type cachedProgress struct {
	record    models.IngestionProgress
	expiresAt time.Time
}

// Tracker stores the latest ingestion progress with a TTL and fans updates
// out to subscribers.
type Tracker struct {
	ttl    time.Duration
	logger *zap.Logger
	now    func() time.Time

	mu          sync.RWMutex
	cache       map[string]cachedProgress
	subscribers []Subscriber
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(t *Tracker) {
		t.logger = logger
	}
}

// WithTTL overrides the record lifetime.
func WithTTL(ttl time.Duration) Option {
	return func(t *Tracker) {
		t.ttl = ttl
	}
}

// withClock overrides the time source in tests.
func withClock(now func() time.Time) Option {
	return func(t *Tracker) {
		t.now = now
	}
}

func NewTracker(opts ...Option) *Tracker {
	t := &Tracker{
		ttl:    DefaultTTL,
		logger: zap.NewNop(),
		now:    time.Now,
		cache:  make(map[string]cachedProgress),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Subscribe registers a subscriber for future updates.
func (t *Tracker) Subscribe(s Subscriber) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.subscribers = append(t.subscribers, s)
}

// Unsubscribe removes a previously registered subscriber.
func (t *Tracker) Unsubscribe(s Subscriber) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i, sub := range t.subscribers {
		if sub == s {
			t.subscribers = append(t.subscribers[:i], t.subscribers[i+1:]...)
			return
		}
	}
}

// Publish records a progress update and notifies subscribers. The cache write
// happens before any notification, so a subscriber reading back through
// GetProgress always sees at least this update.
func (t *Tracker) Publish(p models.IngestionProgress) {
	subs := t.store(p)
	for _, s := range subs {
		t.notify(func() { s.ReceiveProgress(p) })
	}
}

// Complete records the terminal state of a run and notifies subscribers.
func (t *Tracker) Complete(p models.IngestionProgress) {
	subs := t.store(p)
	for _, s := range subs {
		t.notify(func() { s.ReceiveCompleted(p) })
	}
}

// Message pushes an informational message to subscribers without touching the
// progress record.
func (t *Tracker) Message(msg string) {
	t.mu.RLock()
	subs := append([]Subscriber(nil), t.subscribers...)
	t.mu.RUnlock()
	for _, s := range subs {
		t.notify(func() { s.ReceiveMessage(msg) })
	}
}

// GetProgress returns the current record, or a zero record when none exists
// or the TTL has lapsed.
func (t *Tracker) GetProgress() models.IngestionProgress {
	t.mu.RLock()
	defer t.mu.RUnlock()
	entry, ok := t.cache[cacheKey]
	if !ok || t.now().After(entry.expiresAt) {
		return models.IngestionProgress{}
	}
	return entry.record
}

// Flush discards the current record.
func (t *Tracker) Flush() {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.cache, cacheKey)
}

func (t *Tracker) store(p models.IngestionProgress) []Subscriber {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cache[cacheKey] = cachedProgress{
		record:    p,
		expiresAt: t.now().Add(t.ttl),
	}
	return append([]Subscriber(nil), t.subscribers...)
}

func (t *Tracker) notify(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			t.logger.Warn("progress subscriber panicked", zap.Any("panic", r))
		}
	}()
	fn()
}
