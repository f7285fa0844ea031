package speech

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrSubscriberAttached is returned when a second consumer tries to attach.
var ErrSubscriberAttached = errors.New("speech subscriber already attached")

// ErrBridgeClosed is returned by Attach after Close.
var ErrBridgeClosed = errors.New("speech bridge closed")

// Event asks the attached speech engine to read Text aloud.
type Event struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
}

// Bridge forwards speak requests to at most one consumer. Pending events are
// not queued: a newer event replaces one the consumer has not picked up yet.
type Bridge struct {
	mu       sync.Mutex
	events   chan Event
	attached bool
	closed   bool

	emitted int64
	dropped int64

	logger *zap.Logger
}

// NewBridge creates an empty bridge.
func NewBridge(logger *zap.Logger) *Bridge {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bridge{
		events: make(chan Event, 1),
		logger: logger.Named("speech"),
	}
}

// Speak emits text unless it is blank. It never blocks and reports whether an
// event was emitted.
func (b *Bridge) Speak(text string) bool {
	if strings.TrimSpace(text) == "" {
		return false
	}

	event := Event{
		ID:        uuid.NewString(),
		Text:      text,
		CreatedAt: time.Now().UTC(),
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return false
	}

	select {
	case b.events <- event:
	default:
		// replace the stale pending event
		select {
		case stale := <-b.events:
			b.dropped++
			b.logger.Debug("superseded pending speak event", zap.String("eventID", stale.ID))
		default:
		}
		b.events <- event
	}
	b.emitted++
	return true
}

// Attach hands the event channel to the caller. Only one consumer may be
// attached at a time; release frees the slot.
func (b *Bridge) Attach() (<-chan Event, func(), error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, nil, ErrBridgeClosed
	}
	if b.attached {
		return nil, nil, ErrSubscriberAttached
	}
	b.attached = true

	var once sync.Once
	release := func() {
		once.Do(func() {
			b.mu.Lock()
			b.attached = false
			b.mu.Unlock()
		})
	}
	return b.events, release, nil
}

// Close stops accepting events and closes the channel for the consumer.
func (b *Bridge) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	close(b.events)
	b.logger.Debug("speech bridge closed", zap.Int64("emitted", b.emitted), zap.Int64("dropped", b.dropped))
}

// Stats reports how many events were emitted and how many were superseded
// before delivery.
func (b *Bridge) Stats() (emitted, dropped int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.emitted, b.dropped
}
