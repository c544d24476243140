package export

import (
	"sync"

	"github.com/sirupsen/logrus"
)

// EventKind distinguishes progress updates from terminal events.
type EventKind int

const (
	// EventProgress carries a percent and status message.
	EventProgress EventKind = iota
	// EventComplete carries the finished artifact.
	EventComplete
	// EventFailed carries the error the export ended with.
	EventFailed
)

func (k EventKind) String() string {
	switch k {
	case EventProgress:
		return "progress"
	case EventComplete:
		return "complete"
	case EventFailed:
		return "failed"
	}
	return "unknown"
}

// Event is published to every Broadcaster subscriber during an export.
type Event struct {
	Kind     EventKind
	Session  string
	Percent  float64
	Message  string
	Artifact *Artifact
	Err      error
}

// Broadcaster fans export events out to subscribers.
type Broadcaster struct {
	mu   sync.RWMutex
	subs map[string]chan Event
	log  *logrus.Entry
}

// NewBroadcaster creates a new broadcaster.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		subs: make(map[string]chan Event),
		log:  logrus.WithField("component", "events"),
	}
}

// Subscribe adds a subscriber. Events that do not fit in the buffer are
// dropped for that subscriber.
func (b *Broadcaster) Subscribe(id string, bufferSize int) <-chan Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	if old, exists := b.subs[id]; exists {
		close(old)
	}
	ch := make(chan Event, bufferSize)
	b.subs[id] = ch
	b.log.WithFields(logrus.Fields{"id": id, "total": len(b.subs)}).Debug("Subscriber added")
	return ch
}

// Unsubscribe removes a subscriber and closes its channel.
func (b *Broadcaster) Unsubscribe(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if ch, exists := b.subs[id]; exists {
		close(ch)
		delete(b.subs, id)
		b.log.WithFields(logrus.Fields{"id": id, "total": len(b.subs)}).Debug("Subscriber removed")
	}
}

// Publish delivers ev to all subscribers without blocking.
func (b *Broadcaster) Publish(ev Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for id, ch := range b.subs {
		select {
		case ch <- ev:
		default:
			b.log.WithFields(logrus.Fields{"subscriber": id, "kind": ev.Kind}).Warn("Event channel full, dropping event")
		}
	}
}

// Weights splits the unified 0-100 scale between the capture and encode
// phases. Capture is the fraction taken by capture and must be in (0,1).
type Weights struct {
	Capture float64
}

// DefaultWeights gives each phase half of the scale.
func DefaultWeights() Weights {
	return Weights{Capture: 0.5}
}

func (w Weights) boundary() float64 {
	return w.Capture * 100
}

// Status is a point-in-time view of the exporter.
type Status struct {
	State   State   `json:"state"`
	Session string  `json:"session,omitempty"`
	Percent float64 `json:"percent"`
	Message string  `json:"message"`
}

// tracker composes phase-local fractions into the unified scale. Reported
// percentages never decrease, even when reports arrive concurrently.
type tracker struct {
	weights Weights
	session string
	emit    func(Event)

	mu      sync.Mutex
	percent float64
}

func (t *tracker) capture(fraction float64, message string) {
	t.report(fraction*t.weights.boundary(), message)
}

func (t *tracker) encode(fraction float64, message string) {
	b := t.weights.boundary()
	t.report(b+fraction*(100-b), message)
}

func (t *tracker) report(percent float64, message string) {
	// Emitting under the lock keeps published events in clamp order.
	t.mu.Lock()
	defer t.mu.Unlock()
	if percent < t.percent {
		percent = t.percent
	}
	if percent > 100 {
		percent = 100
	}
	t.percent = percent
	t.emit(Event{Kind: EventProgress, Session: t.session, Percent: percent, Message: message})
}
