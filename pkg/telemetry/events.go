package telemetry

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Event types published over the run lifecycle.
const (
	EventDeployStarted   = "deploy.started"
	EventDeployFinished  = "deploy.finished"
	EventDeployFailed    = "deploy.failed"
	EventReleaseStarted  = "release.started"
	EventReleaseFinished = "release.finished"
	EventTestSkipped     = "test.skipped"
	EventTestErrored     = "test.errored"
)

// Event is a structured lifecycle event.
type Event struct {
	// ID is a unique identifier for the event.
	ID string `json:"id"`

	// Type is one of the Event* constants.
	Type string `json:"type"`

	// Timestamp is when the event occurred.
	Timestamp time.Time `json:"timestamp"`

	// RunID identifies the run the event belongs to.
	RunID string `json:"run_id,omitempty"`

	// Board is the board name, when known.
	Board string `json:"board,omitempty"`

	// Test is the test name for test-scoped events.
	Test string `json:"test,omitempty"`

	// Message is a human-readable description.
	Message string `json:"message,omitempty"`

	// Fields holds additional event-specific data.
	Fields map[string]interface{} `json:"fields,omitempty"`
}

// EventHandler receives published events.
type EventHandler func(Event)

// EventPublisher fans lifecycle events out to registered handlers.
// With async delivery enabled, events are buffered and delivered from a
// background goroutine; a full buffer drops the event rather than block
// the lifecycle.
type EventPublisher struct {
	mu       sync.RWMutex
	enabled  bool
	async    bool
	handlers []EventHandler
	buffer   chan Event
	done     chan struct{}
	wg       sync.WaitGroup
}

// NewEventPublisher creates an event publisher from the configuration.
func NewEventPublisher(cfg EventsConfig) *EventPublisher {
	p := &EventPublisher{
		enabled: cfg.Enabled,
		async:   cfg.EnableAsync,
	}
	if !cfg.Enabled {
		return p
	}
	if cfg.EnableAsync {
		size := cfg.BufferSize
		if size <= 0 {
			size = 256
		}
		p.buffer = make(chan Event, size)
		p.done = make(chan struct{})
		p.wg.Add(1)
		go p.deliver()
	}
	return p
}

// Subscribe registers a handler for all published events.
func (p *EventPublisher) Subscribe(h EventHandler) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.handlers = append(p.handlers, h)
}

// Publish publishes an event, filling in ID and timestamp when unset.
func (p *EventPublisher) Publish(ev Event) {
	if !p.enabled {
		return
	}
	if ev.ID == "" {
		ev.ID = uuid.New().String()
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}

	if p.async {
		select {
		case p.buffer <- ev:
		default:
		}
		return
	}
	p.dispatch(ev)
}

// PublishDeployStarted publishes a deploy.started event.
func (p *EventPublisher) PublishDeployStarted(runID, board string) {
	p.Publish(Event{Type: EventDeployStarted, RunID: runID, Board: board, Message: "testbed deployment started"})
}

// PublishDeployFinished publishes a deploy.finished event.
func (p *EventPublisher) PublishDeployFinished(runID, board string, duration time.Duration) {
	p.Publish(Event{
		Type: EventDeployFinished, RunID: runID, Board: board,
		Message: "testbed deployment finished",
		Fields:  map[string]interface{}{"duration": duration.String()},
	})
}

// PublishDeployFailed publishes a deploy.failed event.
func (p *EventPublisher) PublishDeployFailed(runID, board string, err error) {
	p.Publish(Event{
		Type: EventDeployFailed, RunID: runID, Board: board,
		Message: "testbed deployment failed",
		Fields:  map[string]interface{}{"error": err.Error()},
	})
}

// PublishReleaseFinished publishes a release.finished event.
func (p *EventPublisher) PublishReleaseFinished(runID, board string, duration time.Duration) {
	p.Publish(Event{
		Type: EventReleaseFinished, RunID: runID, Board: board,
		Message: "devices released",
		Fields:  map[string]interface{}{"duration": duration.String()},
	})
}

// PublishTestSkipped publishes a test.skipped event with the skip reason.
func (p *EventPublisher) PublishTestSkipped(runID, test, reason string) {
	p.Publish(Event{
		Type: EventTestSkipped, RunID: runID, Test: test,
		Message: reason,
	})
}

// PublishTestErrored publishes a test.errored event.
func (p *EventPublisher) PublishTestErrored(runID, test string, err error) {
	p.Publish(Event{
		Type: EventTestErrored, RunID: runID, Test: test,
		Message: err.Error(),
	})
}

func (p *EventPublisher) dispatch(ev Event) {
	p.mu.RLock()
	handlers := append([]EventHandler(nil), p.handlers...)
	p.mu.RUnlock()
	for _, h := range handlers {
		h(ev)
	}
}

func (p *EventPublisher) deliver() {
	defer p.wg.Done()
	for {
		select {
		case ev := <-p.buffer:
			p.dispatch(ev)
		case <-p.done:
			// Drain remaining buffered events before exiting.
			for {
				select {
				case ev := <-p.buffer:
					p.dispatch(ev)
				default:
					return
				}
			}
		}
	}
}

// Shutdown stops async delivery, draining any buffered events.
func (p *EventPublisher) Shutdown() {
	if !p.enabled || !p.async {
		return
	}
	close(p.done)
	p.wg.Wait()
}
