package log

import (
	"encoding/json"
	"io"
	"sync"
	"time"
)

// EventType represents classification of a trace event.
type EventType string

const (
	FrameIn      EventType = "FRAME_IN"
	FrameOut     EventType = "FRAME_OUT"
	FrameDropped EventType = "FRAME_DROPPED"
	Connection   EventType = "CONNECTION"
	Persist      EventType = "PERSIST"
	Hydrate      EventType = "HYDRATE"
)

type Event struct {
	Time      time.Time   `json:"ts"`
	EventType EventType   `json:"eventtype"`
	SessionID string      `json:"session,omitempty"`
	Payload   interface{} `json:"p"`
}

// Collector collects events and fans them out to subscribers.
type Collector struct {
	mu   sync.RWMutex
	subs []chan Event
}

// Publish sends an event to all subscribers. Slow subscribers miss events
// rather than stall the publisher.
func (c *Collector) Publish(e Event) {
	if c == nil {
		return
	}
	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, ch := range c.subs {
		select {
		case ch <- e:
		default:
		}
	}
}

// Subscribe returns a receive-only channel for events. buf is channel size.
func (c *Collector) Subscribe(buf int) <-chan Event {
	ch := make(chan Event, buf)
	c.mu.Lock()
	c.subs = append(c.subs, ch)
	c.mu.Unlock()
	return ch
}

// Close closes every subscriber channel. Publishing after Close is a no-op.
func (c *Collector) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, ch := range c.subs {
		close(ch)
	}
	c.subs = nil
}

// FileSink writes every event (JSON encoded) published on c to w, filtering
// by event types if provided. The returned channel closes once the
// collector is closed and all buffered events are written.
func FileSink(c *Collector, w io.Writer, filters ...EventType) <-chan struct{} {
	want := map[EventType]bool{}
	for _, f := range filters {
		want[f] = true
	}
	done := make(chan struct{})
	events := c.Subscribe(256)
	go func() {
		defer close(done)
		enc := json.NewEncoder(w)
		for ev := range events {
			if len(want) > 0 && !want[ev.EventType] {
				continue
			}
			_ = enc.Encode(ev)
		}
	}()
	return done
}
