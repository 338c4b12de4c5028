package store

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/cenyuzhangms/MAFCarepath-v2/client/session"
	"github.com/cenyuzhangms/MAFCarepath-v2/internal/log"
)

// Appender appends one record to a persisted session.
type Appender interface {
	AppendEvent(ctx context.Context, sessionID string, record *session.Record) error
}

type job struct {
	sessionID string
	record    *session.Record
}

// Recorder forwards records to an Appender from a single worker goroutine,
// preserving their order. Persist never blocks: when the queue is full the
// record is dropped. Failures are logged and otherwise ignored.
type Recorder struct {
	appender Appender
	logger   *zap.Logger
	trace    *log.Collector
	timeout  time.Duration

	mu     sync.RWMutex
	queue  chan job
	closed bool
	done   chan struct{}
}

// RecorderOption configures a Recorder.
type RecorderOption func(*Recorder)

// WithRecorderLogger sets the diagnostic logger.
func WithRecorderLogger(l *zap.Logger) RecorderOption {
	return func(r *Recorder) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithRecorderTrace publishes persisted and dropped records to c.
func WithRecorderTrace(c *log.Collector) RecorderOption {
	return func(r *Recorder) { r.trace = c }
}

// WithQueueSize sets the number of records buffered ahead of the worker.
func WithQueueSize(size int) RecorderOption {
	return func(r *Recorder) {
		if size > 0 {
			r.queue = make(chan job, size)
		}
	}
}

// WithAppendTimeout bounds each append call.
func WithAppendTimeout(d time.Duration) RecorderOption {
	return func(r *Recorder) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// NewRecorder starts a recorder writing to appender.
func NewRecorder(appender Appender, opts ...RecorderOption) *Recorder {
	r := &Recorder{
		appender: appender,
		logger:   zap.NewNop(),
		timeout:  10 * time.Second,
		queue:    make(chan job, 256),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	go r.run()
	return r
}

// Persist enqueues record for sessionID.
func (r *Recorder) Persist(sessionID string, record *session.Record) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return
	}
	select {
	case r.queue <- job{sessionID: sessionID, record: record}:
	default:
		r.logger.Debug("persist queue full, dropping record", zap.String("session", sessionID), zap.String("type", record.EventType))
	}
}

// Close stops accepting records and waits for queued ones to be written.
func (r *Recorder) Close() error {
	r.mu.Lock()
	if !r.closed {
		r.closed = true
		close(r.queue)
	}
	r.mu.Unlock()
	<-r.done
	return nil
}

func (r *Recorder) run() {
	defer close(r.done)
	for j := range r.queue {
		ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
		err := r.appender.AppendEvent(ctx, j.sessionID, j.record)
		cancel()
		switch {
		case err == nil:
		case errors.Is(err, ErrNoCredential):
			continue
		default:
			r.logger.Debug("persist failed", zap.String("session", j.sessionID), zap.String("type", j.record.EventType), zap.Error(err))
			continue
		}
		if r.trace != nil {
			r.trace.Publish(log.Event{EventType: log.Persist, SessionID: j.sessionID, Payload: j.record})
		}
	}
}
