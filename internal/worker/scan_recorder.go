package worker

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hoyn-app/profile-qr/internal/events"
)

const defaultQueueSize = 1024

// ScanRecorder is a fire-and-forget scan logger. Record enqueues without
// blocking and drops the outcome when the queue is full; a background
// goroutine publishes queued outcomes as scan_recorded events.
type ScanRecorder struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	queue      chan events.Event
	now        func() time.Time
	onDrop     func()

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

// ScanRecorderOption customizes a ScanRecorder.
type ScanRecorderOption func(*ScanRecorder)

// WithQueueSize sets the buffer size.
func WithQueueSize(n int) ScanRecorderOption {
	return func(r *ScanRecorder) {
		if n > 0 {
			r.queue = make(chan events.Event, n)
		}
	}
}

// WithDropHook is called whenever an outcome is dropped.
func WithDropHook(fn func()) ScanRecorderOption {
	return func(r *ScanRecorder) {
		r.onDrop = fn
	}
}

// NewScanRecorder builds a recorder. Call Start before recording.
func NewScanRecorder(dispatcher events.Dispatcher, logger *zap.Logger, opts ...ScanRecorderOption) *ScanRecorder {
	r := &ScanRecorder{
		dispatcher: dispatcher,
		logger:     logger,
		queue:      make(chan events.Event, defaultQueueSize),
		now:        time.Now,
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Record enqueues a scan outcome.
func (r *ScanRecorder) Record(subjectID, origin string, succeeded bool) {
	event := events.Event{
		ID:        uuid.NewString(),
		Type:      events.EventScanRecorded,
		SubjectID: subjectID,
		Timestamp: r.now().UTC(),
		Payload:   events.ScanRecordedPayload{Origin: origin, Succeeded: succeeded},
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		r.drop("scan recorder closed; dropping scan outcome", subjectID)
		return
	}

	select {
	case r.queue <- event:
	default:
		r.drop("scan queue full; dropping scan outcome", subjectID)
	}
}

func (r *ScanRecorder) drop(msg, subjectID string) {
	r.logger.Warn(msg, zap.String("subject_id", subjectID))
	if r.onDrop != nil {
		r.onDrop()
	}
}

// Start drains the queue until Close is called.
func (r *ScanRecorder) Start(ctx context.Context) {
	go func() {
		defer close(r.done)
		for event := range r.queue {
			if err := r.dispatcher.Publish(ctx, event); err != nil {
				r.logger.Warn("failed to record scan", zap.String("subject_id", event.SubjectID), zap.Error(err))
			}
		}
	}()
}

// Close stops accepting outcomes and waits for queued ones to be published.
// Outcomes recorded after Close are dropped.
func (r *ScanRecorder) Close(ctx context.Context) error {
	r.mu.Lock()
	if !r.closed {
		r.closed = true
		close(r.queue)
	}
	r.mu.Unlock()

	select {
	case <-r.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
