package realtime

import (
	"sync"
	"sync/atomic"

	"github.com/joonholab/argos/pkg/logger"
)

// DefaultQueueCapacity bounds the event queue between the feed reader and
// its consumers.
const DefaultQueueCapacity = 1000

// Queue is a bounded event buffer. When full, the newest event is dropped
// so the reader never blocks on a slow consumer.
type Queue struct {
	ch      chan Event
	logger  *logger.Logger
	dropped atomic.Int64

	closeOnce sync.Once
}

// NewQueue creates a queue with the given capacity (0 uses the default).
func NewQueue(capacity int, log *logger.Logger) *Queue {
	if capacity <= 0 {
		capacity = DefaultQueueCapacity
	}
	return &Queue{
		ch:     make(chan Event, capacity),
		logger: log,
	}
}

// Push enqueues an event. Returns false when the queue is full and the
// event was dropped.
func (q *Queue) Push(ev Event) bool {
	select {
	case q.ch <- ev:
		return true
	default:
		n := q.dropped.Add(1)
		q.logger.WithFields(map[string]interface{}{
			"topic":         string(ev.Topic),
			"code":          ev.Code,
			"total_dropped": n,
		}).Warn("Event queue full, dropping event")
		return false
	}
}

// Events returns the consumer side of the queue.
func (q *Queue) Events() <-chan Event {
	return q.ch
}

// Dropped returns how many events have been dropped so far.
func (q *Queue) Dropped() int64 {
	return q.dropped.Load()
}

// Close closes the queue. Push must not be called afterwards.
func (q *Queue) Close() {
	q.closeOnce.Do(func() { close(q.ch) })
}
