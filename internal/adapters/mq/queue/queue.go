// Package queue holds pending retrain jobs until the trainer picks them up.
//
// The queue is a bounded channel. Enqueue never blocks: a full queue is
// reported to the caller so the write path can degrade instead of stalling.
package queue

import (
	"context"
	"sync"

	"github.com/okian/selector/internal/domain/model"
	"github.com/okian/selector/pkg/metrics"
)

const defaultQueueCapacity = 1024

// Job is the payload flowing through the queue.
type Job = model.RetrainJob

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue interface {
	// Enqueue adds a job. It returns ErrFull or ErrClosed when the job was
	// not accepted, or the context error if ctx is already done.
	Enqueue(ctx context.Context, j Job) error

	// Dequeue returns the receive side of the queue. The channel is closed
	// by Close once drained.
	Dequeue() <-chan Job

	// Drain removes up to max jobs that are already queued without waiting.
	Drain(max int) []Job

	// Len returns the current number of queued jobs.
	Len() int

	// Close stops accepting jobs. Jobs already queued stay receivable.
	Close() error

	// IsClosed returns true if the queue has been closed.
	IsClosed() bool
}

// InMemoryQueue implements Queue using a buffered channel.
type InMemoryQueue struct {
	jobs     chan Job
	capacity int

	mu     sync.RWMutex
	closed bool
}

// NewInMemoryQueue creates a new in-memory queue with configuration options.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{
		capacity: defaultQueueCapacity,
	}

	for _, opt := range opts {
		opt(q)
	}

	q.jobs = make(chan Job, q.capacity)
	metrics.UpdateRetrainQueueSize(0)
	return q
}

// Enqueue adds a job to the queue.
func (q *InMemoryQueue) Enqueue(ctx context.Context, j Job) error { //nolint:gocritic // hugeParam: Job must be passed by value for channel semantics
	if err := ctx.Err(); err != nil {
		return err
	}

	// the read lock keeps Close from closing the channel under a send
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordRetrainQueueRejection()
		metrics.RecordErrorByComponent("queue", "closed")
		return ErrClosed
	}

	select {
	case q.jobs <- j:
		metrics.UpdateRetrainQueueSize(len(q.jobs))
		return nil
	default:
		metrics.RecordRetrainQueueRejection()
		metrics.RecordErrorByComponent("queue", "queue_full")
		return ErrFull
	}
}

// Dequeue returns the receive side of the queue.
func (q *InMemoryQueue) Dequeue() <-chan Job {
	return q.jobs
}

// Drain removes up to max jobs that are already queued without waiting.
func (q *InMemoryQueue) Drain(max int) []Job {
	var out []Job
	for len(out) < max {
		select {
		case j, ok := <-q.jobs:
			if !ok {
				metrics.UpdateRetrainQueueSize(0)
				return out
			}
			out = append(out, j)
		default:
			metrics.UpdateRetrainQueueSize(len(q.jobs))
			return out
		}
	}
	metrics.UpdateRetrainQueueSize(len(q.jobs))
	return out
}

// Len returns the current number of queued jobs.
func (q *InMemoryQueue) Len() int {
	size := len(q.jobs)
	metrics.UpdateRetrainQueueSize(size)
	return size
}

// Close stops accepting jobs.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}

	close(q.jobs)
	q.closed = true
	return nil
}

// IsClosed returns true if the queue has been closed.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
