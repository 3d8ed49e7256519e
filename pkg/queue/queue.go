// Package queue implements an ordered background job runner. Jobs execute
// strictly one at a time in submission order; that ordering is what the
// narration pipeline's delivery guarantees are built on.
package queue

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"comicvox/pkg/model"
)

// Task produces the result of one job. Tasks have no cancellation channel
// beyond the context; a running task is never forcibly aborted.
type Task func(ctx context.Context) (any, error)

// Metadata is an arbitrary correlation payload echoed back in callbacks.
type Metadata map[string]any

type item struct {
	id       string
	task     Task
	metadata Metadata
	index    int // submission index since last clear
}

// ItemCallback fires after a job's task returns successfully.
type ItemCallback func(result any, metadata Metadata, index int)

// ErrorCallback fires when a task fails. Processing continues with the
// next item.
type ErrorCallback func(err error, metadata Metadata, index int)

// CompletedCallback fires once when the queue drains naturally after
// having run at least one job.
type CompletedCallback func(stats model.QueueStats)

// Queue runs jobs in FIFO order, one in flight at a time.
type Queue struct {
	mu         sync.Mutex
	cond       *sync.Cond
	items      []*item
	running    bool
	generation int // bumped by ClearQueue; stops the loop after the running job
	restart    bool // StartProcessing arrived while a cleared loop was finishing
	nextIndex  int
	processed  int
	total      int // enqueued since last clear

	onItem      ItemCallback
	onError     ErrorCallback
	onCompleted CompletedCallback
}

// New creates an empty queue.
func New() *Queue {
	q := &Queue{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// OnItemProcessed registers the per-item success callback.
func (q *Queue) OnItemProcessed(cb ItemCallback) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.onItem = cb
}

// OnError registers the per-item failure callback.
func (q *Queue) OnError(cb ErrorCallback) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.onError = cb
}

// OnQueueCompleted registers the drain callback.
func (q *Queue) OnQueueCompleted(cb CompletedCallback) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.onCompleted = cb
}

// AddItem appends a job. Valid at any time, including while the queue is
// running; the job runs after the currently queued items.
func (q *Queue) AddItem(task Task, metadata Metadata) string {
	q.mu.Lock()
	defer q.mu.Unlock()

	it := &item{
		id:       uuid.New().String(),
		task:     task,
		metadata: metadata,
		index:    q.nextIndex,
	}
	q.nextIndex++
	q.total++
	q.items = append(q.items, it)
	slog.Debug("Queue: Enqueued item", "id", it.id, "index", it.index, "queue_len", len(q.items))
	return it.id
}

// ClearQueue discards all not-yet-started jobs and resets the counters.
// A currently running job finishes, but nothing runs after it until the
// next StartProcessing call.
func (q *Queue) ClearQueue() {
	q.mu.Lock()
	defer q.mu.Unlock()
	dropped := len(q.items)
	q.items = nil
	q.generation++
	q.nextIndex = 0
	q.processed = 0
	q.total = 0
	if dropped > 0 {
		slog.Info("Queue: Cleared pending items", "dropped", dropped)
	}
}

// StartProcessing begins consuming jobs from the head. Idempotent: calling
// it while already running is a no-op.
func (q *Queue) StartProcessing(ctx context.Context) {
	q.mu.Lock()
	if q.running {
		// The loop may be finishing a job from before a ClearQueue; have
		// it pick up the new generation instead of exiting.
		q.restart = true
		q.mu.Unlock()
		return
	}
	q.running = true
	gen := q.generation
	q.mu.Unlock()

	go q.loop(ctx, gen)
}

// Drain blocks until the queue is not running, or the context is done.
func (q *Queue) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		q.mu.Lock()
		for q.running {
			q.cond.Wait()
		}
		q.mu.Unlock()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stats returns live progress counters.
func (q *Queue) Stats() model.QueueStats {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.statsLocked()
}

func (q *Queue) statsLocked() model.QueueStats {
	progress := 0.0
	if q.total > 0 {
		progress = float64(q.processed) / float64(q.total)
	}
	return model.QueueStats{
		ProcessedItems: q.processed,
		TotalItems:     q.total,
		Progress:       progress,
	}
}

// IsRunning reports whether the consuming loop is active.
func (q *Queue) IsRunning() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.running
}

// Pending returns the number of not-yet-started jobs.
func (q *Queue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

func (q *Queue) loop(ctx context.Context, gen int) {
	ranAny := false
	for {
		q.mu.Lock()
		if q.generation != gen || ctx.Err() != nil {
			if q.restart && ctx.Err() == nil {
				q.restart = false
				gen = q.generation
				ranAny = false
				q.mu.Unlock()
				continue
			}
			// Cleared (or cancelled) while a job was in flight. Stop
			// without the completion callback; this is not a drain.
			q.stopLocked()
			q.mu.Unlock()
			return
		}
		q.restart = false
		if len(q.items) == 0 {
			stats := q.statsLocked()
			cb := q.onCompleted
			q.stopLocked()
			q.mu.Unlock()
			if ranAny && cb != nil {
				cb(stats)
			}
			return
		}
		it := q.items[0]
		q.items = q.items[1:]
		onItem, onError := q.onItem, q.onError
		q.mu.Unlock()

		result, err := runTask(ctx, it.task)

		q.mu.Lock()
		stale := q.generation != gen
		if !stale {
			q.processed++
		}
		q.mu.Unlock()

		ranAny = true
		if stale {
			// The queue was cleared under us; report nothing for a job
			// whose submission sequence no longer exists.
			continue
		}
		if err != nil {
			slog.Warn("Queue: Item failed", "id", it.id, "index", it.index, "error", err)
			if onError != nil {
				onError(err, it.metadata, it.index)
			}
			continue
		}
		if onItem != nil {
			onItem(result, it.metadata, it.index)
		}
	}
}

func (q *Queue) stopLocked() {
	q.running = false
	q.cond.Broadcast()
}

// runTask executes one task, converting a panic into an error so no job
// can crash the queue loop.
func runTask(ctx context.Context, task Task) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task panicked: %v", r)
		}
	}()
	return task(ctx)
}
