// Package queue is a generic at-least-once delayed execution
// substrate: submitted jobs fire at their due time on a bounded
// worker pool, with idempotent job identity, keyed cancellation, and
// exponential-backoff retries. The queue holds no durable state of
// its own; it is a rebuildable index over the relational store.
package queue

import (
	"container/heap"
	"context"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

// Payload carries the job's routing kind and entity references.
type Payload struct {
	Kind      string `json:"kind"`
	MessageID int64  `json:"message_id,omitempty"`
	EventID   int64  `json:"event_id,omitempty"`
}

// Job is one delayed unit of work.
type Job struct {
	ID       string
	Payload  Payload
	RunAt    time.Time
	Priority int // higher fires first among due jobs
}

// Handler executes jobs of one kind. HandleJob returning an error
// triggers the retry policy; HandleFailure is called once the retry
// budget is exhausted.
type Handler interface {
	HandleJob(ctx context.Context, job Job) error
	HandleFailure(ctx context.Context, job Job, err error)
}

// Config for the queue.
type Config struct {
	Workers        int
	MaxRetries     int
	InitialBackoff time.Duration
}

type entryState int

const (
	statePending entryState = iota
	stateFiring
)

type entry struct {
	job      Job
	attempts int
	backoff  *backoff.ExponentialBackOff
	state    entryState
	index    int // heap index, -1 when not heaped
}

// Queue is the in-process delayed job queue.
type Queue struct {
	mu       sync.Mutex
	heap     entryHeap
	entries  map[string]*entry
	wake     chan struct{}
	handlers map[string]Handler
	cfg      Config
	logger   *zap.Logger
	clock    func() time.Time
}

func New(cfg Config, logger *zap.Logger) *Queue {
	if cfg.Workers <= 0 {
		cfg.Workers = 8
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = 30 * time.Second
	}
	return &Queue{
		entries:  make(map[string]*entry),
		wake:     make(chan struct{}, 1),
		handlers: make(map[string]Handler),
		cfg:      cfg,
		logger:   logger,
		clock:    time.Now,
	}
}

// Register installs the handler for a payload kind. Must be called
// before Run.
func (q *Queue) Register(kind string, h Handler) {
	q.handlers[kind] = h
}

// Submit enqueues a job. Resubmission with an id that is already
// pending or in flight is a no-op: deterministic job identity is what
// prevents duplicate sends when a scheduler is re-run.
func (q *Queue) Submit(job Job) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, exists := q.entries[job.ID]; exists {
		q.logger.Debug("Job already queued, ignoring resubmission", zap.String("job_id", job.ID))
		return
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = q.cfg.InitialBackoff
	bo.MaxElapsedTime = 0 // attempts are bounded by MaxRetries, not wall time

	e := &entry{job: job, backoff: bo, index: -1}
	q.entries[job.ID] = e
	heap.Push(&q.heap, e)
	q.signal()
}

// Cancel removes a not-yet-fired job. Returns false when the job is
// unknown or already in flight; there is no cancellation of an
// in-flight execution.
func (q *Queue) Cancel(jobID string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	e, ok := q.entries[jobID]
	if !ok || e.state != statePending {
		return false
	}
	if e.index >= 0 {
		heap.Remove(&q.heap, e.index)
	}
	delete(q.entries, jobID)
	q.signal()
	return true
}

// Pending reports the number of jobs waiting to fire.
func (q *Queue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.heap.Len()
}

// Contains reports whether a job id is queued or in flight.
func (q *Queue) Contains(jobID string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	_, ok := q.entries[jobID]
	return ok
}

// Run drives the timer loop and worker pool until ctx is cancelled.
func (q *Queue) Run(ctx context.Context) {
	due := make(chan *entry)
	var wg sync.WaitGroup
	for i := 0; i < q.cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for e := range due {
				q.execute(ctx, e)
			}
		}()
	}

	q.logger.Info("Delayed job queue started", zap.Int("workers", q.cfg.Workers))

	timer := time.NewTimer(time.Hour)
	defer timer.Stop()

loop:
	for {
		e, wait := q.nextDue()
		if e != nil {
			select {
			case due <- e:
				continue
			case <-ctx.Done():
				break loop
			}
		}

		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(wait)

		select {
		case <-ctx.Done():
			break loop
		case <-q.wake:
		case <-timer.C:
		}
	}

	close(due)
	wg.Wait()
	q.logger.Info("Delayed job queue stopped")
}

// nextDue pops the next due entry, or returns how long to wait for
// the earliest pending one.
func (q *Queue) nextDue() (*entry, time.Duration) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.heap.Len() == 0 {
		return nil, time.Hour
	}
	top := q.heap[0]
	now := q.clock()
	if top.job.RunAt.After(now) {
		return nil, top.job.RunAt.Sub(now)
	}
	heap.Pop(&q.heap)
	top.state = stateFiring
	return top, 0
}

func (q *Queue) execute(ctx context.Context, e *entry) {
	handler, ok := q.handlers[e.job.Payload.Kind]
	if !ok {
		q.logger.Error("No handler registered for job kind",
			zap.String("job_id", e.job.ID), zap.String("kind", e.job.Payload.Kind))
		q.finish(e)
		return
	}

	err := handler.HandleJob(ctx, e.job)
	if err == nil {
		q.finish(e)
		return
	}

	q.mu.Lock()
	e.attempts++
	attempts := e.attempts
	q.mu.Unlock()

	if attempts >= q.cfg.MaxRetries {
		q.logger.Error("Job failed permanently",
			zap.String("job_id", e.job.ID), zap.Int("attempts", attempts), zap.Error(err))
		q.finish(e)
		handler.HandleFailure(ctx, e.job, err)
		return
	}

	delay := e.backoff.NextBackOff()
	q.logger.Warn("Job failed, scheduling retry",
		zap.String("job_id", e.job.ID), zap.Int("attempt", attempts),
		zap.Duration("retry_in", delay), zap.Error(err))

	q.mu.Lock()
	e.job.RunAt = q.clock().Add(delay)
	e.state = statePending
	heap.Push(&q.heap, e)
	q.mu.Unlock()
	q.signal()
}

func (q *Queue) finish(e *entry) {
	q.mu.Lock()
	delete(q.entries, e.job.ID)
	q.mu.Unlock()
	q.signal()
}

func (q *Queue) signal() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// entryHeap orders entries by due instant, then by priority so that
// imminent high-value jobs are serviced first under load.
type entryHeap []*entry

func (h entryHeap) Len() int { return len(h) }

func (h entryHeap) Less(i, j int) bool {
	if !h[i].job.RunAt.Equal(h[j].job.RunAt) {
		return h[i].job.RunAt.Before(h[j].job.RunAt)
	}
	return h[i].job.Priority > h[j].job.Priority
}

func (h entryHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *entryHeap) Push(x interface{}) {
	e := x.(*entry)
	e.index = len(*h)
	*h = append(*h, e)
}

func (h *entryHeap) Pop() interface{} {
	old := *h
	n := len(old)
	e := old[n-1]
	e.index = -1
	old[n-1] = nil
	*h = old[:n-1]
	return e
}
