package worker

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/rs/zerolog/log"
)

const QueueEmail = "jobs:email"

// ErrQueueFull is returned by Submit when the bounded queue has no room.
var ErrQueueFull = errors.New("worker queue is full")

// ErrPoolStopped is returned by Submit after Stop.
var ErrPoolStopped = errors.New("worker pool is stopped")

// Job is the generic envelope for all async tasks.
type Job struct {
	Queue   string          `json:"queue"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Handler processes one job payload. A returned error sends the job to the
// dead-letter list; jobs are never retried.
type Handler func(ctx context.Context, payload json.RawMessage) error

// Pool is a fixed set of goroutines draining a bounded in-process queue.
// Submit never blocks the caller.
type Pool struct {
	size     int
	jobs     chan Job
	handlers map[string]Handler
	dlq      *DeadLetter

	mu      sync.RWMutex
	stopped bool
	wg      sync.WaitGroup
}

// NewPool creates a pool of size workers over a queue of queueSize jobs.
// dlq may be nil.
func NewPool(size, queueSize int, dlq *DeadLetter) *Pool {
	if size <= 0 {
		size = 1
	}
	if queueSize <= 0 {
		queueSize = 1
	}
	return &Pool{
		size:     size,
		jobs:     make(chan Job, queueSize),
		handlers: make(map[string]Handler),
		dlq:      dlq,
	}
}

// Handle registers h for jobType. Call before Start.
func (p *Pool) Handle(jobType string, h Handler) {
	p.handlers[jobType] = h
}

// Submit enqueues a job without blocking.
func (p *Pool) Submit(queue, jobType string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.stopped {
		return ErrPoolStopped
	}
	select {
	case p.jobs <- Job{Queue: queue, Type: jobType, Payload: data}:
		return nil
	default:
		return ErrQueueFull
	}
}

// Start launches the workers. Jobs run detached from ctx cancellation so a
// shutdown drains the queue instead of aborting sends midway.
func (p *Pool) Start(ctx context.Context) {
	jobCtx := context.WithoutCancel(ctx)
	for i := 0; i < p.size; i++ {
		p.wg.Add(1)
		go p.run(jobCtx, i)
	}
	log.Info().Msgf("worker pool started with %d workers", p.size)
}

// Stop closes the queue and waits until every queued job has been processed.
func (p *Pool) Stop() {
	p.mu.Lock()
	if !p.stopped {
		p.stopped = true
		close(p.jobs)
	}
	p.mu.Unlock()
	p.wg.Wait()
	log.Info().Msg("worker pool stopped")
}

func (p *Pool) run(ctx context.Context, id int) {
	defer p.wg.Done()
	for job := range p.jobs {
		p.process(ctx, id, job)
	}
}

func (p *Pool) process(ctx context.Context, id int, job Job) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Str("job_type", job.Type).Int("worker", id).Msg("worker: job panicked")
		}
	}()
	h, ok := p.handlers[job.Type]
	if !ok {
		log.Error().Str("job_type", job.Type).Str("queue", job.Queue).Msg("worker: no handler registered")
		return
	}
	if err := h(ctx, job.Payload); err != nil {
		log.Error().Err(err).Str("job_type", job.Type).Str("queue", job.Queue).Int("worker", id).Msg("worker: job failed")
		p.dlq.Push(ctx, job.Queue, job.Type, job.Payload, err.Error())
	}
}
