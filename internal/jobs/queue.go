// Package jobs runs exports and reports off the request path on a bounded worker pool.
// Job status lives in Redis so any instance can answer GET /jobs/{id}.
package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"quiz-master/pkg/metrics"
)

var (
	ErrQueueFull   = errors.New("job queue is full")
	ErrQueueClosed = errors.New("job queue is shut down")
	ErrUnknownKind = errors.New("unknown job kind")
	ErrJobNotFound = errors.New("job not found")
)

const (
	KindUserAttemptsExport = "export.user_attempts"
	KindAdminQuizzesExport = "export.admin_quizzes"
	KindMonthlyReport      = "report.monthly"

	// EventJobCompleted is the websocket message type sent to the job owner.
	EventJobCompleted = "job_completed"
)

type State string

const (
	StateQueued    State = "queued"
	StateRunning   State = "running"
	StateSucceeded State = "succeeded"
	StateFailed    State = "failed"
)

type Status struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"`
	OwnerID   uint      `json:"owner_id"`
	State     State     `json:"status"`
	Artifact  string    `json:"artifact,omitempty"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Job is what a handler receives.
type Job struct {
	ID      string
	Kind    string
	OwnerID uint
	Payload json.RawMessage
}

// Decode unmarshals the job payload into dst.
func (j Job) Decode(dst interface{}) error {
	if err := json.Unmarshal(j.Payload, dst); err != nil {
		return fmt.Errorf("decode %s payload: %w", j.Kind, err)
	}
	return nil
}

// HandlerFunc does the work of one job and returns the artifact name it produced.
type HandlerFunc func(ctx context.Context, job Job) (string, error)

type StatusStore interface {
	Save(ctx context.Context, status Status) error
	Load(ctx context.Context, id string) (Status, error)
}

type Notifier interface {
	SendToUser(userID uint, messageType string, data interface{})
}

type Options struct {
	Workers int
	Size    int
}

type Queue struct {
	store    StatusStore
	notifier Notifier
	log      *logrus.Entry
	now      func() time.Time

	handlers map[string]HandlerFunc
	jobs     chan Job
	workers  int

	mu      sync.RWMutex
	closed  bool
	started bool
	wg      sync.WaitGroup

	baseCtx context.Context
	cancel  context.CancelFunc
}

func NewQueue(store StatusStore, notifier Notifier, opts Options, log *logrus.Entry) *Queue {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.Size <= 0 {
		opts.Size = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Queue{
		store:    store,
		notifier: notifier,
		log:      log,
		now:      time.Now,
		handlers: make(map[string]HandlerFunc),
		jobs:     make(chan Job, opts.Size),
		workers:  opts.Workers,
		baseCtx:  ctx,
		cancel:   cancel,
	}
}

// Register binds a handler to a kind. Call before Start.
func (q *Queue) Register(kind string, handler HandlerFunc) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.handlers[kind] = handler
}

func (q *Queue) Start() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.started || q.closed {
		return
	}
	q.started = true
	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.worker(i)
	}
	q.log.WithField("workers", q.workers).Info("Job workers started")
}

// Enqueue records a queued status and buffers the job without blocking.
func (q *Queue) Enqueue(ctx context.Context, kind string, ownerID uint, payload interface{}) (Status, error) {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		return Status{}, ErrQueueClosed
	}
	if _, ok := q.handlers[kind]; !ok {
		return Status{}, fmt.Errorf("%w: %s", ErrUnknownKind, kind)
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return Status{}, fmt.Errorf("encode %s payload: %w", kind, err)
	}

	now := q.now().UTC()
	status := Status{
		ID:        uuid.NewString(),
		Kind:      kind,
		OwnerID:   ownerID,
		State:     StateQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := q.store.Save(ctx, status); err != nil {
		return Status{}, fmt.Errorf("save job status: %w", err)
	}

	select {
	case q.jobs <- Job{ID: status.ID, Kind: kind, OwnerID: ownerID, Payload: raw}:
	default:
		status.State = StateFailed
		status.Error = ErrQueueFull.Error()
		status.UpdatedAt = q.now().UTC()
		if err := q.store.Save(ctx, status); err != nil {
			q.log.WithError(err).WithField("job_id", status.ID).Warn("Failed to record rejected job")
		}
		return Status{}, ErrQueueFull
	}

	q.log.WithFields(logrus.Fields{"job_id": status.ID, "kind": kind, "user_id": ownerID}).Info("Job queued")
	return status, nil
}

func (q *Queue) Get(ctx context.Context, id string) (Status, error) {
	return q.store.Load(ctx, id)
}

// Shutdown stops accepting jobs and waits for buffered ones to finish.
// When ctx expires first, running handlers see their context cancelled.
func (q *Queue) Shutdown(ctx context.Context) error {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		close(q.jobs)
	}
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		q.cancel()
		q.log.Info("Job workers stopped")
		return nil
	case <-ctx.Done():
		q.cancel()
		q.log.Warn("Job workers still running at shutdown deadline")
		return ctx.Err()
	}
}

func (q *Queue) worker(n int) {
	defer q.wg.Done()
	for job := range q.jobs {
		q.run(job)
	}
	q.log.WithField("worker", n).Debug("Job worker exiting")
}

func (q *Queue) run(job Job) {
	log := q.log.WithFields(logrus.Fields{"job_id": job.ID, "kind": job.Kind, "user_id": job.OwnerID})
	storeCtx := context.WithoutCancel(q.baseCtx)

	status, err := q.store.Load(storeCtx, job.ID)
	if err != nil {
		// Status expired or the store is down; keep going with what the job carries.
		status = Status{ID: job.ID, Kind: job.Kind, OwnerID: job.OwnerID, CreatedAt: q.now().UTC()}
	}
	status.State = StateRunning
	status.UpdatedAt = q.now().UTC()
	q.save(storeCtx, log, status)

	q.mu.RLock()
	handler := q.handlers[job.Kind]
	q.mu.RUnlock()

	start := time.Now()
	artifact, runErr := q.invoke(handler, job)
	metrics.RecordJob(job.Kind, time.Since(start), runErr == nil)

	status.UpdatedAt = q.now().UTC()
	if runErr != nil {
		status.State = StateFailed
		status.Error = runErr.Error()
		log.WithError(runErr).Error("Job failed")
	} else {
		status.State = StateSucceeded
		status.Artifact = artifact
		log.WithField("artifact", artifact).Info("Job succeeded")
	}
	q.save(storeCtx, log, status)

	if q.notifier != nil {
		q.notifier.SendToUser(job.OwnerID, EventJobCompleted, status)
	}
}

func (q *Queue) invoke(handler HandlerFunc, job Job) (artifact string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job panicked: %v", r)
		}
	}()
	return handler(q.baseCtx, job)
}

func (q *Queue) save(ctx context.Context, log *logrus.Entry, status Status) {
	if err := q.store.Save(ctx, status); err != nil {
		log.WithError(err).Warn("Failed to save job status")
	}
}
