package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"agent-orchestrator/internal/usecase"

	"github.com/google/uuid"
)

const (
	defaultPollInterval = 100 * time.Millisecond
	jobTimeout          = 60 * time.Second
	initialBackoff      = 1 * time.Second
	maxBackoff          = 5 * time.Minute
)

// Job statuses.
const (
	StatusQueued    = "queued"
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// IndexJob is an asynchronous document indexing request.
type IndexJob struct {
	ID        uuid.UUID
	SessionID string
	Body      string
	Status    string
	Error     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// JobQueue is an in-memory FIFO of indexing jobs. Completed and failed
// jobs stay queryable until the process exits.
type JobQueue struct {
	mu      sync.Mutex
	pending []uuid.UUID
	jobs    map[uuid.UUID]*IndexJob
}

func NewJobQueue() *JobQueue {
	return &JobQueue{jobs: make(map[uuid.UUID]*IndexJob)}
}

// Enqueue registers a new job and returns its ID.
func (q *JobQueue) Enqueue(sessionID, body string) uuid.UUID {
	q.mu.Lock()
	defer q.mu.Unlock()

	job := &IndexJob{
		ID:        uuid.New(),
		SessionID: sessionID,
		Body:      body,
		Status:    StatusQueued,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	q.jobs[job.ID] = job
	q.pending = append(q.pending, job.ID)
	return job.ID
}

// Get returns a copy of the job, or nil if unknown.
func (q *JobQueue) Get(id uuid.UUID) *IndexJob {
	q.mu.Lock()
	defer q.mu.Unlock()

	job, ok := q.jobs[id]
	if !ok {
		return nil
	}
	cp := *job
	return &cp
}

func (q *JobQueue) acquireNext() *IndexJob {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.pending) == 0 {
		return nil
	}
	id := q.pending[0]
	q.pending = q.pending[1:]

	job := q.jobs[id]
	job.Status = StatusRunning
	job.UpdatedAt = time.Now()
	cp := *job
	return &cp
}

func (q *JobQueue) updateStatus(id uuid.UUID, status, errMsg string) {
	q.mu.Lock()
	defer q.mu.Unlock()

	job, ok := q.jobs[id]
	if !ok {
		return
	}
	job.Status = status
	job.Error = errMsg
	job.UpdatedAt = time.Now()
}

// IndexWorker drains the job queue in the background. Jobs run one at a
// time, so indexing requests for the same session never race each other.
type IndexWorker struct {
	queue        *JobQueue
	indexUsecase usecase.IndexDocumentUsecase
	logger       *slog.Logger
	stopChan     chan struct{}
	backoff      time.Duration
}

func NewIndexWorker(
	queue *JobQueue,
	indexUsecase usecase.IndexDocumentUsecase,
	logger *slog.Logger,
) *IndexWorker {
	return &IndexWorker{
		queue:        queue,
		indexUsecase: indexUsecase,
		logger:       logger,
		stopChan:     make(chan struct{}),
	}
}

func (w *IndexWorker) Start() {
	w.logger.Info("Starting IndexWorker")
	go w.run()
}

func (w *IndexWorker) Stop() {
	w.logger.Info("Stopping IndexWorker")
	close(w.stopChan)
}

func (w *IndexWorker) run() {
	ticker := time.NewTicker(defaultPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopChan:
			return
		case <-ticker.C:
			w.processNextJob()
			if w.backoff > 0 {
				ticker.Reset(w.backoff)
			} else {
				ticker.Reset(defaultPollInterval)
			}
		}
	}
}

func (w *IndexWorker) processNextJob() {
	job := w.queue.acquireNext()
	if job == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	w.logger.Info("Processing index job", "job_id", job.ID, "session_id", job.SessionID)

	_, err := w.indexUsecase.Index(ctx, job.SessionID, job.Body)
	if err != nil {
		w.backoff = w.nextBackoff(w.backoff)
		w.logger.Warn("Worker backing off", "job_id", job.ID, "backoff", w.backoff, "error", err)
		w.queue.updateStatus(job.ID, StatusFailed, err.Error())
		return
	}

	w.backoff = 0
	w.logger.Info("Index job completed", "job_id", job.ID)
	w.queue.updateStatus(job.ID, StatusCompleted, "")
}

func (w *IndexWorker) nextBackoff(current time.Duration) time.Duration {
	if current == 0 {
		return initialBackoff
	}
	next := current * 2
	if next > maxBackoff {
		return maxBackoff
	}
	return next
}
