// Package queue provides an in-memory job queue with a worker pool for
// asynchronous round-trip route generation. Routing provider calls are the
// only slow step in the service, so they run here rather than on the
// request path.
package queue

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/stuartshay/walkroute/internal/geo"
	"github.com/stuartshay/walkroute/internal/route"
)

// Queue errors
var (
	ErrQueueFull   = errors.New("queue is full")
	ErrJobNotFound = errors.New("job not found")
	ErrShutdown    = errors.New("queue is shut down")
)

// JobStatus represents the state of a route generation job
type JobStatus string

// Job status constants define the lifecycle states
const (
	StatusQueued     JobStatus = "queued"
	StatusProcessing JobStatus = "processing"
	StatusCompleted  JobStatus = "completed"
	StatusFailed     JobStatus = "failed"
)

// Request describes the route to generate
type Request struct {
	SessionID      string
	Origin         geo.Point
	DistanceMeters float64
}

// Job represents a route generation job
type Job struct {
	ID           string
	Request      Request
	Status       JobStatus
	QueuedAt     time.Time
	StartedAt    *time.Time
	CompletedAt  *time.Time
	ErrorMessage string
	Err          error
	Result       *JobResult
}

// JobResult contains the output of a completed job
type JobResult struct {
	Trip             *route.RoundTrip
	ProcessingTimeMS int64
}

// ProcessFunc is a function that processes a job
type ProcessFunc func(ctx context.Context, job *Job) (*JobResult, error)

// Queue manages route generation jobs with a worker pool
type Queue struct {
	mu           sync.RWMutex
	jobs         map[string]*Job
	pendingQueue chan *Job
	workers      int
	processor    ProcessFunc
	closed       bool
	stop         chan struct{}
	ctx          context.Context
	cancel       context.CancelFunc
	wg           sync.WaitGroup
}

// NewQueue creates a new job queue with the specified number of workers
func NewQueue(workers int, processor ProcessFunc) *Queue {
	if workers < 1 {
		workers = 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	q := &Queue{
		jobs:         make(map[string]*Job),
		pendingQueue: make(chan *Job, 100),
		workers:      workers,
		processor:    processor,
		stop:         make(chan struct{}),
		ctx:          ctx,
		cancel:       cancel,
	}

	// Start worker pool
	for i := 0; i < workers; i++ {
		q.wg.Add(1)
		go q.worker()
	}

	return q
}

// Enqueue adds a new job to the queue
func (q *Queue) Enqueue(req Request) (string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return "", ErrShutdown
	}

	job := &Job{
		ID:       uuid.New().String(),
		Request:  req,
		Status:   StatusQueued,
		QueuedAt: time.Now().UTC(),
	}

	// Add to pending queue (non-blocking)
	select {
	case q.pendingQueue <- job:
		q.jobs[job.ID] = job
		return job.ID, nil
	default:
		return "", ErrQueueFull
	}
}

// GetJob retrieves a copy of a job by ID
func (q *Queue) GetJob(jobID string) (*Job, error) {
	q.mu.RLock()
	defer q.mu.RUnlock()

	job, exists := q.jobs[jobID]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
	}

	return copyJob(job), nil
}

// ListJobs returns a page of jobs filtered by status and session, newest
// first, along with the number of jobs matching the filters. Empty filters
// match everything.
func (q *Queue) ListJobs(status JobStatus, sessionID string, limit, offset int) ([]*Job, int) {
	q.mu.RLock()
	filtered := make([]*Job, 0, len(q.jobs))
	for _, job := range q.jobs {
		if status != "" && job.Status != status {
			continue
		}
		if sessionID != "" && job.Request.SessionID != sessionID {
			continue
		}
		filtered = append(filtered, copyJob(job))
	}
	q.mu.RUnlock()

	sort.Slice(filtered, func(i, j int) bool {
		return filtered[i].QueuedAt.After(filtered[j].QueuedAt)
	})

	// Apply pagination
	total := len(filtered)
	start := offset
	if start > total {
		return []*Job{}, total
	}

	end := start + limit
	if end > len(filtered) {
		end = len(filtered)
	}

	return filtered[start:end], total
}

// GetStats returns queue statistics
func (q *Queue) GetStats() map[string]int {
	q.mu.RLock()
	defer q.mu.RUnlock()

	stats := map[string]int{
		"total":      len(q.jobs),
		"queued":     0,
		"processing": 0,
		"completed":  0,
		"failed":     0,
	}

	for _, job := range q.jobs {
		stats[string(job.Status)]++
	}

	return stats
}

// worker processes jobs from the queue
func (q *Queue) worker() {
	defer q.wg.Done()

	for {
		select {
		case <-q.stop:
			return
		case job := <-q.pendingQueue:
			select {
			case <-q.stop:
				q.abandon(job)
				return
			default:
			}
			q.processJob(job)
		}
	}
}

// processJob executes a single job
func (q *Queue) processJob(job *Job) {
	startTime := time.Now()

	// Update status to processing
	q.mu.Lock()
	job.Status = StatusProcessing
	now := time.Now().UTC()
	job.StartedAt = &now
	snapshot := copyJob(job)
	q.mu.Unlock()

	// Process the job
	result, err := q.processor(q.ctx, snapshot)

	// Update job with result
	q.mu.Lock()
	defer q.mu.Unlock()

	completedAt := time.Now().UTC()
	job.CompletedAt = &completedAt

	if err != nil {
		job.Status = StatusFailed
		job.Err = err
		job.ErrorMessage = err.Error()
		return
	}

	job.Status = StatusCompleted
	job.Result = result
	if result != nil {
		result.ProcessingTimeMS = time.Since(startTime).Milliseconds()
	}
}

// Shutdown stops accepting jobs and waits for running jobs to finish. Jobs
// that never started are marked failed with ErrShutdown. If the timeout
// passes first, running jobs have their context cancelled.
func (q *Queue) Shutdown(timeout time.Duration) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	close(q.stop)
	q.mu.Unlock()

	// Wait for workers to finish with timeout
	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	var err error
	select {
	case <-done:
	case <-time.After(timeout):
		err = fmt.Errorf("shutdown timeout exceeded")
	}
	q.cancel()

	// Fail whatever is still pending
	for {
		select {
		case job := <-q.pendingQueue:
			q.abandon(job)
		default:
			return err
		}
	}
}

// abandon marks a job that will never run as failed
func (q *Queue) abandon(job *Job) {
	q.mu.Lock()
	defer q.mu.Unlock()

	now := time.Now().UTC()
	job.Status = StatusFailed
	job.CompletedAt = &now
	job.Err = ErrShutdown
	job.ErrorMessage = ErrShutdown.Error()
}

func copyJob(job *Job) *Job {
	jobCopy := *job
	if job.StartedAt != nil {
		startedCopy := *job.StartedAt
		jobCopy.StartedAt = &startedCopy
	}
	if job.CompletedAt != nil {
		completedCopy := *job.CompletedAt
		jobCopy.CompletedAt = &completedCopy
	}
	if job.Result != nil {
		resultCopy := *job.Result
		jobCopy.Result = &resultCopy
	}
	return &jobCopy
}
