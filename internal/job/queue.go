package job

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var ErrNotFound = errors.New("job not found")

const jobColumns = `id, type, status, document, params, progress, result, error, created_at, started_at, completed_at`

// JobQueue manages job persistence and dispatching
type JobQueue struct {
	db      *sql.DB
	log     *zap.Logger
	mu      sync.RWMutex
	pending chan string // job IDs to process
	// overflow is set when Enqueue found pending full; the worker reloads
	// pending rows from the database once the channel drains.
	overflow atomic.Bool
	cancels  map[string]context.CancelFunc
	handlers map[JobType]JobHandler
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

// NewJobQueue creates a queue. Register handlers, then call Start.
func NewJobQueue(db *sql.DB, log *zap.Logger) *JobQueue {
	if log == nil {
		log = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &JobQueue{
		db:       db,
		log:      log.Named("job"),
		pending:  make(chan string, 100),
		cancels:  make(map[string]context.CancelFunc),
		handlers: make(map[JobType]JobHandler),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// RegisterHandler registers a handler for a job type
func (q *JobQueue) RegisterHandler(jobType JobType, handler JobHandler) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.handlers[jobType] = handler
}

// Start resumes unfinished jobs and starts the worker.
func (q *JobQueue) Start() {
	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		q.resumeJobs()
		q.worker()
	}()
}

// Enqueue creates a new job and adds it to the queue
func (q *JobQueue) Enqueue(ctx context.Context, jobType JobType, document string, params any) (*Job, error) {
	paramsJSON, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("marshal params: %w", err)
	}

	job := &Job{
		ID:        uuid.New().String(),
		Type:      jobType,
		Status:    StatusPending,
		Document:  document,
		Params:    paramsJSON,
		Progress:  0,
		CreatedAt: time.Now().UTC(),
	}

	_, err = q.db.ExecContext(ctx, `
		INSERT INTO jobs (id, type, status, document, params, progress, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		job.ID, job.Type, job.Status, job.Document, string(job.Params), job.Progress, job.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert job: %w", err)
	}

	select {
	case q.pending <- job.ID:
	default:
		q.overflow.Store(true)
		q.log.Warn("queue full, job is picked up from the database when the queue drains", zap.String("job_id", job.ID))
	}

	return job, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*Job, error) {
	job := &Job{}
	var params, result, errMsg sql.NullString
	var startedAt, completedAt sql.NullTime

	if err := row.Scan(&job.ID, &job.Type, &job.Status, &job.Document, &params, &job.Progress,
		&result, &errMsg, &job.CreatedAt, &startedAt, &completedAt); err != nil {
		return nil, err
	}

	if params.Valid {
		job.Params = json.RawMessage(params.String)
	}
	if result.Valid {
		job.Result = json.RawMessage(result.String)
	}
	if errMsg.Valid {
		job.Error = errMsg.String
	}
	if startedAt.Valid {
		job.StartedAt = &startedAt.Time
	}
	if completedAt.Valid {
		job.CompletedAt = &completedAt.Time
	}
	return job, nil
}

// GetJob retrieves a job by ID
func (q *JobQueue) GetJob(ctx context.Context, id string) (*Job, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return job, err
}

// ListJobs returns all jobs ordered by creation time (newest first)
func (q *JobQueue) ListJobs(ctx context.Context) ([]*Job, error) {
	rows, err := q.db.QueryContext(ctx, `SELECT `+jobColumns+` FROM jobs ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	jobs := []*Job{}
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// CancelJob cancels a pending or running job
func (q *JobQueue) CancelJob(ctx context.Context, id string) error {
	q.mu.Lock()
	if cancelFn, ok := q.cancels[id]; ok {
		cancelFn()
		delete(q.cancels, id)
	}
	q.mu.Unlock()

	res, err := q.db.ExecContext(ctx, `
		UPDATE jobs SET status = ?, completed_at = ?
		WHERE id = ? AND status IN (?, ?)`,
		StatusCancelled, time.Now().UTC(), id, StatusPending, StatusRunning,
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if _, err := q.GetJob(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

// UpdateProgress updates the progress of a running job
func (q *JobQueue) UpdateProgress(id string, progress float64) {
	if _, err := q.db.Exec("UPDATE jobs SET progress = ? WHERE id = ?", progress, id); err != nil {
		q.log.Debug("progress update failed", zap.String("job_id", id), zap.Error(err))
	}
}

// Stop shuts down the worker and waits for it to return. A job still
// running is left in the running state and resumed on the next Start.
func (q *JobQueue) Stop() {
	q.cancel()
	q.wg.Wait()
}

// worker processes jobs from the pending channel one at a time
func (q *JobQueue) worker() {
	for {
		select {
		case <-q.ctx.Done():
			return
		case jobID := <-q.pending:
			q.processJob(jobID)
			if len(q.pending) == 0 && q.overflow.Swap(false) {
				q.requeuePending()
			}
		}
	}
}

// processJob runs a single job
func (q *JobQueue) processJob(jobID string) {
	job, err := q.GetJob(q.ctx, jobID)
	if err != nil {
		q.log.Error("failed to load job", zap.String("job_id", jobID), zap.Error(err))
		return
	}

	if job.Status != StatusPending {
		return
	}

	q.mu.RLock()
	handler, ok := q.handlers[job.Type]
	q.mu.RUnlock()

	if !ok {
		q.failJob(job, fmt.Sprintf("no handler for job type: %s", job.Type))
		return
	}

	now := time.Now().UTC()
	job.StartedAt = &now
	job.Status = StatusRunning
	if _, err := q.db.Exec("UPDATE jobs SET status = ?, started_at = ? WHERE id = ?", StatusRunning, now, job.ID); err != nil {
		q.log.Error("failed to mark job running", zap.String("job_id", job.ID), zap.Error(err))
	}

	ctx, cancelFn := context.WithCancel(q.ctx)
	q.mu.Lock()
	q.cancels[job.ID] = cancelFn
	q.mu.Unlock()

	updateProgress := func(progress float64) {
		q.UpdateProgress(job.ID, progress)
	}

	type outcome struct {
		result any
		err    error
	}
	done := make(chan outcome, 1)
	go func() {
		result, err := handler(ctx, job, updateProgress)
		done <- outcome{result, err}
	}()

	select {
	case <-ctx.Done():
		q.log.Info("job cancelled", zap.String("job_id", job.ID))
	case out := <-done:
		if out.err != nil {
			q.failJob(job, out.err.Error())
		} else {
			q.completeJob(job, out.result)
		}
	}

	q.mu.Lock()
	delete(q.cancels, job.ID)
	q.mu.Unlock()
	cancelFn()
}

func (q *JobQueue) completeJob(job *Job, result any) {
	var resultJSON sql.NullString
	if result != nil {
		b, err := json.Marshal(result)
		if err != nil {
			q.failJob(job, fmt.Sprintf("marshal result: %v", err))
			return
		}
		resultJSON = sql.NullString{String: string(b), Valid: true}
	}
	_, err := q.db.Exec("UPDATE jobs SET status = ?, progress = 1.0, result = ?, completed_at = ? WHERE id = ? AND status = ?",
		StatusCompleted, resultJSON, time.Now().UTC(), job.ID, StatusRunning)
	if err != nil {
		q.log.Error("failed to complete job", zap.String("job_id", job.ID), zap.Error(err))
		return
	}
	q.log.Info("job completed", zap.String("job_id", job.ID))
}

func (q *JobQueue) failJob(job *Job, errMsg string) {
	_, err := q.db.Exec("UPDATE jobs SET status = ?, error = ?, completed_at = ? WHERE id = ?",
		StatusFailed, errMsg, time.Now().UTC(), job.ID)
	if err != nil {
		q.log.Error("failed to record job failure", zap.String("job_id", job.ID), zap.Error(err))
	}
	q.log.Warn("job failed", zap.String("job_id", job.ID), zap.String("error", errMsg))
}

// resumeJobs re-queues any pending jobs found in DB on startup
func (q *JobQueue) resumeJobs() {
	// running jobs were interrupted by a restart
	if _, err := q.db.Exec("UPDATE jobs SET status = ? WHERE status = ?", StatusPending, StatusRunning); err != nil {
		q.log.Error("failed to reset running jobs", zap.Error(err))
	}
	if count := q.requeuePending(); count > 0 {
		q.log.Info("resumed pending jobs", zap.Int("count", count))
	}
}

// requeuePending loads pending jobs oldest first into the channel until it is
// full. Jobs that do not fit set overflow again for the next drain.
func (q *JobQueue) requeuePending() int {
	rows, err := q.db.QueryContext(q.ctx, "SELECT id FROM jobs WHERE status = ? ORDER BY created_at ASC", StatusPending)
	if err != nil {
		q.log.Error("failed to load pending jobs", zap.Error(err))
		return 0
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			continue
		}
		ids = append(ids, id)
	}
	rows.Close()

	for i, id := range ids {
		select {
		case q.pending <- id:
		default:
			q.overflow.Store(true)
			return i
		}
	}
	return len(ids)
}
