package jobs

import (
	"context"
	"errors"
	"time"

	"github.com/cashflow-ai/cashflow-backend/internal/mailbox"
)

// ErrJobNotFound is returned by a JobStore for an unknown job ID.
var ErrJobNotFound = errors.New("job not found")

// JobType represents the type of job to be executed.
type JobType string

const (
	// JobTypeSyncMailbox represents a mailbox sync job.
	JobTypeSyncMailbox JobType = "sync_mailbox"
)

// JobStatus represents the current status of a job.
type JobStatus string

const (
	// JobStatusPending indicates the job is waiting to be processed.
	JobStatusPending JobStatus = "pending"
	// JobStatusRunning indicates the job is currently being processed.
	JobStatusRunning JobStatus = "running"
	// JobStatusCompleted indicates the job completed successfully.
	JobStatusCompleted JobStatus = "completed"
	// JobStatusFailed indicates the job failed.
	JobStatusFailed JobStatus = "failed"
	// JobStatusRetrying indicates the job failed and is being retried.
	JobStatusRetrying JobStatus = "retrying"
)

// SyncMailboxJob represents a job to sync one mailbox.
type SyncMailboxJob struct {
	// JobID is the unique identifier for this job.
	JobID string `json:"job_id"`

	// Mailbox is the address being synced.
	Mailbox string `json:"mailbox"`

	// Credentials are kept in memory only and never serialized.
	Credentials mailbox.Credentials `json:"-"`

	// Status is the current status of the job.
	Status JobStatus `json:"status"`

	// CreatedAt is when the job was created.
	CreatedAt time.Time `json:"created_at"`

	// StartedAt is when the job started processing.
	StartedAt *time.Time `json:"started_at,omitempty"`

	// CompletedAt is when the job completed (success or failure).
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// Count is the number of transactions the sync produced.
	Count int `json:"count"`

	// Fetched is the number of unread messages the sync saw.
	Fetched int `json:"fetched"`

	// Error contains error details if the job failed.
	Error string `json:"error,omitempty"`

	// RetryCount is the number of times this job has been retried.
	RetryCount int `json:"retry_count"`

	// MaxRetries is the maximum number of retries allowed.
	MaxRetries int `json:"max_retries"`
}

// Job is a generic interface for all job types.
type Job interface {
	GetID() string
	GetType() JobType
	GetStatus() JobStatus
}

// GetID implements the Job interface.
func (j *SyncMailboxJob) GetID() string {
	return j.JobID
}

// GetType implements the Job interface.
func (j *SyncMailboxJob) GetType() JobType {
	return JobTypeSyncMailbox
}

// GetStatus implements the Job interface.
func (j *SyncMailboxJob) GetStatus() JobStatus {
	return j.Status
}

// Publisher defines the interface for publishing jobs to a queue.
type Publisher interface {
	// PublishSyncMailbox publishes a mailbox sync job.
	PublishSyncMailbox(ctx context.Context, job *SyncMailboxJob) error

	// Close closes the publisher and releases resources.
	Close() error
}

// Consumer defines the interface for consuming jobs from a queue.
type Consumer interface {
	// Start begins consuming jobs from the queue.
	// The handler function is called for each job received.
	Start(ctx context.Context, handler JobHandler) error

	// Stop stops consuming jobs and waits for in-flight jobs to complete.
	Stop(ctx context.Context) error
}

// JobHandler processes a job. It may record results on the job and
// should return an error if the job failed and should be retried.
type JobHandler func(ctx context.Context, job *SyncMailboxJob) error

// JobStore defines the interface for storing and retrieving job status.
type JobStore interface {
	// SaveJob saves or updates a job's state.
	SaveJob(ctx context.Context, job *SyncMailboxJob) error

	// GetJob retrieves a job by ID. Unknown IDs yield ErrJobNotFound.
	GetJob(ctx context.Context, jobID string) (*SyncMailboxJob, error)

	// ListJobs retrieves jobs with optional filtering, oldest first.
	ListJobs(ctx context.Context, filter JobFilter) ([]*SyncMailboxJob, error)

	// UpdateJobStatus updates the status of a job.
	UpdateJobStatus(ctx context.Context, jobID string, status JobStatus, errorMsg string) error
}

// JobFilter defines filtering criteria for listing jobs.
type JobFilter struct {
	// Mailbox filters jobs by mailbox address.
	Mailbox string

	// Status filters jobs by status.
	Status JobStatus

	// Limit limits the number of results.
	Limit int

	// Offset for pagination.
	Offset int
}
