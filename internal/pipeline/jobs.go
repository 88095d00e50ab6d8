package pipeline

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dgallion1/headingmap/internal/headings"
)

// JobStatus represents the state of a scan job.
type JobStatus string

const (
	StatusQueued      JobStatus = "queued"
	StatusDiscovering JobStatus = "discovering"
	StatusAnalyzing   JobStatus = "analyzing"
	StatusCompleted   JobStatus = "completed"
	StatusFailed      JobStatus = "failed"
	StatusPartial     JobStatus = "partial"
	StatusCancelled   JobStatus = "cancelled"
)

// Done reports whether the status is terminal.
func (s JobStatus) Done() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusPartial, StatusCancelled:
		return true
	}
	return false
}

// Job tracks the state of a single project scan.
type Job struct {
	mu sync.Mutex

	ID     string          `json:"job_id"`
	Root   string          `json:"root"`
	Config headings.Config `json:"config"`

	Status JobStatus `json:"status"`
	Phase  string    `json:"phase"`

	Progress Progress `json:"progress"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Internal: not serialized.
	result *SweepResult
	errors []string
}

// Progress tracks processing progress.
type Progress struct {
	FilesTotal   int      `json:"files_total"`
	FilesScanned int      `json:"files_scanned"`
	FilesFailed  int      `json:"files_failed"`
	Warnings     int      `json:"warnings"`
	Errors       []string `json:"errors"`
}

// NewJob creates a queued scan of root.
func NewJob(root string, cfg headings.Config) *Job {
	now := time.Now()
	return &Job{
		ID:        uuid.NewString(),
		Root:      root,
		Config:    cfg,
		Status:    StatusQueued,
		Phase:     "queued",
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// JobStore is a thread-safe in-memory job registry with TTL eviction.
type JobStore struct {
	mu   sync.Mutex
	jobs map[string]*Job
	ttl  time.Duration
}

func NewJobStore(ttl time.Duration) *JobStore {
	return &JobStore{
		jobs: make(map[string]*Job),
		ttl:  ttl,
	}
}

func (s *JobStore) Put(job *Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job
}

func (s *JobStore) Get(id string) *Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.jobs[id]
}

// Len returns the number of tracked jobs.
func (s *JobStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}

// Cleanup removes expired jobs.
func (s *JobStore) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for id, job := range s.jobs {
		if now.Sub(job.updatedAt()) > s.ttl {
			delete(s.jobs, id)
		}
	}
}

func (j *Job) updatedAt() time.Time {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.UpdatedAt
}

// SetStatus updates job status atomically.
func (j *Job) SetStatus(status JobStatus, phase string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Status = status
	j.Phase = phase
	j.UpdatedAt = time.Now()
}

// AddError records an error.
func (j *Job) AddError(err string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.errors = append(j.errors, err)
	j.Progress.Errors = j.errors
	j.UpdatedAt = time.Now()
}

// SetFilesTotal records how many files were discovered.
func (j *Job) SetFilesTotal(n int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress.FilesTotal = n
	j.UpdatedAt = time.Now()
}

// RecordFile counts one analyzed document.
func (j *Job) RecordFile(a Analysis) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress.FilesScanned++
	j.Progress.Warnings += a.Warnings
	if a.Failed() {
		j.Progress.FilesFailed++
		j.errors = append(j.errors, a.Path+": "+a.Error)
		j.Progress.Errors = j.errors
	}
	j.UpdatedAt = time.Now()
}

// SetResult stores the finished sweep.
func (j *Job) SetResult(r *SweepResult) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.result = r
	j.UpdatedAt = time.Now()
}

// Result returns the finished sweep, or nil while the job is running.
func (j *Job) Result() *SweepResult {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.result
}

// JobSnapshot is a read-only, JSON-safe copy of job state.
type JobSnapshot struct {
	ID        string          `json:"job_id"`
	Root      string          `json:"root"`
	Config    headings.Config `json:"config"`
	Status    JobStatus       `json:"status"`
	Phase     string          `json:"phase"`
	Progress  Progress        `json:"progress"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Snapshot returns a JSON-safe copy of the job state.
func (j *Job) Snapshot() JobSnapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	errs := make([]string, len(j.Progress.Errors))
	copy(errs, j.Progress.Errors)
	return JobSnapshot{
		ID:     j.ID,
		Root:   j.Root,
		Config: j.Config,
		Status: j.Status,
		Phase:  j.Phase,
		Progress: Progress{
			FilesTotal:   j.Progress.FilesTotal,
			FilesScanned: j.Progress.FilesScanned,
			FilesFailed:  j.Progress.FilesFailed,
			Warnings:     j.Progress.Warnings,
			Errors:       errs,
		},
		CreatedAt: j.CreatedAt,
		UpdatedAt: j.UpdatedAt,
	}
}
