package api

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Job states
const (
	JobPending = "pending"
	JobRunning = "running"
	JobDone    = "done"
	JobDenied  = "denied"
	JobError   = "error"
)

type Job struct {
	ID         string     `json:"id"`
	Type       string     `json:"type"`
	SessionID  string     `json:"session_id"`
	URL        string     `json:"url"`
	Status     string     `json:"status"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	ScanID     string     `json:"scan_id,omitempty"`
	RiskScore  *int       `json:"risk_score,omitempty"`
	ResetAt    *time.Time `json:"reset_at,omitempty"`
	Error      string     `json:"error,omitempty"`
}

// IsFinished reports whether the job reached a terminal state
func (j Job) IsFinished() bool {
	return j.Status == JobDone || j.Status == JobDenied || j.Status == JobError
}

type JobRequest struct {
	SessionID string `json:"session_id"`
	URL       string `json:"url"`
}

type JobManager struct {
	mu          sync.RWMutex
	jobs        map[string]*Job
	subscribers map[chan Job]struct{}
	maxJobs     int // Maximum number of jobs to keep in memory

	stop     chan struct{}
	stopOnce sync.Once
}

func NewJobManager() *JobManager {
	m := &JobManager{
		jobs:        make(map[string]*Job),
		subscribers: make(map[chan Job]struct{}),
		maxJobs:     1000, // Default: keep last 1000 jobs
		stop:        make(chan struct{}),
	}
	// Start cleanup goroutine to remove old finished jobs
	go m.cleanupLoop(5 * time.Minute)
	return m
}

// Close stops the cleanup loop and closes every subscriber channel
func (m *JobManager) Close() {
	m.stopOnce.Do(func() {
		close(m.stop)
		m.mu.Lock()
		for ch := range m.subscribers {
			delete(m.subscribers, ch)
			close(ch)
		}
		m.mu.Unlock()
	})
}

func (m *JobManager) CreateJob(jobType string, req JobRequest) *Job {
	m.mu.Lock()
	defer m.mu.Unlock()
	job := &Job{
		ID:        generateID("job"),
		Type:      jobType,
		SessionID: req.SessionID,
		URL:       req.URL,
		Status:    JobPending,
	}
	m.jobs[job.ID] = job
	m.broadcast(*job)
	copy := *job
	return &copy
}

func (m *JobManager) UpdateJob(id string, update func(*Job)) *Job {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return nil
	}
	update(job)
	m.broadcast(*job)
	copy := *job
	return &copy
}

func (m *JobManager) GetJob(id string) *Job {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if job, ok := m.jobs[id]; ok {
		copy := *job
		return &copy
	}
	return nil
}

func (m *JobManager) ListJobs(limit int) []Job {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if limit <= 0 || limit > len(m.jobs) {
		limit = len(m.jobs)
	}
	jobs := make([]Job, 0, len(m.jobs))
	for _, job := range m.jobs {
		jobs = append(jobs, *job)
	}

	// Newest first by StartedAt; jobs not yet started sort last, by ID
	sort.Slice(jobs, func(i, j int) bool {
		if jobs[i].StartedAt == nil && jobs[j].StartedAt == nil {
			return jobs[i].ID > jobs[j].ID
		}
		if jobs[i].StartedAt == nil {
			return false
		}
		if jobs[j].StartedAt == nil {
			return true
		}
		return jobs[i].StartedAt.After(*jobs[j].StartedAt)
	})

	if limit < len(jobs) {
		jobs = jobs[:limit]
	}
	return jobs
}

func (m *JobManager) Subscribe() (chan Job, func()) {
	ch := make(chan Job, 10)
	m.mu.Lock()
	m.subscribers[ch] = struct{}{}
	m.mu.Unlock()
	return ch, func() {
		m.mu.Lock()
		if _, ok := m.subscribers[ch]; ok {
			delete(m.subscribers, ch)
			close(ch)
		}
		m.mu.Unlock()
	}
}

func (m *JobManager) broadcast(job Job) {
	for ch := range m.subscribers {
		select {
		case ch <- job:
		default:
			// slow subscriber, drop the update
		}
	}
}

func generateID(prefix string) string {
	return prefix + "_" + uuid.NewString()
}

func (m *JobManager) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			m.prune()
		}
	}
}

// prune drops the oldest finished jobs until at most maxJobs remain
func (m *JobManager) prune() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.jobs) <= m.maxJobs {
		return 0
	}

	type jobWithTime struct {
		id   string
		time time.Time
	}
	var finished []jobWithTime
	for id, job := range m.jobs {
		if !job.IsFinished() {
			continue
		}
		finishTime := time.Now()
		if job.FinishedAt != nil {
			finishTime = *job.FinishedAt
		}
		finished = append(finished, jobWithTime{id: id, time: finishTime})
	}

	sort.Slice(finished, func(i, j int) bool {
		return finished[i].time.Before(finished[j].time)
	})

	toRemove := len(m.jobs) - m.maxJobs
	if toRemove > len(finished) {
		toRemove = len(finished)
	}
	for i := 0; i < toRemove; i++ {
		delete(m.jobs, finished[i].id)
	}
	return toRemove
}

// SetMaxJobs configures the maximum number of jobs to retain in memory
func (m *JobManager) SetMaxJobs(max int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if max > 0 {
		m.maxJobs = max
	}
}
