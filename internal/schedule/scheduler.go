package schedule

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/kayz/inkwright/internal/logger"
	"github.com/kayz/inkwright/internal/project"
	"github.com/kayz/inkwright/internal/summarize"
)

// jobTimeout bounds one scheduled batch run.
const jobTimeout = 10 * time.Minute

// Runner executes one summarization batch. Satisfied by
// summarize.Orchestrator.
type Runner interface {
	Run(ctx context.Context, chapterID string, policy summarize.Policy) (*summarize.Report, error)
}

// Scheduler triggers recurring chapter summarizations from cron expressions.
type Scheduler struct {
	cron     *cron.Cron
	store    *Store
	projects *project.Store
	runner   Runner
	jobs     map[string]*Job
	mu       sync.RWMutex
}

// NewScheduler creates a scheduler over the given job store and runner.
func NewScheduler(store *Store, projects *project.Store, runner Runner) *Scheduler {
	return &Scheduler{
		cron:     cron.New(cron.WithSeconds()),
		store:    store,
		projects: projects,
		runner:   runner,
		jobs:     make(map[string]*Job),
	}
}

// normalizeCron prepends "0 " to standard 5-field cron expressions so they
// work with the 6-field (with seconds) parser.
func normalizeCron(schedule string) string {
	if len(strings.Fields(schedule)) == 5 {
		return "0 " + schedule
	}
	return schedule
}

// Start loads persisted jobs and starts the ticker.
func (s *Scheduler) Start() error {
	jobs, err := s.store.Load()
	if err != nil {
		return fmt.Errorf("failed to load jobs: %w", err)
	}

	for _, job := range jobs {
		s.jobs[job.ID] = job
		if job.Enabled {
			if err := s.scheduleJob(job); err != nil {
				logger.Errorf("failed to schedule job %s (%s): %v", job.ID, job.Name, err)
			}
		}
	}

	s.cron.Start()
	logger.Infof("scheduler started with %d jobs (%d enabled)", len(s.jobs), s.countEnabled())
	return nil
}

// Stop stops the ticker and waits for in-flight jobs.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	logger.Infof("scheduler stopped")
}

// AddJob validates, schedules and persists a new job.
func (s *Scheduler) AddJob(name, chapterRef, schedule string, policy summarize.Policy) (*Job, error) {
	normalized := normalizeCron(schedule)
	parser := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	if _, err := parser.Parse(normalized); err != nil {
		return nil, fmt.Errorf("invalid cron expression: %w", err)
	}

	// Fail fast on a dangling chapter reference.
	if _, err := s.projects.FindChapter(chapterRef); err != nil {
		return nil, err
	}

	job := &Job{
		ID:         uuid.NewString(),
		Name:       name,
		ChapterRef: chapterRef,
		Schedule:   normalized,
		Policy:     policy.String(),
		Enabled:    true,
		CreatedAt:  time.Now(),
	}

	s.mu.Lock()
	s.jobs[job.ID] = job
	s.mu.Unlock()

	if err := s.scheduleJob(job); err != nil {
		s.mu.Lock()
		delete(s.jobs, job.ID)
		s.mu.Unlock()
		return nil, fmt.Errorf("failed to schedule job: %w", err)
	}

	if err := s.store.SaveJob(job); err != nil {
		logger.Errorf("failed to save job: %v", err)
	}

	logger.Infof("job created: %s (%s) - schedule: %s, chapter: %s", job.ID, job.Name, job.Schedule, job.ChapterRef)
	return job, nil
}

// RemoveJob removes a job from the scheduler and the database.
func (s *Scheduler) RemoveJob(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, exists := s.jobs[id]
	if !exists {
		return fmt.Errorf("job not found: %s", id)
	}
	if job.EntryID != 0 {
		s.cron.Remove(job.EntryID)
	}
	delete(s.jobs, id)

	if err := s.store.DeleteJob(id); err != nil {
		logger.Errorf("failed to delete job: %v", err)
	}
	logger.Infof("job removed: %s (%s)", job.ID, job.Name)
	return nil
}

// PauseJob disables a job without deleting it.
func (s *Scheduler) PauseJob(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, exists := s.jobs[id]
	if !exists {
		return fmt.Errorf("job not found: %s", id)
	}
	if !job.Enabled {
		return fmt.Errorf("job is already paused")
	}
	if job.EntryID != 0 {
		s.cron.Remove(job.EntryID)
		job.EntryID = 0
	}
	job.Enabled = false

	if err := s.store.SaveJob(job); err != nil {
		logger.Errorf("failed to save job: %v", err)
	}
	return nil
}

// ResumeJob re-enables a paused job.
func (s *Scheduler) ResumeJob(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, exists := s.jobs[id]
	if !exists {
		return fmt.Errorf("job not found: %s", id)
	}
	if job.Enabled {
		return fmt.Errorf("job is already running")
	}
	job.Enabled = true
	if err := s.scheduleJob(job); err != nil {
		job.Enabled = false
		return fmt.Errorf("failed to schedule job: %w", err)
	}

	if err := s.store.SaveJob(job); err != nil {
		logger.Errorf("failed to save job: %v", err)
	}
	return nil
}

// ListJobs returns copies of all jobs.
func (s *Scheduler) ListJobs() []*Job {
	s.mu.RLock()
	defer s.mu.RUnlock()

	jobs := make([]*Job, 0, len(s.jobs))
	for _, job := range s.jobs {
		jobs = append(jobs, job.Clone())
	}
	return jobs
}

func (s *Scheduler) scheduleJob(job *Job) error {
	entryID, err := s.cron.AddFunc(job.Schedule, func() {
		s.executeJob(job)
	})
	if err != nil {
		return err
	}
	job.EntryID = entryID
	return nil
}

// executeJob runs one summarization batch for the job's chapter. An overlap
// with a manual run surfaces as a recorded error, not a second stream.
func (s *Scheduler) executeJob(job *Job) {
	now := time.Now()
	s.mu.Lock()
	job.LastRun = &now
	s.mu.Unlock()

	logger.Infof("running scheduled summarization: %s (%s)", job.ID, job.Name)

	err := s.runOnce(job)

	s.mu.Lock()
	if err != nil {
		job.LastError = err.Error()
	} else {
		job.LastError = ""
	}
	s.mu.Unlock()

	if err != nil {
		logger.Errorf("scheduled job failed: %s (%s) - %v", job.ID, job.Name, err)
	}
	if err := s.store.SaveJob(job); err != nil {
		logger.Errorf("failed to save job: %v", err)
	}
}

func (s *Scheduler) runOnce(job *Job) error {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	ch, err := s.projects.FindChapter(job.ChapterRef)
	if err != nil {
		return err
	}
	policy, err := summarize.ParsePolicy(job.Policy)
	if err != nil {
		return err
	}

	report, err := s.runner.Run(ctx, ch.ID, policy)
	if errors.Is(err, summarize.ErrRunActive) {
		return fmt.Errorf("skipped: %w", err)
	}
	if err != nil {
		return err
	}
	logger.Infof("scheduled run %s: %d summarized, %d failed", report.RunID, len(report.Processed), len(report.Failures))
	return nil
}

func (s *Scheduler) countEnabled() int {
	count := 0
	for _, job := range s.jobs {
		if job.Enabled {
			count++
		}
	}
	return count
}
