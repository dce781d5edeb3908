package schedule

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/kayz/inkwright/internal/project"
	"github.com/kayz/inkwright/internal/summarize"
)

type recordingRunner struct {
	mu       sync.Mutex
	chapters []string
	policies []summarize.Policy
	err      error
}

func (r *recordingRunner) Run(ctx context.Context, chapterID string, policy summarize.Policy) (*summarize.Report, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.chapters = append(r.chapters, chapterID)
	r.policies = append(r.policies, policy)
	if r.err != nil {
		return nil, r.err
	}
	return &summarize.Report{State: summarize.StateCompleted}, nil
}

func newTestScheduler(t *testing.T) (*Scheduler, *project.Store, *project.Chapter, *recordingRunner) {
	t.Helper()
	projects, err := project.NewStore(filepath.Join(t.TempDir(), "project.db"))
	if err != nil {
		t.Fatalf("new project store: %v", err)
	}
	t.Cleanup(func() { projects.Close() })

	ch, err := projects.CreateChapter("Chapter One")
	if err != nil {
		t.Fatalf("create chapter: %v", err)
	}

	store, err := NewStore(projects.DB())
	if err != nil {
		t.Fatalf("new schedule store: %v", err)
	}
	runner := &recordingRunner{}
	return NewScheduler(store, projects, runner), projects, ch, runner
}

func TestAddJobNormalizesFiveFieldCron(t *testing.T) {
	s, _, ch, _ := newTestScheduler(t)

	job, err := s.AddJob("nightly", ch.Name, "0 3 * * *", summarize.PolicySkipNonEmpty)
	if err != nil {
		t.Fatalf("add job: %v", err)
	}
	if job.Schedule != "0 0 3 * * *" {
		t.Fatalf("schedule = %q, want seconds field prepended", job.Schedule)
	}
	if !job.Enabled {
		t.Fatalf("new job should be enabled")
	}
}

func TestAddJobRejectsBadInput(t *testing.T) {
	s, _, ch, _ := newTestScheduler(t)

	if _, err := s.AddJob("bad cron", ch.Name, "not a cron", summarize.PolicySkipNonEmpty); err == nil {
		t.Fatalf("expected error for invalid cron expression")
	}
	if _, err := s.AddJob("bad chapter", "no such chapter", "@hourly", summarize.PolicySkipNonEmpty); !errors.Is(err, project.ErrChapterNotFound) {
		t.Fatalf("err = %v, want ErrChapterNotFound", err)
	}
}

func TestExecuteJobRunsTheChapter(t *testing.T) {
	s, _, ch, runner := newTestScheduler(t)

	job, err := s.AddJob("nightly", ch.Name, "@hourly", summarize.PolicyOverwriteAll)
	if err != nil {
		t.Fatalf("add job: %v", err)
	}

	s.executeJob(job)

	if len(runner.chapters) != 1 || runner.chapters[0] != ch.ID {
		t.Fatalf("runner chapters: %v", runner.chapters)
	}
	if runner.policies[0] != summarize.PolicyOverwriteAll {
		t.Fatalf("policy = %v", runner.policies[0])
	}
	if job.LastRun == nil {
		t.Fatalf("last run not recorded")
	}
	if job.LastError != "" {
		t.Fatalf("unexpected last error: %q", job.LastError)
	}
}

func TestExecuteJobRecordsOverlapAsError(t *testing.T) {
	s, _, ch, runner := newTestScheduler(t)
	runner.err = summarize.ErrRunActive

	job, err := s.AddJob("nightly", ch.Name, "@hourly", summarize.PolicySkipNonEmpty)
	if err != nil {
		t.Fatalf("add job: %v", err)
	}

	s.executeJob(job)

	if job.LastError == "" {
		t.Fatalf("overlap should be recorded on the job")
	}
}

func TestJobsSurviveRestart(t *testing.T) {
	s, projects, ch, _ := newTestScheduler(t)

	if _, err := s.AddJob("nightly", ch.Name, "@daily", summarize.PolicySkipNonEmpty); err != nil {
		t.Fatalf("add job: %v", err)
	}

	// A fresh scheduler over the same database sees the job.
	store2, err := NewStore(projects.DB())
	if err != nil {
		t.Fatalf("reopen store: %v", err)
	}
	s2 := NewScheduler(store2, projects, &recordingRunner{})
	if err := s2.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer s2.Stop()

	jobs := s2.ListJobs()
	if len(jobs) != 1 || jobs[0].Name != "nightly" {
		t.Fatalf("jobs after restart: %+v", jobs)
	}
}

func TestPauseAndResume(t *testing.T) {
	s, _, ch, _ := newTestScheduler(t)

	job, err := s.AddJob("nightly", ch.Name, "@daily", summarize.PolicySkipNonEmpty)
	if err != nil {
		t.Fatalf("add job: %v", err)
	}

	if err := s.PauseJob(job.ID); err != nil {
		t.Fatalf("pause: %v", err)
	}
	if err := s.PauseJob(job.ID); err == nil {
		t.Fatalf("double pause should fail")
	}
	if err := s.ResumeJob(job.ID); err != nil {
		t.Fatalf("resume: %v", err)
	}

	jobs := s.ListJobs()
	if len(jobs) != 1 || !jobs[0].Enabled {
		t.Fatalf("job not re-enabled: %+v", jobs)
	}

	if err := s.RemoveJob(job.ID); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if len(s.ListJobs()) != 0 {
		t.Fatalf("job not removed")
	}
}
