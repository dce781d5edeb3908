package schedule

import (
	"time"

	"github.com/robfig/cron/v3"
)

// Job is a recurring summarization task: at each tick the named chapter is
// re-summarized under the stored policy.
type Job struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	ChapterRef string     `json:"chapter_ref"` // chapter id or exact name
	Schedule   string     `json:"schedule"`    // cron expression, 5 or 6 fields
	Policy     string     `json:"policy"`      // skip-if-non-empty or overwrite-all
	Enabled    bool       `json:"enabled"`
	CreatedAt  time.Time  `json:"created_at"`
	LastRun    *time.Time `json:"last_run,omitempty"`
	LastError  string     `json:"last_error,omitempty"`

	// Runtime field, not persisted.
	EntryID cron.EntryID `json:"-"`
}

// Clone creates a copy of the job safe to hand out of the scheduler.
func (j *Job) Clone() *Job {
	clone := *j
	if j.LastRun != nil {
		lastRun := *j.LastRun
		clone.LastRun = &lastRun
	}
	return &clone
}
