package jobs

import (
	"encoding/json"
	"time"
)

// Type names the kind of work a job performs.
type Type string

const (
	TypeGenerate      Type = "generate"
	TypeChat          Type = "chat"
	TypeSeriesEpisode Type = "series_ep"
)

// Status is the job lifecycle state.
type Status string

const (
	StatusQueued  Status = "queued"
	StatusRunning Status = "running"
	StatusDone    Status = "done"
	StatusError   Status = "error"
)

// Terminal reports whether no further status change is accepted.
func (s Status) Terminal() bool {
	return s == StatusDone || s == StatusError
}

func (s Status) rank() int {
	switch s {
	case StatusQueued:
		return 0
	case StatusRunning:
		return 1
	case StatusDone, StatusError:
		return 2
	default:
		return -1
	}
}

// CanTransition reports whether moving from s to next keeps the lifecycle
// monotonic. Repeating the current non-terminal status is allowed so progress
// updates can restate it.
func (s Status) CanTransition(next Status) bool {
	if next.rank() < 0 {
		return false
	}
	if s.Terminal() {
		return false
	}
	if next == s {
		return true
	}
	return next.rank() > s.rank()
}

// Job is one unit of asynchronous work.
type Job struct {
	ID        string          `json:"id"`
	Type      Type            `json:"type"`
	Status    Status          `json:"status"`
	Progress  string          `json:"progress"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
	Result    json.RawMessage `json:"result,omitempty"`
	Error     string          `json:"error,omitempty"`
	SeriesID  string          `json:"series_id,omitempty"`
	SeriesEp  int             `json:"series_ep,omitempty"`
}

// Active reports whether the job is queued or running.
func (j Job) Active() bool {
	return j.Status == StatusQueued || j.Status == StatusRunning
}

// JobUpdate carries the fields to merge into a job. Nil fields are left alone.
type JobUpdate struct {
	Status   *Status
	Progress *string
	Result   any
	Error    *string
}

// Running returns an update that moves a job to running with progress.
func Running(progress string) JobUpdate {
	status := StatusRunning
	return JobUpdate{Status: &status, Progress: &progress}
}

// Progress returns an update that changes only the progress message.
func Progress(progress string) JobUpdate {
	return JobUpdate{Progress: &progress}
}

// Done returns an update that finishes a job with result.
func Done(progress string, result any) JobUpdate {
	status := StatusDone
	return JobUpdate{Status: &status, Progress: &progress, Result: result}
}

// Failed returns an update that finishes a job with an error message.
func Failed(message string) JobUpdate {
	status := StatusError
	return JobUpdate{Status: &status, Error: &message}
}

// CreateOption customizes a new job.
type CreateOption func(*Job)

// WithSeries links the job to a series episode.
func WithSeries(seriesID string, episode int) CreateOption {
	return func(j *Job) {
		j.SeriesID = seriesID
		j.SeriesEp = episode
	}
}
