package pipeline

import (
	"time"
)

type Status string

const (
	StatusOK     Status = "ok"
	StatusEmpty  Status = "empty"
	StatusFailed Status = "failed"
)

const (
	ExitClean      = 0
	ExitStartup    = 1
	ExitWithErrors = 2
)

// StepResult is the outcome of one fetch and persist step.
type StepResult struct {
	Name      string        `json:"name"`
	Status    Status        `json:"status"`
	Fetched   int           `json:"fetched"`
	Persisted int           `json:"persisted"`
	Skipped   int           `json:"skipped"`
	Duration  time.Duration `json:"duration_ns"`
	Err       error         `json:"-"`
	Error     string        `json:"error,omitempty"`
}

type Report struct {
	AccountID  string        `json:"account_id"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
	Steps      []StepResult  `json:"steps"`
	Succeeded  int           `json:"succeeded"`
	Empty      int           `json:"empty"`
	Failed     int           `json:"failed"`
	Duration   time.Duration `json:"duration_ns"`
}

func (r *Report) add(step StepResult) {
	if step.Err != nil {
		step.Status = StatusFailed
		step.Error = step.Err.Error()
	}
	switch step.Status {
	case StatusOK:
		r.Succeeded++
	case StatusEmpty:
		r.Empty++
	case StatusFailed:
		r.Failed++
	}
	r.Steps = append(r.Steps, step)
}

// Step returns the named step, or nil.
func (r *Report) Step(name string) *StepResult {
	for i := range r.Steps {
		if r.Steps[i].Name == name {
			return &r.Steps[i]
		}
	}
	return nil
}

func (r *Report) ExitCode() int {
	if r.Failed > 0 {
		return ExitWithErrors
	}
	return ExitClean
}
