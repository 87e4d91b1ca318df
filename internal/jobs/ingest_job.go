package job

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/maheshrc27/insights-pipeline/internal/pipeline"
)

var ErrAlreadyRunning = errors.New("an ingestion run is already in progress")

type Runner interface {
	Run(ctx context.Context) *pipeline.Report
}

// IngestJob serializes pipeline runs started by cron and by the API. A run
// requested while another is in progress is refused, never queued.
type IngestJob struct {
	runner  Runner
	timeout time.Duration
	log     zerolog.Logger

	mu      sync.Mutex
	running bool
	last    *pipeline.Report
}

func NewIngestJob(runner Runner, timeout time.Duration, log zerolog.Logger) *IngestJob {
	return &IngestJob{runner: runner, timeout: timeout, log: log}
}

// RunScheduled is the cron entry point.
func (j *IngestJob) RunScheduled() {
	ctx := context.Background()
	if j.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.timeout)
		defer cancel()
	}

	if _, err := j.RunNow(ctx); err != nil {
		j.log.Warn().Err(err).Msg("scheduled ingestion skipped")
	}
}

func (j *IngestJob) RunNow(ctx context.Context) (*pipeline.Report, error) {
	if !j.acquire() {
		return nil, ErrAlreadyRunning
	}
	defer j.release()

	report := j.runner.Run(ctx)

	j.mu.Lock()
	j.last = report
	j.mu.Unlock()
	return report, nil
}

// LastReport returns the report of the latest finished run, or nil.
func (j *IngestJob) LastReport() *pipeline.Report {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.last
}

func (j *IngestJob) Running() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.running
}

func (j *IngestJob) acquire() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.running {
		return false
	}
	j.running = true
	return true
}

func (j *IngestJob) release() {
	j.mu.Lock()
	j.running = false
	j.mu.Unlock()
}
