// Package pipeline runs one ingestion pass: posts, daily insights, the
// follower count and follower demographics, each as an independent step.
package pipeline

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/maheshrc27/insights-pipeline/internal/insights"
	"github.com/maheshrc27/insights-pipeline/internal/metrics"
	"github.com/maheshrc27/insights-pipeline/internal/models"
	"github.com/maheshrc27/insights-pipeline/internal/transfer"
)

// DailyMetrics are fetched with period=day and stored in daily_insights.
var DailyMetrics = []string{"reach", "profile_views", "accounts_engaged", "impressions"}

const (
	PrimaryDemographicsMetric  = "audience_demographics"
	FallbackDemographicsMetric = "follower_demographics"
)

const (
	StepPosts          = "posts"
	StepFollowersCount = "followers_count"
)

func DailyStep(metric string) string           { return "daily:" + metric }
func DemographicsStep(breakdown string) string { return "demographics:" + breakdown }

type Fetcher interface {
	FetchPosts(ctx context.Context) ([]transfer.PostRecord, error)
	FetchInsights(ctx context.Context, metric, period, breakdown string) ([]transfer.InsightItem, error)
	FetchFollowerCount(ctx context.Context) (*int64, error)
}

type Store interface {
	SavePosts(ctx context.Context, userID string, posts []transfer.PostRecord) (int, error)
	SaveDailyInsights(ctx context.Context, rows []models.DailyInsight) (int, error)
	SaveFollowerInsights(ctx context.Context, rows []models.FollowerInsight) (int, error)
}

type Pipeline struct {
	fetcher   Fetcher
	store     Store
	accountID string
	log       zerolog.Logger
	now       func() time.Time
}

func New(fetcher Fetcher, store Store, accountID string, log zerolog.Logger) *Pipeline {
	return &Pipeline{
		fetcher:   fetcher,
		store:     store,
		accountID: accountID,
		log:       log,
		now:       time.Now,
	}
}

// Run executes every step in order. A failing step is recorded in the report
// and never prevents the steps after it.
func (p *Pipeline) Run(ctx context.Context) *Report {
	report := &Report{AccountID: p.accountID, StartedAt: p.now()}
	p.log.Info().Str("account_id", p.accountID).Msg("ingestion started")

	p.record(report, StepPosts, func(step *StepResult) {
		p.runPosts(ctx, step)
	})
	for _, metric := range DailyMetrics {
		p.record(report, DailyStep(metric), func(step *StepResult) {
			p.runDaily(ctx, step, metric)
		})
	}
	p.record(report, StepFollowersCount, func(step *StepResult) {
		p.runFollowerCount(ctx, step)
	})
	for _, breakdown := range models.DemographicBreakdowns {
		p.record(report, DemographicsStep(breakdown), func(step *StepResult) {
			p.runDemographics(ctx, step, breakdown)
		})
	}

	report.FinishedAt = p.now()
	report.Duration = report.FinishedAt.Sub(report.StartedAt)
	metrics.ObserveRun(report.Duration, report.Failed)

	event := p.log.Info()
	if report.Failed > 0 {
		event = p.log.Warn()
	}
	event.
		Int("succeeded", report.Succeeded).
		Int("empty", report.Empty).
		Int("failed", report.Failed).
		Dur("duration", report.Duration).
		Msg("ingestion finished")

	return report
}

func (p *Pipeline) record(report *Report, name string, run func(step *StepResult)) {
	start := p.now()
	step := StepResult{Name: name, Status: StatusOK}
	run(&step)
	step.Duration = p.now().Sub(start)
	report.add(step)

	final := report.Steps[len(report.Steps)-1]
	metrics.RecordStep(name, string(final.Status))
	metrics.AddRowsSkipped(name, final.Skipped)

	log := p.log.With().Str("step", name).Logger()
	switch final.Status {
	case StatusFailed:
		log.Error().Err(final.Err).Int("fetched", final.Fetched).Msg("step failed")
	case StatusEmpty:
		log.Info().Int("skipped", final.Skipped).Msg("step returned no data")
	default:
		log.Info().Int("fetched", final.Fetched).Int("persisted", final.Persisted).Int("skipped", final.Skipped).Msg("step completed")
	}
}

func (p *Pipeline) runPosts(ctx context.Context, step *StepResult) {
	posts, err := p.fetcher.FetchPosts(ctx)
	if err != nil {
		step.Err = err
		return
	}
	step.Fetched = len(posts)
	if len(posts) == 0 {
		step.Status = StatusEmpty
		return
	}

	saved, err := p.store.SavePosts(ctx, p.accountID, posts)
	if err != nil {
		step.Err = err
		return
	}
	step.Persisted = saved
	step.Skipped = len(posts) - saved
	metrics.AddRowsPersisted("instagram_posts", saved)
}

func (p *Pipeline) runDaily(ctx context.Context, step *StepResult, metric string) {
	items, err := p.fetcher.FetchInsights(ctx, metric, "", "")
	if err != nil {
		step.Err = err
		return
	}
	step.Fetched = len(items)

	res := insights.ParseDaily(items, p.accountID, metric)
	p.logSkips(step.Name, res.Skipped)
	step.Skipped = len(res.Skipped)
	if len(res.Rows) == 0 {
		step.Status = StatusEmpty
		return
	}

	saved, err := p.store.SaveDailyInsights(ctx, res.Rows)
	if err != nil {
		step.Err = err
		return
	}
	step.Persisted = saved
	metrics.AddRowsPersisted("daily_insights", saved)
}

func (p *Pipeline) runFollowerCount(ctx context.Context, step *StepResult) {
	count, err := p.fetcher.FetchFollowerCount(ctx)
	if err != nil {
		step.Err = err
		return
	}
	if count == nil {
		step.Status = StatusEmpty
		return
	}
	step.Fetched = 1

	now := p.now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	row := models.FollowerInsight{
		InstagramUserID: p.accountID,
		MetricName:      models.MetricFollowersCount,
		Value:           *count,
		Period:          models.PeriodDay,
		DataDate:        &today,
	}

	saved, err := p.store.SaveFollowerInsights(ctx, []models.FollowerInsight{row})
	if err != nil {
		step.Err = err
		return
	}
	step.Persisted = saved
	metrics.AddRowsPersisted("follower_insights", saved)
}

// runDemographics asks for the primary metric and falls back once when it
// yields nothing, whether because it failed or returned no data.
func (p *Pipeline) runDemographics(ctx context.Context, step *StepResult, breakdown string) {
	items, err := p.fetcher.FetchInsights(ctx, PrimaryDemographicsMetric, "", breakdown)
	if len(items) == 0 {
		p.log.Info().
			Str("step", step.Name).
			Str("metric", FallbackDemographicsMetric).
			AnErr("primary_error", err).
			Msg("primary demographics metric returned nothing, trying fallback")
		items, err = p.fetcher.FetchInsights(ctx, FallbackDemographicsMetric, "", breakdown)
	}
	if err != nil {
		step.Err = err
		return
	}
	step.Fetched = len(items)

	res := insights.ParseBreakdown(items, p.accountID, models.DemographicMetric(breakdown), models.PeriodLifetime, nil)
	p.logSkips(step.Name, res.Skipped)
	step.Skipped = len(res.Skipped)
	if len(res.Rows) == 0 {
		step.Status = StatusEmpty
		return
	}

	saved, err := p.store.SaveFollowerInsights(ctx, res.Rows)
	if err != nil {
		step.Err = err
		return
	}
	step.Persisted = saved
	metrics.AddRowsPersisted("follower_insights", saved)
}

func (p *Pipeline) logSkips(step string, skips []insights.Skip) {
	for _, s := range skips {
		p.log.Warn().
			Str("step", step).
			Int("item", s.Item).
			Int("index", s.Index).
			Str("reason", s.Reason).
			Msg("data point skipped")
	}
}
