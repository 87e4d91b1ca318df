package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/maheshrc27/insights-pipeline/internal/models"
	"github.com/maheshrc27/insights-pipeline/internal/repository"
)

const (
	contentCalendarSize = 15
	overviewWindowDays  = 7
)

type Summary struct {
	TotalAccounts  int    `json:"totalAccounts"`
	TotalPosts     int64  `json:"totalPosts"`
	TotalFollowers int64  `json:"totalFollowers"`
	SystemStatus   string `json:"systemStatus"`
}

type AccountSummary struct {
	TotalFollowers          int64  `json:"totalFollowers"`
	WeeklyEngagementRate    string `json:"weeklyEngagementRate"`
	ActiveFollowersEstimate int64  `json:"activeFollowersEstimate"`
}

type TopPost struct {
	InstagramPostID string `json:"instagram_post_id"`
	CaptionCleaned  string `json:"caption_cleaned"`
	LikeCount       int64  `json:"like_count"`
}

type InsightsOverview struct {
	RecentReach               int64    `json:"recentReach"`
	TotalImpressionsLast7Days int64    `json:"totalImpressionsLast7Days"`
	AverageEngagementRate     float64  `json:"averageEngagementRate"`
	TopPostByLikes            *TopPost `json:"topPostByLikes"`
}

type DashboardService interface {
	Summary(ctx context.Context, userID string) (*Summary, error)
	ContentCalendar(ctx context.Context, userID string) ([]*models.InstagramPost, error)
	InsightsOverview(ctx context.Context, userID string) (*InsightsOverview, error)
	FollowerDemographics(ctx context.Context, userID string) (map[string][]models.DimensionValue, error)
	AccountSummary(ctx context.Context, userID string) (*AccountSummary, error)
}

type dashboardService struct {
	pr  repository.PostRepository
	hr  repository.HashtagRepository
	ir  repository.InsightRepository
	now func() time.Time
}

func NewDashboardService(pr repository.PostRepository, hr repository.HashtagRepository, ir repository.InsightRepository) DashboardService {
	return &dashboardService{pr: pr, hr: hr, ir: ir, now: time.Now}
}

func (s *dashboardService) Summary(ctx context.Context, userID string) (*Summary, error) {
	posts, err := s.pr.CountByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("count posts: %w", err)
	}

	followers, _, err := s.ir.LatestFollowerValue(ctx, userID, models.MetricFollowersCount)
	if err != nil {
		return nil, fmt.Errorf("latest follower count: %w", err)
	}

	return &Summary{
		TotalAccounts:  1,
		TotalPosts:     posts,
		TotalFollowers: followers,
		SystemStatus:   "ok",
	}, nil
}

func (s *dashboardService) ContentCalendar(ctx context.Context, userID string) ([]*models.InstagramPost, error) {
	posts, err := s.pr.ListRecent(ctx, userID, contentCalendarSize)
	if err != nil {
		return nil, fmt.Errorf("list recent posts: %w", err)
	}
	for _, post := range posts {
		post.Hashtags, err = s.hr.ListByPost(ctx, post.ID)
		if err != nil {
			return nil, fmt.Errorf("list hashtags of post %s: %w", post.InstagramPostID, err)
		}
	}
	return posts, nil
}

func (s *dashboardService) InsightsOverview(ctx context.Context, userID string) (*InsightsOverview, error) {
	since := s.windowStart()

	reach, err := s.ir.SumDaily(ctx, userID, "reach", since)
	if err != nil {
		return nil, fmt.Errorf("sum reach: %w", err)
	}
	impressions, err := s.ir.SumDaily(ctx, userID, "impressions", since)
	if err != nil {
		return nil, fmt.Errorf("sum impressions: %w", err)
	}

	totals, err := s.pr.Totals(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("post totals: %w", err)
	}
	followers, _, err := s.ir.LatestFollowerValue(ctx, userID, models.MetricFollowersCount)
	if err != nil {
		return nil, fmt.Errorf("latest follower count: %w", err)
	}

	overview := &InsightsOverview{
		RecentReach:               reach,
		TotalImpressionsLast7Days: impressions,
		AverageEngagementRate:     EngagementRate(totals, followers),
	}

	top, err := s.pr.TopByLikes(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("top post: %w", err)
	}
	if top != nil {
		overview.TopPostByLikes = &TopPost{
			InstagramPostID: top.InstagramPostID,
			CaptionCleaned:  top.CaptionCleaned,
			LikeCount:       top.LikeCount,
		}
	}
	return overview, nil
}

// AccountSummary reports the latest follower count, the engagement of the
// last seven days' posts per follower, and the average daily accounts_engaged
// over the same window.
func (s *dashboardService) AccountSummary(ctx context.Context, userID string) (*AccountSummary, error) {
	since := s.windowStart()

	followers, _, err := s.ir.LatestFollowerValue(ctx, userID, models.MetricFollowersCount)
	if err != nil {
		return nil, fmt.Errorf("latest follower count: %w", err)
	}
	interactions, err := s.pr.InteractionsSince(ctx, userID, since)
	if err != nil {
		return nil, fmt.Errorf("post interactions: %w", err)
	}
	engaged, err := s.ir.AvgDaily(ctx, userID, "accounts_engaged", since)
	if err != nil {
		return nil, fmt.Errorf("average accounts engaged: %w", err)
	}

	rate := 0.0
	if followers > 0 {
		rate = float64(interactions) / float64(followers) * 100
	}

	return &AccountSummary{
		TotalFollowers:          followers,
		WeeklyEngagementRate:    fmt.Sprintf("%.2f%%", rate),
		ActiveFollowersEstimate: int64(engaged),
	}, nil
}

// windowStart is UTC midnight seven days before today.
func (s *dashboardService) windowStart() time.Time {
	now := s.now().UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, -overviewWindowDays)
}

func (s *dashboardService) FollowerDemographics(ctx context.Context, userID string) (map[string][]models.DimensionValue, error) {
	out := make(map[string][]models.DimensionValue, len(models.DemographicBreakdowns))
	for _, breakdown := range models.DemographicBreakdowns {
		values, err := s.ir.ListDimensions(ctx, userID, models.DemographicMetric(breakdown), models.PeriodLifetime)
		if err != nil {
			return nil, fmt.Errorf("list %s demographics: %w", breakdown, err)
		}
		out[breakdown] = values
	}
	return out, nil
}

// EngagementRate is (likes + comments) per post per follower, as a
// percentage rounded to two decimals. Zero posts or followers count as one.
func EngagementRate(totals *models.PostTotals, followers int64) float64 {
	posts := totals.Posts
	if posts <= 0 {
		posts = 1
	}
	if followers <= 0 {
		followers = 1
	}
	rate := float64(totals.Likes+totals.Comments) / float64(posts) / float64(followers) * 100
	return math.Round(rate*100) / 100
}
