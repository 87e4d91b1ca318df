package service

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maheshrc27/insights-pipeline/internal/models"
	"github.com/maheshrc27/insights-pipeline/internal/repository"
)

func newDashboard(t *testing.T) (*dashboardService, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	svc := NewDashboardService(repository.NewPostRepository(db), repository.NewHashtagRepository(db), repository.NewInsightRepository(db)).(*dashboardService)
	svc.now = func() time.Time { return time.Date(2024, 6, 10, 15, 0, 0, 0, time.UTC) }
	return svc, mock
}

func TestDashboardSummary(t *testing.T) {
	svc, mock := newDashboard(t)

	mock.ExpectQuery("SELECT COUNT").WithArgs("ig1").WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(12))
	mock.ExpectQuery("SELECT value FROM follower_insights").WithArgs("ig1", "followers_count").
		WillReturnRows(sqlmock.NewRows([]string{"value"}))

	summary, err := svc.Summary(context.Background(), "ig1")
	require.NoError(t, err)
	assert.Equal(t, &Summary{TotalAccounts: 1, TotalPosts: 12, TotalFollowers: 0, SystemStatus: "ok"}, summary)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDashboardInsightsOverview(t *testing.T) {
	svc, mock := newDashboard(t)
	since := time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)
	cols := []string{"id", "instagram_user_id", "instagram_post_id", "caption_original", "caption_cleaned",
		"media_type", "timestamp", "like_count", "comments_count", "fetched_at"}

	mock.ExpectQuery("FROM daily_insights").WithArgs("ig1", "reach", since).WillReturnRows(sqlmock.NewRows([]string{"sum"}).AddRow(700))
	mock.ExpectQuery("FROM daily_insights").WithArgs("ig1", "impressions", since).WillReturnRows(sqlmock.NewRows([]string{"sum"}).AddRow(1400))
	mock.ExpectQuery("SUM\\(like_count\\)").WithArgs("ig1").WillReturnRows(sqlmock.NewRows([]string{"likes", "comments", "count"}).AddRow(90, 10, 4))
	mock.ExpectQuery("SELECT value FROM follower_insights").WithArgs("ig1", "followers_count").
		WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow(1000))
	mock.ExpectQuery("ORDER BY like_count DESC").WithArgs("ig1").
		WillReturnRows(sqlmock.NewRows(cols).AddRow(3, "ig1", "p3", "Best!", "Best!", "IMAGE", nil, 50, 4, since))

	overview, err := svc.InsightsOverview(context.Background(), "ig1")
	require.NoError(t, err)
	assert.Equal(t, int64(700), overview.RecentReach)
	assert.Equal(t, int64(1400), overview.TotalImpressionsLast7Days)
	assert.Equal(t, 2.5, overview.AverageEngagementRate)
	assert.Equal(t, &TopPost{InstagramPostID: "p3", CaptionCleaned: "Best!", LikeCount: 50}, overview.TopPostByLikes)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDashboardFollowerDemographics(t *testing.T) {
	svc, mock := newDashboard(t)

	mock.ExpectQuery("FROM follower_insights").WithArgs("ig1", "follower_demographics_country", "lifetime").
		WillReturnRows(sqlmock.NewRows([]string{"dimension_key", "value"}).AddRow("TR", 800))
	mock.ExpectQuery("FROM follower_insights").WithArgs("ig1", "follower_demographics_gender", "lifetime").
		WillReturnRows(sqlmock.NewRows([]string{"dimension_key", "value"}).AddRow("F", 300).AddRow("M", 200))
	mock.ExpectQuery("FROM follower_insights").WithArgs("ig1", "follower_demographics_age", "lifetime").
		WillReturnRows(sqlmock.NewRows([]string{"dimension_key", "value"}))

	demo, err := svc.FollowerDemographics(context.Background(), "ig1")
	require.NoError(t, err)
	assert.Equal(t, []models.DimensionValue{{Dimension: "TR", Value: 800}}, demo["country"])
	assert.Len(t, demo["gender"], 2)
	assert.NotNil(t, demo["age"])
	assert.Empty(t, demo["age"])
}

func TestDashboardContentCalendarAttachesHashtags(t *testing.T) {
	svc, mock := newDashboard(t)
	fetched := time.Date(2024, 6, 9, 0, 0, 0, 0, time.UTC)
	cols := []string{"id", "instagram_user_id", "instagram_post_id", "caption_original", "caption_cleaned",
		"media_type", "timestamp", "like_count", "comments_count", "fetched_at"}

	mock.ExpectQuery("ORDER BY timestamp DESC").WithArgs("ig1", 15).
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow(5, "ig1", "p5", "Hi #sun", "Hi #sun", "IMAGE", fetched, 3, 1, fetched).
			AddRow(4, "ig1", "p4", "", "", "VIDEO", nil, 0, 0, fetched))
	mock.ExpectQuery("SELECT hashtag FROM post_hashtags").WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"hashtag"}).AddRow("sun"))
	mock.ExpectQuery("SELECT hashtag FROM post_hashtags").WithArgs(int64(4)).
		WillReturnRows(sqlmock.NewRows([]string{"hashtag"}))

	posts, err := svc.ContentCalendar(context.Background(), "ig1")
	require.NoError(t, err)
	require.Len(t, posts, 2)
	assert.Equal(t, []string{"sun"}, posts[0].Hashtags)
	assert.Empty(t, posts[1].Hashtags)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDashboardAccountSummary(t *testing.T) {
	svc, mock := newDashboard(t)
	since := time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT value FROM follower_insights").WithArgs("ig1", "followers_count").
		WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow(1200))
	mock.ExpectQuery("SUM\\(like_count \\+ comments_count\\)").WithArgs("ig1", since).
		WillReturnRows(sqlmock.NewRows([]string{"sum"}).AddRow(150))
	mock.ExpectQuery("AVG\\(value\\)").WithArgs("ig1", "accounts_engaged", since).
		WillReturnRows(sqlmock.NewRows([]string{"avg"}).AddRow(41.75))

	summary, err := svc.AccountSummary(context.Background(), "ig1")
	require.NoError(t, err)
	assert.Equal(t, &AccountSummary{
		TotalFollowers:          1200,
		WeeklyEngagementRate:    "12.50%",
		ActiveFollowersEstimate: 41,
	}, summary)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDashboardAccountSummaryWithoutFollowers(t *testing.T) {
	svc, mock := newDashboard(t)

	mock.ExpectQuery("SELECT value FROM follower_insights").WillReturnRows(sqlmock.NewRows([]string{"value"}))
	mock.ExpectQuery("FROM instagram_posts").WillReturnRows(sqlmock.NewRows([]string{"sum"}).AddRow(30))
	mock.ExpectQuery("FROM daily_insights").WillReturnRows(sqlmock.NewRows([]string{"avg"}).AddRow(0))

	summary, err := svc.AccountSummary(context.Background(), "ig2")
	require.NoError(t, err)
	assert.Equal(t, "0.00%", summary.WeeklyEngagementRate)
	assert.Zero(t, summary.TotalFollowers)
	assert.Zero(t, summary.ActiveFollowersEstimate)
}

func TestEngagementRate(t *testing.T) {
	assert.Equal(t, 0.0, EngagementRate(&models.PostTotals{}, 0))
	assert.Equal(t, 33.33, EngagementRate(&models.PostTotals{Likes: 1, Comments: 0, Posts: 3}, 1))
	assert.Equal(t, 2.5, EngagementRate(&models.PostTotals{Likes: 90, Comments: 10, Posts: 4}, 1000))
}
