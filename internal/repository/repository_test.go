package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maheshrc27/insights-pipeline/internal/models"
)

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func TestPostUpsertReturnsID(t *testing.T) {
	db, mock := newMock(t)
	ts := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO instagram_posts")).
		WithArgs("ig1", "p1", "Hi #go", "Hi #go", "IMAGE", ts, int64(10), int64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(42))

	id, err := NewPostRepository(db).Upsert(context.Background(), nil, &models.InstagramPost{
		InstagramUserID: "ig1",
		InstagramPostID: "p1",
		CaptionOriginal: "Hi #go",
		CaptionCleaned:  "Hi #go",
		MediaType:       "IMAGE",
		Timestamp:       &ts,
		LikeCount:       10,
		CommentsCount:   2,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostUpsertUsesTransaction(t *testing.T) {
	db, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery("ON CONFLICT \\(instagram_post_id\\) DO UPDATE").
		WithArgs("ig1", "p1", "", "", "", "", nil, int64(0), int64(0)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))
	mock.ExpectCommit()

	tx, err := db.Begin()
	require.NoError(t, err)
	id, err := NewPostRepository(db).Upsert(context.Background(), tx, &models.InstagramPost{InstagramUserID: "ig1", InstagramPostID: "p1"})
	require.NoError(t, err)
	require.NoError(t, tx.Commit())
	assert.Equal(t, int64(7), id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostUpsertWrapsError(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery("INSERT INTO instagram_posts").WillReturnError(errors.New("connection lost"))

	_, err := NewPostRepository(db).Upsert(context.Background(), nil, &models.InstagramPost{InstagramPostID: "p9"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "upsert post p9")
}

func TestGetByInstagramIDNotFound(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery("FROM instagram_posts WHERE instagram_post_id").WithArgs("missing").WillReturnError(sql.ErrNoRows)

	post, err := NewPostRepository(db).GetByInstagramID(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, post)
}

func TestListRecentScansNullTimestamp(t *testing.T) {
	db, mock := newMock(t)
	fetched := time.Date(2024, 2, 2, 0, 0, 0, 0, time.UTC)
	cols := []string{"id", "instagram_user_id", "instagram_post_id", "caption_original", "caption_cleaned",
		"media_type", "timestamp", "like_count", "comments_count", "fetched_at"}

	mock.ExpectQuery("ORDER BY timestamp DESC").WithArgs("ig1", 15).
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow(1, "ig1", "p1", "a", "a", "IMAGE", fetched, 3, 1, fetched).
			AddRow(2, "ig1", "p2", "", "", "VIDEO", nil, 0, 0, fetched))

	posts, err := NewPostRepository(db).ListRecent(context.Background(), "ig1", 15)
	require.NoError(t, err)
	require.Len(t, posts, 2)
	require.NotNil(t, posts[0].Timestamp)
	assert.True(t, posts[0].Timestamp.Equal(fetched))
	assert.Nil(t, posts[1].Timestamp)
}

func TestHashtagInsertReportsDuplicates(t *testing.T) {
	db, mock := newMock(t)
	repo := NewHashtagRepository(db)

	mock.ExpectExec("ON CONFLICT \\(post_table_id, hashtag\\) DO NOTHING").WithArgs(int64(1), "go").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("ON CONFLICT \\(post_table_id, hashtag\\) DO NOTHING").WithArgs(int64(1), "go").
		WillReturnResult(sqlmock.NewResult(0, 0))

	inserted, err := repo.Insert(context.Background(), nil, 1, "go")
	require.NoError(t, err)
	assert.True(t, inserted)

	inserted, err = repo.Insert(context.Background(), nil, 1, "go")
	require.NoError(t, err)
	assert.False(t, inserted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertDaily(t *testing.T) {
	db, mock := newMock(t)
	date := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectExec("ON CONFLICT \\(instagram_user_id, metric_name, date\\) DO UPDATE").
		WithArgs("ig1", "reach", date, int64(120)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := NewInsightRepository(db).UpsertDaily(context.Background(), nil, &models.DailyInsight{
		InstagramUserID: "ig1", MetricName: "reach", Date: date, Value: 120,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertFollowerScalarPassesNulls(t *testing.T) {
	db, mock := newMock(t)
	today := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectExec("INSERT INTO follower_insights").
		WithArgs("ig1", models.MetricFollowersCount, nil, int64(1500), models.PeriodDay, today).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := NewInsightRepository(db).UpsertFollower(context.Background(), nil, &models.FollowerInsight{
		InstagramUserID: "ig1",
		MetricName:      models.MetricFollowersCount,
		Value:           1500,
		Period:          models.PeriodDay,
		DataDate:        &today,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLatestFollowerValue(t *testing.T) {
	db, mock := newMock(t)
	repo := NewInsightRepository(db)

	mock.ExpectQuery("SELECT value FROM follower_insights").WithArgs("ig1", "followers_count").
		WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow(900))
	mock.ExpectQuery("SELECT value FROM follower_insights").WithArgs("ig2", "followers_count").
		WillReturnRows(sqlmock.NewRows([]string{"value"}))

	v, ok, err := repo.LatestFollowerValue(context.Background(), "ig1", "followers_count")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(900), v)

	_, ok, err = repo.LatestFollowerValue(context.Background(), "ig2", "followers_count")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestListDimensions(t *testing.T) {
	db, mock := newMock(t)

	mock.ExpectQuery("ORDER BY value DESC").WithArgs("ig1", "follower_demographics_gender", "lifetime").
		WillReturnRows(sqlmock.NewRows([]string{"dimension_key", "value"}).AddRow("F", 300).AddRow("M", 200))

	values, err := NewInsightRepository(db).ListDimensions(context.Background(), "ig1", "follower_demographics_gender", "lifetime")
	require.NoError(t, err)
	assert.Equal(t, []models.DimensionValue{{Dimension: "F", Value: 300}, {Dimension: "M", Value: 200}}, values)
}

func TestHashtagListByPost(t *testing.T) {
	db, mock := newMock(t)

	mock.ExpectQuery("SELECT hashtag FROM post_hashtags").WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"hashtag"}).AddRow("sunset").AddRow("beach2024"))
	mock.ExpectQuery("SELECT hashtag FROM post_hashtags").WithArgs(int64(8)).
		WillReturnRows(sqlmock.NewRows([]string{"hashtag"}))

	repo := NewHashtagRepository(db)
	tags, err := repo.ListByPost(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, []string{"sunset", "beach2024"}, tags)

	tags, err = repo.ListByPost(context.Background(), 8)
	require.NoError(t, err)
	assert.Empty(t, tags)
	assert.NotNil(t, tags)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAvgDaily(t *testing.T) {
	db, mock := newMock(t)
	since := time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COALESCE(AVG(value), 0)")).WithArgs("ig1", "accounts_engaged", since).
		WillReturnRows(sqlmock.NewRows([]string{"avg"}).AddRow(41.75))

	avg, err := NewInsightRepository(db).AvgDaily(context.Background(), "ig1", "accounts_engaged", since)
	require.NoError(t, err)
	assert.Equal(t, 41.75, avg)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInteractionsSince(t *testing.T) {
	db, mock := newMock(t)
	since := time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("SUM(like_count + comments_count)")).WithArgs("ig1", since).
		WillReturnRows(sqlmock.NewRows([]string{"sum"}).AddRow(150))

	total, err := NewPostRepository(db).InteractionsSince(context.Background(), "ig1", since)
	require.NoError(t, err)
	assert.Equal(t, int64(150), total)
	assert.NoError(t, mock.ExpectationsWereMet())
}
