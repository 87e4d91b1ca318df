package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/maheshrc27/insights-pipeline/internal/models"
)

type InsightRepository interface {
	UpsertDaily(ctx context.Context, tx *sql.Tx, in *models.DailyInsight) error
	UpsertFollower(ctx context.Context, tx *sql.Tx, in *models.FollowerInsight) error
	SumDaily(ctx context.Context, userID, metric string, since time.Time) (int64, error)
	AvgDaily(ctx context.Context, userID, metric string, since time.Time) (float64, error)
	LatestFollowerValue(ctx context.Context, userID, metric string) (int64, bool, error)
	ListDimensions(ctx context.Context, userID, metric, period string) ([]models.DimensionValue, error)
}

type insightRepository struct {
	db *sql.DB
}

func NewInsightRepository(db *sql.DB) InsightRepository {
	return &insightRepository{db: db}
}

func (r *insightRepository) UpsertDaily(ctx context.Context, tx *sql.Tx, in *models.DailyInsight) error {
	query := `
		INSERT INTO daily_insights (instagram_user_id, metric_name, date, value)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (instagram_user_id, metric_name, date) DO UPDATE SET
			value      = EXCLUDED.value,
			fetched_at = CURRENT_TIMESTAMP
	`

	var err error
	if tx != nil {
		_, err = tx.ExecContext(ctx, query, in.InstagramUserID, in.MetricName, in.Date, in.Value)
	} else {
		_, err = r.db.ExecContext(ctx, query, in.InstagramUserID, in.MetricName, in.Date, in.Value)
	}
	if err != nil {
		return fmt.Errorf("upsert daily insight %s %s: %w", in.MetricName, in.Date.Format("2006-01-02"), err)
	}
	return nil
}

// UpsertFollower relies on the NULLS NOT DISTINCT key, so scalar rows with a
// nil DimensionKey are updated in place as well.
func (r *insightRepository) UpsertFollower(ctx context.Context, tx *sql.Tx, in *models.FollowerInsight) error {
	query := `
		INSERT INTO follower_insights (instagram_user_id, metric_name, dimension_key, value, period, data_date)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (instagram_user_id, metric_name, dimension_key, period, data_date) DO UPDATE SET
			value      = EXCLUDED.value,
			fetched_at = CURRENT_TIMESTAMP
	`

	args := []interface{}{in.InstagramUserID, in.MetricName, in.DimensionKey, in.Value, in.Period, in.DataDate}

	var err error
	if tx != nil {
		_, err = tx.ExecContext(ctx, query, args...)
	} else {
		_, err = r.db.ExecContext(ctx, query, args...)
	}
	if err != nil {
		return fmt.Errorf("upsert follower insight %s: %w", in.MetricName, err)
	}
	return nil
}

func (r *insightRepository) SumDaily(ctx context.Context, userID, metric string, since time.Time) (int64, error) {
	query := `
		SELECT COALESCE(SUM(value), 0) FROM daily_insights
		WHERE instagram_user_id = $1 AND metric_name = $2 AND date >= $3
	`

	var sum int64
	if err := r.db.QueryRowContext(ctx, query, userID, metric, since).Scan(&sum); err != nil {
		return 0, err
	}
	return sum, nil
}

// AvgDaily is 0 when no rows match.
func (r *insightRepository) AvgDaily(ctx context.Context, userID, metric string, since time.Time) (float64, error) {
	query := `
		SELECT COALESCE(AVG(value), 0)::float8 FROM daily_insights
		WHERE instagram_user_id = $1 AND metric_name = $2 AND date >= $3
	`

	var avg float64
	if err := r.db.QueryRowContext(ctx, query, userID, metric, since).Scan(&avg); err != nil {
		return 0, err
	}
	return avg, nil
}

// LatestFollowerValue returns the most recent scalar value of metric. The
// bool is false when nothing is stored.
func (r *insightRepository) LatestFollowerValue(ctx context.Context, userID, metric string) (int64, bool, error) {
	query := `
		SELECT value FROM follower_insights
		WHERE instagram_user_id = $1 AND metric_name = $2
		ORDER BY data_date DESC NULLS LAST, fetched_at DESC
		LIMIT 1
	`

	var value int64
	err := r.db.QueryRowContext(ctx, query, userID, metric).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return value, true, nil
}

func (r *insightRepository) ListDimensions(ctx context.Context, userID, metric, period string) ([]models.DimensionValue, error) {
	query := `
		SELECT COALESCE(dimension_key, ''), value FROM follower_insights
		WHERE instagram_user_id = $1 AND metric_name = $2 AND period = $3
		ORDER BY value DESC
	`

	rows, err := r.db.QueryContext(ctx, query, userID, metric, period)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	values := []models.DimensionValue{}
	for rows.Next() {
		var v models.DimensionValue
		if err := rows.Scan(&v.Dimension, &v.Value); err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	return values, rows.Err()
}
