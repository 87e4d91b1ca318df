package models

import "time"

type DailyInsight struct {
	InstagramUserID string    `db:"instagram_user_id" json:"instagram_user_id"`
	MetricName      string    `db:"metric_name" json:"metric_name"`
	Date            time.Time `db:"date" json:"date"`
	Value           int64     `db:"value" json:"value"`
}

// FollowerInsight holds either a scalar metric (DimensionKey nil) or one
// bucket of a breakdown such as country "US".
type FollowerInsight struct {
	InstagramUserID string     `db:"instagram_user_id" json:"instagram_user_id"`
	MetricName      string     `db:"metric_name" json:"metric_name"`
	DimensionKey    *string    `db:"dimension_key" json:"dimension_key"`
	Value           int64      `db:"value" json:"value"`
	Period          string     `db:"period" json:"period"`
	DataDate        *time.Time `db:"data_date" json:"data_date"`
}

const (
	PeriodDay      = "day"
	PeriodLifetime = "lifetime"

	MetricFollowersCount = "followers_count"
)

// DemographicBreakdowns are the follower breakdowns ingested and reported.
var DemographicBreakdowns = []string{"country", "gender", "age"}

// DemographicMetric is the stored metric name for a breakdown.
func DemographicMetric(breakdown string) string {
	return "follower_demographics_" + breakdown
}

// DimensionValue is one stored breakdown bucket.
type DimensionValue struct {
	Dimension string `json:"dimension"`
	Value     int64  `json:"value"`
}
