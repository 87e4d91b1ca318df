package graph

import "net/url"

const PostFields = "caption,media_type,timestamp,like_count,comments_count,id,permalink"

// dailyPeriodMetrics are always requested with period=day.
var dailyPeriodMetrics = map[string]struct{}{
	"profile_views":    {},
	"accounts_engaged": {},
	"reach":            {},
	"impressions":      {},
}

// InsightParams builds the query for the insights edge, without the token.
// A breakdown forces total_value/lifetime and overrides any period.
func InsightParams(metric, period, breakdown string) url.Values {
	params := url.Values{}
	params.Set("metric", metric)

	if breakdown != "" {
		params.Set("breakdown", breakdown)
		params.Set("metric_type", "total_value")
		params.Set("period", "lifetime")
		return params
	}

	if _, ok := dailyPeriodMetrics[metric]; ok {
		params.Set("period", "day")
	} else if period != "" {
		params.Set("period", period)
	}
	return params
}
