package insights

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/maheshrc27/insights-pipeline/internal/models"
	"github.com/maheshrc27/insights-pipeline/internal/transfer"
)

// UnknownDimension is stored when a breakdown result has no dimension values.
const UnknownDimension = "unknown"

// Graph API end_time, e.g. 2024-01-01T08:00:00+0000.
const graphTimeLayout = "2006-01-02T15:04:05-0700"

var (
	errNullValue    = errors.New("value is null")
	errMissingValue = errors.New("value is missing")
)

// Skip records a data point that was dropped. Item indexes the insight item,
// Index the entry inside it (-1 when the whole item was dropped).
type Skip struct {
	Item   int
	Index  int
	Reason string
}

type Result[T any] struct {
	Rows    []T
	Skipped []Skip
}

func (r *Result[T]) skip(item, index int, format string, args ...interface{}) {
	r.Skipped = append(r.Skipped, Skip{Item: item, Index: index, Reason: fmt.Sprintf(format, args...)})
}

// ParseDaily yields one row per "values" entry, dated by the calendar day of
// its end_time in the offset it was reported with.
func ParseDaily(items []transfer.InsightItem, userID, metric string) Result[models.DailyInsight] {
	res := Result[models.DailyInsight]{Rows: []models.DailyInsight{}}

	for i, item := range items {
		dec := Decode(item)
		if dec.Shape != ShapeValues {
			res.skip(i, -1, "%s", shapeReason(dec, ShapeValues))
			continue
		}

		for j, v := range dec.Values {
			if v.EndTime == nil || *v.EndTime == "" {
				res.skip(i, j, "missing end_time")
				continue
			}
			date, err := ParseDate(*v.EndTime)
			if err != nil {
				res.skip(i, j, "invalid end_time %q", *v.EndTime)
				continue
			}
			value, err := parseValue(v.Value)
			if err != nil {
				res.skip(i, j, "%v", err)
				continue
			}

			res.Rows = append(res.Rows, models.DailyInsight{
				InstagramUserID: userID,
				MetricName:      metric,
				Date:            date,
				Value:           value,
			})
		}
	}
	return res
}

// ParseBreakdown yields one row per breakdown result keyed by its first
// dimension value.
func ParseBreakdown(items []transfer.InsightItem, userID, metric, period string, dataDate *time.Time) Result[models.FollowerInsight] {
	res := Result[models.FollowerInsight]{Rows: []models.FollowerInsight{}}

	for i, item := range items {
		dec := Decode(item)
		if dec.Shape != ShapeBreakdown {
			res.skip(i, -1, "%s", shapeReason(dec, ShapeBreakdown))
			continue
		}

		j := 0
		for _, group := range dec.Breakdowns {
			for _, result := range group.Results {
				value, err := parseValue(result.Value)
				if err != nil {
					res.skip(i, j, "%v", err)
					j++
					continue
				}

				key := UnknownDimension
				if len(result.DimensionValues) > 0 {
					key = result.DimensionValues[0]
				}

				res.Rows = append(res.Rows, models.FollowerInsight{
					InstagramUserID: userID,
					MetricName:      metric,
					DimensionKey:    &key,
					Value:           value,
					Period:          period,
					DataDate:        dataDate,
				})
				j++
			}
		}
	}
	return res
}

// ParseDate returns the calendar date of an end_time as midnight UTC.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(graphTimeLayout, s)
	if err != nil {
		var rfcErr error
		if t, rfcErr = time.Parse(time.RFC3339, s); rfcErr != nil {
			return time.Time{}, err
		}
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
}

// ParseTimestamp parses a media timestamp in either Graph or RFC 3339 form.
func ParseTimestamp(s string) (time.Time, error) {
	if t, err := time.Parse(graphTimeLayout, s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}

func shapeReason(dec Decoded, want Shape) string {
	switch {
	case dec.Err != nil:
		return dec.Err.Error()
	case dec.Shape == ShapeTotal:
		return "scalar total_value not persisted"
	default:
		return fmt.Sprintf("expected %s shape, got %s", want, dec.Shape)
	}
}

func parseValue(raw json.RawMessage) (int64, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return 0, errMissingValue
	}
	if bytes.Equal(trimmed, []byte("null")) {
		return 0, errNullValue
	}

	var n json.Number
	if err := json.Unmarshal(trimmed, &n); err != nil {
		return 0, fmt.Errorf("value is not a number: %s", trimmed)
	}
	if i, err := n.Int64(); err == nil {
		return i, nil
	}
	f, err := n.Float64()
	if err != nil || f != math.Trunc(f) || math.Abs(f) >= math.MaxInt64 {
		return 0, fmt.Errorf("value is not an integer: %s", n)
	}
	return int64(f), nil
}
