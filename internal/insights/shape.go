// Package insights turns Graph API insight items into persistable rows.
package insights

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/maheshrc27/insights-pipeline/internal/transfer"
)

type Shape int

const (
	ShapeUnknown Shape = iota
	// ShapeValues is a time series under "values".
	ShapeValues
	// ShapeBreakdown is "total_value" with dimensional "breakdowns".
	ShapeBreakdown
	// ShapeTotal is "total_value" carrying a single number.
	ShapeTotal
)

func (s Shape) String() string {
	switch s {
	case ShapeValues:
		return "values"
	case ShapeBreakdown:
		return "breakdown"
	case ShapeTotal:
		return "total_value"
	default:
		return "unknown"
	}
}

// Decoded is an insight item resolved into exactly one shape. Only the field
// matching Shape is populated.
type Decoded struct {
	Shape      Shape
	Values     []transfer.InsightValue
	Breakdowns []transfer.InsightBreakdown
	Total      json.RawMessage
	// Err is set when the item looked like a known shape but did not decode.
	Err error
}

// Decode classifies an item. "values" takes precedence over "total_value".
func Decode(item transfer.InsightItem) Decoded {
	if present(item.Values) {
		var values []transfer.InsightValue
		if err := json.Unmarshal(item.Values, &values); err != nil {
			return Decoded{Shape: ShapeUnknown, Err: fmt.Errorf("decode values: %w", err)}
		}
		return Decoded{Shape: ShapeValues, Values: values}
	}

	if !present(item.TotalValue) {
		return Decoded{Shape: ShapeUnknown}
	}

	var total transfer.InsightTotalValue
	if err := json.Unmarshal(item.TotalValue, &total); err != nil {
		// A bare number: "total_value": 42.
		if _, numErr := parseValue(item.TotalValue); numErr == nil {
			return Decoded{Shape: ShapeTotal, Total: item.TotalValue}
		}
		return Decoded{Shape: ShapeUnknown, Err: fmt.Errorf("decode total_value: %w", err)}
	}
	if len(total.Breakdowns) > 0 {
		return Decoded{Shape: ShapeBreakdown, Breakdowns: total.Breakdowns}
	}
	if present(total.Value) {
		return Decoded{Shape: ShapeTotal, Total: total.Value}
	}
	return Decoded{Shape: ShapeUnknown}
}

func present(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null"))
}
