package transfer

import "encoding/json"

type PostRecord struct {
	ID            string  `json:"id"`
	Caption       *string `json:"caption"`
	MediaType     string  `json:"media_type"`
	Timestamp     string  `json:"timestamp"`
	LikeCount     int64   `json:"like_count"`
	CommentsCount int64   `json:"comments_count"`
	Permalink     string  `json:"permalink"`
}

type PostsResponse struct {
	Data []PostRecord `json:"data"`
}

// InsightItem is one entry of the insights "data" array. Values and TotalValue
// are kept raw because the API returns them in several shapes.
type InsightItem struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Period      string          `json:"period"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Values      json.RawMessage `json:"values,omitempty"`
	TotalValue  json.RawMessage `json:"total_value,omitempty"`
}

type InsightsResponse struct {
	Data []InsightItem `json:"data"`
}

type InsightValue struct {
	EndTime *string         `json:"end_time"`
	Value   json.RawMessage `json:"value"`
}

type InsightTotalValue struct {
	Value      json.RawMessage    `json:"value"`
	Breakdowns []InsightBreakdown `json:"breakdowns"`
}

type InsightBreakdown struct {
	DimensionKeys []string               `json:"dimension_keys"`
	Results       []InsightBreakdownItem `json:"results"`
}

type InsightBreakdownItem struct {
	DimensionValues []string        `json:"dimension_values"`
	Value           json.RawMessage `json:"value"`
}

type FollowerCountResponse struct {
	ID             string `json:"id"`
	FollowersCount *int64 `json:"followers_count"`
}

type MediaContainerResponse struct {
	ID string `json:"id"`
}

type ContainerStatusResponse struct {
	ID         string `json:"id"`
	StatusCode string `json:"status_code"`
	Status     string `json:"status"`
}

type GraphErrorResponse struct {
	Error struct {
		Message        string `json:"message"`
		Type           string `json:"type"`
		Code           int    `json:"code"`
		ErrorSubcode   int    `json:"error_subcode"`
		IsTransient    bool   `json:"is_transient"`
		ErrorUserTitle string `json:"error_user_title"`
		ErrorUserMsg   string `json:"error_user_msg"`
		FbtraceID      string `json:"fbtrace_id"`
	} `json:"error"`
}
