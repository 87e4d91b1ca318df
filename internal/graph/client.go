// Package graph talks to the Instagram Graph API: reading media, insights and
// follower counts for the ingestion pipeline, and publishing media for the
// scheduling endpoint.
package graph

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	config "github.com/maheshrc27/insights-pipeline/configs"
	"github.com/maheshrc27/insights-pipeline/internal/metrics"
	"github.com/maheshrc27/insights-pipeline/internal/transfer"
	"github.com/maheshrc27/insights-pipeline/pkg/retry"
)

const (
	endpointMedia    = "media"
	endpointInsights = "insights"
	endpointAccount  = "account"
)

type Client struct {
	httpClient  *http.Client
	baseURL     string
	accountID   string
	accessToken string
	retry       retry.Config
	limiter     *rate.Limiter
	log         zerolog.Logger

	containerPoll  time.Duration
	containerPolls int
}

func NewClient(cfg config.Instagram, log zerolog.Logger) *Client {
	baseURL := cfg.GraphURL
	if baseURL == "" {
		baseURL = config.DefaultGraphURL
	}

	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	retryCfg := retry.DefaultConfig()
	retryCfg.MaxAttempts = cfg.MaxRetries + 1
	retryCfg.RetryIf = IsRetryable
	retryCfg.Logger = log

	var limiter *rate.Limiter
	if cfg.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}

	return &Client{
		httpClient:  &http.Client{Timeout: timeout},
		baseURL:     strings.TrimRight(baseURL, "/"),
		accountID:   cfg.AccountID,
		accessToken: cfg.AccessToken,
		retry:       retryCfg,
		limiter:     limiter,
		log:         log,

		containerPoll:  defaultContainerPoll,
		containerPolls: defaultContainerPolls,
	}
}

func (c *Client) AccountID() string {
	return c.accountID
}

// FetchPosts lists the account's media. On failure it returns an empty slice
// together with the error.
func (c *Client) FetchPosts(ctx context.Context) ([]transfer.PostRecord, error) {
	params := url.Values{}
	params.Set("fields", PostFields)

	var resp transfer.PostsResponse
	if err := c.get(ctx, endpointMedia, c.accountID+"/media", params, &resp); err != nil {
		return []transfer.PostRecord{}, err
	}
	if resp.Data == nil {
		return []transfer.PostRecord{}, nil
	}
	return resp.Data, nil
}

// FetchInsights queries one metric. period and breakdown may be empty; see
// InsightParams for how they combine.
func (c *Client) FetchInsights(ctx context.Context, metric, period, breakdown string) ([]transfer.InsightItem, error) {
	var resp transfer.InsightsResponse
	if err := c.get(ctx, endpointInsights, c.accountID+"/insights", InsightParams(metric, period, breakdown), &resp); err != nil {
		return []transfer.InsightItem{}, err
	}
	if resp.Data == nil {
		return []transfer.InsightItem{}, nil
	}
	return resp.Data, nil
}

// FetchFollowerCount returns nil when the count is unavailable.
func (c *Client) FetchFollowerCount(ctx context.Context) (*int64, error) {
	params := url.Values{}
	params.Set("fields", "followers_count")

	var resp transfer.FollowerCountResponse
	if err := c.get(ctx, endpointAccount, c.accountID, params, &resp); err != nil {
		return nil, err
	}
	return resp.FollowersCount, nil
}

func (c *Client) get(ctx context.Context, endpoint, path string, params url.Values, target interface{}) error {
	query := url.Values{}
	for k, v := range params {
		query[k] = v
	}
	if query.Get("access_token") == "" {
		query.Set("access_token", c.accessToken)
	}
	reqURL := fmt.Sprintf("%s/%s?%s", c.baseURL, path, query.Encode())

	start := time.Now()
	body, err := retry.DoWithResult(ctx, c.retry, func(ctx context.Context) ([]byte, error) {
		return c.do(ctx, http.MethodGet, reqURL, nil, "")
	})
	if err == nil {
		if err = json.Unmarshal(body, target); err != nil {
			err = &APIError{Type: ErrorTypeParsing, Message: fmt.Sprintf("decode %s response: %v", endpoint, err), Body: string(body), Err: err}
		}
	}

	if err != nil {
		c.logAPIError(endpoint, params.Get("metric"), err)
		record(endpoint, err)
		return err
	}

	c.log.Debug().
		Str("endpoint", endpoint).
		Str("metric", params.Get("metric")).
		Dur("duration", time.Since(start)).
		Msg("graph request completed")
	record(endpoint, nil)
	return nil
}

// do performs one HTTP exchange and returns the body of a 2xx response.
func (c *Client) do(ctx context.Context, method, reqURL string, body io.Reader, contentType string) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, transportError(err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, body)
	if err != nil {
		return nil, &APIError{Type: ErrorTypeClient, Message: fmt.Sprintf("build request: %v", err), Err: err}
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, transportError(redact(err))
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, transportError(err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, statusError(resp.StatusCode, respBody)
	}
	return respBody, nil
}

func (c *Client) logAPIError(endpoint, metric string, err error) {
	event := c.log.Error().Str("endpoint", endpoint)
	if metric != "" {
		event = event.Str("metric", metric)
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		event = event.Str("error_type", string(apiErr.Type)).Int("status", apiErr.StatusCode)
		if apiErr.Body != "" {
			if json.Valid([]byte(apiErr.Body)) {
				event = event.RawJSON("api_error", []byte(apiErr.Body))
			} else {
				event = event.Str("api_error_raw", apiErr.Body)
			}
		}
	}
	event.Err(err).Msg("graph request failed")
}

func record(endpoint string, err error) {
	outcome := "ok"
	var apiErr *APIError
	switch {
	case err == nil:
	case errors.As(err, &apiErr):
		outcome = string(apiErr.Type)
	default:
		outcome = "error"
	}
	metrics.RecordGraphRequest(endpoint, outcome)
}

// redact strips the query string, which carries the access token, from
// transport errors before they reach logs.
func redact(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		if u, parseErr := url.Parse(urlErr.URL); parseErr == nil {
			u.RawQuery = ""
			return &url.Error{Op: urlErr.Op, URL: u.String(), Err: urlErr.Err}
		}
	}
	return err
}
