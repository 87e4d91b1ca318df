package graph

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/maheshrc27/insights-pipeline/internal/transfer"
)

const endpointPublish = "publish"

type MediaKind string

const (
	MediaImage MediaKind = "IMAGE"
	MediaReel  MediaKind = "REELS"
)

// Container status codes reported by the Graph API.
const (
	containerFinished = "FINISHED"
	containerError    = "ERROR"
	containerExpired  = "EXPIRED"
)

var (
	ErrNoMediaID          = errors.New("no media id returned from instagram")
	ErrContainerFailed    = errors.New("media container processing failed")
	ErrContainerNotReady  = errors.New("media container is not ready")
	defaultContainerPoll  = 5 * time.Second
	defaultContainerPolls = 24
)

// CreateMediaContainer registers media hosted at mediaURL and returns the
// container id used by PublishMedia. Reels are sent as video_url.
func (c *Client) CreateMediaContainer(ctx context.Context, accountID, mediaURL, caption, accessToken string, kind MediaKind) (string, error) {
	form := url.Values{}
	if kind == MediaReel {
		form.Set("media_type", string(MediaReel))
		form.Set("video_url", mediaURL)
	} else {
		form.Set("image_url", mediaURL)
	}
	form.Set("caption", caption)
	form.Set("access_token", accessToken)

	return c.postForm(ctx, accountID+"/media", form)
}

// WaitForContainer polls a container until Instagram has finished processing
// it. Video containers cannot be published before that.
func (c *Client) WaitForContainer(ctx context.Context, containerID, accessToken string) error {
	params := url.Values{}
	params.Set("fields", "status_code,status")
	params.Set("access_token", accessToken)

	for attempt := 1; attempt <= c.containerPolls; attempt++ {
		var resp transfer.ContainerStatusResponse
		if err := c.get(ctx, endpointPublish, containerID, params, &resp); err != nil {
			return err
		}

		switch resp.StatusCode {
		case containerFinished:
			return nil
		case containerError, containerExpired:
			return fmt.Errorf("%w: %s %s", ErrContainerFailed, resp.StatusCode, resp.Status)
		}
		c.log.Debug().Str("container_id", containerID).Str("status_code", resp.StatusCode).Int("attempt", attempt).Msg("media container not ready")

		if attempt == c.containerPolls {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.containerPoll):
		}
	}
	return fmt.Errorf("%w after %d checks", ErrContainerNotReady, c.containerPolls)
}

// PublishMedia publishes a container. A positive scheduledAt (unix seconds)
// asks Instagram to publish it at that time instead of immediately.
func (c *Client) PublishMedia(ctx context.Context, accountID, creationID, accessToken string, scheduledAt int64) (string, error) {
	form := url.Values{}
	form.Set("creation_id", creationID)
	form.Set("access_token", accessToken)
	if scheduledAt > 0 {
		form.Set("scheduled_publish_time", strconv.FormatInt(scheduledAt, 10))
	}

	return c.postForm(ctx, accountID+"/media_publish", form)
}

// postForm is never retried: a repeated POST could publish twice.
func (c *Client) postForm(ctx context.Context, path string, form url.Values) (string, error) {
	reqURL := fmt.Sprintf("%s/%s", c.baseURL, path)

	body, err := c.do(ctx, http.MethodPost, reqURL, strings.NewReader(form.Encode()), "application/x-www-form-urlencoded")
	if err != nil {
		c.logAPIError(endpointPublish, "", err)
		record(endpointPublish, err)
		return "", err
	}

	var result transfer.MediaContainerResponse
	if err := json.Unmarshal(body, &result); err != nil {
		apiErr := &APIError{Type: ErrorTypeParsing, Message: fmt.Sprintf("decode %s response: %v", path, err), Body: string(body), Err: err}
		c.logAPIError(endpointPublish, "", apiErr)
		record(endpointPublish, apiErr)
		return "", apiErr
	}
	if result.ID == "" {
		record(endpointPublish, ErrNoMediaID)
		return "", ErrNoMediaID
	}

	record(endpointPublish, nil)
	return result.ID, nil
}
