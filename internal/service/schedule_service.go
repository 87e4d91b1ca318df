package service

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/h2non/filetype"
	"github.com/h2non/filetype/types"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"

	"github.com/maheshrc27/insights-pipeline/internal/graph"
	"github.com/maheshrc27/insights-pipeline/internal/textclean"
)

const (
	uploadPrefix    = "instagram_uploads"
	maxBaseNameLen  = 100
	objectIDLength  = 10
	objectTimestamp = "20060102150405"
)

var (
	ErrInvalidSchedule         = errors.New("invalid schedule request")
	ErrPublishingNotConfigured = errors.New("instagram publishing is not configured")
)

var allowedMediaTypes = map[string]struct{}{
	"jpg": {}, "png": {}, "mp4": {}, "mov": {},
}

// Publisher creates and publishes Instagram media containers.
type Publisher interface {
	CreateMediaContainer(ctx context.Context, accountID, mediaURL, caption, accessToken string, kind graph.MediaKind) (string, error)
	WaitForContainer(ctx context.Context, containerID, accessToken string) error
	PublishMedia(ctx context.Context, accountID, creationID, accessToken string, scheduledAt int64) (string, error)
}

type ScheduleRequest struct {
	AccountID      string
	Caption        string
	Hashtags       string
	ScheduledAt    int64
	UseOptimalHour bool
	FileName       string
	File           []byte
}

type ScheduleResult struct {
	InstagramPostID string `json:"instagram_post_id"`
	ContainerID     string `json:"container_id"`
	MediaURL        string `json:"media_url"`
	PublishAt       int64  `json:"scheduled_publish_time"`
}

type ScheduleService interface {
	Schedule(ctx context.Context, req *ScheduleRequest) (*ScheduleResult, error)
}

type scheduleService struct {
	storage     StorageService
	publisher   Publisher
	appToken    string
	optimalHour int
	now         func() time.Time
	log         zerolog.Logger
}

// NewScheduleService accepts a nil storage; scheduling then fails with
// ErrStorageNotConfigured.
func NewScheduleService(storage StorageService, publisher Publisher, appToken string, optimalHour int, log zerolog.Logger) ScheduleService {
	return &scheduleService{
		storage:     storage,
		publisher:   publisher,
		appToken:    appToken,
		optimalHour: optimalHour,
		now:         time.Now,
		log:         log,
	}
}

// Schedule uploads the media, creates a container for it and asks Instagram
// to publish it at the requested time.
func (s *scheduleService) Schedule(ctx context.Context, req *ScheduleRequest) (*ScheduleResult, error) {
	if err := validateSchedule(req); err != nil {
		return nil, err
	}
	if s.appToken == "" {
		return nil, ErrPublishingNotConfigured
	}
	if s.storage == nil {
		return nil, ErrStorageNotConfigured
	}

	kind, err := filetype.Match(req.File)
	if err != nil || kind == types.Unknown {
		return nil, fmt.Errorf("%w: unsupported file type", ErrInvalidSchedule)
	}
	if _, ok := allowedMediaTypes[kind.Extension]; !ok {
		return nil, fmt.Errorf("%w: file type %s is not allowed", ErrInvalidSchedule, kind.Extension)
	}

	publishAt := req.ScheduledAt
	if req.UseOptimalHour {
		publishAt = ApplyOptimalHour(req.ScheduledAt, s.optimalHour)
		s.log.Info().Int("hour", s.optimalHour).Int64("publish_at", publishAt).Msg("using optimal posting hour")
	}

	key, err := s.objectKey(req.FileName, kind.Extension)
	if err != nil {
		return nil, err
	}

	mediaURL, err := s.storage.Upload(ctx, key, req.File, kind.MIME.Value)
	if err != nil {
		return nil, err
	}

	caption := strings.TrimSpace(req.Caption + " " + req.Hashtags)

	mediaKind := graph.MediaImage
	if kind.MIME.Type == "video" {
		mediaKind = graph.MediaReel
	}

	containerID, err := s.publisher.CreateMediaContainer(ctx, req.AccountID, mediaURL, caption, s.appToken, mediaKind)
	if err != nil {
		return nil, fmt.Errorf("create media container: %w", err)
	}
	s.log.Info().Str("container_id", containerID).Str("media_url", mediaURL).Str("media_kind", string(mediaKind)).Msg("media container created")

	// Reels are transcoded asynchronously and cannot be published until done.
	if mediaKind == graph.MediaReel {
		if err := s.publisher.WaitForContainer(ctx, containerID, s.appToken); err != nil {
			return nil, fmt.Errorf("wait for media container %s: %w", containerID, err)
		}
	}

	mediaID, err := s.publisher.PublishMedia(ctx, req.AccountID, containerID, s.appToken, publishAt)
	if err != nil {
		return nil, fmt.Errorf("publish media container %s: %w", containerID, err)
	}
	s.log.Info().Str("media_id", mediaID).Int64("publish_at", publishAt).Msg("post scheduled")

	return &ScheduleResult{
		InstagramPostID: mediaID,
		ContainerID:     containerID,
		MediaURL:        mediaURL,
		PublishAt:       publishAt,
	}, nil
}

func validateSchedule(req *ScheduleRequest) error {
	switch {
	case req == nil:
		return fmt.Errorf("%w: request is empty", ErrInvalidSchedule)
	case len(req.File) == 0:
		return fmt.Errorf("%w: media file is required", ErrInvalidSchedule)
	case req.FileName == "":
		return fmt.Errorf("%w: media file name is empty", ErrInvalidSchedule)
	case req.AccountID == "":
		return fmt.Errorf("%w: instagram account id is required", ErrInvalidSchedule)
	case req.ScheduledAt <= 0:
		return fmt.Errorf("%w: scheduled publish time is required", ErrInvalidSchedule)
	}
	return nil
}

// objectKey is instagram_uploads/<utc timestamp>_<id>_<sanitized name><ext>.
func (s *scheduleService) objectKey(fileName, detectedExt string) (string, error) {
	id, err := gonanoid.New(objectIDLength)
	if err != nil {
		return "", fmt.Errorf("generate object id: %w", err)
	}

	ext := filepath.Ext(fileName)
	base := textclean.SanitizeFilename(strings.TrimSuffix(fileName, ext))
	if len(base) > maxBaseNameLen {
		base = base[:maxBaseNameLen]
	}

	ext = strings.ToLower(strings.TrimPrefix(ext, "."))
	ext = textclean.SanitizeFilename(ext)
	if ext == "" || ext == "unnamed_file" {
		ext = detectedExt
	}

	return fmt.Sprintf("%s/%s_%s_%s.%s", uploadPrefix, s.now().UTC().Format(objectTimestamp), id, base, ext), nil
}

// ApplyOptimalHour moves a unix time to hour:00:00 UTC on the same UTC day.
func ApplyOptimalHour(unix int64, hour int) int64 {
	t := time.Unix(unix, 0).UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), hour, 0, 0, 0, time.UTC).Unix()
}
