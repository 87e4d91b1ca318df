package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/maheshrc27/insights-pipeline/internal/insights"
	"github.com/maheshrc27/insights-pipeline/internal/models"
	"github.com/maheshrc27/insights-pipeline/internal/repository"
	"github.com/maheshrc27/insights-pipeline/internal/textclean"
	"github.com/maheshrc27/insights-pipeline/internal/transfer"
)

// IngestService persists pipeline batches. Each call is one transaction: a
// failure rolls back that batch only.
type IngestService interface {
	SavePosts(ctx context.Context, userID string, posts []transfer.PostRecord) (int, error)
	SaveDailyInsights(ctx context.Context, rows []models.DailyInsight) (int, error)
	SaveFollowerInsights(ctx context.Context, rows []models.FollowerInsight) (int, error)
}

type ingestService struct {
	db  *sql.DB
	pr  repository.PostRepository
	hr  repository.HashtagRepository
	ir  repository.InsightRepository
	log zerolog.Logger
}

func NewIngestService(
	db *sql.DB,
	pr repository.PostRepository,
	hr repository.HashtagRepository,
	ir repository.InsightRepository,
	log zerolog.Logger) IngestService {
	return &ingestService{
		db:  db,
		pr:  pr,
		hr:  hr,
		ir:  ir,
		log: log,
	}
}

// SavePosts upserts every post with its hashtags in a single transaction.
// Posts without an id are skipped. It returns the number of posts written.
func (s *ingestService) SavePosts(ctx context.Context, userID string, posts []transfer.PostRecord) (saved int, err error) {
	if len(posts) == 0 {
		return 0, nil
	}

	err = s.inTx(ctx, "posts", func(tx *sql.Tx) error {
		for _, record := range posts {
			if record.ID == "" {
				s.log.Warn().Str("media_type", record.MediaType).Msg("skipping post without id")
				continue
			}

			post := s.toPost(userID, record)
			postTableID, err := s.pr.Upsert(ctx, tx, post)
			if err != nil {
				return err
			}

			for _, tag := range textclean.CaptionHashtags(record.Caption) {
				if _, err := s.hr.Insert(ctx, tx, postTableID, tag); err != nil {
					return err
				}
			}
			saved++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return saved, nil
}

func (s *ingestService) SaveDailyInsights(ctx context.Context, rows []models.DailyInsight) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	err := s.inTx(ctx, "daily_insights", func(tx *sql.Tx) error {
		for i := range rows {
			if err := s.ir.UpsertDaily(ctx, tx, &rows[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(rows), nil
}

func (s *ingestService) SaveFollowerInsights(ctx context.Context, rows []models.FollowerInsight) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	err := s.inTx(ctx, "follower_insights", func(tx *sql.Tx) error {
		for i := range rows {
			if err := s.ir.UpsertFollower(ctx, tx, &rows[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(rows), nil
}

func (s *ingestService) toPost(userID string, record transfer.PostRecord) *models.InstagramPost {
	post := &models.InstagramPost{
		InstagramUserID: userID,
		InstagramPostID: record.ID,
		CaptionCleaned:  textclean.CleanCaption(record.Caption),
		MediaType:       record.MediaType,
		LikeCount:       record.LikeCount,
		CommentsCount:   record.CommentsCount,
	}
	if record.Caption != nil {
		post.CaptionOriginal = *record.Caption
	}

	if record.Timestamp != "" {
		ts, err := insights.ParseTimestamp(record.Timestamp)
		if err != nil {
			s.log.Warn().Str("post_id", record.ID).Str("timestamp", record.Timestamp).Msg("invalid post timestamp, storing NULL")
		} else {
			utc := ts.UTC()
			post.Timestamp = &utc
		}
	}
	return post
}

// inTx runs fn in a transaction, rolling back when fn fails or panics.
func (s *ingestService) inTx(ctx context.Context, batch string, fn func(tx *sql.Tx) error) (err error) {
	start := time.Now()

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		err = fmt.Errorf("begin %s transaction: %w", batch, err)
		s.log.Error().Err(err).Str("batch", batch).Msg("persist failed")
		return err
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		} else if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				s.log.Error().Err(rbErr).Str("batch", batch).Msg("rollback failed")
			}
			s.log.Error().Err(err).Str("batch", batch).Msg("persist failed, batch rolled back")
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit %s transaction: %w", batch, err)
	}

	s.log.Debug().Str("batch", batch).Dur("duration", time.Since(start)).Msg("batch committed")
	return nil
}
