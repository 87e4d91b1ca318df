package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/maheshrc27/insights-pipeline/internal/models"
)

type PostRepository interface {
	Upsert(ctx context.Context, tx *sql.Tx, post *models.InstagramPost) (int64, error)
	GetByInstagramID(ctx context.Context, instagramPostID string) (*models.InstagramPost, error)
	ListRecent(ctx context.Context, userID string, limit int) ([]*models.InstagramPost, error)
	CountByUser(ctx context.Context, userID string) (int64, error)
	Totals(ctx context.Context, userID string) (*models.PostTotals, error)
	InteractionsSince(ctx context.Context, userID string, since time.Time) (int64, error)
	TopByLikes(ctx context.Context, userID string) (*models.InstagramPost, error)
}

type postRepository struct {
	db *sql.DB
}

func NewPostRepository(db *sql.DB) PostRepository {
	return &postRepository{db: db}
}

const postColumns = `id, instagram_user_id, instagram_post_id, caption_original, caption_cleaned,
	media_type, timestamp, like_count, comments_count, fetched_at`

// Upsert inserts the post or refreshes its mutable fields, returning the
// table id either way.
func (r *postRepository) Upsert(ctx context.Context, tx *sql.Tx, post *models.InstagramPost) (int64, error) {
	query := `
		INSERT INTO instagram_posts (
			instagram_user_id,
			instagram_post_id,
			caption_original,
			caption_cleaned,
			media_type,
			timestamp,
			like_count,
			comments_count
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (instagram_post_id) DO UPDATE SET
			caption_original = EXCLUDED.caption_original,
			caption_cleaned  = EXCLUDED.caption_cleaned,
			media_type       = EXCLUDED.media_type,
			timestamp        = EXCLUDED.timestamp,
			like_count       = EXCLUDED.like_count,
			comments_count   = EXCLUDED.comments_count,
			fetched_at       = CURRENT_TIMESTAMP
		RETURNING id
	`

	args := []interface{}{
		post.InstagramUserID,
		post.InstagramPostID,
		post.CaptionOriginal,
		post.CaptionCleaned,
		post.MediaType,
		post.Timestamp,
		post.LikeCount,
		post.CommentsCount,
	}

	var id int64
	var err error
	if tx != nil {
		err = tx.QueryRowContext(ctx, query, args...).Scan(&id)
	} else {
		err = r.db.QueryRowContext(ctx, query, args...).Scan(&id)
	}
	if err != nil {
		return 0, fmt.Errorf("upsert post %s: %w", post.InstagramPostID, err)
	}

	return id, nil
}

func (r *postRepository) GetByInstagramID(ctx context.Context, instagramPostID string) (*models.InstagramPost, error) {
	query := `SELECT ` + postColumns + ` FROM instagram_posts WHERE instagram_post_id = $1`

	post, err := scanPost(r.db.QueryRowContext(ctx, query, instagramPostID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return post, nil
}

func (r *postRepository) ListRecent(ctx context.Context, userID string, limit int) ([]*models.InstagramPost, error) {
	query := `SELECT ` + postColumns + `
		FROM instagram_posts
		WHERE instagram_user_id = $1
		ORDER BY timestamp DESC NULLS LAST
		LIMIT $2`

	rows, err := r.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	posts := []*models.InstagramPost{}
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, post)
	}
	return posts, rows.Err()
}

func (r *postRepository) CountByUser(ctx context.Context, userID string) (int64, error) {
	var count int64
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM instagram_posts WHERE instagram_user_id = $1`, userID).Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (r *postRepository) Totals(ctx context.Context, userID string) (*models.PostTotals, error) {
	query := `
		SELECT COALESCE(SUM(like_count), 0), COALESCE(SUM(comments_count), 0), COUNT(*)
		FROM instagram_posts
		WHERE instagram_user_id = $1
	`

	var totals models.PostTotals
	if err := r.db.QueryRowContext(ctx, query, userID).Scan(&totals.Likes, &totals.Comments, &totals.Posts); err != nil {
		return nil, err
	}
	return &totals, nil
}

// InteractionsSince sums likes and comments of posts published at or after since.
func (r *postRepository) InteractionsSince(ctx context.Context, userID string, since time.Time) (int64, error) {
	query := `
		SELECT COALESCE(SUM(like_count + comments_count), 0)
		FROM instagram_posts
		WHERE instagram_user_id = $1 AND timestamp >= $2
	`

	var total int64
	if err := r.db.QueryRowContext(ctx, query, userID, since).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

func (r *postRepository) TopByLikes(ctx context.Context, userID string) (*models.InstagramPost, error) {
	query := `SELECT ` + postColumns + `
		FROM instagram_posts
		WHERE instagram_user_id = $1
		ORDER BY like_count DESC
		LIMIT 1`

	post, err := scanPost(r.db.QueryRowContext(ctx, query, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return post, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanPost(row rowScanner) (*models.InstagramPost, error) {
	var post models.InstagramPost
	err := row.Scan(
		&post.ID,
		&post.InstagramUserID,
		&post.InstagramPostID,
		&post.CaptionOriginal,
		&post.CaptionCleaned,
		&post.MediaType,
		&post.Timestamp,
		&post.LikeCount,
		&post.CommentsCount,
		&post.FetchedAt,
	)
	if err != nil {
		return nil, err
	}
	return &post, nil
}
