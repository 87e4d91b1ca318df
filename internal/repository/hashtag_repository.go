package repository

import (
	"context"
	"database/sql"
	"fmt"
)

type HashtagRepository interface {
	Insert(ctx context.Context, tx *sql.Tx, postTableID int64, hashtag string) (bool, error)
	ListByPost(ctx context.Context, postTableID int64) ([]string, error)
}

type hashtagRepository struct {
	db *sql.DB
}

func NewHashtagRepository(db *sql.DB) HashtagRepository {
	return &hashtagRepository{db: db}
}

// Insert records the pair once. It reports false when the pair already existed.
func (r *hashtagRepository) Insert(ctx context.Context, tx *sql.Tx, postTableID int64, hashtag string) (bool, error) {
	query := `
		INSERT INTO post_hashtags (post_table_id, hashtag)
		VALUES ($1, $2)
		ON CONFLICT (post_table_id, hashtag) DO NOTHING
	`

	var res sql.Result
	var err error
	if tx != nil {
		res, err = tx.ExecContext(ctx, query, postTableID, hashtag)
	} else {
		res, err = r.db.ExecContext(ctx, query, postTableID, hashtag)
	}
	if err != nil {
		return false, fmt.Errorf("insert hashtag %q for post %d: %w", hashtag, postTableID, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *hashtagRepository) ListByPost(ctx context.Context, postTableID int64) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT hashtag FROM post_hashtags WHERE post_table_id = $1 ORDER BY id`, postTableID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tags := []string{}
	for rows.Next() {
		var tag string
		if err := rows.Scan(&tag); err != nil {
			return nil, err
		}
		tags = append(tags, tag)
	}
	return tags, rows.Err()
}
