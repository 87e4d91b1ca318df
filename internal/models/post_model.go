package models

import "time"

type InstagramPost struct {
	ID              int64      `db:"id" json:"id"`
	InstagramUserID string     `db:"instagram_user_id" json:"instagram_user_id"`
	InstagramPostID string     `db:"instagram_post_id" json:"instagram_post_id"`
	CaptionOriginal string     `db:"caption_original" json:"caption_original"`
	CaptionCleaned  string     `db:"caption_cleaned" json:"caption_cleaned"`
	MediaType       string     `db:"media_type" json:"media_type"`
	Timestamp       *time.Time `db:"timestamp" json:"timestamp"`
	LikeCount       int64      `db:"like_count" json:"like_count"`
	CommentsCount   int64      `db:"comments_count" json:"comments_count"`
	FetchedAt       time.Time  `db:"fetched_at" json:"fetched_at"`
	// Hashtags is read from post_hashtags, not a column of instagram_posts.
	Hashtags []string `db:"-" json:"hashtags,omitempty"`
}

// PostTotals aggregates engagement across an account's stored posts.
type PostTotals struct {
	Likes    int64 `json:"likes"`
	Comments int64 `json:"comments"`
	Posts    int64 `json:"posts"`
}
