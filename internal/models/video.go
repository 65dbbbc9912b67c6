package models

import "time"

type Video struct {
	Key             int64     `json:"key"`
	VideoID         string    `json:"video_id"`
	Title           string    `json:"title"`
	ChannelTitle    string    `json:"channel_title"`
	ChannelID       string    `json:"channel_id"`
	ThumbnailURL    string    `json:"thumbnail_url"`
	Duration        string    `json:"duration"`
	DurationSeconds int       `json:"duration_seconds"`
	ViewCount       int64     `json:"view_count"`
	PublishedAt     time.Time `json:"published_at"`
	LikeCount       int64     `json:"like_count"`
	CommentCount    int64     `json:"comment_count"`
	ShareCount      int64     `json:"share_count"` // not exposed by the Data API
	SubscriberCount int64     `json:"subscriber_count"`
	URL             string    `json:"url"`
	CreatedAt       time.Time `json:"created_at"`
}

// Comment is a single top-level comment as fetched from the platform.
type Comment struct {
	ID          string    `json:"id"`
	Text        string    `json:"text"`
	Author      string    `json:"author"`
	Likes       int64     `json:"likes"`
	Replies     int64     `json:"replies"`
	PublishedAt time.Time `json:"published_at"`
}
