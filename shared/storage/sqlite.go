package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"vibecheck/internal/models"

	"github.com/goccy/go-json"
	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS videos (
	id               INTEGER PRIMARY KEY AUTOINCREMENT,
	video_id         TEXT NOT NULL UNIQUE,
	title            TEXT NOT NULL,
	channel_title    TEXT NOT NULL,
	channel_id       TEXT NOT NULL,
	thumbnail_url    TEXT NOT NULL,
	duration         TEXT NOT NULL,
	duration_seconds INTEGER NOT NULL,
	view_count       INTEGER NOT NULL,
	published_at     TEXT NOT NULL,
	like_count       INTEGER NOT NULL,
	comment_count    INTEGER NOT NULL,
	share_count      INTEGER NOT NULL,
	subscriber_count INTEGER NOT NULL,
	url              TEXT NOT NULL,
	created_at       TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS sentiment_aggregates (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	video_key       INTEGER NOT NULL UNIQUE REFERENCES videos(id),
	positive        INTEGER NOT NULL,
	neutral         INTEGER NOT NULL,
	negative        INTEGER NOT NULL,
	total_comments  INTEGER NOT NULL,
	summary         TEXT NOT NULL,
	trending_topics TEXT NOT NULL,
	timeline        TEXT NOT NULL,
	key_insights    TEXT NOT NULL,
	degraded        INTEGER NOT NULL,
	created_at      TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_aggregates_created ON sentiment_aggregates(created_at);

CREATE TABLE IF NOT EXISTS top_comments (
	id        INTEGER PRIMARY KEY AUTOINCREMENT,
	video_key INTEGER NOT NULL REFERENCES videos(id),
	video_id  TEXT NOT NULL,
	text      TEXT NOT NULL,
	author    TEXT NOT NULL,
	likes     INTEGER NOT NULL,
	replies   INTEGER NOT NULL,
	sentiment TEXT NOT NULL,
	timestamp TEXT NOT NULL,
	url       TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_top_comments_video ON top_comments(video_key);
`

// SQLiteStore keeps analyses in a single SQLite file. List-valued
// aggregate fields are stored as JSON text columns.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the database at path. ":memory:" is
// accepted for tests.
func NewSQLiteStore(ctx context.Context, path string) (*SQLiteStore, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("sqlite: mkdir %s: %w", filepath.Dir(path), err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open db: %w", err)
	}
	db.SetMaxOpenConns(1) // single writer

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: init schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) GetVideo(ctx context.Context, videoID string) (*models.Video, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, video_id, title, channel_title, channel_id,
		thumbnail_url, duration, duration_seconds, view_count, published_at, like_count,
		comment_count, share_count, subscriber_count, url, created_at
		FROM videos WHERE video_id = ?`, videoID)

	var v models.Video
	var publishedAt, createdAt string
	err := row.Scan(&v.Key, &v.VideoID, &v.Title, &v.ChannelTitle, &v.ChannelID,
		&v.ThumbnailURL, &v.Duration, &v.DurationSeconds, &v.ViewCount, &publishedAt, &v.LikeCount,
		&v.CommentCount, &v.ShareCount, &v.SubscriberCount, &v.URL, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: get video %s: %w", videoID, err)
	}

	if v.PublishedAt, err = parseTime(publishedAt); err != nil {
		return nil, err
	}
	if v.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	return &v, nil
}

func (s *SQLiteStore) CreateVideo(ctx context.Context, video *models.Video) (*models.Video, error) {
	stored := cloneVideo(video)
	stored.CreatedAt = time.Now().UTC()

	res, err := s.db.ExecContext(ctx, `INSERT INTO videos (video_id, title, channel_title, channel_id,
		thumbnail_url, duration, duration_seconds, view_count, published_at, like_count,
		comment_count, share_count, subscriber_count, url, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		stored.VideoID, stored.Title, stored.ChannelTitle, stored.ChannelID,
		stored.ThumbnailURL, stored.Duration, stored.DurationSeconds, stored.ViewCount,
		formatTime(stored.PublishedAt), stored.LikeCount, stored.CommentCount, stored.ShareCount,
		stored.SubscriberCount, stored.URL, formatTime(stored.CreatedAt))
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return nil, ErrDuplicate
		}
		return nil, fmt.Errorf("sqlite: insert video %s: %w", video.VideoID, err)
	}

	if stored.Key, err = res.LastInsertId(); err != nil {
		return nil, fmt.Errorf("sqlite: video key: %w", err)
	}
	return stored, nil
}

func (s *SQLiteStore) GetAggregate(ctx context.Context, videoKey int64) (*models.SentimentAggregate, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, video_key, positive, neutral, negative,
		total_comments, summary, trending_topics, timeline, key_insights, degraded, created_at
		FROM sentiment_aggregates WHERE video_key = ?`, videoKey)

	var a models.SentimentAggregate
	var topics, timeline, insights, createdAt string
	err := row.Scan(&a.ID, &a.VideoKey, &a.Distribution.Positive, &a.Distribution.Neutral,
		&a.Distribution.Negative, &a.TotalComments, &a.Summary, &topics, &timeline, &insights,
		&a.Degraded, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: get aggregate %d: %w", videoKey, err)
	}

	if err := json.Unmarshal([]byte(topics), &a.TrendingTopics); err != nil {
		return nil, fmt.Errorf("sqlite: decode trending topics: %w", err)
	}
	if err := json.Unmarshal([]byte(timeline), &a.Timeline); err != nil {
		return nil, fmt.Errorf("sqlite: decode timeline: %w", err)
	}
	if err := json.Unmarshal([]byte(insights), &a.KeyInsights); err != nil {
		return nil, fmt.Errorf("sqlite: decode key insights: %w", err)
	}
	if a.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *SQLiteStore) CreateAggregate(ctx context.Context, agg *models.SentimentAggregate) (*models.SentimentAggregate, error) {
	stored := cloneAggregate(agg)
	stored.CreatedAt = time.Now().UTC()

	topics, err := marshalList(stored.TrendingTopics)
	if err != nil {
		return nil, err
	}
	timeline, err := marshalList(stored.Timeline)
	if err != nil {
		return nil, err
	}
	insights, err := marshalList(stored.KeyInsights)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("sqlite: begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM sentiment_aggregates WHERE video_key = ?`, stored.VideoKey); err != nil {
		return nil, fmt.Errorf("sqlite: replace aggregate: %w", err)
	}
	res, err := tx.ExecContext(ctx, `INSERT INTO sentiment_aggregates (video_key, positive, neutral,
		negative, total_comments, summary, trending_topics, timeline, key_insights, degraded, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		stored.VideoKey, stored.Distribution.Positive, stored.Distribution.Neutral,
		stored.Distribution.Negative, stored.TotalComments, stored.Summary, topics, timeline,
		insights, stored.Degraded, formatTime(stored.CreatedAt))
	if err != nil {
		return nil, fmt.Errorf("sqlite: insert aggregate: %w", err)
	}
	if stored.ID, err = res.LastInsertId(); err != nil {
		return nil, fmt.Errorf("sqlite: aggregate id: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("sqlite: commit aggregate: %w", err)
	}
	return stored, nil
}

func (s *SQLiteStore) GetTopComments(ctx context.Context, videoKey int64) ([]models.TopComment, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, video_key, video_id, text, author, likes,
		replies, sentiment, timestamp, url FROM top_comments WHERE video_key = ? ORDER BY id`, videoKey)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list top comments: %w", err)
	}
	defer rows.Close()

	comments := []models.TopComment{}
	for rows.Next() {
		var c models.TopComment
		if err := rows.Scan(&c.ID, &c.VideoKey, &c.VideoID, &c.Text, &c.Author, &c.Likes,
			&c.Replies, &c.Sentiment, &c.Timestamp, &c.URL); err != nil {
			return nil, fmt.Errorf("sqlite: scan top comment: %w", err)
		}
		comments = append(comments, c)
	}
	return comments, rows.Err()
}

func (s *SQLiteStore) CreateTopComments(ctx context.Context, videoKey int64, comments []models.TopComment) ([]models.TopComment, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("sqlite: begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM top_comments WHERE video_key = ?`, videoKey); err != nil {
		return nil, fmt.Errorf("sqlite: replace top comments: %w", err)
	}

	stored := make([]models.TopComment, len(comments))
	for i, c := range comments {
		c.VideoKey = videoKey
		res, err := tx.ExecContext(ctx, `INSERT INTO top_comments (video_key, video_id, text, author,
			likes, replies, sentiment, timestamp, url) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			c.VideoKey, c.VideoID, c.Text, c.Author, c.Likes, c.Replies, string(c.Sentiment), c.Timestamp, c.URL)
		if err != nil {
			return nil, fmt.Errorf("sqlite: insert top comment: %w", err)
		}
		if c.ID, err = res.LastInsertId(); err != nil {
			return nil, fmt.Errorf("sqlite: top comment id: %w", err)
		}
		stored[i] = c
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("sqlite: commit top comments: %w", err)
	}
	return stored, nil
}

func (s *SQLiteStore) DeleteAnalysis(ctx context.Context, videoKey int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM sentiment_aggregates WHERE video_key = ?`, videoKey); err != nil {
		return fmt.Errorf("sqlite: delete aggregate: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM top_comments WHERE video_key = ?`, videoKey); err != nil {
		return fmt.Errorf("sqlite: delete top comments: %w", err)
	}
	return tx.Commit()
}

func (s *SQLiteStore) PurgeAnalysesBefore(ctx context.Context, cutoff time.Time) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("sqlite: begin: %w", err)
	}
	defer tx.Rollback()

	ts := formatTime(cutoff)
	if _, err := tx.ExecContext(ctx, `DELETE FROM top_comments WHERE video_key IN
		(SELECT video_key FROM sentiment_aggregates WHERE created_at < ?)`, ts); err != nil {
		return 0, fmt.Errorf("sqlite: purge top comments: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM sentiment_aggregates WHERE created_at < ?`, ts)
	if err != nil {
		return 0, fmt.Errorf("sqlite: purge aggregates: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("sqlite: purge count: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("sqlite: commit purge: %w", err)
	}
	return int(n), nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// sqliteTimeLayout sorts lexically in time order, which the purge query
// relies on.
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(sqliteTimeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(sqliteTimeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("sqlite: parse time %q: %w", s, err)
	}
	return t, nil
}

func marshalList[T any](items []T) (string, error) {
	if items == nil {
		items = []T{}
	}
	b, err := json.Marshal(items)
	if err != nil {
		return "", fmt.Errorf("sqlite: encode list: %w", err)
	}
	return string(b), nil
}
