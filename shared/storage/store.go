package storage

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"vibecheck/internal/models"
	"vibecheck/shared/config"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("record already exists")
)

// Store persists videos and their analyses. A video holds at most one
// aggregate and one batch of top comments at a time.
type Store interface {
	GetVideo(ctx context.Context, videoID string) (*models.Video, error)
	CreateVideo(ctx context.Context, video *models.Video) (*models.Video, error)

	GetAggregate(ctx context.Context, videoKey int64) (*models.SentimentAggregate, error)
	CreateAggregate(ctx context.Context, agg *models.SentimentAggregate) (*models.SentimentAggregate, error)

	GetTopComments(ctx context.Context, videoKey int64) ([]models.TopComment, error)
	CreateTopComments(ctx context.Context, videoKey int64, comments []models.TopComment) ([]models.TopComment, error)

	// DeleteAnalysis drops the aggregate and top comments of a video.
	DeleteAnalysis(ctx context.Context, videoKey int64) error
	// PurgeAnalysesBefore drops every analysis whose aggregate was created
	// before cutoff and reports how many were removed.
	PurgeAnalysesBefore(ctx context.Context, cutoff time.Time) (int, error)

	Close() error
}

// Open builds the backend selected by cfg.Driver.
func Open(ctx context.Context, cfg *config.StorageConfig) (Store, error) {
	switch cfg.Driver {
	case "", "memory":
		dir := ""
		if cfg.Persist {
			dir = cfg.DataDir
		}
		return NewMemoryStore(dir)
	case "sqlite":
		return NewSQLiteStore(ctx, filepath.Join(cfg.DataDir, "vibecheck.db"))
	case "redis":
		return NewRedisStore(ctx, cfg.RedisURL)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

func cloneVideo(v *models.Video) *models.Video {
	c := *v
	return &c
}

func cloneAggregate(a *models.SentimentAggregate) *models.SentimentAggregate {
	c := *a
	c.TrendingTopics = append([]models.Topic(nil), a.TrendingTopics...)
	c.Timeline = append([]models.TimelinePoint(nil), a.Timeline...)
	c.KeyInsights = append([]string(nil), a.KeyInsights...)
	return &c
}
