package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"vibecheck/internal/models"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix        = "vibecheck:"
	videoSeqKey      = keyPrefix + "seq:video"
	aggregateSeqKey  = keyPrefix + "seq:aggregate"
	commentSeqKey    = keyPrefix + "seq:comment"
	aggregateIndex   = keyPrefix + "aggregates" // sorted set: video key scored by creation time
	redisDialTimeout = 3 * time.Second
)

func videoKey(videoID string) string { return keyPrefix + "video:" + videoID }
func aggregateKey(key int64) string  { return fmt.Sprintf("%saggregate:%d", keyPrefix, key) }
func commentsKey(key int64) string   { return fmt.Sprintf("%scomments:%d", keyPrefix, key) }

// RedisStore keeps JSON documents in Redis. Surrogate keys come from INCR
// counters and aggregates are indexed by creation time for the sweep.
type RedisStore struct {
	rdb *redis.Client
}

// NewRedisStore connects to redisURL and verifies the server is reachable.
func NewRedisStore(ctx context.Context, redisURL string) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("redis: invalid url: %w", err)
	}
	rdb := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, redisDialTimeout)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis: unreachable at %s: %w", opts.Addr, err)
	}

	slog.Info("redis store connected", slog.String("addr", opts.Addr))
	return &RedisStore{rdb: rdb}, nil
}

func (s *RedisStore) GetVideo(ctx context.Context, videoID string) (*models.Video, error) {
	var v models.Video
	if err := s.getJSON(ctx, videoKey(videoID), &v); err != nil {
		return nil, err
	}
	return &v, nil
}

func (s *RedisStore) CreateVideo(ctx context.Context, video *models.Video) (*models.Video, error) {
	if n, err := s.rdb.Exists(ctx, videoKey(video.VideoID)).Result(); err != nil {
		return nil, fmt.Errorf("redis: check video %s: %w", video.VideoID, err)
	} else if n > 0 {
		return nil, ErrDuplicate
	}

	key, err := s.rdb.Incr(ctx, videoSeqKey).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: next video key: %w", err)
	}

	stored := cloneVideo(video)
	stored.Key = key
	stored.CreatedAt = time.Now().UTC()

	data, err := json.Marshal(stored)
	if err != nil {
		return nil, fmt.Errorf("redis: encode video: %w", err)
	}
	ok, err := s.rdb.SetNX(ctx, videoKey(stored.VideoID), data, 0).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: store video %s: %w", stored.VideoID, err)
	}
	if !ok {
		return nil, ErrDuplicate
	}
	return stored, nil
}

func (s *RedisStore) GetAggregate(ctx context.Context, key int64) (*models.SentimentAggregate, error) {
	var a models.SentimentAggregate
	if err := s.getJSON(ctx, aggregateKey(key), &a); err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *RedisStore) CreateAggregate(ctx context.Context, agg *models.SentimentAggregate) (*models.SentimentAggregate, error) {
	id, err := s.rdb.Incr(ctx, aggregateSeqKey).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: next aggregate id: %w", err)
	}

	stored := cloneAggregate(agg)
	stored.ID = id
	stored.CreatedAt = time.Now().UTC()

	data, err := json.Marshal(stored)
	if err != nil {
		return nil, fmt.Errorf("redis: encode aggregate: %w", err)
	}

	_, err = s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, aggregateKey(stored.VideoKey), data, 0)
		pipe.ZAdd(ctx, aggregateIndex, redis.Z{
			Score:  float64(stored.CreatedAt.UnixMilli()),
			Member: strconv.FormatInt(stored.VideoKey, 10),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("redis: store aggregate: %w", err)
	}
	return stored, nil
}

func (s *RedisStore) GetTopComments(ctx context.Context, key int64) ([]models.TopComment, error) {
	comments := []models.TopComment{}
	err := s.getJSON(ctx, commentsKey(key), &comments)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	return comments, nil
}

func (s *RedisStore) CreateTopComments(ctx context.Context, key int64, comments []models.TopComment) ([]models.TopComment, error) {
	stored := make([]models.TopComment, len(comments))
	if len(comments) > 0 {
		last, err := s.rdb.IncrBy(ctx, commentSeqKey, int64(len(comments))).Result()
		if err != nil {
			return nil, fmt.Errorf("redis: next comment ids: %w", err)
		}
		first := last - int64(len(comments)) + 1
		for i, c := range comments {
			c.ID = first + int64(i)
			c.VideoKey = key
			stored[i] = c
		}
	}

	data, err := json.Marshal(stored)
	if err != nil {
		return nil, fmt.Errorf("redis: encode top comments: %w", err)
	}
	if err := s.rdb.Set(ctx, commentsKey(key), data, 0).Err(); err != nil {
		return nil, fmt.Errorf("redis: store top comments: %w", err)
	}
	return stored, nil
}

func (s *RedisStore) DeleteAnalysis(ctx context.Context, key int64) error {
	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, aggregateKey(key), commentsKey(key))
		pipe.ZRem(ctx, aggregateIndex, strconv.FormatInt(key, 10))
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis: delete analysis %d: %w", key, err)
	}
	return nil
}

func (s *RedisStore) PurgeAnalysesBefore(ctx context.Context, cutoff time.Time) (int, error) {
	// Scores are whole milliseconds, so the exclusive bound matches Before.
	members, err := s.rdb.ZRangeByScore(ctx, aggregateIndex, &redis.ZRangeBy{
		Min: "-inf",
		Max: "(" + strconv.FormatInt(cutoff.UnixMilli(), 10),
	}).Result()
	if err != nil {
		return 0, fmt.Errorf("redis: list expired analyses: %w", err)
	}

	purged := 0
	for _, m := range members {
		key, err := strconv.ParseInt(m, 10, 64)
		if err != nil {
			slog.Warn("redis: dropping malformed index entry", slog.String("member", m))
			s.rdb.ZRem(ctx, aggregateIndex, m)
			continue
		}
		if err := s.DeleteAnalysis(ctx, key); err != nil {
			return purged, err
		}
		purged++
	}
	return purged, nil
}

func (s *RedisStore) Close() error {
	return s.rdb.Close()
}

func (s *RedisStore) getJSON(ctx context.Context, key string, dest any) error {
	data, err := s.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("redis: get %s: %w", key, err)
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("redis: decode %s: %w", key, err)
	}
	return nil
}
