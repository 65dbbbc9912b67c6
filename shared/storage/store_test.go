package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"vibecheck/internal/models"
	"vibecheck/shared/config"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// backends returns a fresh instance of every Store implementation.
func backends(t *testing.T) map[string]Store {
	t.Helper()
	ctx := context.Background()

	mem, err := NewMemoryStore("")
	require.NoError(t, err)

	persisted, err := NewMemoryStore(t.TempDir())
	require.NoError(t, err)

	lite, err := NewSQLiteStore(ctx, ":memory:")
	require.NoError(t, err)

	mr := miniredis.RunT(t)
	rs, err := NewRedisStore(ctx, "redis://"+mr.Addr())
	require.NoError(t, err)

	stores := map[string]Store{
		"memory":          mem,
		"memory-snapshot": persisted,
		"sqlite":          lite,
		"redis":           rs,
	}
	t.Cleanup(func() {
		for _, s := range stores {
			s.Close()
		}
	})
	return stores
}

func sampleVideo(id string) *models.Video {
	return &models.Video{
		VideoID:         id,
		Title:           "Never Gonna Give You Up",
		ChannelTitle:    "Rick Astley",
		ChannelID:       "UCuAXFkgsw1L7xaCfnd5JJOw",
		ThumbnailURL:    "https://i.ytimg.com/vi/" + id + "/hqdefault.jpg",
		Duration:        "PT3M33S",
		DurationSeconds: 213,
		ViewCount:       1_500_000_000,
		PublishedAt:     time.Date(2009, 10, 25, 6, 57, 33, 0, time.UTC),
		LikeCount:       17_000_000,
		CommentCount:    2_300_000,
		SubscriberCount: 4_000_000,
		URL:             "https://www.youtube.com/watch?v=" + id,
	}
}

func sampleAggregate(videoKey int64) *models.SentimentAggregate {
	return &models.SentimentAggregate{
		VideoKey:      videoKey,
		Distribution:  models.Distribution{Positive: 70, Neutral: 20, Negative: 10},
		TotalComments: 250,
		Summary:       "Viewers are nostalgic.",
		TrendingTopics: []models.Topic{
			{Text: "Nostalgia", Size: models.TopicSizeXL, Color: models.TopicColorEmerald},
			{Text: "Dance", Size: models.TopicSizeLarge, Color: models.TopicColorBlue},
		},
		Timeline: []models.TimelinePoint{
			{Label: "Oct 25", Positive: 60, Neutral: 30, Negative: 10},
		},
		KeyInsights: []string{"Strong nostalgic sentiment detected in viewer responses"},
	}
}

func TestStoreVideos(t *testing.T) {
	ctx := context.Background()
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			_, err := store.GetVideo(ctx, "dQw4w9WgXcQ")
			assert.ErrorIs(t, err, ErrNotFound)

			created, err := store.CreateVideo(ctx, sampleVideo("dQw4w9WgXcQ"))
			require.NoError(t, err)
			assert.Positive(t, created.Key)
			assert.False(t, created.CreatedAt.IsZero())

			other, err := store.CreateVideo(ctx, sampleVideo("9bZkp7q19f0"))
			require.NoError(t, err)
			assert.NotEqual(t, created.Key, other.Key)

			got, err := store.GetVideo(ctx, "dQw4w9WgXcQ")
			require.NoError(t, err)
			assert.Equal(t, created.Key, got.Key)
			assert.Equal(t, "Never Gonna Give You Up", got.Title)
			assert.Equal(t, int64(1_500_000_000), got.ViewCount)
			assert.Equal(t, 213, got.DurationSeconds)
			assert.True(t, got.PublishedAt.Equal(time.Date(2009, 10, 25, 6, 57, 33, 0, time.UTC)))
			assert.WithinDuration(t, created.CreatedAt, got.CreatedAt, time.Millisecond)

			_, err = store.CreateVideo(ctx, sampleVideo("dQw4w9WgXcQ"))
			assert.ErrorIs(t, err, ErrDuplicate)
		})
	}
}

func TestStoreAggregates(t *testing.T) {
	ctx := context.Background()
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			video, err := store.CreateVideo(ctx, sampleVideo("dQw4w9WgXcQ"))
			require.NoError(t, err)

			_, err = store.GetAggregate(ctx, video.Key)
			assert.ErrorIs(t, err, ErrNotFound)

			created, err := store.CreateAggregate(ctx, sampleAggregate(video.Key))
			require.NoError(t, err)
			assert.Positive(t, created.ID)

			got, err := store.GetAggregate(ctx, video.Key)
			require.NoError(t, err)
			assert.Equal(t, created.ID, got.ID)
			assert.Equal(t, models.Distribution{Positive: 70, Neutral: 20, Negative: 10}, got.Distribution)
			assert.Equal(t, 250, got.TotalComments)
			assert.Equal(t, sampleAggregate(video.Key).TrendingTopics, got.TrendingTopics)
			assert.Equal(t, sampleAggregate(video.Key).Timeline, got.Timeline)
			assert.Equal(t, sampleAggregate(video.Key).KeyInsights, got.KeyInsights)
			assert.False(t, got.Degraded)

			degraded := sampleAggregate(video.Key)
			degraded.Distribution = models.Distribution{Neutral: 100}
			degraded.TotalComments = 0
			degraded.Degraded = true
			replaced, err := store.CreateAggregate(ctx, degraded)
			require.NoError(t, err)

			got, err = store.GetAggregate(ctx, video.Key)
			require.NoError(t, err)
			assert.Equal(t, replaced.ID, got.ID)
			assert.True(t, got.Degraded)
			assert.Equal(t, 0, got.TotalComments)
		})
	}
}

func TestStoreTopComments(t *testing.T) {
	ctx := context.Background()
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			video, err := store.CreateVideo(ctx, sampleVideo("dQw4w9WgXcQ"))
			require.NoError(t, err)

			empty, err := store.GetTopComments(ctx, video.Key)
			require.NoError(t, err)
			assert.Empty(t, empty)

			batch := []models.TopComment{
				{VideoID: video.VideoID, Text: "Still a banger", Author: "@ana", Likes: 900, Replies: 12, Sentiment: models.SentimentPositive, Timestamp: "2 days ago", URL: video.URL + "&lc=abc"},
				{VideoID: video.VideoID, Text: "Got me again", Author: "@bo", Likes: 40, Sentiment: models.SentimentNeutral},
			}
			created, err := store.CreateTopComments(ctx, video.Key, batch)
			require.NoError(t, err)
			require.Len(t, created, 2)
			assert.NotEqual(t, created[0].ID, created[1].ID)
			assert.Equal(t, video.Key, created[0].VideoKey)

			got, err := store.GetTopComments(ctx, video.Key)
			require.NoError(t, err)
			assert.Equal(t, created, got)

			replacement, err := store.CreateTopComments(ctx, video.Key, batch[1:])
			require.NoError(t, err)
			got, err = store.GetTopComments(ctx, video.Key)
			require.NoError(t, err)
			assert.Equal(t, replacement, got)
		})
	}
}

func TestStoreDeleteAndPurge(t *testing.T) {
	ctx := context.Background()
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			first, err := store.CreateVideo(ctx, sampleVideo("dQw4w9WgXcQ"))
			require.NoError(t, err)
			second, err := store.CreateVideo(ctx, sampleVideo("9bZkp7q19f0"))
			require.NoError(t, err)

			for _, v := range []*models.Video{first, second} {
				_, err := store.CreateAggregate(ctx, sampleAggregate(v.Key))
				require.NoError(t, err)
				_, err = store.CreateTopComments(ctx, v.Key, []models.TopComment{{VideoID: v.VideoID, Text: "hi"}})
				require.NoError(t, err)
			}

			require.NoError(t, store.DeleteAnalysis(ctx, first.Key))
			_, err = store.GetAggregate(ctx, first.Key)
			assert.ErrorIs(t, err, ErrNotFound)
			comments, err := store.GetTopComments(ctx, first.Key)
			require.NoError(t, err)
			assert.Empty(t, comments)

			purged, err := store.PurgeAnalysesBefore(ctx, time.Now().Add(-time.Hour))
			require.NoError(t, err)
			assert.Equal(t, 0, purged)

			purged, err = store.PurgeAnalysesBefore(ctx, time.Now().Add(time.Second))
			require.NoError(t, err)
			assert.Equal(t, 1, purged)
			_, err = store.GetAggregate(ctx, second.Key)
			assert.ErrorIs(t, err, ErrNotFound)

			// Videos survive purges.
			_, err = store.GetVideo(ctx, second.VideoID)
			assert.NoError(t, err)
		})
	}
}

func TestMemoryStoreSnapshotReload(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	store, err := NewMemoryStore(dir)
	require.NoError(t, err)
	video, err := store.CreateVideo(ctx, sampleVideo("dQw4w9WgXcQ"))
	require.NoError(t, err)
	agg, err := store.CreateAggregate(ctx, sampleAggregate(video.Key))
	require.NoError(t, err)
	_, err = store.CreateTopComments(ctx, video.Key, []models.TopComment{{Text: "one"}, {Text: "two"}})
	require.NoError(t, err)
	require.NoError(t, store.Close())

	reloaded, err := NewMemoryStore(dir)
	require.NoError(t, err)

	got, err := reloaded.GetVideo(ctx, "dQw4w9WgXcQ")
	require.NoError(t, err)
	assert.Equal(t, video.Key, got.Key)

	gotAgg, err := reloaded.GetAggregate(ctx, video.Key)
	require.NoError(t, err)
	assert.Equal(t, agg.ID, gotAgg.ID)

	comments, err := reloaded.GetTopComments(ctx, video.Key)
	require.NoError(t, err)
	require.Len(t, comments, 2)
	assert.Equal(t, "one", comments[0].Text)

	// Counters resume after the highest stored key.
	next, err := reloaded.CreateVideo(ctx, sampleVideo("9bZkp7q19f0"))
	require.NoError(t, err)
	assert.Greater(t, next.Key, video.Key)
}

func TestMemoryStoreUndoesFailedWrites(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	store, err := NewMemoryStore(dir)
	require.NoError(t, err)
	video, err := store.CreateVideo(ctx, sampleVideo("dQw4w9WgXcQ"))
	require.NoError(t, err)
	agg, err := store.CreateAggregate(ctx, sampleAggregate(video.Key))
	require.NoError(t, err)
	_, err = store.CreateTopComments(ctx, video.Key, []models.TopComment{{Text: "kept"}})
	require.NoError(t, err)

	// A directory where the temp snapshot goes makes every save fail.
	require.NoError(t, os.Mkdir(filepath.Join(dir, snapshotFile+".tmp"), 0755))

	_, err = store.CreateVideo(ctx, sampleVideo("9bZkp7q19f0"))
	require.Error(t, err)
	_, err = store.GetVideo(ctx, "9bZkp7q19f0")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = store.CreateAggregate(ctx, &models.SentimentAggregate{VideoKey: video.Key, Summary: "replacement"})
	require.Error(t, err)
	got, err := store.GetAggregate(ctx, video.Key)
	require.NoError(t, err)
	assert.Equal(t, agg.ID, got.ID)

	_, err = store.CreateTopComments(ctx, video.Key, []models.TopComment{{Text: "replacement"}})
	require.Error(t, err)
	comments, err := store.GetTopComments(ctx, video.Key)
	require.NoError(t, err)
	require.Len(t, comments, 1)
	assert.Equal(t, "kept", comments[0].Text)

	require.Error(t, store.DeleteAnalysis(ctx, video.Key))
	_, err = store.GetAggregate(ctx, video.Key)
	assert.NoError(t, err)

	purged, err := store.PurgeAnalysesBefore(ctx, time.Now().Add(time.Hour))
	require.Error(t, err)
	assert.Zero(t, purged)
	comments, err = store.GetTopComments(ctx, video.Key)
	require.NoError(t, err)
	assert.Len(t, comments, 1)
}

func TestOpen(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)

	tests := []struct {
		name    string
		cfg     config.StorageConfig
		want    any
		wantErr bool
	}{
		{"Memory", config.StorageConfig{Driver: "memory"}, &MemoryStore{}, false},
		{"Persisted memory", config.StorageConfig{Driver: "memory", Persist: true, DataDir: t.TempDir()}, &MemoryStore{}, false},
		{"SQLite", config.StorageConfig{Driver: "sqlite", DataDir: t.TempDir()}, &SQLiteStore{}, false},
		{"Redis", config.StorageConfig{Driver: "redis", RedisURL: "redis://" + mr.Addr()}, &RedisStore{}, false},
		{"Unknown", config.StorageConfig{Driver: "postgres"}, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, err := Open(ctx, &tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			defer store.Close()
			assert.IsType(t, tt.want, store)
		})
	}
}

func TestSweeper(t *testing.T) {
	ctx := context.Background()
	store, err := NewMemoryStore("")
	require.NoError(t, err)

	video, err := store.CreateVideo(ctx, sampleVideo("dQw4w9WgXcQ"))
	require.NoError(t, err)
	_, err = store.CreateAggregate(ctx, sampleAggregate(video.Key))
	require.NoError(t, err)

	sweeper := NewSweeper(store, time.Hour)
	assert.Equal(t, "analysis-sweep", sweeper.Name())

	require.NoError(t, sweeper.RunOnce(ctx))
	_, err = store.GetAggregate(ctx, video.Key)
	require.NoError(t, err, "fresh analyses survive")

	sweeper.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	require.NoError(t, sweeper.RunOnce(ctx))
	_, err = store.GetAggregate(ctx, video.Key)
	assert.ErrorIs(t, err, ErrNotFound)
}
