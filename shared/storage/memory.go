package storage

import (
	"context"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"vibecheck/internal/models"

	"github.com/goccy/go-json"
)

const snapshotFile = "analyses.json"

// MemoryStore keeps everything in maps. When created with a data directory
// every write is mirrored to a JSON snapshot that is reloaded on start; a
// write whose snapshot fails is undone in memory as well.
type MemoryStore struct {
	filePath string
	mu       sync.RWMutex

	videos     map[string]*models.Video
	aggregates map[int64]*models.SentimentAggregate
	comments   map[int64][]models.TopComment

	nextVideoKey  int64
	nextAggID     int64
	nextCommentID int64
}

// snapshot is the on-disk layout of a MemoryStore.
type snapshot struct {
	Videos     []*models.Video              `json:"videos"`
	Aggregates []*models.SentimentAggregate `json:"aggregates"`
	Comments   []models.TopComment          `json:"comments"`
}

// NewMemoryStore creates an in-memory store. An empty dataDir disables
// persistence.
func NewMemoryStore(dataDir string) (*MemoryStore, error) {
	s := &MemoryStore{
		videos:     make(map[string]*models.Video),
		aggregates: make(map[int64]*models.SentimentAggregate),
		comments:   make(map[int64][]models.TopComment),
	}
	if dataDir == "" {
		return s, nil
	}

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	s.filePath = filepath.Join(dataDir, snapshotFile)

	if err := s.load(); err != nil {
		return nil, fmt.Errorf("failed to load snapshot: %w", err)
	}
	return s, nil
}

func (s *MemoryStore) GetVideo(_ context.Context, videoID string) (*models.Video, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.videos[videoID]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneVideo(v), nil
}

func (s *MemoryStore) CreateVideo(_ context.Context, video *models.Video) (*models.Video, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.videos[video.VideoID]; exists {
		return nil, ErrDuplicate
	}

	s.nextVideoKey++
	stored := cloneVideo(video)
	stored.Key = s.nextVideoKey
	stored.CreatedAt = time.Now().UTC()
	s.videos[stored.VideoID] = stored

	if err := s.save(); err != nil {
		delete(s.videos, stored.VideoID)
		return nil, err
	}
	return cloneVideo(stored), nil
}

func (s *MemoryStore) GetAggregate(_ context.Context, videoKey int64) (*models.SentimentAggregate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.aggregates[videoKey]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneAggregate(a), nil
}

func (s *MemoryStore) CreateAggregate(_ context.Context, agg *models.SentimentAggregate) (*models.SentimentAggregate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextAggID++
	stored := cloneAggregate(agg)
	stored.ID = s.nextAggID
	stored.CreatedAt = time.Now().UTC()
	prev, hadPrev := s.aggregates[stored.VideoKey]
	s.aggregates[stored.VideoKey] = stored

	if err := s.save(); err != nil {
		if hadPrev {
			s.aggregates[stored.VideoKey] = prev
		} else {
			delete(s.aggregates, stored.VideoKey)
		}
		return nil, err
	}
	return cloneAggregate(stored), nil
}

func (s *MemoryStore) GetTopComments(_ context.Context, videoKey int64) ([]models.TopComment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return append([]models.TopComment{}, s.comments[videoKey]...), nil
}

func (s *MemoryStore) CreateTopComments(_ context.Context, videoKey int64, comments []models.TopComment) ([]models.TopComment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := make([]models.TopComment, len(comments))
	for i, c := range comments {
		s.nextCommentID++
		c.ID = s.nextCommentID
		c.VideoKey = videoKey
		stored[i] = c
	}
	prev, hadPrev := s.comments[videoKey]
	s.comments[videoKey] = stored

	if err := s.save(); err != nil {
		if hadPrev {
			s.comments[videoKey] = prev
		} else {
			delete(s.comments, videoKey)
		}
		return nil, err
	}
	return append([]models.TopComment{}, stored...), nil
}

func (s *MemoryStore) DeleteAnalysis(_ context.Context, videoKey int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	agg, hadAgg := s.aggregates[videoKey]
	batch, hadBatch := s.comments[videoKey]
	delete(s.aggregates, videoKey)
	delete(s.comments, videoKey)

	if err := s.save(); err != nil {
		if hadAgg {
			s.aggregates[videoKey] = agg
		}
		if hadBatch {
			s.comments[videoKey] = batch
		}
		return err
	}
	return nil
}

func (s *MemoryStore) PurgeAnalysesBefore(_ context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removedAggs := make(map[int64]*models.SentimentAggregate)
	removedBatches := make(map[int64][]models.TopComment)
	for videoKey, agg := range s.aggregates {
		if agg.CreatedAt.Before(cutoff) {
			removedAggs[videoKey] = agg
			if batch, ok := s.comments[videoKey]; ok {
				removedBatches[videoKey] = batch
			}
			delete(s.aggregates, videoKey)
			delete(s.comments, videoKey)
		}
	}
	if len(removedAggs) == 0 {
		return 0, nil
	}

	if err := s.save(); err != nil {
		maps.Copy(s.aggregates, removedAggs)
		maps.Copy(s.comments, removedBatches)
		return 0, err
	}
	return len(removedAggs), nil
}

func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save()
}

// load reads the snapshot file and restores the ID counters.
func (s *MemoryStore) load() error {
	file, err := os.Open(s.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to open snapshot file: %w", err)
	}
	defer file.Close()

	var snap snapshot
	if err := json.NewDecoder(file).Decode(&snap); err != nil {
		return fmt.Errorf("failed to decode snapshot: %w", err)
	}

	for _, v := range snap.Videos {
		s.videos[v.VideoID] = v
		s.nextVideoKey = max(s.nextVideoKey, v.Key)
	}
	for _, a := range snap.Aggregates {
		s.aggregates[a.VideoKey] = a
		s.nextAggID = max(s.nextAggID, a.ID)
	}
	for _, c := range snap.Comments {
		s.comments[c.VideoKey] = append(s.comments[c.VideoKey], c)
		s.nextCommentID = max(s.nextCommentID, c.ID)
	}
	return nil
}

// save writes the snapshot file. Callers hold the write lock.
func (s *MemoryStore) save() error {
	if s.filePath == "" {
		return nil
	}

	snap := snapshot{
		Videos:     make([]*models.Video, 0, len(s.videos)),
		Aggregates: make([]*models.SentimentAggregate, 0, len(s.aggregates)),
		Comments:   []models.TopComment{},
	}
	for _, v := range s.videos {
		snap.Videos = append(snap.Videos, v)
	}
	for _, a := range s.aggregates {
		snap.Aggregates = append(snap.Aggregates, a)
	}
	for _, batch := range s.comments {
		snap.Comments = append(snap.Comments, batch...)
	}
	sort.Slice(snap.Videos, func(i, j int) bool { return snap.Videos[i].Key < snap.Videos[j].Key })
	sort.Slice(snap.Aggregates, func(i, j int) bool { return snap.Aggregates[i].ID < snap.Aggregates[j].ID })
	sort.Slice(snap.Comments, func(i, j int) bool { return snap.Comments[i].ID < snap.Comments[j].ID })

	tmp := s.filePath + ".tmp"
	file, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("failed to create snapshot file: %w", err)
	}

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(snap); err != nil {
		file.Close()
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	return os.Rename(tmp, s.filePath)
}
