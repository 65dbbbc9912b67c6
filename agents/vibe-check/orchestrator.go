package vibecheck

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"vibecheck/agents/vibe-check/youtube"
	"vibecheck/internal/models"
	"vibecheck/shared/ai"
	"vibecheck/shared/monitoring"
	"vibecheck/shared/sanitize"
	"vibecheck/shared/storage"

	"golang.org/x/sync/singleflight"
)

const DefaultMaxComments = 1000

// Platform is the video platform the orchestrator reads from.
type Platform interface {
	GetMetadata(ctx context.Context, videoID string) (*models.Video, error)
	youtube.CommentPager
}

// Analyzer scores a batch of comments. It degrades instead of failing.
type Analyzer interface {
	Analyze(ctx context.Context, comments []models.Comment) *ai.Result
}

type Options struct {
	// Refresh drops any stored analysis and recomputes it.
	Refresh bool
}

// Orchestrator runs the analyze-video pipeline: resolve the video, load or
// compute its analysis and shape the response. Concurrent requests for the
// same video share one computation.
type Orchestrator struct {
	store       storage.Store
	platform    Platform
	fetcher     *youtube.CommentFetcher
	analyzer    Analyzer
	monitor     *monitoring.Monitor
	maxComments int
	group       singleflight.Group
	now         func() time.Time
}

func NewOrchestrator(store storage.Store, platform Platform, analyzer Analyzer, monitor *monitoring.Monitor, maxComments int) *Orchestrator {
	if maxComments <= 0 {
		maxComments = DefaultMaxComments
	}
	if monitor == nil {
		monitor = monitoring.NewMonitor()
	}
	return &Orchestrator{
		store:       store,
		platform:    platform,
		fetcher:     youtube.NewCommentFetcher(platform),
		analyzer:    analyzer,
		monitor:     monitor,
		maxComments: maxComments,
		now:         time.Now,
	}
}

// AnalyzeVideo returns the sentiment analysis for the video behind rawURL,
// computing and storing it on first request.
func (o *Orchestrator) AnalyzeVideo(ctx context.Context, rawURL string, opts Options) (*AnalyzeResponse, error) {
	videoID, err := youtube.ExtractVideoID(rawURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidURL, rawURL)
	}

	key := videoID
	if opts.Refresh {
		key = "refresh:" + videoID
	}

	// The shared computation outlives any single caller's cancellation.
	v, err, shared := o.group.Do(key, func() (any, error) {
		return o.analyze(context.WithoutCancel(ctx), videoID, opts)
	})
	if shared {
		slog.Debug("joined in-flight analysis", "video_id", videoID)
	}
	if err != nil {
		return nil, err
	}
	return v.(*AnalyzeResponse), nil
}

func (o *Orchestrator) analyze(ctx context.Context, videoID string, opts Options) (*AnalyzeResponse, error) {
	start := time.Now()

	resp, err := o.loadOrCompute(ctx, videoID, opts)
	if err != nil {
		if errors.Is(err, ErrVideoNotFound) {
			slog.Info("video not found", "video_id", videoID)
		} else {
			o.monitor.RecordCriticalFailure(fmt.Errorf("%s: %w", videoID, err), time.Since(start))
		}
		return nil, err
	}

	switch {
	case resp.Cached:
		o.monitor.RecordCached(videoID)
	case resp.Insights.Degraded:
		o.monitor.RecordPartialFailure(fmt.Errorf("%s: analysis used the keyword fallback", videoID), time.Since(start))
	default:
		o.monitor.RecordSuccess(fmt.Sprintf("%s: %d comments analyzed", videoID, resp.Insights.TotalCommentsAnalyzed), time.Since(start))
	}
	return resp, nil
}

func (o *Orchestrator) loadOrCompute(ctx context.Context, videoID string, opts Options) (*AnalyzeResponse, error) {
	video, err := o.loadVideo(ctx, videoID)
	if err != nil {
		return nil, err
	}

	if opts.Refresh {
		slog.Info("refresh requested, dropping stored analysis", "video_id", videoID)
		if err := o.store.DeleteAnalysis(ctx, video.Key); err != nil {
			return nil, fmt.Errorf("failed to delete analysis: %w", err)
		}
	}

	agg, err := o.store.GetAggregate(ctx, video.Key)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("failed to load aggregate: %w", err)
	}
	comments, err := o.store.GetTopComments(ctx, video.Key)
	if err != nil {
		return nil, fmt.Errorf("failed to load top comments: %w", err)
	}

	// An aggregate over zero comments legitimately has no top comments.
	needAggregate := agg == nil
	needComments := len(comments) == 0 && (agg == nil || agg.TotalComments > 0)
	if !needAggregate && !needComments {
		return buildResponse(video, agg, comments, true, o.now()), nil
	}

	fetched, err := o.fetcher.Fetch(ctx, videoID, o.maxComments)
	if err != nil {
		return nil, o.platformError("failed to fetch comments", err)
	}
	batch := sanitizeComments(fetched)
	slog.Info("fetched comments", "video_id", videoID, "fetched", len(fetched), "usable", len(batch))

	if len(batch) == 0 {
		if needAggregate {
			if agg, err = o.store.CreateAggregate(ctx, emptyAggregate(video.Key)); err != nil {
				return nil, fmt.Errorf("failed to store aggregate: %w", err)
			}
		}
		if needComments {
			if comments, err = o.store.CreateTopComments(ctx, video.Key, []models.TopComment{}); err != nil {
				return nil, fmt.Errorf("failed to store top comments: %w", err)
			}
		}
		return buildResponse(video, agg, comments, false, o.now()), nil
	}

	result := o.analyzer.Analyze(ctx, batch)

	if needAggregate {
		if agg, err = o.store.CreateAggregate(ctx, buildAggregate(video.Key, result, batch)); err != nil {
			return nil, fmt.Errorf("failed to store aggregate: %w", err)
		}
	}
	if needComments {
		top := buildTopComments(video, result, batch, o.now())
		if comments, err = o.store.CreateTopComments(ctx, video.Key, top); err != nil {
			return nil, fmt.Errorf("failed to store top comments: %w", err)
		}
	}

	return buildResponse(video, agg, comments, false, o.now()), nil
}

// loadVideo returns the stored video, fetching and storing its metadata on
// first sight.
func (o *Orchestrator) loadVideo(ctx context.Context, videoID string) (*models.Video, error) {
	video, err := o.store.GetVideo(ctx, videoID)
	if err == nil {
		return video, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("failed to load video: %w", err)
	}

	meta, err := o.platform.GetMetadata(ctx, videoID)
	if err != nil {
		return nil, o.platformError("failed to fetch video metadata", err)
	}

	video, err = o.store.CreateVideo(ctx, meta)
	if errors.Is(err, storage.ErrDuplicate) {
		return o.store.GetVideo(ctx, videoID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to store video: %w", err)
	}
	slog.Info("stored new video", "video_id", videoID, "key", video.Key, "title", video.Title)
	return video, nil
}

// platformError maps a YouTube client failure onto the failure categories.
func (o *Orchestrator) platformError(msg string, err error) error {
	switch {
	case errors.Is(err, youtube.ErrVideoNotFound):
		return fmt.Errorf("%w: %s: %v", ErrVideoNotFound, msg, err)
	case errors.Is(err, youtube.ErrAccessDenied), errors.Is(err, youtube.ErrInvalidCredentials):
		return fmt.Errorf("%w: %s: %v", ErrConfiguration, msg, err)
	default:
		return fmt.Errorf("%w: %s: %v", ErrUpstreamUnavailable, msg, err)
	}
}

// sanitizeComments cleans text and author of every comment and drops the
// ones left without text.
func sanitizeComments(comments []models.Comment) []models.Comment {
	out := make([]models.Comment, 0, len(comments))
	for _, c := range comments {
		c.Text = sanitize.Text(c.Text)
		if c.Text == "" {
			continue
		}
		c.Author = sanitize.Text(c.Author)
		out = append(out, c)
	}
	return out
}
