package youtube

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"strconv"
	"time"

	"vibecheck/internal/models"
	"vibecheck/shared/config"

	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
)

var (
	ErrVideoNotFound = errors.New("video not found")
	// ErrAccessDenied is returned when comments are disabled or the video
	// is private.
	ErrAccessDenied = errors.New("access denied")
	// ErrInvalidCredentials is returned when the API key or OAuth token is
	// rejected. Retrying will not help.
	ErrInvalidCredentials = errors.New("invalid YouTube credentials")
)

// MaxPageSize is the largest page the commentThreads endpoint serves.
const MaxPageSize = 100

// CommentPage is one page of top-level comments.
type CommentPage struct {
	Comments      []models.Comment
	NextPageToken string
}

type Client struct {
	service *youtube.Service
	limiter *rate.Limiter
	retry   RetryConfig
}

// NewClient authenticates with the API key when one is configured and
// otherwise with the stored OAuth token. Extra options are appended last.
func NewClient(ctx context.Context, cfg *config.YouTubeConfig, opts ...option.ClientOption) (*Client, error) {
	var clientOpts []option.ClientOption
	if cfg.UsesOAuth() {
		tokenSource, err := newTokenSaver(cfg.ClientID, cfg.ClientSecret, cfg.TokenFile)
		if err != nil {
			return nil, fmt.Errorf("failed to get OAuth token: %w", err)
		}
		clientOpts = append(clientOpts, option.WithHTTPClient(oauth2.NewClient(ctx, tokenSource)))
	} else {
		clientOpts = append(clientOpts, option.WithAPIKey(cfg.APIKey))
	}
	clientOpts = append(clientOpts, opts...)

	service, err := youtube.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create YouTube service: %w", err)
	}

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}

	retry := DefaultRetryConfig
	if cfg.MaxRetries > 0 {
		retry.MaxRetries = cfg.MaxRetries
	}

	return &Client{
		service: service,
		limiter: rate.NewLimiter(limit, 1),
		retry:   retry,
	}, nil
}

// call paces and retries a single Data API request.
func call[T any](ctx context.Context, c *Client, fn func() (T, error)) (T, error) {
	return retryDo(ctx, c.retry, func() (T, error) {
		if err := c.limiter.Wait(ctx); err != nil {
			var zero T
			return zero, err
		}
		return fn()
	})
}

// GetMetadata fetches title, channel, statistics and duration of a video.
// The channel subscriber count is looked up best-effort.
func (c *Client) GetMetadata(ctx context.Context, videoID string) (*models.Video, error) {
	resp, err := call(ctx, c, func() (*youtube.VideoListResponse, error) {
		return c.service.Videos.List([]string{"snippet", "contentDetails", "statistics"}).
			Id(videoID).
			Context(ctx).
			Do()
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get video %s: %w", videoID, classify(err))
	}
	if len(resp.Items) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrVideoNotFound, videoID)
	}

	item := resp.Items[0]
	video := &models.Video{
		VideoID: item.Id,
		URL:     WatchURL(item.Id),
	}

	if s := item.Snippet; s != nil {
		video.Title = s.Title
		video.ChannelTitle = s.ChannelTitle
		video.ChannelID = s.ChannelId
		video.ThumbnailURL = bestThumbnail(s.Thumbnails)
		if publishedAt, err := time.Parse(time.RFC3339, s.PublishedAt); err == nil {
			video.PublishedAt = publishedAt
		}
	}
	if cd := item.ContentDetails; cd != nil {
		video.Duration = cd.Duration
		video.DurationSeconds = ParseDuration(cd.Duration)
	}
	if st := item.Statistics; st != nil {
		video.ViewCount = int64(st.ViewCount)
		video.LikeCount = int64(st.LikeCount)
		video.CommentCount = int64(st.CommentCount)
	}

	if video.ChannelID != "" {
		subscribers, err := c.subscriberCount(ctx, video.ChannelID)
		if err != nil {
			slog.Warn("failed to get channel statistics", "channel_id", video.ChannelID, "error", err)
		}
		video.SubscriberCount = subscribers
	}

	return video, nil
}

func (c *Client) subscriberCount(ctx context.Context, channelID string) (int64, error) {
	resp, err := call(ctx, c, func() (*youtube.ChannelListResponse, error) {
		return c.service.Channels.List([]string{"statistics"}).
			Id(channelID).
			Context(ctx).
			Do()
	})
	if err != nil {
		return 0, err
	}
	if len(resp.Items) == 0 || resp.Items[0].Statistics == nil {
		return 0, nil
	}
	stats := resp.Items[0].Statistics
	if stats.HiddenSubscriberCount {
		return 0, nil
	}
	return int64(stats.SubscriberCount), nil
}

// ListComments fetches one page of top-level comments, most relevant first.
// Comment text is returned as HTML.
func (c *Client) ListComments(ctx context.Context, videoID string, pageSize int, pageToken string) (*CommentPage, error) {
	pageSize = min(max(pageSize, 1), MaxPageSize)

	resp, err := call(ctx, c, func() (*youtube.CommentThreadListResponse, error) {
		req := c.service.CommentThreads.List([]string{"snippet"}).
			VideoId(videoID).
			MaxResults(int64(pageSize)).
			Order("relevance").
			TextFormat("html").
			Context(ctx)
		if pageToken != "" {
			req = req.PageToken(pageToken)
		}
		return req.Do()
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list comments for %s: %w", videoID, classify(err))
	}

	page := &CommentPage{
		Comments:      make([]models.Comment, 0, len(resp.Items)),
		NextPageToken: resp.NextPageToken,
	}
	for _, thread := range resp.Items {
		if thread.Snippet == nil || thread.Snippet.TopLevelComment == nil || thread.Snippet.TopLevelComment.Snippet == nil {
			continue
		}
		top := thread.Snippet.TopLevelComment
		comment := models.Comment{
			ID:      thread.Id,
			Text:    top.Snippet.TextDisplay,
			Author:  top.Snippet.AuthorDisplayName,
			Likes:   top.Snippet.LikeCount,
			Replies: thread.Snippet.TotalReplyCount,
		}
		if publishedAt, err := time.Parse(time.RFC3339, top.Snippet.PublishedAt); err == nil {
			comment.PublishedAt = publishedAt
		}
		page.Comments = append(page.Comments, comment)
	}

	return page, nil
}

// classify maps Data API status codes onto package sentinels.
func classify(err error) error {
	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) {
		return err
	}
	for _, item := range apiErr.Errors {
		switch item.Reason {
		case "keyInvalid", "keyExpired", "authError", "accessNotConfigured":
			return fmt.Errorf("%w: %s", ErrInvalidCredentials, apiErr.Message)
		}
	}
	switch apiErr.Code {
	case http.StatusUnauthorized:
		return fmt.Errorf("%w: %s", ErrInvalidCredentials, apiErr.Message)
	case http.StatusForbidden:
		for _, item := range apiErr.Errors {
			switch item.Reason {
			case "quotaExceeded", "dailyLimitExceeded", "rateLimitExceeded":
				return err
			}
		}
		return fmt.Errorf("%w: %s", ErrAccessDenied, apiErr.Message)
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrVideoNotFound, apiErr.Message)
	}
	return err
}

func bestThumbnail(t *youtube.ThumbnailDetails) string {
	if t == nil {
		return ""
	}
	for _, thumb := range []*youtube.Thumbnail{t.High, t.Medium, t.Default} {
		if thumb != nil && thumb.Url != "" {
			return thumb.Url
		}
	}
	return ""
}

var durationRe = regexp.MustCompile(`^P(?:(\d+)D)?(?:T(?:(\d+)H)?(?:(\d+)M)?(?:(\d+)S)?)?$`)

// ParseDuration converts an ISO 8601 duration such as "PT1H2M3S" to
// seconds. Unparsable input yields 0.
func ParseDuration(duration string) int {
	matches := durationRe.FindStringSubmatch(duration)
	if matches == nil {
		return 0
	}

	total := 0
	for i, unit := range []int{86400, 3600, 60, 1} {
		if matches[i+1] == "" {
			continue
		}
		if n, err := strconv.Atoi(matches[i+1]); err == nil {
			total += n * unit
		}
	}
	return total
}
