package youtube

import (
	"context"
	"errors"
	"log/slog"

	"vibecheck/internal/models"
)

// CommentPager serves pages of top-level comments. *Client implements it.
type CommentPager interface {
	ListComments(ctx context.Context, videoID string, pageSize int, pageToken string) (*CommentPage, error)
}

// CommentFetcher pages through a video's comments up to a total limit.
type CommentFetcher struct {
	pager CommentPager
}

func NewCommentFetcher(pager CommentPager) *CommentFetcher {
	return &CommentFetcher{pager: pager}
}

// Fetch returns at most maxTotal comments in relevance order. Disabled
// comments yield whatever was collected, possibly nothing. A failure after
// the first page is logged and the partial result returned; a failure on
// the first page is returned as an error.
func (f *CommentFetcher) Fetch(ctx context.Context, videoID string, maxTotal int) ([]models.Comment, error) {
	comments := []models.Comment{}
	if maxTotal <= 0 {
		return comments, nil
	}

	pageSize := min(MaxPageSize, maxTotal)
	pageToken := ""
	pages := 0

	for len(comments) < maxTotal {
		want := min(pageSize, maxTotal-len(comments))
		page, err := f.pager.ListComments(ctx, videoID, want, pageToken)
		if err != nil {
			if errors.Is(err, ErrAccessDenied) {
				slog.Info("comments unavailable", "video_id", videoID, "fetched", len(comments), "error", err)
				return comments, nil
			}
			if pages > 0 {
				slog.Warn("could not fetch all comments, returning partial result",
					"video_id", videoID, "fetched", len(comments), "error", err)
				return comments, nil
			}
			return nil, err
		}
		pages++

		if len(page.Comments) == 0 {
			break
		}
		comments = append(comments, page.Comments[:min(len(page.Comments), maxTotal-len(comments))]...)

		if page.NextPageToken == "" {
			break
		}
		pageToken = page.NextPageToken
	}

	slog.Debug("fetched comments", "video_id", videoID, "count", len(comments), "pages", pages)
	return comments, nil
}
