package youtube

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"vibecheck/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pageCall struct {
	pageSize  int
	pageToken string
}

// fakePager serves pre-built pages in order and then fails with errs.
type fakePager struct {
	pages []*CommentPage
	errs  map[int]error
	calls []pageCall
}

func (p *fakePager) ListComments(_ context.Context, _ string, pageSize int, pageToken string) (*CommentPage, error) {
	idx := len(p.calls)
	p.calls = append(p.calls, pageCall{pageSize, pageToken})
	if err, ok := p.errs[idx]; ok {
		return nil, err
	}
	if idx >= len(p.pages) {
		return &CommentPage{}, nil
	}
	page := p.pages[idx]
	if len(page.Comments) > pageSize {
		page = &CommentPage{Comments: page.Comments[:pageSize], NextPageToken: page.NextPageToken}
	}
	return page, nil
}

func makePage(start, n int, next string) *CommentPage {
	page := &CommentPage{NextPageToken: next}
	for i := start; i < start+n; i++ {
		page.Comments = append(page.Comments, models.Comment{ID: fmt.Sprintf("c%d", i), Text: "comment"})
	}
	return page
}

func TestFetchPaginates(t *testing.T) {
	pager := &fakePager{pages: []*CommentPage{
		makePage(0, 100, "p2"),
		makePage(100, 100, "p3"),
		makePage(200, 100, "p4"),
	}}

	comments, err := NewCommentFetcher(pager).Fetch(context.Background(), "vid", 250)
	require.NoError(t, err)

	assert.Len(t, comments, 250)
	assert.Equal(t, "c0", comments[0].ID)
	assert.Equal(t, "c249", comments[249].ID)
	assert.Equal(t, []pageCall{{100, ""}, {100, "p2"}, {50, "p3"}}, pager.calls)
}

func TestFetchStopsWithoutContinuation(t *testing.T) {
	pager := &fakePager{pages: []*CommentPage{makePage(0, 100, "p2"), makePage(100, 30, "")}}

	comments, err := NewCommentFetcher(pager).Fetch(context.Background(), "vid", 1000)
	require.NoError(t, err)
	assert.Len(t, comments, 130)
	assert.Len(t, pager.calls, 2)
}

func TestFetchStopsOnEmptyPage(t *testing.T) {
	pager := &fakePager{pages: []*CommentPage{makePage(0, 10, "p2"), {NextPageToken: "p3"}}}

	comments, err := NewCommentFetcher(pager).Fetch(context.Background(), "vid", 1000)
	require.NoError(t, err)
	assert.Len(t, comments, 10)
	assert.Len(t, pager.calls, 2)
}

func TestFetchSmallLimit(t *testing.T) {
	pager := &fakePager{pages: []*CommentPage{makePage(0, 100, "p2")}}

	comments, err := NewCommentFetcher(pager).Fetch(context.Background(), "vid", 20)
	require.NoError(t, err)
	assert.Len(t, comments, 20)
	assert.Equal(t, []pageCall{{20, ""}}, pager.calls)
}

func TestFetchZeroLimit(t *testing.T) {
	pager := &fakePager{}

	comments, err := NewCommentFetcher(pager).Fetch(context.Background(), "vid", 0)
	require.NoError(t, err)
	assert.Empty(t, comments)
	assert.Empty(t, pager.calls)
}

func TestFetchFailures(t *testing.T) {
	upstream := errors.New("connection reset")
	denied := fmt.Errorf("%w: comments disabled", ErrAccessDenied)

	tests := []struct {
		name      string
		pages     []*CommentPage
		errs      map[int]error
		wantCount int
		wantErr   error
	}{
		{"Disabled on first page", nil, map[int]error{0: denied}, 0, nil},
		{"Disabled later", []*CommentPage{makePage(0, 100, "p2")}, map[int]error{1: denied}, 100, nil},
		{"Failure after a page", []*CommentPage{makePage(0, 100, "p2")}, map[int]error{1: upstream}, 100, nil},
		{"Failure on first page", nil, map[int]error{0: upstream}, 0, upstream},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pager := &fakePager{pages: tt.pages, errs: tt.errs}
			comments, err := NewCommentFetcher(pager).Fetch(context.Background(), "vid", 1000)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, comments)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, comments)
			assert.Len(t, comments, tt.wantCount)
		})
	}
}
