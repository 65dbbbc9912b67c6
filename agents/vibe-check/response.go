package vibecheck

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
	"time"

	"vibecheck/agents/vibe-check/youtube"
	"vibecheck/internal/models"
	"vibecheck/shared/ai"
)

const (
	noCommentsSummary = "Comments are disabled or unavailable for this video."
	noCommentsInsight = "No comment data available for analysis"
	timelineBuckets   = 5
	backfillComments  = 10
)

// AnalyzeResponse is the result of a video analysis as served to clients.
type AnalyzeResponse struct {
	Video       VideoSummary        `json:"video"`
	Sentiment   models.Distribution `json:"sentiment"`
	Insights    Insights            `json:"insights"`
	TopComments []CommentView       `json:"topComments"`
	Cached      bool                `json:"cached"`
}

type VideoSummary struct {
	ID              string `json:"id"`
	Title           string `json:"title"`
	Thumbnail       string `json:"thumbnail"`
	ChannelTitle    string `json:"channelTitle"`
	ViewCount       int64  `json:"viewCount"`
	LikeCount       int64  `json:"likeCount"`
	CommentCount    int64  `json:"commentCount"`
	SubscriberCount int64  `json:"subscriberCount"`
	Duration        string `json:"duration"`
	PublishedAt     string `json:"publishedAt"`
	URL             string `json:"url"`
}

type Insights struct {
	Summary               string                 `json:"summary"`
	TrendingTopics        []string               `json:"trending_topics"`
	KeyInsights           []string               `json:"key_insights"`
	Timeline              []models.TimelinePoint `json:"timeline"`
	TotalCommentsAnalyzed int                    `json:"totalCommentsAnalyzed"`
	Degraded              bool                   `json:"degraded"`
}

type CommentView struct {
	Text      string           `json:"text"`
	Author    string           `json:"author"`
	Sentiment models.Sentiment `json:"sentiment"`
	Likes     int64            `json:"likes"`
	Replies   int64            `json:"replies"`
	Timestamp string           `json:"timestamp,omitempty"`
	URL       string           `json:"url"`
}

func buildResponse(video *models.Video, agg *models.SentimentAggregate, comments []models.TopComment, cached bool, now time.Time) *AnalyzeResponse {
	resp := &AnalyzeResponse{
		Video: VideoSummary{
			ID:              video.VideoID,
			Title:           video.Title,
			Thumbnail:       video.ThumbnailURL,
			ChannelTitle:    video.ChannelTitle,
			ViewCount:       video.ViewCount,
			LikeCount:       video.LikeCount,
			CommentCount:    video.CommentCount,
			SubscriberCount: video.SubscriberCount,
			Duration:        FormatDuration(video.DurationSeconds),
			PublishedAt:     RelativeTime(video.PublishedAt, now),
			URL:             video.URL,
		},
		Sentiment: agg.Distribution,
		Insights: Insights{
			Summary:               agg.Summary,
			TrendingTopics:        make([]string, 0, len(agg.TrendingTopics)),
			KeyInsights:           append([]string{}, agg.KeyInsights...),
			Timeline:              append([]models.TimelinePoint{}, agg.Timeline...),
			TotalCommentsAnalyzed: agg.TotalComments,
			Degraded:              agg.Degraded,
		},
		TopComments: make([]CommentView, 0, len(comments)),
		Cached:      cached,
	}

	for _, topic := range agg.TrendingTopics {
		resp.Insights.TrendingTopics = append(resp.Insights.TrendingTopics, topic.Text)
	}
	for _, c := range comments {
		resp.TopComments = append(resp.TopComments, CommentView{
			Text:      c.Text,
			Author:    c.Author,
			Sentiment: c.Sentiment,
			Likes:     c.Likes,
			Replies:   c.Replies,
			Timestamp: c.Timestamp,
			URL:       c.URL,
		})
	}
	return resp
}

// emptyAggregate is stored when a video has no analysable comments.
func emptyAggregate(videoKey int64) *models.SentimentAggregate {
	return &models.SentimentAggregate{
		VideoKey:       videoKey,
		Distribution:   models.Distribution{Neutral: 100},
		Summary:        noCommentsSummary,
		TrendingTopics: []models.Topic{},
		Timeline:       []models.TimelinePoint{},
		KeyInsights:    []string{noCommentsInsight},
		Degraded:       true,
	}
}

func buildAggregate(videoKey int64, result *ai.Result, comments []models.Comment) *models.SentimentAggregate {
	insights := make([]string, 0, len(result.KeyEmotions))
	for _, emotion := range result.KeyEmotions {
		insights = append(insights, fmt.Sprintf("Strong %s sentiment detected in viewer responses", emotion))
	}

	analyzed := comments[:min(max(result.Analyzed, 0), len(comments))]

	return &models.SentimentAggregate{
		VideoKey:       videoKey,
		Distribution:   result.Overall,
		TotalComments:  len(comments),
		Summary:        result.Summary,
		TrendingTopics: buildTopics(result.TrendingTopics),
		Timeline:       buildTimeline(analyzed),
		KeyInsights:    insights,
		Degraded:       result.Degraded,
	}
}

var topicSizes = []models.TopicSize{models.TopicSizeXL, models.TopicSizeLarge, models.TopicSizeMedium, models.TopicSizeSmall}

// buildTopics sizes topics by rank, most prominent first, and cycles colors
// through the palette.
func buildTopics(labels []string) []models.Topic {
	topics := make([]models.Topic, 0, len(labels))
	for i, label := range labels {
		topics = append(topics, models.Topic{
			Text:  label,
			Size:  topicSizes[min(i, len(topicSizes)-1)],
			Color: models.TopicPalette[i%len(models.TopicPalette)],
		})
	}
	return topics
}

// buildTimeline orders comments by publish time, splits them into up to
// five equal buckets and classifies each bucket with the keyword
// classifier. Each point is labelled with the date its bucket starts.
func buildTimeline(comments []models.Comment) []models.TimelinePoint {
	if len(comments) == 0 {
		return []models.TimelinePoint{}
	}

	ordered := slices.Clone(comments)
	slices.SortStableFunc(ordered, func(a, b models.Comment) int {
		return a.PublishedAt.Compare(b.PublishedAt)
	})

	n := min(timelineBuckets, len(ordered))
	points := make([]models.TimelinePoint, 0, n)
	for i := 0; i < n; i++ {
		bucket := ordered[i*len(ordered)/n : (i+1)*len(ordered)/n]

		texts := make([]string, len(bucket))
		for j, c := range bucket {
			texts[j] = c.Text
		}
		d := ai.ClassifyAll(texts)

		label := fmt.Sprintf("Part %d", i+1)
		if start := bucket[0].PublishedAt; !start.IsZero() {
			label = start.Format("Jan 2")
		}
		points = append(points, models.TimelinePoint{
			Label:    label,
			Positive: d.Positive,
			Neutral:  d.Neutral,
			Negative: d.Negative,
		})
	}
	return points
}

// buildTopComments turns the analyzer's picks into stored comments, matching
// each back to the fetched comment it quotes to recover replies, publish
// time and a permalink. With no picks, the most liked comments stand in.
func buildTopComments(video *models.Video, result *ai.Result, comments []models.Comment, now time.Time) []models.TopComment {
	picks := result.TopComments
	if len(picks) == 0 {
		picks = mostLiked(comments, backfillComments)
	}

	byText := make(map[string]models.Comment, len(comments))
	for _, c := range comments {
		if _, seen := byText[c.Text]; !seen {
			byText[c.Text] = c
		}
	}

	out := make([]models.TopComment, 0, len(picks))
	for _, pick := range picks {
		tc := models.TopComment{
			VideoID:   video.VideoID,
			Text:      pick.Text,
			Author:    authorHandle(pick.Author),
			Likes:     pick.Likes,
			Sentiment: models.ParseSentiment(string(pick.Sentiment)),
			URL:       youtube.WatchURL(video.VideoID),
		}

		if source, ok := matchComment(pick.Text, byText, comments); ok {
			tc.Likes = source.Likes
			tc.Replies = source.Replies
			tc.Timestamp = RelativeTime(source.PublishedAt, now)
			tc.URL = youtube.CommentURL(video.VideoID, source.ID)
			if tc.Author == "" {
				tc.Author = authorHandle(source.Author)
			}
		}
		out = append(out, tc)
	}
	return out
}

func matchComment(text string, byText map[string]models.Comment, comments []models.Comment) (models.Comment, bool) {
	if c, ok := byText[text]; ok {
		return c, true
	}
	// Truncated quotes end in an ellipsis.
	if prefix, ok := strings.CutSuffix(text, "..."); ok && prefix != "" {
		for _, c := range comments {
			if strings.HasPrefix(c.Text, prefix) {
				return c, true
			}
		}
	}
	return models.Comment{}, false
}

func mostLiked(comments []models.Comment, n int) []ai.ScoredComment {
	ordered := slices.Clone(comments)
	slices.SortStableFunc(ordered, func(a, b models.Comment) int {
		return cmp.Compare(b.Likes, a.Likes)
	})

	picks := make([]ai.ScoredComment, 0, min(n, len(ordered)))
	for _, c := range ordered[:min(n, len(ordered))] {
		picks = append(picks, ai.ScoredComment{
			Text:      c.Text,
			Author:    c.Author,
			Sentiment: ai.Classify(c.Text),
			Likes:     c.Likes,
		})
	}
	return picks
}

// authorHandle renders a display name as a handle: "Jane Doe" → "@janedoe".
func authorHandle(name string) string {
	name = strings.TrimPrefix(strings.TrimSpace(name), "@")
	name = strings.ToLower(strings.Join(strings.Fields(name), ""))
	if name == "" {
		return ""
	}
	return "@" + name
}
