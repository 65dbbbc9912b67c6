package youtube

import (
	"errors"
	"net/url"
	"regexp"
	"strings"
)

var ErrInvalidURL = errors.New("not a recognised YouTube video URL")

var videoIDRe = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// pathPrefixes are the youtube.com paths whose next segment is a video ID.
var pathPrefixes = []string{"embed", "v", "shorts", "live"}

// ExtractVideoID returns the video ID from a watch, short-link, embed,
// shorts or live URL. The scheme may be omitted.
func ExtractVideoID(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ErrInvalidURL
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", ErrInvalidURL
	}

	host := strings.ToLower(u.Hostname())
	segments := strings.Split(strings.Trim(u.Path, "/"), "/")

	var id string
	switch {
	case host == "youtu.be":
		id = segments[0]
	case host == "youtube.com" || strings.HasSuffix(host, ".youtube.com"):
		if segments[0] == "watch" {
			id = u.Query().Get("v")
			break
		}
		if len(segments) >= 2 {
			for _, prefix := range pathPrefixes {
				if segments[0] == prefix {
					id = segments[1]
					break
				}
			}
		}
	}

	if !videoIDRe.MatchString(id) {
		return "", ErrInvalidURL
	}
	return id, nil
}

// WatchURL is the canonical watch page for a video.
func WatchURL(videoID string) string {
	return "https://www.youtube.com/watch?v=" + videoID
}

// CommentURL links directly to a comment under a video.
func CommentURL(videoID, commentID string) string {
	if commentID == "" {
		return WatchURL(videoID)
	}
	return WatchURL(videoID) + "&lc=" + url.QueryEscape(commentID)
}
