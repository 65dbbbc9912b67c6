package vibecheck

import "errors"

// Failure categories surfaced by AnalyzeVideo. Callers match them with
// errors.Is; everything else is an internal error.
var (
	ErrInvalidURL          = errors.New("invalid YouTube URL")
	ErrVideoNotFound       = errors.New("video not found")
	ErrUpstreamUnavailable = errors.New("YouTube is temporarily unavailable")
	ErrConfiguration       = errors.New("service is misconfigured")
)
