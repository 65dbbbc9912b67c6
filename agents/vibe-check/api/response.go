package api

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	vibecheck "vibecheck/agents/vibe-check"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// errMalformedBody marks a request body that could not be decoded.
var errMalformedBody = errors.New("request body is not valid JSON")

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// Error maps err onto a status code and writes an ErrorResponse.
func Error(c *gin.Context, err error) {
	status, code, message := classify(err)
	if status == http.StatusInternalServerError {
		slog.Error("request failed", "error", err, "request_id", c.GetString(RequestIDKey))
	}
	c.AbortWithStatusJSON(status, ErrorResponse{Error: code, Message: message})
}

func classify(err error) (status int, code, message string) {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		first := validationErrs[0]
		return http.StatusBadRequest, "invalid_request",
			fmt.Sprintf("field %s failed the %s check", first.Field(), first.Tag())
	}

	switch {
	case errors.Is(err, errMalformedBody):
		return http.StatusBadRequest, "invalid_request", errMalformedBody.Error()
	case errors.Is(err, vibecheck.ErrInvalidURL):
		return http.StatusBadRequest, "invalid_url", "Invalid YouTube URL"
	case errors.Is(err, vibecheck.ErrVideoNotFound):
		return http.StatusNotFound, "video_not_found", "Video not found"
	case errors.Is(err, vibecheck.ErrUpstreamUnavailable):
		return http.StatusServiceUnavailable, "upstream_unavailable", "YouTube is temporarily unavailable, try again later"
	case errors.Is(err, vibecheck.ErrConfiguration):
		return http.StatusInternalServerError, "configuration_error", "The service is misconfigured"
	default:
		return http.StatusInternalServerError, "internal_error", "Failed to analyze video"
	}
}
