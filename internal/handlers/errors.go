package handlers

import (
	"net/http"

	"github.com/cockroachdb/errors"
	"github.com/gin-gonic/gin"

	"scrape-portal/internal/jobs"
	"scrape-portal/internal/logger"
	"scrape-portal/internal/results"
	"scrape-portal/internal/storage"
)

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.IsAny(err, jobs.ErrNoKeywords, jobs.ErrUnknownState, results.ErrInvalidName):
		return http.StatusBadRequest
	case errors.IsAny(err, results.ErrNotFound, storage.ErrNotFound):
		return http.StatusNotFound
	case errors.IsAny(err, jobs.ErrSubmission, jobs.ErrListing, results.ErrListing,
		storage.ErrAccessDenied, storage.ErrBucketNotFound, storage.ErrUnavailable):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes {"error", "detail", "hint"} for err. message is the
// short text shown to the user.
func respondError(c *gin.Context, message string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		logger.Logger.Errorw(message, "path", c.Request.URL.Path, "error", err)
	}
	_ = c.Error(err)

	body := gin.H{
		"error":  message,
		"detail": err.Error(),
	}
	if hint := errors.FlattenHints(err); hint != "" {
		body["hint"] = hint
	}
	c.JSON(status, body)
}
