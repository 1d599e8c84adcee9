package drive

import (
	"errors"
	"net/http"

	"google.golang.org/api/googleapi"

	"askdoc/internal/domain"
)

// statusCode returns the HTTP status of a Google API error, or 0.
func statusCode(err error) int {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return gerr.Code
	}
	return 0
}

// IsRateLimited reports whether err is a 429 from the Drive API.
func IsRateLimited(err error) bool {
	return statusCode(err) == http.StatusTooManyRequests
}

// wrapError converts a Drive API failure into a ContentUnavailableError with
// a reason derived from the status code.
func wrapError(documentID string, err error) error {
	if err == nil {
		return nil
	}
	reason := "drive request failed"
	switch statusCode(err) {
	case http.StatusUnauthorized:
		reason = "unauthorised (invalid credentials)"
	case http.StatusForbidden:
		reason = "forbidden (insufficient permissions)"
	case http.StatusNotFound:
		reason = "not found"
	case http.StatusTooManyRequests:
		reason = "rate limit exceeded"
	}
	return domain.NewContentUnavailableError(documentID, reason, err)
}
