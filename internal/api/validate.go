// ABOUTME: Request validation helpers and input limits
// ABOUTME: Applied at the API boundary before any store call

package api

import (
	"net/http"
	"strconv"
)

const (
	// maxInputLength caps user-supplied string fields.
	maxInputLength = 1000

	// Pagination bounds for post listing.
	defaultPostsLimit = 50
	maxPostsLimit     = 1000
)

func validateID(id string) error {
	if id == "" {
		return validationError("id is required")
	}
	if len(id) > maxInputLength {
		return validationError("id exceeds maximum length")
	}
	return nil
}

func validateContent(content string) error {
	if content == "" {
		return validationError("content is required")
	}
	if len(content) > maxInputLength {
		return validationError("content exceeds maximum length")
	}
	return nil
}

// parseListParams reads limit and offset query parameters, applying the
// default limit when absent and rejecting out-of-range values.
func parseListParams(r *http.Request) (limit, offset int, err error) {
	limit = defaultPostsLimit

	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit <= 0 || limit > maxPostsLimit {
			return 0, 0, validationError("limit must be between 1 and 1000")
		}
	}
	if raw := r.URL.Query().Get("offset"); raw != "" {
		offset, err = strconv.Atoi(raw)
		if err != nil || offset < 0 {
			return 0, 0, validationError("offset must be non-negative")
		}
	}
	return limit, offset, nil
}
