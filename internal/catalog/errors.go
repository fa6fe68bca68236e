package catalog

import (
	"errors"
	"strings"
)

// catalogUnavailableError signals that the catalog could not be fetched or decoded.
type catalogUnavailableError struct {
	url string
	err error
}

func (e catalogUnavailableError) Error() string {
	if e.err == nil {
		return "catalog unavailable: " + e.url
	}
	return "catalog unavailable: " + e.url + ": " + e.err.Error()
}

func (e catalogUnavailableError) Unwrap() error { return e.err }

// ErrCatalogUnavailable wraps cause as a catalog availability failure.
func ErrCatalogUnavailable(url string, cause error) error {
	return catalogUnavailableError{url: url, err: cause}
}

// IsCatalogUnavailable reports whether err (or anything it wraps) is a catalog availability failure.
func IsCatalogUnavailable(err error) bool {
	var e catalogUnavailableError
	return errors.As(err, &e)
}

type modelNotFoundError struct {
	id          string
	suggestions []string
}

func (e modelNotFoundError) Error() string {
	msg := "model not found: " + e.id
	if len(e.suggestions) > 0 {
		msg += " (did you mean: " + strings.Join(e.suggestions, ", ") + "?)"
	}
	return msg
}

// ErrModelNotFound returns an error when a requested model id is not present in the catalog.
func ErrModelNotFound(id string, suggestions ...string) error {
	return modelNotFoundError{id: id, suggestions: suggestions}
}

// IsModelNotFound reports whether the error indicates a missing model id.
func IsModelNotFound(err error) bool {
	var e modelNotFoundError
	return errors.As(err, &e)
}

// Suggestions returns the near-miss names attached to a model-not-found error.
func Suggestions(err error) []string {
	var e modelNotFoundError
	if errors.As(err, &e) {
		return append([]string(nil), e.suggestions...)
	}
	return nil
}
