// Package github provides a narrow wrapper around the GitHub API for the
// review orchestrator: pull request and comment access, comment posting with
// oversized-body splitting, and webhook signature verification.
package github

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/google/go-github/v73/github"
)

// ErrorKind partitions API failures into the classes the orchestrator
// reacts to differently: not-found cycles end, transient cycles retry on the
// next trigger.
type ErrorKind int

const (
	// KindTransient covers network failures, 5xx responses, and anything
	// else worth retrying on a later trigger.
	KindTransient ErrorKind = iota
	// KindNotFound means the PR, comment, or repository no longer exists.
	KindNotFound
	// KindRateLimited means the API call budget is exhausted.
	KindRateLimited
)

// APIError wraps a GitHub API failure with its classification.
type APIError struct {
	Kind ErrorKind
	Op   string
	Err  error
}

func (e *APIError) Error() string {
	return fmt.Sprintf("github: %s: %v", e.Op, e.Err)
}

func (e *APIError) Unwrap() error { return e.Err }

// wrapErr classifies err from a go-github call. A nil err returns nil.
func wrapErr(op string, err error) error {
	if err == nil {
		return nil
	}

	kind := KindTransient

	var rateErr *github.RateLimitError
	var abuseErr *github.AbuseRateLimitError
	var respErr *github.ErrorResponse

	switch {
	case errors.As(err, &rateErr), errors.As(err, &abuseErr):
		kind = KindRateLimited
	case errors.As(err, &respErr):
		if respErr.Response != nil && respErr.Response.StatusCode == http.StatusNotFound {
			kind = KindNotFound
		}
	}

	return &APIError{Kind: kind, Op: op, Err: err}
}

// IsNotFound reports whether err is a not-found API error.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Kind == KindNotFound
}

// IsRateLimited reports whether err is a rate-limit API error.
func IsRateLimited(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Kind == KindRateLimited
}
