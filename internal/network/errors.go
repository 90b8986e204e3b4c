package network

import (
	"errors"
	"fmt"
)

var (
	ErrShuttingDown     = errors.New("scraper is shutting down")
	ErrRobotsDisallowed = errors.New("blocked by robots.txt")
)

// StatusError reports a response status the retry policy treats as a failure.
type StatusError struct {
	Code int
	URL  string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("http %d: %s", e.Code, e.URL)
}

// RateLimited reports 429 and 503 responses.
func (e *StatusError) RateLimited() bool {
	return e.Code == 429 || e.Code == 503
}

// Retryable reports whether another attempt could succeed.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrShuttingDown) || errors.Is(err, ErrRobotsDisallowed) {
		return false
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Code != 404 && (statusErr.Code >= 500 || statusErr.RateLimited())
	}
	return true
}
