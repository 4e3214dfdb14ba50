package feed

import "errors"

var (
	ErrNotFound        = errors.New("event not found")
	ErrRateLimited     = errors.New("rate limited by feed API")
	ErrFeedUnavailable = errors.New("feed API unavailable")
)
