package rate

import "errors"

var (
	// ErrRateLimited is returned when an identity has used its window capacity.
	ErrRateLimited = errors.New("rate limited")
	// ErrThrottled is returned when the shared issuance bucket is empty.
	ErrThrottled = errors.New("throttled")
)
