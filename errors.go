package linktap

import "errors"

var (
	ErrMissingAccessToken = errors.New("missing access token")
	// ErrFailedResolvingURL aborts a stream-open attempt. The next liveness
	// check retries it.
	ErrFailedResolvingURL = errors.New("failed resolving LinkTap streaming URL")
	ErrDecodePayload      = errors.New("failed decoding payload")
	ErrUpdateRejected     = errors.New("update rejected by LinkTap API")
)
