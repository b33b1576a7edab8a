package events

import "errors"

// Sentinel kinds for normalization. Malformed and unsupported deliveries are
// acknowledged, never retried.
var (
	ErrMalformed   = errors.New("malformed payload")
	ErrUnsupported = errors.New("unsupported event")
	ErrSignature   = errors.New("invalid signature")
)
