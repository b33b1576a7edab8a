package sender

import "errors"

var (
	// ErrUnhealthy is returned when the bot never answered its health check.
	ErrUnhealthy = errors.New("bot is not healthy")

	// ErrRejected is returned when the bot answered a delivery with a non-2xx status.
	ErrRejected = errors.New("delivery rejected")
)
