// internal/websocket/errors.go
package websocket

import "errors"

var (
	ErrQueueFull      = errors.New("broadcast queue is full")
	ErrUnknownChannel = errors.New("unknown channel")
)
