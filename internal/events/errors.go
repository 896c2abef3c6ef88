package events

import "errors"

var (
	// ErrBusClosed is returned when operating on a closed bus
	ErrBusClosed = errors.New("event bus is closed")
)
