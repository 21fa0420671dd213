package cache

import "errors"

var (
	// ErrInvalidConfig wraps every configuration validation failure.
	ErrInvalidConfig = errors.New("blockcache: invalid config")
	// ErrNilPayload is returned by Put for a nil payload.
	ErrNilPayload = errors.New("blockcache: nil payload")
	// ErrInvalidSize is returned by Put when a payload reports a negative or
	// overflowing heap size.
	ErrInvalidSize = errors.New("blockcache: invalid payload size")
	// ErrClosed is returned by Put and GetOrLoad after Close.
	ErrClosed = errors.New("blockcache: closed")
	// ErrNoLoader is returned by GetOrLoad when no Loader was configured.
	ErrNoLoader = errors.New("blockcache: no Loader provided")
)
