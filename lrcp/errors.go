package lrcp

import "errors"

var (
	// ErrInvalidFrame indicates a malformed datagram. Such datagrams are dropped without reply.
	ErrInvalidFrame = errors.New("invalid frame")

	// ErrInvalidEscape indicates a DATA payload with an unescaped '/' or a dangling '\'.
	ErrInvalidEscape = errors.New("invalid escape sequence")

	// ErrFrameTooLarge indicates an inbound datagram longer than the configured maximum datagram size.
	ErrFrameTooLarge = errors.New("frame exceeds maximum datagram size")
)

var (
	// ErrProtocolViolation indicates that a peer acknowledged bytes that were never sent.
	// The affected session is force-closed.
	ErrProtocolViolation = errors.New("protocol violation")

	// ErrSessionClosed indicates that the session has been removed from the registry.
	ErrSessionClosed = errors.New("session closed")
)

var (
	// ErrServerConfigNil indicates that a nil ServerConfig was provided.
	ErrServerConfigNil = errors.New("server config is nil")

	// ErrHandlerNil indicates that a nil StreamHandler was provided.
	ErrHandlerNil = errors.New("stream handler is nil")

	// ErrServerClosed indicates that the server has been shut down.
	ErrServerClosed = errors.New("server closed")

	// ErrAlreadyServing indicates that Serve was called on a server that is already running.
	ErrAlreadyServing = errors.New("server already serving")
)
