package lrcp

// StreamHandler is the application side of a session.
//
// All callbacks run on the server's receive loop, one at a time, after the session lock
// has been released; they may call Session.QueueOutbound directly. A slow handler delays
// every session, so long work should be handed off to another goroutine.
type StreamHandler interface {
	// Deliver receives bytes that just became contiguous in the session's inbound stream.
	// Each byte offset is delivered at most once, regardless of duplicated datagrams.
	Deliver(s *Session, data []byte)

	// EndOfStream is called once when the peer closes the session while outbound data is
	// still unacknowledged. The handler should flush any buffered partial input as if it
	// were terminated; data it queues is retransmitted until acknowledged.
	EndOfStream(s *Session)

	// Closed is called after the session has been removed from the registry.
	Closed(s *Session)
}

// StreamHandlerFuncs adapts plain functions to StreamHandler. Nil fields are no-ops.
type StreamHandlerFuncs struct {
	DeliverFunc     func(s *Session, data []byte)
	EndOfStreamFunc func(s *Session)
	ClosedFunc      func(s *Session)
}

var _ StreamHandler = StreamHandlerFuncs{}

func (h StreamHandlerFuncs) Deliver(s *Session, data []byte) {
	if h.DeliverFunc != nil {
		h.DeliverFunc(s, data)
	}
}

func (h StreamHandlerFuncs) EndOfStream(s *Session) {
	if h.EndOfStreamFunc != nil {
		h.EndOfStreamFunc(s)
	}
}

func (h StreamHandlerFuncs) Closed(s *Session) {
	if h.ClosedFunc != nil {
		h.ClosedFunc(s)
	}
}
