package lrcp

// SessionState represents the lifecycle stage of an LRCP session.
type SessionState uint32

// LRCP session states.
const (
	// OpenState indicates that the session accepts DATA and exchanges acknowledgments.
	OpenState SessionState = iota
	// ClosingState indicates that the peer requested close while outbound data is still unacknowledged.
	// Inbound DATA is ignored; retransmission continues until everything is acknowledged.
	ClosingState
	// ClosedState is terminal; the session has been removed from the registry.
	ClosedState
)

// IsOpen returns if the state is OpenState.
func (st SessionState) IsOpen() bool { return st == OpenState }

// IsClosing returns if the state is ClosingState.
func (st SessionState) IsClosing() bool { return st == ClosingState }

// IsClosed returns if the state is ClosedState.
func (st SessionState) IsClosed() bool { return st == ClosedState }

// String returns string representation of the state.
func (st SessionState) String() string {
	switch st {
	case OpenState:
		return "open"
	case ClosingState:
		return "closing"
	case ClosedState:
		return "closed"
	default:
		return "unknown"
	}
}
