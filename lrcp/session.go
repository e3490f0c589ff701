package lrcp

import (
	"bytes"
	"net"
	"sync"
	"sync/atomic"

	"github.com/eapache/queue"
)

// datagramSender writes one encoded frame to the channel.
type datagramSender interface {
	sendDatagram(b []byte, addr net.Addr)
}

// segment is an unacknowledged outbound DATA frame, encoded once at queue time and
// resent verbatim by the retransmission timer.
type segment struct {
	pos  uint64
	size int
	wire []byte
}

func (seg segment) end() uint64 { return seg.pos + uint64(seg.size) } //nolint:gosec

// Session is one reliable byte-stream conversation with a peer.
//
// All mutable state is guarded by mu. The receive loop, the retransmission timer and
// application goroutines calling QueueOutbound may access a session concurrently.
type Session struct {
	id   uint64
	gen  uint64
	addr net.Addr

	out         datagramSender
	maxPayload  int
	maxDatagram int

	mu             sync.Mutex
	state          SessionState
	deliveredBytes uint64
	sentBytes      uint64
	outboundAck    uint64
	pending        *queue.Queue // of segment, ordered by pos

	// closed mirrors state == ClosedState for lock-free liveness checks.
	closed atomic.Bool
}

func newSession(id, gen uint64, addr net.Addr, out datagramSender, maxPayload, maxDatagram int) *Session {
	return &Session{
		id:          id,
		gen:         gen,
		addr:        addr,
		out:         out,
		maxPayload:  maxPayload,
		maxDatagram: maxDatagram,
		state:       OpenState,
		pending:     queue.New(),
	}
}

// ID returns the session id.
func (s *Session) ID() uint64 { return s.id }

// RemoteAddr returns the peer address recorded when the session was created.
func (s *Session) RemoteAddr() net.Addr { return s.addr }

// State returns the current session state.
func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.state
}

// ShouldClose reports whether the peer has requested close.
func (s *Session) ShouldClose() bool {
	return s.State() != OpenState
}

// IsClosed reports whether the session has been removed.
func (s *Session) IsClosed() bool { return s.closed.Load() }

// DeliveredBytes returns the length of the contiguous inbound stream accepted so far.
func (s *Session) DeliveredBytes() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.deliveredBytes
}

// SentBytes returns the total number of bytes queued for outbound transmission.
func (s *Session) SentBytes() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.sentBytes
}

// OutboundAck returns the outbound offset confirmed by the peer.
func (s *Session) OutboundAck() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.outboundAck
}

// PendingCount returns the number of unacknowledged outbound segments.
func (s *Session) PendingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.pending.Length()
}

// QueueOutbound appends data to the session's outbound stream.
//
// The bytes are copied, assigned positions starting at the current sent length, split into
// DATA frames bounded by the server's payload and datagram limits, and transmitted once
// immediately. Frames stay pending and are retransmitted until acknowledged.
//
// Returns ErrSessionClosed if the session has already been removed.
func (s *Session) QueueOutbound(data []byte) error {
	if len(data) == 0 {
		return nil
	}

	s.mu.Lock()
	if s.state.IsClosed() {
		s.mu.Unlock()
		return ErrSessionClosed
	}

	buf := bytes.Clone(data)
	frames := SplitData(s.id, s.sentBytes, buf, s.maxPayload, s.maxDatagram)
	wires := make([][]byte, 0, len(frames))
	for _, f := range frames {
		seg := segment{pos: f.Pos, size: len(f.Data), wire: f.Encode()}
		s.pending.Add(seg)
		wires = append(wires, seg.wire)
	}
	s.sentBytes += uint64(len(buf))
	addr := s.addr
	s.mu.Unlock()

	// wire slices are never modified after encoding, so they can be sent without the lock
	for _, w := range wires {
		s.out.sendDatagram(w, addr)
	}

	return nil
}

// Write implements io.Writer on top of QueueOutbound.
func (s *Session) Write(p []byte) (int, error) {
	if err := s.QueueOutbound(p); err != nil {
		return 0, err
	}

	return len(p), nil
}

// receiveData applies an inbound DATA frame.
//
// accepted is false when the frame must be ignored without reply. Otherwise ack is the
// length to acknowledge and fresh holds the bytes that became contiguous, if any.
func (s *Session) receiveData(pos uint64, data []byte) (ack uint64, fresh []byte, accepted bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.state.IsOpen() {
		return 0, nil, false
	}

	if pos == s.deliveredBytes && len(data) > 0 {
		s.deliveredBytes += uint64(len(data))
		fresh = data
	}

	return s.deliveredBytes, fresh, true
}

type ackOutcome int

const (
	// ackStale: the acknowledgment does not advance outboundAck.
	ackStale ackOutcome = iota
	// ackAdvanced: outboundAck moved forward.
	ackAdvanced
	// ackCompleted: outboundAck moved forward and the deferred close can complete.
	ackCompleted
	// ackViolation: the peer acknowledged bytes never sent.
	ackViolation
)

// receiveAck applies an inbound ACK frame.
func (s *Session) receiveAck(length uint64) ackOutcome {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.IsClosed() || length <= s.outboundAck {
		return ackStale
	}
	if length > s.sentBytes {
		return ackViolation
	}

	s.outboundAck = length
	for s.pending.Length() > 0 && s.pending.Peek().(segment).end() <= length {
		s.pending.Remove()
	}

	if s.state.IsClosing() && s.settled() {
		return ackCompleted
	}

	return ackAdvanced
}

type closeOutcome int

const (
	// closeNow: all outbound data is acknowledged; reply CLOSE and remove the session.
	closeNow closeOutcome = iota
	// closeDeferred: the session just entered ClosingState; flush the inbound stream.
	closeDeferred
	// closeWaiting: the session was already closing and still has unacknowledged data.
	closeWaiting
)

// receiveClose applies an inbound CLOSE frame.
func (s *Session) receiveClose() closeOutcome {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.settled() {
		return closeNow
	}
	if s.state.IsClosing() {
		return closeWaiting
	}
	s.state = ClosingState

	return closeDeferred
}

// settled reports whether every queued outbound byte has been acknowledged.
// The caller must hold mu.
func (s *Session) settled() bool {
	return s.outboundAck == s.sentBytes && s.pending.Length() == 0
}

// finish moves the session to ClosedState and releases pending segments.
func (s *Session) finish() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state = ClosedState
	s.pending = queue.New()
	s.closed.Store(true)
}

// pendingWires returns the encoded pending segments and the peer address, or ok=false
// once the session is closed.
func (s *Session) pendingWires() (wires [][]byte, addr net.Addr, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.IsClosed() {
		return nil, nil, false
	}

	wires = make([][]byte, s.pending.Length())
	for i := range wires {
		wires[i] = s.pending.Get(i).(segment).wire
	}

	return wires, s.addr, true
}
