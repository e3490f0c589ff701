package lrcp

import (
	"net"
)

// handleDatagram decodes one datagram and applies it to the session it names.
// Malformed datagrams are dropped without reply.
func (s *Server) handleDatagram(b []byte, addr net.Addr) {
	s.metrics.incDatagramRecvCount()

	if len(b) > s.cfg.MaxDatagramSize() {
		s.metrics.incDecodeErrCount()
		s.logger.Debug("drop oversized datagram", "peer", addr, "size", len(b), "error", ErrFrameTooLarge)

		return
	}

	frame, err := DecodeFrame(b)
	if err != nil {
		s.metrics.incDecodeErrCount()
		s.logger.Debug("drop malformed datagram", "peer", addr, "error", err)

		return
	}

	s.logger.Debug("received frame", "peer", addr, "frame", frame)

	switch frame.Type {
	case ConnectFrame:
		s.onConnect(frame, addr)
	case DataFrame:
		s.onData(frame, addr)
	case AckFrame:
		s.onAck(frame, addr)
	case CloseFrame:
		s.onClose(frame, addr)
	}
}

// onConnect creates the session on first sight and (re)acknowledges it.
// A repeated CONNECT never resets an open session.
func (s *Server) onConnect(frame Frame, addr net.Addr) {
	id := frame.Session
	sess, created := s.registry.LoadOrCreate(id, func() *Session {
		return newSession(id, s.genID.Add(1), addr, s, s.cfg.MaxPayloadSize(), s.cfg.MaxDatagramSize())
	})

	if created {
		s.metrics.incSessionGauge()
		s.logger.Info("session opened", "session", id, "peer", addr)
		s.startRetransmit(sess)
	}

	s.reply(NewAckFrame(id, 0), addr)
}

// onData accepts in-order payloads, discards everything else, and always acknowledges
// the contiguous length while the session is open.
func (s *Server) onData(frame Frame, addr net.Addr) {
	sess, ok := s.registry.Get(frame.Session)
	if !ok {
		s.logger.Debug("ignore data for unknown session", "session", frame.Session, "peer", addr)
		return
	}

	ack, fresh, accepted := sess.receiveData(frame.Pos, frame.Data)
	if !accepted {
		s.logger.Debug("ignore data for closing session", "session", frame.Session)
		return
	}

	if len(fresh) > 0 {
		s.metrics.addBytesDelivered(len(fresh))
		s.callHandler("Deliver", sess, func() { s.handler.Deliver(sess, fresh) })
	}

	s.reply(NewAckFrame(frame.Session, ack), addr)
}

func (s *Server) onAck(frame Frame, addr net.Addr) {
	sess, ok := s.registry.Get(frame.Session)
	if !ok {
		s.logger.Debug("ignore ack for unknown session", "session", frame.Session, "peer", addr)
		return
	}

	switch sess.receiveAck(frame.Length) {
	case ackStale, ackAdvanced:
	case ackCompleted:
		s.logger.Info("session closed", "session", sess.id, "reason", "outbound data acknowledged")
		s.closeSession(sess, addr)
	case ackViolation:
		s.metrics.incProtocolViolationCount()
		s.logger.Warn("force close session", "session", sess.id, "peer", addr,
			"ack", frame.Length, "sent", sess.SentBytes(), "error", ErrProtocolViolation)
		s.closeSession(sess, addr)
	}
}

func (s *Server) onClose(frame Frame, addr net.Addr) {
	sess, ok := s.registry.Get(frame.Session)
	if !ok {
		s.logger.Debug("close unknown session", "session", frame.Session, "peer", addr)
		s.reply(NewCloseFrame(frame.Session), addr)

		return
	}

	switch sess.receiveClose() {
	case closeNow:
		s.logger.Info("session closed", "session", sess.id, "reason", "peer closed")
		s.closeSession(sess, addr)
	case closeDeferred:
		s.logger.Info("session closing", "session", sess.id,
			"outbound_ack", sess.OutboundAck(), "sent", sess.SentBytes())
		s.callHandler("EndOfStream", sess, func() { s.handler.EndOfStream(sess) })
	case closeWaiting:
	}
}

// closeSession removes sess and sends CLOSE to addr.
func (s *Server) closeSession(sess *Session, addr net.Addr) {
	s.removeSession(sess)
	s.reply(NewCloseFrame(sess.id), addr)
}

// removeSession takes sess out of the registry, marks it closed and notifies the handler.
// It is a no-op if sess was already removed.
func (s *Server) removeSession(sess *Session) {
	if !s.registry.Remove(sess) {
		return
	}

	sess.finish()
	s.metrics.decSessionGauge()
	s.callHandler("Closed", sess, func() { s.handler.Closed(sess) })
}

func (s *Server) reply(frame Frame, addr net.Addr) {
	s.logger.Debug("send frame", "peer", addr, "frame", frame)
	s.sendDatagram(frame.Encode(), addr)
}

// callHandler invokes a StreamHandler callback, keeping the receive loop alive if it panics.
func (s *Server) callHandler(name string, sess *Session, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("panic in stream handler", "callback", name, "session", sess.id, "panic", r)
		}
	}()

	fn()
}
