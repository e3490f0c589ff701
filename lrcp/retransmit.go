package lrcp

import "fmt"

func retransmitTaskName(sess *Session) string {
	return fmt.Sprintf("retransmit-%d-%d", sess.id, sess.gen)
}

// startRetransmit schedules the periodic resend of sess's pending segments.
func (s *Server) startRetransmit(sess *Session) {
	name := retransmitTaskName(sess)
	err := s.taskMgr.StartInterval(name, func() bool {
		return s.retransmit(sess)
	}, s.cfg.RetransmitInterval())
	if err != nil {
		s.logger.Error("start retransmission failed", "session", sess.id, "error", err)
	}
}

// retransmit resends every pending segment of sess to its peer.
//
// It returns false once sess is no longer the live registry entry for its id, which
// terminates the interval task.
func (s *Server) retransmit(sess *Session) bool {
	if sess.IsClosed() || !s.registry.Contains(sess) {
		return false
	}

	wires, addr, ok := sess.pendingWires()
	if !ok {
		return false
	}

	if len(wires) > 0 {
		s.logger.Debug("retransmit", "session", sess.id, "segments", len(wires))
	}
	for _, w := range wires {
		s.metrics.incRetransmitCount()
		s.sendDatagram(w, addr)
	}

	return true
}
