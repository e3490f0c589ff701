// Package lrcp implements LRCP, a reliable, ordered, session-oriented byte-stream protocol
// carried over an unreliable datagram channel such as UDP. Datagrams may be lost, duplicated
// or reordered, but are never corrupted.
//
// Wire Format:
//
// Every frame is ASCII text that starts and ends with '/':
//
//	/connect/SESSION/
//	/data/SESSION/POS/ESCAPED-DATA/
//	/ack/SESSION/LENGTH/
//	/close/SESSION/
//
// SESSION, POS and LENGTH are non-negative decimal integers. In DATA payloads '\' is sent as
// `\\` and '/' as `\/`. Malformed datagrams are dropped silently.
//
// Sessions:
//   - A CONNECT for an unseen id opens a session; a repeated CONNECT is acknowledged again
//     without touching the session.
//   - DATA at the current contiguous length is delivered to the StreamHandler and acknowledged;
//     DATA at any other position is discarded and the contiguous length is acknowledged instead.
//   - Outbound bytes queued with Session.QueueOutbound are split into bounded DATA frames, sent
//     immediately and resent at a fixed interval until acknowledged.
//   - An ACK beyond the bytes ever sent is a protocol violation and force-closes the session.
//   - A CLOSE closes the session at once if everything sent was acknowledged. Otherwise the
//     session enters ClosingState, the handler flushes its final input through EndOfStream, and
//     the session closes when the last outbound byte is acknowledged.
//
// Usage Example:
//
//	cfg, err := lrcp.NewServerConfig(lrcp.WithRetransmitInterval(3 * time.Second))
//	// ... handle error ...
//	srv, err := lrcp.NewServer(ctx, cfg, lrcp.StreamHandlerFuncs{
//	    DeliverFunc: func(s *lrcp.Session, data []byte) {
//	        _ = s.QueueOutbound(data) // echo
//	    },
//	})
//	// ... handle error ...
//	if err := srv.ListenAndServe(":4567"); err != nil {
//	    // ... handle error ...
//	}
//	defer srv.Close()
package lrcp
