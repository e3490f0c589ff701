// Package linereverse is an LRCP application that answers every line of a session's
// inbound stream with the same line reversed.
package linereverse

import (
	"bytes"
	"slices"
	"sync"

	"github.com/arloliu/go-lrcp/logger"
	"github.com/arloliu/go-lrcp/lrcp"
	"github.com/puzpuzpuz/xsync/v3"
)

// lineBuffer holds the not yet terminated tail of a session's inbound stream.
type lineBuffer struct {
	mu  sync.Mutex
	buf []byte
}

// Reverser implements lrcp.StreamHandler.
type Reverser struct {
	buffers *xsync.MapOf[uint64, *lineBuffer]
	logger  logger.Logger
}

var _ lrcp.StreamHandler = (*Reverser)(nil)

// New creates a Reverser logging through l.
func New(l logger.Logger) *Reverser {
	if l == nil {
		l = logger.GetLogger()
	}

	return &Reverser{
		buffers: xsync.NewMapOf[uint64, *lineBuffer](),
		logger:  l,
	}
}

// Deliver buffers data and queues one reversed line per completed input line.
func (r *Reverser) Deliver(s *lrcp.Session, data []byte) {
	lb, _ := r.buffers.LoadOrCompute(s.ID(), func() *lineBuffer { return &lineBuffer{} })

	lb.mu.Lock()
	lb.buf = append(lb.buf, data...)
	var out []byte
	for {
		idx := bytes.IndexByte(lb.buf, '\n')
		if idx < 0 {
			break
		}
		out = append(out, Reverse(lb.buf[:idx])...)
		out = append(out, '\n')
		lb.buf = lb.buf[idx+1:]
	}
	lb.mu.Unlock()

	r.queue(s, out)
}

// EndOfStream queues the reversed trailing fragment, without a newline.
func (r *Reverser) EndOfStream(s *lrcp.Session) {
	lb, ok := r.buffers.Load(s.ID())
	if !ok {
		return
	}

	lb.mu.Lock()
	out := Reverse(lb.buf)
	lb.buf = nil
	lb.mu.Unlock()

	r.queue(s, out)
}

// Closed releases the session's buffer.
func (r *Reverser) Closed(s *lrcp.Session) {
	r.buffers.Delete(s.ID())
}

// Buffered returns the number of bytes waiting for a newline in session id.
func (r *Reverser) Buffered(id uint64) int {
	lb, ok := r.buffers.Load(id)
	if !ok {
		return 0
	}

	lb.mu.Lock()
	defer lb.mu.Unlock()

	return len(lb.buf)
}

func (r *Reverser) queue(s *lrcp.Session, out []byte) {
	if len(out) == 0 {
		return
	}
	if err := s.QueueOutbound(out); err != nil {
		r.logger.Warn("queue reversed line failed", "session", s.ID(), "error", err)
	}
}

// Reverse returns a reversed copy of line.
func Reverse(line []byte) []byte {
	out := slices.Clone(line)
	slices.Reverse(out)

	return out
}
