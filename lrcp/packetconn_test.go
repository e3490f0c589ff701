package lrcp

import (
	"net"
	"sync"
	"time"
)

var (
	testPeerAddr  = &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 40000}
	testLocalAddr = &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 4567}
)

type timeoutError struct{}

func (timeoutError) Error() string   { return "i/o timeout" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return true }

type inboundDatagram struct {
	data []byte
	addr net.Addr
}

// fakePacketConn is an in-memory net.PacketConn recording every written datagram.
type fakePacketConn struct {
	mu       sync.Mutex
	sent     []string
	sentTo   []net.Addr
	deadline time.Time
	writeErr error

	inbound   chan inboundDatagram
	closed    chan struct{}
	closeOnce sync.Once
}

var _ net.PacketConn = (*fakePacketConn)(nil)

func newFakePacketConn() *fakePacketConn {
	return &fakePacketConn{
		inbound: make(chan inboundDatagram, 64),
		closed:  make(chan struct{}),
	}
}

func (c *fakePacketConn) inject(data string, addr net.Addr) {
	c.inbound <- inboundDatagram{data: []byte(data), addr: addr}
}

func (c *fakePacketConn) ReadFrom(p []byte) (int, net.Addr, error) {
	c.mu.Lock()
	deadline := c.deadline
	c.mu.Unlock()

	var timeout <-chan time.Time
	if !deadline.IsZero() {
		timer := time.NewTimer(time.Until(deadline))
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case d := <-c.inbound:
		return copy(p, d.data), d.addr, nil
	case <-c.closed:
		return 0, nil, net.ErrClosed
	case <-timeout:
		return 0, nil, timeoutError{}
	}
}

func (c *fakePacketConn) WriteTo(p []byte, addr net.Addr) (int, error) {
	select {
	case <-c.closed:
		return 0, net.ErrClosed
	default:
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.writeErr != nil {
		return 0, c.writeErr
	}
	c.sent = append(c.sent, string(p))
	c.sentTo = append(c.sentTo, addr)

	return len(p), nil
}

func (c *fakePacketConn) Close() error {
	c.closeOnce.Do(func() { close(c.closed) })
	return nil
}

func (c *fakePacketConn) LocalAddr() net.Addr { return testLocalAddr }

func (c *fakePacketConn) SetDeadline(t time.Time) error { return c.SetReadDeadline(t) }

func (c *fakePacketConn) SetReadDeadline(t time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deadline = t

	return nil
}

func (c *fakePacketConn) SetWriteDeadline(time.Time) error { return nil }

// takeSent returns and clears the recorded datagrams.
func (c *fakePacketConn) takeSent() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	sent := c.sent
	c.sent = nil
	c.sentTo = nil

	return sent
}

func (c *fakePacketConn) countSent(datagram string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for _, s := range c.sent {
		if s == datagram {
			n++
		}
	}

	return n
}

func (c *fakePacketConn) setWriteErr(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.writeErr = err
}
