package lrcp

import (
	"net"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureSender struct {
	mu   sync.Mutex
	sent []string
}

func (c *captureSender) sendDatagram(b []byte, _ net.Addr) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, string(b))
}

func newTestSession(id uint64) (*Session, *captureSender) {
	out := &captureSender{}
	return newSession(id, 1, testPeerAddr, out, DefaultMaxPayloadSize, DefaultMaxDatagramSize), out
}

func TestSessionState_String(t *testing.T) {
	assert.Equal(t, "open", OpenState.String())
	assert.Equal(t, "closing", ClosingState.String())
	assert.Equal(t, "closed", ClosedState.String())
	assert.Equal(t, "unknown", SessionState(99).String())

	assert.True(t, OpenState.IsOpen())
	assert.True(t, ClosingState.IsClosing())
	assert.True(t, ClosedState.IsClosed())
}

func TestSession_ReceiveData(t *testing.T) {
	sess, _ := newTestSession(1)

	ack, fresh, ok := sess.receiveData(0, []byte("hello\n"))
	require.True(t, ok)
	require.Equal(t, uint64(6), ack)
	require.Equal(t, []byte("hello\n"), fresh)

	ack, fresh, ok = sess.receiveData(0, []byte("hello\n"))
	require.True(t, ok)
	require.Equal(t, uint64(6), ack)
	require.Nil(t, fresh)

	ack, fresh, ok = sess.receiveData(50, []byte("abc"))
	require.True(t, ok)
	require.Equal(t, uint64(6), ack)
	require.Nil(t, fresh)

	ack, fresh, ok = sess.receiveData(6, nil)
	require.True(t, ok)
	require.Equal(t, uint64(6), ack)
	require.Nil(t, fresh)
}

func TestSession_QueueOutbound(t *testing.T) {
	sess, out := newTestSession(4)

	src := []byte("abc")
	n, err := sess.Write(src)
	require.NoError(t, err)
	require.Equal(t, 3, n)
	require.NoError(t, sess.QueueOutbound(nil))

	// later changes to the caller's buffer do not affect pending segments
	copy(src, "xyz")
	wires, addr, ok := sess.pendingWires()
	require.True(t, ok)
	require.Equal(t, testPeerAddr, addr)
	require.Equal(t, [][]byte{[]byte("/data/4/0/abc/")}, wires)
	require.Equal(t, []string{"/data/4/0/abc/"}, out.sent)

	require.NoError(t, sess.QueueOutbound([]byte("de")))
	require.Equal(t, uint64(5), sess.SentBytes())
	require.Equal(t, "/data/4/3/de/", out.sent[1])
}

func TestSession_ReceiveAck(t *testing.T) {
	sess, _ := newTestSession(1)
	require.NoError(t, sess.QueueOutbound([]byte("abcdef")))

	require.Equal(t, ackStale, sess.receiveAck(0))
	require.Equal(t, ackAdvanced, sess.receiveAck(4))
	require.Equal(t, 1, sess.PendingCount())
	require.Equal(t, ackStale, sess.receiveAck(4))
	require.Equal(t, ackViolation, sess.receiveAck(7))
	require.Equal(t, uint64(4), sess.OutboundAck())
	require.Equal(t, ackAdvanced, sess.receiveAck(6))
	require.Equal(t, 0, sess.PendingCount())
}

func TestSession_AckReleasesAcknowledgedPrefix(t *testing.T) {
	out := &captureSender{}
	sess := newSession(1, 1, testPeerAddr, out, 4, DefaultMaxDatagramSize)
	require.NoError(t, sess.QueueOutbound([]byte("aaaabbbbcc")))
	require.Equal(t, 3, sess.PendingCount())

	require.Equal(t, ackAdvanced, sess.receiveAck(5))
	require.Equal(t, 2, sess.PendingCount())

	wires, _, ok := sess.pendingWires()
	require.True(t, ok)
	require.Equal(t, []string{"/data/1/4/bbbb/", "/data/1/8/cc/"}, []string{string(wires[0]), string(wires[1])})

	require.Equal(t, ackAdvanced, sess.receiveAck(8))
	require.Equal(t, 1, sess.PendingCount())
	require.Equal(t, ackAdvanced, sess.receiveAck(10))
	require.Equal(t, 0, sess.PendingCount())
}

func TestSession_CloseOutcomes(t *testing.T) {
	settled, _ := newTestSession(1)
	require.Equal(t, closeNow, settled.receiveClose())

	busy, _ := newTestSession(2)
	require.NoError(t, busy.QueueOutbound([]byte("abc")))
	require.Equal(t, closeDeferred, busy.receiveClose())
	require.Equal(t, ClosingState, busy.State())
	require.Equal(t, closeWaiting, busy.receiveClose())

	_, _, ok := busy.receiveData(0, []byte("x"))
	require.False(t, ok)

	require.Equal(t, ackCompleted, busy.receiveAck(3))
	require.Equal(t, closeNow, busy.receiveClose())
}

func TestSession_Finish(t *testing.T) {
	sess, _ := newTestSession(1)
	require.NoError(t, sess.QueueOutbound([]byte("abc")))

	sess.finish()
	require.True(t, sess.IsClosed())
	require.Equal(t, 0, sess.PendingCount())
	require.Equal(t, ackStale, sess.receiveAck(3))
	require.ErrorIs(t, sess.QueueOutbound([]byte("x")), ErrSessionClosed)

	_, _, ok := sess.pendingWires()
	require.False(t, ok)
}
