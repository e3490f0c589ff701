package lrcp

import (
	"bytes"
	"context"
	"io"
	"net"
	"testing"
	"time"

	"github.com/arloliu/go-lrcp/logger"
	"github.com/stretchr/testify/require"
)

// readFrame reads datagrams from conn until one satisfies match.
func readFrame(t *testing.T, conn net.PacketConn, match func(Frame) bool) Frame {
	t.Helper()

	buf := make([]byte, 2048)
	deadline := time.Now().Add(3 * time.Second)
	for {
		require.NoError(t, conn.SetReadDeadline(deadline))
		n, _, err := conn.ReadFrom(buf)
		require.NoError(t, err)

		frame, err := DecodeFrame(buf[:n])
		require.NoError(t, err)
		if match(frame) {
			return frame
		}
	}
}

func TestServer_UDPLoopback(t *testing.T) {
	cfg, err := NewServerConfig(
		WithLogger(logger.NewSlogWithWriter(io.Discard, logger.ErrorLevel, false)),
		WithRetransmitInterval(100*time.Millisecond),
		WithReadTimeout(50*time.Millisecond),
	)
	require.NoError(t, err)

	echo := StreamHandlerFuncs{
		DeliverFunc: func(s *Session, data []byte) {
			_ = s.QueueOutbound(bytes.ToUpper(data))
		},
	}
	srv, err := NewServer(context.Background(), cfg, echo)
	require.NoError(t, err)
	require.NoError(t, srv.ListenAndServe("127.0.0.1:0"))
	defer srv.Close()

	require.ErrorIs(t, srv.Serve(newFakePacketConn()), ErrAlreadyServing)

	client, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	defer client.Close()

	write := func(f Frame) {
		_, err := client.WriteTo(f.Encode(), srv.Addr())
		require.NoError(t, err)
	}

	write(NewConnectFrame(12345))
	ack := readFrame(t, client, func(f Frame) bool { return f.Type == AckFrame })
	require.Equal(t, NewAckFrame(12345, 0), ack)

	write(NewDataFrame(12345, 0, []byte("hello/world\n")))
	data := readFrame(t, client, func(f Frame) bool { return f.Type == DataFrame })
	require.Equal(t, NewDataFrame(12345, 0, []byte("HELLO/WORLD\n")), data)

	// without an ack the same frame comes back again
	again := readFrame(t, client, func(f Frame) bool { return f.Type == DataFrame })
	require.Equal(t, data, again)

	write(NewAckFrame(12345, 12))
	write(NewCloseFrame(12345))
	closed := readFrame(t, client, func(f Frame) bool { return f.Type == CloseFrame })
	require.Equal(t, NewCloseFrame(12345), closed)

	require.Eventually(t, func() bool { return srv.Registry().Len() == 0 }, time.Second, 10*time.Millisecond)
}

func TestServer_ServeWithFakeConn(t *testing.T) {
	cfg, err := NewServerConfig(
		WithLogger(logger.NewSlogWithWriter(io.Discard, logger.ErrorLevel, false)),
		WithReadTimeout(20*time.Millisecond),
	)
	require.NoError(t, err)

	handler := newRecordingHandler()
	srv, err := NewServer(context.Background(), cfg, handler)
	require.NoError(t, err)

	conn := newFakePacketConn()
	require.NoError(t, srv.Serve(conn))
	require.Equal(t, testLocalAddr, srv.Addr())

	conn.inject("/connect/5/", testPeerAddr)
	conn.inject("not a frame", testPeerAddr)
	conn.inject("/data/5/0/ping/", testPeerAddr)

	require.Eventually(t, func() bool {
		return conn.countSent("/ack/5/4/") == 1
	}, time.Second, 5*time.Millisecond)
	require.Equal(t, []string{"ping"}, handler.deliveries(5))

	require.NoError(t, srv.Close())
	require.Equal(t, []string{"/ack/5/0/", "/ack/5/4/"}, conn.takeSent())
	require.Equal(t, uint64(3), srv.GetMetrics().DatagramRecvCount.Load())
	require.Equal(t, uint64(1), srv.GetMetrics().DecodeErrCount.Load())
}
