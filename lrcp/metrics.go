package lrcp

import (
	"sync/atomic"
)

// ServerMetrics contains atomic metrics for a server.
// Metrics can be used as the value of a prometheus CounterFunc or GaugeFunc.
type ServerMetrics struct {
	// DatagramRecvCount indicates the number of datagrams read from the channel.
	DatagramRecvCount atomic.Uint64
	// DatagramSendCount indicates the number of datagrams written to the channel.
	DatagramSendCount atomic.Uint64
	// DecodeErrCount indicates the number of dropped malformed datagrams.
	DecodeErrCount atomic.Uint64
	// SendErrCount indicates the number of failed datagram writes.
	SendErrCount atomic.Uint64
	// RetransmitCount indicates the number of DATA frames sent again by the retransmission timer.
	RetransmitCount atomic.Uint64
	// ProtocolViolationCount indicates the number of sessions force-closed by a protocol violation.
	ProtocolViolationCount atomic.Uint64
	// BytesDelivered indicates the number of contiguous inbound bytes handed to the stream handler.
	BytesDelivered atomic.Uint64

	// SessionGauge indicates the number of open sessions.
	SessionGauge atomic.Int64
}

func (m *ServerMetrics) incDatagramRecvCount() {
	m.DatagramRecvCount.Add(1)
}

func (m *ServerMetrics) incDatagramSendCount() {
	m.DatagramSendCount.Add(1)
}

func (m *ServerMetrics) incDecodeErrCount() {
	m.DecodeErrCount.Add(1)
}

func (m *ServerMetrics) incSendErrCount() {
	m.SendErrCount.Add(1)
}

func (m *ServerMetrics) incRetransmitCount() {
	m.RetransmitCount.Add(1)
}

func (m *ServerMetrics) incProtocolViolationCount() {
	m.ProtocolViolationCount.Add(1)
}

func (m *ServerMetrics) addBytesDelivered(n int) {
	m.BytesDelivered.Add(uint64(n)) //nolint:gosec
}

func (m *ServerMetrics) incSessionGauge() {
	m.SessionGauge.Add(1)
}

func (m *ServerMetrics) decSessionGauge() {
	m.SessionGauge.Add(-1)
}
