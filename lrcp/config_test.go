package lrcp

import (
	"testing"
	"time"

	"github.com/arloliu/go-lrcp/logger"
	"github.com/stretchr/testify/require"
)

func TestNewServerConfig_Defaults(t *testing.T) {
	cfg, err := NewServerConfig()
	require.NoError(t, err)

	require.Equal(t, DefaultRetransmitInterval, cfg.RetransmitInterval())
	require.Equal(t, DefaultMaxPayloadSize, cfg.MaxPayloadSize())
	require.Equal(t, DefaultMaxDatagramSize, cfg.MaxDatagramSize())
	require.Equal(t, DefaultReadTimeout, cfg.ReadTimeout())
	require.Equal(t, logger.GetLogger(), cfg.Logger())
}

func TestNewServerConfig_Options(t *testing.T) {
	l := logger.NewMockLogger()
	cfg, err := NewServerConfig(
		WithRetransmitInterval(50*time.Millisecond),
		WithMaxPayloadSize(100),
		WithMaxDatagramSize(200),
		WithReadTimeout(20*time.Millisecond),
		WithLogger(l),
	)
	require.NoError(t, err)

	require.Equal(t, 50*time.Millisecond, cfg.RetransmitInterval())
	require.Equal(t, 100, cfg.MaxPayloadSize())
	require.Equal(t, 200, cfg.MaxDatagramSize())
	require.Equal(t, 20*time.Millisecond, cfg.ReadTimeout())
	require.Same(t, l, cfg.Logger())
}

func TestNewServerConfig_InvalidOptions(t *testing.T) {
	tests := []struct {
		description string
		opt         ServerOption
	}{
		{"retransmit interval too short", WithRetransmitInterval(time.Millisecond)},
		{"retransmit interval too long", WithRetransmitInterval(2 * time.Minute)},
		{"zero payload size", WithMaxPayloadSize(0)},
		{"payload size too large", WithMaxPayloadSize(8192)},
		{"datagram size too small", WithMaxDatagramSize(10)},
		{"datagram size too large", WithMaxDatagramSize(70000)},
		{"read timeout too short", WithReadTimeout(time.Millisecond)},
		{"read timeout too long", WithReadTimeout(time.Minute)},
		{"nil logger", WithLogger(nil)},
	}

	for _, tt := range tests {
		t.Run(tt.description, func(t *testing.T) {
			_, err := NewServerConfig(tt.opt)
			require.Error(t, err)
		})
	}
}

func TestServerOption_NilConfig(t *testing.T) {
	err := WithMaxPayloadSize(10).apply(nil)
	require.ErrorIs(t, err, ErrServerConfigNil)
}
