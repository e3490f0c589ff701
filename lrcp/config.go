package lrcp

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/arloliu/go-lrcp/logger"
)

const (
	// DefaultRetransmitInterval is the fixed interval between resends of unacknowledged DATA frames.
	DefaultRetransmitInterval = 3 * time.Second
	// DefaultMaxPayloadSize is the maximum number of raw payload bytes carried by one DATA frame.
	DefaultMaxPayloadSize = 512
	// DefaultMaxDatagramSize is the maximum size of an encoded frame, including framing and escaping.
	DefaultMaxDatagramSize = 1000
	// DefaultReadTimeout bounds each blocking read of the receive loop.
	DefaultReadTimeout = 1 * time.Second
)

// ServerConfig represents the configuration parameters for an LRCP server.
type ServerConfig struct {
	mu sync.RWMutex

	// retransmitInterval defines how often unacknowledged DATA frames are resent.
	// Defaults to 3 seconds.
	retransmitInterval time.Duration

	// maxPayloadSize defines the maximum raw bytes per outbound DATA frame.
	// Defaults to 512.
	maxPayloadSize int

	// maxDatagramSize defines the largest datagram sent or accepted, after escaping.
	// Defaults to 1000.
	maxDatagramSize int

	// readTimeout defines the deadline of each receive loop iteration, which lets the
	// loop observe shutdown while the channel is idle.
	// Defaults to 1 second.
	readTimeout time.Duration

	// logger provides a logger instance for logging LRCP events and errors.
	logger logger.Logger
}

// NewServerConfig creates a new server configuration with default values and applies opts.
//
// Returns the configuration and the first error reported by an option.
func NewServerConfig(opts ...ServerOption) (*ServerConfig, error) {
	cfg := &ServerConfig{
		retransmitInterval: DefaultRetransmitInterval,
		maxPayloadSize:     DefaultMaxPayloadSize,
		maxDatagramSize:    DefaultMaxDatagramSize,
		readTimeout:        DefaultReadTimeout,
		logger:             logger.GetLogger(),
	}

	for _, opt := range opts {
		if err := opt.apply(cfg); err != nil {
			return cfg, err
		}
	}

	return cfg, nil
}

func (cfg *ServerConfig) RetransmitInterval() time.Duration {
	cfg.mu.RLock()
	defer cfg.mu.RUnlock()

	return cfg.retransmitInterval
}

func (cfg *ServerConfig) MaxPayloadSize() int {
	cfg.mu.RLock()
	defer cfg.mu.RUnlock()

	return cfg.maxPayloadSize
}

func (cfg *ServerConfig) MaxDatagramSize() int {
	cfg.mu.RLock()
	defer cfg.mu.RUnlock()

	return cfg.maxDatagramSize
}

func (cfg *ServerConfig) ReadTimeout() time.Duration {
	cfg.mu.RLock()
	defer cfg.mu.RUnlock()

	return cfg.readTimeout
}

func (cfg *ServerConfig) Logger() logger.Logger {
	cfg.mu.RLock()
	defer cfg.mu.RUnlock()

	return cfg.logger
}

// ServerOption represents a functional option for configuring a ServerConfig.
type ServerOption interface {
	apply(*ServerConfig) error
}

type serverOptFunc struct {
	name      string
	applyFunc func(*ServerConfig) error
}

func (o *serverOptFunc) apply(cfg *ServerConfig) error {
	if cfg == nil {
		return ErrServerConfigNil
	}

	cfg.mu.Lock()
	defer cfg.mu.Unlock()

	if err := o.applyFunc(cfg); err != nil {
		return fmt.Errorf("%s: %w", o.name, err)
	}

	return nil
}

func newServerOptFunc(name string, f func(*ServerConfig) error) *serverOptFunc {
	return &serverOptFunc{name: name, applyFunc: f}
}

// WithRetransmitInterval sets the fixed interval between resends of unacknowledged DATA frames.
// An error is returned if the interval is outside the range [10ms, 60s].
//
// The default value is 3 seconds.
func WithRetransmitInterval(val time.Duration) ServerOption {
	return newServerOptFunc("WithRetransmitInterval", func(cfg *ServerConfig) error {
		if val < 10*time.Millisecond || val > 60*time.Second {
			return errors.New("retransmit interval out of range [10ms, 60s]")
		}
		cfg.retransmitInterval = val

		return nil
	})
}

// WithMaxPayloadSize sets the maximum number of raw bytes carried by one outbound DATA frame.
// An error is returned if the size is outside the range [1, 4096].
//
// The default value is 512.
func WithMaxPayloadSize(size int) ServerOption {
	return newServerOptFunc("WithMaxPayloadSize", func(cfg *ServerConfig) error {
		if size < 1 || size > 4096 {
			return errors.New("max payload size out of range [1, 4096]")
		}
		cfg.maxPayloadSize = size

		return nil
	})
}

// WithMaxDatagramSize sets the largest datagram the server sends or accepts.
// Outbound DATA payloads are split so that no encoded frame exceeds it.
// An error is returned if the size is outside the range [64, 65507].
//
// The default value is 1000.
func WithMaxDatagramSize(size int) ServerOption {
	return newServerOptFunc("WithMaxDatagramSize", func(cfg *ServerConfig) error {
		if size < 64 || size > 65507 {
			return errors.New("max datagram size out of range [64, 65507]")
		}
		cfg.maxDatagramSize = size

		return nil
	})
}

// WithReadTimeout sets the deadline of each receive loop read.
// An error is returned if the timeout is outside the range [10ms, 5s].
//
// The default value is 1 second.
func WithReadTimeout(val time.Duration) ServerOption {
	return newServerOptFunc("WithReadTimeout", func(cfg *ServerConfig) error {
		if val < 10*time.Millisecond || val > 5*time.Second {
			return errors.New("read timeout out of range [10ms, 5s]")
		}
		cfg.readTimeout = val

		return nil
	})
}

// WithLogger sets the logger for the server.
//
// The default logger is the global logger instance.
func WithLogger(l logger.Logger) ServerOption {
	return newServerOptFunc("WithLogger", func(cfg *ServerConfig) error {
		if l == nil {
			return errors.New("logger is nil")
		}
		cfg.logger = l

		return nil
	})
}
