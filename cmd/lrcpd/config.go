package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/arloliu/go-lrcp/logger"
	"github.com/arloliu/go-lrcp/lrcp"
)

const defaultListen = ":7000"

type fileConfig struct {
	Listen             string `toml:"listen"`
	RetransmitInterval string `toml:"retransmit_interval"`
	MaxPayloadSize     int    `toml:"max_payload_size"`
	MaxDatagramSize    int    `toml:"max_datagram_size"`
	LogLevel           string `toml:"log_level"`
}

type daemonConfig struct {
	Listen             string
	RetransmitInterval time.Duration
	MaxPayloadSize     int
	MaxDatagramSize    int
	LogLevel           logger.LogLevel
}

func defaultDaemonConfig() daemonConfig {
	return daemonConfig{
		Listen:             defaultListen,
		RetransmitInterval: lrcp.DefaultRetransmitInterval,
		MaxPayloadSize:     lrcp.DefaultMaxPayloadSize,
		MaxDatagramSize:    lrcp.DefaultMaxDatagramSize,
		LogLevel:           logger.InfoLevel,
	}
}

// loadDaemonConfig reads the TOML file at path over the defaults. An empty path keeps the defaults.
func loadDaemonConfig(path string) (daemonConfig, error) {
	cfg := defaultDaemonConfig()
	if path == "" {
		return cfg, nil
	}

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return daemonConfig{}, fmt.Errorf("load lrcpd config: %w", err)
	}

	if meta.IsDefined("listen") {
		if v := strings.TrimSpace(raw.Listen); v != "" {
			cfg.Listen = v
		}
	}

	if meta.IsDefined("retransmit_interval") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.RetransmitInterval))
		if err != nil {
			return daemonConfig{}, fmt.Errorf("parse retransmit_interval: %w", err)
		}
		cfg.RetransmitInterval = d
	}

	if meta.IsDefined("max_payload_size") {
		cfg.MaxPayloadSize = raw.MaxPayloadSize
	}

	if meta.IsDefined("max_datagram_size") {
		cfg.MaxDatagramSize = raw.MaxDatagramSize
	}

	if meta.IsDefined("log_level") {
		lvl, err := logger.ParseLevel(strings.TrimSpace(raw.LogLevel))
		if err != nil {
			return daemonConfig{}, fmt.Errorf("parse log_level: %w", err)
		}
		cfg.LogLevel = lvl
	}

	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return daemonConfig{}, fmt.Errorf("unknown config key %q", undecoded[0].String())
	}

	return cfg, nil
}

// applyEnv overrides cfg with LRCP_LISTEN and LOG_LEVEL when they are set.
func applyEnv(cfg *daemonConfig) error {
	if v := strings.TrimSpace(os.Getenv("LRCP_LISTEN")); v != "" {
		cfg.Listen = v
	}

	if v, ok := os.LookupEnv("LOG_LEVEL"); ok && strings.TrimSpace(v) != "" {
		lvl, err := logger.ParseLevel(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("parse LOG_LEVEL: %w", err)
		}
		cfg.LogLevel = lvl
	}

	return nil
}

func (c daemonConfig) serverOptions(l logger.Logger) []lrcp.ServerOption {
	return []lrcp.ServerOption{
		lrcp.WithRetransmitInterval(c.RetransmitInterval),
		lrcp.WithMaxPayloadSize(c.MaxPayloadSize),
		lrcp.WithMaxDatagramSize(c.MaxDatagramSize),
		lrcp.WithLogger(l),
	}
}
