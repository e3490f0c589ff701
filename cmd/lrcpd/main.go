// Command lrcpd serves the line reversal application over LRCP.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/arloliu/go-lrcp/linereverse"
	"github.com/arloliu/go-lrcp/logger"
	"github.com/arloliu/go-lrcp/lrcp"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "lrcpd: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	fs := flag.NewFlagSet("lrcpd", flag.ContinueOnError)
	configPath := fs.String("config", "", "path to a TOML config file")
	listen := fs.String("listen", "", "UDP address to listen on, overrides config and LRCP_LISTEN")
	logLevel := fs.String("log-level", "", "log level: debug, info, warn, error")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadDaemonConfig(*configPath)
	if err != nil {
		return err
	}
	if err := applyEnv(&cfg); err != nil {
		return err
	}
	if *listen != "" {
		cfg.Listen = *listen
	}
	if *logLevel != "" {
		lvl, err := logger.ParseLevel(*logLevel)
		if err != nil {
			return err
		}
		cfg.LogLevel = lvl
	}

	l := logger.NewSlog(cfg.LogLevel, false)

	srvCfg, err := lrcp.NewServerConfig(cfg.serverOptions(l)...)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv, err := lrcp.NewServer(ctx, srvCfg, linereverse.New(l))
	if err != nil {
		return err
	}
	if err := srv.ListenAndServe(cfg.Listen); err != nil {
		return fmt.Errorf("listen %s: %w", cfg.Listen, err)
	}

	<-ctx.Done()
	l.Info("shutting down")

	err = srv.Close()
	logMetrics(l, srv.GetMetrics())

	return err
}

func logMetrics(l logger.Logger, m *lrcp.ServerMetrics) {
	l.Info("lrcpd metrics",
		"datagrams_in", m.DatagramRecvCount.Load(),
		"datagrams_out", m.DatagramSendCount.Load(),
		"decode_errors", m.DecodeErrCount.Load(),
		"send_errors", m.SendErrCount.Load(),
		"retransmits", m.RetransmitCount.Load(),
		"protocol_violations", m.ProtocolViolationCount.Load(),
		"bytes_delivered", m.BytesDelivered.Load(),
		"open_sessions", m.SessionGauge.Load(),
	)
}
