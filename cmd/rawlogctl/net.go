package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/signal"
	"syscall"

	"github.com/danmuck/rawlog/internal/observability"
	"github.com/danmuck/rawlog/internal/protocol"
	"github.com/danmuck/rawlog/internal/rawlog"
	"github.com/danmuck/rawlog/internal/recorder"
	"github.com/danmuck/rawlog/internal/transport"
	"github.com/spf13/cobra"
)

func newSendCmd(a *app) *cobra.Command {
	var tlsCfg transport.TLSConfig
	var attempts int
	cmd := &cobra.Command{
		Use:   "send <file> <addr>",
		Short: "Stream the records of a rawlog to a recorder",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			socket := transport.DefaultSocketConfig()
			socket.TLS = tlsCfg
			if attempts > 0 {
				socket.MaxAttempts = attempts
			}
			if err := socket.TLS.ValidateClient(); err != nil {
				return err
			}
			n, err := a.send(ctx, args[0], args[1], socket)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "sent %d records to %s\n", n, args[1])
			return nil
		},
	}
	cmd.Flags().BoolVar(&tlsCfg.Enabled, "tls", false, "connect over TLS")
	cmd.Flags().StringVar(&tlsCfg.CAFile, "ca", "", "CA bundle used to verify the recorder")
	cmd.Flags().StringVar(&tlsCfg.CertFile, "cert", "", "client certificate for mutual TLS")
	cmd.Flags().StringVar(&tlsCfg.KeyFile, "key", "", "client key for mutual TLS")
	cmd.Flags().StringVar(&tlsCfg.ServerName, "server-name", "", "expected recorder certificate name")
	cmd.Flags().BoolVar(&tlsCfg.Mutual, "mtls", false, "present a client certificate")
	cmd.Flags().IntVar(&attempts, "attempts", 0, "dial attempts before giving up (0 uses the default)")
	return cmd
}

// send copies every envelope of path to addr without decoding.
func (a *app) send(ctx context.Context, path, addr string, socket transport.SocketConfig) (int64, error) {
	r, err := rawlog.Open(path, a.readerOptions())
	if err != nil {
		return 0, err
	}
	defer r.Close()

	ch, err := transport.Dial(ctx, addr, socket)
	if err != nil {
		return 0, err
	}
	out := protocol.NewStream(ch,
		protocol.WithLimits(a.cfg.StreamLimits()),
		protocol.WithObserver(observability.StreamObserver{}),
	)

	var n int64
	for {
		env, err := r.NextEnvelope()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			_ = out.Close()
			return n, err
		}
		if err := out.WriteEnvelope(env); err != nil {
			_ = out.Close()
			return n, err
		}
		n++
	}
	return n, out.Close()
}

func newRecordCmd(a *app) *cobra.Command {
	var listen, httpAddr, outputDir, compression string
	cmd := &cobra.Command{
		Use:   "record",
		Short: "Run the recorder service until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := a.cfg.RecorderOptions()
			if listen != "" {
				cfg.Listen = listen
			}
			if cmd.Flags().Changed("http") {
				cfg.HTTPAddr = httpAddr
			}
			if outputDir != "" {
				cfg.OutputDir = outputDir
			}
			if compression != "" {
				c, err := transport.ParseCompression(compression)
				if err != nil {
					return err
				}
				cfg.Compression = c
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return recorder.New(cfg).Run(ctx)
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "record socket address")
	cmd.Flags().StringVar(&httpAddr, "http", "", "health and metrics address (empty disables)")
	cmd.Flags().StringVar(&outputDir, "output-dir", "", "directory for session files")
	cmd.Flags().StringVar(&compression, "compression", "", "session file compression: none|gzip|snappy")
	return cmd
}
