package transport

import (
	"context"
	"crypto/tls"
	"fmt"
	"math/rand"
	"net"
	"time"

	"github.com/rs/zerolog/log"
)

// SocketConfig defines dial and I/O deadlines for record sockets.
type SocketConfig struct {
	ConnectTimeout time.Duration
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	MaxAttempts    int
	Backoff        BackoffConfig
	TLS            TLSConfig
}

func DefaultSocketConfig() SocketConfig {
	return SocketConfig{
		ConnectTimeout: 5 * time.Second,
		WriteTimeout:   15 * time.Second,
		MaxAttempts:    5,
		Backoff: BackoffConfig{
			InitialDelay: 250 * time.Millisecond,
			Multiplier:   2.0,
			MaxDelay:     5 * time.Second,
			Jitter:       true,
		},
	}
}

// Dial connects to addr, retrying with backoff until MaxAttempts is reached
// or ctx is done.
func Dial(ctx context.Context, addr string, cfg SocketConfig) (*Channel, error) {
	tlsCfg, err := cfg.TLS.ClientConfig()
	if err != nil {
		return nil, err
	}
	attempts := cfg.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	dialer := &net.Dialer{Timeout: cfg.ConnectTimeout}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			delay := cfg.Backoff.Delay(attempt-1, rng)
			log.Debug().Str("addr", addr).Int("attempt", attempt).Dur("delay", delay).Err(lastErr).Msg("dial retry")
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return nil, fmt.Errorf("transport: dial %s: %w", addr, ctx.Err())
			case <-timer.C:
			}
		}
		conn, err := dialer.DialContext(ctx, "tcp", addr)
		if err != nil {
			lastErr = err
			if ctx.Err() != nil {
				break
			}
			continue
		}
		if tlsCfg != nil {
			cfgCopy := tlsCfg.Clone()
			if cfgCopy.ServerName == "" {
				host, _, _ := net.SplitHostPort(addr)
				cfgCopy.ServerName = host
			}
			tconn := tls.Client(conn, cfgCopy)
			if err := tconn.HandshakeContext(ctx); err != nil {
				_ = conn.Close()
				lastErr = err
				continue
			}
			conn = tconn
		}
		return NewConn(conn, cfg), nil
	}
	return nil, fmt.Errorf("transport: dial %s after %d attempts: %w", addr, attempts, lastErr)
}

// Listen opens a record listener, wrapped in TLS when configured.
func Listen(addr string, cfg SocketConfig) (net.Listener, error) {
	tlsCfg, err := cfg.TLS.ServerConfig()
	if err != nil {
		return nil, err
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("transport: listen %s: %w", addr, err)
	}
	if tlsCfg != nil {
		return tls.NewListener(ln, tlsCfg), nil
	}
	return ln, nil
}

// NewConn wraps an established connection as a duplex channel that applies
// the configured per-operation deadlines.
func NewConn(conn net.Conn, cfg SocketConfig) *Channel {
	dc := &deadlineConn{conn: conn, readTimeout: cfg.ReadTimeout, writeTimeout: cfg.WriteTimeout}
	return NewReadWriter(conn.RemoteAddr().String(), dc, conn)
}

type deadlineConn struct {
	conn         net.Conn
	readTimeout  time.Duration
	writeTimeout time.Duration
}

func (d *deadlineConn) Read(p []byte) (int, error) {
	if d.readTimeout > 0 {
		if err := d.conn.SetReadDeadline(time.Now().Add(d.readTimeout)); err != nil {
			return 0, err
		}
	}
	return d.conn.Read(p)
}

func (d *deadlineConn) Write(p []byte) (int, error) {
	if d.writeTimeout > 0 {
		if err := d.conn.SetWriteDeadline(time.Now().Add(d.writeTimeout)); err != nil {
			return 0, err
		}
	}
	return d.conn.Write(p)
}
