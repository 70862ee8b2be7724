package recorder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/danmuck/rawlog/internal/observability"
	"github.com/danmuck/rawlog/internal/protocol"
	"github.com/danmuck/rawlog/internal/rawlog"
	"github.com/danmuck/rawlog/internal/transport"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	OutcomeOK       = "ok"
	OutcomeError    = "error"
	OutcomeShutdown = "shutdown"

	maxRecentSessions = 64
)

type Config struct {
	Listen          string
	HTTPAddr        string
	OutputDir       string
	Compression     transport.Compression
	Limits          protocol.Limits
	Socket          transport.SocketConfig
	ShutdownTimeout time.Duration
	// Token, when set, is required as a bearer token on /sessions.
	Token string
}

func DefaultConfig() Config {
	return Config{
		Listen:          "127.0.0.1:7400",
		HTTPAddr:        "127.0.0.1:7401",
		OutputDir:       "rawlogs",
		Compression:     transport.CompressionGzip,
		Limits:          protocol.DefaultLimits(),
		Socket:          transport.DefaultSocketConfig(),
		ShutdownTimeout: 5 * time.Second,
	}
}

// Session summarizes one recorded connection.
type Session struct {
	ID      int64     `json:"id"`
	Remote  string    `json:"remote"`
	Path    string    `json:"path"`
	Records int64     `json:"records"`
	Bytes   int64     `json:"bytes"`
	Started time.Time `json:"started"`
	Ended   time.Time `json:"ended"`
	Outcome string    `json:"outcome"`
	Error   string    `json:"error,omitempty"`
}

type Service struct {
	cfg     Config
	router  *gin.Engine
	logger  zerolog.Logger
	started time.Time

	nextID atomic.Int64
	active atomic.Int64

	mu     sync.Mutex
	recent []Session

	connsMu sync.Mutex
	conns   map[net.Conn]struct{}
	wg      sync.WaitGroup
}

func New(cfg Config) *Service {
	def := DefaultConfig()
	if strings.TrimSpace(cfg.Listen) == "" {
		cfg.Listen = def.Listen
	}
	if strings.TrimSpace(cfg.OutputDir) == "" {
		cfg.OutputDir = def.OutputDir
	}
	if cfg.Compression == "" || cfg.Compression == transport.CompressionAuto {
		cfg.Compression = def.Compression
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = def.ShutdownTimeout
	}
	s := &Service{
		cfg:     cfg,
		logger:  log.With().Str("component", "recorder").Logger(),
		started: time.Now(),
		conns:   make(map[net.Conn]struct{}),
	}
	s.router = s.newRouter()
	return s
}

func (s *Service) Config() Config {
	return s.cfg
}

// Handler exposes the HTTP surface without binding a port.
func (s *Service) Handler() http.Handler {
	return s.router
}

// Run listens on the configured addresses until ctx is done.
func (s *Service) Run(ctx context.Context) error {
	if err := s.cfg.Socket.TLS.ValidateServer(); err != nil {
		return err
	}
	if err := os.MkdirAll(s.cfg.OutputDir, 0o755); err != nil {
		return fmt.Errorf("recorder: output dir %s: %w", s.cfg.OutputDir, err)
	}
	ln, err := transport.Listen(s.cfg.Listen, s.cfg.Socket)
	if err != nil {
		return err
	}
	s.logger.Info().Str("addr", ln.Addr().String()).Str("dir", s.cfg.OutputDir).Msg("recorder listening")

	var httpSrv *http.Server
	httpErr := make(chan error, 1)
	if addr := strings.TrimSpace(s.cfg.HTTPAddr); addr != "" {
		httpSrv = &http.Server{Addr: addr, Handler: s.router, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			s.logger.Info().Str("addr", addr).Msg("recorder http listening")
			if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				httpErr <- err
			}
		}()
	}

	serveCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- s.Serve(serveCtx, ln)
	}()

	var runErr error
	select {
	case runErr = <-serveErr:
	case runErr = <-httpErr:
		cancel()
		<-serveErr
	}
	if httpSrv != nil {
		shutdownCtx, done := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer done()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil && runErr == nil {
			runErr = err
		}
	}
	return runErr
}

// Serve accepts record streams on ln until ctx is done, then closes open
// connections and waits for their sessions to finish.
func (s *Service) Serve(ctx context.Context, ln net.Listener) error {
	defer ln.Close()
	go func() {
		<-ctx.Done()
		_ = ln.Close()
		s.closeAllConns()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				s.wg.Wait()
				return nil
			}
			s.wg.Wait()
			return err
		}
		s.trackConn(conn)
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer s.untrackConn(conn)
			s.handleConn(ctx, conn)
		}()
	}
}

// Sessions returns the most recent finished sessions, oldest first.
func (s *Service) Sessions() []Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Session, len(s.recent))
	copy(out, s.recent)
	return out
}

func (s *Service) Active() int64 {
	return s.active.Load()
}

func (s *Service) handleConn(ctx context.Context, conn net.Conn) {
	s.active.Add(1)
	defer s.active.Add(-1)

	sess := Session{
		ID:      s.nextID.Add(1),
		Remote:  conn.RemoteAddr().String(),
		Started: time.Now(),
	}
	sess.Path = filepath.Join(s.cfg.OutputDir, fmt.Sprintf("session-%s-%04d%s",
		sess.Started.UTC().Format("20060102T150405Z"), sess.ID, transport.ExtensionFor(s.cfg.Compression)))
	logger := s.logger.With().Int64("session", sess.ID).Str("remote", sess.Remote).Logger()

	err := s.record(conn, &sess, logger)
	sess.Ended = time.Now()
	switch {
	case err == nil:
		sess.Outcome = OutcomeOK
	case ctx.Err() != nil:
		sess.Outcome = OutcomeShutdown
		sess.Error = err.Error()
	default:
		sess.Outcome = OutcomeError
		sess.Error = err.Error()
	}
	observability.RecordSession(sess.Outcome)
	s.remember(sess)

	event := logger.Info()
	if sess.Outcome == OutcomeError {
		event = logger.Warn().Err(err)
	}
	event.Str("path", sess.Path).Int64("records", sess.Records).Int64("bytes", sess.Bytes).
		Str("outcome", sess.Outcome).Dur("duration", sess.Ended.Sub(sess.Started)).Msg("session finished")
}

// record copies envelopes from conn into a new rawlog until the peer closes
// the stream at a record boundary.
func (s *Service) record(conn net.Conn, sess *Session, logger zerolog.Logger) (err error) {
	in := protocol.NewStream(transport.NewConn(conn, s.cfg.Socket), protocol.WithLimits(s.cfg.Limits), protocol.WithLogger(logger))
	defer in.Close()

	out, err := rawlog.Create(sess.Path, rawlog.Options{
		Limits:      s.cfg.Limits,
		Compression: s.cfg.Compression,
		Observer:    observability.StreamObserver{},
		Logger:      &logger,
	})
	if err != nil {
		return err
	}
	defer func() {
		if cerr := out.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	for {
		env, err := in.ReadEnvelope()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			observability.RecordStreamError(err)
			return err
		}
		observability.RecordObject(observability.DirectionRead, env.TypeName, env.Size())
		if err := out.WriteEnvelope(env); err != nil {
			return err
		}
		sess.Records++
		sess.Bytes += int64(env.Size())
	}
}

func (s *Service) remember(sess Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recent = append(s.recent, sess)
	if len(s.recent) > maxRecentSessions {
		s.recent = s.recent[len(s.recent)-maxRecentSessions:]
	}
}

func (s *Service) trackConn(conn net.Conn) {
	s.connsMu.Lock()
	s.conns[conn] = struct{}{}
	s.connsMu.Unlock()
}

func (s *Service) untrackConn(conn net.Conn) {
	s.connsMu.Lock()
	delete(s.conns, conn)
	s.connsMu.Unlock()
}

func (s *Service) closeAllConns() {
	s.connsMu.Lock()
	defer s.connsMu.Unlock()
	for conn := range s.conns {
		_ = conn.Close()
	}
}
