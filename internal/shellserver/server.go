// Package shellserver is the server side of the remote shell protocol: it
// listens for one bridge client at a time, binds the connection to a named
// pipeline program via the handshake frame, then runs a synchronous
// receive/execute/reply cycle until the client goes away.
package shellserver

import (
	"context"
	"errors"
	"net"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/pipectl/p4bridge/internal/observability"
	"github.com/pipectl/p4bridge/internal/protocol/frame"
	"github.com/pipectl/p4bridge/internal/protocol/session"
)

// Config holds the server's listen parameters.
type Config struct {
	// Addr is the host:port to listen on.
	Addr string
	// AllowReconnect keeps the server accepting new sessions after one
	// ends. Off by default: the original deployment serves exactly one
	// client lifetime.
	AllowReconnect bool
}

// Server executes remote shell sessions against per-program pipelines.
type Server struct {
	cfg         Config
	newPipeline func() Pipeline
	log         zerolog.Logger

	mu        sync.Mutex
	pipelines map[string]Pipeline
}

// New builds a Server backed by in-memory pipelines.
func New(cfg Config) *Server {
	return NewWithPipelines(cfg, func() Pipeline { return NewMemPipeline() })
}

// NewWithPipelines builds a Server that binds each program name to a
// pipeline produced by newPipeline.
func NewWithPipelines(cfg Config, newPipeline func() Pipeline) *Server {
	return &Server{
		cfg:         cfg,
		newPipeline: newPipeline,
		log:         log.With().Str("component", "shellserver").Logger(),
		pipelines:   make(map[string]Pipeline),
	}
}

// Pipeline returns the pipeline bound to program, creating it on first use.
func (s *Server) Pipeline(program string) Pipeline {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.pipelines[program]
	if !ok {
		p = s.newPipeline()
		s.pipelines[program] = p
	}
	return p
}

// Programs lists the program names seen so far, sorted.
func (s *Server) Programs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.pipelines))
	for name := range s.pipelines {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// ListenAndServe listens on cfg.Addr and serves until ctx is canceled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve accepts sessions sequentially from ln: one live session at a time,
// returning to accept only when AllowReconnect is set.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	defer func() { _ = ln.Close() }()
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			_ = ln.Close()
		case <-stop:
		}
	}()

	for {
		s.log.Info().Str("addr", ln.Addr().String()).Msg("waiting for a connection")
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		s.log.Info().Str("remote", conn.RemoteAddr().String()).Msg("connection established")
		s.handleConn(ctx, conn)
		if !s.cfg.AllowReconnect {
			return nil
		}
	}
}

// handleConn runs one session: handshake, pipeline reset, dispatch loop.
func (s *Server) handleConn(ctx context.Context, conn net.Conn) {
	defer func() { _ = conn.Close() }()
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-stop:
		}
	}()

	hello, err := session.ReadHello(conn)
	if err != nil {
		// Close before the handshake frame: abandon without interaction.
		s.log.Warn().Err(err).Msg("unable to read session configuration, closing connection")
		return
	}
	logger := s.log.With().Str("program", hello.ProgramName).Bool("acks", hello.EnableAcks).Logger()
	logger.Info().Msg("session configuration received")
	observability.RecordServerSession(hello.ProgramName, hello.EnableAcks)

	p := s.Pipeline(hello.ProgramName)
	// A stale batch would swallow the reset below; end it best-effort.
	if err := p.BatchEnd(); err != nil && !errors.Is(err, ErrNoBatch) {
		logger.Debug().Err(err).Msg("stale batch close failed")
	}
	if err := p.Reset(); err != nil {
		logger.Error().Err(err).Msg("pipeline reset failed, closing connection")
		return
	}
	logger.Info().Msg("pipeline cleared, entering dispatch loop")

	for {
		cmd, err := frame.ReadString(conn)
		if errors.Is(err, frame.ErrClosed) {
			logger.Info().Msg("connection closed by remote client")
			return
		}
		if err != nil {
			logger.Error().Err(err).Msg("receive failed, closing connection")
			return
		}

		start := time.Now()
		execErr := Exec(p, cmd)
		observability.RecordServerCommand(hello.ProgramName, execErr == nil, time.Since(start))
		if execErr != nil {
			// Execution failures never crash the loop. Without
			// acknowledgments the client has no way to learn about them,
			// so this log line is the only trace.
			logger.Warn().Err(execErr).Str("cmd", cmd).Msg("command failed")
		} else {
			logger.Debug().Str("cmd", cmd).Msg("command executed")
		}

		if !hello.EnableAcks {
			continue
		}
		ack := session.AckOK
		if execErr != nil {
			ack = execErr.Error()
		}
		if err := frame.WriteString(conn, ack); err != nil {
			logger.Error().Err(err).Msg("acknowledgment write failed, closing connection")
			return
		}
	}
}
