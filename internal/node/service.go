package node

import (
	"context"
	"errors"
	"net"
	"os/signal"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/danmuck/pktwire/internal/admin"
	"github.com/danmuck/pktwire/internal/packet"
	"github.com/danmuck/pktwire/internal/protocol/session"
	"github.com/danmuck/pktwire/internal/transport"
	"github.com/rs/zerolog/log"
)

// ServiceConfig is the node's listener, admin and session configuration.
type ServiceConfig struct {
	Name        string
	ListenAddr  string
	AdminAddr   string
	CorsOrigins []string
	Packets     []string
	Session     session.Config
}

func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{
		Name:       "pktnode",
		ListenAddr: ":7400",
		AdminAddr:  "",
		Packets:    DefaultPackets(),
		Session:    session.DefaultConfig(),
	}
}

// Service accepts transports and runs one session.Conn per transport.
type Service struct {
	cfg      ServiceConfig
	registry *packet.Registry
	started  time.Time

	connsMu sync.Mutex
	conns   map[*session.Conn]struct{}

	activeCount atomic.Int64
	ready       atomic.Bool
}

var _ admin.Source = (*Service)(nil)

func NewService() (*Service, error) {
	return NewServiceWithConfig(DefaultServiceConfig())
}

func NewServiceWithConfig(cfg ServiceConfig) (*Service, error) {
	if strings.TrimSpace(cfg.ListenAddr) == "" {
		cfg.ListenAddr = DefaultServiceConfig().ListenAddr
	}
	if strings.TrimSpace(cfg.Name) == "" {
		cfg.Name = DefaultServiceConfig().Name
	}
	if len(cfg.Packets) == 0 {
		cfg.Packets = DefaultPackets()
	}
	cfg.Session = cfg.Session.WithDefaults()
	if err := cfg.Session.Validate(); err != nil {
		return nil, err
	}
	reg, err := BuildRegistry(cfg.Packets)
	if err != nil {
		return nil, err
	}
	return &Service{
		cfg:      cfg,
		registry: reg,
		started:  time.Now(),
		conns:    make(map[*session.Conn]struct{}),
	}, nil
}

func (s *Service) Registry() *packet.Registry {
	return s.registry
}

func (s *Service) NodeID() string { return s.cfg.Name }
func (s *Service) Kind() string   { return "node" }

func (s *Service) Uptime() time.Duration {
	return time.Since(s.started)
}

// Ready reports whether the listener is accepting.
func (s *Service) Ready() bool {
	return s.ready.Load()
}

func (s *Service) Packets() []string {
	return s.registry.IDs()
}

// Connections returns stats for every live connection ordered by remote address.
func (s *Service) Connections() []session.Stats {
	s.connsMu.Lock()
	out := make([]session.Stats, 0, len(s.conns))
	for c := range s.conns {
		out = append(out, c.Stats())
	}
	s.connsMu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Remote < out[j].Remote })
	return out
}

// Run listens on the configured address until SIGINT/SIGTERM.
func (s *Service) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ln, err := transport.Listen(ctx, s.cfg.ListenAddr)
	if err != nil {
		return err
	}
	log.Info().Str("node", s.cfg.Name).Str("addr", ln.Addr().String()).Strs("packets", s.Packets()).Msg("node.Service.Run listening")

	adminErr := make(chan error, 1)
	if addr := strings.TrimSpace(s.cfg.AdminAddr); addr != "" {
		srv := admin.New(s, addr, s.cfg.CorsOrigins)
		go func() {
			adminErr <- srv.Serve(ctx)
		}()
	}
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- s.Serve(ctx, ln)
	}()
	select {
	case err := <-serveErr:
		return err
	case err := <-adminErr:
		if err != nil {
			return err
		}
		return <-serveErr
	}
}

// Serve accepts on ln until ctx ends, then closes every tracked connection.
func (s *Service) Serve(ctx context.Context, ln net.Listener) error {
	defer ln.Close()
	go func() {
		<-ctx.Done()
		s.ready.Store(false)
		s.closeAllConns()
		_ = ln.Close()
	}()

	s.ready.Store(true)
	for {
		raw, err := ln.Accept()
		if err != nil {
			s.ready.Store(false)
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}
		s.handleConn(raw)
	}
}

func (s *Service) handleConn(raw net.Conn) {
	remote := raw.RemoteAddr().String()
	active := s.activeCount.Add(1)
	conn, err := session.NewConn(transport.NewNetStream(raw), s.registry, s.cfg.Session, session.Hooks{
		OnException: func(_ *session.Conn, err error) {
			log.Warn().Str("node", s.cfg.Name).Str("remote", remote).Err(err).Msg("node.conn exception")
		},
		OnClosed: func(c *session.Conn) {
			s.untrackConn(c)
			remaining := s.activeCount.Add(-1)
			log.Info().Str("node", s.cfg.Name).Str("remote", remote).Int64("active_clients", remaining).Msg("node.conn disconnected")
		},
	})
	if err != nil {
		s.activeCount.Add(-1)
		log.Error().Str("remote", remote).Err(err).Msg("node.handleConn session setup failed")
		_ = raw.Close()
		return
	}
	s.trackConn(conn)
	log.Info().Str("node", s.cfg.Name).Str("remote", remote).Int64("active_clients", active).Msg("node.conn connected")
}

// ActiveConnections returns the number of live connections.
func (s *Service) ActiveConnections() int64 {
	return s.activeCount.Load()
}

// trackConn skips connections whose OnClosed may already have run.
func (s *Service) trackConn(c *session.Conn) {
	s.connsMu.Lock()
	defer s.connsMu.Unlock()
	if c.State() == session.StateClosed {
		return
	}
	s.conns[c] = struct{}{}
}

func (s *Service) untrackConn(c *session.Conn) {
	s.connsMu.Lock()
	defer s.connsMu.Unlock()
	delete(s.conns, c)
}

func (s *Service) closeAllConns() {
	s.connsMu.Lock()
	conns := make([]*session.Conn, 0, len(s.conns))
	for c := range s.conns {
		conns = append(conns, c)
	}
	s.connsMu.Unlock()
	for _, c := range conns {
		_ = c.Close()
	}
}
