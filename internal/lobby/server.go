package lobby

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"golang.org/x/net/netutil"
	"golang.org/x/sync/errgroup"
)

const defaultWriteTimeout = 5 * time.Second

// Options configures a Server.
type Options struct {
	// MaxClients caps concurrent connections; 0 means unlimited.
	MaxClients   int
	WriteTimeout time.Duration
	Logger       *slog.Logger
}

type client struct {
	conn  net.Conn
	addr  string
	name  string
	level int
	ready bool
}

// Server is the lobby. The zero value is not usable; call NewServer.
type Server struct {
	maxClients   int
	writeTimeout time.Duration
	logger       *slog.Logger

	// mu guards clients and serialises all writes to connections.
	mu      sync.Mutex
	clients []*client
	closed  bool
}

// NewServer creates a Server.
func NewServer(opts Options) *Server {
	s := &Server{
		maxClients:   opts.MaxClients,
		writeTimeout: opts.WriteTimeout,
		logger:       opts.Logger,
	}
	if s.writeTimeout <= 0 {
		s.writeTimeout = defaultWriteTimeout
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// ListenAndServe listens on addr and calls Serve.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled, then closes the
// listener and every client connection and waits for handlers to exit.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	if s.maxClients > 0 {
		ln = netutil.LimitListener(ln, s.maxClients)
	}
	s.logger.Info("lobby listening", "addr", ln.Addr().String(), "max_clients", s.maxClients)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		<-gctx.Done()
		ln.Close()
		s.closeAll()
		return nil
	})

	g.Go(func() error {
		for {
			conn, err := ln.Accept()
			if err != nil {
				if gctx.Err() != nil || errors.Is(err, net.ErrClosed) {
					return nil
				}
				return fmt.Errorf("accepting connection: %w", err)
			}
			c := &client{conn: conn, addr: conn.RemoteAddr().String(), level: 1}
			if !s.register(c) {
				conn.Close()
				return nil
			}
			s.logger.Info("accepted connection", "addr", c.addr)
			g.Go(func() error {
				s.handle(c)
				return nil
			})
		}
	})

	err := g.Wait()
	s.logger.Info("lobby stopped")
	return err
}

func (s *Server) register(c *client) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.clients = append(s.clients, c)
	return true
}

func (s *Server) closeAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	for _, c := range s.clients {
		c.conn.Close()
	}
}

func (s *Server) handle(c *client) {
	defer s.disconnect(c)

	sc := bufio.NewScanner(c.conn)
	sc.Buffer(make([]byte, 0, 512), MaxLineLength+1)
	for sc.Scan() {
		line := sc.Text()
		if !utf8.ValidString(line) {
			s.logger.Debug("skipping non-UTF-8 line", "addr", c.addr)
			continue
		}
		s.dispatch(c, line)
	}
	if err := sc.Err(); err != nil && !errors.Is(err, net.ErrClosed) {
		s.logger.Warn("closing connection", "addr", c.addr, "error", err)
	}
}

func (s *Server) dispatch(c *client, line string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case strings.HasPrefix(line, KindJoin+":"):
		c.name = ClampName(strings.TrimPrefix(line, KindJoin+":"))
		s.logger.Info("player joined", "name", c.name, "addr", c.addr)
		s.broadcastLocked(KindJoin + ":" + c.name)
		s.broadcastListLocked()

	case strings.HasPrefix(line, KindChat+":"):
		s.broadcastLocked(line)

	case strings.HasPrefix(line, KindReady+":"):
		parts := strings.SplitN(line, ":", 3)
		if len(parts) < 3 {
			return
		}
		c.ready = parseReady(parts[2])
		s.broadcastLocked(line)
		s.broadcastListLocked()
		if s.allReadyLocked() {
			s.logger.Info("all players ready, starting")
			s.broadcastLocked(lineStart)
		}

	case line == cmdListQuery:
		s.sendLocked(c, KindList+":"+FormatPlayers(s.playersLocked()))

	case strings.HasPrefix(line, KindLevel+":"):
		parts := strings.SplitN(line, ":", 3)
		if len(parts) < 3 {
			return
		}
		c.level = parseLevel(parts[2])
		s.broadcastListLocked()

	case line == cmdStartQuery:
		if s.allReadyLocked() {
			s.sendLocked(c, lineStart)
		}

	default:
		s.broadcastLocked(line)
	}
}

func (s *Server) disconnect(c *client) {
	c.conn.Close()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.removeLocked(c) && c.name != "" {
		s.broadcastLocked(KindLeave + ":" + c.name)
	}
	if !s.closed {
		s.broadcastListLocked()
	}
	s.logger.Info("connection closed", "addr", c.addr)
}

func (s *Server) removeLocked(c *client) bool {
	for i, other := range s.clients {
		if other == c {
			s.clients = append(s.clients[:i], s.clients[i+1:]...)
			return true
		}
	}
	return false
}

func (s *Server) playersLocked() []Player {
	out := make([]Player, len(s.clients))
	for i, c := range s.clients {
		out[i] = Player{Name: c.name, Level: c.level, Ready: c.ready}
	}
	return out
}

// allReadyLocked reports whether at least one named player exists and every
// named player is ready. Unnamed connections are ignored.
func (s *Server) allReadyLocked() bool {
	named := 0
	for _, c := range s.clients {
		if c.name == "" {
			continue
		}
		named++
		if !c.ready {
			return false
		}
	}
	return named > 0
}

func (s *Server) broadcastListLocked() {
	s.broadcastLocked(KindList + ":" + FormatPlayers(s.playersLocked()))
}

// broadcastLocked writes line to every client. Clients whose write fails
// are closed and dropped.
func (s *Server) broadcastLocked(line string) {
	kept := s.clients[:0]
	for _, c := range s.clients {
		if err := s.write(c, line); err != nil {
			s.logger.Warn("dropping client after failed write", "addr", c.addr, "error", err)
			c.conn.Close()
			continue
		}
		kept = append(kept, c)
	}
	clear(s.clients[len(kept):])
	s.clients = kept
}

func (s *Server) sendLocked(c *client, line string) {
	if err := s.write(c, line); err != nil {
		s.logger.Warn("reply failed", "addr", c.addr, "error", err)
		c.conn.Close()
	}
}

func (s *Server) write(c *client, line string) error {
	if err := c.conn.SetWriteDeadline(time.Now().Add(s.writeTimeout)); err != nil {
		return err
	}
	_, err := c.conn.Write([]byte(line + "\n"))
	return err
}

// Players returns the current player list in join order.
func (s *Server) Players() []Player {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.playersLocked()
}

// BroadcastStart tells every client to start the match now.
func (s *Server) BroadcastStart() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logger.Info("admin: broadcasting START")
	s.broadcastLocked(lineStart)
}
