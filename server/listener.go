package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/himakhaitan/memkv/engine"
	"github.com/himakhaitan/memkv/pkg/config"
	"github.com/puzpuzpuz/xsync/v3"
	"go.uber.org/zap"
)

const maxAcceptBackoff = time.Second

// ErrNotListening is returned by Serve when Listen has not bound a socket
var ErrNotListening = errors.New("listener is not bound")

// Listener accepts cache connections and runs one Session per connection.
// There is no cap on concurrent connections.
type Listener struct {
	cfg     *config.Config
	db      *engine.DB
	metrics *Metrics
	logger  *zap.Logger

	ln       net.Listener
	sessions *xsync.MapOf[uint64, *Session]
	nextID   uint64

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

func NewListener(cfg *config.Config, db *engine.DB, metrics *Metrics, logger *zap.Logger) *Listener {
	l := &Listener{
		cfg:      cfg,
		db:       db,
		metrics:  metrics,
		logger:   logger,
		sessions: xsync.NewMapOf[uint64, *Session](),
	}
	metrics.trackSessions(l.ActiveSessions)
	return l
}

// Listen binds the configured TCP address
func (l *Listener) Listen(ctx context.Context) error {
	keepAlive := l.cfg.KeepAlive
	if keepAlive <= 0 {
		keepAlive = -1
	}
	lc := net.ListenConfig{Control: controlSocket, KeepAlive: keepAlive}

	ln, err := lc.Listen(ctx, "tcp", l.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", l.cfg.Addr, err)
	}
	l.ln = ln

	l.logger.Info("Listening for cache connections", zap.String("addr", ln.Addr().String()))
	return nil
}

// Addr returns the bound address, or nil before Listen
func (l *Listener) Addr() net.Addr {
	if l.ln == nil {
		return nil
	}
	return l.ln.Addr()
}

// ActiveSessions returns the number of connections currently being served
func (l *Listener) ActiveSessions() int {
	return l.sessions.Size()
}

// Serve runs the accept loop until Close is called. Accept failures are
// logged and retried with a capped backoff; a socket closed behind the
// Listener's back ends the loop with an error.
func (l *Listener) Serve() error {
	if l.ln == nil {
		return ErrNotListening
	}

	var backoff time.Duration
	for {
		conn, err := l.ln.Accept()
		if err != nil {
			if l.isClosed() {
				return nil
			}
			if errors.Is(err, net.ErrClosed) {
				return fmt.Errorf("accept: %w", err)
			}
			if backoff == 0 {
				backoff = 5 * time.Millisecond
			} else {
				backoff = min(backoff*2, maxAcceptBackoff)
			}
			l.logger.Error("Accept failed", zap.Error(err), zap.Duration("retry_in", backoff))
			time.Sleep(backoff)
			continue
		}
		backoff = 0

		l.startSession(conn)
	}
}

func (l *Listener) startSession(conn net.Conn) {
	if tcpConn, ok := conn.(*net.TCPConn); ok {
		if err := tcpConn.SetNoDelay(l.cfg.TCPNoDelay); err != nil {
			l.logger.Warn("Could not set TCP_NODELAY", zap.Error(err))
		}
	}

	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		_ = conn.Close()
		return
	}
	l.nextID++
	s := newSession(l.nextID, conn, l.db, l.metrics, l.logger, l.cfg.ReadBufferSize)
	l.sessions.Store(s.id, s)
	l.wg.Add(1)
	l.mu.Unlock()

	l.metrics.connectionsAccepted.Inc()

	go func() {
		defer l.wg.Done()
		defer l.sessions.Delete(s.id)
		s.Run()
	}()
}

func (l *Listener) isClosed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closed
}

// Close stops accepting, closes every live session and waits for their
// goroutines to finish
func (l *Listener) Close() error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	l.closed = true
	l.mu.Unlock()

	var err error
	if l.ln != nil {
		if err = l.ln.Close(); errors.Is(err, net.ErrClosed) {
			err = nil
		}
	}

	l.sessions.Range(func(_ uint64, s *Session) bool {
		_ = s.Close()
		return true
	})
	l.wg.Wait()

	return err
}
