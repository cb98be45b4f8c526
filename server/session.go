package server

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"net"

	"github.com/himakhaitan/memkv/engine"
	"github.com/himakhaitan/memkv/protocol"
	"github.com/himakhaitan/memkv/store"
	"go.uber.org/zap"
)

var notFoundBody = []byte("Not found")

type sessionState int

const (
	stateAwaitingHeader sessionState = iota
	stateAwaitingBody
	stateDispatching
	stateClosed
)

func (s sessionState) String() string {
	switch s {
	case stateAwaitingHeader:
		return "awaiting_header"
	case stateAwaitingBody:
		return "awaiting_body"
	case stateDispatching:
		return "dispatching"
	case stateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Session owns one accepted connection. Reads, dispatch and writes happen
// strictly in that order on the session goroutine, so at most one network
// operation is in flight and no locking is needed.
type Session struct {
	id      uint64
	conn    net.Conn
	reader  *bufio.Reader
	db      *engine.DB
	metrics *Metrics
	logger  *zap.Logger

	state     sessionState
	rawHeader [protocol.HeaderLen]byte
	header    protocol.Header
	body      bytes.Buffer
}

func newSession(id uint64, conn net.Conn, db *engine.DB, metrics *Metrics, logger *zap.Logger, readBufferSize int) *Session {
	return &Session{
		id:      id,
		conn:    conn,
		reader:  bufio.NewReaderSize(conn, readBufferSize),
		db:      db,
		metrics: metrics,
		logger:  logger.With(zap.Uint64("session", id), zap.Stringer("remote", conn.RemoteAddr())),
		state:   stateAwaitingHeader,
	}
}

// Run serves frames until the peer disconnects, an I/O operation fails or an
// unrecognised frame arrives. The connection is closed on return.
func (s *Session) Run() {
	defer s.conn.Close()

	s.logger.Debug("Session started")
	for s.state != stateClosed {
		switch s.state {
		case stateAwaitingHeader:
			s.state = s.readHeader()
		case stateAwaitingBody:
			s.state = s.readBody()
		case stateDispatching:
			s.state = s.dispatch()
		}
	}
	s.logger.Debug("Session closed")
}

// Close aborts the session from another goroutine
func (s *Session) Close() error {
	return s.conn.Close()
}

func (s *Session) readHeader() sessionState {
	if _, err := io.ReadFull(s.reader, s.rawHeader[:]); err != nil {
		s.transportError("read header", err)
		return stateClosed
	}

	h, err := protocol.DecodeHeader(s.rawHeader[:])
	if err != nil {
		// no error frame is sent for unrecognised input
		s.metrics.protocolErrors.Inc()
		s.logger.Debug("Dropping connection on unrecognized frame", zap.Error(err))
		return stateClosed
	}
	s.header = h

	return stateAwaitingBody
}

func (s *Session) readBody() sessionState {
	// the buffer grows with the bytes that actually arrive, never with the
	// declared length alone
	s.body.Reset()
	if _, err := io.CopyN(&s.body, s.reader, int64(protocol.BodyLength(s.rawHeader[:]))); err != nil {
		s.transportError("read body", err)
		return stateClosed
	}

	return stateDispatching
}

func (s *Session) dispatch() sessionState {
	status, body, err := s.execute()
	if err != nil {
		s.metrics.protocolErrors.Inc()
		s.logger.Debug("Dropping connection on malformed body",
			zap.Stringer("opcode", s.header.Opcode), zap.Error(err))
		return stateClosed
	}

	if _, err := s.conn.Write(protocol.EncodeResponse(status, body)); err != nil {
		s.transportError("write response", err)
		return stateClosed
	}

	return stateAwaitingHeader
}

// execute runs the decoded request against the cache. Only body decoding can
// fail; a miss is a regular response.
func (s *Session) execute() (protocol.Status, []byte, error) {
	switch s.header.Opcode {
	case protocol.OpGet:
		key, err := protocol.DecodeGetBody(s.header, s.body.Bytes())
		if err != nil {
			return 0, nil, err
		}
		value, err := s.db.Get(key)
		if errors.Is(err, store.ErrKeyNotFound) {
			s.metrics.getMisses.Inc()
			return protocol.StatusKeyNotFound, notFoundBody, nil
		}
		if err != nil {
			return 0, nil, err
		}
		s.metrics.getHits.Inc()
		return protocol.StatusNoError, value, nil

	case protocol.OpSet:
		req, err := protocol.DecodeSetBody(s.header, s.body.Bytes())
		if err != nil {
			return 0, nil, err
		}
		s.db.Set(req.Key, req.Flags, req.Value)
		s.metrics.sets.Inc()
		return protocol.StatusNoError, nil, nil
	}

	return 0, nil, protocol.ErrUnknownOpcode
}

func (s *Session) transportError(op string, err error) {
	if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
		s.logger.Debug("Peer went away", zap.String("op", op), zap.Stringer("state", s.state))
		return
	}
	s.logger.Warn("Connection error", zap.String("op", op), zap.Stringer("state", s.state), zap.Error(err))
}
