// Package client speaks the binary cache protocol to a memkv server.
//
// A Client issues one request at a time and waits for its response, which
// matches the server's one-in-flight ordering per connection. It is not safe
// for concurrent use; open one Client per goroutine.
package client

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/himakhaitan/memkv/protocol"
)

const defaultDialTimeout = 10 * time.Second

type Client struct {
	conn   net.Conn
	reader *bufio.Reader
	header [protocol.HeaderLen]byte
}

// Dial connects to the server at addr
func Dial(ctx context.Context, addr string) (*Client, error) {
	d := net.Dialer{Timeout: defaultDialTimeout}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	return New(conn), nil
}

// New wraps an established connection
func New(conn net.Conn) *Client {
	return &Client{
		conn:   conn,
		reader: bufio.NewReader(conn),
	}
}

// Get returns the flags and value stored under key
func (c *Client) Get(key []byte) ([protocol.FlagsLen]byte, []byte, error) {
	var flags [protocol.FlagsLen]byte

	h, body, err := c.roundTrip(protocol.EncodeRequest(protocol.OpGet, nil, key, nil))
	if err != nil {
		return flags, nil, err
	}

	switch h.Status {
	case protocol.StatusNoError:
		if len(body) < protocol.FlagsLen {
			return flags, nil, fmt.Errorf("%w: %d byte body", ErrMalformedResponse, len(body))
		}
		copy(flags[:], body[:protocol.FlagsLen])
		return flags, body[protocol.FlagsLen:], nil
	case protocol.StatusKeyNotFound:
		return flags, nil, ErrKeyNotFound
	default:
		return flags, nil, fmt.Errorf("%w: %s", ErrUnexpectedStatus, h.Status)
	}
}

// Set stores value with flags under key, replacing any previous value
func (c *Client) Set(key []byte, flags [protocol.FlagsLen]byte, value []byte) error {
	h, _, err := c.roundTrip(protocol.EncodeRequest(protocol.OpSet, flags[:], key, value))
	if err != nil {
		return err
	}
	if h.Status != protocol.StatusNoError {
		return fmt.Errorf("%w: %s", ErrUnexpectedStatus, h.Status)
	}
	return nil
}

func (c *Client) Close() error {
	return c.conn.Close()
}

func (c *Client) roundTrip(frame []byte) (protocol.Header, []byte, error) {
	if _, err := c.conn.Write(frame); err != nil {
		return protocol.Header{}, nil, fmt.Errorf("write request: %w", err)
	}

	if _, err := io.ReadFull(c.reader, c.header[:]); err != nil {
		return protocol.Header{}, nil, fmt.Errorf("read response header: %w", err)
	}
	h, err := protocol.DecodeResponseHeader(c.header[:])
	if err != nil {
		return protocol.Header{}, nil, err
	}

	body := make([]byte, h.BodyLength)
	if _, err := io.ReadFull(c.reader, body); err != nil {
		return protocol.Header{}, nil, fmt.Errorf("read response body: %w", err)
	}

	return h, body, nil
}
