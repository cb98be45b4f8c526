package server

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/himakhaitan/memkv/client"
	"github.com/himakhaitan/memkv/engine"
	"github.com/himakhaitan/memkv/pkg/config"
	"github.com/himakhaitan/memkv/protocol"
	"github.com/himakhaitan/memkv/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func testConfig() *config.Config {
	return &config.Config{
		Addr:           "127.0.0.1:0",
		TCPNoDelay:     true,
		KeepAlive:      time.Minute,
		ReadBufferSize: 4096,
	}
}

func startTestListener(t *testing.T) (*Listener, *engine.DB) {
	t.Helper()
	db := engine.NewDB(store.New())
	l := NewListener(testConfig(), db, NewMetrics(), zaptest.NewLogger(t))
	require.NoError(t, l.Listen(context.Background()))

	done := make(chan error, 1)
	go func() { done <- l.Serve() }()

	t.Cleanup(func() {
		assert.NoError(t, l.Close())
		assert.NoError(t, <-done)
	})
	return l, db
}

func dialTest(t *testing.T, l *Listener) *client.Client {
	t.Helper()
	c, err := client.Dial(context.Background(), l.Addr().String())
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func TestListener_RoundTrip(t *testing.T) {
	l, _ := startTestListener(t)
	c := dialTest(t, l)

	tests := []struct {
		name  string
		key   []byte
		flags [4]byte
		value []byte
	}{
		{"Simple", []byte("foo"), [4]byte{'A', 'A', 'A', 'A'}, []byte("bar")},
		{"EmptyValue", []byte("empty"), [4]byte{0, 0, 0, 9}, []byte{}},
		{"EmptyKey", []byte{}, [4]byte{1, 1, 1, 1}, []byte("no key")},
		{"BinaryValue", []byte{0x00, 0xff}, [4]byte{}, []byte{0x00, 0x80, 0x81, 0xff}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, c.Set(tt.key, tt.flags, tt.value))

			flags, value, err := c.Get(tt.key)
			require.NoError(t, err)
			assert.Equal(t, tt.flags, flags)
			assert.Equal(t, len(tt.value), len(value))
			assert.True(t, bytes.Equal(tt.value, value))
		})
	}
}

func TestListener_Overwrite(t *testing.T) {
	l, _ := startTestListener(t)
	c := dialTest(t, l)

	require.NoError(t, c.Set([]byte("k"), [4]byte{1}, []byte("first value")))
	require.NoError(t, c.Set([]byte("k"), [4]byte{2}, []byte("v2")))

	flags, value, err := c.Get([]byte("k"))
	require.NoError(t, err)
	assert.Equal(t, [4]byte{2}, flags)
	assert.Equal(t, []byte("v2"), value)
}

func TestListener_Miss(t *testing.T) {
	l, _ := startTestListener(t)
	c := dialTest(t, l)

	_, _, err := c.Get([]byte("never-set"))
	assert.ErrorIs(t, err, client.ErrKeyNotFound)
}

func TestListener_KeyIsolation(t *testing.T) {
	l, _ := startTestListener(t)
	c := dialTest(t, l)

	require.NoError(t, c.Set([]byte("k2"), [4]byte{}, []byte("v2")))
	require.NoError(t, c.Set([]byte("k1"), [4]byte{}, []byte("v1")))

	_, v1, err := c.Get([]byte("k1"))
	require.NoError(t, err)
	_, v2, err := c.Get([]byte("k2"))
	require.NoError(t, err)
	assert.Equal(t, []byte("v1"), v1)
	assert.Equal(t, []byte("v2"), v2)
}

func TestListener_SharedAcrossConnections(t *testing.T) {
	l, _ := startTestListener(t)
	writer := dialTest(t, l)
	reader := dialTest(t, l)

	require.NoError(t, writer.Set([]byte("shared"), [4]byte{}, []byte("yes")))

	_, value, err := reader.Get([]byte("shared"))
	require.NoError(t, err)
	assert.Equal(t, []byte("yes"), value)
}

func TestListener_EndToEndWireBytes(t *testing.T) {
	l, db := startTestListener(t)
	conn, err := net.Dial("tcp", l.Addr().String())
	require.NoError(t, err)
	defer conn.Close()

	set := []byte{
		0x80, 0x01, 0x00, 0x03, 0x04, 0x00, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x0B, 0x00, 0x00, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	}
	set = append(set, []byte("AAAAfoobar")...)
	_, err = conn.Write(set)
	require.NoError(t, err)

	ack := make([]byte, protocol.HeaderLen)
	_, err = io.ReadFull(conn, ack)
	require.NoError(t, err)
	assert.Equal(t, byte(0x81), ack[0])
	assert.Equal(t, []byte{0x00, 0x00}, ack[6:8])
	assert.Equal(t, uint32(0), protocol.BodyLength(ack))

	stored, err := db.Get([]byte("foo"))
	require.NoError(t, err)
	assert.Equal(t, []byte("AAAAbar"), stored)

	_, err = conn.Write(protocol.EncodeRequest(protocol.OpGet, nil, []byte("foo"), nil))
	require.NoError(t, err)
	resp := make([]byte, protocol.HeaderLen+7)
	_, err = io.ReadFull(conn, resp)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x00, 0x00}, resp[6:8])
	assert.Equal(t, byte(4), resp[4])
	assert.Equal(t, []byte("AAAAbar"), resp[protocol.HeaderLen:])
}

func TestListener_PipelinedSetThenGet(t *testing.T) {
	l, _ := startTestListener(t)
	conn, err := net.Dial("tcp", l.Addr().String())
	require.NoError(t, err)
	defer conn.Close()

	// both frames in one write, before reading anything
	batch := append(
		protocol.EncodeRequest(protocol.OpSet, []byte("FLAG"), []byte("pipe"), []byte("fresh")),
		protocol.EncodeRequest(protocol.OpGet, nil, []byte("pipe"), nil)...,
	)
	_, err = conn.Write(batch)
	require.NoError(t, err)

	setResp := make([]byte, protocol.HeaderLen)
	_, err = io.ReadFull(conn, setResp)
	require.NoError(t, err)

	getResp := make([]byte, protocol.HeaderLen+len("FLAGfresh"))
	_, err = io.ReadFull(conn, getResp)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x00, 0x00}, getResp[6:8])
	assert.Equal(t, []byte("FLAGfresh"), getResp[protocol.HeaderLen:])
}

func TestListener_MalformedFrameClosesConnection(t *testing.T) {
	l, _ := startTestListener(t)

	for name, mutate := range map[string]func([]byte){
		"BadMagic":      func(f []byte) { f[0] = 0x42 },
		"UnknownOpcode": func(f []byte) { f[1] = 0x0a },
	} {
		t.Run(name, func(t *testing.T) {
			conn, err := net.Dial("tcp", l.Addr().String())
			require.NoError(t, err)
			defer conn.Close()

			frame := protocol.EncodeRequest(protocol.OpGet, nil, nil, nil)
			mutate(frame)
			_, err = conn.Write(frame)
			require.NoError(t, err)

			require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
			data, err := io.ReadAll(conn)
			assert.NoError(t, err, "server should close the connection cleanly")
			assert.Empty(t, data, "no response bytes may be written")
		})
	}

	// the listener keeps serving other connections
	c := dialTest(t, l)
	require.NoError(t, c.Set([]byte("still"), [4]byte{}, []byte("up")))
}

func TestListener_ConcurrentDistinctKeys(t *testing.T) {
	l, db := startTestListener(t)

	const clients = 32
	var wg sync.WaitGroup
	errs := make(chan error, clients)
	for i := 0; i < clients; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c, err := client.Dial(context.Background(), l.Addr().String())
			if err != nil {
				errs <- err
				return
			}
			defer c.Close()
			key := []byte(fmt.Sprintf("key-%d", i))
			errs <- c.Set(key, [4]byte{byte(i)}, []byte(fmt.Sprintf("value-%d", i)))
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	assert.Equal(t, clients, db.Stats().TotalKeys)
	c := dialTest(t, l)
	for i := 0; i < clients; i++ {
		flags, value, err := c.Get([]byte(fmt.Sprintf("key-%d", i)))
		require.NoError(t, err)
		assert.Equal(t, [4]byte{byte(i)}, flags)
		assert.Equal(t, []byte(fmt.Sprintf("value-%d", i)), value)
	}
}

func TestListener_SameKeyNeverTorn(t *testing.T) {
	l, _ := startTestListener(t)

	a := bytes.Repeat([]byte{'a'}, 8192)
	b := bytes.Repeat([]byte{'b'}, 8192)
	seed := dialTest(t, l)
	require.NoError(t, seed.Set([]byte("hot"), [4]byte{'a'}, a))

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c, err := client.Dial(context.Background(), l.Addr().String())
			if err != nil {
				return
			}
			defer c.Close()
			flags, value := [4]byte{'a'}, a
			if i%2 == 1 {
				flags, value = [4]byte{'b'}, b
			}
			for n := 0; n < 100; n++ {
				if err := c.Set([]byte("hot"), flags, value); err != nil {
					return
				}
			}
		}(i)
	}

	reader := dialTest(t, l)
	for n := 0; n < 200; n++ {
		flags, value, err := reader.Get([]byte("hot"))
		require.NoError(t, err)
		switch flags[0] {
		case 'a':
			assert.True(t, bytes.Equal(a, value), "flags and value must come from the same SET")
		case 'b':
			assert.True(t, bytes.Equal(b, value), "flags and value must come from the same SET")
		default:
			t.Fatalf("unexpected flags %v", flags)
		}
	}
	wg.Wait()
}

func activeGauge(m *Metrics) string {
	var buf bytes.Buffer
	m.WritePrometheus(&buf)
	for _, line := range strings.Split(buf.String(), "\n") {
		if strings.HasPrefix(line, "memkv_connections_active ") {
			return strings.TrimPrefix(line, "memkv_connections_active ")
		}
	}
	return ""
}

func TestListener_CloseEndsActiveSessions(t *testing.T) {
	db := engine.NewDB(store.New())
	metrics := NewMetrics()
	l := NewListener(testConfig(), db, metrics, zaptest.NewLogger(t))
	require.NoError(t, l.Listen(context.Background()))
	done := make(chan error, 1)
	go func() { done <- l.Serve() }()

	c, err := client.Dial(context.Background(), l.Addr().String())
	require.NoError(t, err)
	defer c.Close()
	require.NoError(t, c.Set([]byte("k"), [4]byte{}, []byte("v")))
	assert.Equal(t, 1, l.ActiveSessions())
	assert.Equal(t, "1", activeGauge(metrics), "gauge reads the session registry")

	require.NoError(t, l.Close())
	assert.NoError(t, <-done)
	assert.Equal(t, 0, l.ActiveSessions())
	assert.Equal(t, "0", activeGauge(metrics))

	_, _, err = c.Get([]byte("k"))
	assert.Error(t, err, "session connection should be closed")
	assert.NoError(t, l.Close(), "Close is idempotent")
}

func TestListener_BindFailure(t *testing.T) {
	l, _ := startTestListener(t)

	cfg := testConfig()
	cfg.Addr = l.Addr().String()
	other := NewListener(cfg, engine.NewDB(store.New()), NewMetrics(), zaptest.NewLogger(t))

	err := other.Listen(context.Background())
	assert.Error(t, err)
	assert.Nil(t, other.Addr())
}

func TestListener_ServeWithoutListen(t *testing.T) {
	l := NewListener(testConfig(), engine.NewDB(store.New()), NewMetrics(), zaptest.NewLogger(t))
	assert.ErrorIs(t, l.Serve(), ErrNotListening)
}

func TestListener_ServeStopsWhenSocketClosedExternally(t *testing.T) {
	l := NewListener(testConfig(), engine.NewDB(store.New()), NewMetrics(), zaptest.NewLogger(t))
	require.NoError(t, l.Listen(context.Background()))
	done := make(chan error, 1)
	go func() { done <- l.Serve() }()

	require.NoError(t, l.ln.Close())

	select {
	case err := <-done:
		assert.ErrorIs(t, err, net.ErrClosed)
	case <-time.After(2 * time.Second):
		t.Fatal("Serve kept retrying on a closed socket")
	}
	assert.NoError(t, l.Close())
}
