package server

import (
	"bufio"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// e2eConn is a minimal hand-rolled wire client for exercising the real
// net.Listener accept loop, independent of the client package (which has
// its own tests against the same server).
type e2eConn struct {
	nc     net.Conn
	reader *bufio.Reader
	writer *bufio.Writer
	codec  *Codec
}

func dialE2E(t *testing.T, addr string) *e2eConn {
	t.Helper()
	nc, err := net.DialTimeout("tcp", addr, 2*time.Second)
	require.NoError(t, err)
	return &e2eConn{
		nc:     nc,
		reader: bufio.NewReader(nc),
		writer: bufio.NewWriter(nc),
		codec:  NewCodec(NewBytePool()),
	}
}

func (c *e2eConn) send(t *testing.T, command string, args ...Value) Value {
	t.Helper()
	frame := append([]Value{StrValue(command)}, args...)
	require.NoError(t, c.codec.Encode(c.writer, ListValue(frame)))
	v, err := c.codec.Decode(c.reader)
	require.NoError(t, err)
	return v
}

func startTestServer(t *testing.T) (addr string, stop func()) {
	t.Helper()
	s := NewServer(0)
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	addrStr := listener.Addr().String()
	go s.ServeOn(listener)

	return addrStr, func() { s.Stop() }
}

func TestEndToEndSetGetRoundTrip(t *testing.T) {
	addr, stop := startTestServer(t)
	defer stop()

	c := dialE2E(t, addr)
	defer c.nc.Close()

	reply := c.send(t, "SET", StrValue("greeting"), StrValue("hello"))
	require.Equal(t, int64(1), reply.AsInt())

	reply = c.send(t, "GET", StrValue("greeting"))
	require.Equal(t, "hello", reply.AsStr())
}

func TestEndToEndGetMissingKeyIsNull(t *testing.T) {
	addr, stop := startTestServer(t)
	defer stop()

	c := dialE2E(t, addr)
	defer c.nc.Close()

	reply := c.send(t, "GET", StrValue("nope"))
	require.True(t, reply.IsNull())
}

func TestEndToEndListOrder(t *testing.T) {
	addr, stop := startTestServer(t)
	defer stop()

	c := dialE2E(t, addr)
	defer c.nc.Close()

	c.send(t, "RPUSH", StrValue("q"), IntValue(1), IntValue(2), IntValue(3))
	require.Equal(t, int64(1), c.send(t, "LPOP", StrValue("q")).AsInt())
	require.Equal(t, int64(3), c.send(t, "RPOP", StrValue("q")).AsInt())
}

func TestEndToEndBLPopUnblockedFromAnotherConnection(t *testing.T) {
	addr, stop := startTestServer(t)
	defer stop()

	pusher := dialE2E(t, addr)
	defer pusher.nc.Close()
	popper := dialE2E(t, addr)
	defer popper.nc.Close()

	done := make(chan Value, 1)
	go func() {
		done <- popper.send(t, "BLPOP", StrValue("q"), IntValue(5))
	}()

	time.Sleep(50 * time.Millisecond)
	pusher.send(t, "RPUSH", StrValue("q"), StrValue("woken"))

	select {
	case reply := <-done:
		require.Equal(t, "woken", reply.AsStr())
	case <-time.After(time.Second):
		t.Fatal("BLPOP was not unblocked within 1s of the push")
	}
}

func TestEndToEndExpireTTLPersist(t *testing.T) {
	addr, stop := startTestServer(t)
	defer stop()

	c := dialE2E(t, addr)
	defer c.nc.Close()

	c.send(t, "SET", StrValue("k"), StrValue("v"))
	require.Equal(t, int64(-1), c.send(t, "TTL", StrValue("k")).AsInt())

	c.send(t, "EXPIRE", StrValue("k"), IntValue(30))
	require.Equal(t, int64(30), c.send(t, "TTL", StrValue("k")).AsInt())

	c.send(t, "PERSIST", StrValue("k"))
	require.Equal(t, int64(-1), c.send(t, "TTL", StrValue("k")).AsInt())
}

func TestEndToEndMalformedFrameClosesConnection(t *testing.T) {
	addr, stop := startTestServer(t)
	defer stop()

	nc, err := net.DialTimeout("tcp", addr, 2*time.Second)
	require.NoError(t, err)
	defer nc.Close()

	_, err = nc.Write([]byte("!bogus\r\n"))
	require.NoError(t, err)

	nc.SetReadDeadline(time.Now().Add(time.Second))
	buf := make([]byte, 1)
	_, err = nc.Read(buf)
	require.Error(t, err) // connection closed, not a protocol reply
}
