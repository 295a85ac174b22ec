package client_test

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/BenLin0/miniredis/client"
	"github.com/BenLin0/miniredis/internal/server"
)

func startServer(t *testing.T) (host string, port int, stop func()) {
	t.Helper()
	s := server.NewServer(0)
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	addr := listener.Addr().(*net.TCPAddr)

	go s.ServeOn(listener)

	return "127.0.0.1", addr.Port, func() { listener.Close() }
}

func TestClientGetSet(t *testing.T) {
	host, port, stop := startServer(t)
	defer stop()

	c, err := client.Dial(host, port, 1)
	require.NoError(t, err)
	defer c.Close()

	_, err = c.Set("name", client.StrValue("miniredis"))
	require.NoError(t, err)

	v, err := c.Get("name")
	require.NoError(t, err)
	require.Equal(t, "miniredis", v.AsStr())
}

func TestClientMissingKeyIsNull(t *testing.T) {
	host, port, stop := startServer(t)
	defer stop()

	c, err := client.Dial(host, port, 1)
	require.NoError(t, err)
	defer c.Close()

	v, err := c.Get("missing")
	require.NoError(t, err)
	require.True(t, v.IsNull())
}

func TestClientListPushPop(t *testing.T) {
	host, port, stop := startServer(t)
	defer stop()

	c, err := client.Dial(host, port, 1)
	require.NoError(t, err)
	defer c.Close()

	_, err = c.RPush("q", client.IntValue(1), client.IntValue(2))
	require.NoError(t, err)

	v, err := c.LPop("q")
	require.NoError(t, err)
	require.Equal(t, int64(1), v.AsInt())
}

func TestClientBLPopUnblockedByAnotherClient(t *testing.T) {
	host, port, stop := startServer(t)
	defer stop()

	popper, err := client.Dial(host, port, 1)
	require.NoError(t, err)
	defer popper.Close()

	pusher, err := client.Dial(host, port, 1)
	require.NoError(t, err)
	defer pusher.Close()

	done := make(chan client.Value, 1)
	go func() {
		v, _ := popper.BLPop("q", 5)
		done <- v
	}()

	time.Sleep(50 * time.Millisecond)
	_, err = pusher.RPush("q", client.StrValue("go"))
	require.NoError(t, err)

	select {
	case v := <-done:
		require.Equal(t, "go", v.AsStr())
	case <-time.After(2 * time.Second):
		t.Fatal("BLPop did not unblock in time")
	}
}

func TestClientCloseActuallyClosesConnections(t *testing.T) {
	host, port, stop := startServer(t)
	defer stop()

	c, err := client.Dial(host, port, 1)
	require.NoError(t, err)
	require.NoError(t, c.Close())

	_, err = c.Get("anything")
	require.Error(t, err)
}
