// Package client is the public API for talking to a miniredis server,
// adapted from original_source/protocol.py's Client class: a small pool
// of persistent connections behind a lock, one method per command, plus
// an Execute escape hatch for anything not wrapped explicitly.
package client

import (
	"bufio"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/BenLin0/miniredis/internal/server"
)

// Value re-exports the wire value type so callers never need to import
// the internal package directly.
type Value = server.Value

var (
	NullValue  = server.NullValue
	StrValue   = server.StrValue
	BytesValue = server.BytesValue
	IntValue   = server.IntValue
	FloatValue = server.FloatValue
)

// CommandError wraps an Error-kind reply returned by the server, mirroring
// the Python client raising CommandError on an Error response.
type CommandError struct {
	Message string
}

func (e *CommandError) Error() string { return e.Message }

type conn struct {
	nc     net.Conn
	reader *bufio.Reader
	writer *bufio.Writer
}

// Client is a pooled connection to a miniredis server. Requests rotate
// across the pooled sockets, one request/reply round trip at a time under
// the client's mutex; a single Client is safe for concurrent use.
type Client struct {
	mu    sync.Mutex
	codec *server.Codec
	pool  []*conn
	next  int
	host  string
	port  int
}

// Dial connects poolSize sockets to host:port. poolSize must be at least
// 1; a value of 0 or less defaults to 2, matching the teacher's default.
func Dial(host string, port int, poolSize int) (*Client, error) {
	if poolSize <= 0 {
		poolSize = 2
	}
	bp := server.NewBytePool()
	c := &Client{
		codec: server.NewCodec(bp),
		host:  host,
		port:  port,
	}
	for i := 0; i < poolSize; i++ {
		nc, err := net.Dial("tcp", fmt.Sprintf("%s:%d", host, port))
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("miniredis client: dial %s:%d: %w", host, port, err)
		}
		c.pool = append(c.pool, &conn{
			nc:     nc,
			reader: bufio.NewReader(nc),
			writer: bufio.NewWriter(nc),
		})
	}
	return c, nil
}

// Close shuts down every pooled connection. Unlike the Python client's
// close (a documented no-op), this one actually releases the sockets.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	var firstErr error
	for _, cn := range c.pool {
		if err := cn.nc.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	c.pool = nil
	return firstErr
}

// Execute sends one command frame and returns its reply. Every typed
// helper below calls through it, except BLPop/BRPop, which use
// ExecuteTimeout.
func (c *Client) Execute(command string, args ...Value) (Value, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.pool) == 0 {
		return Value{}, fmt.Errorf("miniredis client: no connections available")
	}
	cn := c.pool[c.next%len(c.pool)]
	c.next++

	frame := make([]Value, 0, len(args)+1)
	frame = append(frame, StrValue(command))
	frame = append(frame, args...)

	if err := c.codec.Encode(cn.writer, server.ListValue(frame)); err != nil {
		return Value{}, fmt.Errorf("miniredis client: write: %w", err)
	}
	reply, err := c.codec.Decode(cn.reader)
	if err != nil {
		return Value{}, fmt.Errorf("miniredis client: read: %w", err)
	}
	if reply.Kind == server.KindError {
		return Value{}, &CommandError{Message: reply.AsError()}
	}
	return reply, nil
}

// ExecuteTimeout is Execute with a deadline applied to both the write and
// the read, for BLPOP/BRPOP callers that don't want to block forever if
// the server itself hangs.
func (c *Client) ExecuteTimeout(timeout time.Duration, command string, args ...Value) (Value, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.pool) == 0 {
		return Value{}, fmt.Errorf("miniredis client: no connections available")
	}
	cn := c.pool[c.next%len(c.pool)]
	c.next++

	deadline := time.Now().Add(timeout)
	cn.nc.SetDeadline(deadline)
	defer cn.nc.SetDeadline(time.Time{})

	frame := make([]Value, 0, len(args)+1)
	frame = append(frame, StrValue(command))
	frame = append(frame, args...)

	if err := c.codec.Encode(cn.writer, server.ListValue(frame)); err != nil {
		return Value{}, fmt.Errorf("miniredis client: write: %w", err)
	}
	reply, err := c.codec.Decode(cn.reader)
	if err != nil {
		return Value{}, fmt.Errorf("miniredis client: read: %w", err)
	}
	if reply.Kind == server.KindError {
		return Value{}, &CommandError{Message: reply.AsError()}
	}
	return reply, nil
}

func (c *Client) Get(key string) (Value, error) { return c.Execute("GET", StrValue(key)) }

func (c *Client) Set(key string, value Value) (Value, error) {
	return c.Execute("SET", StrValue(key), value)
}

func (c *Client) Delete(key string) (Value, error) { return c.Execute("DELETE", StrValue(key)) }

func (c *Client) Flush() (Value, error) { return c.Execute("FLUSH") }

func (c *Client) MGet(keys ...string) (Value, error) {
	args := make([]Value, len(keys))
	for i, k := range keys {
		args[i] = StrValue(k)
	}
	return c.Execute("MGET", args...)
}

func (c *Client) MSet(pairs map[string]Value) (Value, error) {
	args := make([]Value, 0, len(pairs)*2)
	for k, v := range pairs {
		args = append(args, StrValue(k), v)
	}
	return c.Execute("MSET", args...)
}

func (c *Client) LPush(key string, values ...Value) (Value, error) {
	args := append([]Value{StrValue(key)}, values...)
	return c.Execute("LPUSH", args...)
}

func (c *Client) RPush(key string, values ...Value) (Value, error) {
	args := append([]Value{StrValue(key)}, values...)
	return c.Execute("RPUSH", args...)
}

func (c *Client) LPop(key string) (Value, error) { return c.Execute("LPOP", StrValue(key)) }
func (c *Client) RPop(key string) (Value, error) { return c.Execute("RPOP", StrValue(key)) }
func (c *Client) LLen(key string) (Value, error) { return c.Execute("LLEN", StrValue(key)) }

// BLPop/BRPop block on the server side, so the client's read deadline
// needs enough headroom over the requested timeout to avoid racing the
// server's own timer.
func (c *Client) BLPop(key string, timeoutSeconds int64) (Value, error) {
	return c.ExecuteTimeout(time.Duration(timeoutSeconds+5)*time.Second,
		"BLPOP", StrValue(key), IntValue(timeoutSeconds))
}

func (c *Client) BRPop(key string, timeoutSeconds int64) (Value, error) {
	return c.ExecuteTimeout(time.Duration(timeoutSeconds+5)*time.Second,
		"BRPOP", StrValue(key), IntValue(timeoutSeconds))
}

func (c *Client) Expire(key string, seconds int64) (Value, error) {
	return c.Execute("EXPIRE", StrValue(key), IntValue(seconds))
}

func (c *Client) TTL(key string) (Value, error) { return c.Execute("TTL", StrValue(key)) }

func (c *Client) Persist(key string) (Value, error) { return c.Execute("PERSIST", StrValue(key)) }

func (c *Client) Info() (Value, error) { return c.Execute("INFO") }
