// Package tcpclient implements a pooled TCP client for newline-delimited
// request protocols whose responses arrive as length-prefixed frames.
package tcpclient

import (
	"bufio"
	"context"
	"crypto/tls"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

var (
	ErrConnectionClosed = errors.New("connection is closed")
	ErrTimeout          = errors.New("operation timed out")
)

// Response frames above this size are treated as protocol corruption.
const maxFrameSize = 64 << 20

type TCPClient struct {
	address     string
	timeout     time.Duration
	maxRetries  int
	connections chan net.Conn
	tlsConfig   *tls.Config
	logger      *zap.Logger

	mu     sync.Mutex
	closed bool
}

type TCPClientOption func(*TCPClient)

func WithTLS(config *tls.Config) TCPClientOption {
	return func(c *TCPClient) {
		c.tlsConfig = config
	}
}

func WithLogger(logger *zap.Logger) TCPClientOption {
	return func(c *TCPClient) {
		c.logger = logger
	}
}

func NewTCPClient(address string, timeout time.Duration, poolSize int, opts ...TCPClientOption) (*TCPClient, error) {
	client := &TCPClient{
		address:     address,
		timeout:     timeout,
		maxRetries:  3,
		connections: make(chan net.Conn, poolSize),
		logger:      zap.NewNop(),
	}

	for _, opt := range opts {
		opt(client)
	}

	for i := 0; i < poolSize; i++ {
		conn, err := client.dial()
		if err != nil {
			client.Close()
			return nil, fmt.Errorf("failed to initialize connection pool: %w", err)
		}
		client.connections <- conn
	}

	return client, nil
}

func (c *TCPClient) dial() (net.Conn, error) {
	dialer := &net.Dialer{Timeout: c.timeout}
	if c.tlsConfig != nil {
		return tls.DialWithDialer(dialer, "tcp", c.address, c.tlsConfig)
	}
	return dialer.Dial("tcp", c.address)
}

// Call sends one newline-terminated payload and reads the length-prefixed
// response, holding a single pooled connection for the whole exchange so
// responses cannot cross between concurrent callers.
func (c *TCPClient) Call(ctx context.Context, payload string) ([]byte, error) {
	var err error
	var resp []byte
	for i := 0; i < c.maxRetries; i++ {
		if resp, err = c.call(ctx, payload); err == nil {
			return resp, nil
		}

		if errors.Is(err, ErrConnectionClosed) || ctx.Err() != nil {
			break
		}

		c.logger.Warn("Call failed, retrying", zap.Error(err), zap.Int("attempt", i+1))
	}

	return nil, fmt.Errorf("call failed: %w", err)
}

func (c *TCPClient) call(ctx context.Context, payload string) ([]byte, error) {
	conn, err := c.getConnection(ctx)
	if err != nil {
		return nil, err
	}

	resp, err := c.exchange(ctx, conn, payload)
	if err != nil {
		c.releaseConnection(c.replaceConnection(conn))
		return nil, err
	}

	c.releaseConnection(conn)
	return resp, nil
}

func (c *TCPClient) exchange(ctx context.Context, conn net.Conn, payload string) ([]byte, error) {
	c.applyDeadline(ctx, conn)
	defer conn.SetDeadline(time.Time{})

	if err := writeLine(conn, payload); err != nil {
		return nil, err
	}

	header := make([]byte, 4)
	if _, err := io.ReadFull(conn, header); err != nil {
		return nil, fmt.Errorf("failed to read response size: %w", err)
	}

	size := binary.BigEndian.Uint32(header)
	if size > maxFrameSize {
		return nil, fmt.Errorf("response frame too large: %d bytes", size)
	}

	body := make([]byte, size)
	if _, err := io.ReadFull(conn, body); err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return body, nil
}

// HealthCheck sends PING and expects a PONG line back.
func (c *TCPClient) HealthCheck() error {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	conn, err := c.getConnection(ctx)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}

	line, err := c.exchangeLine(ctx, conn, "PING")
	if err != nil {
		c.releaseConnection(c.replaceConnection(conn))
		return fmt.Errorf("health check failed: %w", err)
	}

	c.releaseConnection(conn)

	if strings.TrimSpace(line) != "PONG" {
		return fmt.Errorf("unexpected health check response: %q", line)
	}

	return nil
}

func (c *TCPClient) exchangeLine(ctx context.Context, conn net.Conn, payload string) (string, error) {
	c.applyDeadline(ctx, conn)
	defer conn.SetDeadline(time.Time{})

	if err := writeLine(conn, payload); err != nil {
		return "", err
	}

	line, err := bufio.NewReader(conn).ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	return line, nil
}

func (c *TCPClient) applyDeadline(ctx context.Context, conn net.Conn) {
	if deadline, ok := ctx.Deadline(); ok {
		conn.SetDeadline(deadline)
	} else if c.timeout > 0 {
		conn.SetDeadline(time.Now().Add(c.timeout))
	}
}

func writeLine(conn net.Conn, payload string) error {
	writer := bufio.NewWriter(conn)
	if _, err := writer.WriteString(payload + "\n"); err != nil {
		return fmt.Errorf("failed to send payload: %w", err)
	}

	if err := writer.Flush(); err != nil {
		return fmt.Errorf("failed to flush payload: %w", err)
	}

	return nil
}

func (c *TCPClient) getConnection(ctx context.Context) (net.Conn, error) {
	select {
	case conn, ok := <-c.connections:
		if !ok {
			return nil, ErrConnectionClosed
		}
		return conn, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(c.timeout):
		return nil, ErrTimeout
	}
}

func (c *TCPClient) releaseConnection(conn net.Conn) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		conn.Close()
		return
	}

	c.connections <- conn
}

// replaceConnection swaps a connection that saw a transport error for a
// fresh one. When redial fails the broken connection goes back so callers
// fail fast instead of draining the pool.
func (c *TCPClient) replaceConnection(conn net.Conn) net.Conn {
	conn.Close()

	fresh, err := c.dial()
	if err != nil {
		c.logger.Warn("Failed to replace connection", zap.Error(err))
		return conn
	}

	return fresh
}

func (c *TCPClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true

	close(c.connections)
	for conn := range c.connections {
		if err := conn.Close(); err != nil {
			c.logger.Error("Failed to close connection", zap.Error(err))
		}
	}

	return nil
}
