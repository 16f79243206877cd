package tcpclient

import (
	"bufio"
	"context"
	"encoding/binary"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// startServer runs a line-oriented server that hands every received line to
// handle along with the connection to answer on.
func startServer(t *testing.T, handle func(line string, conn net.Conn)) string {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}

			go func(conn net.Conn) {
				defer conn.Close()

				reader := bufio.NewReader(conn)
				for {
					line, err := reader.ReadString('\n')
					if err != nil {
						return
					}

					handle(strings.TrimSpace(line), conn)
				}
			}(conn)
		}
	}()

	return ln.Addr().String()
}

func writeFrame(conn net.Conn, body []byte) {
	header := make([]byte, 4)
	binary.BigEndian.PutUint32(header, uint32(len(body)))
	conn.Write(header)
	conn.Write(body)
}

func TestCallRoundTrip(t *testing.T) {
	addr := startServer(t, func(line string, conn net.Conn) {
		writeFrame(conn, []byte(`{"echo":"`+line+`"}`))
	})

	client, err := NewTCPClient(addr, time.Second, 1)
	require.NoError(t, err)
	defer client.Close()

	resp, err := client.Call(context.Background(), "hello")
	require.NoError(t, err)
	require.Equal(t, `{"echo":"hello"}`, string(resp))
}

func TestCallSequentialRequestsReuseConnection(t *testing.T) {
	addr := startServer(t, func(line string, conn net.Conn) {
		writeFrame(conn, []byte(line))
	})

	client, err := NewTCPClient(addr, time.Second, 1)
	require.NoError(t, err)
	defer client.Close()

	for _, msg := range []string{"one", "two", "three"} {
		resp, err := client.Call(context.Background(), msg)
		require.NoError(t, err)
		require.Equal(t, msg, string(resp))
	}
}

func TestHealthCheck(t *testing.T) {
	addr := startServer(t, func(line string, conn net.Conn) {
		if line == "PING" {
			conn.Write([]byte("PONG\n"))
		}
	})

	client, err := NewTCPClient(addr, time.Second, 1)
	require.NoError(t, err)
	defer client.Close()

	require.NoError(t, client.HealthCheck())
}

func TestCallAfterClose(t *testing.T) {
	addr := startServer(t, func(line string, conn net.Conn) {
		writeFrame(conn, []byte(line))
	})

	client, err := NewTCPClient(addr, time.Second, 1)
	require.NoError(t, err)
	require.NoError(t, client.Close())

	_, err = client.Call(context.Background(), "hello")
	require.ErrorIs(t, err, ErrConnectionClosed)
}

func TestCallTimesOutOnSilentServer(t *testing.T) {
	addr := startServer(t, func(line string, conn net.Conn) {
		// Swallow the request.
	})

	client, err := NewTCPClient(addr, 50*time.Millisecond, 1)
	require.NoError(t, err)
	defer client.Close()

	_, err = client.Call(context.Background(), "hello")
	require.Error(t, err)
}

func TestNewTCPClientUnreachable(t *testing.T) {
	_, err := NewTCPClient("127.0.0.1:1", 100*time.Millisecond, 1)
	require.Error(t, err)
}
