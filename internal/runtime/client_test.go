package runtime

import (
	"bufio"
	"context"
	"encoding/binary"
	"encoding/json"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/glyphworks/ocr-server/internal/ocr/engine"
	"github.com/glyphworks/ocr-server/pkg/tcpclient"
)

type requestLog struct {
	mu   sync.Mutex
	reqs []Request
}

func (l *requestLog) add(req Request) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.reqs = append(l.reqs, req)
}

func (l *requestLog) all() []Request {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Request(nil), l.reqs...)
}

// startSidecar runs a fake runtime answering MODEL: commands with respond's
// result and records every decoded request.
func startSidecar(t *testing.T, respond func(req Request) Response) (string, *requestLog) {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	log := &requestLog{}

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

					payload := strings.TrimSuffix(line, "\n")
					if !strings.HasPrefix(payload, commandPrefix) {
						return
					}

					var req Request
					if err := json.Unmarshal([]byte(strings.TrimPrefix(payload, commandPrefix)), &req); err != nil {
						return
					}
					log.add(req)

					body, _ := json.Marshal(respond(req))
					header := make([]byte, 4)
					binary.BigEndian.PutUint32(header, uint32(len(body)))
					conn.Write(header)
					conn.Write(body)
				}
			}(conn)
		}
	}()

	return ln.Addr().String(), log
}

func newTestClient(t *testing.T, addr string) *Client {
	t.Helper()

	tcp, err := tcpclient.NewTCPClient(addr, time.Second, 1)
	require.NoError(t, err)
	t.Cleanup(func() { tcp.Close() })

	return NewClient(tcp, "deepseek-ai/DeepSeek-OCR")
}

func TestClientLoad(t *testing.T) {
	addr, seen := startSidecar(t, func(req Request) Response {
		return Response{Success: true, Message: "loaded"}
	})
	client := newTestClient(t, addr)

	require.NoError(t, client.Load(context.Background()))

	reqs := seen.all()
	require.Len(t, reqs, 1)
	require.Equal(t, CommandLoad, reqs[0].Command)
	require.Equal(t, "deepseek-ai/DeepSeek-OCR", reqs[0].ModelID)
}

func TestClientLoadFailure(t *testing.T) {
	addr, _ := startSidecar(t, func(req Request) Response {
		return Response{Success: false, Error: "weights not found"}
	})
	client := newTestClient(t, addr)

	err := client.Load(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "weights not found")
}

func TestClientInfer(t *testing.T) {
	text := "recognized"
	addr, seen := startSidecar(t, func(req Request) Response {
		return Response{Success: true, Text: &text}
	})
	client := newTestClient(t, addr)

	got, err := client.Infer(context.Background(), engine.InferArgs{
		Prompt:     "<image>\nFree OCR.",
		ImagePath:  "/tmp/page.jpg",
		OutputPath: "/tmp/scratch",
		BaseSize:   1024,
		ImageSize:  640,
		CropMode:   true,
	})

	require.NoError(t, err)
	require.Equal(t, "recognized", got)

	req := seen.all()[0]
	require.Equal(t, CommandInfer, req.Command)
	require.Equal(t, "/tmp/page.jpg", req.ImagePath)
	require.Equal(t, "/tmp/scratch", req.OutputPath)
	require.Equal(t, 1024, req.BaseSize)
	require.Equal(t, 640, req.ImageSize)
	require.True(t, req.CropMode)
}

func TestClientInferEmptyTextIsValid(t *testing.T) {
	text := ""
	addr, _ := startSidecar(t, func(req Request) Response {
		return Response{Success: true, Text: &text}
	})
	client := newTestClient(t, addr)

	got, err := client.Infer(context.Background(), engine.InferArgs{Prompt: "p"})
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestClientInferMissingTextFails(t *testing.T) {
	addr, _ := startSidecar(t, func(req Request) Response {
		return Response{Success: true}
	})
	client := newTestClient(t, addr)

	_, err := client.Infer(context.Background(), engine.InferArgs{Prompt: "p"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "no result")
}

func TestClientUnload(t *testing.T) {
	addr, seen := startSidecar(t, func(req Request) Response {
		return Response{Success: true}
	})
	client := newTestClient(t, addr)

	require.NoError(t, client.Unload(context.Background()))
	require.Equal(t, CommandUnload, seen.all()[0].Command)
}

func TestWaitReady(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			conn.Close()
		}
	}()

	require.NoError(t, WaitReady(context.Background(), ln.Addr().String(), 5*time.Second))
}

func TestWaitReadyTimesOut(t *testing.T) {
	err := WaitReady(context.Background(), "127.0.0.1:1", 300*time.Millisecond)
	require.Error(t, err)
}
