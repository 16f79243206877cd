package runtime

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/glyphworks/ocr-server/internal/config"
	"github.com/glyphworks/ocr-server/pkg/logger"
)

const stopGracePeriod = 10 * time.Second

// Process supervises a sidecar launched from runtime.command.
type Process struct {
	cmd     *exec.Cmd
	cancel  context.CancelFunc
	done    chan struct{}
	waitErr error
}

// StartProcess launches the sidecar configured in runtime.command and
// forwards its output to the log. The sidecar inherits the environment plus
// the GLYPH_RUNTIME_* variables describing the port and model to serve.
func StartProcess(ctx context.Context, cfg *config.Config) (*Process, error) {
	if strings.TrimSpace(cfg.Runtime.Command) == "" {
		return nil, errors.New("runtime command is not configured")
	}

	parts := strings.Fields(cfg.Runtime.Command)
	ctx, cancel := context.WithCancel(ctx)

	cmd := exec.CommandContext(ctx, parts[0], parts[1:]...)
	cmd.Env = append(os.Environ(),
		fmt.Sprintf("GLYPH_RUNTIME_TCP_PORT=%d", cfg.Runtime.TcpPort),
		fmt.Sprintf("GLYPH_RUNTIME_MODEL_ID=%s", cfg.Model.ID),
		fmt.Sprintf("GLYPH_RUNTIME_MODELS_DIR=%s", cfg.ModelsDir),
	)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to pipe runtime stdout: %w", err)
	}

	stderr, err := cmd.StderrPipe()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to pipe runtime stderr: %w", err)
	}

	if err := cmd.Start(); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to start runtime: %w", err)
	}

	logger.Info("Runtime started", "pid", cmd.Process.Pid, "command", cfg.Runtime.Command)

	go forwardOutput("runtime", stdout)
	go forwardOutput("runtime", stderr)

	p := &Process{
		cmd:    cmd,
		cancel: cancel,
		done:   make(chan struct{}),
	}

	go func() {
		p.waitErr = cmd.Wait()
		close(p.done)
	}()

	return p, nil
}

// WaitReady blocks until the sidecar accepts TCP connections on addr,
// backing off between attempts.
func WaitReady(ctx context.Context, addr string, maxWait time.Duration) error {
	dial := func() error {
		conn, err := net.DialTimeout("tcp", addr, time.Second)
		if err != nil {
			return err
		}

		return conn.Close()
	}

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = maxWait

	if err := backoff.Retry(dial, backoff.WithContext(bo, ctx)); err != nil {
		return fmt.Errorf("runtime did not become ready on %s: %w", addr, err)
	}

	return nil
}

// Stop asks the sidecar to exit and kills it after a grace period. Safe to
// call after the process has already exited.
func (p *Process) Stop() error {
	select {
	case <-p.done:
		return p.waitErr
	default:
	}

	if err := p.cmd.Process.Signal(os.Interrupt); err != nil {
		p.cancel()
		<-p.done
		return p.waitErr
	}

	select {
	case <-p.done:
		return p.waitErr
	case <-time.After(stopGracePeriod):
		logger.Warn("Runtime did not exit in time, killing it")
		p.cancel()
		<-p.done
		return p.waitErr
	}
}

// Done is closed once the sidecar has exited, however it exited.
func (p *Process) Done() <-chan struct{} {
	return p.done
}

// Err reports the sidecar's exit error. It is nil until Done is closed and
// for a clean exit afterwards.
func (p *Process) Err() error {
	select {
	case <-p.done:
		return p.waitErr
	default:
		return nil
	}
}

func forwardOutput(name string, r interface{ Read([]byte) (int, error) }) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		logger.Info(name + ": " + scanner.Text())
	}
}
