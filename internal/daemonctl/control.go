// Package daemonctl launches, probes and stops the briefings daemon process
// from the CLI.
package daemonctl

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/gofrs/flock"

	"briefings/internal/apiclient"
	"briefings/internal/config"
)

// ErrDaemonNotRunning is returned when no daemon holds the lock.
var ErrDaemonNotRunning = errors.New("daemon is not running")

const pollInterval = 200 * time.Millisecond

// StatusClient is the part of the API client used for readiness probes.
type StatusClient interface {
	Status(ctx context.Context) (StatusReply, error)
}

// StatusReply is the readiness information daemonctl needs.
type StatusReply struct {
	Running bool
	PID     int
}

// APIProbe adapts *apiclient.Client to StatusClient.
type APIProbe struct{ Client *apiclient.Client }

// Status implements StatusClient.
func (p APIProbe) Status(ctx context.Context) (StatusReply, error) {
	st, err := p.Client.Status(ctx)
	if err != nil {
		return StatusReply{}, err
	}
	return StatusReply{Running: st.Running, PID: st.PID}, nil
}

// LaunchOptions controls daemon process launch behavior.
type LaunchOptions struct {
	ConfigPath string
	LogLevel   string
}

// StartState records what EnsureStarted had to do.
type StartState string

const (
	StartStateStarted        StartState = "started"
	StartStateAlreadyRunning StartState = "already_running"
)

// StartResult captures daemon start orchestration state.
type StartResult struct {
	State StartState
	PID   int
}

// Launch starts a detached `briefings daemon` process.
func Launch(executablePath string, opts LaunchOptions) error {
	if strings.TrimSpace(executablePath) == "" {
		return fmt.Errorf("resolve executable: executable path is empty")
	}

	args := []string{"daemon"}
	if cfg := strings.TrimSpace(opts.ConfigPath); cfg != "" {
		args = append(args, "--config", cfg)
	}
	if level := strings.TrimSpace(opts.LogLevel); level != "" {
		args = append(args, "--log-level", level)
	}

	proc := exec.Command(executablePath, args...)
	proc.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
	if err := proc.Start(); err != nil {
		return fmt.Errorf("launch daemon: %w", err)
	}
	return proc.Process.Release()
}

// Running reports whether another process holds the daemon lock.
func Running(cfg *config.Config) (bool, error) {
	if cfg == nil {
		return false, errors.New("config is required")
	}
	lock := flock.New(cfg.DaemonLockPath())
	acquired, err := lock.TryLock()
	if err != nil {
		return false, fmt.Errorf("probe daemon lock: %w", err)
	}
	if acquired {
		_ = lock.Unlock()
		return false, nil
	}
	return true, nil
}

// EnsureStarted launches the daemon unless it already answers, then waits
// until the API reports it running.
func EnsureStarted(ctx context.Context, client StatusClient, executablePath string, opts LaunchOptions, timeout time.Duration) (StartResult, error) {
	if st, err := client.Status(ctx); err == nil && st.Running {
		return StartResult{State: StartStateAlreadyRunning, PID: st.PID}, nil
	}
	if err := Launch(executablePath, opts); err != nil {
		return StartResult{}, err
	}
	st, err := WaitForAPI(ctx, client, timeout)
	if err != nil {
		return StartResult{}, err
	}
	return StartResult{State: StartStateStarted, PID: st.PID}, nil
}

// WaitForAPI polls Status until the daemon reports running or timeout
// elapses.
func WaitForAPI(ctx context.Context, client StatusClient, timeout time.Duration) (StatusReply, error) {
	deadline := time.Now().Add(timeout)
	var lastErr error
	for time.Now().Before(deadline) {
		st, err := client.Status(ctx)
		if err == nil && st.Running {
			return st, nil
		}
		lastErr = err
		select {
		case <-ctx.Done():
			return StatusReply{}, ctx.Err()
		case <-time.After(pollInterval):
		}
	}
	if lastErr == nil {
		lastErr = errors.New("timeout waiting for daemon")
	}
	return StatusReply{}, fmt.Errorf("daemon failed to start: %w", lastErr)
}

// StopResult describes how the daemon was stopped.
type StopResult struct {
	PID        int
	ForcedKill bool
}

// Stop sends SIGTERM to the pid recorded in the data directory and waits
// for the lock to be released, escalating to SIGKILL after grace.
func Stop(ctx context.Context, cfg *config.Config, grace time.Duration) (StopResult, error) {
	running, err := Running(cfg)
	if err != nil {
		return StopResult{}, err
	}
	if !running {
		return StopResult{}, ErrDaemonNotRunning
	}

	pid, err := ReadPID(cfg.DaemonPIDPath())
	if err != nil {
		return StopResult{}, err
	}
	if pid == os.Getpid() {
		return StopResult{}, fmt.Errorf("refusing to signal current process (pid %d)", pid)
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return StopResult{}, fmt.Errorf("locate daemon process %d: %w", pid, err)
	}
	result := StopResult{PID: pid}
	if err := proc.Signal(syscall.SIGTERM); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return result, fmt.Errorf("signal daemon process %d: %w", pid, err)
	}

	if waitForRelease(ctx, cfg, grace) {
		return result, nil
	}
	if err := proc.Signal(syscall.SIGKILL); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return result, fmt.Errorf("kill daemon process %d: %w", pid, err)
	}
	result.ForcedKill = true
	if err := os.Remove(cfg.DaemonPIDPath()); err != nil && !errors.Is(err, os.ErrNotExist) {
		return result, fmt.Errorf("remove pid file: %w", err)
	}
	return result, nil
}

func waitForRelease(ctx context.Context, cfg *config.Config, grace time.Duration) bool {
	deadline := time.Now().Add(grace)
	for time.Now().Before(deadline) {
		if running, err := Running(cfg); err == nil && !running {
			return true
		}
		select {
		case <-ctx.Done():
			return false
		case <-time.After(pollInterval):
		}
	}
	return false
}

// ReadPID parses the daemon pid file.
func ReadPID(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read daemon pid file %q: %w", path, err)
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return 0, fmt.Errorf("invalid pid in %q", path)
	}
	return pid, nil
}
