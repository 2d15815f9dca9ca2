package daemon_test

import (
	"context"
	"os"
	"testing"

	"briefings/internal/daemon"
)

func TestDaemonStartStop(t *testing.T) {
	td := newTestDaemon(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := td.daemon.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if !td.daemon.Status(ctx).Running {
		t.Fatal("expected daemon to report running")
	}
	if _, err := os.Stat(td.cfg.DaemonPIDPath()); err != nil {
		t.Fatalf("expected pid file: %v", err)
	}

	// Second start should fail
	if err := td.daemon.Start(ctx); err == nil {
		t.Fatal("expected second start to fail")
	}

	td.daemon.Stop()
	if td.daemon.Status(ctx).Running {
		t.Fatal("expected daemon to be stopped")
	}
	if _, err := os.Stat(td.cfg.DaemonPIDPath()); !os.IsNotExist(err) {
		t.Fatalf("expected pid file removed, got %v", err)
	}
}

func TestDaemonLockExcludesSecondInstance(t *testing.T) {
	td := newTestDaemon(t)
	ctx := context.Background()
	if err := td.daemon.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	other, err := daemon.New(td.cfg, nil, td.manager)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	if err := other.Start(ctx); err == nil {
		other.Stop()
		t.Fatal("expected lock contention error")
	}
}
