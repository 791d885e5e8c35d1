package factory

import (
	"context"
	"errors"
	"net"
	"testing"

	"github.com/pipectl/p4bridge/internal/bridge"
	"github.com/pipectl/p4bridge/internal/shellserver"
	"github.com/pipectl/p4bridge/internal/testutil/testlog"
)

func TestUnknownConfigTypeRejected(t *testing.T) {
	testlog.Start(t)
	_, err := CreateFor(bridge.Switch{Name: "s1", API: nil})
	if !errors.Is(err, bridge.ErrUnsupportedBackend) {
		t.Fatalf("expected ErrUnsupportedBackend, got %v", err)
	}
}

func TestGetCachesPerSwitchName(t *testing.T) {
	testlog.Start(t)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv := shellserver.New(shellserver.Config{AllowReconnect: true})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	f := New()
	sw := bridge.Switch{Name: "s1", API: bridge.ShellConfig{
		Addr:        ln.Addr().String(),
		ProgramName: "prog",
	}}
	first, err := f.Get(sw)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	second, err := f.Get(sw)
	if err != nil {
		t.Fatalf("get again: %v", err)
	}
	if first != second {
		t.Fatal("factory did not cache the bridge")
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}
