package shellserver

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/pipectl/p4bridge/internal/protocol/frame"
	"github.com/pipectl/p4bridge/internal/protocol/session"
	"github.com/pipectl/p4bridge/internal/testutil/testlog"
)

// startServer runs a server on a loopback listener and returns its address
// plus a cancel that tears it down.
func startServer(t *testing.T, cfg Config) (*Server, string, context.CancelFunc) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv := New(cfg)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()
	t.Cleanup(func() {
		cancel()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Error("server did not stop")
		}
	})
	return srv, ln.Addr().String(), cancel
}

func dialSession(t *testing.T, addr string, hello session.Hello) net.Conn {
	t.Helper()
	conn, err := net.DialTimeout("tcp", addr, 2*time.Second)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	if err := session.WriteHello(conn, hello); err != nil {
		t.Fatalf("write hello: %v", err)
	}
	return conn
}

func TestSessionExecutesAndAcknowledges(t *testing.T) {
	testlog.Start(t)
	srv, addr, _ := startServer(t, Config{})
	conn := dialSession(t, addr, session.Hello{ProgramName: "prog", EnableAcks: true})

	if err := frame.WriteString(conn, `p4.MyIngress.fwd.add_with_set_egress("1", "3")`); err != nil {
		t.Fatalf("send: %v", err)
	}
	ack, err := frame.ReadString(conn)
	if err != nil {
		t.Fatalf("read ack: %v", err)
	}
	if ack != session.AckOK {
		t.Fatalf("ack = %q, want OK", ack)
	}

	p := srv.Pipeline("prog").(*MemPipeline)
	if n := p.EntryCount("MyIngress.fwd"); n != 1 {
		t.Fatalf("entry count = %d, want 1", n)
	}
}

func TestSessionReportsFailureInAck(t *testing.T) {
	testlog.Start(t)
	_, addr, _ := startServer(t, Config{})
	conn := dialSession(t, addr, session.Hello{ProgramName: "prog", EnableAcks: true})

	if err := frame.WriteString(conn, "definitely not a command"); err != nil {
		t.Fatalf("send: %v", err)
	}
	ack, err := frame.ReadString(conn)
	if err != nil {
		t.Fatalf("read ack: %v", err)
	}
	if ack == session.AckOK {
		t.Fatal("malformed command was acknowledged with OK")
	}
	// The loop survives the failure.
	if err := frame.WriteString(conn, `p4.T.t.set_default_with_drop()`); err != nil {
		t.Fatalf("send follow-up: %v", err)
	}
	if ack, err = frame.ReadString(conn); err != nil || ack != session.AckOK {
		t.Fatalf("follow-up ack = %q err=%v", ack, err)
	}
}

func TestSessionNoAcksStaysSilent(t *testing.T) {
	testlog.Start(t)
	srv, addr, _ := startServer(t, Config{})
	conn := dialSession(t, addr, session.Hello{ProgramName: "prog", EnableAcks: false})

	for _, cmd := range []string{
		"garbage that fails",
		`p4.T.t.add_with_fwd("1")`,
		`p4.T.t.add_with_fwd("2")`,
	} {
		if err := frame.WriteString(conn, cmd); err != nil {
			t.Fatalf("send: %v", err)
		}
	}
	// No acknowledgment frames may arrive; the read must time out.
	_ = conn.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	if _, err := frame.Read(conn); err == nil {
		t.Fatal("received unexpected acknowledgment frame")
	}

	waitFor(t, func() bool {
		return srv.Pipeline("prog").(*MemPipeline).EntryCount("T.t") == 2
	})
}

func TestHandshakeResetsPipelineAndClosesStaleBatch(t *testing.T) {
	testlog.Start(t)
	srv, addr, _ := startServer(t, Config{AllowReconnect: true})

	p := srv.Pipeline("prog").(*MemPipeline)
	if err := p.TableAdd("T.t", "fwd", []string{"1"}); err != nil {
		t.Fatalf("seed entry: %v", err)
	}
	if err := p.BatchBegin(); err != nil {
		t.Fatalf("seed batch: %v", err)
	}

	conn := dialSession(t, addr, session.Hello{ProgramName: "prog", EnableAcks: true})
	// Round-trip one command so the handshake has been fully processed.
	if err := frame.WriteString(conn, `p4.T.t.set_default_with_drop()`); err != nil {
		t.Fatalf("send: %v", err)
	}
	if ack, err := frame.ReadString(conn); err != nil || ack != session.AckOK {
		t.Fatalf("ack = %q err=%v", ack, err)
	}

	if n := p.EntryCount("T.t"); n != 0 {
		t.Fatalf("pre-existing entries survived the handshake reset: %d", n)
	}
	// The stale batch was defensively closed, so a fresh one opens cleanly.
	if err := p.BatchBegin(); err != nil {
		t.Fatalf("batch after reset: %v", err)
	}
}

func TestCloseBeforeHandshakeAbandonsConnection(t *testing.T) {
	testlog.Start(t)
	_, addr, _ := startServer(t, Config{AllowReconnect: true})
	conn, err := net.DialTimeout("tcp", addr, 2*time.Second)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	_ = conn.Close()

	// The server must return to accepting; a full session still works.
	conn2 := dialSession(t, addr, session.Hello{ProgramName: "prog", EnableAcks: true})
	if err := frame.WriteString(conn2, `p4.T.t.set_default_with_drop()`); err != nil {
		t.Fatalf("send: %v", err)
	}
	if ack, err := frame.ReadString(conn2); err != nil || ack != session.AckOK {
		t.Fatalf("ack = %q err=%v", ack, err)
	}
}

func TestSingleSessionServerStopsAfterClientLeaves(t *testing.T) {
	testlog.Start(t)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv := New(Config{AllowReconnect: false})
	done := make(chan error, 1)
	go func() { done <- srv.Serve(context.Background(), ln) }()

	conn := dialSession(t, ln.Addr().String(), session.Hello{ProgramName: "prog"})
	_ = conn.Close()

	select {
	case err := <-done:
		if err != nil && !errors.Is(err, net.ErrClosed) {
			t.Fatalf("serve returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("server kept running after its only session ended")
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not reached")
}
