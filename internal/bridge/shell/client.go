// Package shell implements the remote shell back-end: pipeline commands are
// rendered into the runtime shell's textual dialect and forwarded over a raw
// TCP socket to a server process executing them next to the pipeline.
//
// One connection serves one switch instance and assumes a single logical
// caller; concurrent use must be serialized externally. With acknowledgments
// enabled every command is a synchronous round-trip. With acknowledgments
// disabled commands pipeline on the wire and remote failures are invisible
// to the caller.
package shell

import (
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/pipectl/p4bridge/internal/bridge"
	"github.com/pipectl/p4bridge/internal/observability"
	"github.com/pipectl/p4bridge/internal/protocol/frame"
	"github.com/pipectl/p4bridge/internal/protocol/session"
)

var (
	// ErrConnClosed means the remote shell went away while a command was
	// outstanding. Terminal: the connection cannot be reused.
	ErrConnClosed = errors.New("shell: connection closed by the remote shell")

	// ErrRejected means the remote shell reported a failure executing a
	// command. Recoverable: the caller may retry or abort.
	ErrRejected = errors.New("shell: command rejected")

	// ErrAckTimeout means no acknowledgment arrived within the deadline.
	ErrAckTimeout = errors.New("shell: timed out waiting for acknowledgment")
)

// CommandError carries the offending command text and the raw response for
// diagnostics. Kind is one of the sentinel errors above.
type CommandError struct {
	Cmd      string
	Response string
	Kind     error
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("error executing command %q: %s", e.Cmd, e.Response)
}

func (e *CommandError) Unwrap() error { return e.Kind }

// Client drives one switch through a remote shell server.
type Client struct {
	name       string
	cfg        bridge.ShellConfig
	conn       net.Conn
	batchDepth int
	log        zerolog.Logger
}

var _ bridge.Bridge = (*Client)(nil)

// Dial connects to the remote shell server and performs the session
// handshake. The handshake frame is fire-and-forget: no acknowledgment is
// expected for it regardless of cfg.EnableAcks.
func Dial(name string, cfg bridge.ShellConfig) (*Client, error) {
	if cfg.AckTimeout <= 0 {
		cfg.AckTimeout = bridge.DefaultAckTimeout
	}
	logger := log.With().Str("switch", name).Logger()
	logger.Debug().
		Str("program", cfg.ProgramName).
		Bool("acks", cfg.EnableAcks).
		Str("addr", cfg.Addr).
		Msg("dialing remote shell")

	conn, err := net.DialTimeout("tcp", cfg.Addr, cfg.AckTimeout)
	if err != nil {
		return nil, bridge.WrapSwitch(name, "connect", err)
	}
	if err := session.WriteHello(conn, session.Hello{
		ProgramName: cfg.ProgramName,
		EnableAcks:  cfg.EnableAcks,
	}); err != nil {
		_ = conn.Close()
		return nil, bridge.WrapSwitch(name, "handshake", err)
	}
	observability.RecordSessionOpen(name)
	return &Client{name: name, cfg: cfg, conn: conn, log: logger}, nil
}

// Close tears the connection down, unblocking any pending receive on the
// server side as a peer-closed event.
func (c *Client) Close() error {
	c.log.Debug().Msg("closing remote shell connection")
	observability.RecordSessionClose(c.name)
	return bridge.WrapSwitch(c.name, "close", c.conn.Close())
}

// InterfaceToPort resolves intf against the configured port map.
func (c *Client) InterfaceToPort(intf string) (int, bool) {
	id, ok := c.cfg.InterfaceToPort[intf]
	return id, ok
}

// forward sends one command frame and enforces the acknowledgment contract.
func (c *Client) forward(cmd string) error {
	c.log.Debug().Str("cmd", cmd).Msg("forwarding command")
	if err := frame.WriteString(c.conn, cmd); err != nil {
		return fmt.Errorf("shell: send: %w", err)
	}
	observability.RecordCommandSent(c.name)
	if !c.cfg.EnableAcks {
		return nil
	}

	// Wait for the response: makes sure the other side doesn't fall behind
	// and that the command has actually been executed.
	if err := c.conn.SetReadDeadline(time.Now().Add(c.cfg.AckTimeout)); err != nil {
		return fmt.Errorf("shell: set deadline: %w", err)
	}
	resp, err := frame.ReadString(c.conn)
	switch {
	case errors.Is(err, frame.ErrClosed):
		observability.RecordCommandFailed(c.name)
		return &CommandError{Cmd: cmd, Response: "connection closed", Kind: ErrConnClosed}
	case err != nil:
		observability.RecordCommandFailed(c.name)
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return &CommandError{Cmd: cmd, Response: "acknowledgment timeout", Kind: ErrAckTimeout}
		}
		return fmt.Errorf("shell: receive: %w", err)
	case resp != session.AckOK:
		observability.RecordCommandFailed(c.name)
		return &CommandError{Cmd: cmd, Response: resp, Kind: ErrRejected}
	}
	return nil
}

// ResetState is not implemented by the remote shell back-end; the server
// already clears the pipeline when a session starts.
func (c *Client) ResetState() error {
	c.log.Error().Msg("reset_state is yet to be implemented for the remote shell back-end")
	return nil
}

// StartBatch opens a batch scope. Nested batches are not supported by the
// remote shell, so scopes are coalesced via a depth counter and only the
// 0 to 1 transition reaches the wire.
func (c *Client) StartBatch() error {
	if c.batchDepth == 0 {
		if err := c.forward(cmdBatchBegin); err != nil {
			return bridge.WrapSwitch(c.name, "batch_start", err)
		}
	}
	c.batchDepth++
	return nil
}

// StopBatch closes the innermost batch scope; only the 1 to 0 transition
// reaches the wire.
func (c *Client) StopBatch() error {
	if c.batchDepth == 0 {
		return bridge.WrapSwitch(c.name, "batch_stop", bridge.ErrUnbalancedBatch)
	}
	c.batchDepth--
	if c.batchDepth == 0 {
		if err := c.forward(cmdBatchEnd); err != nil {
			return bridge.WrapSwitch(c.name, "batch_stop", err)
		}
	}
	return nil
}

// RegisterSet writes value at index and synchronizes the register, as one
// frame, so the sync happens before any subsequent read of that register.
func (c *Client) RegisterSet(register string, index int, value bridge.Value) error {
	if err := bridge.CheckQualified(register); err != nil {
		return bridge.WrapSwitch(c.name, "register_set", err)
	}
	cmd := renderRegisterSet(register, index, encodeValue(bridge.TranslateValue(value, c)))
	return bridge.WrapSwitch(c.name, "register_set", c.forward(cmd))
}

func (c *Client) TableAdd(table string, keys []bridge.Value, action string, params []bridge.Value) error {
	return c.tableWrite("table_add", verbAdd, table, keys, action, params)
}

func (c *Client) TableModify(table string, keys []bridge.Value, action string, params []bridge.Value) error {
	return c.tableWrite("table_modify", verbModify, table, keys, action, params)
}

func (c *Client) tableWrite(op, verb, table string, keys []bridge.Value, action string, params []bridge.Value) error {
	if err := bridge.CheckQualified(table); err != nil {
		return bridge.WrapSwitch(c.name, op, err)
	}
	if err := bridge.CheckQualified(action); err != nil {
		return bridge.WrapSwitch(c.name, op, err)
	}
	cmd := renderTableWrite(verb, table, action,
		encodeValues(bridge.TranslateValues(keys, c)),
		encodeValues(bridge.TranslateValues(params, c)))
	return bridge.WrapSwitch(c.name, op, c.forward(cmd))
}

func (c *Client) TableSetDefault(table string, action string, params []bridge.Value) error {
	if err := bridge.CheckQualified(table); err != nil {
		return bridge.WrapSwitch(c.name, "table_set_default", err)
	}
	if err := bridge.CheckQualified(action); err != nil {
		return bridge.WrapSwitch(c.name, "table_set_default", err)
	}
	cmd := renderTableSetDefault(table, action, encodeValues(bridge.TranslateValues(params, c)))
	return bridge.WrapSwitch(c.name, "table_set_default", c.forward(cmd))
}

func (c *Client) TableDelete(table string, keys []bridge.Value) error {
	if err := bridge.CheckQualified(table); err != nil {
		return bridge.WrapSwitch(c.name, "table_delete", err)
	}
	cmd := renderTableDelete(table, encodeValues(bridge.TranslateValues(keys, c)))
	return bridge.WrapSwitch(c.name, "table_delete", c.forward(cmd))
}

// TableClear wraps the clear in its own single-operation batch only when no
// caller batch is open, since the remote shell rejects nested batches.
func (c *Client) TableClear(table string) error {
	if err := bridge.CheckQualified(table); err != nil {
		return bridge.WrapSwitch(c.name, "table_clear", err)
	}
	cmd := renderTableClear(table, c.batchDepth == 0)
	return bridge.WrapSwitch(c.name, "table_clear", c.forward(cmd))
}

// MulticastGroupCreate is not supported by the remote shell back-end.
func (c *Client) MulticastGroupCreate(groupID int, members []bridge.MulticastMember) error {
	return bridge.WrapSwitch(c.name, "multicast_group_create", bridge.ErrUnsupported)
}

// CloneSessionCreate is not supported by the remote shell back-end.
func (c *Client) CloneSessionCreate(sessionID int, members []bridge.CloneMember) error {
	return bridge.WrapSwitch(c.name, "clone_session_create", bridge.ErrUnsupported)
}
