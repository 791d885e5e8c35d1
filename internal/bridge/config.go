package bridge

import "time"

// Config describes how the control plane reaches one switch. Each back-end
// defines its own parameters; the factory dispatches on the concrete type.
type Config interface {
	// Backend names the back-end this config selects, for logs and errors.
	Backend() string
}

// ShellConfig selects the remote shell back-end: a small server script runs
// inside the switch's runtime shell, listens for connections and executes
// the commands it receives, letting the rest of the control plane live in a
// separate process.
type ShellConfig struct {
	// Addr is the host:port the remote shell server listens on.
	Addr string
	// ProgramName is the P4 program loaded into the pipeline, usually the
	// name of the .p4 file.
	ProgramName string
	// InterfaceToPort maps interface names to port IDs.
	InterfaceToPort map[string]int
	// EnableAcks makes the server confirm each command before the client
	// proceeds. Without acknowledgments commands pipeline on the wire,
	// which may be faster, but the server can fall behind or fail without
	// the control plane ever noticing.
	EnableAcks bool
	// AckTimeout bounds how long the client waits for one acknowledgment.
	// Zero means DefaultAckTimeout.
	AckTimeout time.Duration
}

func (ShellConfig) Backend() string { return "shell" }

// DefaultAckTimeout is applied when ShellConfig.AckTimeout is zero.
const DefaultAckTimeout = 10 * time.Second

// NikssConfig selects the NIKSS back-end, driving eBPF-based switches
// through the nikss-ctl command line tool. Interface-to-port mappings are
// queried from the NIKSS pipeline at startup.
type NikssConfig struct {
	// PipelineID identifies the pipeline the P4 program is loaded into.
	PipelineID int
}

func (NikssConfig) Backend() string { return "nikss" }

// Switch ties a unique switch name to its back-end config. The name keys
// factory caching and prefixes every SwitchError.
type Switch struct {
	Name string
	API  Config
}
