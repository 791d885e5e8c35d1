package bridge

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupported marks operations a back-end cannot perform at all.
	// It is reported before any switch interaction.
	ErrUnsupported = errors.New("bridge: operation not supported by this back-end")

	// ErrUnbalancedBatch means more batch scopes were stopped than started.
	ErrUnbalancedBatch = errors.New("bridge: more batches were stopped than started")

	// ErrUnsupportedBackend means a switch config names a back-end this
	// build cannot drive.
	ErrUnsupportedBackend = errors.New("bridge: unsupported back-end config")
)

// NameError reports a table/action/register name that is not dot-qualified.
type NameError struct {
	Name string
}

func (e *NameError) Error() string {
	return fmt.Sprintf("bridge: name %q must be fully qualified (e.g. MyIngress.my_table)", e.Name)
}

// SwitchError wraps a back-end failure with the switch and operation that
// triggered it, giving callers one consistent boundary to handle.
type SwitchError struct {
	Switch string // switch name
	Op     string // "table_add", "register_set", ...
	Err    error
}

func (e *SwitchError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Switch, e.Op, e.Err)
}

func (e *SwitchError) Unwrap() error { return e.Err }

// WrapSwitch builds a SwitchError unless err is nil or already one.
func WrapSwitch(switchName, op string, err error) error {
	if err == nil {
		return nil
	}
	var se *SwitchError
	if errors.As(err, &se) {
		return err
	}
	return &SwitchError{Switch: switchName, Op: op, Err: err}
}
