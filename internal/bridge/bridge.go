// Package bridge defines the uniform control-plane contract shared by every
// switch back-end: table mutation, register writes, batching, and
// multicast/clone group setup. Back-ends live in subpackages and differ only
// in how they reach the switch; callers program against the Bridge interface.
//
// Naming rules: table/action/register names must be fully qualified with a
// dot (e.g. MyIngress.my_table). Value parameters undergo automatic
// translation: strings recognized as network interface names (e.g. s1-eth3)
// are replaced by their numeric port IDs before a back-end renders them.
package bridge

import (
	"strconv"
	"strings"
)

// Value is a string-or-int scalar used for match keys, action parameters and
// register values.
type Value struct {
	str   string
	num   int
	isInt bool
}

// Str wraps a string value.
func Str(s string) Value { return Value{str: s} }

// Int wraps an integer value.
func Int(n int) Value { return Value{num: n, isInt: true} }

// IsInt reports whether the value was constructed from an integer.
func (v Value) IsInt() bool { return v.isInt }

// String renders the value as text: decimal for integers, raw otherwise.
func (v Value) String() string {
	if v.isInt {
		return strconv.Itoa(v.num)
	}
	return v.str
}

// MulticastMember is one egress replication target of a multicast group.
type MulticastMember struct {
	EgressInterface string
	InstanceID      int
}

// CloneMember is one egress target of a clone (mirroring) session.
// ClassOfService and TruncateAfter are optional; negative means unset.
type CloneMember struct {
	EgressInterface string
	InstanceID      int
	ClassOfService  int
	TruncateAfter   int
}

// PortMapper resolves network interface names to the numeric port IDs used
// within P4 code.
type PortMapper interface {
	// InterfaceToPort returns the port ID for intf, or false if intf is not
	// a known interface on this switch.
	InterfaceToPort(intf string) (int, bool)
}

// Bridge is the uniform operation contract. Implementations are not safe
// for concurrent use; a single logical caller must drive each instance.
type Bridge interface {
	PortMapper

	// Close shuts the back-end down. The bridge must not be used afterwards.
	Close() error

	// ResetState clears table entries, zeroes registers and resets counters.
	// Some back-ends only support this partially.
	ResetState() error

	// StartBatch opens a batch scope. Scopes nest; only the outermost scope
	// touches the switch on back-ends that support batching.
	StartBatch() error
	// StopBatch closes the innermost batch scope. Closing more scopes than
	// were opened is a programming error.
	StopBatch() error

	// RegisterSet writes value at index of the named register.
	RegisterSet(register string, index int, value Value) error

	// TableAdd inserts a new entry into table, matching keys and executing
	// action with params.
	TableAdd(table string, keys []Value, action string, params []Value) error
	// TableModify rewrites the action of an existing entry.
	TableModify(table string, keys []Value, action string, params []Value) error
	// TableSetDefault sets the table's default (miss) action.
	TableSetDefault(table string, action string, params []Value) error
	// TableDelete removes the entry matching keys.
	TableDelete(table string, keys []Value) error
	// TableClear removes every entry except the default action.
	TableClear(table string) error

	// MulticastGroupCreate creates a packet replication group.
	MulticastGroupCreate(groupID int, members []MulticastMember) error
	// CloneSessionCreate creates a clone (mirroring) session.
	CloneSessionCreate(sessionID int, members []CloneMember) error
}

// AddOrModify routes to TableModify when alreadyAdded is true, TableAdd
// otherwise. Utility to cut boilerplate in reconciliation loops.
func AddOrModify(b Bridge, alreadyAdded bool, table string, keys []Value, action string, params []Value) error {
	if alreadyAdded {
		return b.TableModify(table, keys, action, params)
	}
	return b.TableAdd(table, keys, action, params)
}

// Batch runs fn inside one batch scope, closing the scope even when fn
// fails. The first error encountered wins.
func Batch(b Bridge, fn func() error) error {
	if err := b.StartBatch(); err != nil {
		return err
	}
	fnErr := fn()
	if err := b.StopBatch(); err != nil && fnErr == nil {
		return err
	}
	return fnErr
}

// CheckQualified validates the dot-qualified name rule shared by all
// back-ends.
func CheckQualified(name string) error {
	if !strings.Contains(name, ".") {
		return &NameError{Name: name}
	}
	return nil
}

// BareAction returns the trailing identifier segment of a qualified action
// name, for dialects that take a bare action name.
func BareAction(action string) string {
	if i := strings.LastIndex(action, "."); i >= 0 {
		return action[i+1:]
	}
	return action
}

// TranslateValue applies the shared value translation: integers render as
// decimal text, strings naming a known interface become the decimal port ID,
// anything else passes through untouched. Dialect-specific encoding (quoting,
// range splitting) is up to each back-end.
func TranslateValue(v Value, ports PortMapper) string {
	if v.IsInt() {
		return v.String()
	}
	if id, ok := ports.InterfaceToPort(v.str); ok {
		return strconv.Itoa(id)
	}
	return v.str
}

// TranslateValues is TranslateValue over a slice.
func TranslateValues(vs []Value, ports PortMapper) []string {
	out := make([]string, len(vs))
	for i, v := range vs {
		out[i] = TranslateValue(v, ports)
	}
	return out
}

// StaticPortMap is a PortMapper over a fixed interface-to-port table.
type StaticPortMap map[string]int

func (m StaticPortMap) InterfaceToPort(intf string) (int, bool) {
	id, ok := m[intf]
	return id, ok
}
