// Package nikss drives eBPF-based NIKSS switches through the nikss-ctl
// command line tool. It is a pass-through back-end: every operation renders
// to one or more nikss-ctl invocations, and the interface-to-port mapping is
// queried from the pipeline at startup.
package nikss

import (
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/pipectl/p4bridge/internal/bridge"
)

// runner executes one nikss-ctl subcommand and returns its stdout. Swapped
// out in tests.
type runner func(args ...string) (string, error)

func execRunner(args ...string) (string, error) {
	out, err := exec.Command("nikss-ctl", args...).Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && len(exitErr.Stderr) > 0 {
			return "", fmt.Errorf("nikss-ctl %s: %w: %s", strings.Join(args, " "), err, strings.TrimSpace(string(exitErr.Stderr)))
		}
		return "", fmt.Errorf("nikss-ctl %s: %w", strings.Join(args, " "), err)
	}
	return string(out), nil
}

// Bridge is the NIKSS back-end for one pipeline.
type Bridge struct {
	name     string
	pipeline int
	ports    map[string]int
	run      runner
	log      zerolog.Logger
}

var _ bridge.Bridge = (*Bridge)(nil)

// New connects to the pipeline and queries its port layout.
func New(name string, cfg bridge.NikssConfig) (*Bridge, error) {
	return newWithRunner(name, cfg, execRunner)
}

func newWithRunner(name string, cfg bridge.NikssConfig, run runner) (*Bridge, error) {
	b := &Bridge{
		name:     name,
		pipeline: cfg.PipelineID,
		run:      run,
		log:      log.With().Str("switch", name).Int("pipeline", cfg.PipelineID).Logger(),
	}
	ports, err := b.queryPorts()
	if err != nil {
		return nil, bridge.WrapSwitch(name, "connect", err)
	}
	b.ports = ports
	b.log.Debug().Interface("ports", ports).Msg("nikss ports queried")
	return b, nil
}

// queryPorts asks the pipeline which interface got which port ID.
func (b *Bridge) queryPorts() (map[string]int, error) {
	out, err := b.run("pipeline", "show", "id", strconv.Itoa(b.pipeline))
	if err != nil {
		return nil, err
	}
	var parsed struct {
		Pipeline struct {
			Ports []struct {
				Name   string      `json:"name"`
				PortID json.Number `json:"port_id"`
			} `json:"ports"`
		} `json:"pipeline"`
	}
	if err := json.Unmarshal([]byte(out), &parsed); err != nil {
		return nil, fmt.Errorf("nikss: parse pipeline show: %w", err)
	}
	ports := make(map[string]int, len(parsed.Pipeline.Ports))
	for _, p := range parsed.Pipeline.Ports {
		id, err := strconv.Atoi(p.PortID.String())
		if err != nil {
			return nil, fmt.Errorf("nikss: bad port_id %q for %s", p.PortID, p.Name)
		}
		ports[p.Name] = id
	}
	return ports, nil
}

func (b *Bridge) InterfaceToPort(intf string) (int, bool) {
	id, ok := b.ports[intf]
	return id, ok
}

func (b *Bridge) Close() error { return nil }

// ResetState is yet to be implemented for NIKSS switches; currently a no-op.
func (b *Bridge) ResetState() error {
	b.log.Error().Msg("reset_state is yet to be implemented for NIKSS switches: no-op")
	return nil
}

// Batching is not supported by nikss-ctl; scopes are accepted and ignored.
func (b *Bridge) StartBatch() error { return nil }
func (b *Bridge) StopBatch() error  { return nil }

// qualName rewrites the dot-qualified form into NIKSS's underscore form.
func qualName(name string) (string, error) {
	if err := bridge.CheckQualified(name); err != nil {
		return "", err
	}
	return strings.ReplaceAll(name, ".", "_"), nil
}

func (b *Bridge) pipe() string { return strconv.Itoa(b.pipeline) }

func (b *Bridge) RegisterSet(register string, index int, value bridge.Value) error {
	reg, err := qualName(register)
	if err != nil {
		return bridge.WrapSwitch(b.name, "register_set", err)
	}
	_, err = b.run("register", "set", "pipe", b.pipe(), reg,
		"index", strconv.Itoa(index), "value", bridge.TranslateValue(value, b))
	return bridge.WrapSwitch(b.name, "register_set", err)
}

func (b *Bridge) TableAdd(table string, keys []bridge.Value, action string, params []bridge.Value) error {
	return b.tableWrite("table_add", "add", table, keys, action, params)
}

func (b *Bridge) TableModify(table string, keys []bridge.Value, action string, params []bridge.Value) error {
	return b.tableWrite("table_modify", "update", table, keys, action, params)
}

func (b *Bridge) tableWrite(op, verb, table string, keys []bridge.Value, action string, params []bridge.Value) error {
	tbl, err := qualName(table)
	if err != nil {
		return bridge.WrapSwitch(b.name, op, err)
	}
	act, err := qualName(action)
	if err != nil {
		return bridge.WrapSwitch(b.name, op, err)
	}
	args := []string{"table", verb, "pipe", b.pipe(), tbl, "action", "name", act, "key"}
	args = append(args, bridge.TranslateValues(keys, b)...)
	if len(params) > 0 {
		args = append(args, "data")
		args = append(args, bridge.TranslateValues(params, b)...)
	}
	_, err = b.run(args...)
	return bridge.WrapSwitch(b.name, op, err)
}

func (b *Bridge) TableSetDefault(table string, action string, params []bridge.Value) error {
	tbl, err := qualName(table)
	if err != nil {
		return bridge.WrapSwitch(b.name, "table_set_default", err)
	}
	act, err := qualName(action)
	if err != nil {
		return bridge.WrapSwitch(b.name, "table_set_default", err)
	}
	args := []string{"table", "default", "set", "pipe", b.pipe(), tbl, "action", "name", act}
	if len(params) > 0 {
		args = append(args, "data")
		args = append(args, bridge.TranslateValues(params, b)...)
	}
	_, err = b.run(args...)
	return bridge.WrapSwitch(b.name, "table_set_default", err)
}

func (b *Bridge) TableDelete(table string, keys []bridge.Value) error {
	tbl, err := qualName(table)
	if err != nil {
		return bridge.WrapSwitch(b.name, "table_delete", err)
	}
	args := []string{"table", "delete", "pipe", b.pipe(), tbl, "key"}
	args = append(args, bridge.TranslateValues(keys, b)...)
	_, err = b.run(args...)
	return bridge.WrapSwitch(b.name, "table_delete", err)
}

// TableClear works around a nikss-ctl bug where one delete pass does not
// always remove every entry: it deletes until the table reports empty or
// stops shrinking.
func (b *Bridge) TableClear(table string) error {
	tbl, err := qualName(table)
	if err != nil {
		return bridge.WrapSwitch(b.name, "table_clear", err)
	}
	lastCount := -1
	for {
		out, err := b.run("table", "get", "pipe", b.pipe(), tbl)
		if err != nil {
			return bridge.WrapSwitch(b.name, "table_clear", err)
		}
		count, err := entryCount(out, tbl)
		if err != nil {
			return bridge.WrapSwitch(b.name, "table_clear", err)
		}
		if count == 0 {
			return nil
		}
		if count == lastCount {
			b.log.Error().Str("table", tbl).Msg("entry count did not decrease after a delete operation")
			return nil
		}
		lastCount = count
		if _, err := b.run("table", "delete", "pipe", b.pipe(), tbl); err != nil {
			return bridge.WrapSwitch(b.name, "table_clear", err)
		}
	}
}

func entryCount(out, table string) (int, error) {
	var parsed map[string]struct {
		Entries []json.RawMessage `json:"entries"`
	}
	if err := json.Unmarshal([]byte(out), &parsed); err != nil {
		return 0, fmt.Errorf("nikss: parse table get: %w", err)
	}
	return len(parsed[table].Entries), nil
}

func (b *Bridge) MulticastGroupCreate(groupID int, members []bridge.MulticastMember) error {
	if _, err := b.run("multicast-group", "create", "pipe", b.pipe(), "id", strconv.Itoa(groupID)); err != nil {
		return bridge.WrapSwitch(b.name, "multicast_group_create", err)
	}
	for _, m := range members {
		egress := bridge.TranslateValue(bridge.Str(m.EgressInterface), b)
		_, err := b.run("multicast-group", "add-member", "pipe", b.pipe(),
			"id", strconv.Itoa(groupID), "egress-port", egress, "instance", strconv.Itoa(m.InstanceID))
		if err != nil {
			return bridge.WrapSwitch(b.name, "multicast_group_create", err)
		}
	}
	return nil
}

func (b *Bridge) CloneSessionCreate(sessionID int, members []bridge.CloneMember) error {
	if _, err := b.run("clone-session", "create", "pipe", b.pipe(), "id", strconv.Itoa(sessionID)); err != nil {
		return bridge.WrapSwitch(b.name, "clone_session_create", err)
	}
	for _, m := range members {
		egress := bridge.TranslateValue(bridge.Str(m.EgressInterface), b)
		args := []string{"clone-session", "add-member", "pipe", b.pipe(),
			"id", strconv.Itoa(sessionID), "egress-port", egress, "instance", strconv.Itoa(m.InstanceID)}
		if m.ClassOfService >= 0 {
			args = append(args, "cos", strconv.Itoa(m.ClassOfService))
		}
		if m.TruncateAfter >= 0 {
			args = append(args, "truncate", "plen_bytes", strconv.Itoa(m.TruncateAfter))
		}
		if _, err := b.run(args...); err != nil {
			return bridge.WrapSwitch(b.name, "clone_session_create", err)
		}
	}
	return nil
}
