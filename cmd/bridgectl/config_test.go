package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pipectl/p4bridge/internal/bridge"
)

func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLoadSwitchFileShellDefaults(t *testing.T) {
	path := writeTempFile(t, "switch.toml", `
name = "s1"
backend = "shell"

[shell]
addr = "127.0.0.1:52000"
program_name = "basic"

[shell.interfaces]
"s1-eth1" = 1
"s1-eth2" = 2
`)

	sw, err := loadSwitchFile(path)
	if err != nil {
		t.Fatalf("load switch file: %v", err)
	}
	if sw.Name != "s1" {
		t.Fatalf("unexpected name: %q", sw.Name)
	}
	cfg, ok := sw.API.(bridge.ShellConfig)
	if !ok {
		t.Fatalf("unexpected config type: %T", sw.API)
	}
	if cfg.Addr != "127.0.0.1:52000" {
		t.Fatalf("unexpected addr: %q", cfg.Addr)
	}
	if cfg.ProgramName != "basic" {
		t.Fatalf("unexpected program: %q", cfg.ProgramName)
	}
	if !cfg.EnableAcks {
		t.Fatalf("expected acknowledgments enabled by default")
	}
	if cfg.AckTimeout != 0 {
		t.Fatalf("unexpected ack timeout: %v", cfg.AckTimeout)
	}
	if got := cfg.InterfaceToPort["s1-eth2"]; got != 2 {
		t.Fatalf("unexpected port for s1-eth2: %d", got)
	}
}

func TestLoadSwitchFileShellOverrides(t *testing.T) {
	path := writeTempFile(t, "switch.toml", `
name = "s1"
backend = "shell"

[shell]
addr = "127.0.0.1:52000"
program_name = "basic"
enable_acknowledgments = false
ack_timeout = "2s"
`)

	sw, err := loadSwitchFile(path)
	if err != nil {
		t.Fatalf("load switch file: %v", err)
	}
	cfg := sw.API.(bridge.ShellConfig)
	if cfg.EnableAcks {
		t.Fatalf("expected acknowledgments disabled")
	}
	if cfg.AckTimeout != 2*time.Second {
		t.Fatalf("unexpected ack timeout: %v", cfg.AckTimeout)
	}
}

func TestLoadSwitchFileNikss(t *testing.T) {
	path := writeTempFile(t, "switch.toml", `
name = "psa1"
backend = "nikss"

[nikss]
pipeline_id = 7
`)

	sw, err := loadSwitchFile(path)
	if err != nil {
		t.Fatalf("load switch file: %v", err)
	}
	cfg, ok := sw.API.(bridge.NikssConfig)
	if !ok {
		t.Fatalf("unexpected config type: %T", sw.API)
	}
	if cfg.PipelineID != 7 {
		t.Fatalf("unexpected pipeline id: %d", cfg.PipelineID)
	}
}

func TestLoadSwitchFileRejectsIncomplete(t *testing.T) {
	cases := []struct {
		name    string
		content string
	}{
		{"missing name", "backend = \"shell\"\n[shell]\naddr = \"x:1\"\nprogram_name = \"p\"\n"},
		{"missing backend", "name = \"s1\"\n"},
		{"unknown backend", "name = \"s1\"\nbackend = \"grpc\"\n"},
		{"missing shell addr", "name = \"s1\"\nbackend = \"shell\"\n[shell]\nprogram_name = \"p\"\n"},
		{"missing program", "name = \"s1\"\nbackend = \"shell\"\n[shell]\naddr = \"x:1\"\n"},
		{"bad ack timeout", "name = \"s1\"\nbackend = \"shell\"\n[shell]\naddr = \"x:1\"\nprogram_name = \"p\"\nack_timeout = \"abc\"\n"},
		{"missing pipeline id", "name = \"psa1\"\nbackend = \"nikss\"\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := writeTempFile(t, "switch.toml", tc.content)
			if _, err := loadSwitchFile(path); err == nil {
				t.Fatalf("expected load error")
			}
		})
	}
}

func TestLoadPlan(t *testing.T) {
	path := writeTempFile(t, "plan.toml", `
[[op]]
type = "table_add"
table = "MyIngress.fwd"
keys = ["10.0.0.1"]
action = "MyIngress.set_egress"
params = ["2"]

[[op]]
type = "register_set"
register = "MyIngress.counts"
index = 3
value = "42"
`)

	p, err := loadPlan(path)
	if err != nil {
		t.Fatalf("load plan: %v", err)
	}
	if len(p.Ops) != 2 {
		t.Fatalf("unexpected op count: %d", len(p.Ops))
	}
	if p.Ops[0].Type != "table_add" || p.Ops[0].Table != "MyIngress.fwd" {
		t.Fatalf("unexpected first op: %+v", p.Ops[0])
	}
	if p.Ops[1].Register != "MyIngress.counts" || p.Ops[1].Index != 3 {
		t.Fatalf("unexpected second op: %+v", p.Ops[1])
	}
}

func TestLoadPlanRejectsEmpty(t *testing.T) {
	path := writeTempFile(t, "plan.toml", "\n")
	if _, err := loadPlan(path); err == nil {
		t.Fatalf("expected load error")
	}
}

func TestApplyOpRejectsUnknownType(t *testing.T) {
	if err := applyOp(nil, planOp{Type: "bogus"}); err == nil {
		t.Fatalf("expected error for unknown op type")
	}
}

func TestParseMember(t *testing.T) {
	intf, instance, err := parseMember("s1-eth3:5")
	if err != nil {
		t.Fatalf("parse member: %v", err)
	}
	if intf != "s1-eth3" || instance != 5 {
		t.Fatalf("unexpected member: %q %d", intf, instance)
	}

	for _, bad := range []string{"s1-eth3", ":5", "s1-eth3:x"} {
		if _, _, err := parseMember(bad); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}
