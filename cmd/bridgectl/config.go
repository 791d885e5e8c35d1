package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/pipectl/p4bridge/internal/bridge"
)

type switchFileConfig struct {
	Name    string          `toml:"name"`
	Backend string          `toml:"backend"`
	Shell   shellFileConfig `toml:"shell"`
	Nikss   nikssFileConfig `toml:"nikss"`
}

type shellFileConfig struct {
	Addr        string         `toml:"addr"`
	ProgramName string         `toml:"program_name"`
	EnableAcks  bool           `toml:"enable_acknowledgments"`
	AckTimeout  string         `toml:"ack_timeout"`
	Interfaces  map[string]int `toml:"interfaces"`
}

type nikssFileConfig struct {
	PipelineID int `toml:"pipeline_id"`
}

// loadSwitchFile reads a switch description and builds the bridge config
// for its back-end.
func loadSwitchFile(path string) (bridge.Switch, error) {
	var raw switchFileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return bridge.Switch{}, fmt.Errorf("load switch file: %w", err)
	}

	name := strings.TrimSpace(raw.Name)
	if name == "" {
		return bridge.Switch{}, fmt.Errorf("switch file %s: missing name", path)
	}

	switch strings.TrimSpace(raw.Backend) {
	case "shell":
		cfg := bridge.ShellConfig{
			Addr:            strings.TrimSpace(raw.Shell.Addr),
			ProgramName:     strings.TrimSpace(raw.Shell.ProgramName),
			InterfaceToPort: raw.Shell.Interfaces,
			EnableAcks:      true,
		}
		if cfg.Addr == "" {
			return bridge.Switch{}, fmt.Errorf("switch file %s: missing shell.addr", path)
		}
		if cfg.ProgramName == "" {
			return bridge.Switch{}, fmt.Errorf("switch file %s: missing shell.program_name", path)
		}
		if meta.IsDefined("shell", "enable_acknowledgments") {
			cfg.EnableAcks = raw.Shell.EnableAcks
		}
		if meta.IsDefined("shell", "ack_timeout") {
			d, err := time.ParseDuration(strings.TrimSpace(raw.Shell.AckTimeout))
			if err != nil {
				return bridge.Switch{}, fmt.Errorf("switch file %s: parse ack_timeout: %w", path, err)
			}
			cfg.AckTimeout = d
		}
		return bridge.Switch{Name: name, API: cfg}, nil
	case "nikss":
		if !meta.IsDefined("nikss", "pipeline_id") {
			return bridge.Switch{}, fmt.Errorf("switch file %s: missing nikss.pipeline_id", path)
		}
		return bridge.Switch{Name: name, API: bridge.NikssConfig{PipelineID: raw.Nikss.PipelineID}}, nil
	case "":
		return bridge.Switch{}, fmt.Errorf("switch file %s: missing backend", path)
	default:
		return bridge.Switch{}, fmt.Errorf("switch file %s: unknown backend %q", path, raw.Backend)
	}
}
