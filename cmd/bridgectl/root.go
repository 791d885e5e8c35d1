// Package main implements bridgectl, a command line tool that drives the
// uniform switch operation contract (table mutation, register writes, group
// setup) against a switch described by a TOML file.
package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pipectl/p4bridge/internal/bridge"
	"github.com/pipectl/p4bridge/internal/bridge/factory"
	"github.com/pipectl/p4bridge/internal/logging"
)

var switchFile string

var rootCmd = &cobra.Command{
	Use:           "bridgectl",
	Short:         "Control-plane CLI for P4 programmable switches",
	Long:          "bridgectl issues uniform control-plane operations (table mutation, register writes, multicast/clone group setup) against a switch described by a TOML file.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logging.ConfigureRuntime()
	},
}

// Execute runs the CLI.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "bridgectl: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&switchFile, "switch", "s", "", "path to the switch TOML file (required)")
	_ = rootCmd.MarkPersistentFlagRequired("switch")
}

// withBridge opens the configured switch, runs fn, and closes the bridge.
func withBridge(fn func(b bridge.Bridge) error) error {
	sw, err := loadSwitchFile(switchFile)
	if err != nil {
		return err
	}
	b, err := factory.CreateFor(sw)
	if err != nil {
		return err
	}
	defer func() { _ = b.Close() }()
	return fn(b)
}

// parseValues turns CLI arguments into bridge values: decimal literals
// become integers, everything else stays a string.
func parseValues(args []string) []bridge.Value {
	out := make([]bridge.Value, len(args))
	for i, a := range args {
		out[i] = parseValue(a)
	}
	return out
}

func parseValue(a string) bridge.Value {
	if n, err := strconv.Atoi(a); err == nil {
		return bridge.Int(n)
	}
	return bridge.Str(a)
}

// splitList splits a comma-separated flag value, dropping empty items.
func splitList(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if v := strings.TrimSpace(p); v != "" {
			out = append(out, v)
		}
	}
	return out
}
