package main

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"

	"github.com/pipectl/p4bridge/internal/bridge"
)

var planFile string

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Apply a plan of operations inside one batch",
}

var batchApplyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Apply a TOML plan of operations as one batch",
	RunE: func(cmd *cobra.Command, args []string) error {
		plan, err := loadPlan(planFile)
		if err != nil {
			return err
		}
		return withBridge(func(b bridge.Bridge) error {
			return bridge.Batch(b, func() error {
				for i, op := range plan.Ops {
					if err := applyOp(b, op); err != nil {
						return fmt.Errorf("op %d (%s): %w", i, op.Type, err)
					}
				}
				return nil
			})
		})
	},
}

type planOp struct {
	Type     string   `toml:"type"`
	Table    string   `toml:"table"`
	Keys     []string `toml:"keys"`
	Action   string   `toml:"action"`
	Params   []string `toml:"params"`
	Register string   `toml:"register"`
	Index    int      `toml:"index"`
	Value    string   `toml:"value"`
}

type plan struct {
	Ops []planOp `toml:"op"`
}

func loadPlan(path string) (plan, error) {
	var p plan
	if _, err := toml.DecodeFile(path, &p); err != nil {
		return plan{}, fmt.Errorf("load plan: %w", err)
	}
	if len(p.Ops) == 0 {
		return plan{}, fmt.Errorf("plan %s contains no operations", path)
	}
	return p, nil
}

func applyOp(b bridge.Bridge, op planOp) error {
	switch strings.TrimSpace(op.Type) {
	case "table_add":
		return b.TableAdd(op.Table, parseValues(op.Keys), op.Action, parseValues(op.Params))
	case "table_modify":
		return b.TableModify(op.Table, parseValues(op.Keys), op.Action, parseValues(op.Params))
	case "table_set_default":
		return b.TableSetDefault(op.Table, op.Action, parseValues(op.Params))
	case "table_delete":
		return b.TableDelete(op.Table, parseValues(op.Keys))
	case "table_clear":
		return b.TableClear(op.Table)
	case "register_set":
		return b.RegisterSet(op.Register, op.Index, parseValue(op.Value))
	default:
		return fmt.Errorf("unknown op type %q", op.Type)
	}
}

func init() {
	batchApplyCmd.Flags().StringVarP(&planFile, "file", "f", "", "path to the plan TOML file (required)")
	_ = batchApplyCmd.MarkFlagRequired("file")
	batchCmd.AddCommand(batchApplyCmd)
	rootCmd.AddCommand(batchCmd)
}
