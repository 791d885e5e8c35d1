package main

import (
	"github.com/spf13/cobra"

	"github.com/pipectl/p4bridge/internal/bridge"
)

var (
	tableKeys   string
	tableParams string
)

var tableCmd = &cobra.Command{
	Use:   "table",
	Short: "Manage table entries",
}

var tableAddCmd = &cobra.Command{
	Use:   "add <table> <action>",
	Short: "Add a table entry",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withBridge(func(b bridge.Bridge) error {
			return b.TableAdd(args[0], parseValues(splitList(tableKeys)), args[1], parseValues(splitList(tableParams)))
		})
	},
}

var tableModifyCmd = &cobra.Command{
	Use:   "modify <table> <action>",
	Short: "Modify an existing table entry",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withBridge(func(b bridge.Bridge) error {
			return b.TableModify(args[0], parseValues(splitList(tableKeys)), args[1], parseValues(splitList(tableParams)))
		})
	},
}

var tableDefaultCmd = &cobra.Command{
	Use:   "default <table> <action>",
	Short: "Set the default (miss) action of a table",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withBridge(func(b bridge.Bridge) error {
			return b.TableSetDefault(args[0], args[1], parseValues(splitList(tableParams)))
		})
	},
}

var tableDeleteCmd = &cobra.Command{
	Use:   "delete <table>",
	Short: "Delete the table entry matching the given keys",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withBridge(func(b bridge.Bridge) error {
			return b.TableDelete(args[0], parseValues(splitList(tableKeys)))
		})
	},
}

var tableClearCmd = &cobra.Command{
	Use:   "clear <table>",
	Short: "Remove every entry from a table",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withBridge(func(b bridge.Bridge) error {
			return b.TableClear(args[0])
		})
	},
}

func init() {
	for _, c := range []*cobra.Command{tableAddCmd, tableModifyCmd, tableDeleteCmd} {
		c.Flags().StringVar(&tableKeys, "keys", "", "comma-separated match keys")
	}
	for _, c := range []*cobra.Command{tableAddCmd, tableModifyCmd, tableDefaultCmd} {
		c.Flags().StringVar(&tableParams, "params", "", "comma-separated action parameters")
	}
	tableCmd.AddCommand(tableAddCmd, tableModifyCmd, tableDefaultCmd, tableDeleteCmd, tableClearCmd)
	rootCmd.AddCommand(tableCmd)
}
