package main

import (
	"strconv"

	"github.com/spf13/cobra"

	"github.com/pipectl/p4bridge/internal/bridge"
)

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Manage registers",
}

var registerSetCmd = &cobra.Command{
	Use:   "set <register> <index> <value>",
	Short: "Write a register cell and synchronize the register",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		index, err := strconv.Atoi(args[1])
		if err != nil {
			return err
		}
		return withBridge(func(b bridge.Bridge) error {
			return b.RegisterSet(args[0], index, parseValue(args[2]))
		})
	},
}

func init() {
	registerCmd.AddCommand(registerSetCmd)
	rootCmd.AddCommand(registerCmd)
}
