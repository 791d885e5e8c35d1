package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pipectl/p4bridge/internal/bridge"
)

var groupMembers []string

var mcGroupCmd = &cobra.Command{
	Use:   "mc-group",
	Short: "Manage multicast groups",
}

var mcGroupCreateCmd = &cobra.Command{
	Use:   "create <group-id>",
	Short: "Create a multicast group",
	Long:  "Create a multicast group. Members are given as --member <egress-interface>:<instance-id>, repeatable.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		groupID, err := strconv.Atoi(args[0])
		if err != nil {
			return err
		}
		members, err := parseMulticastMembers(groupMembers)
		if err != nil {
			return err
		}
		return withBridge(func(b bridge.Bridge) error {
			return b.MulticastGroupCreate(groupID, members)
		})
	},
}

var cloneSessionCmd = &cobra.Command{
	Use:   "clone-session",
	Short: "Manage clone (mirroring) sessions",
}

var cloneSessionCreateCmd = &cobra.Command{
	Use:   "create <session-id>",
	Short: "Create a clone session",
	Long:  "Create a clone session. Members are given as --member <egress-interface>:<instance-id>, repeatable.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sessionID, err := strconv.Atoi(args[0])
		if err != nil {
			return err
		}
		members, err := parseCloneMembers(groupMembers)
		if err != nil {
			return err
		}
		return withBridge(func(b bridge.Bridge) error {
			return b.CloneSessionCreate(sessionID, members)
		})
	},
}

func parseMulticastMembers(raw []string) ([]bridge.MulticastMember, error) {
	out := make([]bridge.MulticastMember, 0, len(raw))
	for _, m := range raw {
		intf, instance, err := parseMember(m)
		if err != nil {
			return nil, err
		}
		out = append(out, bridge.MulticastMember{EgressInterface: intf, InstanceID: instance})
	}
	return out, nil
}

func parseCloneMembers(raw []string) ([]bridge.CloneMember, error) {
	out := make([]bridge.CloneMember, 0, len(raw))
	for _, m := range raw {
		intf, instance, err := parseMember(m)
		if err != nil {
			return nil, err
		}
		out = append(out, bridge.CloneMember{
			EgressInterface: intf,
			InstanceID:      instance,
			ClassOfService:  -1,
			TruncateAfter:   -1,
		})
	}
	return out, nil
}

func parseMember(m string) (string, int, error) {
	intf, rawInstance, found := strings.Cut(m, ":")
	if !found || strings.TrimSpace(intf) == "" {
		return "", 0, fmt.Errorf("bad member %q: want <egress-interface>:<instance-id>", m)
	}
	instance, err := strconv.Atoi(strings.TrimSpace(rawInstance))
	if err != nil {
		return "", 0, fmt.Errorf("bad member %q: instance id: %w", m, err)
	}
	return strings.TrimSpace(intf), instance, nil
}

func init() {
	mcGroupCreateCmd.Flags().StringArrayVar(&groupMembers, "member", nil, "group member as <egress-interface>:<instance-id>")
	cloneSessionCreateCmd.Flags().StringArrayVar(&groupMembers, "member", nil, "session member as <egress-interface>:<instance-id>")
	mcGroupCmd.AddCommand(mcGroupCreateCmd)
	cloneSessionCmd.AddCommand(cloneSessionCreateCmd)
	rootCmd.AddCommand(mcGroupCmd, cloneSessionCmd)
}
