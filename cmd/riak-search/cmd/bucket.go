package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newEnableCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "enable <bucket>",
		Short: "Install the search precommit hook on a bucket",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := g.client()
			if err != nil {
				return err
			}
			if err := c.Bucket(args[0]).EnableSearch(commandContext(cmd)); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "search enabled on %s\n", args[0])
			return nil
		},
	}
}

func newDisableCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "disable <bucket>",
		Short: "Remove the search precommit hook from a bucket",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := g.client()
			if err != nil {
				return err
			}
			if err := c.Bucket(args[0]).DisableSearch(commandContext(cmd)); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "search disabled on %s\n", args[0])
			return nil
		},
	}
}

func newStatusCmd(g *globalFlags) *cobra.Command {
	var wait string

	cmd := &cobra.Command{
		Use:   "status <bucket>",
		Short: "Report whether search is enabled on a bucket",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := g.client()
			if err != nil {
				return err
			}
			b := c.Bucket(args[0])
			ctx := commandContext(cmd)

			switch wait {
			case "":
			case "enabled", "disabled":
				if err := b.AwaitSearch(ctx, wait == "enabled"); err != nil {
					return err
				}
			default:
				return fmt.Errorf("--wait must be enabled or disabled, got %q", wait)
			}

			enabled, err := b.SearchEnabled(ctx)
			if err != nil {
				return err
			}
			state := "disabled"
			if enabled {
				state = "enabled"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: search %s\n", args[0], state)
			return nil
		},
	}
	cmd.Flags().StringVar(&wait, "wait", "", "block until search is enabled or disabled")
	return cmd
}
