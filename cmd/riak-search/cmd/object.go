package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func newPutCmd(g *globalFlags) *cobra.Command {
	var contentType string

	cmd := &cobra.Command{
		Use:   "put <bucket> <key> <value>",
		Short: "Store an object; search-enabled buckets index it",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := g.client()
			if err != nil {
				return err
			}

			var data any = args[2]
			if contentType == "application/json" {
				if err := json.Unmarshal([]byte(args[2]), &data); err != nil {
					return fmt.Errorf("value is not JSON: %w", err)
				}
			}
			o := c.Bucket(args[0]).New(args[1], data)
			o.ContentType = contentType
			if err := o.Store(commandContext(cmd)); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "stored %s/%s (vclock %s)\n", args[0], args[1], o.Vclock())
			return nil
		},
	}
	cmd.Flags().StringVar(&contentType, "content-type", "application/json", "object content type")
	return cmd
}

func newGetCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "get <bucket> <key>",
		Short: "Fetch an object and print its value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := g.client()
			if err != nil {
				return err
			}
			o, err := c.Bucket(args[0]).Get(commandContext(cmd), args[1])
			if err != nil {
				return err
			}
			if raw, ok := o.Data.([]byte); ok {
				_, err := cmd.OutOrStdout().Write(append(raw, '\n'))
				return err //nolint:wrapcheck // stdout write
			}
			return printJSON(cmd.OutOrStdout(), o.Data)
		},
	}
}

func newRemoveCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <bucket> <key>",
		Aliases: []string{"remove"},
		Short:   "Delete an object; a missing object is not an error",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := g.client()
			if err != nil {
				return err
			}
			if err := c.Bucket(args[0]).New(args[1], nil).Delete(commandContext(cmd)); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s/%s\n", args[0], args[1])
			return nil
		},
	}
}
