package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newListCommand(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Show blocks and notes, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := c.openSession(cmd.Context())
			if err != nil {
				return err
			}
			defer s.close()

			if s.observer.IsOffline() {
				fmt.Fprintln(c.stderr, "offline: showing the cached collection")
			}
			printSections(c.stdout, s.engine.Sections())
			return nil
		},
	}
}
