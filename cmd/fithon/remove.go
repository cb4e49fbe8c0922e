package main

import (
	"fmt"

	"github.com/misicnenad/fith-on/internal/sections"
	"github.com/spf13/cobra"
)

func newRemoveCommand(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <section-id>",
		Short: "Delete a block or note",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := sections.NewSectionID(args[0])
			if err != nil {
				return err
			}

			s, err := c.openSession(cmd.Context())
			if err != nil {
				return err
			}
			defer s.close()
			if !s.writable(c.stderr) {
				return nil
			}
			if _, ok := s.engine.Section(id); !ok {
				return fmt.Errorf("section %s not found", id)
			}

			if err := s.engine.Remove(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(c.stdout, "removed [%s]\n", id)
			return nil
		},
	}
}
