package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/misicnenad/fith-on/internal/sections"
	"github.com/spf13/cobra"
)

func newAddNoteCommand(c *cli) *cobra.Command {
	var title, text string

	cmd := &cobra.Command{
		Use:   "add-note",
		Short: "Add a free-form note",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(title) == "" {
				return errors.New("--title must not be empty")
			}

			s, err := c.openSession(cmd.Context())
			if err != nil {
				return err
			}
			defer s.close()
			if !s.writable(c.stderr) {
				return nil
			}

			created, err := s.engine.Add(cmd.Context(), sections.NewNoteSection(strings.TrimSpace(title), text))
			if err != nil {
				return err
			}
			fmt.Fprintf(c.stdout, "added note [%s]\n", created.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "Note title")
	cmd.Flags().StringVar(&text, "text", "", "Note text")
	return cmd
}
