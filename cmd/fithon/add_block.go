package main

import (
	"errors"
	"fmt"

	"github.com/misicnenad/fith-on/internal/program"
	"github.com/misicnenad/fith-on/internal/sections"
	"github.com/spf13/cobra"
)

var errNoPreviousBlock = errors.New("no previous block to continue from")

func newAddBlockCommand(c *cli) *cobra.Command {
	var (
		number     int
		fromLatest bool
	)

	cmd := &cobra.Command{
		Use:   "add-block",
		Short: "Create a training block from training maxes",
		Long: `Create a three week block. Lifts without a positive training max are kept in the
block but not shown. With --from-latest the maxes of the newest block are raised by
the standard cycle increment; explicit lift flags still win.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			values := program.FormValues{}
			for _, name := range program.ExerciseNames() {
				flag := string(name)
				if !cmd.Flags().Changed(flag) {
					continue
				}
				value, err := cmd.Flags().GetFloat64(flag)
				if err != nil {
					return err
				}
				if value < 0 {
					return fmt.Errorf("--%s must not be negative", flag)
				}
			}

			s, err := c.openSession(cmd.Context())
			if err != nil {
				return err
			}
			defer s.close()
			if !s.writable(c.stderr) {
				return nil
			}

			blockNumber := number
			latest, hasLatest := sections.LatestBlock(s.engine.Sections())
			if fromLatest {
				if !hasLatest {
					return errNoPreviousBlock
				}
				suggestion := program.SuggestNextBlock(*latest.Block)
				values = suggestion.Values
				if blockNumber <= 0 {
					blockNumber = suggestion.BlockNumber
				}
			}
			for _, name := range program.ExerciseNames() {
				if cmd.Flags().Changed(string(name)) {
					value, _ := cmd.Flags().GetFloat64(string(name))
					values[name.FormKey()] = value
				}
			}
			if blockNumber <= 0 {
				blockNumber = 1
				if hasLatest {
					blockNumber = latest.Block.Number + 1
				}
			}

			created, err := s.engine.Add(cmd.Context(), sections.NewBlockSection(program.GenerateBlock(values, blockNumber)))
			if err != nil {
				return err
			}
			fmt.Fprintf(c.stdout, "added block %d [%s]\n", blockNumber, created.ID)
			printBlock(c.stdout, created)
			return nil
		},
	}

	cmd.Flags().IntVar(&number, "number", 0, "Block number (defaults to the next one)")
	cmd.Flags().BoolVar(&fromLatest, "from-latest", false, "Start from the newest block's maxes plus the cycle increment")
	for _, name := range program.ExerciseNames() {
		cmd.Flags().Float64(string(name), 0, fmt.Sprintf("Training max for %s", name))
	}
	return cmd
}
