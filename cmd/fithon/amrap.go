package main

import (
	"fmt"
	"strings"

	"github.com/misicnenad/fith-on/internal/program"
	"github.com/misicnenad/fith-on/internal/sections"
	"github.com/spf13/cobra"
)

func newAmrapCommand(c *cli) *cobra.Command {
	var (
		week int
		lift string
		reps int
	)

	cmd := &cobra.Command{
		Use:   "amrap <block-id>",
		Short: "Record the reps achieved on the final set of a lift",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := sections.NewSectionID(args[0])
			if err != nil {
				return err
			}
			name, err := program.ParseExerciseName(strings.ToLower(strings.TrimSpace(lift)))
			if err != nil {
				return err
			}
			if reps < 0 {
				return fmt.Errorf("--reps must not be negative")
			}

			s, err := c.openSession(cmd.Context())
			if err != nil {
				return err
			}
			defer s.close()
			if !s.writable(c.stderr) {
				return nil
			}

			section, ok := s.engine.Section(id)
			if !ok || section.Block == nil {
				return fmt.Errorf("block %s not found", id)
			}
			current, ok := section.Block.Week(week)
			if !ok {
				return fmt.Errorf("%w: %d", program.ErrUnknownWeek, week)
			}
			exercise, ok := current.Exercise(name)
			if !ok {
				exercise = program.Exercise{Name: name}
			}
			exercise.AmrapReps = reps

			if err := s.engine.UpdateExercise(cmd.Context(), id, week, exercise); err != nil {
				return err
			}
			fmt.Fprintf(c.stdout, "week %d  %s\n", week, exerciseLine(week, exercise))
			return nil
		},
	}

	cmd.Flags().IntVar(&week, "week", 1, "Week number (1, 2 or 3)")
	cmd.Flags().StringVar(&lift, "lift", "", "Lift name (overhead, bench, squat, deadlift)")
	cmd.Flags().IntVar(&reps, "reps", 0, "Reps achieved on the final set")
	_ = cmd.MarkFlagRequired("lift")
	return cmd
}
