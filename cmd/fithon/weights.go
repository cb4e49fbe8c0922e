package main

import (
	"fmt"

	"github.com/misicnenad/fith-on/internal/program"
	"github.com/spf13/cobra"
)

func newWeightsCommand(c *cli) *cobra.Command {
	var (
		trainingMax float64
		week        int
	)

	cmd := &cobra.Command{
		Use:   "weights",
		Short: "Print the working weights for a training max",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			weeks := []int{1, 2, 3}
			if cmd.Flags().Changed("week") {
				weeks = []int{week}
			}
			for _, number := range weeks {
				weights, err := program.ComputeWeights(trainingMax, number)
				if err != nil {
					return err
				}
				fmt.Fprintf(c.stdout, "Week %d (%s): %s / %s / %s\n",
					number,
					program.RepScheme(number),
					formatWeight(weights[0]),
					formatWeight(weights[1]),
					formatWeight(weights[2]))
			}
			return nil
		},
	}

	cmd.Flags().Float64Var(&trainingMax, "tm", 0, "Training max")
	cmd.Flags().IntVar(&week, "week", 0, "Only this week (1, 2 or 3)")
	_ = cmd.MarkFlagRequired("tm")
	return cmd
}
