package main

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/misicnenad/fith-on/internal/program"
	"github.com/misicnenad/fith-on/internal/sections"
)

func printSections(w io.Writer, items []sections.Section) {
	if len(items) == 0 {
		fmt.Fprintln(w, "no sections yet")
		return
	}
	for index, section := range items {
		if index > 0 {
			fmt.Fprintln(w)
		}
		switch {
		case section.Type == sections.TypeBlock && section.Block != nil:
			printBlock(w, section)
		case section.Type == sections.TypeNote && section.Note != nil:
			printNote(w, section)
		}
	}
}

func printBlock(w io.Writer, section sections.Section) {
	fmt.Fprintf(w, "Block %d  [%s]  %s\n", section.Block.Number, section.ID, formatDate(section))
	for _, week := range section.Block.Weeks {
		fmt.Fprintf(w, "  Week %d (%s)\n", week.Number, program.RepScheme(week.Number))
		visible := program.VisibleExercises(week)
		if len(visible) == 0 {
			fmt.Fprintln(w, "    no lifts with a training max")
			continue
		}
		for _, exercise := range visible {
			fmt.Fprintln(w, "    "+exerciseLine(week.Number, exercise))
		}
	}
}

func exerciseLine(week int, exercise program.Exercise) string {
	weights, err := program.ComputeWeights(exercise.TrainingMax, week)
	if err != nil {
		return fmt.Sprintf("%-8s %v", exercise.Name, err)
	}
	line := fmt.Sprintf("%-8s TM %-6s %s / %s / %s",
		exercise.Name,
		formatWeight(exercise.TrainingMax),
		formatWeight(weights[0]),
		formatWeight(weights[1]),
		formatWeight(weights[2]))
	if exercise.AmrapReps > 0 {
		estimate, err := program.TopSetEstimate(week, exercise)
		if err == nil {
			line += fmt.Sprintf("  AMRAP %d (e1RM %s)", exercise.AmrapReps, formatWeight(estimate))
		}
	}
	return line
}

func printNote(w io.Writer, section sections.Section) {
	fmt.Fprintf(w, "Note: %s  [%s]  %s\n", section.Note.Title, section.ID, formatDate(section))
	if section.Note.Text != "" {
		fmt.Fprintf(w, "  %s\n", section.Note.Text)
	}
}

func formatDate(section sections.Section) string {
	return section.CreatedAt().UTC().Format(time.DateOnly)
}

func formatWeight(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64)
}
