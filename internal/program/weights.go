package program

import (
	"fmt"
	"math"
)

// PlateIncrement is the smallest loadable weight step.
const PlateIncrement = 2.5

// floatSlack absorbs binary representation noise such as 0.7*175 = 122.49999999999999
// so that exact multiples of the increment are not pushed one step down. A raw weight
// less than floatSlack steps below a multiple rounds up to that multiple, so a result
// can exceed tm × p by at most floatSlack × PlateIncrement.
const floatSlack = 1e-9

var percentagesPerWeek = map[int][3]float64{
	1: {0.65, 0.75, 0.85},
	2: {0.70, 0.80, 0.90},
	3: {0.75, 0.85, 0.95},
}

var repSchemes = map[int]string{
	1: "5/5/5",
	2: "3/3/3",
	3: "5/3/1",
}

// Weights holds the three working set loads of a week.
type Weights [3]float64

// Percentages returns the working set percentages for a week number.
func Percentages(week int) ([3]float64, bool) {
	percentages, ok := percentagesPerWeek[week]
	return percentages, ok
}

// RepScheme returns the display rep scheme for a week number.
func RepScheme(week int) string {
	return repSchemes[week]
}

// ComputeWeights derives the three working weights for a week from a training max.
// Each weight is rounded down to the nearest multiple of PlateIncrement.
func ComputeWeights(trainingMax float64, week int) (Weights, error) {
	if trainingMax < 0 {
		return Weights{}, fmt.Errorf("%w: %v", ErrNegativeTrainingMax, trainingMax)
	}
	percentages, ok := Percentages(week)
	if !ok {
		return Weights{}, fmt.Errorf("%w: %d", ErrUnknownWeek, week)
	}

	var weights Weights
	for index, percentage := range percentages {
		weights[index] = roundDown(trainingMax*percentage, PlateIncrement)
	}
	return weights, nil
}

func roundDown(value, step float64) float64 {
	return math.Floor(value/step+floatSlack) * step
}
