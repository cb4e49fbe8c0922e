package program

import "math"

// Standard 5/3/1 cycle increments.
const (
	upperBodyIncrement = 2.5
	lowerBodyIncrement = 5.0
)

var cycleIncrements = map[ExerciseName]float64{
	ExerciseOverhead: upperBodyIncrement,
	ExerciseBench:    upperBodyIncrement,
	ExerciseSquat:    lowerBodyIncrement,
	ExerciseDeadlift: lowerBodyIncrement,
}

// Suggestion pre-fills the form for the block that follows an existing one.
type Suggestion struct {
	BlockNumber int
	Values      FormValues
}

// SuggestNextBlock bumps the block number and adds the cycle increment to every lift
// that was trained in the latest block. Untrained lifts stay at zero.
func SuggestNextBlock(latest Block) Suggestion {
	values := make(FormValues, len(exerciseNames))
	week, ok := latest.Week(1)
	for _, name := range exerciseNames {
		if !ok {
			values[name.FormKey()] = 0
			continue
		}
		exercise, found := week.Exercise(name)
		if !found || exercise.TrainingMax <= 0 {
			values[name.FormKey()] = 0
			continue
		}
		values[name.FormKey()] = exercise.TrainingMax + cycleIncrements[name]
	}
	return Suggestion{BlockNumber: latest.Number + 1, Values: values}
}

// EstimateOneRepMax applies the Epley formula, rounded to two decimals.
func EstimateOneRepMax(weight float64, reps int) float64 {
	if weight <= 0 || reps <= 0 {
		return 0
	}
	if reps == 1 {
		return weight
	}
	return math.Round(weight*(1+float64(reps)/30)*100) / 100
}

// TopSetEstimate estimates a one rep max from the AMRAP reps logged on the final
// working set of the exercise. It returns zero when no reps were recorded.
func TopSetEstimate(week int, exercise Exercise) (float64, error) {
	if exercise.AmrapReps <= 0 {
		return 0, nil
	}
	weights, err := ComputeWeights(exercise.TrainingMax, week)
	if err != nil {
		return 0, err
	}
	return EstimateOneRepMax(weights[2], exercise.AmrapReps), nil
}
