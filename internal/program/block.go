package program

// FormValues carries raw training max input keyed by "<exercise>Max".
type FormValues map[string]float64

// TrainingMax returns the form value for the lift, zero when absent.
func (v FormValues) TrainingMax(name ExerciseName) float64 {
	if v == nil {
		return 0
	}
	return v[name.FormKey()]
}

// displayOrder is the order lifts are shown in within a week.
var displayOrder = []ExerciseName{
	ExerciseOverhead,
	ExerciseDeadlift,
	ExerciseBench,
	ExerciseSquat,
}

// GenerateBlock assembles a full block from form values. Every tracked lift is
// present in every week; lifts without a positive max are kept with their raw value
// and hidden by VisibleExercises.
func GenerateBlock(values FormValues, blockNumber int) Block {
	weeks := make([]Week, 0, WeeksPerBlock)
	for number := 1; number <= WeeksPerBlock; number++ {
		exercises := make([]Exercise, 0, len(exerciseNames))
		for _, name := range exerciseNames {
			exercises = append(exercises, Exercise{
				Name:        name,
				TrainingMax: values.TrainingMax(name),
				AmrapReps:   0,
			})
		}
		weeks = append(weeks, Week{Number: number, Exercises: exercises})
	}
	return Block{Number: blockNumber, Weeks: weeks}
}

// ReplaceExerciseInWeek drops any exercise with the updated name and appends the
// updated one. The input week is not modified.
func ReplaceExerciseInWeek(week Week, updated Exercise) Week {
	exercises := make([]Exercise, 0, len(week.Exercises)+1)
	for _, exercise := range week.Exercises {
		if exercise.Name == updated.Name {
			continue
		}
		exercises = append(exercises, exercise)
	}
	exercises = append(exercises, updated)
	return Week{Number: week.Number, Exercises: exercises}
}

// VisibleExercises returns the exercises worth rendering, in display order.
func VisibleExercises(week Week) []Exercise {
	visible := make([]Exercise, 0, len(week.Exercises))
	for _, name := range displayOrder {
		exercise, ok := week.Exercise(name)
		if !ok || exercise.TrainingMax <= 0 {
			continue
		}
		visible = append(visible, exercise)
	}
	return visible
}
