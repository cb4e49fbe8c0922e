package program

import (
	"errors"
	"fmt"
)

// ExerciseName identifies one of the tracked main lifts.
type ExerciseName string

const (
	ExerciseOverhead ExerciseName = "overhead"
	ExerciseBench    ExerciseName = "bench"
	ExerciseSquat    ExerciseName = "squat"
	ExerciseDeadlift ExerciseName = "deadlift"
)

// WeeksPerBlock is the fixed length of a training cycle.
const WeeksPerBlock = 3

var (
	// ErrUnknownExercise indicates a lift outside the tracked set.
	ErrUnknownExercise = errors.New("program: unknown exercise")
	// ErrUnknownWeek indicates a week number outside 1..3.
	ErrUnknownWeek = errors.New("program: unknown week")
	// ErrNegativeTrainingMax indicates a training max below zero.
	ErrNegativeTrainingMax = errors.New("program: negative training max")
	// ErrNegativeAmrapReps indicates an AMRAP rep count below zero.
	ErrNegativeAmrapReps = errors.New("program: negative amrap reps")
	// ErrInvalidBlock indicates a block that does not have the canonical week layout.
	ErrInvalidBlock = errors.New("program: invalid block")
)

// exerciseNames lists the tracked lifts in generation order.
var exerciseNames = []ExerciseName{
	ExerciseOverhead,
	ExerciseBench,
	ExerciseSquat,
	ExerciseDeadlift,
}

// ExerciseNames returns the tracked lifts in generation order.
func ExerciseNames() []ExerciseName {
	names := make([]ExerciseName, len(exerciseNames))
	copy(names, exerciseNames)
	return names
}

// ParseExerciseName validates raw input against the tracked lifts.
func ParseExerciseName(raw string) (ExerciseName, error) {
	for _, name := range exerciseNames {
		if string(name) == raw {
			return name, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownExercise, raw)
}

// FormKey returns the form field that carries the training max for the lift.
func (n ExerciseName) FormKey() string {
	return string(n) + "Max"
}

// Exercise is one lift inside a week.
type Exercise struct {
	Name        ExerciseName `json:"name" yaml:"name"`
	TrainingMax float64      `json:"trainingMax" yaml:"trainingMax"`
	AmrapReps   int          `json:"amrapReps" yaml:"amrapReps"`
}

// Validate checks the exercise fields.
func (e Exercise) Validate() error {
	if _, err := ParseExerciseName(string(e.Name)); err != nil {
		return err
	}
	if e.TrainingMax < 0 {
		return fmt.Errorf("%w: %s %v", ErrNegativeTrainingMax, e.Name, e.TrainingMax)
	}
	if e.AmrapReps < 0 {
		return fmt.Errorf("%w: %s %d", ErrNegativeAmrapReps, e.Name, e.AmrapReps)
	}
	return nil
}

// Week groups the exercises trained under one percentage scheme.
type Week struct {
	Number    int        `json:"number" yaml:"number"`
	Exercises []Exercise `json:"exercises" yaml:"exercises"`
}

// Exercise returns the exercise with the given name.
func (w Week) Exercise(name ExerciseName) (Exercise, bool) {
	for _, exercise := range w.Exercises {
		if exercise.Name == name {
			return exercise, true
		}
	}
	return Exercise{}, false
}

// Validate checks the week number and that exercise names are unique.
func (w Week) Validate() error {
	if _, ok := Percentages(w.Number); !ok {
		return fmt.Errorf("%w: %d", ErrUnknownWeek, w.Number)
	}
	seen := make(map[ExerciseName]struct{}, len(w.Exercises))
	for _, exercise := range w.Exercises {
		if err := exercise.Validate(); err != nil {
			return err
		}
		if _, dup := seen[exercise.Name]; dup {
			return fmt.Errorf("%w: week %d repeats %s", ErrInvalidBlock, w.Number, exercise.Name)
		}
		seen[exercise.Name] = struct{}{}
	}
	return nil
}

// Block is one three-week 5/3/1 cycle.
type Block struct {
	Number int    `json:"number" yaml:"number"`
	Weeks  []Week `json:"weeks" yaml:"weeks"`
}

// Week returns the week with the given number.
func (b Block) Week(number int) (Week, bool) {
	for _, week := range b.Weeks {
		if week.Number == number {
			return week, true
		}
	}
	return Week{}, false
}

// Validate enforces exactly three weeks numbered 1, 2, 3 in order.
func (b Block) Validate() error {
	if len(b.Weeks) != WeeksPerBlock {
		return fmt.Errorf("%w: expected %d weeks, got %d", ErrInvalidBlock, WeeksPerBlock, len(b.Weeks))
	}
	for index, week := range b.Weeks {
		if week.Number != index+1 {
			return fmt.Errorf("%w: week %d at position %d", ErrInvalidBlock, week.Number, index+1)
		}
		if err := week.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// WithWeek returns a copy of the block with the week of the same number replaced.
func (b Block) WithWeek(updated Week) (Block, error) {
	weeks := make([]Week, len(b.Weeks))
	replaced := false
	for index, week := range b.Weeks {
		if week.Number == updated.Number {
			weeks[index] = updated
			replaced = true
			continue
		}
		weeks[index] = week
	}
	if !replaced {
		return Block{}, fmt.Errorf("%w: %d", ErrUnknownWeek, updated.Number)
	}
	return Block{Number: b.Number, Weeks: weeks}, nil
}
