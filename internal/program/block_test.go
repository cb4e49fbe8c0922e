package program

import (
	"errors"
	"testing"
)

func TestGenerateBlockBuildsThreeWeeks(t *testing.T) {
	values := FormValues{
		"overheadMax": 60,
		"benchMax":    90,
		"squatMax":    140,
		"deadliftMax": 180,
	}

	block := GenerateBlock(values, 4)

	if block.Number != 4 {
		t.Fatalf("expected block number 4, got %d", block.Number)
	}
	if len(block.Weeks) != WeeksPerBlock {
		t.Fatalf("expected %d weeks, got %d", WeeksPerBlock, len(block.Weeks))
	}
	for index, week := range block.Weeks {
		if week.Number != index+1 {
			t.Fatalf("expected week %d at position %d, got %d", index+1, index, week.Number)
		}
		if len(week.Exercises) != len(ExerciseNames()) {
			t.Fatalf("expected one exercise per lift, got %d", len(week.Exercises))
		}
		for _, name := range ExerciseNames() {
			exercise, ok := week.Exercise(name)
			if !ok {
				t.Fatalf("week %d missing %s", week.Number, name)
			}
			if exercise.TrainingMax != values[name.FormKey()] {
				t.Fatalf("unexpected training max for %s: %v", name, exercise.TrainingMax)
			}
			if exercise.AmrapReps != 0 {
				t.Fatalf("expected amrap reps to start at zero")
			}
		}
	}
	if err := block.Validate(); err != nil {
		t.Fatalf("generated block should validate: %v", err)
	}
}

func TestGenerateBlockKeepsUntrainedLiftsButHidesThem(t *testing.T) {
	block := GenerateBlock(FormValues{"benchMax": 100}, 1)

	week, _ := block.Week(2)
	squat, ok := week.Exercise(ExerciseSquat)
	if !ok {
		t.Fatalf("expected squat to exist in the data model")
	}
	if squat.TrainingMax != 0 {
		t.Fatalf("expected zero squat max, got %v", squat.TrainingMax)
	}

	visible := VisibleExercises(week)
	if len(visible) != 1 || visible[0].Name != ExerciseBench {
		t.Fatalf("expected only bench to be visible, got %#v", visible)
	}
}

func TestVisibleExercisesUsesDisplayOrder(t *testing.T) {
	week := Week{Number: 1, Exercises: []Exercise{
		{Name: ExerciseSquat, TrainingMax: 100},
		{Name: ExerciseBench, TrainingMax: 80},
		{Name: ExerciseDeadlift, TrainingMax: 120},
		{Name: ExerciseOverhead, TrainingMax: 50},
	}}

	visible := VisibleExercises(week)
	expected := []ExerciseName{ExerciseOverhead, ExerciseDeadlift, ExerciseBench, ExerciseSquat}
	if len(visible) != len(expected) {
		t.Fatalf("expected %d visible exercises, got %d", len(expected), len(visible))
	}
	for index, name := range expected {
		if visible[index].Name != name {
			t.Fatalf("position %d: expected %s, got %s", index, name, visible[index].Name)
		}
	}
}

func TestReplaceExerciseInWeekPreservesOthers(t *testing.T) {
	week := Week{Number: 3, Exercises: []Exercise{
		{Name: ExerciseOverhead, TrainingMax: 50, AmrapReps: 4},
		{Name: ExerciseBench, TrainingMax: 80},
		{Name: ExerciseSquat, TrainingMax: 100, AmrapReps: 7},
	}}

	updated := ReplaceExerciseInWeek(week, Exercise{Name: ExerciseBench, TrainingMax: 80, AmrapReps: 6})

	if updated.Number != 3 {
		t.Fatalf("expected week number to be preserved")
	}
	if len(updated.Exercises) != 3 {
		t.Fatalf("expected 3 exercises, got %d", len(updated.Exercises))
	}
	count := 0
	for _, exercise := range updated.Exercises {
		if exercise.Name == ExerciseBench {
			count++
			if exercise.AmrapReps != 6 {
				t.Fatalf("expected updated bench reps, got %d", exercise.AmrapReps)
			}
		}
	}
	if count != 1 {
		t.Fatalf("expected exactly one bench entry, got %d", count)
	}
	overhead, _ := updated.Exercise(ExerciseOverhead)
	squat, _ := updated.Exercise(ExerciseSquat)
	if overhead.AmrapReps != 4 || squat.AmrapReps != 7 {
		t.Fatalf("other exercises should be untouched: %#v", updated.Exercises)
	}

	original, _ := week.Exercise(ExerciseBench)
	if original.AmrapReps != 0 {
		t.Fatalf("input week must not be modified")
	}
}

func TestReplaceExerciseInWeekAddsMissingName(t *testing.T) {
	week := Week{Number: 1, Exercises: []Exercise{{Name: ExerciseBench, TrainingMax: 80}}}

	updated := ReplaceExerciseInWeek(week, Exercise{Name: ExerciseDeadlift, TrainingMax: 150, AmrapReps: 3})

	if len(updated.Exercises) != 2 {
		t.Fatalf("expected the new exercise to be appended, got %d entries", len(updated.Exercises))
	}
	if updated.Exercises[1].Name != ExerciseDeadlift {
		t.Fatalf("expected deadlift appended last")
	}
}

func TestBlockValidateRejectsBadLayouts(t *testing.T) {
	valid := GenerateBlock(FormValues{"benchMax": 100}, 1)

	tests := []struct {
		name   string
		mutate func(Block) Block
		want   error
	}{
		{
			name: "two-weeks",
			mutate: func(b Block) Block {
				b.Weeks = b.Weeks[:2]
				return b
			},
			want: ErrInvalidBlock,
		},
		{
			name: "misnumbered",
			mutate: func(b Block) Block {
				weeks := append([]Week(nil), b.Weeks...)
				weeks[0].Number, weeks[1].Number = 2, 1
				b.Weeks = weeks
				return b
			},
			want: ErrInvalidBlock,
		},
		{
			name: "duplicate-exercise",
			mutate: func(b Block) Block {
				weeks := append([]Week(nil), b.Weeks...)
				exercises := append([]Exercise(nil), weeks[0].Exercises...)
				exercises = append(exercises, Exercise{Name: ExerciseBench, TrainingMax: 1})
				weeks[0] = Week{Number: 1, Exercises: exercises}
				b.Weeks = weeks
				return b
			},
			want: ErrInvalidBlock,
		},
		{
			name: "negative-reps",
			mutate: func(b Block) Block {
				weeks := append([]Week(nil), b.Weeks...)
				weeks[2] = ReplaceExerciseInWeek(weeks[2], Exercise{Name: ExerciseBench, TrainingMax: 100, AmrapReps: -1})
				b.Weeks = weeks
				return b
			},
			want: ErrNegativeAmrapReps,
		},
		{
			name: "unknown-exercise",
			mutate: func(b Block) Block {
				weeks := append([]Week(nil), b.Weeks...)
				weeks[1] = ReplaceExerciseInWeek(weeks[1], Exercise{Name: "curl", TrainingMax: 20})
				b.Weeks = weeks
				return b
			},
			want: ErrUnknownExercise,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.mutate(valid).Validate()
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}

	if err := valid.Validate(); err != nil {
		t.Fatalf("mutations must not leak into the original block: %v", err)
	}
}

func TestBlockWithWeekReplacesByNumber(t *testing.T) {
	block := GenerateBlock(FormValues{"squatMax": 150}, 2)
	week, _ := block.Week(3)
	squat, _ := week.Exercise(ExerciseSquat)
	squat.AmrapReps = 5

	updated, err := block.WithWeek(ReplaceExerciseInWeek(week, squat))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	updatedWeek, _ := updated.Week(3)
	updatedSquat, _ := updatedWeek.Exercise(ExerciseSquat)
	if updatedSquat.AmrapReps != 5 {
		t.Fatalf("expected amrap reps to be updated")
	}
	originalWeek, _ := block.Week(3)
	originalSquat, _ := originalWeek.Exercise(ExerciseSquat)
	if originalSquat.AmrapReps != 0 {
		t.Fatalf("original block must not change")
	}

	if _, err := block.WithWeek(Week{Number: 9}); !errors.Is(err, ErrUnknownWeek) {
		t.Fatalf("expected ErrUnknownWeek, got %v", err)
	}
}
