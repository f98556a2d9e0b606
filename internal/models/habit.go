package models

import (
	"time"

	"github.com/google/uuid"
)

// Habit is a point-accruing tracked behavior embedded in a User document.
type Habit struct {
	ID          string    `json:"id"          bson:"_id"`
	Name        string    `json:"name"        bson:"name"`
	Points      int       `json:"points"      bson:"points"`
	LastUpdated time.Time `json:"lastUpdated" bson:"last_updated"`
}

// HabitView is a Habit plus the derived eligibility flag. The flag is
// computed at read time from (now, lastUpdated) and never persisted.
type HabitView struct {
	Habit            `bson:",inline"`
	Has24HoursPassed bool `json:"has24HoursPassed" bson:"-"`
}

// UserView is a User whose habits carry the derived eligibility flag.
type UserView struct {
	ID        string      `json:"id"`
	Name      string      `json:"name"`
	Habits    []HabitView `json:"habits"`
	CreatedAt time.Time   `json:"createdAt"`
}

// EditHabitRequest is the JSON body for PUT .../habits/{habitID}. Nil fields
// are left untouched; provided fields overwrite unconditionally.
type EditHabitRequest struct {
	Name        *string    `json:"name"`
	Points      *int       `json:"points"`
	LastUpdated *time.Time `json:"lastUpdated"`
}

// RenameHabitRequest is the JSON body for PATCH .../habits/{habitID}/name.
type RenameHabitRequest struct {
	Name string `json:"name"`
}

// HabitEvent is one row in the habit_events audit table, recorded for every
// accepted mutation.
type HabitEvent struct {
	ID         int64     `json:"id"`
	UserID     string    `json:"userId"`
	HabitID    string    `json:"habitId"`
	Action     string    `json:"action"`
	Points     int       `json:"points"`
	OccurredAt time.Time `json:"occurredAt"`
}

// defaultStart is far enough in the past that a fresh habit is immediately
// eligible for its first increment.
var defaultStart = time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC)

var defaultHabitNames = []string{"Reading", "Exercise", "Meditation", "Journaling"}

// DefaultHabits returns the fixed starter set assigned at registration:
// zero points, historical lastUpdated.
func DefaultHabits() []Habit {
	habits := make([]Habit, 0, len(defaultHabitNames))
	for _, name := range defaultHabitNames {
		habits = append(habits, Habit{
			ID:          uuid.New().String(),
			Name:        name,
			Points:      0,
			LastUpdated: defaultStart,
		})
	}
	return habits
}
