// Package habit holds the pure point-accrual rules. Functions here take a
// habit by value and return the updated state; callers own persistence.
package habit

import (
	"errors"
	"time"

	"github.com/vedantk/habit-tracker/internal/models"
)

// EligibilityWindow is the minimum interval between accepted increments of
// the same habit, measured as a continuous duration.
const EligibilityWindow = 24 * time.Hour

var (
	// ErrNotEligible means the 24-hour window has not elapsed. It is a
	// business result, not a fault; callers must not persist anything.
	ErrNotEligible = errors.New("habit not eligible: 24 hours have not passed since last update")

	// ErrEmptyName rejects a rename to the empty string.
	ErrEmptyName = errors.New("habit name must not be empty")
)

// IsEligible reports whether h can accept an increment at time now.
func IsEligible(h models.Habit, now time.Time) bool {
	return now.Sub(h.LastUpdated) >= EligibilityWindow
}

// Increment returns a copy of h with one more point and lastUpdated set to
// now, or ErrNotEligible if the window has not elapsed.
func Increment(h models.Habit, now time.Time) (models.Habit, error) {
	if !IsEligible(h, now) {
		return h, ErrNotEligible
	}
	h.Points++
	h.LastUpdated = now
	return h, nil
}

// Rename returns a copy of h with the new name and a refreshed lastUpdated.
func Rename(h models.Habit, name string, now time.Time) (models.Habit, error) {
	if name == "" {
		return h, ErrEmptyName
	}
	h.Name = name
	h.LastUpdated = now
	return h, nil
}

// ApplyEdit overwrites the fields provided in the patch unconditionally and
// retains the rest. lastUpdated is refreshed to now unless the patch sets it
// explicitly. This deliberately bypasses the eligibility gate; it is the
// administrative correction path, not an increment.
func ApplyEdit(h models.Habit, patch models.EditHabitRequest, now time.Time) models.Habit {
	if patch.Name != nil {
		h.Name = *patch.Name
	}
	if patch.Points != nil {
		h.Points = *patch.Points
	}
	if patch.LastUpdated != nil {
		h.LastUpdated = *patch.LastUpdated
	} else {
		h.LastUpdated = now
	}
	return h
}
