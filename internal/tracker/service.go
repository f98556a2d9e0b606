package tracker

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/vedantk/habit-tracker/internal/habit"
	"github.com/vedantk/habit-tracker/internal/models"
)

// ErrHabitNotFound means the habit id is absent from the user's habit list.
var ErrHabitNotFound = errors.New("habit not found")

// Audit actions recorded per accepted mutation.
const (
	ActionIncrement = "increment"
	ActionRename    = "rename"
	ActionEdit      = "edit"
)

// UserStore defines the interface for user document persistence.
type UserStore interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByName(ctx context.Context, name string) (*models.User, error)
	List(ctx context.Context) ([]models.User, error)
	Save(ctx context.Context, u *models.User) error
}

// EventStore defines the interface for the habit audit trail.
type EventStore interface {
	RecordEvent(ctx context.Context, userID, habitID, action string, points int, occurredAt time.Time) error
	ListEvents(ctx context.Context, userID, habitID string) ([]models.HabitEvent, error)
}

// Service runs the fetch-mutate-save cycle for habit mutations. Every cycle
// for a given user id runs under that user's mutex: two concurrent increments
// that would both pass the eligibility check can never both commit.
type Service struct {
	users  UserStore
	events EventStore
	now    func() time.Time

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewService(users UserStore, events EventStore) *Service {
	return &Service{
		users:  users,
		events: events,
		now:    time.Now,
		locks:  make(map[string]*sync.Mutex),
	}
}

// userLock returns the (lazily created) mutex for one user id.
func (s *Service) userLock(userID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[userID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[userID] = l
	}
	return l
}

// mutateHabit fetches the user, applies op to the target habit, and saves the
// whole document back, all under the user's lock. op failures abort the cycle
// without persisting anything.
func (s *Service) mutateHabit(ctx context.Context, userID, habitID, action string, op func(models.Habit, time.Time) (models.Habit, error)) (*models.Habit, error) {
	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	idx := -1
	for i := range user.Habits {
		if user.Habits[i].ID == habitID {
			idx = i
			break
		}
	}
	if idx == -1 {
		return nil, ErrHabitNotFound
	}

	now := s.now()
	updated, err := op(user.Habits[idx], now)
	if err != nil {
		return nil, err
	}

	user.Habits[idx] = updated
	if err := s.users.Save(ctx, user); err != nil {
		return nil, err
	}

	// Audit is best-effort; a lost event never blocks the mutation.
	if err := s.events.RecordEvent(ctx, userID, habitID, action, updated.Points, now); err != nil {
		log.Printf("record %s event: %v", action, err)
	}

	return &updated, nil
}

// IncrementHabit applies the gated increment. habit.ErrNotEligible comes back
// unwrapped so the handler can report a rejected-but-well-formed request.
func (s *Service) IncrementHabit(ctx context.Context, userID, habitID string) (*models.Habit, error) {
	return s.mutateHabit(ctx, userID, habitID, ActionIncrement, habit.Increment)
}

// RenameHabit changes a habit's label and refreshes its lastUpdated.
func (s *Service) RenameHabit(ctx context.Context, userID, habitID, name string) (*models.Habit, error) {
	return s.mutateHabit(ctx, userID, habitID, ActionRename, func(h models.Habit, now time.Time) (models.Habit, error) {
		return habit.Rename(h, name, now)
	})
}

// EditHabit applies an administrative partial overwrite, bypassing the gate.
func (s *Service) EditHabit(ctx context.Context, userID, habitID string, patch models.EditHabitRequest) (*models.Habit, error) {
	return s.mutateHabit(ctx, userID, habitID, ActionEdit, func(h models.Habit, now time.Time) (models.Habit, error) {
		return habit.ApplyEdit(h, patch, now), nil
	})
}

// GetUser returns one user with the derived eligibility flag per habit.
func (s *Service) GetUser(ctx context.Context, userID string) (*models.UserView, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	view := s.viewOf(user)
	return &view, nil
}

// ListUsers returns all users with derived eligibility flags.
func (s *Service) ListUsers(ctx context.Context) ([]models.UserView, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, err
	}
	views := make([]models.UserView, 0, len(users))
	for i := range users {
		views = append(views, s.viewOf(&users[i]))
	}
	return views, nil
}

// HabitHistory returns the audit trail for one habit.
func (s *Service) HabitHistory(ctx context.Context, userID, habitID string) ([]models.HabitEvent, error) {
	return s.events.ListEvents(ctx, userID, habitID)
}

func (s *Service) viewOf(u *models.User) models.UserView {
	now := s.now()
	habits := make([]models.HabitView, 0, len(u.Habits))
	for _, h := range u.Habits {
		habits = append(habits, models.HabitView{
			Habit:            h,
			Has24HoursPassed: habit.IsEligible(h, now),
		})
	}
	return models.UserView{
		ID:        u.ID,
		Name:      u.Name,
		Habits:    habits,
		CreatedAt: u.CreatedAt,
	}
}
