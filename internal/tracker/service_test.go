package tracker

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vedantk/habit-tracker/internal/habit"
	"github.com/vedantk/habit-tracker/internal/models"
	"github.com/vedantk/habit-tracker/internal/store"
)

// --- fakes ---

type fakeUserStore struct {
	mu    sync.Mutex
	users map[string]models.User
}

func newFakeUserStore(users ...models.User) *fakeUserStore {
	f := &fakeUserStore{users: make(map[string]models.User)}
	for _, u := range users {
		f.users[u.ID] = cloneUser(u)
	}
	return f
}

// cloneUser copies the habit slice so a fetched document behaves like a
// fresh read, not a shared pointer.
func cloneUser(u models.User) models.User {
	habits := make([]models.Habit, len(u.Habits))
	copy(habits, u.Habits)
	u.Habits = habits
	return u
}

func (f *fakeUserStore) GetByID(ctx context.Context, id string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	c := cloneUser(u)
	return &c, nil
}

func (f *fakeUserStore) GetByName(ctx context.Context, name string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Name == name {
			c := cloneUser(u)
			return &c, nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeUserStore) List(ctx context.Context) ([]models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.User
	for _, u := range f.users {
		out = append(out, cloneUser(u))
	}
	return out, nil
}

func (f *fakeUserStore) Save(ctx context.Context, u *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[u.ID]; !ok {
		return store.ErrNotFound
	}
	f.users[u.ID] = cloneUser(*u)
	return nil
}

type fakeEventStore struct {
	mu     sync.Mutex
	events []models.HabitEvent
}

func (f *fakeEventStore) RecordEvent(ctx context.Context, userID, habitID, action string, points int, occurredAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, models.HabitEvent{
		ID: int64(len(f.events) + 1), UserID: userID, HabitID: habitID,
		Action: action, Points: points, OccurredAt: occurredAt,
	})
	return nil
}

func (f *fakeEventStore) ListEvents(ctx context.Context, userID, habitID string) ([]models.HabitEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.HabitEvent
	for _, e := range f.events {
		if e.UserID == userID && e.HabitID == habitID {
			out = append(out, e)
		}
	}
	return out, nil
}

// --- helpers ---

var testNow = time.Date(2024, time.June, 1, 9, 0, 0, 0, time.UTC)

func testUser() models.User {
	return models.User{
		ID:   "u1",
		Name: "alice",
		Habits: []models.Habit{
			{ID: "h1", Name: "Reading", Points: 0, LastUpdated: testNow.Add(-48 * time.Hour)},
			{ID: "h2", Name: "Exercise", Points: 3, LastUpdated: testNow.Add(-time.Hour)},
		},
		CreatedAt: testNow.Add(-30 * 24 * time.Hour),
	}
}

func newTestService(users *fakeUserStore, events *fakeEventStore) *Service {
	svc := NewService(users, events)
	svc.now = func() time.Time { return testNow }
	return svc
}

// --- tests ---

func TestIncrementHabit(t *testing.T) {
	users := newFakeUserStore(testUser())
	events := &fakeEventStore{}
	svc := newTestService(users, events)

	got, err := svc.IncrementHabit(context.Background(), "u1", "h1")
	require.NoError(t, err)
	assert.Equal(t, 1, got.Points)
	assert.Equal(t, testNow, got.LastUpdated)

	saved, err := users.GetByID(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, saved.Habits[0].Points)

	require.Len(t, events.events, 1)
	assert.Equal(t, ActionIncrement, events.events[0].Action)
	assert.Equal(t, 1, events.events[0].Points)
}

func TestIncrementHabitNotEligible(t *testing.T) {
	users := newFakeUserStore(testUser())
	svc := newTestService(users, &fakeEventStore{})

	// h2 was updated an hour ago
	_, err := svc.IncrementHabit(context.Background(), "u1", "h2")
	assert.ErrorIs(t, err, habit.ErrNotEligible)

	saved, _ := users.GetByID(context.Background(), "u1")
	assert.Equal(t, 3, saved.Habits[1].Points, "rejected increment must not persist")
}

func TestIncrementHabitSecondCallRejected(t *testing.T) {
	users := newFakeUserStore(testUser())
	svc := newTestService(users, &fakeEventStore{})

	_, err := svc.IncrementHabit(context.Background(), "u1", "h1")
	require.NoError(t, err)

	_, err = svc.IncrementHabit(context.Background(), "u1", "h1")
	assert.ErrorIs(t, err, habit.ErrNotEligible)

	saved, _ := users.GetByID(context.Background(), "u1")
	assert.Equal(t, 1, saved.Habits[0].Points)
}

func TestIncrementHabitNotFound(t *testing.T) {
	svc := newTestService(newFakeUserStore(testUser()), &fakeEventStore{})

	_, err := svc.IncrementHabit(context.Background(), "u1", "nope")
	assert.ErrorIs(t, err, ErrHabitNotFound)

	_, err = svc.IncrementHabit(context.Background(), "nobody", "h1")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestConcurrentIncrementsCommitExactlyOne(t *testing.T) {
	users := newFakeUserStore(testUser())
	events := &fakeEventStore{}
	svc := newTestService(users, events)

	const n = 32
	var wg sync.WaitGroup
	accepted := make(chan struct{}, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.IncrementHabit(context.Background(), "u1", "h1"); err == nil {
				accepted <- struct{}{}
			}
		}()
	}
	wg.Wait()
	close(accepted)

	assert.Len(t, accepted, 1, "exactly one increment may commit")
	saved, _ := users.GetByID(context.Background(), "u1")
	assert.Equal(t, 1, saved.Habits[0].Points)
	assert.Len(t, events.events, 1)
}

func TestRenameHabit(t *testing.T) {
	users := newFakeUserStore(testUser())
	events := &fakeEventStore{}
	svc := newTestService(users, events)

	got, err := svc.RenameHabit(context.Background(), "u1", "h2", "Deep Work")
	require.NoError(t, err)
	assert.Equal(t, "Deep Work", got.Name)
	assert.Equal(t, 3, got.Points)
	assert.Equal(t, testNow, got.LastUpdated)

	require.Len(t, events.events, 1)
	assert.Equal(t, ActionRename, events.events[0].Action)
}

func TestRenameHabitEmptyName(t *testing.T) {
	svc := newTestService(newFakeUserStore(testUser()), &fakeEventStore{})
	_, err := svc.RenameHabit(context.Background(), "u1", "h2", "")
	assert.ErrorIs(t, err, habit.ErrEmptyName)
}

func TestEditHabitReopensGate(t *testing.T) {
	users := newFakeUserStore(testUser())
	svc := newTestService(users, &fakeEventStore{})

	// h2 is inside its window; rewind its timestamp via the generic edit
	back := testNow.Add(-25 * time.Hour)
	got, err := svc.EditHabit(context.Background(), "u1", "h2", models.EditHabitRequest{LastUpdated: &back})
	require.NoError(t, err)
	assert.Equal(t, back, got.LastUpdated)

	// the gate is now open again
	got, err = svc.IncrementHabit(context.Background(), "u1", "h2")
	require.NoError(t, err)
	assert.Equal(t, 4, got.Points)
}

func TestEditHabitPartialOverwrite(t *testing.T) {
	users := newFakeUserStore(testUser())
	svc := newTestService(users, &fakeEventStore{})

	points := 10
	got, err := svc.EditHabit(context.Background(), "u1", "h1", models.EditHabitRequest{Points: &points})
	require.NoError(t, err)
	assert.Equal(t, 10, got.Points)
	assert.Equal(t, "Reading", got.Name)
	assert.Equal(t, testNow, got.LastUpdated)
}

func TestGetUserComputesEligibility(t *testing.T) {
	svc := newTestService(newFakeUserStore(testUser()), &fakeEventStore{})

	view, err := svc.GetUser(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, view.Habits, 2)
	assert.True(t, view.Habits[0].Has24HoursPassed, "h1 updated 48h ago")
	assert.False(t, view.Habits[1].Has24HoursPassed, "h2 updated 1h ago")
}

func TestHabitHistory(t *testing.T) {
	users := newFakeUserStore(testUser())
	events := &fakeEventStore{}
	svc := newTestService(users, events)

	_, err := svc.IncrementHabit(context.Background(), "u1", "h1")
	require.NoError(t, err)
	_, err = svc.RenameHabit(context.Background(), "u1", "h1", "Novels")
	require.NoError(t, err)

	history, err := svc.HabitHistory(context.Background(), "u1", "h1")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, ActionIncrement, history[0].Action)
	assert.Equal(t, ActionRename, history[1].Action)
}
