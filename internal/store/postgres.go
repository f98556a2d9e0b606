package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vedantk/habit-tracker/internal/models"
)

// PostgresStore keeps the habit_events audit trail: one row per accepted
// increment, rename, or edit.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Migrate creates the habit_events table if it doesn't exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS habit_events (
			id          BIGSERIAL PRIMARY KEY,
			user_id     VARCHAR(64) NOT NULL,
			habit_id    VARCHAR(64) NOT NULL,
			action      VARCHAR(32) NOT NULL,
			points      INT         NOT NULL,
			occurred_at TIMESTAMPTZ NOT NULL
		)
	`)
	return err
}

// RecordEvent appends one audit row for an accepted mutation.
func (s *PostgresStore) RecordEvent(ctx context.Context, userID, habitID, action string, points int, occurredAt time.Time) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO habit_events (user_id, habit_id, action, points, occurred_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		userID, habitID, action, points, occurredAt,
	)
	if err != nil {
		return fmt.Errorf("record habit event: %w", err)
	}
	return nil
}

// ListEvents returns the audit rows for one habit, newest first.
func (s *PostgresStore) ListEvents(ctx context.Context, userID, habitID string) ([]models.HabitEvent, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, user_id, habit_id, action, points, occurred_at
		 FROM habit_events
		 WHERE user_id = $1 AND habit_id = $2
		 ORDER BY occurred_at DESC`,
		userID, habitID,
	)
	if err != nil {
		return nil, fmt.Errorf("list habit events: %w", err)
	}
	defer rows.Close()

	var events []models.HabitEvent
	for rows.Next() {
		var e models.HabitEvent
		if err := rows.Scan(&e.ID, &e.UserID, &e.HabitID, &e.Action, &e.Points, &e.OccurredAt); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}
