package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ayush/jobbid/internal/models"
)

// PostgresHistory records bid status transitions in PostgreSQL.
type PostgresHistory struct {
	pool *pgxpool.Pool
}

func NewPostgresHistory(pool *pgxpool.Pool) *PostgresHistory {
	return &PostgresHistory{pool: pool}
}

// Migrate creates the bid_status_events table if it doesn't exist.
func (s *PostgresHistory) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS bid_status_events (
			id          BIGSERIAL PRIMARY KEY,
			bid_id      CHAR(24)     NOT NULL,
			from_status VARCHAR(32)  NOT NULL,
			to_status   VARCHAR(32)  NOT NULL,
			actor_email VARCHAR(255) NOT NULL,
			actor_role  VARCHAR(16)  NOT NULL,
			created_at  TIMESTAMPTZ  NOT NULL DEFAULT NOW()
		)
	`)
	if err != nil {
		return fmt.Errorf("migrate bid_status_events: %w", err)
	}
	_, err = s.pool.Exec(ctx,
		`CREATE INDEX IF NOT EXISTS bid_status_events_bid_id_idx ON bid_status_events (bid_id, created_at)`)
	if err != nil {
		return fmt.Errorf("migrate bid_status_events index: %w", err)
	}
	return nil
}

func (s *PostgresHistory) Record(ctx context.Context, t models.Transition) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO bid_status_events (bid_id, from_status, to_status, actor_email, actor_role, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		t.BidID, string(t.From), string(t.To), t.Actor, string(t.Role), t.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("record transition: %w", err)
	}
	return nil
}

func (s *PostgresHistory) List(ctx context.Context, bidID string) ([]models.Transition, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT bid_id, from_status, to_status, actor_email, actor_role, created_at
		 FROM bid_status_events WHERE bid_id = $1 ORDER BY created_at, id`, bidID,
	)
	if err != nil {
		return nil, fmt.Errorf("list transitions: %w", err)
	}

	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.Transition, error) {
		var t models.Transition
		var from, to, role string
		err := row.Scan(&t.BidID, &from, &to, &t.Actor, &role, &t.CreatedAt)
		t.From, t.To, t.Role = models.BidStatus(from), models.BidStatus(to), models.Role(role)
		return t, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan transitions: %w", err)
	}
	if out == nil {
		out = []models.Transition{}
	}
	return out, nil
}
