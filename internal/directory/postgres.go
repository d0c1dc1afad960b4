package directory

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"badgepass/internal/badge/ports"
	id "badgepass/pkg/domain"
	"badgepass/pkg/platform/sentinel"
)

// PostgresDirectory reads the registration system's participants table.
// It never writes.
type PostgresDirectory struct {
	pool *pgxpool.Pool
}

func NewPostgresDirectory(pool *pgxpool.Pool) *PostgresDirectory {
	return &PostgresDirectory{pool: pool}
}

// NewPool opens a pgx pool and verifies connectivity.
func NewPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("open directory pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping directory database: %w", err)
	}
	return pool, nil
}

func (d *PostgresDirectory) FindParticipant(ctx context.Context, participantID id.ParticipantID) (*ports.Participant, error) {
	const query = `
		SELECT id, full_name, category, confirmed
		FROM participants
		WHERE id = $1
	`
	var (
		p     ports.Participant
		rawID string
	)
	err := d.pool.QueryRow(ctx, query, participantID.String()).Scan(&rawID, &p.Name, &p.Category, &p.Confirmed)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: query participant: %v", sentinel.ErrUnavailable, err)
	}
	p.ID = id.ParticipantID(rawID)
	return &p, nil
}
