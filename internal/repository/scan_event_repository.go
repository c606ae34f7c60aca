package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hoyn-app/profile-qr/internal/domain"
)

// ScanEventRepository stores the scan audit trail.
type ScanEventRepository interface {
	Create(ctx context.Context, event *domain.ScanEvent) error
	ListByProfile(ctx context.Context, profileID string, since time.Time, limit int) ([]domain.ScanEvent, error)
}

type scanEventRepository struct {
	pool *pgxpool.Pool
}

// NewScanEventRepository builds repository.
func NewScanEventRepository(pool *pgxpool.Pool) ScanEventRepository {
	return &scanEventRepository{pool: pool}
}

func (r *scanEventRepository) Create(ctx context.Context, event *domain.ScanEvent) error {
	const query = `
        INSERT INTO scan_events (id, profile_id, origin, succeeded, scanned_at)
        VALUES ($1,$2,$3,$4,$5)`
	_, err := r.pool.Exec(ctx, query,
		event.ID,
		event.ProfileID,
		event.Origin,
		event.Succeeded,
		event.ScannedAt,
	)
	return err
}

func (r *scanEventRepository) ListByProfile(ctx context.Context, profileID string, since time.Time, limit int) ([]domain.ScanEvent, error) {
	if limit <= 0 {
		limit = 100
	}
	const query = `
        SELECT id, profile_id, origin, succeeded, scanned_at
        FROM scan_events WHERE profile_id=$1 AND scanned_at >= $2
        ORDER BY scanned_at DESC LIMIT $3`
	rows, err := r.pool.Query(ctx, query, profileID, since, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.ScanEvent
	for rows.Next() {
		var event domain.ScanEvent
		if err := rows.Scan(
			&event.ID,
			&event.ProfileID,
			&event.Origin,
			&event.Succeeded,
			&event.ScannedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, event)
	}
	return result, rows.Err()
}
