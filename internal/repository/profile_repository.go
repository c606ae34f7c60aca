package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hoyn-app/profile-qr/internal/domain"
)

// ProfileRepository defines persistence access for profiles.
type ProfileRepository interface {
	Create(ctx context.Context, profile *domain.Profile) error
	Exists(ctx context.Context, id string) (bool, error)
	Get(ctx context.Context, id string) (*domain.Profile, error)
}

type profileRepository struct {
	pool *pgxpool.Pool
}

// NewProfileRepository returns a Postgres-backed implementation.
func NewProfileRepository(pool *pgxpool.Pool) ProfileRepository {
	return &profileRepository{pool: pool}
}

func (r *profileRepository) Create(ctx context.Context, profile *domain.Profile) error {
	const query = `
        INSERT INTO profiles (id, owner_id, display_name, description, active)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING created_at, updated_at`

	return r.pool.QueryRow(ctx, query,
		profile.ID,
		profile.OwnerID,
		profile.DisplayName,
		profile.Description,
		profile.Active,
	).Scan(&profile.CreatedAt, &profile.UpdatedAt)
}

func (r *profileRepository) Exists(ctx context.Context, id string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM profiles WHERE id=$1 AND active)`

	var exists bool
	if err := r.pool.QueryRow(ctx, query, id).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func (r *profileRepository) Get(ctx context.Context, id string) (*domain.Profile, error) {
	const query = `
        SELECT id, owner_id, display_name, description, active, created_at, updated_at
        FROM profiles WHERE id=$1 AND active`

	var profile domain.Profile
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&profile.ID,
		&profile.OwnerID,
		&profile.DisplayName,
		&profile.Description,
		&profile.Active,
		&profile.CreatedAt,
		&profile.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrProfileNotFound
		}
		return nil, err
	}
	return &profile, nil
}
