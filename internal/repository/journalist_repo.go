package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"datahalo/internal/models"
)

type JournalistRepo struct {
	pool *pgxpool.Pool
}

func NewJournalistRepo(pool *pgxpool.Pool) *JournalistRepo {
	return &JournalistRepo{pool: pool}
}

func (r *JournalistRepo) ListAll(ctx context.Context) ([]models.Journalist, error) {
	query := `SELECT id, name, outlet, specialty, credibility_score, bio, photo_url
		FROM journalists ORDER BY credibility_score DESC, name ASC`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var journalists []models.Journalist
	for rows.Next() {
		var j models.Journalist
		if err := rows.Scan(&j.ID, &j.Name, &j.Outlet, &j.Specialty,
			&j.CredibilityScore, &j.Bio, &j.PhotoURL); err != nil {
			return nil, err
		}
		journalists = append(journalists, j)
	}
	return journalists, rows.Err()
}

func (r *JournalistRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Journalist, error) {
	j := &models.Journalist{}
	query := `SELECT id, name, outlet, specialty, credibility_score, bio, photo_url
		FROM journalists WHERE id = $1`

	err := r.pool.QueryRow(ctx, query, id).Scan(
		&j.ID, &j.Name, &j.Outlet, &j.Specialty, &j.CredibilityScore, &j.Bio, &j.PhotoURL,
	)
	if err != nil {
		return nil, err
	}
	return j, nil
}
