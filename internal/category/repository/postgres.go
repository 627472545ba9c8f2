package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fekuna/omnipos-inventory-service/internal/model"
	"github.com/jmoiron/sqlx"
)

type PGRepository struct {
	DB *sqlx.DB
}

func NewPGRepository(db *sqlx.DB) *PGRepository {
	return &PGRepository{DB: db}
}

func (r *PGRepository) Create(ctx context.Context, c *model.Category) error {
	query := `INSERT INTO categories (name, description) VALUES ($1, $2) RETURNING id`
	return r.DB.QueryRowxContext(ctx, query, c.Name, c.Description).Scan(&c.ID)
}

func (r *PGRepository) FindByID(ctx context.Context, id int64) (*model.Category, error) {
	var category model.Category
	query := `SELECT * FROM categories WHERE id = $1 LIMIT 1`
	err := r.DB.GetContext(ctx, &category, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &category, nil
}

func (r *PGRepository) FindAll(ctx context.Context) ([]model.Category, error) {
	categories := []model.Category{}
	err := r.DB.SelectContext(ctx, &categories, `SELECT * FROM categories ORDER BY name`)
	return categories, err
}

func (r *PGRepository) Update(ctx context.Context, c *model.Category) error {
	query := `UPDATE categories SET name = :name, description = :description WHERE id = :id`
	res, err := r.DB.NamedExecContext(ctx, query, c)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %d", model.ErrCategoryNotFound, c.ID)
	}
	return nil
}

func (r *PGRepository) IsNameUnique(ctx context.Context, name string, excludeID int64) (bool, error) {
	var count int
	query := `SELECT count(*) FROM categories WHERE lower(name) = lower($1) AND id <> $2`
	if err := r.DB.GetContext(ctx, &count, query, name, excludeID); err != nil {
		return false, err
	}
	return count == 0, nil
}
