package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/fekuna/omnipos-inventory-service/internal/model"
	"github.com/fekuna/omnipos-inventory-service/internal/product/dto"
	"github.com/jmoiron/sqlx"
)

type PGRepository struct {
	DB *sqlx.DB
}

func NewPGRepository(db *sqlx.DB) *PGRepository {
	return &PGRepository{DB: db}
}

func (r *PGRepository) Create(ctx context.Context, p *model.Product) error {
	query := `
        INSERT INTO products (
            name, sku, description, category_id, price, cost_price, min_stock_level,
            image_url, is_food_product, shelf_life_days, current_stock, created_at
        )
        VALUES (
            :name, :sku, :description, :category_id, :price, :cost_price, :min_stock_level,
            :image_url, :is_food_product, :shelf_life_days, 0, :created_at
        )
        RETURNING id
    `
	rows, err := r.DB.NamedQueryContext(ctx, query, p)
	if err != nil {
		return err
	}
	defer rows.Close()
	if rows.Next() {
		if err := rows.Scan(&p.ID); err != nil {
			return err
		}
	}
	p.CurrentStock = 0
	return rows.Err()
}

func (r *PGRepository) FindByID(ctx context.Context, id int64) (*model.Product, error) {
	var product model.Product
	query := `SELECT * FROM products WHERE id = $1 LIMIT 1`
	err := r.DB.GetContext(ctx, &product, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &product, nil
}

func (r *PGRepository) FindAll(ctx context.Context, f *dto.ProductFilters) ([]model.Product, int, error) {
	products := []model.Product{}
	var count int

	conditions := []string{}
	args := map[string]interface{}{}

	if f.CategoryID != 0 {
		conditions = append(conditions, "category_id = :category_id")
		args["category_id"] = f.CategoryID
	}
	if f.SearchQuery != "" {
		conditions = append(conditions, "(name ILIKE :search OR sku ILIKE :search OR description ILIKE :search)")
		args["search"] = "%" + f.SearchQuery + "%"
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = " WHERE " + strings.Join(conditions, " AND ")
	}

	countQuery, countArgs, err := sqlx.Named("SELECT count(*) FROM products"+whereClause, args)
	if err != nil {
		return nil, 0, err
	}
	if err := r.DB.GetContext(ctx, &count, r.DB.Rebind(countQuery), countArgs...); err != nil {
		return nil, 0, err
	}

	query := "SELECT * FROM products" + whereClause + " ORDER BY name, id"
	if f.PageSize > 0 {
		offset := (max(f.Page, 1) - 1) * f.PageSize
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", f.PageSize, offset)
	}

	nstmt, err := r.DB.PrepareNamedContext(ctx, query)
	if err != nil {
		return nil, 0, err
	}
	defer nstmt.Close()

	err = nstmt.SelectContext(ctx, &products, args)
	return products, count, err
}

func (r *PGRepository) Update(ctx context.Context, p *model.Product) error {
	query := `
        UPDATE products SET
            name = :name, sku = :sku, description = :description, category_id = :category_id,
            price = :price, cost_price = :cost_price, min_stock_level = :min_stock_level,
            image_url = :image_url, is_food_product = :is_food_product,
            shelf_life_days = :shelf_life_days
        WHERE id = :id
    `
	res, err := r.DB.NamedExecContext(ctx, query, p)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %d", model.ErrProductNotFound, p.ID)
	}
	return nil
}

func (r *PGRepository) Delete(ctx context.Context, id int64) error {
	_, err := r.DB.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	return err
}

func (r *PGRepository) IsSKUUnique(ctx context.Context, sku string, excludeID int64) (bool, error) {
	var count int
	query := `SELECT count(*) FROM products WHERE sku = $1 AND id <> $2`
	if err := r.DB.GetContext(ctx, &count, query, sku, excludeID); err != nil {
		return false, err
	}
	return count == 0, nil
}

func (r *PGRepository) CategoryExists(ctx context.Context, categoryID int64) (bool, error) {
	var exists bool
	err := r.DB.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM categories WHERE id = $1)`, categoryID)
	return exists, err
}

func (r *PGRepository) InUse(ctx context.Context, id int64) (bool, error) {
	query := `
        SELECT EXISTS (SELECT 1 FROM inventory_batches WHERE product_id = $1)
            OR EXISTS (SELECT 1 FROM stock_transactions WHERE product_id = $1)
            OR EXISTS (SELECT 1 FROM order_items WHERE product_id = $1)
    `
	var inUse bool
	err := r.DB.GetContext(ctx, &inUse, query, id)
	return inUse, err
}
