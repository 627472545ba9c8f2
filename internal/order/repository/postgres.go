package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fekuna/omnipos-inventory-service/internal/model"
	"github.com/fekuna/omnipos-inventory-service/internal/order/dto"
	"github.com/jmoiron/sqlx"
)

type PGRepository struct {
	DB *sqlx.DB
}

func NewPGRepository(db *sqlx.DB) *PGRepository {
	return &PGRepository{DB: db}
}

func (r *PGRepository) Create(ctx context.Context, o *model.Order) (err error) {
	tx, err := r.DB.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	query := `
		INSERT INTO orders (order_number, customer_name, customer_contact, status, total_amount, order_date, notes, user_id)
		VALUES (:order_number, :customer_name, :customer_contact, :status, :total_amount, :order_date, :notes, :user_id)
		RETURNING id`
	stmt, err := tx.PrepareNamedContext(ctx, query)
	if err != nil {
		return err
	}
	defer stmt.Close()
	if err = stmt.GetContext(ctx, &o.ID, o); err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}

	itemQuery := `INSERT INTO order_items (order_id, product_id, quantity, unit_price) VALUES ($1, $2, $3, $4) RETURNING id`
	for i := range o.Items {
		item := &o.Items[i]
		item.OrderID = o.ID
		if err = tx.QueryRowxContext(ctx, itemQuery, item.OrderID, item.ProductID, item.Quantity, item.UnitPrice).Scan(&item.ID); err != nil {
			return fmt.Errorf("failed to insert order item: %w", err)
		}
	}

	return tx.Commit()
}

func (r *PGRepository) FindByID(ctx context.Context, id int64) (*model.Order, error) {
	var o model.Order
	err := r.DB.GetContext(ctx, &o, `SELECT * FROM orders WHERE id = $1 LIMIT 1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	o.Items = []model.OrderItem{}
	if err := r.DB.SelectContext(ctx, &o.Items, `SELECT * FROM order_items WHERE order_id = $1 ORDER BY id`, id); err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *PGRepository) FindAll(ctx context.Context, filters *dto.OrderFilters) ([]model.Order, error) {
	orders := []model.Order{}
	query := `SELECT * FROM orders`
	args := []interface{}{}
	if filters.Status != "" {
		query += ` WHERE status = $1`
		args = append(args, filters.Status)
	}
	query += ` ORDER BY order_date DESC, id DESC`
	if err := r.DB.SelectContext(ctx, &orders, query, args...); err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return orders, nil
	}

	ids := make([]int64, len(orders))
	byID := make(map[int64]*model.Order, len(orders))
	for i := range orders {
		orders[i].Items = []model.OrderItem{}
		ids[i] = orders[i].ID
		byID[orders[i].ID] = &orders[i]
	}

	itemQuery, itemArgs, err := sqlx.In(`SELECT * FROM order_items WHERE order_id IN (?) ORDER BY id`, ids)
	if err != nil {
		return nil, err
	}
	var items []model.OrderItem
	if err := r.DB.SelectContext(ctx, &items, r.DB.Rebind(itemQuery), itemArgs...); err != nil {
		return nil, err
	}
	for _, item := range items {
		if o, ok := byID[item.OrderID]; ok {
			o.Items = append(o.Items, item)
		}
	}
	return orders, nil
}

func (r *PGRepository) TransitionStatus(ctx context.Context, id int64, from, to model.OrderStatus) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `UPDATE orders SET status = $1 WHERE id = $2 AND status = $3`, to, id, from)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *PGRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM orders WHERE id = $1`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %d", model.ErrOrderNotFound, id)
	}
	return nil
}
