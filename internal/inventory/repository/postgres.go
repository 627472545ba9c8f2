package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fekuna/omnipos-inventory-service/internal/inventory"
	"github.com/fekuna/omnipos-inventory-service/internal/inventory/dto"
	"github.com/fekuna/omnipos-inventory-service/internal/model"
	"github.com/jmoiron/sqlx"
)

type PGRepository struct {
	DB *sqlx.DB
	// ext is the transaction when the repository is bound to one, DB otherwise.
	ext sqlx.ExtContext
}

func NewPGRepository(db *sqlx.DB) *PGRepository {
	return &PGRepository{DB: db, ext: db}
}

func (r *PGRepository) RunInTx(ctx context.Context, fn func(ctx context.Context, repo inventory.Repository) error) error {
	if _, ok := r.ext.(*sqlx.Tx); ok {
		return fn(ctx, r)
	}

	tx, err := r.DB.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := fn(ctx, &PGRepository{DB: r.DB, ext: tx}); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *PGRepository) LockProduct(ctx context.Context, productID int64) error {
	var id int64
	err := sqlx.GetContext(ctx, r.ext, &id, `SELECT id FROM products WHERE id = $1 FOR UPDATE`, productID)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %d", model.ErrProductNotFound, productID)
	}
	return err
}

func (r *PGRepository) FindProduct(ctx context.Context, id int64) (*model.Product, error) {
	var p model.Product
	err := sqlx.GetContext(ctx, r.ext, &p, `SELECT * FROM products WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

func (r *PGRepository) ListProducts(ctx context.Context) ([]model.Product, error) {
	items := []model.Product{}
	err := sqlx.SelectContext(ctx, r.ext, &items, `SELECT * FROM products ORDER BY id`)
	return items, err
}

func (r *PGRepository) ListLowStock(ctx context.Context, threshold int) ([]model.Product, error) {
	items := []model.Product{}
	err := sqlx.SelectContext(ctx, r.ext, &items,
		`SELECT * FROM products WHERE current_stock <= $1 ORDER BY current_stock, id`, threshold)
	return items, err
}

func (r *PGRepository) UpdateProductStock(ctx context.Context, productID int64, stock int) error {
	res, err := r.ext.ExecContext(ctx, `UPDATE products SET current_stock = $1 WHERE id = $2`, stock, productID)
	if err != nil {
		return err
	}
	return expectOne(res, fmt.Errorf("%w: %d", model.ErrProductNotFound, productID))
}

func (r *PGRepository) CreateBatch(ctx context.Context, b *model.InventoryBatch) error {
	query := `
        INSERT INTO inventory_batches (
            product_id, batch_number, quantity, remaining_quantity, expiry_date, created_at, user_id
        )
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        RETURNING id
    `
	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now()
	}
	return r.ext.QueryRowxContext(ctx, query,
		b.ProductID, b.BatchNumber, b.Quantity, b.RemainingQuantity, b.ExpiryDate, b.CreatedAt, b.UserID,
	).Scan(&b.ID)
}

func (r *PGRepository) ListBatches(ctx context.Context) ([]model.InventoryBatch, error) {
	items := []model.InventoryBatch{}
	err := sqlx.SelectContext(ctx, r.ext, &items, `SELECT * FROM inventory_batches ORDER BY id`)
	return items, err
}

func (r *PGRepository) ListBatchesByProduct(ctx context.Context, productID int64) ([]model.InventoryBatch, error) {
	items := []model.InventoryBatch{}
	err := sqlx.SelectContext(ctx, r.ext, &items,
		`SELECT * FROM inventory_batches WHERE product_id = $1 ORDER BY id`, productID)
	return items, err
}

func (r *PGRepository) ListExpiringBatches(ctx context.Context, cutoff time.Time) ([]model.InventoryBatch, error) {
	query := `
        SELECT * FROM inventory_batches
        WHERE remaining_quantity > 0 AND expiry_date IS NOT NULL AND expiry_date <= $1
        ORDER BY expiry_date, created_at, id
    `
	items := []model.InventoryBatch{}
	err := sqlx.SelectContext(ctx, r.ext, &items, query, cutoff)
	return items, err
}

func (r *PGRepository) UpdateBatchRemaining(ctx context.Context, batchID int64, remaining int) error {
	res, err := r.ext.ExecContext(ctx,
		`UPDATE inventory_batches SET remaining_quantity = $1 WHERE id = $2`, remaining, batchID)
	if err != nil {
		return err
	}
	return expectOne(res, fmt.Errorf("%w: batch %d", model.ErrBatchNotFound, batchID))
}

func (r *PGRepository) CreateTransaction(ctx context.Context, t *model.StockTransaction) error {
	query := `
        INSERT INTO stock_transactions (
            group_id, product_id, type, quantity, reason, user_id, "timestamp",
            batch_id, batch_number, expiry_date, status, processed_at
        )
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
        RETURNING id
    `
	return r.ext.QueryRowxContext(ctx, query,
		t.GroupID, t.ProductID, t.Type, t.Quantity, t.Reason, t.UserID, t.Timestamp,
		t.BatchID, t.BatchNumber, t.ExpiryDate, t.Status, t.ProcessedAt,
	).Scan(&t.ID)
}

func (r *PGRepository) FindTransaction(ctx context.Context, id int64) (*model.StockTransaction, error) {
	var t model.StockTransaction
	err := sqlx.GetContext(ctx, r.ext, &t, `SELECT * FROM stock_transactions WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &t, nil
}

func (r *PGRepository) ListTransactions(ctx context.Context, f *dto.MovementFilters) ([]model.StockTransaction, error) {
	conditions := []string{}
	args := map[string]interface{}{}

	if f.ProductID != 0 {
		conditions = append(conditions, "product_id = :product_id")
		args["product_id"] = f.ProductID
	}
	if f.Type != "" {
		conditions = append(conditions, "type = :type")
		args["type"] = f.Type
	}
	if f.Status != "" {
		conditions = append(conditions, "status = :status")
		args["status"] = f.Status
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = " WHERE " + strings.Join(conditions, " AND ")
	}

	query, qargs, err := sqlx.Named(`SELECT * FROM stock_transactions`+whereClause+` ORDER BY "timestamp" DESC, id DESC`, args)
	if err != nil {
		return nil, err
	}

	items := []model.StockTransaction{}
	err = sqlx.SelectContext(ctx, r.ext, &items, r.ext.Rebind(query), qargs...)
	return items, err
}

func (r *PGRepository) UpdateTransaction(ctx context.Context, t *model.StockTransaction) error {
	query := `
        UPDATE stock_transactions SET
            group_id = :group_id, type = :type, quantity = :quantity, reason = :reason,
            user_id = :user_id, "timestamp" = :timestamp, batch_id = :batch_id,
            batch_number = :batch_number, expiry_date = :expiry_date, status = :status,
            processed_at = :processed_at
        WHERE id = :id
    `
	res, err := sqlx.NamedExecContext(ctx, r.ext, query, t)
	if err != nil {
		return err
	}
	return expectOne(res, fmt.Errorf("%w: %d", model.ErrTransactionNotFound, t.ID))
}

func (r *PGRepository) DeleteTransaction(ctx context.Context, id int64) error {
	res, err := r.ext.ExecContext(ctx, `DELETE FROM stock_transactions WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return expectOne(res, fmt.Errorf("%w: %d", model.ErrTransactionNotFound, id))
}

func expectOne(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}
