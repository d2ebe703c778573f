package orders

import (
	"context"
	"database/sql"
	"time"

	"github.com/storefront-labs/order-service/internal/domain"
)

// OrderRepository is the postgres-backed order store.
type OrderRepository struct {
	db *sql.DB
}

func NewOrderRepository(db *sql.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

func (r *OrderRepository) Create(ctx context.Context, order *domain.Order) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO orders (id, order_number, sku_code, price, quantity, email, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
	`, order.ID, order.OrderNumber, order.SkuCode, order.Price, order.Quantity, order.Email, order.CreatedAt)
	return err
}

func (r *OrderRepository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	return r.getOne(ctx, `
		SELECT id, order_number, sku_code, price, quantity, email, created_at, updated_at
		FROM orders
		WHERE id = $1
	`, id)
}

func (r *OrderRepository) GetByOrderNumber(ctx context.Context, orderNumber string) (*domain.Order, error) {
	return r.getOne(ctx, `
		SELECT id, order_number, sku_code, price, quantity, email, created_at, updated_at
		FROM orders
		WHERE order_number = $1
	`, orderNumber)
}

func (r *OrderRepository) getOne(ctx context.Context, query string, arg any) (*domain.Order, error) {
	order := &domain.Order{}

	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&order.ID, &order.OrderNumber, &order.SkuCode,
		&order.Price, &order.Quantity, &order.Email,
		&order.CreatedAt, &order.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	return order, nil
}

func (r *OrderRepository) List(ctx context.Context) ([]domain.Order, error) {
	return r.list(ctx, `
		SELECT id, order_number, sku_code, price, quantity, email, created_at, updated_at
		FROM orders
		ORDER BY created_at DESC
	`)
}

func (r *OrderRepository) ListByEmail(ctx context.Context, email string) ([]domain.Order, error) {
	return r.list(ctx, `
		SELECT id, order_number, sku_code, price, quantity, email, created_at, updated_at
		FROM orders
		WHERE email = $1
		ORDER BY created_at DESC
	`, email)
}

func (r *OrderRepository) list(ctx context.Context, query string, args ...any) ([]domain.Order, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	orders := []domain.Order{}
	for rows.Next() {
		var order domain.Order
		if err := rows.Scan(
			&order.ID, &order.OrderNumber, &order.SkuCode,
			&order.Price, &order.Quantity, &order.Email,
			&order.CreatedAt, &order.UpdatedAt,
		); err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return orders, nil
}

func (r *OrderRepository) ExistsByID(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM orders WHERE id = $1)
	`, id).Scan(&exists)
	return exists, err
}

func (r *OrderRepository) Update(ctx context.Context, order *domain.Order) error {
	order.UpdatedAt = time.Now().UTC()
	_, err := r.db.ExecContext(ctx, `
		UPDATE orders
		SET order_number = $1, sku_code = $2, price = $3, quantity = $4, email = $5, updated_at = $6
		WHERE id = $7
	`, order.OrderNumber, order.SkuCode, order.Price, order.Quantity, order.Email, order.UpdatedAt, order.ID)
	return err
}

func (r *OrderRepository) DeleteByID(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM orders WHERE id = $1`, id)
	return err
}
