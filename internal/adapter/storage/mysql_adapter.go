package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rl1809/storefront/internal/core/domain"
)

type MySQLAdapter struct {
	db *sql.DB
}

func NewMySQLAdapter(db *sql.DB) *MySQLAdapter {
	return &MySQLAdapter{db: db}
}

func (m *MySQLAdapter) GetProduct(ctx context.Context, productID string) (*domain.Product, error) {
	var p domain.Product
	err := m.db.QueryRowContext(ctx, `
		SELECT id, name, stock, version, created_at, updated_at
		FROM products WHERE id = ?`, productID,
	).Scan(&p.ID, &p.Name, &p.Stock, &p.Version, &p.CreatedAt, &p.UpdatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query product: %w", err)
	}

	return &p, nil
}

func (m *MySQLAdapter) SubtractStock(ctx context.Context, productID string, amount, expectedVersion int) error {
	result, err := m.db.ExecContext(ctx, `
		UPDATE products
		SET stock = stock - ?, version = version + 1, updated_at = NOW()
		WHERE id = ? AND version = ? AND stock >= ?`,
		amount, productID, expectedVersion, amount,
	)
	if err != nil {
		return fmt.Errorf("subtract stock: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 1 {
		return nil
	}

	// Zero rows: tell a moved version apart from scarcity.
	var version, stock int
	err = m.db.QueryRowContext(ctx, `
		SELECT version, stock FROM products WHERE id = ?`, productID,
	).Scan(&version, &stock)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrProductNotFound
	}
	if err != nil {
		return fmt.Errorf("classify failed subtract: %w", err)
	}
	if version != expectedVersion {
		return domain.ErrVersionConflict
	}
	return domain.ErrInsufficientStock
}

func (m *MySQLAdapter) RestoreStock(ctx context.Context, productID string, amount int) error {
	result, err := m.db.ExecContext(ctx, `
		UPDATE products
		SET stock = stock + ?, version = version + 1, updated_at = NOW()
		WHERE id = ?`,
		amount, productID,
	)
	if err != nil {
		return fmt.Errorf("restore stock: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrProductNotFound
	}
	return nil
}

func (m *MySQLAdapter) GetCart(ctx context.Context, cartID string) (*domain.Cart, error) {
	var c domain.Cart
	var startedAt sql.NullTime
	err := m.db.QueryRowContext(ctx, `
		SELECT id, user_id, purchased, checkout_started_at, created_at, updated_at
		FROM carts WHERE id = ?`, cartID,
	).Scan(&c.ID, &c.UserID, &c.Purchased, &startedAt, &c.CreatedAt, &c.UpdatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query cart: %w", err)
	}
	if startedAt.Valid {
		c.CheckoutStartedAt = &startedAt.Time
	}

	rows, err := m.db.QueryContext(ctx, `
		SELECT cart_id, product_id, quantity, unit_price, status, manager_id, created_at, updated_at
		FROM cart_lines WHERE cart_id = ? ORDER BY created_at, product_id`, cartID,
	)
	if err != nil {
		return nil, fmt.Errorf("query cart lines: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var line domain.CartLine
		if err := rows.Scan(&line.CartID, &line.ProductID, &line.Quantity, &line.UnitPrice,
			&line.Status, &line.ManagerID, &line.CreatedAt, &line.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan cart line: %w", err)
		}
		c.Lines = append(c.Lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cart lines: %w", err)
	}

	return &c, nil
}

// AcquireCheckoutLock is a single conditional write: two concurrent callers
// can never both see the cart as lockable.
func (m *MySQLAdapter) AcquireCheckoutLock(ctx context.Context, cartID string, now time.Time, staleAfter time.Duration) error {
	cutoff := now.Add(-staleAfter)

	result, err := m.db.ExecContext(ctx, `
		UPDATE carts
		SET checkout_started_at = ?, updated_at = NOW()
		WHERE id = ? AND (checkout_started_at IS NULL OR checkout_started_at < ?)`,
		now, cartID, cutoff,
	)
	if err != nil {
		return fmt.Errorf("acquire checkout lock: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 1 {
		return nil
	}

	var exists int
	err = m.db.QueryRowContext(ctx, `SELECT 1 FROM carts WHERE id = ?`, cartID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrCartNotFound
	}
	if err != nil {
		return fmt.Errorf("classify failed acquire: %w", err)
	}
	return domain.ErrCheckoutInProgress
}

func (m *MySQLAdapter) ReleaseCheckoutLock(ctx context.Context, cartID string) error {
	_, err := m.db.ExecContext(ctx, `
		UPDATE carts SET checkout_started_at = NULL, updated_at = NOW() WHERE id = ?`, cartID,
	)
	if err != nil {
		return fmt.Errorf("release checkout lock: %w", err)
	}
	return nil
}

func (m *MySQLAdapter) MarkCartPurchased(ctx context.Context, cartID string) error {
	result, err := m.db.ExecContext(ctx, `
		UPDATE carts SET purchased = TRUE, updated_at = NOW() WHERE id = ?`, cartID,
	)
	if err != nil {
		return fmt.Errorf("mark cart purchased: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrCartNotFound
	}
	return nil
}

func (m *MySQLAdapter) GetLine(ctx context.Context, cartID, productID string) (*domain.CartLine, error) {
	var line domain.CartLine
	err := m.db.QueryRowContext(ctx, `
		SELECT cart_id, product_id, quantity, unit_price, status, manager_id, created_at, updated_at
		FROM cart_lines WHERE cart_id = ? AND product_id = ?`, cartID, productID,
	).Scan(&line.CartID, &line.ProductID, &line.Quantity, &line.UnitPrice,
		&line.Status, &line.ManagerID, &line.CreatedAt, &line.UpdatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query cart line: %w", err)
	}

	return &line, nil
}

func (m *MySQLAdapter) UpdateLineStatus(ctx context.Context, cartID, productID string, status domain.LineStatus) error {
	result, err := m.db.ExecContext(ctx, `
		UPDATE cart_lines SET status = ?, updated_at = NOW()
		WHERE cart_id = ? AND product_id = ?`,
		status, cartID, productID,
	)
	if err != nil {
		return fmt.Errorf("update line status: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrLineNotFound
	}
	return nil
}
