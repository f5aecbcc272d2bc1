package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/rl1809/storefront/internal/core/domain"
)

// PostgresAdapter mirrors the MySQL adapter on pgx for deployments that run
// the storefront on Postgres. Same conditional-write semantics, $n
// placeholders.
type PostgresAdapter struct {
	pool *pgxpool.Pool
}

func NewPostgresAdapter(pool *pgxpool.Pool) *PostgresAdapter {
	return &PostgresAdapter{pool: pool}
}

func (p *PostgresAdapter) GetProduct(ctx context.Context, productID string) (*domain.Product, error) {
	var prod domain.Product
	err := p.pool.QueryRow(ctx, `
		SELECT id, name, stock, version, created_at, updated_at
		FROM products WHERE id = $1`, productID,
	).Scan(&prod.ID, &prod.Name, &prod.Stock, &prod.Version, &prod.CreatedAt, &prod.UpdatedAt)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query product: %w", err)
	}

	return &prod, nil
}

func (p *PostgresAdapter) SubtractStock(ctx context.Context, productID string, amount, expectedVersion int) error {
	tag, err := p.pool.Exec(ctx, `
		UPDATE products
		SET stock = stock - $1, version = version + 1, updated_at = now()
		WHERE id = $2 AND version = $3 AND stock >= $1`,
		amount, productID, expectedVersion,
	)
	if err != nil {
		return fmt.Errorf("subtract stock: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	var version, stock int
	err = p.pool.QueryRow(ctx, `
		SELECT version, stock FROM products WHERE id = $1`, productID,
	).Scan(&version, &stock)
	if errors.Is(err, pgx.ErrNoRows) {
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

func (p *PostgresAdapter) RestoreStock(ctx context.Context, productID string, amount int) error {
	tag, err := p.pool.Exec(ctx, `
		UPDATE products
		SET stock = stock + $1, version = version + 1, updated_at = now()
		WHERE id = $2`,
		amount, productID,
	)
	if err != nil {
		return fmt.Errorf("restore stock: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrProductNotFound
	}
	return nil
}

func (p *PostgresAdapter) GetCart(ctx context.Context, cartID string) (*domain.Cart, error) {
	var c domain.Cart
	var startedAt *time.Time
	err := p.pool.QueryRow(ctx, `
		SELECT id, user_id, purchased, checkout_started_at, created_at, updated_at
		FROM carts WHERE id = $1`, cartID,
	).Scan(&c.ID, &c.UserID, &c.Purchased, &startedAt, &c.CreatedAt, &c.UpdatedAt)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query cart: %w", err)
	}
	c.CheckoutStartedAt = startedAt

	rows, err := p.pool.Query(ctx, `
		SELECT cart_id, product_id, quantity, unit_price::text, status, manager_id, created_at, updated_at
		FROM cart_lines WHERE cart_id = $1 ORDER BY created_at, product_id`, cartID,
	)
	if err != nil {
		return nil, fmt.Errorf("query cart lines: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		line, err := scanLine(rows)
		if err != nil {
			return nil, err
		}
		c.Lines = append(c.Lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cart lines: %w", err)
	}

	return &c, nil
}

func (p *PostgresAdapter) AcquireCheckoutLock(ctx context.Context, cartID string, now time.Time, staleAfter time.Duration) error {
	cutoff := now.Add(-staleAfter)

	tag, err := p.pool.Exec(ctx, `
		UPDATE carts
		SET checkout_started_at = $1, updated_at = now()
		WHERE id = $2 AND (checkout_started_at IS NULL OR checkout_started_at < $3)`,
		now, cartID, cutoff,
	)
	if err != nil {
		return fmt.Errorf("acquire checkout lock: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	var exists int
	err = p.pool.QueryRow(ctx, `SELECT 1 FROM carts WHERE id = $1`, cartID).Scan(&exists)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrCartNotFound
	}
	if err != nil {
		return fmt.Errorf("classify failed acquire: %w", err)
	}
	return domain.ErrCheckoutInProgress
}

func (p *PostgresAdapter) ReleaseCheckoutLock(ctx context.Context, cartID string) error {
	_, err := p.pool.Exec(ctx, `
		UPDATE carts SET checkout_started_at = NULL, updated_at = now() WHERE id = $1`, cartID,
	)
	if err != nil {
		return fmt.Errorf("release checkout lock: %w", err)
	}
	return nil
}

func (p *PostgresAdapter) MarkCartPurchased(ctx context.Context, cartID string) error {
	tag, err := p.pool.Exec(ctx, `
		UPDATE carts SET purchased = TRUE, updated_at = now() WHERE id = $1`, cartID,
	)
	if err != nil {
		return fmt.Errorf("mark cart purchased: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrCartNotFound
	}
	return nil
}

func (p *PostgresAdapter) GetLine(ctx context.Context, cartID, productID string) (*domain.CartLine, error) {
	row := p.pool.QueryRow(ctx, `
		SELECT cart_id, product_id, quantity, unit_price::text, status, manager_id, created_at, updated_at
		FROM cart_lines WHERE cart_id = $1 AND product_id = $2`, cartID, productID,
	)

	line, err := scanLine(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &line, nil
}

func (p *PostgresAdapter) UpdateLineStatus(ctx context.Context, cartID, productID string, status domain.LineStatus) error {
	tag, err := p.pool.Exec(ctx, `
		UPDATE cart_lines SET status = $1, updated_at = now()
		WHERE cart_id = $2 AND product_id = $3`,
		status, cartID, productID,
	)
	if err != nil {
		return fmt.Errorf("update line status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrLineNotFound
	}
	return nil
}

// pgx numeric values are read as text and parsed; registering a custom
// numeric codec is not worth it for one column.
func scanLine(row pgx.Row) (domain.CartLine, error) {
	var line domain.CartLine
	var price string
	err := row.Scan(&line.CartID, &line.ProductID, &line.Quantity, &price,
		&line.Status, &line.ManagerID, &line.CreatedAt, &line.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.CartLine{}, err
	}
	if err != nil {
		return domain.CartLine{}, fmt.Errorf("scan cart line: %w", err)
	}

	line.UnitPrice, err = decimal.NewFromString(price)
	if err != nil {
		return domain.CartLine{}, fmt.Errorf("parse unit price: %w", err)
	}
	return line, nil
}
