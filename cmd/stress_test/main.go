package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log"
	"log/slog"
	"sync/atomic"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/rl1809/storefront/internal/adapter/storage"
	"github.com/rl1809/storefront/internal/core/domain"
	"github.com/rl1809/storefront/internal/core/service"
)

const (
	mysqlDSN      = "root:root@tcp(localhost:3306)/storefront?parseTime=true"
	redisAddr     = "localhost:6379"
	productID     = "stress-item"
	initialStock  = 20
	totalCheckout = 50
	queueSize     = 100
)

func main() {
	ctx := context.Background()

	db, err := sql.Open("mysql", mysqlDSN)
	if err != nil {
		log.Fatalf("failed to connect mysql: %v", err)
	}
	defer db.Close()
	if err := db.PingContext(ctx); err != nil {
		log.Fatalf("failed to ping mysql: %v", err)
	}

	rdb := redis.NewClient(&redis.Options{Addr: redisAddr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatalf("failed to connect redis: %v", err)
	}
	defer rdb.Close()

	cartIDs := seed(ctx, db, rdb)

	repo := storage.NewMySQLAdapter(db)
	cache := storage.NewRedisAdapter(rdb)
	stockService := service.NewStockService(repo, 50, 2*time.Millisecond)
	checkoutService := service.NewCheckoutService(repo, cache, stockService,
		15*time.Minute, queueSize, slog.New(slog.NewTextHandler(io.Discard, nil)))
	defer checkoutService.Close()

	go func() {
		for range checkoutService.PurchasedEvents() {
		}
	}()

	var successCount, scarceCount, otherCount atomic.Int32

	start := time.Now()
	g, gctx := errgroup.WithContext(ctx)
	for _, cartID := range cartIDs {
		cartID := cartID
		g.Go(func() error {
			err := checkoutService.Checkout(gctx, uuid.NewString(), cartID)
			switch {
			case err == nil:
				successCount.Add(1)
			case errors.Is(err, domain.ErrInsufficientStock):
				scarceCount.Add(1)
			default:
				otherCount.Add(1)
				log.Printf("unexpected checkout error: %v", err)
			}
			return nil
		})
	}
	g.Wait()
	elapsed := time.Since(start)

	success := successCount.Load()
	scarce := scarceCount.Load()
	other := otherCount.Load()

	fmt.Println("========== CHECKOUT STRESS RESULTS ==========")
	fmt.Printf("Initial Stock:     %d\n", initialStock)
	fmt.Printf("Concurrent Carts:  %d\n", totalCheckout)
	fmt.Printf("Purchased:         %d\n", success)
	fmt.Printf("Out of Stock:      %d\n", scarce)
	fmt.Printf("Other Failures:    %d\n", other)
	fmt.Printf("Duration:          %v\n", elapsed)
	fmt.Println("=============================================")

	if success == initialStock && scarce == totalCheckout-initialStock {
		fmt.Printf("PASS: Exactly %d checkouts succeeded, %d hit scarcity\n", initialStock, totalCheckout-initialStock)
	} else {
		fmt.Printf("FAIL: Expected %d success/%d scarce, got %d/%d\n",
			initialStock, totalCheckout-initialStock, success, scarce)
	}

	var finalStock int
	db.QueryRowContext(ctx, `SELECT stock FROM products WHERE id = ?`, productID).Scan(&finalStock)
	fmt.Printf("Final Stock: %d\n", finalStock)

	if finalStock == 0 {
		fmt.Println("PASS: Stock depleted to 0")
	} else {
		fmt.Printf("FAIL: Expected stock 0, got %d\n", finalStock)
	}
}

// seed resets the product and creates one single-line cart per simulated
// shopper, all competing for the same product.
func seed(ctx context.Context, db *sql.DB, rdb *redis.Client) []string {
	db.ExecContext(ctx, `DELETE FROM cart_lines WHERE product_id = ?`, productID)
	db.ExecContext(ctx, `DELETE FROM carts WHERE user_id LIKE 'stress-user-%'`)
	_, err := db.ExecContext(ctx, `
		INSERT INTO products (id, name, stock, version) VALUES (?, 'stress product', ?, 0)
		ON DUPLICATE KEY UPDATE stock = VALUES(stock), version = 0`, productID, initialStock)
	if err != nil {
		log.Fatalf("failed to seed product: %v", err)
	}

	keys, _ := rdb.Keys(ctx, "checkout:*").Result()
	for _, k := range keys {
		rdb.Del(ctx, k)
	}

	cartIDs := make([]string, 0, totalCheckout)
	for i := 0; i < totalCheckout; i++ {
		cartID := uuid.NewString()
		_, err := db.ExecContext(ctx, `
			INSERT INTO carts (id, user_id, purchased) VALUES (?, ?, FALSE)`,
			cartID, fmt.Sprintf("stress-user-%d", i))
		if err != nil {
			log.Fatalf("failed to seed cart: %v", err)
		}
		_, err = db.ExecContext(ctx, `
			INSERT INTO cart_lines (cart_id, product_id, quantity, unit_price, status, manager_id)
			VALUES (?, ?, 1, '9.99', 'in_cart', 'mgr-1')`, cartID, productID)
		if err != nil {
			log.Fatalf("failed to seed cart line: %v", err)
		}
		cartIDs = append(cartIDs, cartID)
	}

	return cartIDs
}
