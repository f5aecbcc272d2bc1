package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rl1809/storefront/internal/core/domain"
)

// Mock DatabaseRepository with real compare-and-swap semantics: a subtract
// succeeds only when the caller's observed version is still current.
type mockRepo struct {
	mu             sync.Mutex
	products       map[string]*domain.Product
	carts          map[string]*domain.Cart
	subtractCalls  int
	forceConflicts int // next N subtracts fail with a version conflict
}

func newMockRepo() *mockRepo {
	return &mockRepo{
		products: make(map[string]*domain.Product),
		carts:    make(map[string]*domain.Cart),
	}
}

func (m *mockRepo) GetProduct(ctx context.Context, productID string) (*domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.products[productID]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (m *mockRepo) SubtractStock(ctx context.Context, productID string, amount, expectedVersion int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.subtractCalls++
	if m.forceConflicts > 0 {
		m.forceConflicts--
		return domain.ErrVersionConflict
	}

	p, ok := m.products[productID]
	if !ok {
		return domain.ErrProductNotFound
	}
	if p.Version != expectedVersion {
		return domain.ErrVersionConflict
	}
	if p.Stock < amount {
		return domain.ErrInsufficientStock
	}
	p.Stock -= amount
	p.Version++
	return nil
}

func (m *mockRepo) RestoreStock(ctx context.Context, productID string, amount int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.products[productID]
	if !ok {
		return domain.ErrProductNotFound
	}
	p.Stock += amount
	p.Version++
	return nil
}

func (m *mockRepo) GetCart(ctx context.Context, cartID string) (*domain.Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.carts[cartID]
	if !ok {
		return nil, nil
	}
	cp := *c
	cp.Lines = append([]domain.CartLine(nil), c.Lines...)
	if c.CheckoutStartedAt != nil {
		t := *c.CheckoutStartedAt
		cp.CheckoutStartedAt = &t
	}
	return &cp, nil
}

func (m *mockRepo) AcquireCheckoutLock(ctx context.Context, cartID string, now time.Time, staleAfter time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.carts[cartID]
	if !ok {
		return domain.ErrCartNotFound
	}
	if c.CheckoutStartedAt != nil && now.Sub(*c.CheckoutStartedAt) <= staleAfter {
		return domain.ErrCheckoutInProgress
	}
	t := now
	c.CheckoutStartedAt = &t
	return nil
}

func (m *mockRepo) ReleaseCheckoutLock(ctx context.Context, cartID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if c, ok := m.carts[cartID]; ok {
		c.CheckoutStartedAt = nil
	}
	return nil
}

func (m *mockRepo) MarkCartPurchased(ctx context.Context, cartID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.carts[cartID]
	if !ok {
		return domain.ErrCartNotFound
	}
	c.Purchased = true
	return nil
}

func (m *mockRepo) GetLine(ctx context.Context, cartID, productID string) (*domain.CartLine, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.carts[cartID]
	if !ok {
		return nil, nil
	}
	for i := range c.Lines {
		if c.Lines[i].ProductID == productID {
			cp := c.Lines[i]
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *mockRepo) UpdateLineStatus(ctx context.Context, cartID, productID string, status domain.LineStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.carts[cartID]
	if !ok {
		return domain.ErrLineNotFound
	}
	for i := range c.Lines {
		if c.Lines[i].ProductID == productID {
			c.Lines[i].Status = status
			return nil
		}
	}
	return domain.ErrLineNotFound
}

func (m *mockRepo) productStock(productID string) (stock, version int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := m.products[productID]
	return p.Stock, p.Version
}

func TestReserve_Success(t *testing.T) {
	repo := newMockRepo()
	repo.products["item-1"] = &domain.Product{ID: "item-1", Stock: 10, Version: 1}
	svc := NewStockService(repo, 3, time.Millisecond)

	if err := svc.Reserve(context.Background(), "item-1", 3); err != nil {
		t.Fatalf("expected success, got: %v", err)
	}

	stock, version := repo.productStock("item-1")
	if stock != 7 {
		t.Errorf("expected stock 7, got %d", stock)
	}
	if version != 2 {
		t.Errorf("expected version 2, got %d", version)
	}
}

func TestReserve_InsufficientStock_NoRetry(t *testing.T) {
	repo := newMockRepo()
	repo.products["item-1"] = &domain.Product{ID: "item-1", Stock: 2, Version: 1}
	svc := NewStockService(repo, 5, time.Millisecond)

	err := svc.Reserve(context.Background(), "item-1", 5)
	if !errors.Is(err, domain.ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got: %v", err)
	}

	if repo.subtractCalls != 1 {
		t.Errorf("insufficient stock must not be retried, got %d attempts", repo.subtractCalls)
	}
	if stock, _ := repo.productStock("item-1"); stock != 2 {
		t.Errorf("expected stock unchanged at 2, got %d", stock)
	}
}

func TestReserve_RetriesVersionConflict(t *testing.T) {
	repo := newMockRepo()
	repo.products["item-1"] = &domain.Product{ID: "item-1", Stock: 10, Version: 1}
	repo.forceConflicts = 2
	svc := NewStockService(repo, 5, time.Millisecond)

	if err := svc.Reserve(context.Background(), "item-1", 1); err != nil {
		t.Fatalf("expected success after retries, got: %v", err)
	}

	if repo.subtractCalls != 3 {
		t.Errorf("expected 3 attempts (2 conflicts + 1 success), got %d", repo.subtractCalls)
	}
	if stock, _ := repo.productStock("item-1"); stock != 9 {
		t.Errorf("expected stock 9, got %d", stock)
	}
}

func TestReserve_AttemptsExceeded_NoMutation(t *testing.T) {
	repo := newMockRepo()
	repo.products["item-1"] = &domain.Product{ID: "item-1", Stock: 10, Version: 1}
	repo.forceConflicts = 100
	svc := NewStockService(repo, 3, time.Millisecond)

	err := svc.Reserve(context.Background(), "item-1", 1)
	if !errors.Is(err, domain.ErrAttemptsExceeded) {
		t.Fatalf("expected ErrAttemptsExceeded, got: %v", err)
	}

	stock, version := repo.productStock("item-1")
	if stock != 10 || version != 1 {
		t.Errorf("expected state unchanged (10, v1), got (%d, v%d)", stock, version)
	}
}

func TestReserve_ProductNotFound(t *testing.T) {
	repo := newMockRepo()
	svc := NewStockService(repo, 3, time.Millisecond)

	err := svc.Reserve(context.Background(), "nope", 1)
	if !errors.Is(err, domain.ErrProductNotFound) {
		t.Fatalf("expected ErrProductNotFound, got: %v", err)
	}
}

func TestReserve_Concurrent_NeverOversells(t *testing.T) {
	initialStock := 20
	totalRequests := 50

	repo := newMockRepo()
	repo.products["item-1"] = &domain.Product{ID: "item-1", Stock: initialStock, Version: 1}

	// The attempt budget exceeds the number of possible successful writes,
	// so no caller can exhaust it on conflicts alone.
	svc := NewStockService(repo, 100, time.Millisecond)

	var successCount atomic.Int32
	var scarceCount atomic.Int32
	var wg sync.WaitGroup

	for i := 0; i < totalRequests; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := svc.Reserve(context.Background(), "item-1", 1)
			switch {
			case err == nil:
				successCount.Add(1)
			case errors.Is(err, domain.ErrInsufficientStock):
				scarceCount.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}

	wg.Wait()

	if successCount.Load() != int32(initialStock) {
		t.Errorf("expected %d successes, got %d", initialStock, successCount.Load())
	}
	if scarceCount.Load() != int32(totalRequests-initialStock) {
		t.Errorf("expected %d scarcity failures, got %d", totalRequests-initialStock, scarceCount.Load())
	}

	stock, _ := repo.productStock("item-1")
	if stock != 0 {
		t.Errorf("expected stock 0, got %d", stock)
	}
	if stock < 0 {
		t.Error("stock must never go negative")
	}
}

func TestReserve_TwoCallersWantAllStock(t *testing.T) {
	repo := newMockRepo()
	repo.products["item-1"] = &domain.Product{ID: "item-1", Stock: 10, Version: 1}
	svc := NewStockService(repo, 10, time.Millisecond)

	var wg sync.WaitGroup
	results := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = svc.Reserve(context.Background(), "item-1", 10)
		}(i)
	}
	wg.Wait()

	var succeeded, scarce int
	for _, err := range results {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, domain.ErrInsufficientStock):
			scarce++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}

	if succeeded != 1 || scarce != 1 {
		t.Errorf("expected exactly one winner and one scarcity failure, got %d/%d", succeeded, scarce)
	}
	if stock, _ := repo.productStock("item-1"); stock != 0 {
		t.Errorf("expected stock 0, got %d", stock)
	}
}

func TestRestore(t *testing.T) {
	repo := newMockRepo()
	repo.products["item-1"] = &domain.Product{ID: "item-1", Stock: 5, Version: 3}
	svc := NewStockService(repo, 3, time.Millisecond)

	if err := svc.Restore(context.Background(), "item-1", 4); err != nil {
		t.Fatalf("expected success, got: %v", err)
	}

	stock, version := repo.productStock("item-1")
	if stock != 9 {
		t.Errorf("expected stock 9, got %d", stock)
	}
	if version != 4 {
		t.Errorf("restore must bump the version, got %d", version)
	}
}
