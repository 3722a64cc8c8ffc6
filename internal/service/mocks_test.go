package service

import (
	"context"
	"shelf-search-go/internal/model"
	"shelf-search-go/internal/repository"
	"sync"
	"sync/atomic"
	"time"
)

// ---------------------------------------------------------------------------
// Manual mocks (moq-style with func fields)
// ---------------------------------------------------------------------------

type mockCatalogRepo struct {
	QueryItemsFunc func(ctx context.Context, ownerID, cursor string, limit int) (repository.CatalogPage, error)
	SaveRowsFunc   func(ctx context.Context, rows []model.CatalogRow) error
}

func (m *mockCatalogRepo) QueryItems(ctx context.Context, ownerID, cursor string, limit int) (repository.CatalogPage, error) {
	return m.QueryItemsFunc(ctx, ownerID, cursor, limit)
}

func (m *mockCatalogRepo) SaveRows(ctx context.Context, rows []model.CatalogRow) error {
	if m.SaveRowsFunc != nil {
		return m.SaveRowsFunc(ctx, rows)
	}
	return nil
}

type mockCoverRepo struct {
	GetCoverFunc func(ctx context.Context, key string) ([]byte, error)
	PutCoverFunc func(ctx context.Context, key string, data []byte, contentType string) error
}

func (m *mockCoverRepo) GetCover(ctx context.Context, key string) ([]byte, error) {
	return m.GetCoverFunc(ctx, key)
}

func (m *mockCoverRepo) PutCover(ctx context.Context, key string, data []byte, contentType string) error {
	if m.PutCoverFunc != nil {
		return m.PutCoverFunc(ctx, key, data, contentType)
	}
	return nil
}

// countingFetcher 记录每个用户被读取的次数。
type countingFetcher struct {
	FetchAllItemsFunc func(ctx context.Context, ownerID string) ([]model.CatalogItem, error)

	mu    sync.Mutex
	calls map[string]int
	total atomic.Int32
}

func (m *countingFetcher) FetchAllItems(ctx context.Context, ownerID string) ([]model.CatalogItem, error) {
	m.mu.Lock()
	if m.calls == nil {
		m.calls = make(map[string]int)
	}
	m.calls[ownerID]++
	m.mu.Unlock()
	m.total.Add(1)
	return m.FetchAllItemsFunc(ctx, ownerID)
}

func (m *countingFetcher) Calls(ownerID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[ownerID]
}

// ---------------------------------------------------------------------------
// Fixtures
// ---------------------------------------------------------------------------

func catalogRow(ownerID, itemID, title string, authors ...string) model.CatalogRow {
	return model.CatalogRow{
		PK:          model.OwnerPartition(ownerID),
		SK:          model.ItemSortKey(itemID),
		ID:          itemID,
		OwnerID:     ownerID,
		LibraryID:   "L1",
		LibraryName: "Home",
		Title:       title,
		Authors:     authors,
		Type:        "book",
	}
}

func catalogItem(ownerID, itemID, title string, authors ...string) model.CatalogItem {
	return model.NewCatalogItem(catalogRow(ownerID, itemID, title, authors...))
}

// fakeClock 是可手动设置的时钟。
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	c.t = t
	c.mu.Unlock()
}
