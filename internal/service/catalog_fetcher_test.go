package service

import (
	"context"
	"errors"
	"fmt"
	"shelf-search-go/internal/model"
	"shelf-search-go/internal/repository"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pagedRepo 按 cursor 返回预置的页，游标为 "p<n>"。
func pagedRepo(t *testing.T, pages ...[]model.CatalogRow) (*mockCatalogRepo, *[]string) {
	var cursors []string
	repo := &mockCatalogRepo{
		QueryItemsFunc: func(_ context.Context, ownerID, cursor string, limit int) (repository.CatalogPage, error) {
			assert.Equal(t, 50, limit)
			cursors = append(cursors, cursor)
			n := 0
			if cursor != "" {
				_, err := fmt.Sscanf(cursor, "p%d", &n)
				require.NoError(t, err)
			}
			page := repository.CatalogPage{Rows: pages[n]}
			if n+1 < len(pages) {
				page.Next = fmt.Sprintf("p%d", n+1)
			}
			return page, nil
		},
	}
	return repo, &cursors
}

func rowsFor(ownerID string, from, count int) []model.CatalogRow {
	rows := make([]model.CatalogRow, 0, count)
	for i := from; i < from+count; i++ {
		rows = append(rows, catalogRow(ownerID, fmt.Sprintf("%03d", i), fmt.Sprintf("Title %d", i)))
	}
	return rows
}

func TestCatalogFetcher_PaginationCompleteness(t *testing.T) {
	repo, cursors := pagedRepo(t, rowsFor("A", 0, 50), rowsFor("A", 50, 50), rowsFor("A", 100, 7))

	items, err := NewCatalogFetcher(repo, 50).FetchAllItems(context.Background(), "A")
	require.NoError(t, err)
	require.Len(t, items, 107)
	assert.Equal(t, []string{"", "p1", "p2"}, *cursors)

	seen := map[string]bool{}
	for i, item := range items {
		assert.False(t, seen[item.ID], "duplicate %s", item.ID)
		seen[item.ID] = true
		assert.Equal(t, fmt.Sprintf("%03d", i), item.ID)
		assert.Equal(t, []string{item.Title}, item.Keywords)
	}
}

func TestCatalogFetcher_SkipsDuplicatesAndNonItemRows(t *testing.T) {
	library := model.CatalogRow{PK: model.OwnerPartition("A"), SK: model.LibrarySortKeyPrefix + "L1", ID: "L1"}
	dune := catalogRow("A", "1", "Dune", "Frank Herbert")
	repo, _ := pagedRepo(t, []model.CatalogRow{library, dune}, []model.CatalogRow{dune})

	items, err := NewCatalogFetcher(repo, 50).FetchAllItems(context.Background(), "A")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, []string{"Dune", "Frank Herbert"}, items[0].Keywords)
}

func TestCatalogFetcher_FillsMissingOwner(t *testing.T) {
	row := catalogRow("", "1", "Dune")
	row.PK = model.OwnerPartition("A")
	repo, _ := pagedRepo(t, []model.CatalogRow{row})

	items, err := NewCatalogFetcher(repo, 50).FetchAllItems(context.Background(), "A")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "A", items[0].OwnerID)
}

func TestCatalogFetcher_EmptyCatalog(t *testing.T) {
	repo, _ := pagedRepo(t, nil)

	items, err := NewCatalogFetcher(repo, 50).FetchAllItems(context.Background(), "A")
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestCatalogFetcher_FirstPageFailure(t *testing.T) {
	boom := errors.New("throttled")
	repo := &mockCatalogRepo{
		QueryItemsFunc: func(context.Context, string, string, int) (repository.CatalogPage, error) {
			return repository.CatalogPage{}, boom
		},
	}

	items, err := NewCatalogFetcher(repo, 50).FetchAllItems(context.Background(), "A")
	require.Error(t, err)
	assert.Nil(t, items)
	assert.ErrorIs(t, err, ErrStorageQuery)
	assert.ErrorIs(t, err, boom)
}

func TestCatalogFetcher_LaterPageFailureDoesNotTruncate(t *testing.T) {
	repo := &mockCatalogRepo{
		QueryItemsFunc: func(_ context.Context, ownerID, cursor string, _ int) (repository.CatalogPage, error) {
			if cursor == "" {
				return repository.CatalogPage{Rows: rowsFor(ownerID, 0, 50), Next: "p1"}, nil
			}
			return repository.CatalogPage{}, errors.New("connection reset")
		},
	}

	items, err := NewCatalogFetcher(repo, 50).FetchAllItems(context.Background(), "A")
	assert.ErrorIs(t, err, ErrStorageQuery)
	assert.Nil(t, items)
}

func TestCatalogFetcher_RejectsStuckCursor(t *testing.T) {
	calls := 0
	repo := &mockCatalogRepo{
		QueryItemsFunc: func(_ context.Context, ownerID, cursor string, _ int) (repository.CatalogPage, error) {
			calls++
			return repository.CatalogPage{Rows: rowsFor(ownerID, 0, 1), Next: "same"}, nil
		},
	}

	_, err := NewCatalogFetcher(repo, 50).FetchAllItems(context.Background(), "A")
	assert.ErrorIs(t, err, ErrStorageQuery)
	assert.Equal(t, 2, calls)
}

func TestCatalogFetcher_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	repo := &mockCatalogRepo{
		QueryItemsFunc: func(_ context.Context, ownerID, _ string, _ int) (repository.CatalogPage, error) {
			cancel()
			return repository.CatalogPage{Rows: rowsFor(ownerID, 0, 1), Next: "p1"}, nil
		},
	}

	_, err := NewCatalogFetcher(repo, 50).FetchAllItems(ctx, "A")
	assert.ErrorIs(t, err, ErrStorageQuery)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewCatalogFetcher_DefaultPageSize(t *testing.T) {
	assert.Equal(t, 50, NewCatalogFetcher(nil, 0).pageSize)
}
