package service

import (
	"context"
	"fmt"
	"shelf-search-go/internal/model"
	"shelf-search-go/internal/repository"
	"shelf-search-go/pkg/log"
)

// ItemFetcher 读取某个用户的全部目录条目。
type ItemFetcher interface {
	FetchAllItems(ctx context.Context, ownerID string) ([]model.CatalogItem, error)
}

// CatalogFetcher 顺序翻页读取目录存储，直到没有后续游标。
type CatalogFetcher struct {
	repo     repository.CatalogRepository
	pageSize int
}

// NewCatalogFetcher 创建一个新的 CatalogFetcher 实例。
func NewCatalogFetcher(repo repository.CatalogRepository, pageSize int) *CatalogFetcher {
	if pageSize <= 0 {
		pageSize = 50
	}
	return &CatalogFetcher{repo: repo, pageSize: pageSize}
}

// FetchAllItems 任何一页失败都会让整个读取失败，不会返回被截断的结果。
func (f *CatalogFetcher) FetchAllItems(ctx context.Context, ownerID string) ([]model.CatalogItem, error) {
	var (
		items  []model.CatalogItem
		seen   = make(map[string]struct{})
		cursor string
		pages  int
	)

	for {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrStorageQuery, err)
		}

		page, err := f.repo.QueryItems(ctx, ownerID, cursor, f.pageSize)
		if err != nil {
			return nil, fmt.Errorf("%w: 第 %d 页: %w", ErrStorageQuery, pages+1, err)
		}
		pages++

		for _, row := range page.Rows {
			if !row.IsItem() {
				continue
			}
			// Redis 的 SCAN 可能重复返回同一行
			if _, dup := seen[row.ID]; dup {
				continue
			}
			seen[row.ID] = struct{}{}
			if row.OwnerID == "" {
				row.OwnerID = ownerID
			}
			items = append(items, model.NewCatalogItem(row))
		}

		if page.Next == "" {
			break
		}
		if page.Next == cursor {
			return nil, fmt.Errorf("%w: 游标 %q 没有前进", ErrStorageQuery, cursor)
		}
		cursor = page.Next
	}

	log.Infof("[CatalogFetcher] 读取目录完成, owner: %s, pages: %d, items: %d", ownerID, pages, len(items))
	return items, nil
}
