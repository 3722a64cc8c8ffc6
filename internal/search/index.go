package search

import (
	"shelf-search-go/internal/model"
	"time"
)

// Index 是某个用户目录在 BuiltAt 时刻的不可变快照及其匹配结构。
// 它只在 now-BuiltAt < 新鲜窗口 且请求用户等于 OwnerID 时可用。
type Index struct {
	OwnerID string
	BuiltAt time.Time
	Items   []model.CatalogItem

	handle Searchable
}

// NewIndex 创建一个索引快照。
func NewIndex(ownerID string, builtAt time.Time, items []model.CatalogItem, handle Searchable) *Index {
	return &Index{
		OwnerID: ownerID,
		BuiltAt: builtAt,
		Items:   items,
		handle:  handle,
	}
}

// FreshFor 判断索引对 ownerID 在 now 时刻是否仍然有效。
func (idx *Index) FreshFor(ownerID string, now time.Time, window time.Duration) bool {
	if idx == nil || idx.OwnerID != ownerID {
		return false
	}
	return now.Sub(idx.BuiltAt) < window
}

// Query 返回最多 limit 条命中，最佳在前。
func (idx *Index) Query(text string, limit int) ([]Match, error) {
	if idx.handle == nil {
		return nil, nil
	}
	return idx.handle.Search(text, limit)
}

// Size 返回索引中的条目数。
func (idx *Index) Size() int {
	return len(idx.Items)
}
