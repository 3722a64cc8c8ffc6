package search

import "sync/atomic"

// IndexCache 保存最近一次构建的索引。实现必须整体替换索引，不能原地修改。
type IndexCache interface {
	Get() (*Index, bool)
	Set(idx *Index)
	// Invalidate 仅在当前索引属于 ownerID 时丢弃它，返回是否真的丢弃了。
	Invalidate(ownerID string) bool
}

// MemoryCache 是进程级的单槽缓存，同一时刻最多持有一个用户的索引。
type MemoryCache struct {
	current atomic.Pointer[Index]
}

// NewMemoryCache 创建一个空缓存。
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{}
}

func (c *MemoryCache) Get() (*Index, bool) {
	idx := c.current.Load()
	return idx, idx != nil
}

func (c *MemoryCache) Set(idx *Index) {
	c.current.Store(idx)
}

func (c *MemoryCache) Invalidate(ownerID string) bool {
	idx := c.current.Load()
	if idx == nil || idx.OwnerID != ownerID {
		return false
	}
	return c.current.CompareAndSwap(idx, nil)
}
