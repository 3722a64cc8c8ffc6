package search

import (
	"shelf-search-go/internal/config"
	"shelf-search-go/internal/model"
	"shelf-search-go/pkg/fuzzy"
)

// FuseMatcher 使用 bitap 近似匹配对条目的 keywords 字段打分。
type FuseMatcher struct {
	opts fuzzy.Options
}

// NewFuseMatcher 创建一个新的 FuseMatcher 实例。
func NewFuseMatcher(cfg config.SearchConfig) *FuseMatcher {
	opts := fuzzy.DefaultOptions()
	if cfg.Threshold > 0 {
		opts.Threshold = cfg.Threshold
	}
	if cfg.Distance > 0 {
		opts.Distance = cfg.Distance
	}
	if cfg.MinMatchCharLength > 0 {
		opts.MinMatchCharLength = cfg.MinMatchCharLength
	}
	return &FuseMatcher{opts: opts}
}

// Build 只索引 keywords 一个字段。
func (m *FuseMatcher) Build(items []model.CatalogItem) (Searchable, error) {
	records := make([][]string, len(items))
	for i, item := range items {
		records[i] = item.Keywords
	}
	return &fuseIndex{
		items: items,
		index: fuzzy.NewIndex(records, m.opts),
	}, nil
}

type fuseIndex struct {
	items []model.CatalogItem
	index *fuzzy.Index
}

func (f *fuseIndex) Search(query string, limit int) ([]Match, error) {
	results := f.index.Search(query, limit)
	matches := make([]Match, 0, len(results))
	for _, r := range results {
		matches = append(matches, Match{Item: f.items[r.Ref], Score: r.Score})
	}
	return matches, nil
}
