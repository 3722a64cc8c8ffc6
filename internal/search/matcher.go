// Package search 封装了目录条目的模糊匹配引擎、按用户构建的搜索索引以及进程级索引缓存。
package search

import (
	"fmt"
	"shelf-search-go/internal/config"
	"shelf-search-go/internal/model"
)

// Match 是一次查询中的单条命中，Score 越低越好，0 表示完全匹配。
type Match struct {
	Item  model.CatalogItem
	Score float64
}

// Searchable 是匹配引擎建好的不可变索引句柄，可并发查询。
type Searchable interface {
	Search(query string, limit int) ([]Match, error)
}

// Matcher 从一组条目的关键词构建索引。
type Matcher interface {
	Build(items []model.CatalogItem) (Searchable, error)
}

// NewMatcher 根据配置选择匹配引擎。
func NewMatcher(cfg config.SearchConfig) (Matcher, error) {
	switch cfg.Engine {
	case "", config.SearchEngineFuse:
		return NewFuseMatcher(cfg), nil
	case config.SearchEngineBleve:
		return NewBleveMatcher(cfg), nil
	default:
		return nil, fmt.Errorf("search: unknown engine %q", cfg.Engine)
	}
}
