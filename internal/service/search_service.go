// Package service 提供了目录模糊搜索相关的业务逻辑。
package service

import (
	"context"
	"fmt"
	"shelf-search-go/internal/model"
	"shelf-search-go/pkg/log"
	"strings"
)

// SearchService 接口定义了搜索操作。
type SearchService interface {
	Search(ctx context.Context, ownerID string, terms []string) ([]model.SearchResultDTO, error)
}

type searchService struct {
	indexes IndexService
	covers  *CoverResolver
	limit   int
}

// NewSearchService 创建一个新的 SearchService 实例。
func NewSearchService(indexes IndexService, covers *CoverResolver, limit int) SearchService {
	if limit <= 0 {
		limit = 10
	}
	return &searchService{indexes: indexes, covers: covers, limit: limit}
}

// BuildQuery 把多个查询词按空白切分后用单个空格重新拼接，整体作为一个短语交给匹配器。
func BuildQuery(terms []string) string {
	return strings.Join(strings.Fields(strings.Join(terms, " ")), " ")
}

// Search 执行一次搜索：确保索引新鲜 → 模糊匹配 → 并发读取封面。
func (s *searchService) Search(ctx context.Context, ownerID string, terms []string) ([]model.SearchResultDTO, error) {
	if ownerID == "" {
		return nil, ErrAuthResolution
	}

	// 1. 确保索引属于当前用户且未过期
	idx, err := s.indexes.EnsureFresh(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	// 2. 空查询不匹配任何条目
	query := BuildQuery(terms)
	if query == "" {
		log.Infof("[SearchService] 查询为空, owner: %s", ownerID)
		return []model.SearchResultDTO{}, nil
	}

	// 3. 模糊匹配
	matches, err := idx.Query(query, s.limit)
	if err != nil {
		return nil, fmt.Errorf("执行匹配失败: %w", err)
	}
	log.Infof("[SearchService] 查询完成, owner: %s, query: '%s', 索引条目: %d, 命中: %d", ownerID, query, idx.Size(), len(matches))

	// 4. 读取封面并组装响应
	if s.covers == nil {
		results := make([]model.SearchResultDTO, len(matches))
		for i, m := range matches {
			results[i] = model.NewSearchResultDTO(m.Item, m.Score)
		}
		return results, nil
	}
	return s.covers.Resolve(ctx, matches), nil
}
