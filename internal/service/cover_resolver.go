package service

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"shelf-search-go/internal/model"
	"shelf-search-go/internal/repository"
	"shelf-search-go/internal/search"
	"shelf-search-go/pkg/log"
	"time"

	"golang.org/x/sync/errgroup"
)

// CoverResolver 并发读取命中条目的封面。单个封面失败只会让该条目缺少 picture。
type CoverResolver struct {
	repo        repository.CoverRepository
	concurrency int
	timeout     time.Duration
}

// NewCoverResolver 创建一个新的 CoverResolver 实例。concurrency <= 0 表示不限制并发。
func NewCoverResolver(repo repository.CoverRepository, concurrency int, timeout time.Duration) *CoverResolver {
	return &CoverResolver{repo: repo, concurrency: concurrency, timeout: timeout}
}

// Resolve 返回与 matches 一一对应、顺序相同的响应条目。
func (r *CoverResolver) Resolve(ctx context.Context, matches []search.Match) []model.SearchResultDTO {
	results := make([]model.SearchResultDTO, len(matches))
	for i, m := range matches {
		results[i] = model.NewSearchResultDTO(m.Item, m.Score)
	}
	if r.repo == nil || len(matches) == 0 {
		return results
	}

	var g errgroup.Group
	if r.concurrency > 0 {
		g.SetLimit(r.concurrency)
	}
	for i := range matches {
		i := i
		g.Go(func() error {
			// 每个任务只写 results[i]，互不干扰
			if picture, ok := r.fetch(ctx, matches[i].Item); ok {
				results[i].Picture = picture
			}
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (r *CoverResolver) fetch(ctx context.Context, item model.CatalogItem) (picture string, ok bool) {
	key := model.CoverObjectKey(item.OwnerID, item.LibraryID, item.ID)
	defer func() {
		if p := recover(); p != nil {
			log.Warnw("封面读取发生 panic",
				"owner", item.OwnerID, "item", item.ID, "key", key,
				"error", fmt.Errorf("%w: panic: %v", ErrCoverLookup, p))
			picture, ok = "", false
		}
	}()

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	data, err := r.repo.GetCover(ctx, key)
	switch {
	case errors.Is(err, repository.ErrCoverNotFound):
		log.Debugf("[CoverResolver] 条目没有封面, key: %s", key)
		return "", false
	case err != nil:
		log.Warnw("封面读取失败",
			"owner", item.OwnerID, "item", item.ID, "key", key,
			"error", fmt.Errorf("%w: %w", ErrCoverLookup, err))
		return "", false
	}
	return base64.StdEncoding.EncodeToString(data), true
}
