package service

import (
	"context"
	"fmt"
	"shelf-search-go/internal/search"
	"shelf-search-go/pkg/log"
	"time"

	"golang.org/x/sync/singleflight"
)

// IndexService 保证查询使用的索引属于当前用户且在新鲜窗口内。
type IndexService interface {
	EnsureFresh(ctx context.Context, ownerID string) (*search.Index, error)
	// Invalidate 在目录变更时丢弃该用户的缓存索引。
	Invalidate(ownerID string) bool
}

// IndexOption 用于定制 indexService。
type IndexOption func(*indexService)

// WithBuildTimeout 限制单次重建的耗时，d <= 0 时不限制。
func WithBuildTimeout(d time.Duration) IndexOption {
	return func(s *indexService) {
		s.buildTimeout = d
	}
}

// WithClock 替换获取当前时间的函数。
func WithClock(now func() time.Time) IndexOption {
	return func(s *indexService) {
		s.now = now
	}
}

// DefaultBuildTimeout 是重建索引的默认超时。
const DefaultBuildTimeout = time.Minute

type indexService struct {
	fetcher      ItemFetcher
	matcher      search.Matcher
	cache        search.IndexCache
	window       time.Duration
	buildTimeout time.Duration
	now          func() time.Time
	group        singleflight.Group
}

// NewIndexService 创建一个新的 IndexService 实例。
func NewIndexService(fetcher ItemFetcher, matcher search.Matcher, cache search.IndexCache, window time.Duration, opts ...IndexOption) IndexService {
	s := &indexService{
		fetcher:      fetcher,
		matcher:      matcher,
		cache:        cache,
		window:       window,
		buildTimeout: DefaultBuildTimeout,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *indexService) EnsureFresh(ctx context.Context, ownerID string) (*search.Index, error) {
	if idx, ok := s.cache.Get(); ok && idx.FreshFor(ownerID, s.now(), s.window) {
		return idx, nil
	}

	// 同一用户的并发重建合并为一次。重建不跟随任何一个调用方的取消，
	// 发起者断开后其余等待者仍能拿到结果；每个调用方只按自己的 ctx 放弃等待。
	flightCtx := context.WithoutCancel(ctx)
	ch := s.group.DoChan(ownerID, func() (interface{}, error) {
		if idx, ok := s.cache.Get(); ok && idx.FreshFor(ownerID, s.now(), s.window) {
			return idx, nil
		}
		buildCtx := flightCtx
		if s.buildTimeout > 0 {
			var cancel context.CancelFunc
			buildCtx, cancel = context.WithTimeout(flightCtx, s.buildTimeout)
			defer cancel()
		}
		return s.rebuild(buildCtx, ownerID)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		if res.Shared {
			log.Debugf("[IndexService] 复用并发请求的重建结果, owner: %s", ownerID)
		}
		return res.Val.(*search.Index), nil
	}
}

// rebuild 失败时不写缓存，已有的（其他用户的）索引保持不变。
func (s *indexService) rebuild(ctx context.Context, ownerID string) (*search.Index, error) {
	builtAt := s.now()
	log.Infof("[IndexService] 开始重建索引, owner: %s", ownerID)

	items, err := s.fetcher.FetchAllItems(ctx, ownerID)
	if err != nil {
		log.Errorf("[IndexService] 读取目录失败, owner: %s, error: %v", ownerID, err)
		return nil, err
	}

	handle, err := s.matcher.Build(items)
	if err != nil {
		log.Errorf("[IndexService] 构建匹配索引失败, owner: %s, error: %v", ownerID, err)
		return nil, fmt.Errorf("构建索引失败: %w", err)
	}

	idx := search.NewIndex(ownerID, builtAt, items, handle)
	s.cache.Set(idx)
	log.Infof("[IndexService] 索引重建完成, owner: %s, items: %d, 耗时: %v", ownerID, len(items), s.now().Sub(builtAt))
	return idx, nil
}

func (s *indexService) Invalidate(ownerID string) bool {
	dropped := s.cache.Invalidate(ownerID)
	if dropped {
		log.Infof("[IndexService] 已丢弃用户 %s 的缓存索引", ownerID)
	}
	return dropped
}
