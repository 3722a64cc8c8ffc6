package search

import (
	"fmt"
	"shelf-search-go/internal/config"
	"shelf-search-go/internal/model"
	"shelf-search-go/pkg/fuzzy"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/blevesearch/bleve/v2"
)

const keywordsField = "keywords"

// BleveMatcher 把关键词写入内存 Bleve 索引，用带编辑距离的 match 查询召回候选。
// Bleve 的相关度不能区分完全匹配和模糊匹配，所以候选的分数由 bitap 对条目关键词重新计算：
// 与某个关键词（忽略大小写）完全相等为 0，其余在 (0, 1] 之间。
type BleveMatcher struct {
	fuzziness int
	minLen    int
	scoring   fuzzy.Options
}

// NewBleveMatcher 创建一个新的 BleveMatcher 实例。
func NewBleveMatcher(cfg config.SearchConfig) *BleveMatcher {
	fuzziness := cfg.BleveFuzziness
	if fuzziness < 0 {
		fuzziness = 0
	}
	if fuzziness > 2 {
		// Bleve 的模糊查询最多支持编辑距离 2
		fuzziness = 2
	}
	scoring := fuzzy.DefaultOptions()
	scoring.Threshold = 1
	scoring.IgnoreLocation = true
	if cfg.MinMatchCharLength > 0 {
		scoring.MinMatchCharLength = cfg.MinMatchCharLength
	}
	return &BleveMatcher{fuzziness: fuzziness, minLen: cfg.MinMatchCharLength, scoring: scoring}
}

// Build 为每个条目建一篇文档，文档 ID 是条目下标。
func (m *BleveMatcher) Build(items []model.CatalogItem) (Searchable, error) {
	idx, err := bleve.NewMemOnly(bleve.NewIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("创建内存 Bleve 索引失败: %w", err)
	}

	batch := idx.NewBatch()
	for i, item := range items {
		doc := map[string]interface{}{
			keywordsField: strings.Join(item.Keywords, " "),
		}
		if err := batch.Index(strconv.Itoa(i), doc); err != nil {
			_ = idx.Close()
			return nil, fmt.Errorf("写入 Bleve 文档失败 (item %s): %w", item.ID, err)
		}
	}
	if err := idx.Batch(batch); err != nil {
		_ = idx.Close()
		return nil, fmt.Errorf("提交 Bleve 批量写入失败: %w", err)
	}

	return &bleveIndex{idx: idx, items: items, fuzziness: m.fuzziness, minLen: m.minLen, scoring: m.scoring}, nil
}

type bleveIndex struct {
	idx       bleve.Index
	items     []model.CatalogItem
	fuzziness int
	minLen    int
	scoring   fuzzy.Options
}

func (b *bleveIndex) Search(query string, limit int) ([]Match, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = len(b.items)
	}
	if utf8.RuneCountInString(query) < b.minLen {
		return b.exactMatches(query, limit), nil
	}

	q := bleve.NewMatchQuery(query)
	q.SetField(keywordsField)
	q.SetFuzziness(b.fuzziness)

	res, err := b.idx.Search(bleve.NewSearchRequestOptions(q, limit, 0, false))
	if err != nil {
		return nil, fmt.Errorf("bleve 查询失败: %w", err)
	}
	if len(res.Hits) == 0 {
		return nil, nil
	}

	type ranked struct {
		ref   int
		rank  int
		score float64
	}
	hits := make([]ranked, 0, len(res.Hits))
	for rank, hit := range res.Hits {
		ref, err := strconv.Atoi(hit.ID)
		if err != nil || ref < 0 || ref >= len(b.items) {
			continue
		}
		hits = append(hits, ranked{ref: ref, rank: rank, score: b.keywordScore(b.items[ref], query)})
	}
	// 分数相同时保持 Bleve 的相关度顺序
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].score != hits[j].score {
			return hits[i].score < hits[j].score
		}
		return hits[i].rank < hits[j].rank
	})

	matches := make([]Match, 0, len(hits))
	for _, h := range hits {
		matches = append(matches, Match{Item: b.items[h.ref], Score: h.score})
	}
	return matches, nil
}

// keywordScore 取查询与条目各关键词 bitap 分数的最小值；都不命中时为 1。
func (b *bleveIndex) keywordScore(item model.CatalogItem, query string) float64 {
	best := 1.0
	for _, kw := range item.Keywords {
		if strings.TrimSpace(kw) == "" {
			continue
		}
		if ok, score := fuzzy.Score(kw, query, b.scoring); ok && score < best {
			best = score
		}
	}
	return best
}

// exactMatches 处理短于最小匹配长度的查询：只有与某个关键词完全相等（忽略大小写）的条目命中，分数为 0。
func (b *bleveIndex) exactMatches(query string, limit int) []Match {
	var matches []Match
	for _, item := range b.items {
		for _, kw := range item.Keywords {
			if strings.EqualFold(kw, query) {
				matches = append(matches, Match{Item: item, Score: 0})
				break
			}
		}
		if len(matches) == limit {
			break
		}
	}
	return matches
}
