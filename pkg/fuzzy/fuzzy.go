// Package fuzzy 实现基于 bitap 的近似字符串匹配，对多值字段的记录打分并排序。
//
// 分数越低越好：与某个值（忽略大小写）完全相等记为 0，其余命中的分数在 (0, 1] 之间，
// 由编辑错误数和命中位置偏移共同决定。记录的分数是其所有命中值分数的乘积（按字段长度归一）。
package fuzzy

import (
	"math"
	"sort"
	"strings"
)

// Options 控制匹配的容错程度。
type Options struct {
	// Threshold 是命中的最大分数，0 要求完全匹配，1 匹配任何内容。
	Threshold float64
	// Location 是期望命中的位置，Distance 决定偏离该位置的惩罚力度。
	Location int
	Distance int
	// MinMatchCharLength 要求至少有这么多连续字符被命中。
	MinMatchCharLength int
	IgnoreLocation     bool
	FindAllMatches     bool
	IsCaseSensitive    bool
	// IgnoreFieldNorm 为 true 时不按值的词数归一。
	IgnoreFieldNorm bool
}

// DefaultOptions 返回默认配置。
func DefaultOptions() Options {
	return Options{
		Threshold:          0.6,
		Location:           0,
		Distance:           100,
		MinMatchCharLength: 1,
	}
}

// Result 是一条命中记录。
type Result struct {
	// Ref 是记录在建索引时的下标。
	Ref   int
	Score float64
}

type entry struct {
	text  string
	runes []rune
	norm  float64
}

// Index 是不可变的记录集合，可以被多个 goroutine 并发查询。
type Index struct {
	opts    Options
	records [][]entry
}

// NewIndex 为每条记录的多个值建立索引，空白值会被忽略。
func NewIndex(records [][]string, opts Options) *Index {
	idx := &Index{
		opts:    opts,
		records: make([][]entry, len(records)),
	}
	for i, values := range records {
		entries := make([]entry, 0, len(values))
		for _, v := range values {
			if strings.TrimSpace(v) == "" {
				continue
			}
			text := v
			if !opts.IsCaseSensitive {
				text = strings.ToLower(v)
			}
			entries = append(entries, entry{
				text:  text,
				runes: []rune(text),
				norm:  fieldNorm(v),
			})
		}
		idx.records[i] = entries
	}
	return idx
}

// Len 返回记录数。
func (x *Index) Len() int {
	return len(x.records)
}

// Search 返回按分数升序排列的命中记录，分数相同按记录下标升序；limit <= 0 表示不限制。
func (x *Index) Search(pattern string, limit int) []Result {
	if strings.TrimSpace(pattern) == "" {
		return nil
	}
	s := newSearcher(pattern, x.opts)

	var results []Result
	for ref, entries := range x.records {
		matched := false
		total := 1.0
		for _, e := range entries {
			ok, score := s.searchIn(e)
			if !ok {
				continue
			}
			matched = true
			norm := e.norm
			if x.opts.IgnoreFieldNorm {
				norm = 1
			}
			total *= math.Pow(score, norm)
		}
		if matched {
			results = append(results, Result{Ref: ref, Score: total})
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score < results[j].Score
		}
		return results[i].Ref < results[j].Ref
	})
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results
}

// Score 对单个文本打分，便于调试和测试。
func Score(text, pattern string, opts Options) (bool, float64) {
	if strings.TrimSpace(pattern) == "" {
		return false, 1
	}
	if !opts.IsCaseSensitive {
		text = strings.ToLower(text)
	}
	return newSearcher(pattern, opts).searchIn(entry{text: text, runes: []rune(text)})
}

type searcher struct {
	pattern string
	chunks  []chunk
	opts    Options
}

func newSearcher(pattern string, opts Options) *searcher {
	if !opts.IsCaseSensitive {
		pattern = strings.ToLower(pattern)
	}
	s := &searcher{pattern: pattern, opts: opts}

	runes := []rune(pattern)
	add := func(p []rune, startIndex int) {
		s.chunks = append(s.chunks, chunk{
			pattern:    p,
			alphabet:   patternAlphabet(p),
			startIndex: startIndex,
		})
	}

	n := len(runes)
	if n <= maxBits {
		add(runes, 0)
		return s
	}
	// 超长模式按 32 个字符切片，尾部不足的部分与前一片重叠补齐
	remainder := n % maxBits
	end := n - remainder
	for i := 0; i < end; i += maxBits {
		add(runes[i:i+maxBits], i)
	}
	if remainder > 0 {
		startIndex := n - maxBits
		add(runes[startIndex:], startIndex)
	}
	return s
}

func (s *searcher) searchIn(e entry) (bool, float64) {
	if s.pattern == e.text {
		return true, 0
	}

	hasMatches := false
	total := 0.0
	for _, c := range s.chunks {
		ok, score := bitapSearch(e.runes, c.pattern, c.alphabet, s.opts.Location+c.startIndex, s.opts)
		if ok {
			hasMatches = true
		}
		total += score
	}
	if !hasMatches {
		return false, 1
	}
	return true, total / float64(len(s.chunks))
}

// fieldNorm = 1/sqrt(词数)，保留三位小数；词数越多，该值的命中对记录分数的贡献越弱。
func fieldNorm(value string) float64 {
	tokens := len(strings.FieldsFunc(value, func(r rune) bool { return r == ' ' }))
	if tokens == 0 {
		return 1
	}
	return math.Round(1/math.Sqrt(float64(tokens))*1000) / 1000
}
