package processor

import (
	"crypto/sha1"
	"encoding/hex"
	"sort"
	"strings"
	"time"

	"github.com/LJTian/HeadlineHub/internal/collector"
)

// Dedupe 以 URL 为键去重，保留首次出现的记录并保持原有顺序，同时补齐 ID
func Dedupe(items []collector.Article) []collector.Article {
	out := make([]collector.Article, 0, len(items))
	seen := make(map[string]struct{}, len(items))

	for _, it := range items {
		id := hashURL(it.URL)
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}

		it.ID = id
		it.Title = strings.TrimSpace(it.Title)
		out = append(out, it)
	}

	return out
}

// FilterSince 丢弃发布日期早于 cutoff 的记录
func FilterSince(items []collector.Article, cutoff time.Time) []collector.Article {
	out := items[:0:0]
	for _, it := range items {
		if it.PublishDate.Before(cutoff) {
			continue
		}
		out = append(out, it)
	}
	return out
}

// SortLatest 按发布日期倒序排列；日期相同时保持原有相对顺序
func SortLatest(items []collector.Article) {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].PublishDate.After(items[j].PublishDate)
	})
}

// Process 依次执行去重、日期过滤与排序，返回新的切片
func Process(items []collector.Article, cutoff time.Time) []collector.Article {
	out := FilterSince(Dedupe(items), cutoff)
	SortLatest(out)
	return out
}

func hashURL(url string) string {
	h := sha1.New()
	h.Write([]byte(url))
	return hex.EncodeToString(h.Sum(nil))
}
