package collector

import (
	"bytes"
	"path"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
)

// FeedSource 是一个备用 RSS/Atom 源
type FeedSource struct {
	Name string
	URL  string
}

// NewFeedSource 以 URL 最后一段路径作为源名称，例如 .../rss/front-page -> front-page
func NewFeedSource(feedURL string) FeedSource {
	name := path.Base(strings.TrimRight(feedURL, "/"))
	if name == "." || name == "/" || name == "" {
		name = feedURL
	}
	return FeedSource{Name: name, URL: feedURL}
}

// Tag 返回写入 Article.Source 的来源标识
func (s FeedSource) Tag() string {
	return "feed:" + s.Name
}

// FeedExtractor 直接读取 feed 条目的结构化字段，不做启发式处理
type FeedExtractor struct {
	cutoff time.Time
}

func NewFeedExtractor(cutoff time.Time) *FeedExtractor {
	return &FeedExtractor{cutoff: cutoff}
}

// Extract 解析 RSS/Atom 文档。缺少标题或链接、日期无法解析、早于 cutoff 的条目直接跳过。
func (f *FeedExtractor) Extract(src FeedSource, body []byte) ([]Article, error) {
	feed, err := gofeed.NewParser().Parse(bytes.NewReader(body))
	if err != nil {
		return nil, &ParseError{Source: src.Tag(), Err: err}
	}

	out := make([]Article, 0, len(feed.Items))
	for _, item := range feed.Items {
		if item == nil {
			continue
		}
		title := CleanTitle(item.Title)
		link := strings.TrimSpace(item.Link)
		if title == "" || link == "" {
			continue
		}

		published, ok := itemDate(item)
		if !ok || published.Before(f.cutoff) {
			continue
		}

		out = append(out, Article{
			Title:       title,
			URL:         link,
			PublishDate: published,
			Source:      src.Tag(),
		})
	}
	return out, nil
}

// itemDate 优先使用发布时间；条目完全没有发布时间时（常见于 Atom）退回更新时间
func itemDate(item *gofeed.Item) (time.Time, bool) {
	if item.PublishedParsed != nil {
		return *item.PublishedParsed, true
	}
	if strings.TrimSpace(item.Published) == "" && item.UpdatedParsed != nil {
		return *item.UpdatedParsed, true
	}
	return time.Time{}, false
}
