package collector

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gocolly/colly/v2"
)

const (
	DefaultPrimaryTimeout = 30 * time.Second
	DefaultFeedTimeout    = 15 * time.Second

	browserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	feedUserAgent    = "Mozilla/5.0 (compatible; RSS Reader/1.0)"
)

// Article 是聚合后的统一文章记录
type Article struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	URL         string    `json:"url"`
	PublishDate time.Time `json:"publishDate"`
	Source      string    `json:"source"`
}

// Page 是一次抓取得到的原始响应
type Page struct {
	URL        string
	StatusCode int
	Body       []byte
}

// Profile 描述一次抓取使用的超时与请求头
type Profile struct {
	Timeout time.Duration
	Headers map[string]string
}

// BrowserProfile 模拟常见浏览器的请求头，用于抓取站点首页，降低被拦截的概率
func BrowserProfile(timeout time.Duration) Profile {
	return Profile{
		Timeout: timeout,
		Headers: map[string]string{
			"User-Agent":                browserUserAgent,
			"Accept":                    "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8",
			"Accept-Language":           "en-US,en;q=0.9",
			"Accept-Encoding":           "gzip",
			"DNT":                       "1",
			"Upgrade-Insecure-Requests": "1",
			"Cache-Control":             "no-cache",
		},
	}
}

// FeedProfile 用于抓取 RSS，只带一个简单的 User-Agent
func FeedProfile(timeout time.Duration) Profile {
	return Profile{
		Timeout: timeout,
		Headers: map[string]string{
			"User-Agent": feedUserAgent,
		},
	}
}

// FetchError 表示网络错误、超时或非 2xx 响应
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: status %d: %v", e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Fetcher 抽象一次 GET 抓取，便于在聚合逻辑中替换
type Fetcher interface {
	Fetch(ctx context.Context, url string, p Profile) (*Page, error)
}

// PageFetcher 每次抓取都新建一个 colly collector，不做重试
type PageFetcher struct{}

func NewPageFetcher() *PageFetcher {
	return &PageFetcher{}
}

func (f *PageFetcher) Fetch(ctx context.Context, url string, p Profile) (*Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, &FetchError{URL: url, Err: err}
	}

	c := colly.NewCollector(colly.AllowURLRevisit())
	if ua, ok := p.Headers["User-Agent"]; ok {
		c.UserAgent = ua
	}
	if p.Timeout > 0 {
		c.SetRequestTimeout(p.Timeout)
	}

	c.OnRequest(func(r *colly.Request) {
		for k, v := range p.Headers {
			r.Headers.Set(k, v)
		}
	})

	var page *Page
	c.OnResponse(func(r *colly.Response) {
		page = &Page{
			URL:        r.Request.URL.String(),
			StatusCode: r.StatusCode,
			Body:       r.Body,
		}
	})

	var status int
	c.OnError(func(r *colly.Response, err error) {
		if r != nil {
			status = r.StatusCode
		}
	})

	if err := c.Visit(url); err != nil {
		return nil, &FetchError{URL: url, StatusCode: status, Err: err}
	}
	if page == nil {
		return nil, &FetchError{URL: url, Err: errors.New("empty response")}
	}
	if page.StatusCode < http.StatusOK || page.StatusCode >= http.StatusMultipleChoices {
		return nil, &FetchError{URL: url, StatusCode: page.StatusCode, Err: errors.New(http.StatusText(page.StatusCode))}
	}
	return page, nil
}
