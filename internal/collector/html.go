package collector

import (
	"bytes"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
)

const (
	SourcePrimary = "primary"

	// 链接自身文字不足该长度时，改为从外层容器里找标题
	minAnchorTitleLen = 5
	// 标题长度需在 (minTitleLen, maxTitleLen) 之间：过短多为导航链接，过长多为整块文案
	minTitleLen = 10
	maxTitleLen = 200

	containerSelector = "article, .c-story-card, h1, h2, h3, h4, [data-analytics-link]"
	headingSelector   = "h1, h2, h3, h4"
)

// ParseError 表示文档无法解析
type ParseError struct {
	Source string
	Err    error
}

func (e *ParseError) Error() string {
	return "parse " + e.Source + ": " + e.Err.Error()
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// HTMLExtractor 依次执行规则，从首页 HTML 中提取带日期的文章链接
type HTMLExtractor struct {
	base   *url.URL
	rules  []Rule
	cutoff time.Time
}

func NewHTMLExtractor(base *url.URL, rules []Rule, cutoff time.Time) *HTMLExtractor {
	return &HTMLExtractor{base: base, rules: rules, cutoff: cutoff}
}

func (h *HTMLExtractor) Rules() []Rule {
	return h.rules
}

// Extract 输出顺序为规则顺序、规则内按文档顺序；去重与排序由上层完成。
// 没有匹配的元素时返回空列表。
func (h *HTMLExtractor) Extract(body []byte) ([]Article, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, &ParseError{Source: SourcePrimary, Err: err}
	}
	return h.extract(doc), nil
}

func (h *HTMLExtractor) extract(doc *goquery.Document) []Article {
	var out []Article
	for _, rule := range h.rules {
		doc.Find(rule.Selector()).Each(func(_ int, a *goquery.Selection) {
			if art, ok := h.candidate(a); ok {
				out = append(out, art)
			}
		})
	}
	return out
}

func (h *HTMLExtractor) candidate(a *goquery.Selection) (Article, bool) {
	href, ok := a.Attr("href")
	href = strings.TrimSpace(href)
	if !ok || href == "" {
		return Article{}, false
	}

	title := CleanTitle(candidateTitle(a))
	if n := utf8.RuneCountInString(title); n <= minTitleLen || n >= maxTitleLen {
		return Article{}, false
	}

	published, ok := ParseURLDate(href)
	if !ok || published.Before(h.cutoff) {
		return Article{}, false
	}

	abs, ok := h.normalize(href)
	if !ok {
		return Article{}, false
	}

	return Article{
		Title:       title,
		URL:         abs,
		PublishDate: published,
		Source:      SourcePrimary,
	}, true
}

// candidateTitle 优先使用链接文字；文字过短时找最近的文章类容器，
// 取其中第一个标题，没有标题则取容器文本的第一行
func candidateTitle(a *goquery.Selection) string {
	title := strings.TrimSpace(a.Text())
	if utf8.RuneCountInString(title) >= minAnchorTitleLen {
		return title
	}

	container := a.Closest(containerSelector)
	if container.Length() == 0 {
		return title
	}
	if heading := strings.TrimSpace(container.Find(headingSelector).First().Text()); heading != "" {
		return heading
	}
	text := strings.TrimSpace(container.Text())
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		text = text[:i]
	}
	return text
}

// normalize 把相对链接补全为站点绝对地址，并去掉 fragment
func (h *HTMLExtractor) normalize(href string) (string, bool) {
	ref, err := url.Parse(href)
	if err != nil {
		return "", false
	}
	abs := ref
	if h.base != nil {
		abs = h.base.ResolveReference(ref)
	}
	if !abs.IsAbs() {
		return "", false
	}
	abs.Fragment = ""
	return abs.String(), true
}

// CleanTitle 合并连续空白并去除首尾空白
func CleanTitle(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// RuleMatch 记录单条规则在页面上命中的元素数
type RuleMatch struct {
	Selector string `json:"selector"`
	Count    int    `json:"count"`
}

type YearLink struct {
	Href string `json:"href"`
	Text string `json:"text"`
}

// DebugReport 用于 /debug 页面，展示页面结构与各规则的命中情况
type DebugReport struct {
	Title           string         `json:"title"`
	HTMLLength      int            `json:"htmlLength"`
	HeadingCounts   map[string]int `json:"headingCounts"`
	LinkCount       int            `json:"linkCount"`
	ArticleCount    int            `json:"articleCount"`
	RuleMatches     []RuleMatch    `json:"ruleMatches"`
	YearLinksFound  int            `json:"yearLinksFound"`
	SampleYearLinks []YearLink     `json:"sampleYearLinks"`
	Extracted       int            `json:"extracted"`
	SampleHTML      string         `json:"sampleHTML"`
}

const (
	debugSampleLinks   = 10
	debugLinkTextRunes = 100
	debugSampleBytes   = 2000
)

// Inspect 统计页面结构，并给出每条规则的命中数
func (h *HTMLExtractor) Inspect(body []byte) (*DebugReport, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, &ParseError{Source: SourcePrimary, Err: err}
	}

	report := &DebugReport{
		Title:         strings.TrimSpace(doc.Find("title").First().Text()),
		HTMLLength:    len(body),
		HeadingCounts: make(map[string]int, 4),
		LinkCount:     doc.Find("a[href]").Length(),
		ArticleCount:  doc.Find("article").Length(),
		Extracted:     len(h.extract(doc)),
	}
	for _, tag := range []string{"h1", "h2", "h3", "h4"} {
		report.HeadingCounts[tag] = doc.Find(tag).Length()
	}

	years := make(map[int]struct{})
	for _, rule := range h.rules {
		years[rule.Year] = struct{}{}
		if n := doc.Find(rule.Selector()).Length(); n > 0 {
			report.RuleMatches = append(report.RuleMatches, RuleMatch{Selector: rule.Selector(), Count: n})
		}
	}

	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		if !containsYear(href, years) {
			return
		}
		report.YearLinksFound++
		if len(report.SampleYearLinks) < debugSampleLinks {
			report.SampleYearLinks = append(report.SampleYearLinks, YearLink{
				Href: href,
				Text: truncateRunes(strings.TrimSpace(a.Text()), debugLinkTextRunes),
			})
		}
	})

	sample := body
	if len(sample) > debugSampleBytes {
		sample = sample[:debugSampleBytes]
	}
	report.SampleHTML = string(sample)
	return report, nil
}

func containsYear(href string, years map[int]struct{}) bool {
	for y := range years {
		if strings.Contains(href, strconv.Itoa(y)) {
			return true
		}
	}
	return false
}

func truncateRunes(s string, limit int) string {
	rs := []rune(s)
	if len(rs) <= limit {
		return s
	}
	return string(rs[:limit])
}
