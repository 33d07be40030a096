package collector

import (
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const frontPage = `<html><head><title>The Verge</title></head><body>
<h2><a href="/2024/3/15/first-story">Apple announces   a brand
 new thing today</a></h2>
<article class="c-story-card">
  <h3>Container heading wins for short anchors</h3>
  <a href="/2024/3/14/second-story">Read</a>
</article>
<a href="https://www.theverge.com/2023/5/1/absolute-story#comments">An absolute link to a story from 2023</a>
<a href="/2024/3/15/first-story">Duplicate link with different text here</a>
<a href="/2024/tag/undated">This anchor has no day in its path</a>
<a href="/2024/3/16/short">Too short</a>
<a href="/about">About us page link text</a>
</body></html>`

var (
	testCutoff = time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC)
	testBase   = mustParseURL("https://www.theverge.com")
)

func mustParseURL(s string) *url.URL {
	u, err := url.Parse(s)
	if err != nil {
		panic(err)
	}
	return u
}

func TestHTMLExtractorRuleAndDocumentOrder(t *testing.T) {
	rules := []Rule{{Match: MatchContains, Year: 2024}, {Match: MatchContains, Year: 2023}}
	h := NewHTMLExtractor(testBase, rules, testCutoff)

	got, err := h.Extract([]byte(frontPage))
	require.NoError(t, err)
	require.Len(t, got, 4)

	assert.Equal(t, Article{
		Title:       "Apple announces a brand new thing today",
		URL:         "https://www.theverge.com/2024/3/15/first-story",
		PublishDate: time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC),
		Source:      SourcePrimary,
	}, got[0])

	assert.Equal(t, "Container heading wins for short anchors", got[1].Title)
	assert.Equal(t, "https://www.theverge.com/2024/3/14/second-story", got[1].URL)

	// 重复 URL 在提取阶段保留，去重交给上层
	assert.Equal(t, "Duplicate link with different text here", got[2].Title)
	assert.Equal(t, got[0].URL, got[2].URL)

	assert.Equal(t, "https://www.theverge.com/2023/5/1/absolute-story", got[3].URL)
	assert.Equal(t, time.Date(2023, 5, 1, 0, 0, 0, 0, time.UTC), got[3].PublishDate)
}

func TestHTMLExtractorCutoff(t *testing.T) {
	cutoff := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	h := NewHTMLExtractor(testBase, []Rule{{Match: MatchContains, Year: 2023}}, cutoff)

	got, err := h.Extract([]byte(frontPage))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestHTMLExtractorNoMatchesIsEmpty(t *testing.T) {
	h := NewHTMLExtractor(testBase, DefaultRules([]int{2025, 2024}), testCutoff)

	got, err := h.Extract([]byte(`<html><body><p>nothing to see</p></body></html>`))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestHTMLExtractorContainerFirstLine(t *testing.T) {
	page := `<div data-analytics-link="2024-home">
  Headline taken from the first text line
  second line <a href="/2024/1/2/story">Go</a>
</div>`
	h := NewHTMLExtractor(testBase, []Rule{{Match: MatchAnalytics, Year: 2024}}, testCutoff)

	got, err := h.Extract([]byte(page))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Headline taken from the first text line", got[0].Title)
}

func TestHTMLExtractorTitleBounds(t *testing.T) {
	long := make([]byte, 0, 250)
	for len(long) < 250 {
		long = append(long, "word "...)
	}
	page := `<a href="/2024/1/2/a">exactly10!</a><a href="/2024/1/3/b">` + string(long) + `</a>`
	h := NewHTMLExtractor(testBase, []Rule{{Match: MatchPrefix, Year: 2024}}, testCutoff)

	got, err := h.Extract([]byte(page))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestHTMLExtractorInspect(t *testing.T) {
	h := NewHTMLExtractor(testBase, []Rule{{Match: MatchContains, Year: 2024}, {Match: MatchPrefix, Year: 2022}}, testCutoff)

	report, err := h.Inspect([]byte(frontPage))
	require.NoError(t, err)

	assert.Equal(t, "The Verge", report.Title)
	assert.Equal(t, len(frontPage), report.HTMLLength)
	assert.Equal(t, 1, report.HeadingCounts["h2"])
	assert.Equal(t, 1, report.HeadingCounts["h3"])
	assert.Equal(t, 7, report.LinkCount)
	assert.Equal(t, 1, report.ArticleCount)
	assert.Equal(t, []RuleMatch{{Selector: `a[href*="/2024/"]`, Count: 5}}, report.RuleMatches)
	assert.Equal(t, 5, report.YearLinksFound)
	assert.Len(t, report.SampleYearLinks, 5)
	assert.Equal(t, 3, report.Extracted)
	assert.Equal(t, frontPage, report.SampleHTML)
}

func TestCleanTitle(t *testing.T) {
	assert.Equal(t, "a b c", CleanTitle("  a \n\t b   c "))
	assert.Equal(t, "", CleanTitle(" \n "))
}
