package collector

import (
	"fmt"
	"time"
)

// MatchKind 决定规则如何匹配文章链接
type MatchKind int

const (
	// MatchContains: href 中包含 /YYYY/
	MatchContains MatchKind = iota
	// MatchPrefix: href 以 /YYYY/ 开头（站内相对链接）
	MatchPrefix
	// MatchAnalytics: data-analytics-link 容器下的任意链接
	MatchAnalytics
)

// Rule 是一条声明式的选择器规则。新增年份或结构变体只需要增加规则数据。
type Rule struct {
	Scope string
	Match MatchKind
	Year  int
}

// Selector 把规则转换成 CSS 选择器
func (r Rule) Selector() string {
	var sel string
	switch r.Match {
	case MatchPrefix:
		sel = fmt.Sprintf(`a[href^="/%d/"]`, r.Year)
	case MatchAnalytics:
		sel = fmt.Sprintf(`[data-analytics-link*="%d"] a`, r.Year)
	default:
		sel = fmt.Sprintf(`a[href*="/%d/"]`, r.Year)
	}
	if r.Scope != "" {
		sel = r.Scope + " " + sel
	}
	return sel
}

// scopes 依次为文章容器、故事卡片、各级标题
var scopes = []string{"article", ".c-story-card", "h1", "h2", "h3", "h4"}

// DefaultRules 按固定的级联顺序生成规则：
// 全页包含匹配 -> 前缀匹配 -> analytics 容器 -> 各个结构容器下的包含匹配
func DefaultRules(years []int) []Rule {
	rules := make([]Rule, 0, len(years)*(3+len(scopes)))
	for _, kind := range []MatchKind{MatchContains, MatchPrefix, MatchAnalytics} {
		for _, y := range years {
			rules = append(rules, Rule{Match: kind, Year: y})
		}
	}
	for _, scope := range scopes {
		for _, y := range years {
			rules = append(rules, Rule{Scope: scope, Match: MatchContains, Year: y})
		}
	}
	return rules
}

// RecentYears 返回从 now 所在年份倒序到 cutoff 所在年份的列表
func RecentYears(cutoff, now time.Time) []int {
	var years []int
	for y := now.Year(); y >= cutoff.Year(); y-- {
		years = append(years, y)
	}
	return years
}
