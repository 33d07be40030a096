package collector

import (
	"regexp"
	"strconv"
	"time"
)

var urlDatePattern = regexp.MustCompile(`/(\d{4})/(\d{1,2})/(\d{1,2})/`)

// ParseURLDate 从形如 /2024/3/15/ 的路径片段解析发布日期（UTC 零点）。
// 没有匹配或日期非法（例如 2/30）时返回 false。
func ParseURLDate(rawURL string) (time.Time, bool) {
	m := urlDatePattern.FindStringSubmatch(rawURL)
	if m == nil {
		return time.Time{}, false
	}
	year, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])
	day, _ := strconv.Atoi(m[3])
	if month < 1 || month > 12 || day < 1 {
		return time.Time{}, false
	}

	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	// time.Date 会把 2/30 规范成 3/2，这里视为非法
	if t.Day() != day || int(t.Month()) != month {
		return time.Time{}, false
	}
	return t, true
}
