package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
)

const (
	DefaultSiteURL = "https://www.theverge.com/"
	// 首页提取结果少于该数量时尝试备用 RSS
	FallbackThreshold = 10
)

// CutoffDate 早于该日期的文章一律丢弃
var CutoffDate = time.Date(2022, time.January, 1, 0, 0, 0, 0, time.UTC)

// FallbackFeeds 按顺序尝试的备用 RSS 源
var FallbackFeeds = []string{
	"https://www.theverge.com/rss/index.xml",
	"https://www.theverge.com/rss/front-page",
	"https://feeds.feedburner.com/TheVerge",
}

type Config struct {
	AppPort  string
	LogLevel string

	SiteURL        string
	FeedURLs       []string
	CacheDuration  time.Duration
	PrimaryTimeout time.Duration
	FeedTimeout    time.Duration
	Cutoff         time.Time
	Threshold      int
}

func Load() *Config {
	// .env 可选，不存在时忽略
	_ = godotenv.Load()

	cfg := &Config{
		AppPort:        getEnv("PORT", "3000"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		SiteURL:        getEnv("SITE_URL", DefaultSiteURL),
		FeedURLs:       append([]string(nil), FallbackFeeds...),
		CacheDuration:  getDuration("CACHE_DURATION", 30*time.Minute),
		PrimaryTimeout: getDuration("PRIMARY_TIMEOUT", 30*time.Second),
		FeedTimeout:    getDuration("FEED_TIMEOUT", 15*time.Second),
		Cutoff:         CutoffDate,
		Threshold:      FallbackThreshold,
	}
	return cfg
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// getDuration 解析失败或非正数时使用默认值
func getDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return def
	}
	return d
}
