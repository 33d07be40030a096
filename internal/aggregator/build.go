package aggregator

import (
	"fmt"
	"net/url"
	"time"

	"github.com/LJTian/HeadlineHub/internal/collector"
	"github.com/LJTian/HeadlineHub/internal/config"
	"github.com/LJTian/HeadlineHub/internal/metrics"
	"go.uber.org/zap"
)

// FromConfig 按配置装配抓取器、规则与提取器
func FromConfig(cfg *config.Config, log *zap.Logger, m *metrics.Metrics) (*Aggregator, error) {
	base, err := url.Parse(cfg.SiteURL)
	if err != nil {
		return nil, fmt.Errorf("aggregator: parse site url %q: %w", cfg.SiteURL, err)
	}
	if !base.IsAbs() {
		return nil, fmt.Errorf("aggregator: site url %q is not absolute", cfg.SiteURL)
	}

	feeds := make([]collector.FeedSource, 0, len(cfg.FeedURLs))
	for _, u := range cfg.FeedURLs {
		feeds = append(feeds, collector.NewFeedSource(u))
	}

	rules := collector.DefaultRules(collector.RecentYears(cfg.Cutoff, time.Now()))

	return New(Options{
		SiteURL:        cfg.SiteURL,
		Feeds:          feeds,
		Threshold:      cfg.Threshold,
		Cutoff:         cfg.Cutoff,
		PrimaryProfile: collector.BrowserProfile(cfg.PrimaryTimeout),
		FeedProfile:    collector.FeedProfile(cfg.FeedTimeout),
	},
		collector.NewPageFetcher(),
		collector.NewHTMLExtractor(base, rules, cfg.Cutoff),
		collector.NewFeedExtractor(cfg.Cutoff),
		log,
		m,
	), nil
}
