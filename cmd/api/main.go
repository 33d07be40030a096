package main

import (
	"log"
	"net/url"
	"strings"

	"github.com/LJTian/HeadlineHub/internal/aggregator"
	"github.com/LJTian/HeadlineHub/internal/api"
	"github.com/LJTian/HeadlineHub/internal/config"
	"github.com/LJTian/HeadlineHub/internal/logger"
	"github.com/LJTian/HeadlineHub/internal/metrics"
	"github.com/LJTian/HeadlineHub/internal/storage"
	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()

	zl, err := logger.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("init logger failed: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	zl.Info("config loaded",
		zap.String("port", cfg.AppPort),
		zap.String("site", cfg.SiteURL),
		zap.Duration("cache_duration", cfg.CacheDuration),
		zap.Strings("feeds", cfg.FeedURLs))

	m := metrics.New()

	agg, err := aggregator.FromConfig(cfg, zl.Named("aggregator"), m)
	if err != nil {
		zl.Fatal("init aggregator failed", zap.Error(err))
	}

	// 不做后台定时任务：首次请求到来且缓存过期时才触发聚合
	store := storage.NewStore(agg.Run, cfg.CacheDuration,
		storage.WithLogger(zl.Named("cache")),
		storage.WithMetrics(m),
	)

	server := api.NewServer(store, agg, siteName(cfg.SiteURL), cfg.Cutoff, zl.Named("http"),
		api.WithMetricsHandler(m.Handler()),
	)
	r := server.NewEngine()

	addr := ":" + cfg.AppPort
	zl.Info("starting api server, initial article fetch happens on first request",
		zap.String("addr", addr),
		zap.Strings("endpoints", []string{"/", "/api/articles", "/refresh", "/health", "/debug", "/metrics"}))
	if err := r.Run(addr); err != nil {
		zl.Fatal("server exit", zap.Error(err))
	}
}

// siteName 页面标题中的站点名：theverge.com 显示为 The Verge，其它站点直接使用域名
func siteName(siteURL string) string {
	u, err := url.Parse(siteURL)
	if err != nil || u.Host == "" {
		return siteURL
	}
	host := strings.TrimPrefix(u.Hostname(), "www.")
	if host == "theverge.com" {
		return "The Verge"
	}
	return host
}
