package main

import (
	"context"
	"encoding/json"
	"log"
	"os"

	"github.com/LJTian/HeadlineHub/internal/aggregator"
	"github.com/LJTian/HeadlineHub/internal/config"
	"github.com/LJTian/HeadlineHub/internal/logger"
	"go.uber.org/zap"
)

// 只执行一轮聚合并把结果以 JSON 输出到 stdout，适合手动排查抓取情况
func main() {
	cfg := config.Load()

	zl, err := logger.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("init logger failed: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	agg, err := aggregator.FromConfig(cfg, zl, nil)
	if err != nil {
		zl.Fatal("init aggregator failed", zap.Error(err))
	}

	articles := agg.Run(context.Background())

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(articles); err != nil {
		zl.Fatal("encode articles failed", zap.Error(err))
	}
}
