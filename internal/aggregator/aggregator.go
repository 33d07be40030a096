package aggregator

import (
	"context"
	"errors"
	"time"

	"github.com/LJTian/HeadlineHub/internal/collector"
	"github.com/LJTian/HeadlineHub/internal/metrics"
	"github.com/LJTian/HeadlineHub/internal/processor"
	"go.uber.org/zap"
)

// DefaultThreshold 首页提取结果少于该数量时才去尝试备用 RSS
const DefaultThreshold = 10

type Options struct {
	SiteURL        string
	Feeds          []collector.FeedSource
	Threshold      int
	Cutoff         time.Time
	PrimaryProfile collector.Profile
	FeedProfile    collector.Profile
}

// Aggregator 执行一次完整的抓取 -> 提取 -> 合并 -> 去重 -> 排序
type Aggregator struct {
	opts    Options
	fetcher collector.Fetcher
	html    *collector.HTMLExtractor
	feed    *collector.FeedExtractor
	log     *zap.Logger
	metrics *metrics.Metrics
}

func New(opts Options, fetcher collector.Fetcher, html *collector.HTMLExtractor, feed *collector.FeedExtractor, log *zap.Logger, m *metrics.Metrics) *Aggregator {
	if opts.Threshold <= 0 {
		opts.Threshold = DefaultThreshold
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Aggregator{
		opts:    opts,
		fetcher: fetcher,
		html:    html,
		feed:    feed,
		log:     log,
		metrics: m,
	}
}

// Run 永不返回错误：任何单个来源失败都只会让该来源结果为空，空列表也是合法结果
func (a *Aggregator) Run(ctx context.Context) []collector.Article {
	start := time.Now()
	a.log.Info("start aggregation run", zap.String("url", a.opts.SiteURL))

	primary := processor.Dedupe(a.runPrimary(ctx))

	merged := primary
	if len(primary) < a.opts.Threshold {
		a.log.Info("primary extraction below threshold, trying feeds",
			zap.Int("count", len(primary)),
			zap.Int("threshold", a.opts.Threshold),
			zap.Int("feeds", len(a.opts.Feeds)))
		for _, src := range a.opts.Feeds {
			merged = append(merged, a.runFeed(ctx, src)...)
		}
	}

	out := processor.Process(merged, a.opts.Cutoff)

	a.metrics.ObserveRun(time.Since(start))
	a.log.Info("aggregation run done",
		zap.Int("primary", len(primary)),
		zap.Int("count", len(out)),
		zap.Duration("duration", time.Since(start)))
	return out
}

// Inspect 抓取首页并返回结构诊断信息，供 /debug 使用
func (a *Aggregator) Inspect(ctx context.Context) (*collector.Page, *collector.DebugReport, error) {
	page, err := a.fetcher.Fetch(ctx, a.opts.SiteURL, a.opts.PrimaryProfile)
	if err != nil {
		return nil, nil, err
	}
	report, err := a.html.Inspect(page.Body)
	if err != nil {
		return page, nil, err
	}
	return page, report, nil
}

func (a *Aggregator) runPrimary(ctx context.Context) []collector.Article {
	page, err := a.fetcher.Fetch(ctx, a.opts.SiteURL, a.opts.PrimaryProfile)
	if err != nil {
		a.sourceFailed(collector.SourcePrimary, err)
		return nil
	}
	a.log.Debug("fetched primary page", zap.String("url", page.URL), zap.Int("bytes", len(page.Body)))

	items, err := a.html.Extract(page.Body)
	if err != nil {
		a.sourceFailed(collector.SourcePrimary, err)
		return nil
	}
	if len(items) == 0 {
		a.log.Warn("no articles extracted from primary page, markup may have changed or content is rendered client side",
			zap.String("url", a.opts.SiteURL))
	}
	a.metrics.AddArticles(collector.SourcePrimary, len(items))
	return items
}

func (a *Aggregator) runFeed(ctx context.Context, src collector.FeedSource) []collector.Article {
	page, err := a.fetcher.Fetch(ctx, src.URL, a.opts.FeedProfile)
	if err != nil {
		a.sourceFailed(src.Tag(), err)
		return nil
	}
	items, err := a.feed.Extract(src, page.Body)
	if err != nil {
		a.sourceFailed(src.Tag(), err)
		return nil
	}
	a.log.Info("feed extracted", zap.String("source", src.Tag()), zap.Int("count", len(items)))
	a.metrics.AddArticles(src.Tag(), len(items))
	return items
}

func (a *Aggregator) sourceFailed(source string, err error) {
	kind := "fetch"
	var perr *collector.ParseError
	if errors.As(err, &perr) {
		kind = "parse"
	}
	a.log.Warn("source failed", zap.String("source", source), zap.String("kind", kind), zap.Error(err))
	a.metrics.SourceFailed(source, kind)
}
