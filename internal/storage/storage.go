package storage

import (
	"context"
	"sync"
	"time"

	"github.com/LJTian/HeadlineHub/internal/collector"
	"github.com/LJTian/HeadlineHub/internal/metrics"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultCacheDuration = 30 * time.Minute

	runKey = "aggregate"
)

// RunFunc 执行一次聚合；返回空列表是合法结果
type RunFunc func(ctx context.Context) []collector.Article

// State 是缓存的整体快照，每次聚合整体替换，不做字段级修改
type State struct {
	Articles  []collector.Article
	FetchedAt time.Time
}

// Store 是进程内的文章缓存。
// 同一时刻最多只有一个聚合在执行，并发的过期读取共享这次执行的结果。
type Store struct {
	run      RunFunc
	duration time.Duration
	now      func() time.Time
	log      *zap.Logger
	metrics  *metrics.Metrics

	mu         sync.Mutex
	state      State
	generation uint64

	group singleflight.Group
}

type Option func(*Store)

// WithClock 替换时间源，便于测试过期逻辑
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func WithLogger(l *zap.Logger) Option {
	return func(s *Store) { s.log = l }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Store) { s.metrics = m }
}

func NewStore(run RunFunc, duration time.Duration, opts ...Option) *Store {
	if duration <= 0 {
		duration = DefaultCacheDuration
	}
	s := &Store{
		run:      run,
		duration: duration,
		now:      time.Now,
		log:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Duration 返回缓存有效期
func (s *Store) Duration() time.Duration {
	return s.duration
}

// Snapshot 返回当前缓存内容，不会触发聚合
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Get 缓存未过期时直接返回已存列表；否则执行（或等待正在执行的）聚合。
// 只有在调用方 ctx 结束时才返回错误，聚合本身不受调用方取消影响。
func (s *Store) Get(ctx context.Context) ([]collector.Article, error) {
	s.mu.Lock()
	if !s.expiredLocked() {
		articles := s.state.Articles
		s.mu.Unlock()
		s.metrics.CacheHit()
		s.log.Debug("using cached articles", zap.Int("count", len(articles)))
		return articles, nil
	}
	gen := s.generation
	s.mu.Unlock()

	s.log.Info("cache expired or empty, fetching fresh articles")
	return s.await(ctx, gen)
}

// ForceRefresh 清空缓存并立即触发一次新的聚合，正在执行的旧聚合结果不会写回缓存
func (s *Store) ForceRefresh(ctx context.Context) ([]collector.Article, error) {
	s.mu.Lock()
	s.state = State{}
	s.generation++
	gen := s.generation
	s.mu.Unlock()
	s.metrics.SetCached(0)

	s.group.Forget(runKey)
	s.log.Info("cache cleared by force refresh")
	return s.await(ctx, gen)
}

func (s *Store) await(ctx context.Context, gen uint64) ([]collector.Article, error) {
	runCtx := context.WithoutCancel(ctx)
	ch := s.group.DoChan(runKey, func() (any, error) {
		return s.refresh(runCtx, gen), nil
	})

	select {
	case res := <-ch:
		return res.Val.([]collector.Article), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *Store) refresh(ctx context.Context, gen uint64) []collector.Article {
	// 上一次聚合可能在本次进入前刚刚写入缓存
	s.mu.Lock()
	if gen == s.generation && !s.expiredLocked() {
		articles := s.state.Articles
		s.mu.Unlock()
		return articles
	}
	s.mu.Unlock()

	articles := s.run(ctx)
	if articles == nil {
		articles = []collector.Article{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation {
		// 执行期间发生了强制刷新，由新的那次聚合负责写入
		s.log.Info("discarding superseded aggregation result", zap.Int("count", len(articles)))
		return articles
	}
	s.state = State{Articles: articles, FetchedAt: s.now()}
	s.metrics.SetCached(len(articles))
	s.log.Info("cache updated", zap.Int("count", len(articles)))
	return articles
}

func (s *Store) expiredLocked() bool {
	if s.state.FetchedAt.IsZero() || len(s.state.Articles) == 0 {
		return true
	}
	return s.now().Sub(s.state.FetchedAt) > s.duration
}
