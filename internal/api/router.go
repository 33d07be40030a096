package api

import (
	"context"
	"embed"
	"html/template"
	"net/http"
	"sort"
	"time"

	"github.com/LJTian/HeadlineHub/internal/collector"
	"github.com/LJTian/HeadlineHub/internal/storage"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

//go:embed templates/*.html
var templateFS embed.FS

const (
	isoMillis   = "2006-01-02T15:04:05.000Z07:00"
	displayTime = "Jan 2, 2006 15:04:05 MST"
	displayDate = "January 2, 2006"
)

// ArticleCache 是页面与 API 依赖的缓存能力
type ArticleCache interface {
	Get(ctx context.Context) ([]collector.Article, error)
	ForceRefresh(ctx context.Context) ([]collector.Article, error)
	Snapshot() storage.State
	Duration() time.Duration
}

// Inspector 抓取首页并给出结构诊断
type Inspector interface {
	Inspect(ctx context.Context) (*collector.Page, *collector.DebugReport, error)
}

type Server struct {
	cache     ArticleCache
	inspector Inspector
	siteName  string
	cutoff    time.Time
	log       *zap.Logger
	metrics   http.Handler
}

type Option func(*Server)

// WithMetricsHandler 注册 /metrics
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) { s.metrics = h }
}

func NewServer(cache ArticleCache, inspector Inspector, siteName string, cutoff time.Time, log *zap.Logger, opts ...Option) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{
		cache:     cache,
		inspector: inspector,
		siteName:  siteName,
		cutoff:    cutoff,
		log:       log,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Templates 解析内嵌的页面模板
func Templates() *template.Template {
	return template.Must(template.ParseFS(templateFS, "templates/*.html"))
}

// NewEngine 构建带日志与 panic 恢复中间件的 gin engine，并注册全部路由
func (s *Server) NewEngine() *gin.Engine {
	r := gin.New()
	r.Use(LoggerMiddleware(s.log), RecoveryMiddleware(s.log))
	r.SetHTMLTemplate(Templates())
	s.RegisterRoutes(r)
	return r
}

func (s *Server) RegisterRoutes(r *gin.Engine) {
	r.GET("/", s.index)
	r.GET("/health", s.health)
	r.GET("/refresh", s.refresh)
	r.GET("/debug", s.debug)

	api := r.Group("/api")
	{
		api.GET("/articles", s.listArticles)
	}

	if s.metrics != nil {
		r.GET("/metrics", gin.WrapH(s.metrics))
	}
}

func (s *Server) listArticles(c *gin.Context) {
	articles, err := s.cache.Get(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "Failed to fetch articles",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"count":    len(articles),
		"articles": articles,
	})
}

func (s *Server) refresh(c *gin.Context) {
	articles, err := s.cache.ForceRefresh(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Articles refreshed",
		"count":   len(articles),
	})
}

// health 只读取当前缓存状态，不触发聚合
func (s *Server) health(c *gin.Context) {
	snap := s.cache.Snapshot()

	var lastFetch any
	if !snap.FetchedAt.IsZero() {
		lastFetch = snap.FetchedAt.UTC().Format(isoMillis)
	}

	c.JSON(http.StatusOK, gin.H{
		"status":        "OK",
		"timestamp":     time.Now().UTC().Format(isoMillis),
		"articlesCount": len(snap.Articles),
		"lastFetch":     lastFetch,
	})
}

func (s *Server) debug(c *gin.Context) {
	page, report, err := s.inspector.Inspect(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": page.StatusCode,
		"report": report,
	})
}

type articleView struct {
	Title string
	URL   string
	Year  int
	Date  string
}

func (s *Server) index(c *gin.Context) {
	articles, err := s.cache.Get(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		c.HTML(http.StatusInternalServerError, "error.html", gin.H{"Error": err.Error()})
		return
	}

	views := make([]articleView, 0, len(articles))
	seenYears := make(map[int]struct{})
	years := make([]int, 0, 4)
	for _, a := range articles {
		y := a.PublishDate.Year()
		if _, ok := seenYears[y]; !ok {
			seenYears[y] = struct{}{}
			years = append(years, y)
		}
		views = append(views, articleView{
			Title: a.Title,
			URL:   a.URL,
			Year:  y,
			Date:  a.PublishDate.Format(displayDate),
		})
	}
	sort.Sort(sort.Reverse(sort.IntSlice(years)))

	expires := "N/A"
	if snap := s.cache.Snapshot(); !snap.FetchedAt.IsZero() {
		expires = snap.FetchedAt.Add(s.cache.Duration()).Format(displayTime)
	}

	c.HTML(http.StatusOK, "index.html", gin.H{
		"SiteName":     s.siteName,
		"Count":        len(articles),
		"Cutoff":       s.cutoff.Format(displayDate),
		"UpdatedAt":    time.Now().Format(displayTime),
		"ExpiresAt":    expires,
		"Years":        years,
		"Articles":     views,
		"ReloadMillis": s.cache.Duration().Milliseconds(),
	})
}
