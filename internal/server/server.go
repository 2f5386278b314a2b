// Package server 把抓取能力暴露为 REST 接口。
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/John-Robertt/imdbscraper/internal/domain"
	"github.com/John-Robertt/imdbscraper/internal/logging"
	"github.com/John-Robertt/imdbscraper/internal/provider"
)

// HeaderRequestID 是请求关联 ID 的 header；客户端提供则沿用，否则生成 UUID。
const HeaderRequestID = "X-Request-ID"

// Scraper 是 REST 层依赖的抓取能力（*imdb.Scraper 实现该接口）。
type Scraper interface {
	SeriesByID(ctx context.Context, id string) (domain.Series, error)
	SeriesByName(ctx context.Context, name string) (domain.Series, error)
	Search(ctx context.Context, query string, limit int) ([]domain.SearchResult, error)
}

// Server 持有路由与依赖。
type Server struct {
	scraper     Scraper
	searchLimit int
	logger      *slog.Logger
	engine      *gin.Engine
}

// New 构造 Server。searchLimit 同时是 /search/name 的默认条数与上限。
func New(s Scraper, searchLimit int, logger *slog.Logger) *Server {
	if logger == nil {
		logger = logging.NewNop()
	}
	if searchLimit < 1 {
		searchLimit = 1
	}
	srv := &Server{scraper: s, searchLimit: searchLimit, logger: logging.NewComponentLogger(logger, "server")}

	r := gin.New()
	r.Use(srv.requestContext(), srv.recovery())
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	r.GET("/scrap/id/:imdbId", srv.handleSeriesByID)
	r.GET("/scrap/name/:name", srv.handleSeriesByName)
	r.GET("/search/name", srv.handleSearch)
	srv.engine = r
	return srv
}

// Handler 返回 http.Handler（便于测试与嵌入）。
func (s *Server) Handler() http.Handler { return s.engine }

// Run 监听 addr 直到 ctx 取消，然后在 shutdownTimeout 内优雅关闭。
func (s *Server) Run(ctx context.Context, addr string, shutdownTimeout time.Duration) error {
	hs := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", slog.String("addr", addr))
		errCh <- hs.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("http server shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := hs.Shutdown(sctx); err != nil {
		return fmt.Errorf("http server shutdown: %w", err)
	}
	return nil
}

func (s *Server) handleSeriesByID(c *gin.Context) {
	series, err := s.scraper.SeriesByID(c.Request.Context(), c.Param("imdbId"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, series)
}

func (s *Server) handleSeriesByName(c *gin.Context) {
	series, err := s.scraper.SeriesByName(c.Request.Context(), c.Param("name"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, series)
}

func (s *Server) handleSearch(c *gin.Context) {
	q := strings.TrimSpace(c.Query("q"))
	if q == "" {
		s.fail(c, &provider.Error{Kind: provider.KindInvalidInput, Stage: provider.StageSearch, Field: "q", Missing: true, Msg: "缺少查询参数 q"})
		return
	}
	limit := s.searchLimit
	if raw := strings.TrimSpace(c.Query("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			s.fail(c, &provider.Error{Kind: provider.KindInvalidInput, Stage: provider.StageSearch, Field: "limit", Raw: raw, Msg: "limit 必须是整数"})
			return
		}
		limit = min(n, s.searchLimit)
	}
	results, err := s.scraper.Search(c.Request.Context(), q, limit)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, results)
}

func (s *Server) fail(c *gin.Context, err error) {
	status, details := Describe(err)
	log := logging.FromContext(c.Request.Context(), s.logger)
	if status >= http.StatusInternalServerError {
		log.Error("request failed", slog.String("error_code", details.ErrorCode), logging.Error(err))
	} else {
		log.Info("request rejected", slog.String("error_code", details.ErrorCode), logging.Error(err))
	}
	c.AbortWithStatusJSON(status, details)
}

// requestContext 为每个请求挂上关联 ID 与请求级 logger，并在结束时记一条访问日志。
func (s *Server) requestContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := strings.TrimSpace(c.GetHeader(HeaderRequestID))
		if rid == "" {
			rid = uuid.NewString()
		}
		c.Header(HeaderRequestID, rid)

		ctx := logging.WithLogger(c.Request.Context(), s.logger)
		ctx = logging.WithRequestID(ctx, rid)
		c.Request = c.Request.WithContext(ctx)

		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		level := slog.LevelInfo
		switch {
		case status >= http.StatusInternalServerError:
			level = slog.LevelError
		case status >= http.StatusBadRequest:
			level = slog.LevelWarn
		}
		logging.FromContext(ctx, s.logger).LogAttrs(ctx, level, "http request",
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
			slog.String("client_ip", c.ClientIP()),
			slog.Int("status", status),
			slog.Duration("latency", time.Since(start)),
		)
	}
}

func (s *Server) recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		err := fmt.Errorf("panic: %v", recovered)
		logging.FromContext(c.Request.Context(), s.logger).Error("handler panic", logging.Error(err))
		status, details := Describe(err)
		c.AbortWithStatusJSON(status, details)
	})
}
