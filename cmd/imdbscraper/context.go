package main

import (
	"log/slog"
	"net/http"
	"sync"

	"github.com/John-Robertt/imdbscraper/internal/config"
	"github.com/John-Robertt/imdbscraper/internal/infra/httpx"
	"github.com/John-Robertt/imdbscraper/internal/logging"
	"github.com/John-Robertt/imdbscraper/internal/provider"
	"github.com/John-Robertt/imdbscraper/internal/provider/imdb"
)

// commandContext 在子命令之间共享配置与依赖的惰性构造。
type commandContext struct {
	getwd  func() (string, error)
	getenv func(string) string

	cli config.CLIArgs

	once    sync.Once
	cfg     config.EffectiveConfig
	logger  *slog.Logger
	loadErr error
}

func newCommandContext(getwd func() (string, error), getenv func(string) string) *commandContext {
	return &commandContext{getwd: getwd, getenv: getenv}
}

// ensureConfig 读取并合并配置，同时构造 logger。只执行一次。
func (c *commandContext) ensureConfig() (config.EffectiveConfig, error) {
	c.once.Do(func() {
		cwd, err := c.getwd()
		if err != nil {
			c.loadErr = err
			return
		}
		cfg, err := config.LoadEffective(cwd, c.getenv, c.cli)
		if err != nil {
			c.loadErr = err
			return
		}
		logger, err := logging.New(logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat})
		if err != nil {
			c.loadErr = err
			return
		}
		c.cfg = cfg
		c.logger = logger
		if cfg.Source != "" {
			logger.Debug("config loaded", slog.String("path", cfg.Source))
		}
	})
	return c.cfg, c.loadErr
}

// newClient 按最终配置构造抓取用 HTTP client（页面与海报共用同一网络策略）。
func (c *commandContext) newClient() (*http.Client, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return httpx.NewClient(httpx.Options{
		ProxyURL:       cfg.ProxyURL,
		UserAgent:      cfg.UserAgent,
		AcceptLanguage: cfg.AcceptLanguage,
		RetryMax:       cfg.RetryMax,
		RateLimit:      cfg.RateLimit,
		Timeout:        cfg.Timeout,
	})
}

// newScraper 按最终配置组装 HTTP client -> Fetcher -> Scraper。
func (c *commandContext) newScraper(client *http.Client) (*imdb.Scraper, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	if client == nil {
		if client, err = c.newClient(); err != nil {
			return nil, err
		}
	}
	return &imdb.Scraper{
		Fetcher:     provider.NewHTTPFetcher(cfg.BaseURL, client, cfg.Timeout, cfg.FetchConcurrency),
		Concurrency: cfg.Concurrency,
		Logger:      logging.NewComponentLogger(c.logger, "imdb"),
	}, nil
}
