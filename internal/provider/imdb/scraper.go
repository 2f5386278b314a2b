// Package imdb 实现 IMDb 剧集页面的抓取与抽取：series -> seasons -> episodes 三层 fan-out，
// 以及独立的标题搜索。
//
// 约束：
// - 每次调用都是一次全新的抓取，不缓存、不跨请求共享结果
// - 要么返回完整一致的记录，要么返回唯一一个 *provider.Error；从不返回部分结果
// - 任一分支失败即取消同层兄弟任务（join-or-cancel）
package imdb

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/John-Robertt/imdbscraper/internal/domain"
	"github.com/John-Robertt/imdbscraper/internal/logging"
	"github.com/John-Robertt/imdbscraper/internal/provider"
)

// DefaultConcurrency 是每一层 fan-out 同时运行的任务上限。
const DefaultConcurrency = 8

// Scraper 组合 Fetcher 与抽取逻辑。
//
// 约束：
// - Fetcher 必填；网络并发的全局上限由 Fetcher 自己控制
// - Concurrency 只限制本层 goroutine 数量（<=0 时取默认值）
// - Logger 是兜底 logger；ctx 中若带有请求级 logger 则优先使用
type Scraper struct {
	Fetcher     provider.Fetcher
	Concurrency int
	Logger      *slog.Logger
}

func (s *Scraper) limit() int {
	if s.Concurrency <= 0 {
		return DefaultConcurrency
	}
	return s.Concurrency
}

func (s *Scraper) logger(ctx context.Context) *slog.Logger {
	return logging.FromContext(ctx, s.Logger)
}

func (s *Scraper) fetcher() (provider.Fetcher, error) {
	if s == nil || s.Fetcher == nil {
		return nil, fmt.Errorf("fetcher 不能为空")
	}
	return s.Fetcher, nil
}

func titlePath(id domain.ID) string {
	return "/title/" + string(id) + "/"
}

func seasonPath(id domain.ID, n int) string {
	return fmt.Sprintf("/title/%s/episodes?season=%d", id, n)
}

func searchPath(query string) string {
	return "/find?q=" + url.QueryEscape(query) + "&s=tt&ttype=tv&ref_=fn_tv"
}

// scope 是失败点的诊断上下文；所有 *provider.Error 都经由它构造。
type scope struct {
	stage   provider.Stage
	id      domain.ID
	season  int
	row     int
	episode *int
}

func (sc scope) base(kind provider.Kind) *provider.Error {
	return &provider.Error{
		Kind:    kind,
		Stage:   sc.stage,
		ID:      sc.id,
		Season:  sc.season,
		Row:     sc.row,
		Episode: sc.episode,
	}
}

func (sc scope) missing(field string) *provider.Error {
	e := sc.base(provider.KindExtraction)
	e.Field = field
	e.Missing = true
	return e
}

func (sc scope) malformed(field, raw string, err error) *provider.Error {
	e := sc.base(provider.KindExtraction)
	e.Field = field
	e.Raw = raw
	e.Err = err
	return e
}

func (sc scope) integrity(field, msg string) *provider.Error {
	e := sc.base(provider.KindDataIntegrity)
	e.Field = field
	e.Msg = msg
	return e
}

func (sc scope) fetch(err error) *provider.Error {
	e := provider.FromFetch(sc.stage, sc.id, err)
	e.Season = sc.season
	return e
}
