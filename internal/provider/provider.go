package provider

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/sync/semaphore"
)

const (
	// DefaultFetchTimeout 是单次抓取（含读 body）的超时。
	DefaultFetchTimeout = 10 * time.Second
	// DefaultMaxInFlight 是进程内同时在途的抓取上限。
	DefaultMaxInFlight = 8
	// DefaultMaxBodyBytes 是单个页面 body 的读取上限。
	DefaultMaxBodyBytes = 16 << 20
)

// ErrBodyTooLarge 表示页面 body 超过读取上限；不会返回截断后的文档。
var ErrBodyTooLarge = errors.New("response body too large")

// Fetcher 把“按站内路径拿到可查询的文档”抽象出来；抽取层只依赖该接口。
//
// 约束：
// - Fetch 不做缓存、不做解析以外的加工
// - path 以 "/" 开头（例如 /title/tt0903747/），由实现拼接站点根地址
// - 非 2xx 返回 *HTTPStatusError；被验证页拦截返回 *BlockedError
type Fetcher interface {
	Fetch(ctx context.Context, path string) (*goquery.Document, error)
}

// HTTPFetcher 是 Fetcher 的 HTTP 实现。
//
// 约束：
// - 所有调用共享同一个在途上限（跨 series/season/episode 各层 fan-out）
// - 每次抓取都有独立超时；等待名额的时间也计入 ctx
type HTTPFetcher struct {
	BaseURL string
	Client  *http.Client
	Timeout time.Duration
	// MaxBodyBytes <= 0 时取 DefaultMaxBodyBytes。
	MaxBodyBytes int64

	sem *semaphore.Weighted
}

// NewHTTPFetcher 构造 HTTPFetcher；timeout/maxInFlight <= 0 时取默认值。
func NewHTTPFetcher(baseURL string, c *http.Client, timeout time.Duration, maxInFlight int) *HTTPFetcher {
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}
	if maxInFlight <= 0 {
		maxInFlight = DefaultMaxInFlight
	}
	if c == nil {
		c = http.DefaultClient
	}
	return &HTTPFetcher{
		BaseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		Client:  c,
		Timeout: timeout,
		sem:     semaphore.NewWeighted(int64(maxInFlight)),
	}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, path string) (*goquery.Document, error) {
	if f == nil || f.Client == nil {
		return nil, errors.New("http client 不能为空")
	}
	if !strings.HasPrefix(path, "/") {
		return nil, fmt.Errorf("path 必须以 / 开头：%q", path)
	}
	if f.sem != nil {
		if err := f.sem.Acquire(ctx, 1); err != nil {
			return nil, err
		}
		defer f.sem.Release(1)
	}

	ctx, cancel := context.WithTimeout(ctx, f.Timeout)
	defer cancel()

	limit := f.MaxBodyBytes
	if limit <= 0 {
		limit = DefaultMaxBodyBytes
	}
	b, err := fetchURL(ctx, f.Client, f.BaseURL+path, limit)
	if err != nil {
		return nil, err
	}
	return goquery.NewDocumentFromReader(bytes.NewReader(b))
}

func fetchURL(ctx context.Context, c *http.Client, u string, maxBytes int64) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(io.LimitReader(resp.Body, maxBytes+1))
	if err != nil {
		return nil, err
	}

	// AWS WAF 挑战页：202 + x-amzn-waf-action，body 是需要执行 JS 的空壳页面。
	if action := strings.TrimSpace(resp.Header.Get("x-amzn-waf-action")); action != "" {
		return nil, &BlockedError{URL: u, Reason: "waf-" + strings.ToLower(action)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &HTTPStatusError{URL: u, StatusCode: resp.StatusCode, Location: resp.Header.Get("Location")}
	}
	if int64(len(b)) > maxBytes {
		return nil, fmt.Errorf("%w: 超过 %d 字节", ErrBodyTooLarge, maxBytes)
	}
	if len(b) == 0 {
		return nil, errors.New("empty response body")
	}
	return b, nil
}
