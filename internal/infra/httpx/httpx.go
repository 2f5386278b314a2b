package httpx

import (
	"errors"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	defaultTimeout        = 20 * time.Second
	defaultAcceptLanguage = "en-US"
)

// RandomUserAgent 作为 UserAgent 取值时，每个请求从内置 UA 池随机挑选。
const RandomUserAgent = "random"

// Transport 把“请求头 + 代理 + keep-alive 策略 + 限速 + 有界重试”固化为统一策略。
//
// 设计目标：抽取层只负责“定位页面 + 解析 HTML”，不关心网络策略细节。
type Transport struct {
	Base *http.Transport

	// UserAgent 非空时固定使用；为空或 RandomUserAgent 时每个请求从内置 UA 池随机挑选。
	UserAgent string
	ua        *uaPool

	// AcceptLanguage 决定站点返回的语言；日期/季数等解析依赖英文页面。
	AcceptLanguage string

	// Limiter 非 nil 时，每次尝试（含重试）前都要先拿到令牌。
	Limiter *rate.Limiter

	// RetryMax 表示最大重试次数（不含首次尝试）。例如 2 表示最多 3 次尝试。
	RetryMax int

	// DisableKeepAlives 决定是否对 Request 设置 Close=true（额外保险）。
	// 真正禁用 keep-alive 依赖 Base.DisableKeepAlives。
	DisableKeepAlives bool
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req == nil {
		return nil, errors.New("nil request")
	}
	if t.Base == nil {
		return nil, errors.New("nil base transport")
	}

	// 只对“可重放”的请求做重试：GET/HEAD 且无 body。
	canRetry := (req.Method == http.MethodGet || req.Method == http.MethodHead) && req.Body == nil
	max := t.RetryMax
	if max < 0 {
		max = 0
	}
	if !canRetry {
		max = 0
	}

	var lastErr error
	for attempt := 0; attempt <= max; attempt++ {
		if t.Limiter != nil {
			if err := t.Limiter.Wait(req.Context()); err != nil {
				if lastErr != nil {
					return nil, lastErr
				}
				return nil, err
			}
		}

		r := cloneRequest(req)
		if r.Header.Get("User-Agent") == "" {
			r.Header.Set("User-Agent", t.userAgent())
		}
		if r.Header.Get("Accept-Language") == "" {
			lang := strings.TrimSpace(t.AcceptLanguage)
			if lang == "" {
				lang = defaultAcceptLanguage
			}
			r.Header.Set("Accept-Language", lang)
		}
		if t.DisableKeepAlives {
			r.Close = true
		}

		resp, err := t.Base.RoundTrip(r)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if req.Context().Err() != nil {
			// ctx 已取消：不再重试，直接返回最后错误（更可解释）。
			return nil, lastErr
		}
	}
	return nil, lastErr
}

func (t *Transport) userAgent() string {
	if ua := strings.TrimSpace(t.UserAgent); ua != "" && !strings.EqualFold(ua, RandomUserAgent) {
		return ua
	}
	if t.ua == nil {
		return globalUA.random()
	}
	return t.ua.random()
}

func cloneRequest(req *http.Request) *http.Request {
	// Clone 会复制 Header 等，避免在 RoundTripper 内部“污染”调用方的 request。
	return req.Clone(req.Context())
}

// Options 描述抓取用 HTTP client 的网络策略。
type Options struct {
	ProxyURL       string
	UserAgent      string
	AcceptLanguage string
	RetryMax       int
	RateLimit      float64 // 每秒请求数；<=0 表示不限速
	Timeout        time.Duration
}

// NewClient 构造用于页面抓取的 HTTP client。
//
// 规则：
// - ProxyURL 非空：必须走代理，且禁用 keep-alive（每请求新连接）
// - UserAgent 为空或为 "random" 时使用内置 UA 池
// - 默认不重试：抓取层的失败语义是“一次失败即失败”，重试只作为显式配置
// - RateLimit > 0 时按令牌桶限速（突发 1）
func NewClient(opts Options) (*http.Client, error) {
	proxyURL := strings.TrimSpace(opts.ProxyURL)
	disableKeepAlives := false
	base := &http.Transport{
		Proxy:                 nil,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 15 * time.Second,
		MaxIdleConnsPerHost:   16,
	}

	if proxyURL != "" {
		u, err := url.Parse(proxyURL)
		if err != nil {
			return nil, err
		}
		base.Proxy = http.ProxyURL(u)
		// proxy 模式强制每请求新连接（代理池轮换依赖该行为）。
		base.DisableKeepAlives = true
		disableKeepAlives = true
	}

	var limiter *rate.Limiter
	if opts.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), 1)
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	tr := &Transport{
		Base:              base,
		UserAgent:         strings.TrimSpace(opts.UserAgent),
		ua:                globalUA,
		AcceptLanguage:    strings.TrimSpace(opts.AcceptLanguage),
		Limiter:           limiter,
		RetryMax:          opts.RetryMax,
		DisableKeepAlives: disableKeepAlives,
	}
	return &http.Client{
		Transport: tr,
		Timeout:   timeout,
	}, nil
}

type uaPool struct {
	mu  sync.Mutex
	rnd *rand.Rand
	uas []string
}

func (p *uaPool) random() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.uas[p.rnd.Intn(len(p.uas))]
}

var globalUA = newUAPool()

func newUAPool() *uaPool {
	// 只放桌面浏览器 UA：移动端 UA 会拿到结构不同的页面。
	uas := []string{
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 13_6) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.3 Safari/605.1.15",
		"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36",
	}
	return &uaPool{
		rnd: rand.New(rand.NewSource(time.Now().UnixNano())),
		uas: uas,
	}
}
