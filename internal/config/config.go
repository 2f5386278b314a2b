package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

const (
	// ErrCodeNotFound 表示 --config 指定的配置文件不存在。
	ErrCodeNotFound = "config_not_found"
	// ErrCodeInvalid 表示配置文件无法读取/解析，或字段不合法。
	ErrCodeInvalid = "config_invalid"
)

const (
	// DefaultFileName 是未指定 --config 时在 cwd 下查找的文件名（可选）。
	DefaultFileName = "imdbscraper.toml"

	DefaultBaseURL          = "https://www.imdb.com"
	DefaultAcceptLanguage   = "en-US"
	DefaultUserAgent        = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36"
	DefaultTimeout          = 10 * time.Second
	DefaultConcurrency      = 8
	DefaultFetchConcurrency = 8
	DefaultSearchLimit      = 10
	DefaultListen           = ":8080"
	DefaultLogLevel         = "info"
	DefaultLogFormat        = "console"
)

// 环境变量覆盖（优先级介于 CLI 与配置文件之间）。
const (
	EnvListen      = "IMDBSCRAPER_LISTEN"
	EnvLogLevel    = "IMDBSCRAPER_LOG_LEVEL"
	EnvSearchLimit = "SEARCH_RESULT_LIMIT"
)

// CLIArgs 只包含 CLI 暴露的入口，并保留“是否显式指定”的信息。
type CLIArgs struct {
	ConfigPath string

	Listen    string
	ListenSet bool

	LogLevel    string
	LogLevelSet bool

	LogFormat    string
	LogFormatSet bool
}

// FileConfig 对应 imdbscraper.toml 的解析结构。未知字段忽略。
type FileConfig struct {
	BaseURL          string  `toml:"base_url"`
	AcceptLanguage   string  `toml:"accept_language"`
	UserAgent        string  `toml:"user_agent"` // "random" => 每个请求从内置 UA 池随机挑选
	Timeout          string  `toml:"timeout"`
	Concurrency      int     `toml:"concurrency"`
	FetchConcurrency int     `toml:"fetch_concurrency"`
	SearchLimit      int     `toml:"search_limit"`
	Listen           string  `toml:"listen"`
	ProxyURL         string  `toml:"proxy_url"`
	RetryMax         int     `toml:"retry_max"`
	RateLimit        float64 `toml:"rate_limit"`
	LogLevel         string  `toml:"log_level"`
	LogFormat        string  `toml:"log_format"`
}

// EffectiveConfig 是合并并做最小规范化后的最终配置（实现层直接消费，不再做二次默认/优先级判断）。
type EffectiveConfig struct {
	// Source 是实际读取的配置文件路径；未读取任何文件时为空。
	Source string

	BaseURL        string
	AcceptLanguage string
	UserAgent      string
	Timeout        time.Duration

	// Concurrency 是每层 fan-out 的任务上限；FetchConcurrency 是全局在途抓取上限。
	Concurrency      int
	FetchConcurrency int

	// SearchLimit 同时是搜索的默认条数与请求可要求的最大条数。
	SearchLimit int

	Listen    string
	ProxyURL  string
	RetryMax  int
	RateLimit float64

	LogLevel  string
	LogFormat string
}

// Error 是配置阶段的结构化错误（带 error_code）。
type Error struct {
	Code string
	Path string
	Err  error
}

func (e *Error) Error() string {
	switch e.Code {
	case ErrCodeNotFound:
		return fmt.Sprintf("%s：未找到配置文件 %q", e.Code, e.Path)
	case ErrCodeInvalid:
		if e.Err != nil {
			return fmt.Sprintf("%s：配置 %q 无效：%v", e.Code, e.Path, e.Err)
		}
		return fmt.Sprintf("%s：配置 %q 无效", e.Code, e.Path)
	default:
		if e.Err != nil {
			return fmt.Sprintf("%s：%v", e.Code, e.Err)
		}
		return e.Code
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Code 从 error 中提取 error_code；若不是 *Error 则返回空串。
func Code(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// LoadEffective 发现并读取配置文件，然后与环境变量、CLI 参数合并为最终配置。
//
// 发现规则（固定）：
// 1) CLI 提供 --config：必须存在，否则 config_not_found
// 2) 未提供：尝试读取 <cwd>/imdbscraper.toml（可选）
//
// 覆盖优先级（固定）：
// - listen / log_level：CLI > 环境变量 > 配置文件 > 默认
// - log_format：CLI > 配置文件 > 默认
// - search_limit：环境变量 SEARCH_RESULT_LIMIT > 配置文件 > 默认
// - 其他字段：仅由配置文件控制
//
// getenv 为 nil 时使用 os.Getenv。
func LoadEffective(cwd string, getenv func(string) string, cli CLIArgs) (EffectiveConfig, error) {
	if getenv == nil {
		getenv = os.Getenv
	}
	cwdAbs, err := filepath.Abs(cwd)
	if err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cwd, Err: err}
	}

	var (
		cfgPath string
		fc      FileConfig
		exists  bool
	)
	if strings.TrimSpace(cli.ConfigPath) != "" {
		cfgPath = absCleanFrom(cwdAbs, cli.ConfigPath)
		fc, exists, err = readFileConfig(cfgPath)
		if err != nil {
			return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
		}
		if !exists {
			return EffectiveConfig{}, &Error{Code: ErrCodeNotFound, Path: cfgPath, Err: os.ErrNotExist}
		}
	} else {
		cfgPath = filepath.Join(cwdAbs, DefaultFileName)
		fc, exists, err = readFileConfig(cfgPath)
		if err != nil {
			return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
		}
	}

	eff, err := merge(fc, getenv, cli)
	if err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
	}
	if exists {
		eff.Source = cfgPath
	}
	return eff, nil
}

// Defaults 返回不读取任何文件时的最终配置。
func Defaults() EffectiveConfig {
	eff, _ := merge(FileConfig{}, func(string) string { return "" }, CLIArgs{})
	return eff
}

func merge(fc FileConfig, getenv func(string) string, cli CLIArgs) (EffectiveConfig, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(fc.BaseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	u, err := url.Parse(baseURL)
	if err != nil || u.Host == "" {
		return EffectiveConfig{}, fmt.Errorf("base_url 无效：%q", fc.BaseURL)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return EffectiveConfig{}, fmt.Errorf("base_url 必须是 http/https：%q", fc.BaseURL)
	}

	timeout := DefaultTimeout
	if s := strings.TrimSpace(fc.Timeout); s != "" {
		d, err := time.ParseDuration(s)
		if err != nil {
			return EffectiveConfig{}, fmt.Errorf("timeout 无效：%w", err)
		}
		if d <= 0 {
			return EffectiveConfig{}, fmt.Errorf("timeout 必须为正：%q", s)
		}
		timeout = d
	}

	searchLimit := fc.SearchLimit
	if s := strings.TrimSpace(getenv(EnvSearchLimit)); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			return EffectiveConfig{}, fmt.Errorf("%s 无效：%q", EnvSearchLimit, s)
		}
		searchLimit = n
	}
	if searchLimit == 0 {
		searchLimit = DefaultSearchLimit
	}

	proxyURL := strings.TrimSpace(fc.ProxyURL)
	if proxyURL != "" {
		if _, err := url.Parse(proxyURL); err != nil {
			return EffectiveConfig{}, fmt.Errorf("proxy_url 无效：%w", err)
		}
	}

	if fc.RateLimit < 0 {
		return EffectiveConfig{}, fmt.Errorf("rate_limit 不能为负：%v", fc.RateLimit)
	}

	listen := pick(cli.Listen, cli.ListenSet, getenv(EnvListen), fc.Listen, DefaultListen)
	logLevel := strings.ToLower(pick(cli.LogLevel, cli.LogLevelSet, getenv(EnvLogLevel), fc.LogLevel, DefaultLogLevel))
	switch logLevel {
	case "debug", "info", "warn", "error":
	default:
		return EffectiveConfig{}, fmt.Errorf("log_level 只能是 debug/info/warn/error，实际是 %q", logLevel)
	}
	logFormat := strings.ToLower(pick(cli.LogFormat, cli.LogFormatSet, "", fc.LogFormat, DefaultLogFormat))
	switch logFormat {
	case "console", "json":
	default:
		return EffectiveConfig{}, fmt.Errorf("log_format 只能是 console 或 json，实际是 %q", logFormat)
	}

	return EffectiveConfig{
		BaseURL:          baseURL,
		AcceptLanguage:   orDefault(fc.AcceptLanguage, DefaultAcceptLanguage),
		UserAgent:        userAgent(fc.UserAgent),
		Timeout:          timeout,
		Concurrency:      clamp(orDefaultInt(fc.Concurrency, DefaultConcurrency), 1, 64),
		FetchConcurrency: clamp(orDefaultInt(fc.FetchConcurrency, DefaultFetchConcurrency), 1, 64),
		SearchLimit:      clamp(searchLimit, 1, 50),
		Listen:           listen,
		ProxyURL:         proxyURL,
		RetryMax:         clamp(fc.RetryMax, 0, 5),
		RateLimit:        fc.RateLimit,
		LogLevel:         logLevel,
		LogFormat:        logFormat,
	}, nil
}

// pick 按 CLI > env > file > default 选值；空白视为未设置（CLI 显式设置除外）。
func pick(cliVal string, cliSet bool, envVal, fileVal, def string) string {
	if cliSet {
		return strings.TrimSpace(cliVal)
	}
	for _, v := range []string{envVal, fileVal} {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return def
}

// userAgent 规范化 user_agent："random"（大小写不敏感）统一为小写，空值取默认 UA。
func userAgent(v string) string {
	v = strings.TrimSpace(v)
	if strings.EqualFold(v, "random") {
		return "random"
	}
	return orDefault(v, DefaultUserAgent)
}

func orDefault(v, def string) string {
	if v = strings.TrimSpace(v); v != "" {
		return v
	}
	return def
}

func orDefaultInt(v, def int) int {
	if v == 0 {
		return def
	}
	return v
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// absCleanFrom 以 base 为基准，把 p 变为 clean + absolute。
func absCleanFrom(base, p string) string {
	p = filepath.Clean(strings.TrimSpace(p))
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Clean(filepath.Join(base, p))
}

// readFileConfig 读取并解析 TOML 配置文件。
// 返回值 exists 表示该文件是否存在（不存在不算错误）。
func readFileConfig(path string) (fc FileConfig, exists bool, err error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, false, nil
		}
		return FileConfig{}, false, err
	}
	if err := toml.Unmarshal(b, &fc); err != nil {
		return FileConfig{}, true, err
	}
	return fc, true, nil
}
