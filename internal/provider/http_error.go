package provider

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// HTTPStatusError 表示站点返回了非 2xx 的 HTTP 状态码。
// 抽取层据此区分 not_found（404）与 connection_error（其它）。
type HTTPStatusError struct {
	URL        string
	StatusCode int
	Location   string
}

func (e *HTTPStatusError) Error() string {
	if e == nil {
		return "HTTP status error"
	}
	loc := strings.TrimSpace(e.Location)
	if loc == "" {
		return fmt.Sprintf("HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("HTTP %d location=%s", e.StatusCode, loc)
}

// IsNotFound 判断 err 是否为站点返回的 404。
func IsNotFound(err error) bool {
	var se *HTTPStatusError
	return errors.As(err, &se) && se.StatusCode == http.StatusNotFound
}

// BlockedError 表示请求被站点引导到了“验证/拦截”页面（通常意味着需要浏览器执行 JS）。
// 产品约束：不尝试绕过，直接视为 connection_error，提示用户降低频率或配置代理。
type BlockedError struct {
	URL    string
	Reason string // 例如 "waf-challenge"
}

func (e *BlockedError) Error() string {
	if e == nil {
		return "blocked"
	}
	if strings.TrimSpace(e.Reason) == "" {
		return "blocked"
	}
	return "blocked: " + strings.TrimSpace(e.Reason)
}
