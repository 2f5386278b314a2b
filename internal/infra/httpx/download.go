package httpx

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// DefaultMaxDownload 是 Download 读取 body 的默认上限。
const DefaultMaxDownload = 16 << 20

// Download 读取 u 的完整 body（用于海报等二进制资源）。
//
// 规则：
// - 非 2xx => 错误（带状态码）
// - body 超过 maxBytes => 错误；maxBytes<=0 时取 DefaultMaxDownload
func Download(ctx context.Context, c *http.Client, u string, maxBytes int64) ([]byte, error) {
	if c == nil {
		return nil, errors.New("http client 为空")
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxDownload
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("HTTP %d", resp.StatusCode)
	}
	b, err := io.ReadAll(io.LimitReader(resp.Body, maxBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(b)) > maxBytes {
		return nil, fmt.Errorf("响应超过 %d 字节", maxBytes)
	}
	return b, nil
}
