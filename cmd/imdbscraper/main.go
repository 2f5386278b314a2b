package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/John-Robertt/imdbscraper/internal/config"
	"github.com/John-Robertt/imdbscraper/internal/provider"
	"github.com/John-Robertt/imdbscraper/internal/server"
)

func main() {
	cmd := newRootCommand(newCommandContext(os.Getwd, os.Getenv))
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, describeError(err))
		}
		os.Exit(1)
	}
}

// describeError 为 stderr 生成一行带错误码的描述。
// 抓取错误沿用 REST 的错误码表；配置错误使用 config 的 error_code。
func describeError(err error) string {
	if provider.KindOf(err) != "" {
		_, d := server.Describe(err)
		return fmt.Sprintf("%s %s: %s", d.ErrorCode, d.ErrorType, d.ErrorMessage)
	}
	if code := config.Code(err); code != "" {
		return fmt.Sprintf("%s: %v", code, err)
	}
	return err.Error()
}
