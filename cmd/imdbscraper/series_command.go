package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/spf13/cobra"

	"github.com/John-Robertt/imdbscraper/internal/domain"
	"github.com/John-Robertt/imdbscraper/internal/infra/fsx"
	"github.com/John-Robertt/imdbscraper/internal/infra/httpx"
	"github.com/John-Robertt/imdbscraper/internal/infra/imgx"
	"github.com/John-Robertt/imdbscraper/internal/logging"
	"github.com/John-Robertt/imdbscraper/internal/nfo"
)

func newSeriesCommand(ctx *commandContext) *cobra.Command {
	var (
		name   string
		format string
		out    string
		poster string
		force  bool
	)
	cmd := &cobra.Command{
		Use:   "series [imdb-id]",
		Short: "抓取一部剧集的完整记录（按 IMDb ID 或 --name）",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name = strings.TrimSpace(name)
			if (len(args) == 1) == (name != "") {
				return errors.New("必须且只能指定 <imdb-id> 或 --name 之一")
			}
			format = strings.ToLower(strings.TrimSpace(format))
			if format != "json" && format != "nfo" {
				return fmt.Errorf("--format 只能是 json 或 nfo，实际是 %q", format)
			}

			client, err := ctx.newClient()
			if err != nil {
				return err
			}
			s, err := ctx.newScraper(client)
			if err != nil {
				return err
			}
			var series domain.Series
			if name != "" {
				series, err = s.SeriesByName(cmd.Context(), name)
			} else {
				series, err = s.SeriesByID(cmd.Context(), args[0])
			}
			if err != nil {
				return err
			}

			b, err := encodeSeries(series, format)
			if err != nil {
				return err
			}
			if strings.TrimSpace(out) == "" {
				if _, err := cmd.OutOrStdout().Write(b); err != nil {
					return err
				}
			} else {
				if err := fsx.WriteFile(out, b, force); err != nil {
					return fmt.Errorf("写入 %s 失败：%w", out, err)
				}
				ctx.logger.Info("series written",
					slog.String("path", out),
					slog.String(logging.FieldTitleID, series.ID.String()),
					slog.Int("seasons", series.NumberSeasons),
				)
			}

			if strings.TrimSpace(poster) != "" {
				return writePoster(cmd.Context(), client, series, poster, force)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "按名称搜索并抓取第一条结果")
	cmd.Flags().StringVar(&format, "format", "json", "输出格式：json|nfo")
	cmd.Flags().StringVarP(&out, "out", "o", "", "输出文件（默认写 stdout）")
	cmd.Flags().StringVar(&poster, "poster", "", "同时下载海报并保存为 2:3 JPEG（例如 poster.jpg）")
	cmd.Flags().BoolVar(&force, "force", false, "覆盖已存在的输出文件")
	return cmd
}

func encodeSeries(s domain.Series, format string) ([]byte, error) {
	if format == "nfo" {
		return nfo.Encode(s)
	}
	b, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(b, '\n'), nil
}

func writePoster(ctx context.Context, c *http.Client, s domain.Series, path string, overwrite bool) error {
	if s.PosterURL == nil || strings.TrimSpace(*s.PosterURL) == "" {
		return fmt.Errorf("%s 没有海报地址，无法写入 %s", s.ID, path)
	}
	raw, err := httpx.Download(ctx, c, *s.PosterURL, 0)
	if err != nil {
		return fmt.Errorf("下载海报失败：%w", err)
	}
	b, err := imgx.PosterJPEG(raw)
	if err != nil {
		return fmt.Errorf("处理海报失败：%w", err)
	}
	if err := fsx.WriteFile(path, b, overwrite); err != nil {
		return fmt.Errorf("写入 %s 失败：%w", path, err)
	}
	return nil
}
