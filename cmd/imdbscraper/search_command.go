package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/John-Robertt/imdbscraper/internal/domain"
)

func newSearchCommand(ctx *commandContext) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "按名称搜索剧集（终端输出表格，否则输出 JSON）",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			n := cfg.SearchLimit
			if cmd.Flags().Changed("limit") {
				n = min(limit, cfg.SearchLimit)
			}

			s, err := ctx.newScraper(nil)
			if err != nil {
				return err
			}
			results, err := s.Search(cmd.Context(), strings.Join(args, " "), n)
			if err != nil {
				return err
			}
			return emitResults(cmd.OutOrStdout(), results)
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "最多返回的条数（不超过配置的 search_limit）")
	return cmd
}

// emitResults：stdout 是终端时输出表格；否则 stdout 只输出一个 JSON 数组。
func emitResults(w io.Writer, results []domain.SearchResult) error {
	if isTerminal(w) {
		rows := make([][]string, 0, len(results))
		for i, r := range results {
			rows = append(rows, []string{fmt.Sprintf("%d", i+1), r.ID.String(), r.Name})
		}
		_, err := fmt.Fprintln(w, renderTable([]string{"#", "IMDb ID", "Name"}, rows, []columnAlignment{alignRight}))
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(results)
}
