package imdb

import (
	"context"
	"log/slog"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/John-Robertt/imdbscraper/internal/domain"
	"github.com/John-Robertt/imdbscraper/internal/fieldparse"
	"github.com/John-Robertt/imdbscraper/internal/logging"
	"github.com/John-Robertt/imdbscraper/internal/provider"
)

// searchRow 是搜索结果中一行的原始链接。
type searchRow struct {
	name    string
	href    string
	hasLink bool
}

// Search 按名称搜索剧集，返回前 limit 条结果（保持页面顺序）。
//
// 约束：
// - query 为空 => invalid_input；limit < 1 => invalid_input
// - 找不到结果容器（或容器为空）=> no_results
// - 任一保留结果的名称为空或链接无法解析 => 整次调用失败
func (s *Scraper) Search(ctx context.Context, query string, limit int) ([]domain.SearchResult, error) {
	q := strings.TrimSpace(query)
	if q == "" {
		return nil, &provider.Error{
			Kind:    provider.KindInvalidInput,
			Stage:   provider.StageSearch,
			Field:   "q",
			Missing: true,
			Msg:     "缺少查询参数",
		}
	}
	if limit < 1 {
		return nil, &provider.Error{
			Kind:  provider.KindInvalidInput,
			Stage: provider.StageSearch,
			Field: "limit",
			Msg:   "limit 必须 >= 1",
		}
	}
	f, err := s.fetcher()
	if err != nil {
		return nil, err
	}
	log := s.logger(ctx).With(slog.String("query", q))
	sc := scope{stage: provider.StageSearch}

	doc, err := f.Fetch(ctx, searchPath(q))
	if err != nil {
		e := sc.fetch(err)
		log.Error("search fetch failed", logging.Error(e))
		return nil, e
	}

	rows, used, found, attempts, _ := provider.FirstOfTrace(
		provider.Strategy[[]searchRow]{Name: "legacy-find-list", Run: func() ([]searchRow, bool, error) {
			table := doc.Find("table.findList").First()
			if table.Length() == 0 {
				return nil, false, nil
			}
			return collectRows(table.Find("tr"), ".result_text a"), true, nil
		}},
		provider.Strategy[[]searchRow]{Name: "modern-ipc-list", Run: func() ([]searchRow, bool, error) {
			section := doc.Find(`section[data-testid="find-results-section-title"]`).First()
			if section.Length() == 0 {
				return nil, false, nil
			}
			return collectRows(section.Find("li.ipc-metadata-list-summary-item"), `a.ipc-metadata-list-summary-item__t, a[href^="/title/"]`), true, nil
		}},
	)
	if !found || len(rows) == 0 {
		e := sc.base(provider.KindNoResults)
		e.Msg = "没有匹配的剧集：" + q
		log.Info("search returned no results", slog.Int("strategies", len(attempts)))
		return nil, e
	}

	if len(rows) > limit {
		rows = rows[:limit]
	}
	out := make([]domain.SearchResult, 0, len(rows))
	for i, r := range rows {
		rsc := sc
		rsc.row = i + 1
		if !r.hasLink {
			return nil, rsc.missing("resultLink")
		}
		if r.name == "" {
			return nil, rsc.missing("resultName")
		}
		id, err := fieldparse.TitleIDFromPath(r.href)
		if err != nil {
			return nil, rsc.malformed("resultLink", r.href, err)
		}
		out = append(out, domain.SearchResult{ID: id, Name: r.name})
	}
	log.Debug("search done", slog.String("layout", used), slog.Int("results", len(out)))
	return out, nil
}

func collectRows(rows *goquery.Selection, linkSel string) []searchRow {
	out := make([]searchRow, 0, rows.Length())
	rows.Each(func(_ int, row *goquery.Selection) {
		a := row.Find(linkSel).First()
		if a.Length() == 0 {
			out = append(out, searchRow{})
			return
		}
		href, _ := a.Attr("href")
		out = append(out, searchRow{name: fieldparse.Text(a.Text()), href: href, hasLink: true})
	})
	return out
}
