package imdb

import (
	"context"
	"errors"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/John-Robertt/imdbscraper/internal/domain"
	"github.com/John-Robertt/imdbscraper/internal/fieldparse"
	"github.com/John-Robertt/imdbscraper/internal/logging"
	"github.com/John-Robertt/imdbscraper/internal/provider"
)

const tvSeriesType = "TVSeries"

var (
	yearLikeRE     = regexp.MustCompile(`^\d{4}`)
	durationLikeRE = regexp.MustCompile(`(?i)^\d+\s*(h|hr|hrs|hour|hours|m|min|mins|minute|minutes)\b`)
)

// SeriesByID 抓取并抽取一部剧集的完整记录（含全部季与集）。
//
// 流程：
// 1) 词法校验 ID（失败不发请求）
// 2) 抓取标题页，读 linked data；类型不是 TVSeries 时立即失败，不抓任何季
// 3) 抽取播出年份/单集时长/季数
// 4) 并发抓取 1..N 季并组装
func (s *Scraper) SeriesByID(ctx context.Context, rawID string) (domain.Series, error) {
	id, ok := domain.ParseID(rawID)
	if !ok {
		return domain.Series{}, &provider.Error{
			Kind:  provider.KindInvalidInput,
			Stage: provider.StageSeries,
			Field: "id",
			Raw:   rawID,
			Msg:   "标题 ID 必须形如 tt0903747",
		}
	}
	f, err := s.fetcher()
	if err != nil {
		return domain.Series{}, err
	}

	log := s.logger(ctx).With(slog.String(logging.FieldTitleID, string(id)))
	ctx = logging.WithLogger(ctx, log)
	start := time.Now()
	log.Info("scraping series")

	sc := scope{stage: provider.StageSeries, id: id}
	doc, err := f.Fetch(ctx, titlePath(id))
	if err != nil {
		e := sc.fetch(err)
		log.Error("series fetch failed", logging.Error(e))
		return domain.Series{}, e
	}

	series, total, err := parseSeriesPage(id, doc)
	if err != nil {
		if provider.KindOf(err) == provider.KindTitleTypeMismatch {
			log.Warn("title is not a tv series", logging.Error(err))
		} else {
			log.Error("series extraction failed", logging.Error(err))
		}
		return domain.Series{}, err
	}

	seasons, err := s.Seasons(ctx, id, total)
	if err != nil {
		return domain.Series{}, err
	}
	series.Seasons = seasons
	series.NumberSeasons = len(seasons)

	log.Info("series scraped",
		slog.Int("seasons", series.NumberSeasons),
		slog.Duration("elapsed", time.Since(start)),
	)
	return series, nil
}

// SeriesByName 先按名称搜索，再抓取排名第一的结果。
func (s *Scraper) SeriesByName(ctx context.Context, name string) (domain.Series, error) {
	if strings.TrimSpace(name) == "" {
		return domain.Series{}, &provider.Error{
			Kind:    provider.KindInvalidInput,
			Stage:   provider.StageSearch,
			Field:   "name",
			Missing: true,
			Msg:     "名称不能为空",
		}
	}
	hits, err := s.Search(ctx, name, 1)
	if err != nil {
		return domain.Series{}, err
	}
	s.logger(ctx).Debug("resolved series by name",
		slog.String("name", name),
		slog.String(logging.FieldTitleID, string(hits[0].ID)),
	)
	return s.SeriesByID(ctx, string(hits[0].ID))
}

// parseSeriesPage 从标题页抽出 Series 的标量字段与声明的季数。
// 纯函数：只依赖 doc；Seasons 由调用方填充。
func parseSeriesPage(id domain.ID, doc *goquery.Document) (domain.Series, int, error) {
	sc := scope{stage: provider.StageSeries, id: id}

	ld, raw, err := decodeLinkedData(doc)
	if err != nil {
		if errors.Is(err, errNoLinkedData) {
			return domain.Series{}, 0, sc.missing("linkedData")
		}
		return domain.Series{}, 0, sc.malformed("linkedData", raw, err)
	}
	if ld.Type == "" {
		return domain.Series{}, 0, sc.missing("linkedData.@type")
	}
	if ld.Type != tvSeriesType {
		e := sc.base(provider.KindTitleTypeMismatch)
		e.Observed = ld.Type
		e.Msg = "标题不是剧集"
		return domain.Series{}, 0, e
	}
	if ld.Name == "" {
		return domain.Series{}, 0, sc.missing("linkedData.name")
	}

	series := domain.Series{
		ID:      id,
		Name:    ld.Name,
		Genres:  normGenres(ld.Genre),
		Seasons: []domain.Season{},
	}
	// 有译名时展示译名，原名单独保留。
	if ld.AlternateName != "" {
		series.Name = ld.AlternateName
		series.OriginalName = strPtr(ld.Name)
	}
	if ld.Description != "" {
		series.Summary = strPtr(ld.Description)
	}
	if ld.Image != "" {
		series.PosterURL = strPtr(ld.Image)
	}
	if r := ld.AggregateRating; r != nil {
		switch {
		case r.RatingValue != nil && r.RatingCount != nil:
			series.RatingValue = r.RatingValue
			series.RatingCount = r.RatingCount
		case r.RatingValue != nil || r.RatingCount != nil:
			return domain.Series{}, 0, sc.integrity("aggregateRating", "评分值与投票数必须同时存在")
		}
	}

	hero := doc.Find(`[data-testid^="hero-title-block__metadata"]`).First()
	if hero.Length() == 0 {
		return domain.Series{}, 0, sc.missing("heroMetadata")
	}
	items := hero.Children()

	years, found, err := provider.FirstOf(
		provider.Strategy[string]{Name: "hero-second-item", Run: func() (string, bool, error) {
			if items.Length() < 2 {
				return "", false, nil
			}
			t := lastChildText(items.Eq(1))
			return t, yearLikeRE.MatchString(t), nil
		}},
		provider.Strategy[string]{Name: "hero-year-like", Run: func() (string, bool, error) {
			return firstItemText(items, yearLikeRE)
		}},
	)
	if err != nil {
		return domain.Series{}, 0, sc.malformed("runYears", years, err)
	}
	if !found {
		return domain.Series{}, 0, sc.missing("runYears")
	}
	startYear, endYear, err := fieldparse.YearRange(years)
	if err != nil {
		return domain.Series{}, 0, sc.malformed("runYears", years, err)
	}
	if endYear != nil && startYear > *endYear {
		return domain.Series{}, 0, sc.integrity("runYears", "起始年份晚于结束年份")
	}
	series.StartYear = startYear
	series.EndYear = endYear

	runtime, found, err := provider.FirstOf(
		provider.Strategy[string]{Name: "techspec-runtime", Run: func() (string, bool, error) {
			spec := doc.Find(`[data-testid^="title-techspec_runtime"]`).First()
			if spec.Children().Length() < 2 {
				return "", false, nil
			}
			t := fieldparse.Text(spec.Children().Eq(1).Text())
			return t, t != "", nil
		}},
		provider.Strategy[string]{Name: "hero-duration-like", Run: func() (string, bool, error) {
			return firstItemText(items, durationLikeRE)
		}},
	)
	if err != nil {
		return domain.Series{}, 0, sc.malformed("episodeDuration", runtime, err)
	}
	if found {
		d, err := fieldparse.Duration(runtime)
		if err != nil {
			return domain.Series{}, 0, sc.malformed("episodeDuration", runtime, err)
		}
		dd := domain.Duration(d)
		series.EpisodeDuration = &dd
	}

	seasonsText, found, err := provider.FirstOf(
		provider.Strategy[string]{Name: "browse-episodes-label", Run: func() (string, bool, error) {
			return selectionText(doc.Find(`[for^="browse-episodes-season"]`).First())
		}},
		provider.Strategy[string]{Name: "browse-episodes-links", Run: func() (string, bool, error) {
			return selectionText(doc.Find(`[class^="BrowseEpisodes__BrowseLinksContainer"] [href*="season"]`).First())
		}},
	)
	if err != nil {
		return domain.Series{}, 0, sc.malformed("numberSeasons", seasonsText, err)
	}
	if !found {
		return domain.Series{}, 0, sc.missing("numberSeasons")
	}
	total, err := fieldparse.SeasonCount(seasonsText)
	if err != nil {
		return domain.Series{}, 0, sc.malformed("numberSeasons", seasonsText, err)
	}

	return series, total, nil
}

// lastChildText 取元素最后一个子元素的文本；没有子元素时取自身文本。
func lastChildText(sel *goquery.Selection) string {
	if c := sel.Children(); c.Length() > 0 {
		return fieldparse.Text(c.Last().Text())
	}
	return fieldparse.Text(sel.Text())
}

func firstItemText(items *goquery.Selection, re *regexp.Regexp) (string, bool, error) {
	var out string
	items.EachWithBreak(func(_ int, it *goquery.Selection) bool {
		t := lastChildText(it)
		if re.MatchString(t) {
			out = t
			return false
		}
		return true
	})
	return out, out != "", nil
}

func selectionText(sel *goquery.Selection) (string, bool, error) {
	if sel.Length() == 0 {
		return "", false, nil
	}
	t := fieldparse.Text(sel.Text())
	return t, t != "", nil
}

func strPtr(s string) *string { return &s }
