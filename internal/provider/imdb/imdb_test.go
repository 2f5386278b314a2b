package imdb

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/John-Robertt/imdbscraper/internal/domain"
	"github.com/John-Robertt/imdbscraper/internal/fieldparse"
	"github.com/John-Robertt/imdbscraper/internal/provider"
)

const seriesID = domain.ID("tt7654321")

type stubFetcher struct {
	mu    sync.Mutex
	pages map[string]string
	block map[string]bool
	calls []string
}

func (f *stubFetcher) Fetch(ctx context.Context, path string) (*goquery.Document, error) {
	f.mu.Lock()
	f.calls = append(f.calls, path)
	page, ok := f.pages[path]
	blocked := f.block[path]
	f.mu.Unlock()

	if blocked {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if !ok {
		return nil, &provider.HTTPStatusError{URL: path, StatusCode: http.StatusNotFound}
	}
	return goquery.NewDocumentFromReader(strings.NewReader(page))
}

func (f *stubFetcher) callsWithPrefix(prefix string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if strings.HasPrefix(c, prefix) {
			n++
		}
	}
	return n
}

func fixture(t *testing.T, name string) string {
	t.Helper()
	b, err := os.ReadFile(filepath.Join("testdata", name))
	require.NoError(t, err, "读取 fixture %s 失败", name)
	return string(b)
}

func seriesPages(t *testing.T) map[string]string {
	return map[string]string{
		titlePath(seriesID):     fixture(t, "series.html"),
		seasonPath(seriesID, 1): fixture(t, "season_1.html"),
		seasonPath(seriesID, 2): fixture(t, "season_2.html"),
	}
}

func assertSeriesFixture(t *testing.T, s domain.Series) {
	t.Helper()
	assert.Equal(t, seriesID, s.ID)
	assert.Equal(t, "The Lighthouse Keepers", s.Name)
	require.NotNil(t, s.OriginalName)
	assert.Equal(t, "Die Leuchtturmwärter", *s.OriginalName)
	require.NotNil(t, s.Summary)
	assert.Equal(t, "A keeper's secret pulls two families & a village into a storm.", *s.Summary)
	assert.Equal(t, 2015, s.StartYear)
	require.NotNil(t, s.EndYear)
	assert.Equal(t, 2019, *s.EndYear)
	require.NotNil(t, s.EpisodeDuration)
	assert.Equal(t, 52*time.Minute, time.Duration(*s.EpisodeDuration))
	assert.Equal(t, []string{"Drama", "Mystery"}, s.Genres)
	require.NotNil(t, s.RatingValue)
	require.NotNil(t, s.RatingCount)
	assert.InDelta(t, 8.4, *s.RatingValue, 1e-9)
	assert.Equal(t, 41234, *s.RatingCount)
	require.NotNil(t, s.PosterURL)

	require.Equal(t, 2, s.NumberSeasons)
	require.Len(t, s.Seasons, 2)
	assert.Equal(t, 1, s.Seasons[0].Number)
	assert.Equal(t, 2, s.Seasons[0].NumberEpisodes)
	assert.Equal(t, 2, s.Seasons[1].Number)
	assert.Equal(t, 3, s.Seasons[1].NumberEpisodes)
	require.Len(t, s.Seasons[1].Episodes, 3)

	ep1 := s.Seasons[0].Episodes[0]
	assert.Equal(t, domain.ID("tt7000101"), ep1.ID)
	assert.Equal(t, "Landfall", ep1.Name)
	require.NotNil(t, ep1.Airdate)
	assert.Equal(t, "2015-06-24", ep1.Airdate.String())
	require.NotNil(t, ep1.RatingCount)
	assert.Equal(t, 2345, *ep1.RatingCount)
	require.NotNil(t, ep1.Summary)
	assert.Equal(t, "The new keeper arrives on the island.", *ep1.Summary)

	s2 := s.Seasons[1].Episodes
	assert.Equal(t, []int{1, 2, 3}, []int{s2[0].Number, s2[1].Number, s2[2].Number})
	// 第 2 集：无评分、占位简介、仅到月份的日期。
	assert.Nil(t, s2[1].RatingValue)
	assert.Nil(t, s2[1].RatingCount)
	assert.Nil(t, s2[1].Summary)
	require.NotNil(t, s2[1].Airdate)
	assert.Equal(t, domain.PrecisionMonth, s2[1].Airdate.Precision)
	// 第 3 集：空日期、空简介。
	assert.Nil(t, s2[2].Airdate)
	require.NotNil(t, s2[2].Summary)
	assert.Equal(t, "", *s2[2].Summary)
}

func TestSeriesByID_EndToEnd(t *testing.T) {
	f := &stubFetcher{pages: seriesPages(t)}
	s := &Scraper{Fetcher: f}

	got, err := s.SeriesByID(context.Background(), string(seriesID))
	require.NoError(t, err)
	assertSeriesFixture(t, got)
	assert.Equal(t, 2, f.callsWithPrefix("/title/tt7654321/episodes"))
}

func TestSeriesByID_OverHTTP(t *testing.T) {
	pages := seriesPages(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.URL.Path
		if r.URL.RawQuery != "" {
			key += "?" + r.URL.RawQuery
		}
		page, ok := pages[key]
		if !ok {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(page))
	}))
	defer srv.Close()

	s := &Scraper{Fetcher: provider.NewHTTPFetcher(srv.URL, srv.Client(), time.Second, 4), Concurrency: 2}
	got, err := s.SeriesByID(context.Background(), string(seriesID))
	require.NoError(t, err)
	assertSeriesFixture(t, got)

	_, err = s.SeriesByID(context.Background(), "tt0000001")
	require.Error(t, err)
	assert.Equal(t, provider.KindNotFound, provider.KindOf(err))
}

func TestSeriesByID_InvalidIDDoesNoIO(t *testing.T) {
	f := &stubFetcher{}
	s := &Scraper{Fetcher: f}
	for _, bad := range []string{"", "tt12", "0903747", "tt0903747x"} {
		_, err := s.SeriesByID(context.Background(), bad)
		require.Error(t, err)
		assert.Equal(t, provider.KindInvalidInput, provider.KindOf(err), "输入 %q", bad)
	}
	assert.Empty(t, f.calls)
}

func TestSeriesByID_MovieIsTypeMismatchWithoutSeasonFetch(t *testing.T) {
	f := &stubFetcher{pages: map[string]string{"/title/tt1375666/": fixture(t, "movie.html")}}
	s := &Scraper{Fetcher: f}

	_, err := s.SeriesByID(context.Background(), "tt1375666")
	require.Error(t, err)
	var pe *provider.Error
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, provider.KindTitleTypeMismatch, pe.Kind)
	assert.Equal(t, "Movie", pe.Observed)
	assert.Equal(t, domain.ID("tt1375666"), pe.ID)
	assert.Equal(t, []string{"/title/tt1375666/"}, f.calls)
}

func TestSeriesByID_FailFastCancelsSiblingSeasons(t *testing.T) {
	pages := seriesPages(t)
	pages[seasonPath(seriesID, 2)] = strings.Replace(pages[seasonPath(seriesID, 2)],
		`<span class="ipl-rating-star__total-votes">(3,001)</span>`, "", 1)
	f := &stubFetcher{
		pages: pages,
		block: map[string]bool{seasonPath(seriesID, 1): true},
	}
	s := &Scraper{Fetcher: f}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	got, err := s.SeriesByID(ctx, string(seriesID))
	require.Error(t, err)
	assert.Equal(t, domain.Series{}, got)

	var pe *provider.Error
	require.True(t, errors.As(err, &pe), "期望 *provider.Error，实际 %T %v", err, err)
	assert.Equal(t, provider.KindDataIntegrity, pe.Kind)
	assert.Equal(t, provider.StageEpisode, pe.Stage)
	assert.Equal(t, 2, pe.Season)
	require.NotNil(t, pe.Episode)
	assert.Equal(t, 1, *pe.Episode)
	assert.NoError(t, ctx.Err(), "阻塞的兄弟季应被取消，而不是等到超时")
}

func TestSeriesByID_CanceledSiblingsDoNotLogErrors(t *testing.T) {
	pages := seriesPages(t)
	pages[seasonPath(seriesID, 2)] = strings.Replace(pages[seasonPath(seriesID, 2)],
		`<span class="ipl-rating-star__total-votes">(3,001)</span>`, "", 1)
	f := &stubFetcher{
		pages: pages,
		block: map[string]bool{seasonPath(seriesID, 1): true},
	}
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	s := &Scraper{Fetcher: f, Logger: logger}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err := s.SeriesByID(ctx, string(seriesID))
	require.Error(t, err)

	var sawFailure bool
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		var rec map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &rec), "日志行：%s", line)
		if rec["season"] == float64(1) {
			assert.NotEqual(t, "ERROR", rec["level"], "被取消的季不应记 ERROR：%s", line)
		}
		if rec["season"] == float64(2) && rec["level"] == "ERROR" {
			sawFailure = true
		}
	}
	assert.True(t, sawFailure, "真正失败的季应记 ERROR")
}

func TestSeriesByID_AbsurdSeasonCountIsClassified(t *testing.T) {
	pages := seriesPages(t)
	pages[titlePath(seriesID)] = strings.ReplaceAll(pages[titlePath(seriesID)], "2 Seasons", "99999999999999 Seasons")
	f := &stubFetcher{pages: pages}
	s := &Scraper{Fetcher: f}

	_, err := s.SeriesByID(context.Background(), string(seriesID))
	var pe *provider.Error
	require.True(t, errors.As(err, &pe), "期望 *provider.Error，实际 %T %v", err, err)
	assert.Equal(t, provider.KindExtraction, pe.Kind)
	assert.Equal(t, provider.StageSeries, pe.Stage)
	assert.Equal(t, "numberSeasons", pe.Field)
	assert.Equal(t, "99999999999999 Seasons", pe.Raw)
	assert.Zero(t, f.callsWithPrefix("/title/tt7654321/episodes"))
}

func TestSeasons_TotalAboveLimitFailsWithoutFetch(t *testing.T) {
	f := &stubFetcher{}
	s := &Scraper{Fetcher: f}
	_, err := s.Seasons(context.Background(), seriesID, fieldparse.MaxSeasons+1)
	assert.Equal(t, provider.KindExtraction, provider.KindOf(err))
	assert.Empty(t, f.calls)
}

func TestSeriesByID_SeasonPageMissingIsNotFoundForSeason(t *testing.T) {
	pages := seriesPages(t)
	delete(pages, seasonPath(seriesID, 2))
	s := &Scraper{Fetcher: &stubFetcher{pages: pages}}

	_, err := s.SeriesByID(context.Background(), string(seriesID))
	var pe *provider.Error
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, provider.KindNotFound, pe.Kind)
	assert.Equal(t, provider.StageSeason, pe.Stage)
	assert.Equal(t, 2, pe.Season)
}

func TestSeason_EpisodeListMissing(t *testing.T) {
	page := `<html><body><meta itemprop="numberofEpisodes" content="1"/></body></html>`
	s := &Scraper{Fetcher: &stubFetcher{pages: map[string]string{seasonPath(seriesID, 1): page}}}

	_, err := s.Season(context.Background(), seriesID, 1)
	var pe *provider.Error
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, provider.KindExtraction, pe.Kind)
	assert.Equal(t, provider.StageEpisode, pe.Stage)
	assert.Equal(t, "episodeList", pe.Field)
	assert.True(t, pe.Missing)
}

func TestSeason_DeclaredCountMissing(t *testing.T) {
	page := `<html><body><div class="list detail eplist"></div></body></html>`
	s := &Scraper{Fetcher: &stubFetcher{pages: map[string]string{seasonPath(seriesID, 1): page}}}

	_, err := s.Season(context.Background(), seriesID, 1)
	assert.Equal(t, provider.KindExtraction, provider.KindOf(err))
	assert.Equal(t, provider.StageSeason, provider.StageOf(err))
}

func TestSeasons_ZeroTotalIsEmpty(t *testing.T) {
	f := &stubFetcher{}
	s := &Scraper{Fetcher: f}
	got, err := s.Seasons(context.Background(), seriesID, 0)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Empty(t, f.calls)
}

func TestSeriesByName_UsesTopSearchHit(t *testing.T) {
	pages := seriesPages(t)
	pages[searchPath("lighthouse keepers")] = fixture(t, "search_legacy.html")
	f := &stubFetcher{pages: pages}
	s := &Scraper{Fetcher: f}

	got, err := s.SeriesByName(context.Background(), "  lighthouse keepers ")
	require.NoError(t, err)
	assert.Equal(t, seriesID, got.ID)
	assert.Equal(t, 1, f.callsWithPrefix("/find?"))
}

func TestSeriesByName_Blank(t *testing.T) {
	s := &Scraper{Fetcher: &stubFetcher{}}
	_, err := s.SeriesByName(context.Background(), "   ")
	assert.Equal(t, provider.KindInvalidInput, provider.KindOf(err))
}
