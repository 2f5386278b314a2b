package imdb

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/John-Robertt/imdbscraper/internal/domain"
	"github.com/John-Robertt/imdbscraper/internal/fieldparse"
	"github.com/John-Robertt/imdbscraper/internal/logging"
	"github.com/John-Robertt/imdbscraper/internal/provider"
)

// Seasons 并发抓取 1..total 季，按季号升序返回。
//
// 约束：
// - 每季一个任务，同时运行的任务数受 Concurrency 限制
// - 任一季失败：取消其余季，原样返回该错误，不返回部分结果
// - total < 1 返回空集合
func (s *Scraper) Seasons(ctx context.Context, id domain.ID, total int) ([]domain.Season, error) {
	if total < 1 {
		return []domain.Season{}, nil
	}
	if total > fieldparse.MaxSeasons {
		return nil, scope{stage: provider.StageSeries, id: id}.malformed("numberSeasons", strconv.Itoa(total),
			fmt.Errorf("季数超过上限 %d", fieldparse.MaxSeasons))
	}
	out := make([]domain.Season, total)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.limit())
	for n := 1; n <= total; n++ {
		n := n
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			season, err := s.Season(gctx, id, n)
			if err != nil {
				return err
			}
			out[n-1] = season
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	domain.SortSeasons(out)
	return out, nil
}

// Season 抓取第 n 季的剧集列表页并抽取全部剧集。
//
// 页面声明的集数只用于校验：与实际抽到的数量不一致时记 warning，
// Season.NumberEpisodes 始终等于实际数量。
func (s *Scraper) Season(ctx context.Context, id domain.ID, n int) (domain.Season, error) {
	f, err := s.fetcher()
	if err != nil {
		return domain.Season{}, err
	}
	log := s.logger(ctx).With(slog.Int(logging.FieldSeason, n))
	ctx = logging.WithLogger(ctx, log)
	sc := scope{stage: provider.StageSeason, id: id, season: n}

	log.Debug("fetching season")
	doc, err := f.Fetch(ctx, seasonPath(id, n))
	if err != nil {
		e := sc.fetch(err)
		if errors.Is(err, context.Canceled) {
			log.Debug("season fetch canceled", logging.Error(e))
		} else {
			log.Error("season fetch failed", logging.Error(e))
		}
		return domain.Season{}, e
	}

	raw, ok := doc.Find(`[itemprop="numberofEpisodes"]`).First().Attr("content")
	if !ok {
		e := sc.missing("numberofEpisodes")
		log.Error("season extraction failed", logging.Error(e))
		return domain.Season{}, e
	}
	declared, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		e := sc.malformed("numberofEpisodes", raw, err)
		log.Error("season extraction failed", logging.Error(e))
		return domain.Season{}, e
	}

	eps, err := s.episodes(ctx, doc, id, n)
	if err != nil {
		return domain.Season{}, err
	}
	if declared != len(eps) {
		log.Warn("declared episode count differs from extracted",
			slog.Int("declared", declared),
			slog.Int("extracted", len(eps)),
		)
	}
	log.Debug("season scraped", slog.Int("episodes", len(eps)))
	return domain.Season{Number: n, NumberEpisodes: len(eps), Episodes: eps}, nil
}
