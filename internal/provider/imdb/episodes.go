package imdb

import (
	"context"
	"log/slog"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/sync/errgroup"

	"github.com/John-Robertt/imdbscraper/internal/domain"
	"github.com/John-Robertt/imdbscraper/internal/fieldparse"
	"github.com/John-Robertt/imdbscraper/internal/logging"
	"github.com/John-Robertt/imdbscraper/internal/provider"
)

// episodes 把季页面中的每一行并发解析为 Episode。
//
// 约束：
// - 列表容器缺失即失败
// - 行按页面顺序提交；任一行失败取消其余行，不返回部分结果
// - 结果按集号排序
func (s *Scraper) episodes(ctx context.Context, doc *goquery.Document, id domain.ID, season int) ([]domain.Episode, error) {
	log := s.logger(ctx)
	list := doc.Find("div.list.detail.eplist").First()
	if list.Length() == 0 {
		e := scope{stage: provider.StageEpisode, id: id, season: season}.missing("episodeList")
		log.Error("episode list missing", logging.Error(e))
		return nil, e
	}

	rows := list.Children()
	out := make([]domain.Episode, rows.Length())

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.limit())
	rows.Each(func(i int, row *goquery.Selection) {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			ep, err := parseEpisode(scope{stage: provider.StageEpisode, id: id, season: season, row: i + 1}, row)
			if err != nil {
				log.Error("episode extraction failed", slog.Int(logging.FieldRow, i+1), logging.Error(err))
				return err
			}
			out[i] = ep
			return nil
		})
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	domain.SortEpisodes(out)
	return out, nil
}

// parseEpisode 解析单行剧集。纯函数。
func parseEpisode(sc scope, row *goquery.Selection) (domain.Episode, error) {
	rawNum, ok := row.Find(`[itemprop="episodeNumber"]`).First().Attr("content")
	if !ok {
		return domain.Episode{}, sc.missing("episodeNumber")
	}
	num, err := strconv.Atoi(strings.TrimSpace(rawNum))
	if err != nil {
		return domain.Episode{}, sc.malformed("episodeNumber", rawNum, err)
	}
	sc.episode = &num

	nameSel := row.Find(`[itemprop="name"]`).First()
	name := fieldparse.Text(nameSel.Text())
	if nameSel.Length() == 0 || name == "" {
		return domain.Episode{}, sc.missing("name")
	}
	href, ok := nameSel.Attr("href")
	if !ok {
		return domain.Episode{}, sc.missing("link")
	}
	epID, err := fieldparse.TitleIDFromPath(href)
	if err != nil {
		return domain.Episode{}, sc.malformed("link", href, err)
	}

	ep := domain.Episode{ID: epID, Number: num, Name: name}

	if airSel := row.Find(".airdate").First(); airSel.Length() > 0 {
		rawDate := airSel.Text()
		ad, err := fieldparse.Date(rawDate)
		if err != nil {
			return domain.Episode{}, sc.malformed("airdate", strings.TrimSpace(rawDate), err)
		}
		ep.Airdate = ad
	}

	ratingText, hasRating := presentText(row.Find(".ipl-rating-star__rating").First())
	votesText, hasVotes := presentText(row.Find(".ipl-rating-star__total-votes").First())
	switch {
	case hasRating && hasVotes:
		v, err := fieldparse.Rating(ratingText)
		if err != nil {
			return domain.Episode{}, sc.malformed("ratingValue", ratingText, err)
		}
		c, err := fieldparse.Count(votesText)
		if err != nil {
			return domain.Episode{}, sc.malformed("ratingCount", votesText, err)
		}
		ep.RatingValue = &v
		ep.RatingCount = &c
	case hasRating || hasVotes:
		return domain.Episode{}, sc.integrity("rating", "评分值与投票数必须同时存在")
	}

	desc := row.Find(".item_description").First()
	if desc.Length() == 0 {
		return domain.Episode{}, sc.missing("summary")
	}
	// 含链接说明是“补充剧情”占位文案，不是真实简介。
	// 简介原样保留，只去掉首尾空白。
	if desc.Find("a").Length() == 0 {
		ep.Summary = strPtr(strings.TrimSpace(desc.Text()))
	}
	return ep, nil
}

func presentText(sel *goquery.Selection) (string, bool) {
	if sel.Length() == 0 {
		return "", false
	}
	t := fieldparse.Text(sel.Text())
	return t, t != ""
}
