package nfo

import (
	"encoding/xml"
	"testing"
	"time"

	"github.com/John-Robertt/imdbscraper/internal/domain"
)

type showOut struct {
	Title         string `xml:"title"`
	OriginalTitle string `xml:"originaltitle"`
	Plot          string `xml:"plot"`
	Runtime       int    `xml:"runtime"`
	Year          int    `xml:"year"`
	Status        string `xml:"status"`
	Season        int    `xml:"season"`
	Episode       int    `xml:"episode"`
	Thumb         string `xml:"thumb"`
	UniqueID      struct {
		Type string `xml:"type,attr"`
		ID   string `xml:",chardata"`
	} `xml:"uniqueid"`
	Ratings *struct {
		Rating struct {
			Value float64 `xml:"value"`
			Votes int     `xml:"votes"`
		} `xml:"rating"`
	} `xml:"ratings"`
	Genres       []string `xml:"genre"`
	NamedSeasons []struct {
		Number int    `xml:"number,attr"`
		Name   string `xml:",chardata"`
	} `xml:"namedseason"`
}

func TestEncode_FullSeries(t *testing.T) {
	orig := "Die Leuchtturmwärter"
	plot := "A keeper's secret."
	poster := "https://img.test/poster.jpg"
	end := 2019
	rv, rc := 8.4, 41234
	d := domain.Duration(52 * time.Minute)
	s := domain.Series{
		ID:              "tt7654321",
		Name:            "The Lighthouse Keepers",
		OriginalName:    &orig,
		Summary:         &plot,
		EpisodeDuration: &d,
		StartYear:       2015,
		EndYear:         &end,
		Genres:          []string{"Drama", "Mystery"},
		RatingValue:     &rv,
		RatingCount:     &rc,
		PosterURL:       &poster,
		NumberSeasons:   2,
		Seasons: []domain.Season{
			{Number: 1, NumberEpisodes: 2},
			{Number: 2, NumberEpisodes: 3},
		},
	}

	b, err := Encode(s)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	var out showOut
	if err := xml.Unmarshal(b, &out); err != nil {
		t.Fatalf("xml.Unmarshal 失败：%v", err)
	}

	if out.Title != s.Name || out.OriginalTitle != orig || out.Plot != plot {
		t.Fatalf("title/originaltitle/plot 不一致：%+v", out)
	}
	if out.Runtime != 52 || out.Year != 2015 || out.Status != "Ended" {
		t.Fatalf("runtime/year/status 不一致：%d %d %q", out.Runtime, out.Year, out.Status)
	}
	if out.Season != 2 || out.Episode != 5 {
		t.Fatalf("season/episode 不一致：%d %d", out.Season, out.Episode)
	}
	if out.UniqueID.Type != "imdb" || out.UniqueID.ID != "tt7654321" {
		t.Fatalf("uniqueid 不一致：%+v", out.UniqueID)
	}
	if out.Ratings == nil || out.Ratings.Rating.Value != 8.4 || out.Ratings.Rating.Votes != 41234 {
		t.Fatalf("ratings 不一致：%+v", out.Ratings)
	}
	if out.Thumb != poster {
		t.Fatalf("thumb 不一致：%q", out.Thumb)
	}
	if len(out.NamedSeasons) != 2 || out.NamedSeasons[1].Number != 2 || out.NamedSeasons[1].Name != "Season 2" {
		t.Fatalf("namedseason 不一致：%+v", out.NamedSeasons)
	}
}

func TestEncode_MinimalSeriesOmitsOptional(t *testing.T) {
	b, err := Encode(domain.Series{ID: "tt0000001", Name: "Harbour", StartYear: 2021})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	var out showOut
	if err := xml.Unmarshal(b, &out); err != nil {
		t.Fatalf("xml.Unmarshal 失败：%v", err)
	}
	if out.Status != "Continuing" {
		t.Fatalf("无结束年份时 status 应为 Continuing，实际=%q", out.Status)
	}
	if out.Ratings != nil || out.OriginalTitle != "" || out.Runtime != 0 {
		t.Fatalf("缺失字段不应输出：%+v", out)
	}
}
