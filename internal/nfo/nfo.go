package nfo

import (
	"encoding/xml"
	"fmt"
	"strconv"

	"github.com/John-Robertt/imdbscraper/internal/domain"
)

type tvshow struct {
	XMLName xml.Name `xml:"tvshow"`

	Title         string `xml:"title"`
	OriginalTitle string `xml:"originaltitle,omitempty"`
	ShowTitle     string `xml:"showtitle"`

	Ratings *ratings `xml:"ratings,omitempty"`

	Plot    string `xml:"plot,omitempty"`
	Runtime int    `xml:"runtime,omitempty"`
	Thumb   *thumb `xml:"thumb,omitempty"`

	UniqueID uniqueID `xml:"uniqueid"`
	Genres   []string `xml:"genre,omitempty"`
	Year     int      `xml:"year,omitempty"`
	Status   string   `xml:"status"`

	Season       int           `xml:"season"`
	Episode      int           `xml:"episode"`
	NamedSeasons []namedSeason `xml:"namedseason,omitempty"`
}

type ratings struct {
	Rating []rating `xml:"rating"`
}

type rating struct {
	Name    string  `xml:"name,attr"`
	Max     int     `xml:"max,attr"`
	Default bool    `xml:"default,attr"`
	Value   float64 `xml:"value"`
	Votes   int     `xml:"votes"`
}

type thumb struct {
	Aspect string `xml:"aspect,attr"`
	URL    string `xml:",chardata"`
}

type uniqueID struct {
	Type    string `xml:"type,attr"`
	Default bool   `xml:"default,attr"`
	ID      string `xml:",chardata"`
}

type namedSeason struct {
	Number int    `xml:"number,attr"`
	Name   string `xml:",chardata"`
}

// Encode 把 Series 转成 Kodi/Jellyfin/Emby 可读取的 tvshow.nfo（XML）。
//
// 规则：
// - 可选字段缺失时省略对应元素；评分只在值与票数同时存在时输出
// - status：有结束年份 => Ended，否则 Continuing
// - episode 为全部季的集数之和
func Encode(s domain.Series) ([]byte, error) {
	show := tvshow{
		Title:     s.Name,
		ShowTitle: s.Name,
		UniqueID:  uniqueID{Type: "imdb", Default: true, ID: string(s.ID)},
		Genres:    s.Genres,
		Year:      s.StartYear,
		Status:    "Continuing",
		Season:    s.NumberSeasons,
	}
	if s.OriginalName != nil {
		show.OriginalTitle = *s.OriginalName
	}
	if s.Summary != nil {
		show.Plot = *s.Summary
	}
	if s.EpisodeDuration != nil {
		show.Runtime = s.EpisodeDuration.Minutes()
	}
	if s.PosterURL != nil {
		show.Thumb = &thumb{Aspect: "poster", URL: *s.PosterURL}
	}
	if s.RatingValue != nil && s.RatingCount != nil {
		show.Ratings = &ratings{Rating: []rating{{
			Name: "imdb", Max: 10, Default: true,
			Value: *s.RatingValue, Votes: *s.RatingCount,
		}}}
	}
	if s.EndYear != nil {
		show.Status = "Ended"
	}
	for _, season := range s.Seasons {
		show.Episode += season.NumberEpisodes
		show.NamedSeasons = append(show.NamedSeasons, namedSeason{
			Number: season.Number,
			Name:   "Season " + strconv.Itoa(season.Number),
		})
	}

	b, err := xml.MarshalIndent(show, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode tvshow.nfo: %w", err)
	}
	// 约定：输出带 standalone="yes" 的 XML 头，便于与常见刮削器产物兼容。
	const header = `<?xml version="1.0" encoding="UTF-8" standalone="yes" ?>` + "\n"
	return append([]byte(header), b...), nil
}
