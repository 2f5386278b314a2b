package imdb

import (
	"encoding/json"
	"errors"
	"html"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/John-Robertt/imdbscraper/internal/fieldparse"
)

// linkedData 是标题页内嵌的 schema.org JSON（只声明用到的字段，其余忽略）。
type linkedData struct {
	Type            string           `json:"@type"`
	Name            string           `json:"name"`
	AlternateName   string           `json:"alternateName"`
	Image           string           `json:"image"`
	Description     string           `json:"description"`
	AggregateRating *aggregateRating `json:"aggregateRating"`
	Genre           stringList       `json:"genre"`
}

type aggregateRating struct {
	RatingCount *int     `json:"ratingCount"`
	RatingValue *float64 `json:"ratingValue"`
}

// stringList 兼容 "genre": "Drama" 与 "genre": ["Crime","Drama"] 两种写法。
type stringList []string

func (l *stringList) UnmarshalJSON(b []byte) error {
	var one string
	if err := json.Unmarshal(b, &one); err == nil {
		*l = stringList{one}
		return nil
	}
	var many []string
	if err := json.Unmarshal(b, &many); err != nil {
		return err
	}
	*l = many
	return nil
}

var errNoLinkedData = errors.New("no linked data")

// decodeLinkedData 读取第一个 application/ld+json 脚本。
//
// 返回：
// - raw：脚本原文（失败时用于诊断）
// - errNoLinkedData：页面上没有该脚本
func decodeLinkedData(doc *goquery.Document) (ld linkedData, raw string, err error) {
	sel := doc.Find(`script[type^="application/ld+json"]`).First()
	if sel.Length() == 0 {
		return linkedData{}, "", errNoLinkedData
	}
	raw = strings.TrimSpace(sel.Text())
	if raw == "" {
		return linkedData{}, "", errNoLinkedData
	}
	if err := json.Unmarshal([]byte(raw), &ld); err != nil {
		return linkedData{}, raw, err
	}
	ld.Type = strings.TrimSpace(ld.Type)
	ld.Name = cleanText(ld.Name)
	ld.AlternateName = cleanText(ld.AlternateName)
	ld.Description = cleanText(ld.Description)
	ld.Image = strings.TrimSpace(ld.Image)
	return ld, raw, nil
}

// cleanText 反转义 HTML 实体（页面 JSON 中常见 &apos; / &amp;）并规范化空白。
func cleanText(s string) string {
	return fieldparse.Text(html.UnescapeString(s))
}

// normGenres 去空白、去重、保持来源顺序。
func normGenres(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, g := range in {
		g = cleanText(g)
		if g == "" {
			continue
		}
		if _, ok := seen[g]; ok {
			continue
		}
		seen[g] = struct{}{}
		out = append(out, g)
	}
	return out
}
