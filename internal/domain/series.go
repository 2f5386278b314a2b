package domain

import (
	"sort"
	"strconv"
	"time"
)

// Series 是一次抓取得到的完整剧集记录。
//
// 约束：
// - NumberSeasons == len(Seasons)
// - EndYear 为 nil 表示仍在播出；两者都存在时 StartYear <= *EndYear
// - Seasons 按 Number 升序；Genres 去空白、去重、保持来源顺序
type Series struct {
	ID              ID        `json:"id"`
	Name            string    `json:"name"`
	OriginalName    *string   `json:"originalName,omitempty"`
	Summary         *string   `json:"summary,omitempty"`
	EpisodeDuration *Duration `json:"episodeDuration,omitempty"`
	StartYear       int       `json:"startYear"`
	EndYear         *int      `json:"endYear,omitempty"`
	Genres          []string  `json:"genres"`
	RatingValue     *float64  `json:"ratingValue,omitempty"`
	RatingCount     *int      `json:"ratingCount,omitempty"`
	PosterURL       *string   `json:"posterURL,omitempty"`
	NumberSeasons   int       `json:"numberSeasons"`
	Seasons         []Season  `json:"seasons"`
}

// Season 是一季的全部剧集。
// NumberEpisodes 是实际抽取到的集数（不是页面声明值）。
type Season struct {
	Number         int       `json:"number"`
	NumberEpisodes int       `json:"numberEpisodes"`
	Episodes       []Episode `json:"episodes"`
}

// Episode 是单集元数据。
// 约束：RatingValue 与 RatingCount 要么同时存在，要么同时缺失。
type Episode struct {
	ID          ID       `json:"id"`
	Number      int      `json:"number"`
	Name        string   `json:"name"`
	Airdate     *Airdate `json:"airdate,omitempty"`
	RatingValue *float64 `json:"ratingValue,omitempty"`
	RatingCount *int     `json:"ratingCount,omitempty"`
	Summary     *string  `json:"summary,omitempty"`
}

// SearchResult 是搜索页的一条命中。
type SearchResult struct {
	ID   ID     `json:"id"`
	Name string `json:"name"`
}

// Duration 是单集时长；JSON 编码为整数分钟。
type Duration time.Duration

func (d Duration) Minutes() int { return int(time.Duration(d) / time.Minute) }

func (d Duration) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Itoa(d.Minutes())), nil
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	m, err := strconv.Atoi(string(b))
	if err != nil {
		return err
	}
	*d = Duration(time.Duration(m) * time.Minute)
	return nil
}

// SortSeasons 按季号升序排列（稳定）。
func SortSeasons(ss []Season) {
	sort.SliceStable(ss, func(i, j int) bool { return ss[i].Number < ss[j].Number })
}

// SortEpisodes 按集号升序排列；集号相同再按 ID 排，保证输出确定。
func SortEpisodes(es []Episode) {
	sort.SliceStable(es, func(i, j int) bool {
		if es[i].Number != es[j].Number {
			return es[i].Number < es[j].Number
		}
		return es[i].ID < es[j].ID
	})
}
