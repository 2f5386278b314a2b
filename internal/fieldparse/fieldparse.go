// Package fieldparse 把页面上抽到的原始文本解析为强类型字段。
//
// 约束：
// - 所有函数都是纯函数：相同输入 => 相同输出，无 I/O、无共享状态
// - 失败统一返回 *Error，携带解析器名与原始输入，便于上层定位
package fieldparse

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"github.com/John-Robertt/imdbscraper/internal/domain"
)

// Error 表示某个解析器无法识别输入。
type Error struct {
	Parser string // "year_range" / "duration" / "date" / ...
	Input  string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s：无法解析 %q：%v", e.Parser, e.Input, e.Err)
	}
	return fmt.Sprintf("%s：无法解析 %q", e.Parser, e.Input)
}

func (e *Error) Unwrap() error { return e.Err }

// IsParseError 判断 err 是否为解析失败。
func IsParseError(err error) bool {
	var e *Error
	return errors.As(err, &e)
}

var (
	singleYearRE = regexp.MustCompile(`^(\d{4})$`)
	yearRangeRE  = regexp.MustCompile(`^(\d{4})\s*–\s*(\d{4})?$`)
)

// YearRange 解析播出年份区间。
//
// 规则：
// - "2015"      => start=2015, end=2015（单年优先匹配）
// - "2015–2019" => start=2015, end=2019（分隔符为 en dash）
// - "2015–"     => start=2015, end=nil（仍在播出）
// - 其它（例如 "2014---2019"）=> 错误
func YearRange(s string) (start int, end *int, err error) {
	in := s
	s = strings.TrimSpace(s)
	if m := singleYearRE.FindStringSubmatch(s); m != nil {
		y, _ := strconv.Atoi(m[1])
		return y, &y, nil
	}
	m := yearRangeRE.FindStringSubmatch(s)
	if m == nil {
		return 0, nil, &Error{Parser: "year_range", Input: in}
	}
	start, _ = strconv.Atoi(m[1])
	if m[2] == "" {
		return start, nil, nil
	}
	e, _ := strconv.Atoi(m[2])
	return start, &e, nil
}

var durationRE = regexp.MustCompile(`^(?:(\d+)(?:hours|hour|hrs|hr|h))?(?:(\d+)(?:minutes|minute|mins|min|m))?$`)

// maxDurationPart 限制小时与分钟各自的数值，保证相加不会溢出 time.Duration。
const maxDurationPart = 100000

// Duration 解析 "1h 23m" / "52m" / "1 hour 3 minutes" 形式的时长。
// 空白不敏感；小时与分钟至少出现其一；空串视为错误。
func Duration(s string) (time.Duration, error) {
	in := s
	s = strings.ToLower(stripSpace(s))
	if s == "" {
		return 0, &Error{Parser: "duration", Input: in, Err: errors.New("空值")}
	}
	m := durationRE.FindStringSubmatch(s)
	if m == nil || (m[1] == "" && m[2] == "") {
		return 0, &Error{Parser: "duration", Input: in}
	}
	var d time.Duration
	if m[1] != "" {
		h, err := strconv.Atoi(m[1])
		if err != nil {
			return 0, &Error{Parser: "duration", Input: in, Err: err}
		}
		if h > maxDurationPart {
			return 0, &Error{Parser: "duration", Input: in, Err: fmt.Errorf("小时数超过上限 %d", maxDurationPart)}
		}
		d += time.Duration(h) * time.Hour
	}
	if m[2] != "" {
		mi, err := strconv.Atoi(m[2])
		if err != nil {
			return 0, &Error{Parser: "duration", Input: in, Err: err}
		}
		if mi > maxDurationPart {
			return 0, &Error{Parser: "duration", Input: in, Err: fmt.Errorf("分钟数超过上限 %d", maxDurationPart)}
		}
		d += time.Duration(mi) * time.Minute
	}
	return d, nil
}

// dateLayouts 按从细到粗的顺序尝试；第一个成功的格式决定粒度。
var dateLayouts = []struct {
	layout    string
	precision domain.Precision
}{
	{"2 Jan. 2006", domain.PrecisionDay},
	{"2 Jan 2006", domain.PrecisionDay},
	{"Jan. 2006", domain.PrecisionMonth},
	{"Jan 2006", domain.PrecisionMonth},
	{"2006", domain.PrecisionYear},
}

// Date 解析播出日期。
//
// 规则：
// - 空白输入 => (nil, nil)：日期缺失是合法状态
// - 按 dateLayouts 顺序尝试；全部失败 => 错误
func Date(s string) (*domain.Airdate, error) {
	in := s
	s = strings.Join(strings.Fields(s), " ")
	if s == "" {
		return nil, nil
	}
	// "Sept." 是英文页面常见写法，time 包只认三字母缩写。
	s = strings.Replace(s, "Sept.", "Sep.", 1)
	for _, l := range dateLayouts {
		t, err := time.Parse(l.layout, s)
		if err != nil {
			continue
		}
		a := domain.Truncate(t, l.precision)
		return &a, nil
	}
	return nil, &Error{Parser: "date", Input: in}
}

// Count 解析投票数之类的计数："(1,234)" => 1234。
func Count(s string) (int, error) {
	in := s
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		s = s[1 : len(s)-1]
	}
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", ""))
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, &Error{Parser: "count", Input: in, Err: err}
	}
	if n < 0 {
		return 0, &Error{Parser: "count", Input: in, Err: errors.New("计数不能为负")}
	}
	return n, nil
}

// Rating 解析 0~10 的评分值。
func Rating(s string) (float64, error) {
	in := s
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, &Error{Parser: "rating", Input: in, Err: err}
	}
	if v < 0 || v > 10 {
		return 0, &Error{Parser: "rating", Input: in, Err: errors.New("超出 [0,10]")}
	}
	return v, nil
}

var seasonCountRE = regexp.MustCompile(`(?i)^(\d+)\s*seasons?$`)

// MaxSeasons 是可接受的季数上限；超过即视为页面异常。
const MaxSeasons = 1000

// SeasonCount 解析 "2 Seasons" / "1 season"。结果不超过 MaxSeasons。
func SeasonCount(s string) (int, error) {
	in := s
	m := seasonCountRE.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return 0, &Error{Parser: "season_count", Input: in}
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, &Error{Parser: "season_count", Input: in, Err: err}
	}
	if n > MaxSeasons {
		return 0, &Error{Parser: "season_count", Input: in, Err: fmt.Errorf("超过上限 %d", MaxSeasons)}
	}
	return n, nil
}

var titlePathRE = regexp.MustCompile(`^/title/([a-zA-Z0-9]+)/(?:.+)?$`)

// TitleIDFromPath 从链接中取出标题 ID：/title/tt0959621/?ref_=... => tt0959621。
// 绝对 URL 只看 path 部分。
func TitleIDFromPath(href string) (domain.ID, error) {
	in := href
	href = strings.TrimSpace(href)
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		u, err := url.Parse(href)
		if err != nil {
			return "", &Error{Parser: "title_link", Input: in, Err: err}
		}
		href = u.Path
	}
	m := titlePathRE.FindStringSubmatch(href)
	if m == nil {
		return "", &Error{Parser: "title_link", Input: in}
	}
	return domain.ID(m[1]), nil
}

// Text 规范化页面文本：NFC + 折叠连续空白 + 去首尾空白。
func Text(s string) string {
	return strings.Join(strings.Fields(norm.NFC.String(s)), " ")
}

func stripSpace(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}
