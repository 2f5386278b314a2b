package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// Precision 表示日期的粒度。
type Precision int

const (
	PrecisionYear Precision = iota + 1
	PrecisionMonth
	PrecisionDay
)

// Airdate 是可能只精确到年/月的播出日期。
//
// 约束：Precision 以下的字段为 0（例如 PrecisionYear 时 Month/Day 均为 0）。
type Airdate struct {
	Year      int
	Month     time.Month
	Day       int
	Precision Precision
}

// String 按粒度输出 2006 / 2006-01 / 2006-01-02。
func (a Airdate) String() string {
	switch a.Precision {
	case PrecisionDay:
		return fmt.Sprintf("%04d-%02d-%02d", a.Year, int(a.Month), a.Day)
	case PrecisionMonth:
		return fmt.Sprintf("%04d-%02d", a.Year, int(a.Month))
	default:
		return fmt.Sprintf("%04d", a.Year)
	}
}

func (a Airdate) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

func (a *Airdate) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	layouts := []struct {
		layout string
		p      Precision
	}{
		{"2006-01-02", PrecisionDay},
		{"2006-01", PrecisionMonth},
		{"2006", PrecisionYear},
	}
	for _, l := range layouts {
		t, err := time.Parse(l.layout, s)
		if err != nil {
			continue
		}
		*a = Truncate(t, l.p)
		return nil
	}
	return fmt.Errorf("airdate 格式无效：%q", s)
}

// Truncate 把 t 截断到指定粒度。
func Truncate(t time.Time, p Precision) Airdate {
	a := Airdate{Year: t.Year(), Precision: p}
	if p >= PrecisionMonth {
		a.Month = t.Month()
	}
	if p >= PrecisionDay {
		a.Day = t.Day()
	}
	return a
}
