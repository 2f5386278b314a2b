package domain

import (
	"regexp"
	"strings"
)

// ID 是标题的唯一主键（形如 tt0903747）。
//
// 约束：只做词法校验；是否真实存在由抓取阶段判定（404 => not_found）。
type ID string

var idRE = regexp.MustCompile(`^tt\d{7,8}$`)

// ParseID 校验并解析标题 ID。
// 输入允许首尾空白；大小写敏感（前缀必须是小写 tt）。
func ParseID(s string) (ID, bool) {
	s = strings.TrimSpace(s)
	if !idRE.MatchString(s) {
		return "", false
	}
	return ID(s), true
}

func (id ID) String() string { return string(id) }
