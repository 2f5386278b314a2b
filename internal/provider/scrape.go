package provider

import "strings"

// Strategy 是某个字段的一种抽取方式。
//
// Run 的返回约定：
// - found=false, err=nil：该方式在页面上找不到目标（允许尝试下一个）
// - err!=nil：目标存在但格式不对（硬失败，不再尝试后续方式）
type Strategy[T any] struct {
	Name string
	Run  func() (v T, found bool, err error)
}

// Attempt 记录一次策略尝试（用于解释回退原因）。
// 注意：这是内部执行轨迹，只用于日志，不进入结果。
type Attempt struct {
	Strategy string
	Stage    string // "absent" / "error" / "ok"
	Err      error
}

// FirstOf 按顺序尝试 strategies，返回第一个命中的值。
// 全部 absent 时 found=false；任一硬失败立即返回其错误。
func FirstOf[T any](strategies ...Strategy[T]) (v T, found bool, err error) {
	v, _, found, _, err = FirstOfTrace(strategies...)
	return v, found, err
}

// FirstOfTrace 与 FirstOf 相同，但额外返回命中的策略名与尝试链路。
func FirstOfTrace[T any](strategies ...Strategy[T]) (v T, used string, found bool, attempts []Attempt, err error) {
	var zero T
	for _, s := range strategies {
		name := strings.TrimSpace(s.Name)
		if s.Run == nil {
			attempts = append(attempts, Attempt{Strategy: name, Stage: "absent"})
			continue
		}
		got, ok, rerr := s.Run()
		if rerr != nil {
			attempts = append(attempts, Attempt{Strategy: name, Stage: "error", Err: rerr})
			return zero, name, false, attempts, rerr
		}
		if !ok {
			attempts = append(attempts, Attempt{Strategy: name, Stage: "absent"})
			continue
		}
		attempts = append(attempts, Attempt{Strategy: name, Stage: "ok"})
		return got, name, true, attempts, nil
	}
	return zero, "", false, attempts, nil
}
