package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/John-Robertt/imdbscraper/internal/domain"
)

// Kind 是抓取失败的分类；REST/CLI 层只依赖 Kind 做映射。
type Kind string

const (
	KindInvalidInput      Kind = "invalid_input"
	KindNotFound          Kind = "not_found"
	KindTitleTypeMismatch Kind = "title_type_mismatch"
	KindConnection        Kind = "connection_error"
	KindExtraction        Kind = "extraction_error"
	KindDataIntegrity     Kind = "data_integrity_error"
	KindNoResults         Kind = "no_results"
)

// Stage 标记失败发生在流水线的哪一层。
type Stage string

const (
	StageSeries  Stage = "series"
	StageSeason  Stage = "season"
	StageEpisode Stage = "episode"
	StageSearch  Stage = "search"
)

// Error 是抓取流水线唯一的错误类型。
//
// 约束：
// - 诊断上下文（ID/Season/Row/Episode）在失败点显式填入，不依赖任何全局状态
// - Missing=true 表示字段缺失；否则 Raw 是“存在但无法解析”的原始输入
// - fan-out 各层原样向上传递，不重新包装
type Error struct {
	Kind  Kind
	Stage Stage

	ID      domain.ID
	Season  int  // 0 表示不适用
	Row     int  // 剧集列表中的行号（从 1 开始）；0 表示不适用
	Episode *int // 已解析出的集号

	Field    string
	Raw      string
	Missing  bool
	Observed string // title_type_mismatch 时页面声明的类型

	Msg string
	Err error
}

func (e *Error) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s", e.Kind)
	if e.Stage != "" {
		fmt.Fprintf(&b, " stage=%s", e.Stage)
	}
	if e.ID != "" {
		fmt.Fprintf(&b, " id=%s", e.ID)
	}
	if e.Season > 0 {
		fmt.Fprintf(&b, " season=%d", e.Season)
	}
	if e.Row > 0 {
		fmt.Fprintf(&b, " row=%d", e.Row)
	}
	if e.Episode != nil {
		fmt.Fprintf(&b, " episode=%d", *e.Episode)
	}
	if e.Field != "" {
		fmt.Fprintf(&b, " field=%s", e.Field)
	}
	switch {
	case e.Missing:
		b.WriteString("：字段缺失")
	case e.Raw != "":
		fmt.Fprintf(&b, "：无法解析 %q", e.Raw)
	}
	if e.Observed != "" {
		fmt.Fprintf(&b, "：实际类型 %q", e.Observed)
	}
	if e.Msg != "" {
		b.WriteString("：")
		b.WriteString(e.Msg)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, "：%v", e.Err)
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf 从 error 中提取 Kind；若不是 *Error 则返回空串。
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// StageOf 从 error 中提取 Stage；若不是 *Error 则返回空串。
func StageOf(err error) Stage {
	var e *Error
	if errors.As(err, &e) {
		return e.Stage
	}
	return ""
}

// FromFetch 把 Fetcher 的错误归类为 not_found 或 connection_error。
//
// 规则：
// - 404 => not_found
// - 其它 HTTP 状态、传输错误、超时、验证页拦截 => connection_error
func FromFetch(stage Stage, id domain.ID, err error) *Error {
	kind := KindConnection
	msg := ""
	if IsNotFound(err) {
		kind = KindNotFound
	} else if errors.Is(err, context.DeadlineExceeded) {
		msg = "抓取超时"
	} else {
		var be *BlockedError
		if errors.As(err, &be) {
			msg = "请求被站点拦截（请降低频率或配置代理）"
		} else if errors.Is(err, ErrBodyTooLarge) {
			msg = "页面过大"
		}
	}
	return &Error{Kind: kind, Stage: stage, ID: id, Msg: msg, Err: err}
}
