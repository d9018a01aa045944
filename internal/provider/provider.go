package provider

import "fmt"

// Provider 把“站点变化”限制在 provider 包内部；核心流程只依赖统一接口。
//
// 约束：
// - Provider 只负责“拼 URL + 解析 HTML”，不发请求（抓取统一走 Fetcher）
// - EpisodeLinks/Script 必须是纯函数：相同输入 => 相同输出
type Provider interface {
	Name() string
	// IndexURL 返回剧集索引页 URL（title 为用户输入的原始剧名）。
	IndexURL(title string) string
	// EpisodeLinks 从索引页提取全部剧集脚本链接（绝对 URL，按文档顺序，不去重）。
	EpisodeLinks(html []byte) ([]string, error)
	// Script 从剧集页提取台词容器内容；容器不存在时 ok=false（视为空脚本）。
	Script(html []byte) (script string, ok bool, err error)
}

// Error 是 provider 阶段的可追溯错误。
// 上层可以据此区分 fetch / parse 失败。
type Error struct {
	Stage string // "fetch" 或 "parse"
	URL   string
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("stage=%s url=%s: %v", e.Stage, e.URL, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }
