package count

import (
	"html"
	"regexp"
	"strings"
)

const (
	wrapperOpen  = `<div class="episode_script">`
	wrapperClose = `</div>`
)

// 换行标签的所有常见写法：<br> <BR/> <br /> < br >。
var brRE = regexp.MustCompile(`(?i)<\s*br\s*/?\s*>`)

// Compile 把用户输入的表达式编译为大小写不敏感 + 多行模式。
// 编译一次后可被多个 worker 并发只读使用。
func Compile(expr string) (*regexp.Regexp, error) {
	return regexp.Compile("(?im)" + expr)
}

// Clean 把台词容器片段整理为可匹配的文本：
// 1) 去掉 episode_script 包裹层（存在时）
// 2) 每个换行标签替换为一个空格（跨行的短语才能匹配上）
// 3) 解码 HTML 实体（序列化会把 ' 写成 &#39;）
func Clean(fragment string) string {
	s := fragment
	if i := strings.Index(s, wrapperOpen); i >= 0 {
		s = s[:i] + s[i+len(wrapperOpen):]
		if j := strings.LastIndex(s, wrapperClose); j >= i {
			s = s[:j] + s[j+len(wrapperClose):]
		}
	}
	s = brRE.ReplaceAllString(s, " ")
	return html.UnescapeString(s)
}

// Occurrences 返回 re 在清理后文本中的不重叠匹配次数。
func Occurrences(fragment string, re *regexp.Regexp) int {
	if re == nil || fragment == "" {
		return 0
	}
	return len(re.FindAllStringIndex(Clean(fragment), -1))
}
