package springfield

import (
	"bytes"
	"errors"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// DefaultBaseURL 是站点根地址（末尾必须带 /，相对链接按它解析）。
const DefaultBaseURL = "http://www.springfieldspringfield.co.uk/"

const (
	indexPath      = "episode_scripts.php"
	scriptSelector = "div.scrolling-script-container"
)

// 剧集链接形如 view_episode_scripts.php?tv-show=x&episode=s01e02。
var episodeRE = regexp.MustCompile(`s\d+e\d+`)

// Provider 实现 springfieldspringfield 的 URL 拼接与 HTML 解析。
type Provider struct {
	// BaseURL 为空时使用 DefaultBaseURL（测试中指向 httptest 服务）。
	BaseURL string
}

func (Provider) Name() string { return "springfield" }

func (p Provider) baseURL() string {
	u := strings.TrimSpace(p.BaseURL)
	if u == "" {
		return DefaultBaseURL
	}
	if !strings.HasSuffix(u, "/") {
		u += "/"
	}
	return u
}

// Slug 把剧名规范化为站点使用的形式：小写 + 空白折叠为 "-"。
// 例如 "The  Simpsons" => "the-simpsons"。
func Slug(title string) string {
	lower := cases.Lower(language.Und).String(title)
	return strings.Join(strings.Fields(lower), "-")
}

// IndexURL 返回剧集索引页：<base>/episode_scripts.php?tv-show=<slug>
func (p Provider) IndexURL(title string) string {
	return resolveURL(p.baseURL(), indexPath) + "?tv-show=" + url.QueryEscape(Slug(title))
}

// EpisodeLinks 从索引页提取所有带 sNNeNN 标识的链接。
// 相对链接按 base 解析为绝对 URL；保持文档顺序，不去重。
func (p Provider) EpisodeLinks(html []byte) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return nil, err
	}

	base := p.baseURL()
	links := make([]string, 0, 64)
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		href = strings.TrimSpace(href)
		if !episodeRE.MatchString(href) {
			return
		}
		if u := resolveURL(base, href); u != "" {
			links = append(links, u)
		}
	})
	return links, nil
}

// Script 返回台词容器的内部 HTML。
// 容器不存在（站点改版/返回了非剧集页）时 ok=false，上层按空脚本处理。
func (Provider) Script(html []byte) (string, bool, error) {
	if len(html) == 0 {
		return "", false, nil
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return "", false, err
	}
	sel := doc.Find(scriptSelector).First()
	if sel.Length() == 0 {
		return "", false, nil
	}
	inner, err := sel.Html()
	if err != nil {
		return "", false, errors.New("序列化台词容器失败：" + err.Error())
	}
	return inner, true, nil
}

func resolveURL(base, href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	bu, err := url.Parse(base)
	if err != nil {
		return ""
	}
	ru, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if ru.IsAbs() {
		return href
	}
	return bu.ResolveReference(ru).String()
}
