package springfield

import (
	"reflect"
	"strings"
	"testing"
)

func TestSlug(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"The Simpsons", "the-simpsons"},
		{"  Breaking   Bad ", "breaking-bad"},
		{"FRIENDS", "friends"},
		{"Ça\tva", "ça-va"},
		{"", ""},
	}
	for _, c := range cases {
		if got := Slug(c.in); got != c.want {
			t.Fatalf("Slug(%q)：期望 %q，实际 %q", c.in, c.want, got)
		}
	}
}

func TestIndexURL(t *testing.T) {
	got := Provider{}.IndexURL("The Simpsons")
	want := "http://www.springfieldspringfield.co.uk/episode_scripts.php?tv-show=the-simpsons"
	if got != want {
		t.Fatalf("期望 %q，实际 %q", want, got)
	}

	// BaseURL 缺少末尾 / 也应拼出同样的路径。
	got = Provider{BaseURL: "http://127.0.0.1:1234"}.IndexURL("x y")
	want = "http://127.0.0.1:1234/episode_scripts.php?tv-show=x-y"
	if got != want {
		t.Fatalf("期望 %q，实际 %q", want, got)
	}
}

func TestEpisodeLinks_AbsoluteRelativeOrderAndFilter(t *testing.T) {
	html := `<html><body>
<a href="/">Home</a>
<a href="view_episode_scripts.php?tv-show=x&amp;episode=s01e01">1</a>
<a href="https://mirror.test/view_episode_scripts.php?tv-show=x&amp;episode=s01e02">2</a>
<a href="/tv_show_episode_scripts.php?tv-show=x">Nav</a>
<a>no href</a>
<a href="/view_episode_scripts.php?tv-show=x&amp;episode=s02e10">3</a>
<a href="view_episode_scripts.php?tv-show=x&amp;episode=s01e01">1 again</a>
</body></html>`

	p := Provider{BaseURL: "http://site.test/"}
	got, err := p.EpisodeLinks([]byte(html))
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	want := []string{
		"http://site.test/view_episode_scripts.php?tv-show=x&episode=s01e01",
		"https://mirror.test/view_episode_scripts.php?tv-show=x&episode=s01e02",
		"http://site.test/view_episode_scripts.php?tv-show=x&episode=s02e10",
		"http://site.test/view_episode_scripts.php?tv-show=x&episode=s01e01",
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("links 不符合预期：\n got=%q\nwant=%q", got, want)
	}
}

func TestEpisodeLinks_NoneIsNotAnError(t *testing.T) {
	got, err := Provider{}.EpisodeLinks([]byte(`<html><body><a href="/about">a</a></body></html>`))
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if len(got) != 0 {
		t.Fatalf("期望 0 条链接，实际 %q", got)
	}
}

func TestScript_ReturnsContainerContents(t *testing.T) {
	html := `<html><body>
<div class="nav">hello there (nav)</div>
<div class="scrolling-script-container"><div class="episode_script">Hello there.<br>General Kenobi</div></div>
</body></html>`

	got, ok, err := Provider{}.Script([]byte(html))
	if err != nil || !ok {
		t.Fatalf("期望找到容器：ok=%v err=%v", ok, err)
	}
	if strings.Contains(got, "nav") {
		t.Fatalf("不应包含容器外内容：%q", got)
	}
	if !strings.HasPrefix(got, `<div class="episode_script">`) || !strings.Contains(got, "General Kenobi") {
		t.Fatalf("容器内容不符合预期：%q", got)
	}
}

func TestScript_MissingContainerIsEmpty(t *testing.T) {
	got, ok, err := Provider{}.Script([]byte(`<html><body><p>maintenance</p></body></html>`))
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if ok || got != "" {
		t.Fatalf("缺少容器应返回空脚本：ok=%v got=%q", ok, got)
	}

	got, ok, err = Provider{}.Script(nil)
	if err != nil || ok || got != "" {
		t.Fatalf("空 body 应返回空脚本：ok=%v got=%q err=%v", ok, got, err)
	}
}
