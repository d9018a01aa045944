package main

import (
	"bytes"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/John-Robertt/phrasecount/internal/config"
	"github.com/John-Robertt/phrasecount/internal/domain"
)

// lockedBuffer 允许 ticker goroutine 与测试并发访问。
type lockedBuffer struct {
	mu sync.Mutex
	b  bytes.Buffer
}

func (l *lockedBuffer) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.b.Write(p)
}

func (l *lockedBuffer) String() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.b.String()
}

func TestProgressUI_EventLines(t *testing.T) {
	var buf lockedBuffer
	ui := newProgressUI(&buf, config.EffectiveConfig{Timeout: 20 * time.Second, ProxyURL: "http://user:pw@127.0.0.1:8080"})
	defer ui.Close()

	ui.OnStart(domain.Report{
		RunID:    "0123456789abcdef",
		Provider: "springfield",
		Title:    "The Show",
		Pattern:  "hello",
		IndexURL: "http://x/episode_scripts.php?tv-show=the-show",
		Threads:  4,
	})
	ui.OnIndexDone(2, 300*time.Millisecond)
	ui.OnEpisodeDone(1, 2, domain.EpisodeResult{
		URL: "http://x/view_episode_scripts.php?tv-show=the-show&episode=s01e02", Matches: 3, Bytes: 2048, ScriptFound: true,
	}, time.Second)
	ui.OnEpisodeDone(2, 2, domain.EpisodeResult{URL: "http://x/other"}, 0)

	out := buf.String()
	for _, want := range []string{
		"phrasecount run 01234567",
		"threads: 4",
		"timeout: 20s",
		"proxy: on (http://127.0.0.1:8080, auth=on)",
		"索引: episodes=2 (0.3s)",
		"[1/2] s01e02 matches=3 size=2.0 kB (1.0s)",
		"[2/2] http://x/other matches=0 size=0 B (无台词容器，按 0 计)",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("输出缺少 %q：\n%s", want, out)
		}
	}
	if strings.Contains(out, "pw") {
		t.Fatalf("不应输出代理密码：\n%s", out)
	}
}

func TestProgressUI_KeepaliveStopsOnClose(t *testing.T) {
	var buf lockedBuffer
	ui := newProgressUI(&buf, config.EffectiveConfig{})
	ui.tickerInterval = 5 * time.Millisecond
	ui.keepaliveThreshold = time.Millisecond

	ui.OnStart(domain.Report{Threads: 2})
	ui.OnIndexDone(3, 0)

	deadline := time.Now().Add(2 * time.Second)
	for !strings.Contains(buf.String(), "进度: done=0/3") {
		if time.Now().After(deadline) {
			t.Fatalf("超时：未输出 keepalive：\n%s", buf.String())
		}
		time.Sleep(5 * time.Millisecond)
	}

	ui.Close()
	ui.Close()
	before := buf.String()
	time.Sleep(30 * time.Millisecond)
	if after := buf.String(); after != before {
		t.Fatalf("Close 之后不应再输出：\n%s", after[len(before):])
	}
}

func TestFormatHelpers(t *testing.T) {
	if got := formatProxy(""); got != "off" {
		t.Fatalf("期望 off，实际 %q", got)
	}
	if got := formatTimeout(0); got != "off" {
		t.Fatalf("期望 off，实际 %q", got)
	}
	if got := truncate("abcdefghij", 6); got != "abc..." {
		t.Fatalf("期望 abc...，实际 %q", got)
	}
	if got := formatElapsed(3725 * time.Second); got != "01:02:05" {
		t.Fatalf("期望 01:02:05，实际 %q", got)
	}
	if got := episodeLabel("http://x/view?episode=s10e22"); got != "s10e22" {
		t.Fatalf("期望 s10e22，实际 %q", got)
	}
}

func TestRenderBreakdown(t *testing.T) {
	rr := domain.Report{
		Occurrences:     2,
		BytesDownloaded: 1500,
		Episodes: []domain.EpisodeResult{
			{URL: "http://x/v?episode=s01e01", Matches: 2, Bytes: 1000, ScriptFound: true},
			{URL: "http://x/v?episode=s01e02", Matches: 0, Bytes: 500},
		},
	}
	out := renderBreakdown(rr)
	for _, want := range []string{"EPISODE", "MATCHES", "s01e01", "s01e02", "missing", "total", "1.5 kB"} {
		if !strings.Contains(out, want) {
			t.Fatalf("明细表缺少 %q：\n%s", want, out)
		}
	}
}
