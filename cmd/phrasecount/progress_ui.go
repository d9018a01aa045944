package main

import (
	"fmt"
	"io"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/John-Robertt/phrasecount/internal/app/run"
	"github.com/John-Robertt/phrasecount/internal/config"
	"github.com/John-Robertt/phrasecount/internal/domain"
)

var _ run.Observer = (*progressUI)(nil)

// progressUI 是交互终端下的进度输出。
//
// - 只写 stderr，不污染 stdout 的结果行 / JSON
// - 事件驱动：run 层只发事件，这里决定如何展示
// - keepalive：长时间没有剧集完成时定期输出一行
type progressUI struct {
	w   io.Writer
	eff config.EffectiveConfig

	mu          sync.Mutex
	startedAt   time.Time
	lastPrinted time.Time

	workers int
	total   int
	done    int
	matches int
	bytes   int64
	missing int

	keepaliveThreshold time.Duration
	tickerInterval     time.Duration

	stopCh        chan struct{}
	tickerStarted bool
}

func newProgressUI(w io.Writer, eff config.EffectiveConfig) *progressUI {
	return &progressUI{
		w:                  w,
		eff:                eff,
		keepaliveThreshold: 6 * time.Second,
		tickerInterval:     2 * time.Second,
	}
}

func (p *progressUI) OnStart(r domain.Report) {
	now := time.Now()

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.startedAt.IsZero() {
		p.startedAt = now
	}
	p.workers = r.Threads

	fmt.Fprintf(p.w, "[%s] phrasecount run %s\n", now.Format("15:04:05"), shortID(r.RunID))
	fmt.Fprintln(p.w, "配置（生效）:")
	fmt.Fprintf(p.w, "  show: %s\n", r.Title)
	fmt.Fprintf(p.w, "  pattern: %s\n", truncate(r.Pattern, 120))
	fmt.Fprintf(p.w, "  provider: %s\n", r.Provider)
	fmt.Fprintf(p.w, "  index: %s\n", truncate(r.IndexURL, 120))
	fmt.Fprintf(p.w, "  threads: %d\n", r.Threads)
	fmt.Fprintf(p.w, "  timeout: %s\n", formatTimeout(p.eff.Timeout))
	fmt.Fprintf(p.w, "  proxy: %s\n", formatProxy(p.eff.ProxyURL))
	if p.eff.Source != "" {
		fmt.Fprintf(p.w, "  config: %s\n", p.eff.Source)
	}
	fmt.Fprintln(p.w)

	p.lastPrinted = time.Now()
}

func (p *progressUI) OnIndexDone(episodes int, dur time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.total = episodes
	fmt.Fprintf(p.w, "索引: episodes=%d (%s)\n\n", episodes, formatShortDuration(dur))
	if p.total > 0 && !p.tickerStarted {
		p.startTickerLocked()
	}
	p.lastPrinted = time.Now()
}

func (p *progressUI) OnEpisodeDone(done, total int, ep domain.EpisodeResult, dur time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.done = done
	p.total = total
	p.matches += ep.Matches
	p.bytes += ep.Bytes

	note := ""
	if !ep.ScriptFound {
		p.missing++
		note = " (无台词容器，按 0 计)"
	}
	fmt.Fprintf(p.w, "[%d/%d] %s matches=%d size=%s%s (%s)\n",
		done, total, episodeLabel(ep.URL), ep.Matches, formatBytes(ep.Bytes), note, formatShortDuration(dur),
	)
	p.lastPrinted = time.Now()

	// 最后一集完成：停止 ticker，避免在结果输出后又冒出 keepalive。
	if p.done >= p.total {
		p.stopTickerLocked()
	}
}

// Close 停止 keepalive；运行中途失败时由 CLI 调用。可重复调用。
func (p *progressUI) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopTickerLocked()
}

func (p *progressUI) stopTickerLocked() {
	if !p.tickerStarted {
		return
	}
	close(p.stopCh)
	p.tickerStarted = false
}

func (p *progressUI) startTickerLocked() {
	p.stopCh = make(chan struct{})
	p.tickerStarted = true
	stopCh := p.stopCh

	interval := p.tickerInterval
	if interval <= 0 {
		interval = 2 * time.Second
	}
	threshold := p.keepaliveThreshold
	if threshold <= 0 {
		threshold = 6 * time.Second
	}

	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()

		for {
			select {
			case <-t.C:
				p.mu.Lock()
				// Close 与 tick 可能同时就绪：以 tickerStarted 为准。
				if !p.tickerStarted {
					p.mu.Unlock()
					return
				}
				if time.Since(p.lastPrinted) > threshold {
					p.printProgressLocked()
				}
				p.mu.Unlock()
			case <-stopCh:
				return
			}
		}
	}()
}

func (p *progressUI) printProgressLocked() {
	active := p.workers
	if remain := p.total - p.done; remain < active {
		active = remain
	}
	fmt.Fprintf(p.w, "进度: done=%d/%d matches=%d downloaded=%s active=%d elapsed=%s\n",
		p.done, p.total, p.matches, formatBytes(p.bytes), active, formatElapsed(time.Since(p.startedAt)),
	)
	p.lastPrinted = time.Now()
}

// episodeLabel 优先展示 episode 参数（s01e02），否则退回完整 URL。
func episodeLabel(raw string) string {
	u, err := url.Parse(raw)
	if err == nil {
		if ep := strings.TrimSpace(u.Query().Get("episode")); ep != "" {
			return ep
		}
	}
	return truncate(raw, 100)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func formatTimeout(d time.Duration) string {
	if d <= 0 {
		return "off"
	}
	return d.String()
}

func formatProxy(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "off"
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "on (" + truncate(raw, 120) + ")"
	}
	auth := "off"
	if u.User != nil {
		auth = "on"
	}
	return fmt.Sprintf("on (%s://%s, auth=%s)", u.Scheme, u.Host, auth)
}

func truncate(s string, max int) string {
	s = strings.TrimSpace(s)
	if max <= 0 || len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}

func formatShortDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	return fmt.Sprintf("%.1fs", d.Seconds())
}

func formatElapsed(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	sec := int(d.Seconds())
	h := sec / 3600
	m := (sec % 3600) / 60
	s := sec % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}
