package run

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"regexp"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/John-Robertt/phrasecount/internal/app"
	"github.com/John-Robertt/phrasecount/internal/count"
	"github.com/John-Robertt/phrasecount/internal/domain"
	"github.com/John-Robertt/phrasecount/internal/logging"
	"github.com/John-Robertt/phrasecount/internal/provider"
)

// Options 是一次运行的全部输入。
type Options struct {
	Title   string
	Pattern string         // 用户输入的原始表达式（用于输出）
	Regexp  *regexp.Regexp // 由 count.Compile 编译，所有 worker 共享只读
	Threads int            // <1 时取 app.DefaultWorkers

	Provider provider.Provider
	Client   *http.Client
	Logger   *slog.Logger
}

type episodeJob struct {
	idx int
	url string
}

// Execute 执行一次统计：索引页 -> 剧集链接 -> 并发抓取计数 -> 汇总。
//
// 返回约定：
// - 剧名不存在（索引页 >= 400）：Outcome=not_found，err=nil，且不再发起任何请求
// - 站点不可达（任何阶段）：Outcome=unreachable，err=nil
// - 其它失败（某集返回 >= 400、读取失败、ctx 取消等）：返回 err，整体失败，不给部分和
func Execute(ctx context.Context, opts Options, obs Observer) (domain.Report, error) {
	started := time.Now()

	if opts.Provider == nil {
		return domain.Report{}, errors.New("provider 不能为空")
	}
	if opts.Regexp == nil {
		return domain.Report{}, errors.New("regexp 不能为空")
	}

	threads := opts.Threads
	if threads < 1 {
		threads = app.DefaultWorkers
	}

	runID := uuid.NewString()
	log := opts.Logger
	if log == nil {
		log = logging.Nop()
	}
	log = log.With("run_id", runID)

	client := opts.Client
	if client == nil {
		client = http.DefaultClient
	}
	counter := &provider.ByteCounter{}
	fetcher := provider.Fetcher{Client: client, Bytes: counter}
	p := opts.Provider

	rr := domain.Report{
		RunID:     runID,
		Provider:  p.Name(),
		Title:     opts.Title,
		Pattern:   opts.Pattern,
		IndexURL:  p.IndexURL(opts.Title),
		Threads:   threads,
		Outcome:   domain.OutcomeCounted,
		StartedAt: started,
	}
	finish := func() domain.Report {
		rr.BytesDownloaded = counter.Total()
		rr.FinishedAt = time.Now()
		rr.Finalize()
		return rr
	}

	if obs != nil {
		obs.OnStart(rr)
	}

	log.Info("fetching episode index", "url", rr.IndexURL)
	index, err := fetcher.Get(ctx, rr.IndexURL)
	if err != nil {
		switch {
		case provider.IsNotFound(err):
			log.Info("show not found", "url", rr.IndexURL, "error", err)
			rr.Outcome = domain.OutcomeNotFound
			return finish(), nil
		case provider.IsUnreachable(err):
			log.Warn("index unreachable", "url", rr.IndexURL, "error", err)
			rr.Outcome = domain.OutcomeUnreachable
			return finish(), nil
		}
		return finish(), &provider.Error{Stage: "fetch", URL: rr.IndexURL, Err: err}
	}

	links, err := p.EpisodeLinks(index.Body)
	if err != nil {
		return finish(), &provider.Error{Stage: "parse", URL: rr.IndexURL, Err: err}
	}
	log.Info("episode index parsed", "episodes", len(links))

	rr.Episodes = make([]domain.EpisodeResult, len(links))
	jobs := make([]episodeJob, len(links))
	for i, u := range links {
		rr.Episodes[i].URL = u
		jobs[i] = episodeJob{idx: i, url: u}
	}
	if obs != nil {
		obs.OnIndexDone(len(links), time.Since(started))
	}

	var done atomic.Int64
	total, err := app.ConcurrentSum(ctx, jobs, threads, func(ctx context.Context, j episodeJob) (int, error) {
		oneStarted := time.Now()
		ep, err := countEpisode(ctx, fetcher, p, opts.Regexp, j.url, log)
		if err != nil {
			return 0, err
		}
		// 每个 idx 只由一个 worker 写入。
		rr.Episodes[j.idx] = ep

		n := int(done.Add(1))
		dur := time.Since(oneStarted)
		log.Debug("episode counted", "url", ep.URL, "matches", ep.Matches, "bytes", ep.Bytes, "duration", dur)
		if obs != nil {
			obs.OnEpisodeDone(n, len(jobs), ep, dur)
		}
		return ep.Matches, nil
	})
	if err != nil {
		if provider.IsUnreachable(err) {
			log.Warn("episode unreachable", "error", err)
			rr.Outcome = domain.OutcomeUnreachable
			return finish(), nil
		}
		log.Error("aggregation failed", "error", err)
		return finish(), err
	}

	rr.Occurrences = total
	log.Info("run finished", "occurrences", total, "episodes", len(links), "bytes", counter.Total())
	return finish(), nil
}

// countEpisode 抓取一集并统计匹配次数。
// 台词容器缺失按空脚本（0 次）处理，不中断整次运行。
func countEpisode(ctx context.Context, f provider.Fetcher, p provider.Provider, re *regexp.Regexp, u string, log *slog.Logger) (domain.EpisodeResult, error) {
	page, err := f.Get(ctx, u)
	if err != nil {
		return domain.EpisodeResult{}, &provider.Error{Stage: "fetch", URL: u, Err: err}
	}

	script, ok, err := p.Script(page.Body)
	if err != nil {
		return domain.EpisodeResult{}, &provider.Error{Stage: "parse", URL: u, Err: err}
	}
	if !ok {
		log.Warn("script container missing, counting as empty", "url", u)
	}

	return domain.EpisodeResult{
		URL:         u,
		Matches:     count.Occurrences(script, re),
		Bytes:       page.Length,
		ScriptFound: ok,
	}, nil
}
