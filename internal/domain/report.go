package domain

import (
	"fmt"
	"time"
)

const (
	OutcomeCounted     = "counted"
	OutcomeNotFound    = "not_found"
	OutcomeUnreachable = "unreachable"
)

// 面向用户的固定提示（stdout 契约的一部分，不要改动措辞）。
const (
	MsgNotFound    = "Show with given title was not found"
	MsgUnreachable = "Could not reach server (check your internet connection)."
)

// Report 是一次运行的对外稳定输出（文本摘要 / --json）。
type Report struct {
	RunID    string `json:"run_id"`
	Provider string `json:"provider"`
	Title    string `json:"title"`
	Pattern  string `json:"pattern"`
	IndexURL string `json:"index_url"`
	Threads  int    `json:"threads"`
	Outcome  string `json:"outcome"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	Occurrences     int   `json:"occurrences"`
	BytesDownloaded int64 `json:"bytes_downloaded"`

	// Episodes 按索引页中的出现顺序排列（与完成顺序无关）。
	Episodes []EpisodeResult `json:"episodes"`
}

type EpisodeResult struct {
	URL         string `json:"url"`
	Matches     int    `json:"matches"`
	Bytes       int64  `json:"bytes"`
	ScriptFound bool   `json:"script_found"`
}

// Finalize 把时间统一为 UTC，并保证 Episodes 不为 nil（JSON 输出 [] 而非 null）。
func (r *Report) Finalize() {
	r.StartedAt = r.StartedAt.UTC()
	r.FinishedAt = r.FinishedAt.UTC()
	if r.Episodes == nil {
		r.Episodes = []EpisodeResult{}
	}
}

func (r Report) EpisodeCount() int { return len(r.Episodes) }

func (r Report) Elapsed() time.Duration {
	if r.FinishedAt.Before(r.StartedAt) {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Average 返回每集平均出现次数；没有剧集时为 0。
func (r Report) Average() float64 {
	if len(r.Episodes) == 0 {
		return 0
	}
	return float64(r.Occurrences) / float64(len(r.Episodes))
}

// Lines 渲染文本模式下 stdout 的全部行。
//
// - counted：摘要行 +（出现次数 > 0 时）平均行 + 耗时行
// - not_found：提示行 + 耗时行
// - unreachable：仅提示行
func (r Report) Lines() []string {
	switch r.Outcome {
	case OutcomeNotFound:
		return []string{MsgNotFound, r.elapsedLine()}
	case OutcomeUnreachable:
		return []string{MsgUnreachable}
	}

	out := make([]string, 0, 3)
	out = append(out, fmt.Sprintf(`"%s" was mentioned %d time(s) in show "%s" (%d episodes)`,
		r.Pattern, r.Occurrences, r.Title, r.EpisodeCount()))
	if r.Occurrences > 0 {
		out = append(out, fmt.Sprintf("%.2f times per episode", r.Average()))
	}
	out = append(out, r.elapsedLine())
	return out
}

func (r Report) elapsedLine() string {
	return fmt.Sprintf("Elapsed %.4f s, downloaded %d bytes", r.Elapsed().Seconds(), r.BytesDownloaded)
}
