package run

import (
	"time"

	"github.com/John-Robertt/phrasecount/internal/domain"
)

// Observer 用于把“运行进度/阶段/单集结果”从核心执行流程中解耦出来。
//
// 约束：
// - run 包只负责发事件，不做任何输出（避免污染 stdout 的结果契约）。
// - Observer 的实现必须并发安全：OnEpisodeDone 来自多个 worker goroutine。
type Observer interface {
	// OnStart 在请求索引页之前调用（此时 Report 只有标题/URL/并发数等静态字段）。
	OnStart(r domain.Report)
	// OnIndexDone 在索引页解析完成后调用。
	OnIndexDone(episodes int, dur time.Duration)
	// OnEpisodeDone 在某一集抓取+计数完成时调用；done 为已完成数（1..total）。
	OnEpisodeDone(done, total int, ep domain.EpisodeResult, dur time.Duration)
}
