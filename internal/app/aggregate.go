package app

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// DefaultWorkers 是未指定（或指定了非法值）时的并发数。
const DefaultWorkers = 10

// ConcurrentSum 对 items 中每一项调用一次 fn，并返回所有结果之和。
//
// - 最多 maxWorkers 个 goroutine 同时执行（<1 时取 DefaultWorkers；=1 时按输入顺序串行）
// - 返回前等待所有已启动的调用结束
// - 任一调用出错：整体失败，返回 (0, err)，并取消传给其余调用的 ctx（尚未启动的不再启动）
// - 求和与完成顺序无关
func ConcurrentSum[T any](ctx context.Context, items []T, maxWorkers int, fn func(ctx context.Context, item T) (int, error)) (int, error) {
	if maxWorkers < 1 {
		maxWorkers = DefaultWorkers
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxWorkers)

	// 每个下标只由一个 goroutine 写入，无需加锁。
	counts := make([]int, len(items))
	for i := range items {
		if gctx.Err() != nil {
			break
		}
		i := i
		g.Go(func() error {
			n, err := fn(gctx, items[i])
			if err != nil {
				return err
			}
			counts[i] = n
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	total := 0
	for _, n := range counts {
		total += n
	}
	return total, nil
}
