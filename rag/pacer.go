package rag

import (
	"context"
	"time"
)

// pacedExecutor runs work over a sequence in fixed-size batches with a fixed
// pause between batches but not after the last. The pause exists purely as
// client-side rate-limit compliance; it carries no correctness weight. The
// embedding client and the context selector share this instead of sleeping
// inline. Batch failures are the callers' concern; fn handles its own.
type pacedExecutor struct {
	batchSize int
	interval  time.Duration
}

func (p pacedExecutor) run(ctx context.Context, total int, fn func(start, end int)) {
	if total <= 0 {
		return
	}
	size := p.batchSize
	if size <= 0 {
		size = total
	}
	for start := 0; start < total; start += size {
		if start > 0 {
			p.pause(ctx)
		}
		fn(start, min(start+size, total))
	}
}

func (p pacedExecutor) pause(ctx context.Context) {
	if p.interval <= 0 {
		return
	}
	timer := time.NewTimer(p.interval)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
