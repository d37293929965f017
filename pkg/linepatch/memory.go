package linepatch

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
)

// ApplyDocuments applies one diff to every document in docs concurrently. The
// diff is parsed once. docs is never mutated; reports are keyed like docs.
// limit bounds the number of documents processed at once; values <= 0 mean no
// limit.
func ApplyDocuments(ctx context.Context, docs map[string]string, diffText string, limit int) (map[string]Report, error) {
	snapshot := make(map[string]string, len(docs))
	for k, v := range docs {
		snapshot[k] = v
	}
	operations := Parse(diffText)

	var (
		mu      sync.Mutex
		reports = make(map[string]Report, len(snapshot))
	)
	group, gctx := errgroup.WithContext(ctx)
	if limit > 0 {
		group.SetLimit(limit)
	}
	for name, content := range snapshot {
		if gctx.Err() != nil {
			break
		}
		group.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			report := ApplyOperations(content, operations)
			mu.Lock()
			reports[name] = report
			mu.Unlock()
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return reports, nil
}
