package pipeline

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"
)

// ProcessBatch processes documents concurrently, at most Workers at a time.
// Results keep the input order. A failing document never stops the others.
func (p *Processor) ProcessBatch(ctx context.Context, docs []Document) []Result {
	start := time.Now()
	results := make([]Result, len(docs))

	// Process never fails, so Wait only joins the workers.
	var eg errgroup.Group
	eg.SetLimit(p.workers)
	for i, doc := range docs {
		eg.Go(func() error {
			results[i] = p.Process(ctx, doc)
			return nil
		})
	}
	eg.Wait()

	invalid, unrecognized := 0, 0
	for _, r := range results {
		if !r.Valid {
			invalid++
		}
		if r.Source == SourceNone {
			unrecognized++
		}
	}
	p.log.Info().
		Int("documents", len(docs)).
		Int("invalid", invalid).
		Int("unrecognized", unrecognized).
		Int("workers", p.workers).
		Dur("duration", time.Since(start)).
		Msg("Batch processed")
	return results
}
