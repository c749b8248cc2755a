// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package acquire

import (
	"context"
	"fmt"
	"io"
	"sync"

	"golang.org/x/sync/errgroup"
)

// BatchResult holds the outcome of a batch acquisition run.
type BatchResult struct {
	Downloaded int
	Skipped    int
	Failed     int
	Records    []*Record

	// Errors maps each failed identifier to its error.
	Errors map[string]error
}

// Total returns the total number of identifiers processed.
func (r BatchResult) Total() int {
	return r.Downloaded + r.Skipped + r.Failed
}

// HasFailures reports whether any identifiers failed.
func (r BatchResult) HasFailures() bool {
	return r.Failed > 0
}

// AcquireBatch acquires identifiers into dir, at most concurrency at a time.
// Identifiers already saved under dir are skipped. A failure never stops
// the batch; per-item status lines go to w.
func (p *Pipeline) AcquireBatch(ctx context.Context, identifiers []string, dir string, concurrency int, w io.Writer) BatchResult {
	if concurrency <= 0 {
		concurrency = 1
	}
	var (
		mu     sync.Mutex
		result = BatchResult{Errors: make(map[string]error)}
	)
	report := func(format string, args ...any) {
		mu.Lock()
		defer mu.Unlock()
		fmt.Fprintf(w, format, args...)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for _, id := range identifiers {
		g.Go(func() error {
			idType, normalized := Classify(id)
			slug := Slug(idType, normalized)
			if rec, ok := Existing(dir, slug); ok {
				report("skipped: %s (already exists)\n", slug)
				mu.Lock()
				result.Skipped++
				result.Records = append(result.Records, rec)
				mu.Unlock()
				return nil
			}

			res, err := p.Acquire(gctx, id, nil)
			var rec *Record
			if err == nil {
				rec, err = Save(dir, id, res)
			}

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				fmt.Fprintf(w, "failed:  %s (%v)\n", id, err)
				result.Failed++
				result.Errors[id] = err
				return nil
			}
			fmt.Fprintf(w, "acquired: %s via %s [%s]\n", slug, res.Source, res.Tier)
			result.Downloaded++
			result.Records = append(result.Records, rec)
			return nil
		})
	}
	_ = g.Wait()

	fmt.Fprintf(w, "\nBatch summary: %d downloaded, %d skipped, %d failed (total: %d)\n",
		result.Downloaded, result.Skipped, result.Failed, result.Total())
	return result
}
