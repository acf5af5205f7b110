package stats

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency is the default number of parallel fetches in Lookup.
const DefaultConcurrency = 4

// Result is the outcome of one name in a batch lookup.
type Result struct {
	Name  string `json:"name"`
	Stats Stats  `json:"stats"`
	Err   error  `json:"-"`
}

// Lookup fetches stats for every name with at most concurrency fetches in
// flight. Results keep the order of names. Per-name failures are reported
// in Result.Err; the returned error is only set when ctx ends first.
func Lookup(ctx context.Context, p Provider, names []string, concurrency int) ([]Result, error) {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}

	results := make([]Result, len(names))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for i, name := range names {
		results[i].Name = name
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			s, err := p.Fetch(gctx, name)
			results[i].Stats = s
			results[i].Err = err
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}
