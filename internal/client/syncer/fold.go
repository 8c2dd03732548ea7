package syncer

import "context"

// tally is the accumulator of a best-effort phase.
type tally struct {
	successes int
	failures  int
}

func (t tally) total() int { return t.successes + t.failures }

// fold applies step to every item in order. A failing item is reported to
// onErr and counted; it never stops the fold.
func fold[T any](ctx context.Context, items []T, step func(context.Context, T) error, onErr func(T, error)) tally {
	var t tally
	for _, it := range items {
		if err := step(ctx, it); err != nil {
			t.failures++
			if onErr != nil {
				onErr(it, err)
			}
			continue
		}
		t.successes++
	}
	return t
}
