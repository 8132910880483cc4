// Package bulk drives rate-limited bulk evaluation of the poem
// collection: it partitions poems into bounded batches, scores each
// batch concurrently, and paces itself between batches.
package bulk

import (
	"time"

	"versecull/internal/model"
)

// DefaultMaxBatchSize bounds how many poems are scored concurrently in
// one batch.
const DefaultMaxBatchSize = 100

// DefaultCooldown is the pause between consecutive batches. It is the
// only place the scoring service's rate limit is respected.
const DefaultCooldown = 60 * time.Second

// Split partitions poems into ordered batches of at most max poems
// each. The batch count is ceil(N/max) and the per-batch size is
// ceil(N/runs), so sizes come out as equal as integer division allows
// instead of leaving a small remainder batch at the end: 250 poems with
// max 100 yield batches of 84, 84, 82 rather than 100, 100, 50.
func Split(poems []model.Poem, max int) [][]model.Poem {
	if len(poems) == 0 {
		return nil
	}
	if max <= 0 {
		max = DefaultMaxBatchSize
	}

	n := len(poems)
	runs := (n + max - 1) / max
	size := (n + runs - 1) / runs

	batches := make([][]model.Poem, 0, runs)
	for start := 0; start < n; start += size {
		end := min(start+size, n)
		batches = append(batches, poems[start:end])
	}
	return batches
}
