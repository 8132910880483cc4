package bulk

import (
	"context"
	"log/slog"
	"sync"

	"versecull/internal/model"
)

// Ledger mutates poem status flags by id. *store.Store implements it.
type Ledger interface {
	Accept(id int) bool
	Delete(id int) bool
}

// Scorer evaluates one poem's text against the rubric.
type Scorer interface {
	Evaluate(ctx context.Context, title, body string) (model.Verdict, error)
}

// Tally counts per-poem outcomes across a batch or a whole run.
type Tally struct {
	Accepted  int `json:"accepted"`
	Deleted   int `json:"deleted"`
	Ambiguous int `json:"ambiguous"`
	Failed    int `json:"failed"`
}

func (t *Tally) add(o Tally) {
	t.Accepted += o.Accepted
	t.Deleted += o.Deleted
	t.Ambiguous += o.Ambiguous
	t.Failed += o.Failed
}

// BatchEvaluator scores one bounded batch of poems concurrently and
// folds every outcome back into the ledger.
type BatchEvaluator struct {
	ledger Ledger
	scorer Scorer
}

// NewBatchEvaluator creates a batch evaluator.
func NewBatchEvaluator(ledger Ledger, scorer Scorer) *BatchEvaluator {
	return &BatchEvaluator{ledger: ledger, scorer: scorer}
}

type outcome struct {
	id      int
	verdict model.Verdict
	err     error
}

// EvaluateBatch launches one evaluation per poem and applies each
// outcome as it settles, in completion order. It returns only after
// every poem has resolved; one poem's failure never cancels its
// siblings, and no error ever reaches the caller. All ledger writes
// happen on the draining goroutine, keeping the store single-writer.
func (b *BatchEvaluator) EvaluateBatch(ctx context.Context, poems []model.Poem) Tally {
	results := make(chan outcome)

	var wg sync.WaitGroup
	for _, p := range poems {
		p := p
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := b.scorer.Evaluate(ctx, p.Title, p.Body)
			results <- outcome{id: p.ID, verdict: v, err: err}
		}()
	}
	go func() {
		wg.Wait()
		close(results)
	}()

	var tally Tally
	for o := range results {
		switch {
		case o.err != nil:
			tally.Failed++
			slog.Error("poem evaluation failed", "poem_id", o.id, "error", o.err)
		case o.verdict.Deleted:
			// Deleted wins even if the scorer also set accepted.
			b.ledger.Delete(o.id)
			tally.Deleted++
			slog.Info("poem deleted", "poem_id", o.id, "summary", o.verdict.Summary)
		case o.verdict.Accepted:
			b.ledger.Accept(o.id)
			tally.Accepted++
			slog.Info("poem accepted", "poem_id", o.id, "summary", o.verdict.Summary)
		default:
			tally.Ambiguous++
			slog.Info("no decision for poem", "poem_id", o.id)
		}
	}
	return tally
}
