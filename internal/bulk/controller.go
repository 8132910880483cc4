package bulk

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"versecull/internal/model"
)

// Run summarizes one completed bulk evaluation.
type Run struct {
	ID         string    `json:"id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Items      int       `json:"items"`
	Batches    int       `json:"batches"`
	Tally      Tally     `json:"tally"`
}

// RunRecorder persists completed run summaries.
type RunRecorder interface {
	Record(ctx context.Context, run Run) error
}

// Controller orchestrates bulk evaluation: it plans batches once at
// start, runs them strictly sequentially with a cooldown in between,
// and enforces that at most one run is active at a time.
type Controller struct {
	batch      *BatchEvaluator
	maxBatch   int
	cooldown   time.Duration
	recorder   RunRecorder // optional
	inProgress atomic.Bool
	lastRun    atomic.Pointer[Run]
}

// Option configures a Controller.
type Option func(*Controller)

// WithMaxBatchSize bounds how many poems a single batch may hold.
func WithMaxBatchSize(n int) Option {
	return func(c *Controller) {
		if n > 0 {
			c.maxBatch = n
		}
	}
}

// WithCooldown sets the pause between consecutive batches.
func WithCooldown(d time.Duration) Option {
	return func(c *Controller) {
		if d >= 0 {
			c.cooldown = d
		}
	}
}

// WithRecorder attaches a run-history recorder.
func WithRecorder(r RunRecorder) Option {
	return func(c *Controller) { c.recorder = r }
}

// NewController creates a controller with the default batch size and
// cooldown unless overridden.
func NewController(batch *BatchEvaluator, opts ...Option) *Controller {
	c := &Controller{
		batch:    batch,
		maxBatch: DefaultMaxBatchSize,
		cooldown: DefaultCooldown,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// InProgress reports whether a bulk run is active. It is the only
// externally observable run state; poem changes are observed through
// the store.
func (c *Controller) InProgress() bool {
	return c.inProgress.Load()
}

// LastRun returns the most recently completed run, or nil if none has
// completed yet.
func (c *Controller) LastRun() *Run {
	return c.lastRun.Load()
}

// Start launches a bulk run in the background and returns immediately.
// It reports false, without starting any work, when a run is already in
// flight: a second start is a no-op, not an error.
func (c *Controller) Start(ctx context.Context, poems []model.Poem) bool {
	if !c.inProgress.CompareAndSwap(false, true) {
		slog.Info("bulk evaluation already in progress, ignoring start", "items", len(poems))
		return false
	}
	go c.run(ctx, poems)
	return true
}

// Run executes a bulk run synchronously under the same single-flight
// guard. It reports false when a run is already in flight.
func (c *Controller) Run(ctx context.Context, poems []model.Poem) (Run, bool) {
	if !c.inProgress.CompareAndSwap(false, true) {
		slog.Info("bulk evaluation already in progress, ignoring run", "items", len(poems))
		return Run{}, false
	}
	return c.run(ctx, poems), true
}

// run executes the batch loop. The in-progress flag is released by the
// outermost defer, so it resets exactly once on every exit path,
// including a panic escaping the loop.
func (c *Controller) run(ctx context.Context, poems []model.Poem) Run {
	defer c.inProgress.Store(false)
	defer func() {
		if r := recover(); r != nil {
			slog.Error("bulk evaluation aborted", "panic", r)
		}
	}()

	run := Run{
		ID:        uuid.New().String(),
		StartedAt: time.Now().UTC(),
		Items:     len(poems),
	}

	batches := Split(poems, c.maxBatch)
	run.Batches = len(batches)
	if len(batches) == 0 {
		slog.Info("bulk evaluation skipped, no poems", "run_id", run.ID)
		run.FinishedAt = run.StartedAt
		return run
	}

	slog.Info("bulk evaluation started",
		"run_id", run.ID, "items", run.Items, "batches", run.Batches, "cooldown", c.cooldown.String())

	for i, batch := range batches {
		slog.Info("evaluating batch",
			"run_id", run.ID, "batch", i+1, "of", len(batches), "size", len(batch))
		run.Tally.add(c.batch.EvaluateBatch(ctx, batch))

		if i < len(batches)-1 {
			if !c.sleep(ctx) {
				slog.Info("cooldown interrupted, ending run early", "run_id", run.ID)
				break
			}
		}
	}

	run.FinishedAt = time.Now().UTC()
	c.lastRun.Store(&run)
	if c.recorder != nil {
		if err := c.recorder.Record(context.WithoutCancel(ctx), run); err != nil {
			slog.Error("failed to record run", "run_id", run.ID, "error", err)
		}
	}

	slog.Info("bulk evaluation finished",
		"run_id", run.ID,
		"accepted", run.Tally.Accepted,
		"deleted", run.Tally.Deleted,
		"ambiguous", run.Tally.Ambiguous,
		"failed", run.Tally.Failed,
		"elapsed", run.FinishedAt.Sub(run.StartedAt).String())
	return run
}

// sleep waits out the inter-batch cooldown. It reports false when the
// context was cancelled first.
func (c *Controller) sleep(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(c.cooldown):
		return true
	}
}
