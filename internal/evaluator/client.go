// Package evaluator adapts one poem's text to one call against an
// external scoring service and extracts a curation verdict from the
// service's structured judgement.
package evaluator

import (
	"context"
	"encoding/json"
	"fmt"

	"versecull/internal/model"
)

// Client performs exactly one outbound scoring call per invocation.
// No caching, no cross-call retries.
type Client struct {
	provider Provider
}

// NewClient creates an evaluator client on top of the given provider.
func NewClient(p Provider) *Client {
	return &Client{provider: p}
}

// judgement is the structured payload the rubric instructs the model to
// return: a sequence of steps, each carrying the two verdict flags and a
// free-text summary.
type judgement struct {
	Steps []judgementStep `json:"steps"`
}

type judgementStep struct {
	Accepted bool   `json:"Accepted"`
	Deleted  bool   `json:"Deleted"`
	Summary  string `json:"Summary"`
}

// Evaluate scores one poem's text. The verdict is taken from the first
// step of the model's judgement. A judgement with no steps is a valid
// "no decision" and returns an empty verdict without error; only
// transport and parsing failures return an *EvalError.
func (c *Client) Evaluate(ctx context.Context, title, body string) (model.Verdict, error) {
	raw, err := c.provider.Complete(ctx, rubric, buildPoemPrompt(title, body))
	if err != nil {
		return model.Verdict{}, &EvalError{Op: "complete", Err: err}
	}

	raw = extractJSON(raw)
	if raw == "" {
		return model.Verdict{}, &EvalError{Op: "parse", Err: fmt.Errorf("empty response")}
	}

	var j judgement
	if err := json.Unmarshal([]byte(raw), &j); err != nil {
		return model.Verdict{}, &EvalError{Op: "parse", Err: err}
	}

	if len(j.Steps) == 0 {
		return model.Verdict{}, nil
	}

	first := j.Steps[0]
	return model.Verdict{
		Accepted: first.Accepted,
		Deleted:  first.Deleted,
		Summary:  first.Summary,
	}, nil
}
