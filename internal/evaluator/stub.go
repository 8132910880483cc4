package evaluator

import (
	"context"
	"encoding/json"
	"strings"
)

// StubProvider returns deterministic judgements without any network
// calls (for keyless development and tests). It deletes empty or
// one-line bodies, accepts multi-line poems, and reaches no decision
// for anything in between.
type StubProvider struct{}

func (StubProvider) Complete(_ context.Context, _, user string) (string, error) {
	body := user
	if i := strings.Index(user, "Poem:\n"); i >= 0 {
		body = user[i+len("Poem:\n"):]
	}
	body = strings.TrimSpace(body)
	lines := 0
	for _, l := range strings.Split(body, "\n") {
		if strings.TrimSpace(l) != "" {
			lines++
		}
	}

	var step judgementStep
	switch {
	case lines == 0:
		step = judgementStep{Deleted: true, Summary: "[stub] empty body"}
	case lines >= 3:
		step = judgementStep{Accepted: true, Summary: "[stub] multi-line poem"}
	case lines == 1:
		step = judgementStep{Deleted: true, Summary: "[stub] single line, likely fragment"}
	default:
		step = judgementStep{Summary: "[stub] no decision"}
	}

	b, _ := json.Marshal(judgement{Steps: []judgementStep{step}})
	return string(b), nil
}
