package evaluator

import (
	"fmt"
	"strings"
)

// rubric is the fixed system instruction steering the scoring model.
// It is sent once per call alongside the poem's text.
const rubric = `You are the curation judge for a collection of short poems. For each
poem you receive, decide whether it belongs in the collection.

Accept a poem when it shows:
- a coherent image or idea carried through the whole piece
- deliberate line breaks and rhythm (not prose chopped into lines)
- concrete, specific language over abstraction and cliche
- an ending that lands: a turn, an echo, or an earned resolution

Delete a poem when it shows:
- filler or placeholder text, duplicated stanzas, or truncated output
- incoherent imagery, mixed registers with no purpose
- generic greeting-card sentiment with no specificity

If you genuinely cannot decide, return a step with both flags false.

Respond with ONLY this JSON, no markdown, no commentary:
{"steps": [{"Accepted": true or false, "Deleted": true or false, "Summary": "one sentence of reasoning"}]}

Accepted and Deleted must never both be true.`

// buildPoemPrompt formats one poem for evaluation.
func buildPoemPrompt(title, body string) string {
	return fmt.Sprintf("Title: %s\n\nPoem:\n%s", title, body)
}

// extractJSON strips markdown code fences that models sometimes wrap
// around JSON output, returning the inner payload.
func extractJSON(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	if i := strings.LastIndex(s, "```"); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}
