package model

import "encoding/json"

// Poem is the unit of curation: a short text piece with acceptance,
// deletion, and edit status flags. Accepted and Deleted are mutually
// exclusive; setting one clears the other.
type Poem struct {
	ID       int    `json:"id"`
	Adaptor  string `json:"adaptor,omitempty"`
	OuterIdx int    `json:"outer_idx"`
	InnerIdx int    `json:"inner_idx"`
	Title    string `json:"image"`
	Body     string `json:"response"`
	Accepted bool   `json:"accepted"`
	Deleted  bool   `json:"deleted"`
	Edited   bool   `json:"edited"`
}

// poemJSON is the wire shape of a library entry. The canonical keys are
// "image" (title) and "response" (body); "title" and "body" are accepted
// as read-only fallback keys from older library files.
type poemJSON struct {
	ID       int    `json:"id"`
	Adaptor  string `json:"adaptor"`
	OuterIdx int    `json:"outer_idx"`
	InnerIdx int    `json:"inner_idx"`
	Image    string `json:"image"`
	Title    string `json:"title"`
	Response string `json:"response"`
	Body     string `json:"body"`
	Accepted bool   `json:"accepted"`
	Deleted  bool   `json:"deleted"`
	Edited   bool   `json:"edited"`
}

// UnmarshalJSON decodes a library entry, preferring the canonical keys
// over their fallback counterparts when both are present.
func (p *Poem) UnmarshalJSON(data []byte) error {
	var raw poemJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	p.ID = raw.ID
	p.Adaptor = raw.Adaptor
	p.OuterIdx = raw.OuterIdx
	p.InnerIdx = raw.InnerIdx
	p.Title = raw.Image
	if p.Title == "" {
		p.Title = raw.Title
	}
	p.Body = raw.Response
	if p.Body == "" {
		p.Body = raw.Body
	}
	p.Accepted = raw.Accepted
	p.Deleted = raw.Deleted
	p.Edited = raw.Edited
	return nil
}

// Accept marks the poem accepted, clearing any deletion mark.
func (p *Poem) Accept() {
	p.Accepted = true
	p.Deleted = false
}

// MarkDeleted marks the poem deleted, clearing any acceptance mark.
func (p *Poem) MarkDeleted() {
	p.Deleted = true
	p.Accepted = false
}

// Edit overwrites the poem's text and records that it was hand-edited.
func (p *Poem) Edit(title, body string) {
	p.Title = title
	p.Body = body
	p.Edited = true
}

// Status returns a short label describing the poem's curation state.
func (p *Poem) Status() string {
	switch {
	case p.Deleted:
		return "deleted"
	case p.Accepted:
		return "accepted"
	default:
		return "pending"
	}
}
