package model

// Verdict is the transient outcome of scoring one poem's text against
// the evaluation rubric. A verdict with neither flag set means the
// scorer reached no decision; the poem is left unchanged.
type Verdict struct {
	Accepted bool
	Deleted  bool
	Summary  string
}

// Decided reports whether the verdict carries an actionable flag.
func (v Verdict) Decided() bool {
	return v.Accepted || v.Deleted
}
