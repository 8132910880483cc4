package evaluator

// EvalError reports a failed scoring call: a transport failure or a
// response the client could not parse. A successful call that reaches
// no decision is not an EvalError; it yields a benign empty verdict.
type EvalError struct {
	Op  string // "complete" or "parse"
	Err error
}

func (e *EvalError) Error() string {
	return "evaluate " + e.Op + ": " + e.Err.Error()
}

func (e *EvalError) Unwrap() error {
	return e.Err
}
