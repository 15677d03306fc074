package queryengine

import "fmt"

// CompilationError reports a query string that could not be parsed into a
// Plan: an unparseable clause, an unknown aggregate, a stray token.
type CompilationError struct {
	Detail string
}

func (e *CompilationError) Error() string {
	return fmt.Sprintf("cannot compile query: %s", e.Detail)
}

// ExecutionError reports a Plan that parsed but could not be evaluated
// against the table: a referenced column is absent, an aggregate target is
// not numeric, a predicate cannot be applied.
type ExecutionError struct {
	Detail string
	Err    error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("cannot execute query: %s", e.Detail)
}

func (e *ExecutionError) Unwrap() error { return e.Err }

func execErrorf(format string, args ...any) *ExecutionError {
	return &ExecutionError{Detail: fmt.Sprintf(format, args...)}
}
