// Package engine implements the evidence-weighted question generation and
// filtering pipeline: per-type weight formulas, evidence retrieval against the
// incident corpus, the two-stage filter, and deterministic ranking.
package engine

import "fmt"

// InputError reports a fatal per-request input problem. It is raised before
// any retrieval work begins and identifies the offending field.
type InputError struct {
	Field  string
	Reason string
}

func (e *InputError) Error() string {
	return fmt.Sprintf("engine: invalid %s: %s", e.Field, e.Reason)
}

func inputErrorf(field, format string, args ...any) *InputError {
	return &InputError{Field: field, Reason: fmt.Sprintf(format, args...)}
}
