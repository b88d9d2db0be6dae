package problem

import "fmt"

// Problem kinds.
const (
	KindOpenAPI  = "openapi"
	KindAPI      = "api"
	KindSchema   = "schema"
	KindRegistry = "registry"
)

// Problem is one reported inconsistency.
type Problem struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
	Hint    string `json:"hint,omitempty"` // empty when there is no remediation hint
}

// New creates a Problem without a hint.
func New(kind, message string) Problem {
	return Problem{Kind: kind, Message: message}
}

// Newf creates a Problem without a hint from a format string.
func Newf(kind, format string, args ...any) Problem {
	return Problem{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// WithHint returns a copy of p carrying hint.
func (p Problem) WithHint(hint string) Problem {
	p.Hint = hint
	return p
}

// HasHint reports whether p carries a remediation hint.
func (p Problem) HasHint() bool {
	return p.Hint != ""
}

func (p Problem) String() string {
	return fmt.Sprintf("[%s] %s", p.Kind, p.Message)
}

// List is an append-only, run-scoped collection of problems.
type List []Problem

// Add appends problems to the list.
func (l *List) Add(ps ...Problem) {
	*l = append(*l, ps...)
}

// Merge concatenates lists in the given order.
func Merge(lists ...[]Problem) List {
	n := 0
	for _, l := range lists {
		n += len(l)
	}
	out := make(List, 0, n)
	for _, l := range lists {
		out = append(out, l...)
	}
	return out
}

// Failed reports whether the list contains any problem.
func (l List) Failed() bool {
	return len(l) > 0
}

// ExitCode maps the list to a process status: 0 when empty, 1 otherwise.
func (l List) ExitCode() int {
	if l.Failed() {
		return 1
	}
	return 0
}

// CountByKind returns the number of problems per kind.
func (l List) CountByKind() map[string]int {
	counts := make(map[string]int)
	for _, p := range l {
		counts[p.Kind]++
	}
	return counts
}
