package openapi

import (
	"github.com/kipp7/landslide-monitoring-v2/internal/problem"
)

// Rule is one entry of the response-completeness policy. Applies selects the
// operations the rule covers; Satisfied reports whether the operation meets it.
type Rule struct {
	Name      string
	Hint      string
	Applies   func(Operation) bool
	Satisfied func(Operation) bool
}

func always(Operation) bool { return true }

func declares(codes ...string) func(Operation) bool {
	return func(op Operation) bool {
		for _, c := range codes {
			if op.Declares(c) {
				return true
			}
		}
		return false
	}
}

func secured(op Operation) bool { return !op.Public }

// DefaultPolicy is the response-completeness policy, evaluated in order.
var DefaultPolicy = []Rule{
	{
		Name:      "200/201",
		Hint:      "Declare at least one success response (200 or 201).",
		Applies:   always,
		Satisfied: declares("200", "201"),
	},
	{
		Name:      "default",
		Hint:      "The default response is the catch-all error shape (for example an ErrorResponse).",
		Applies:   always,
		Satisfied: declares("default"),
	},
	{
		Name:      "500",
		Hint:      "Server errors must be declared explicitly as 500.",
		Applies:   always,
		Satisfied: declares("500"),
	},
	{
		Name:      "404",
		Hint:      "Operations with path parameters must declare 404 (resource not found).",
		Applies:   Operation.HasPathParam,
		Satisfied: declares("404"),
	},
	{
		Name:      "401",
		Hint:      "Secured operations must declare 401.",
		Applies:   secured,
		Satisfied: declares("401"),
	},
	{
		Name:      "403",
		Hint:      "Secured operations must declare 403.",
		Applies:   secured,
		Satisfied: declares("403"),
	},
}

const missingResponsesHint = "Every operation must define responses (at least 200/500/default)."

// CheckCompleteness applies policy to every operation of doc. Each violated
// rule produces one problem; an operation without a responses mapping produces
// a single "missing responses" problem and no others.
func CheckCompleteness(doc *Document, policy []Rule) []problem.Problem {
	var problems []problem.Problem
	for _, op := range doc.Operations {
		if !op.HasResponses() {
			problems = append(problems,
				problem.Newf(problem.KindOpenAPI, "%s: missing responses", op.Key).WithHint(missingResponsesHint))
			continue
		}
		for _, r := range policy {
			if !r.Applies(op) || r.Satisfied(op) {
				continue
			}
			problems = append(problems,
				problem.Newf(problem.KindOpenAPI, "%s: missing %s response", op.Key, r.Name).WithHint(r.Hint))
		}
	}
	return problems
}
