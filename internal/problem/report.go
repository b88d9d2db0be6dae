package problem

import (
	"fmt"
	"io"
	"sort"

	json "github.com/goccy/go-json"
)

// Report headers.
const (
	PassedLine = "Contract validation passed."
	FailedLine = "Contract validation failed:"
)

// Format selects the report rendering.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// ParseFormat validates a format name. An empty name selects text.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case "", FormatText:
		return FormatText, nil
	case FormatJSON:
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("unknown report format %q (want text or json)", s)
	}
}

// Render writes the list to w in the given format.
func Render(w io.Writer, l List, f Format) error {
	if f == FormatJSON {
		return RenderJSON(w, l)
	}
	return RenderText(w, l)
}

// RenderText writes one "- [kind] message" line per problem, followed by an
// indented hint line when the problem has one.
func RenderText(w io.Writer, l List) error {
	if !l.Failed() {
		_, err := fmt.Fprintln(w, PassedLine)
		return err
	}
	if _, err := fmt.Fprintf(w, "%s\n\n", FailedLine); err != nil {
		return err
	}
	for _, p := range l {
		var err error
		if p.HasHint() {
			_, err = fmt.Fprintf(w, "- [%s] %s\n  hint: %s\n", p.Kind, p.Message, p.Hint)
		} else {
			_, err = fmt.Fprintf(w, "- [%s] %s\n", p.Kind, p.Message)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

type jsonReport struct {
	Passed   bool        `json:"passed"`
	Total    int         `json:"total"`
	Counts   []jsonCount `json:"counts,omitempty"`
	Problems []Problem   `json:"problems"`
}

type jsonCount struct {
	Kind  string `json:"kind"`
	Count int    `json:"count"`
}

// RenderJSON writes the list as a single indented JSON document.
func RenderJSON(w io.Writer, l List) error {
	problems := []Problem(l)
	if problems == nil {
		problems = []Problem{}
	}
	byKind := l.CountByKind()
	kinds := make([]string, 0, len(byKind))
	for k := range byKind {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	counts := make([]jsonCount, 0, len(kinds))
	for _, k := range kinds {
		counts = append(counts, jsonCount{Kind: k, Count: byKind[k]})
	}

	out, err := json.MarshalIndent(jsonReport{
		Passed:   !l.Failed(),
		Total:    len(l),
		Counts:   counts,
		Problems: problems,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	out = append(out, '\n')
	_, err = w.Write(out)
	return err
}
