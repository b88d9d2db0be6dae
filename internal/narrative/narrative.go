// Package narrative extracts endpoint declarations from Markdown API docs and
// cross-references them with the specification's endpoint set.
package narrative

import (
	"fmt"
	"io/fs"
	"path"
	"regexp"
	"sort"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/kipp7/landslide-monitoring-v2/internal/openapi"
	"github.com/kipp7/landslide-monitoring-v2/internal/problem"
)

// EndpointPatternV1 matches a bold HTTP verb followed by one backtick path,
// e.g. **GET** `/devices/{id}`. Verbs are case-sensitive; a declaration split
// across lines does not match.
const EndpointPatternV1 = "\\*\\*(GET|POST|PUT|DELETE|PATCH)\\*\\*\\s+`([^`]+)`"

var endpointRe = regexp.MustCompile(EndpointPatternV1)

// DefaultGlob selects the numbered narrative files, e.g. 03-devices.md.
const DefaultGlob = "[0-9][0-9]-*.md"

// DefaultItemLimit caps the itemized problems per direction.
const DefaultItemLimit = 50

// Extract returns every endpoint declared in text, in order of appearance.
func Extract(text string) []openapi.EndpointKey {
	var keys []openapi.EndpointKey
	for _, m := range endpointRe.FindAllStringSubmatch(text, -1) {
		keys = append(keys, openapi.EndpointKey{Method: m[1], Path: m[2]})
	}
	return keys
}

// Collect reads every file in dir matching glob and returns the union of the
// endpoints they declare. Files are read in lexical order.
func Collect(fsys fs.FS, dir, glob string) (map[openapi.EndpointKey]bool, error) {
	if glob == "" {
		glob = DefaultGlob
	}
	matches, err := doublestar.Glob(fsys, path.Join(dir, glob))
	if err != nil {
		return nil, fmt.Errorf("glob %s: %w", glob, err)
	}
	sort.Strings(matches)

	set := make(map[openapi.EndpointKey]bool)
	for _, name := range matches {
		data, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		for _, k := range Extract(string(data)) {
			set[k] = true
		}
	}
	return set, nil
}

// Diff is the symmetric difference between documented and specified endpoints.
type Diff struct {
	// Missing are documented in the narrative but absent from the specification.
	Missing []openapi.EndpointKey
	// Extra are specified but not documented in the narrative.
	Extra []openapi.EndpointKey
}

// Compare computes both set differences, each sorted by method then path.
func Compare(spec, narrative map[openapi.EndpointKey]bool) Diff {
	var d Diff
	for k := range narrative {
		if !spec[k] {
			d.Missing = append(d.Missing, k)
		}
	}
	for k := range spec {
		if !narrative[k] {
			d.Extra = append(d.Extra, k)
		}
	}
	openapi.SortKeys(d.Missing)
	openapi.SortKeys(d.Extra)
	return d
}

// Problems renders the diff: a summary problem per non-empty direction, then
// one problem per entry up to limit.
func (d Diff) Problems(limit int) []problem.Problem {
	if limit <= 0 {
		limit = DefaultItemLimit
	}
	var problems []problem.Problem
	if len(d.Missing) > 0 {
		problems = append(problems,
			problem.Newf(problem.KindAPI, "openapi.yaml missing endpoints from markdown: %d", len(d.Missing)).
				WithHint("Add the paths/methods to the OpenAPI document, or remove/correct the endpoint in the docs."))
		for _, k := range capped(d.Missing, limit) {
			problems = append(problems, problem.Newf(problem.KindAPI, "  missing: %s", k))
		}
	}
	if len(d.Extra) > 0 {
		problems = append(problems,
			problem.Newf(problem.KindAPI, "markdown missing endpoints from openapi.yaml: %d", len(d.Extra)).
				WithHint("Document the endpoint in `integrations/api/*.md`, or remove it from the OpenAPI document."))
		for _, k := range capped(d.Extra, limit) {
			problems = append(problems, problem.Newf(problem.KindAPI, "  undocumented: %s", k))
		}
	}
	return problems
}

func capped(keys []openapi.EndpointKey, limit int) []openapi.EndpointKey {
	if len(keys) > limit {
		return keys[:limit]
	}
	return keys
}

// Check collects narrative endpoints and compares them with the
// specification's endpoints.
func Check(fsys fs.FS, dir, glob string, doc *openapi.Document, limit int) []problem.Problem {
	documented, err := Collect(fsys, dir, glob)
	if err != nil {
		return []problem.Problem{problem.Newf(problem.KindAPI, "failed to read API docs: %v", err)}
	}
	return Compare(doc.Endpoints(), documented).Problems(limit)
}
