// Package registry checks that every documentation path named by the contract
// registry exists. Only existence is checked, never content.
package registry

import (
	"errors"
	"io/fs"
	"path"
	"regexp"
	"strings"

	"github.com/kipp7/landslide-monitoring-v2/internal/problem"
)

var tokenRe = regexp.MustCompile("`([^`]+)`")

// DefaultPrefix is the documentation root prefix a token must start with to be
// treated as a path.
const DefaultPrefix = "docs/"

// References returns the trimmed backtick tokens of text that start with
// prefix, in order of appearance. Duplicates are kept.
func References(text, prefix string) []string {
	var refs []string
	for _, m := range tokenRe.FindAllStringSubmatch(text, -1) {
		token := strings.TrimSpace(m[1])
		if strings.HasPrefix(token, prefix) {
			refs = append(refs, token)
		}
	}
	return refs
}

// Check reads the registry document at name and reports every reference that
// does not resolve to an existing file or directory under prefix.
func Check(fsys fs.FS, name, prefix string) []problem.Problem {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []problem.Problem{problem.Newf(problem.KindRegistry, "missing contract registry: %s", name)}
		}
		return []problem.Problem{problem.Newf(problem.KindRegistry, "failed to read contract registry %s: %v", name, err)}
	}

	var problems []problem.Problem
	for _, token := range References(string(data), prefix) {
		if p, ok := resolve(fsys, token, prefix); !ok {
			problems = append(problems, p)
		}
	}
	return problems
}

func resolve(fsys fs.FS, token, prefix string) (problem.Problem, bool) {
	cleaned := path.Clean(token)
	root := strings.TrimSuffix(prefix, "/")
	if cleaned != root && !strings.HasPrefix(cleaned, root+"/") {
		return problem.Newf(problem.KindRegistry, "registry path escapes documentation root: %s", token), false
	}
	if !fs.ValidPath(cleaned) {
		return problem.Newf(problem.KindRegistry, "registry path does not exist: %s", token), false
	}
	if _, err := fs.Stat(fsys, cleaned); err != nil {
		return problem.Newf(problem.KindRegistry, "registry path does not exist: %s", token), false
	}
	return problem.Problem{}, true
}
