package openapi

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/kipp7/landslide-monitoring-v2/internal/doctree"
	"github.com/kipp7/landslide-monitoring-v2/internal/problem"
)

// Load reads and parses the specification at name. When the document cannot
// be used at all (unreadable, unparsable, or not a mapping), it returns a nil
// Document and the problems explaining why. A paths value that is not a
// mapping is a problem but yields an empty Document.
func Load(fsys fs.FS, name string) (*Document, []problem.Problem) {
	root, err := doctree.ReadYAML(fsys, name)
	if err != nil {
		if !doctree.IsParseError(err) {
			return nil, []problem.Problem{problem.Newf(problem.KindOpenAPI, "missing specification: %s", name)}
		}
		return nil, []problem.Problem{
			problem.Newf(problem.KindOpenAPI, "failed to parse %s: %v", baseName(name), unwrapParse(err)),
		}
	}

	var problems []problem.Problem
	if root.IsMapping() && !root.Has("openapi") {
		problems = append(problems, problem.Newf(problem.KindOpenAPI, "%s missing 'openapi' field", baseName(name)))
	}

	doc, err := Build(root)
	switch {
	case errors.Is(err, ErrPathsNotMapping):
		// The document is still usable as an empty operation table.
		problems = append(problems, problem.New(problem.KindOpenAPI, err.Error()))
		doc = &Document{}
		if v, ok := root.Lookup("openapi"); ok {
			doc.Version, _ = v.Text()
		}
	case err != nil:
		return nil, append(problems, problem.New(problem.KindOpenAPI, err.Error()))
	}
	return doc, problems
}

// StructuralCheck validates the document against the OpenAPI 3 structure
// rules. It runs only in strict mode and reports at most one problem.
func StructuralCheck(ctx context.Context, fsys fs.FS, name string) []problem.Problem {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return []problem.Problem{problem.Newf(problem.KindOpenAPI, "read %s: %v", name, err)}
	}

	loader := openapi3.NewLoader()
	loader.Context = ctx
	loader.IsExternalRefsAllowed = false

	doc, err := loader.LoadFromData(data)
	if err != nil {
		return []problem.Problem{problem.Newf(problem.KindOpenAPI, "failed to load %s: %v", baseName(name), err)}
	}
	if err := doc.Validate(ctx); err != nil {
		return []problem.Problem{
			problem.Newf(problem.KindOpenAPI, "invalid OpenAPI document %s: %v", baseName(name), err).
				WithHint("Fix the document structure; strict mode validates it against the OpenAPI 3 rules."),
		}
	}
	return nil
}

func baseName(name string) string {
	return path.Base(name)
}

// unwrapParse strips the file name a ParseError adds, since callers name the
// file themselves.
func unwrapParse(err error) error {
	var pe *doctree.ParseError
	if errors.As(err, &pe) {
		return pe.Err
	}
	return err
}

// String renders an operation for logs.
func (o Operation) String() string {
	return fmt.Sprintf("%s (responses=%d public=%t)", o.Key, len(o.Responses), o.Public)
}
