package schemacheck

import (
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strconv"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/santhosh-tekuri/jsonschema/v6"
	"github.com/santhosh-tekuri/jsonschema/v6/kind"
	"go.uber.org/zap"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/kipp7/landslide-monitoring-v2/internal/problem"
)

// Defaults for the file-name conventions.
const (
	DefaultSchemaSuffix    = ".schema.json"
	DefaultRuleExampleGlob = "*.v1.json"
	DefaultItemLimit       = 10
)

// Domain pairs every schema in SchemaDir with the example in ExamplesDir whose
// name is the schema name without its suffix, plus ".json".
type Domain struct {
	Name         string
	SchemaDir    string
	ExamplesDir  string
	SchemaSuffix string
}

// RuleDomain validates every example matching ExampleGlob against one schema.
type RuleDomain struct {
	Name        string
	Schema      string
	ExamplesDir string
	ExampleGlob string
}

// Options configures a Validator.
type Options struct {
	// ItemLimit caps itemized violations per example.
	ItemLimit int
	// AssertFormat makes "format" an assertion instead of an annotation.
	AssertFormat bool
	Logger       *zap.Logger
}

// Validator checks examples against JSON Schema draft 2020-12 schemas read
// from a file system.
type Validator struct {
	fsys    fs.FS
	opts    Options
	printer *message.Printer
	logger  *zap.Logger
}

// New creates a Validator reading from fsys.
func New(fsys fs.FS, opts Options) *Validator {
	if opts.ItemLimit <= 0 {
		opts.ItemLimit = DefaultItemLimit
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Validator{
		fsys:    fsys,
		opts:    opts,
		printer: message.NewPrinter(language.English),
		logger:  logger,
	}
}

// CheckDomain validates every schema/example pair of d.
func (v *Validator) CheckDomain(d Domain) []problem.Problem {
	suffix := d.SchemaSuffix
	if suffix == "" {
		suffix = DefaultSchemaSuffix
	}
	if !v.isDir(d.SchemaDir) {
		return []problem.Problem{problem.Newf(problem.KindSchema, "missing schema dir: %s", d.SchemaDir)}
	}
	if !v.isDir(d.ExamplesDir) {
		return []problem.Problem{problem.Newf(problem.KindSchema, "missing examples dir: %s", d.ExamplesDir)}
	}

	schemas, err := v.glob(d.SchemaDir, "*"+suffix)
	if err != nil {
		return []problem.Problem{problem.Newf(problem.KindSchema, "failed to list schemas in %s: %v", d.SchemaDir, err)}
	}
	if len(schemas) == 0 {
		return []problem.Problem{problem.Newf(problem.KindSchema, "no schema files found in: %s", d.SchemaDir)}
	}

	var problems []problem.Problem
	for _, schemaPath := range schemas {
		pair := PairFor(schemaPath, d.ExamplesDir, suffix)
		if !v.exists(pair.Example) {
			problems = append(problems,
				problem.Newf(problem.KindSchema, "missing example for schema: %s", schemaPath).
					WithHint("Expected example file: "+pair.Example))
			continue
		}

		sch, ps := v.compile(schemaPath)
		if len(ps) > 0 {
			problems = append(problems, ps...)
			continue
		}
		problems = append(problems, v.validateExample(sch, pair.Example, "schema validation failed")...)
	}
	v.logger.Debug("schema domain checked",
		zap.String("domain", d.Name),
		zap.Int("schemas", len(schemas)),
		zap.Int("problems", len(problems)),
	)
	return problems
}

// CheckRuleDomain validates every rule example against the domain's schema.
func (v *Validator) CheckRuleDomain(d RuleDomain) []problem.Problem {
	glob := d.ExampleGlob
	if glob == "" {
		glob = DefaultRuleExampleGlob
	}
	if !v.exists(d.Schema) {
		return []problem.Problem{problem.Newf(problem.KindSchema, "missing rules schema: %s", d.Schema)}
	}
	if !v.isDir(d.ExamplesDir) {
		return []problem.Problem{problem.Newf(problem.KindSchema, "missing rules examples dir: %s", d.ExamplesDir)}
	}

	sch, ps := v.compile(d.Schema)
	if len(ps) > 0 {
		return ps
	}

	examples, err := v.glob(d.ExamplesDir, glob)
	if err != nil {
		return []problem.Problem{problem.Newf(problem.KindSchema, "failed to list rules examples in %s: %v", d.ExamplesDir, err)}
	}
	if len(examples) == 0 {
		return []problem.Problem{problem.Newf(problem.KindSchema, "no rules examples found in: %s", d.ExamplesDir)}
	}

	var problems []problem.Problem
	for _, ex := range examples {
		problems = append(problems, v.validateExample(sch, ex, "rules DSL schema validation failed")...)
	}
	v.logger.Debug("rule domain checked",
		zap.String("domain", d.Name),
		zap.Int("examples", len(examples)),
		zap.Int("problems", len(problems)),
	)
	return problems
}

// Pair is a schema file and the example file expected for it.
type Pair struct {
	Schema  string
	Example string
}

// PairFor derives the example path for schemaPath: the schema's base name with
// suffix stripped, plus ".json", inside examplesDir.
func PairFor(schemaPath, examplesDir, suffix string) Pair {
	base := strings.TrimSuffix(path.Base(schemaPath), suffix)
	return Pair{Schema: schemaPath, Example: path.Join(examplesDir, base+".json")}
}

func (v *Validator) compile(schemaPath string) (*jsonschema.Schema, []problem.Problem) {
	doc, err := v.readJSON(schemaPath)
	if err != nil {
		return nil, []problem.Problem{problem.Newf(problem.KindSchema, "failed to load json: %s: %v", schemaPath, err)}
	}

	c := jsonschema.NewCompiler()
	c.DefaultDraft(jsonschema.Draft2020)
	c.UseLoader(fsLoader{fsys: v.fsys})
	if v.opts.AssertFormat {
		c.AssertFormat()
	}
	url := fileURL(schemaPath)
	if err := c.AddResource(url, doc); err != nil {
		return nil, []problem.Problem{problem.Newf(problem.KindSchema, "invalid schema: %s: %v", schemaPath, err)}
	}
	sch, err := c.Compile(url)
	if err != nil {
		return nil, []problem.Problem{problem.Newf(problem.KindSchema, "invalid schema: %s: %v", schemaPath, err)}
	}
	return sch, nil
}

func (v *Validator) validateExample(sch *jsonschema.Schema, examplePath, summary string) []problem.Problem {
	inst, err := v.readJSON(examplePath)
	if err != nil {
		return []problem.Problem{problem.Newf(problem.KindSchema, "failed to load json: %s: %v", examplePath, err)}
	}

	violations := Validate(sch, inst, v.printer)
	if len(violations) == 0 {
		return nil
	}
	problems := []problem.Problem{problem.Newf(problem.KindSchema, "%s: %s", summary, examplePath)}
	for i, vi := range violations {
		if i == v.opts.ItemLimit {
			break
		}
		problems = append(problems, problem.Newf(problem.KindSchema, "  path=%s: %s", vi.DisplayPath(), vi.Message))
	}
	return problems
}

// Violation is one leaf validation failure.
type Violation struct {
	// InstancePath is a JSON Pointer into the example; empty for the root.
	InstancePath string
	// Location holds the unescaped tokens of InstancePath.
	Location []string
	Message  string
}

// DisplayPath renders the instance path, using "/" for the root.
func (vi Violation) DisplayPath() string {
	if vi.InstancePath == "" {
		return "/"
	}
	return vi.InstancePath
}

// Validate validates inst against sch and returns the leaf failures sorted by
// instance location, then message. Locations compare token by token, array
// indices numerically. A missing required property is reported at the
// property's own path.
func Validate(sch *jsonschema.Schema, inst any, p *message.Printer) []Violation {
	err := sch.Validate(inst)
	if err == nil {
		return nil
	}
	ve, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return []Violation{{Message: err.Error()}}
	}

	var out []Violation
	collectLeaves(ve, p, &out)
	sort.SliceStable(out, func(i, j int) bool {
		if c := compareLocation(out[i].Location, out[j].Location); c != 0 {
			return c < 0
		}
		return out[i].Message < out[j].Message
	})
	return out
}

// compareLocation orders instance locations token by token. Two array indices
// compare as numbers, anything else as strings; a prefix sorts first.
func compareLocation(a, b []string) int {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] == b[i] {
			continue
		}
		ai, aok := arrayIndex(a[i])
		bi, bok := arrayIndex(b[i])
		if aok && bok {
			if ai < bi {
				return -1
			}
			return 1
		}
		if a[i] < b[i] {
			return -1
		}
		return 1
	}
	return len(a) - len(b)
}

func arrayIndex(tok string) (int, bool) {
	if tok == "" || (len(tok) > 1 && tok[0] == '0') {
		return 0, false
	}
	for _, r := range tok {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(tok)
	return n, err == nil
}

func collectLeaves(ve *jsonschema.ValidationError, p *message.Printer, out *[]Violation) {
	if len(ve.Causes) > 0 {
		for _, c := range ve.Causes {
			collectLeaves(c, p, out)
		}
		return
	}

	if req, ok := ve.ErrorKind.(*kind.Required); ok {
		for _, prop := range req.Missing {
			one := &kind.Required{Missing: []string{prop}}
			loc := append(append([]string(nil), ve.InstanceLocation...), prop)
			*out = append(*out, Violation{
				InstancePath: pointer(loc),
				Location:     loc,
				Message:      one.LocalizedString(p),
			})
		}
		return
	}

	*out = append(*out, Violation{
		InstancePath: pointer(ve.InstanceLocation),
		Location:     append([]string(nil), ve.InstanceLocation...),
		Message:      ve.ErrorKind.LocalizedString(p),
	})
}

// pointer renders tokens as an RFC 6901 JSON Pointer.
func pointer(tokens []string) string {
	if len(tokens) == 0 {
		return ""
	}
	var b strings.Builder
	for _, tok := range tokens {
		b.WriteByte('/')
		tok = strings.ReplaceAll(tok, "~", "~0")
		tok = strings.ReplaceAll(tok, "/", "~1")
		b.WriteString(tok)
	}
	return b.String()
}

func (v *Validator) readJSON(name string) (any, error) {
	f, err := v.fsys.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return jsonschema.UnmarshalJSON(f)
}

func (v *Validator) glob(dir, pattern string) ([]string, error) {
	matches, err := doublestar.Glob(v.fsys, path.Join(dir, pattern))
	if err != nil {
		return nil, err
	}
	sort.Strings(matches)
	return matches, nil
}

func (v *Validator) isDir(name string) bool {
	st, err := fs.Stat(v.fsys, name)
	return err == nil && st.IsDir()
}

func (v *Validator) exists(name string) bool {
	st, err := fs.Stat(v.fsys, name)
	return err == nil && !st.IsDir()
}

// fsLoader resolves file: references between schemas against the checked
// file system instead of the process working directory.
type fsLoader struct {
	fsys fs.FS
}

func (l fsLoader) Load(url string) (any, error) {
	if !strings.HasPrefix(url, fileScheme) {
		return nil, fmt.Errorf("unsupported schema reference %q", url)
	}
	f, err := l.fsys.Open(strings.TrimPrefix(url, fileScheme))
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return jsonschema.UnmarshalJSON(f)
}

const fileScheme = "file:///"

func fileURL(name string) string {
	return fileScheme + strings.TrimPrefix(path.Clean(name), "/")
}
