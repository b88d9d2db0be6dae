package openapi

import (
	"context"
	"errors"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/kipp7/landslide-monitoring-v2/internal/doctree"
	"github.com/kipp7/landslide-monitoring-v2/internal/problem"
)

const completeSpec = `openapi: 3.0.3
info:
  title: landslide api
  version: 2.0.0
paths:
  /devices:
    summary: device collection
    parameters: []
    get:
      responses:
        "200": {description: ok}
        "401": {description: unauthenticated}
        "403": {description: forbidden}
        "500": {description: error}
        default: {description: error}
  /devices/{id}:
    parameters:
      - name: id
        in: path
        required: true
        schema: {type: string}
    delete:
      responses:
        "200": {description: ok}
        "401": {description: unauthenticated}
        "403": {description: forbidden}
        "404": {description: not found}
        "500": {description: error}
        default: {description: error}
  /health:
    get:
      security: []
      responses:
        "200": {description: ok}
        "500": {description: error}
        default: {description: error}
`

func mustBuild(t *testing.T, src string) *Document {
	t.Helper()
	root, err := doctree.ParseYAML([]byte(src))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	doc, err := Build(root)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	return doc
}

func messages(ps []problem.Problem) []string {
	out := make([]string, 0, len(ps))
	for _, p := range ps {
		out = append(out, p.Message)
	}
	return out
}

func TestBuildExtractsOperations(t *testing.T) {
	doc := mustBuild(t, completeSpec)

	if doc.Version != "3.0.3" {
		t.Errorf("expected version 3.0.3, got %q", doc.Version)
	}
	want := []EndpointKey{
		{"GET", "/devices"},
		{"DELETE", "/devices/{id}"},
		{"GET", "/health"},
	}
	if len(doc.Operations) != len(want) {
		t.Fatalf("expected %d operations, got %d", len(want), len(doc.Operations))
	}
	for i, k := range want {
		if doc.Operations[i].Key != k {
			t.Errorf("operation %d: expected %v, got %v", i, k, doc.Operations[i].Key)
		}
	}
	if !doc.Operations[2].Public {
		t.Error("expected GET /health to be public")
	}
	if doc.Operations[0].Public {
		t.Error("expected GET /devices to be secured by default")
	}
}

func TestBuildMethodCaseInsensitive(t *testing.T) {
	doc := mustBuild(t, `paths:
  /a:
    Get:
      responses: {}
    x-internal:
      responses: {}
    post: "not a mapping"
`)
	if len(doc.Operations) != 1 || doc.Operations[0].Key != (EndpointKey{"GET", "/a"}) {
		t.Fatalf("unexpected operations: %+v", doc.Operations)
	}
}

func TestBuildRejectsMalformedRootAndPaths(t *testing.T) {
	root, _ := doctree.ParseYAML([]byte("- a\n- b\n"))
	if _, err := Build(root); err == nil {
		t.Error("expected error for sequence root")
	}

	root, _ = doctree.ParseYAML([]byte("paths: [1, 2]\n"))
	_, err := Build(root)
	if !errors.Is(err, ErrPathsNotMapping) || err.Error() != "openapi.paths must be a mapping" {
		t.Errorf("expected paths error, got %v", err)
	}
}

func TestCompletenessBaseline(t *testing.T) {
	doc := mustBuild(t, completeSpec)
	if got := CheckCompleteness(doc, DefaultPolicy); len(got) != 0 {
		t.Fatalf("expected no problems, got %v", messages(got))
	}
}

func TestCompletenessMonotonicity(t *testing.T) {
	tests := []struct {
		name   string
		remove string
		path   string
		want   string
	}{
		{"success", `"200": {description: ok}`, "/devices", "GET /devices: missing 200/201 response"},
		{"default", `default: {description: error}`, "/devices", "GET /devices: missing default response"},
		{"500", `"500": {description: error}`, "/devices", "GET /devices: missing 500 response"},
		{"401", `"401": {description: unauthenticated}`, "/devices", "GET /devices: missing 401 response"},
		{"403", `"403": {description: forbidden}`, "/devices", "GET /devices: missing 403 response"},
		{"404", `"404": {description: not found}`, "/devices/{id}", "DELETE /devices/{id}: missing 404 response"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Drop the first occurrence only, which belongs to the targeted operation.
			src := strings.Replace(completeSpec, "        "+tt.remove+"\n", "", 1)
			if src == completeSpec {
				t.Fatalf("fixture does not contain %q", tt.remove)
			}
			got := CheckCompleteness(mustBuild(t, src), DefaultPolicy)
			if len(got) != 1 {
				t.Fatalf("expected exactly 1 problem, got %v", messages(got))
			}
			if got[0].Message != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got[0].Message)
			}
			if got[0].Kind != problem.KindOpenAPI || !got[0].HasHint() {
				t.Errorf("expected openapi problem with hint, got %+v", got[0])
			}
		})
	}
}

func TestCompletenessMissingResponsesStopsOperation(t *testing.T) {
	doc := mustBuild(t, `paths:
  /devices/{id}:
    get:
      summary: nothing declared
    put:
      responses: "oops"
`)
	got := CheckCompleteness(doc, DefaultPolicy)
	want := []string{
		"GET /devices/{id}: missing responses",
		"PUT /devices/{id}: missing responses",
	}
	if strings.Join(messages(got), "|") != strings.Join(want, "|") {
		t.Errorf("expected %v, got %v", want, messages(got))
	}
}

func TestCompletenessEveryRuleReported(t *testing.T) {
	doc := mustBuild(t, `paths:
  /devices/{id}:
    get:
      responses: {}
`)
	got := CheckCompleteness(doc, DefaultPolicy)
	want := []string{
		"GET /devices/{id}: missing 200/201 response",
		"GET /devices/{id}: missing default response",
		"GET /devices/{id}: missing 500 response",
		"GET /devices/{id}: missing 404 response",
		"GET /devices/{id}: missing 401 response",
		"GET /devices/{id}: missing 403 response",
	}
	if strings.Join(messages(got), "|") != strings.Join(want, "|") {
		t.Errorf("expected %v, got %v", want, messages(got))
	}
}

func TestCompletenessNonEmptySecurityIsSecured(t *testing.T) {
	doc := mustBuild(t, `paths:
  /a:
    post:
      security:
        - bearerAuth: []
      responses:
        "201": {description: created}
        "500": {description: error}
        default: {description: error}
`)
	got := CheckCompleteness(doc, DefaultPolicy)
	if len(got) != 2 {
		t.Fatalf("expected 401 and 403 problems, got %v", messages(got))
	}
}

func TestCompletenessPolicyExtension(t *testing.T) {
	policy := append(append([]Rule(nil), DefaultPolicy...), Rule{
		Name:      "429",
		Applies:   always,
		Satisfied: declares("429"),
	})
	got := CheckCompleteness(mustBuild(t, completeSpec), policy)
	if len(got) != 3 {
		t.Fatalf("expected one 429 problem per operation, got %v", messages(got))
	}
}

func TestLoad(t *testing.T) {
	fsys := fstest.MapFS{
		"ok.yaml":        {Data: []byte(completeSpec)},
		"noversion.yaml": {Data: []byte("paths: {}\n")},
		"broken.yaml":    {Data: []byte("paths: {\n")},
		"list.yaml":      {Data: []byte("- 1\n")},
		"seqpaths.yaml":  {Data: []byte("info: {title: x}\npaths: [1, 2]\n")},
	}

	doc, ps := Load(fsys, "ok.yaml")
	if doc == nil || len(ps) != 0 {
		t.Fatalf("expected clean load, got doc=%v problems=%v", doc, messages(ps))
	}

	doc, ps = Load(fsys, "noversion.yaml")
	if doc == nil || len(ps) != 1 || ps[0].Message != "noversion.yaml missing 'openapi' field" {
		t.Errorf("expected missing openapi field problem, got %v", messages(ps))
	}

	doc, ps = Load(fsys, "broken.yaml")
	if doc != nil || len(ps) != 1 || !strings.HasPrefix(ps[0].Message, "failed to parse broken.yaml") {
		t.Errorf("expected parse problem, got %v", messages(ps))
	}

	doc, ps = Load(fsys, "list.yaml")
	if doc != nil || len(ps) != 1 {
		t.Errorf("expected root problem, got %v", messages(ps))
	}

	doc, ps = Load(fsys, "seqpaths.yaml")
	if doc == nil || len(doc.Operations) != 0 {
		t.Fatalf("expected empty document for malformed paths, got %+v", doc)
	}
	want := []string{"seqpaths.yaml missing 'openapi' field", "openapi.paths must be a mapping"}
	if got := messages(ps); strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("expected %v, got %v", want, got)
	}

	doc, ps = Load(fsys, "absent.yaml")
	if doc != nil || len(ps) != 1 || ps[0].Message != "missing specification: absent.yaml" {
		t.Errorf("expected missing specification problem, got %v", messages(ps))
	}
}

func TestStructuralCheck(t *testing.T) {
	fsys := fstest.MapFS{
		"ok.yaml":  {Data: []byte(completeSpec)},
		"bad.yaml": {Data: []byte("openapi: 3.0.3\npaths: {}\n")},
	}
	ctx := context.Background()

	if got := StructuralCheck(ctx, fsys, "ok.yaml"); len(got) != 0 {
		t.Errorf("expected valid document, got %v", messages(got))
	}
	got := StructuralCheck(ctx, fsys, "bad.yaml")
	if len(got) != 1 || got[0].Kind != problem.KindOpenAPI {
		t.Errorf("expected one openapi problem for missing info, got %v", messages(got))
	}
}
