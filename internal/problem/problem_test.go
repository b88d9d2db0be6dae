package problem

import (
	"bytes"
	"strings"
	"testing"

	json "github.com/goccy/go-json"
)

func TestMergeKeepsOrderAndDuplicates(t *testing.T) {
	a := []Problem{New(KindOpenAPI, "one"), New(KindOpenAPI, "one")}
	b := []Problem{New(KindAPI, "two")}
	var c []Problem

	got := Merge(a, c, b)
	if len(got) != 3 {
		t.Fatalf("expected 3 problems, got %d", len(got))
	}
	if got[0] != got[1] {
		t.Errorf("expected equal problems to both be kept, got %v and %v", got[0], got[1])
	}
	if got[2].Kind != KindAPI {
		t.Errorf("expected last problem kind %q, got %q", KindAPI, got[2].Kind)
	}
}

func TestExitCode(t *testing.T) {
	var empty List
	if empty.ExitCode() != 0 {
		t.Errorf("expected 0 for empty list, got %d", empty.ExitCode())
	}
	l := List{New(KindSchema, "bad")}
	if l.ExitCode() != 1 {
		t.Errorf("expected 1 for non-empty list, got %d", l.ExitCode())
	}
}

func TestRenderText(t *testing.T) {
	tests := []struct {
		name string
		list List
		want string
	}{
		{
			name: "passed",
			list: nil,
			want: "Contract validation passed.\n",
		},
		{
			name: "with and without hint",
			list: List{
				New(KindRegistry, "registry path does not exist: docs/a.md"),
				New(KindOpenAPI, "GET /x: missing 500 response").WithHint("declare 500"),
			},
			want: "Contract validation failed:\n\n" +
				"- [registry] registry path does not exist: docs/a.md\n" +
				"- [openapi] GET /x: missing 500 response\n  hint: declare 500\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := RenderText(&buf, tt.list); err != nil {
				t.Fatalf("RenderText returned error: %v", err)
			}
			if buf.String() != tt.want {
				t.Errorf("unexpected output:\n%s\nwant:\n%s", buf.String(), tt.want)
			}
		})
	}
}

func TestRenderJSON(t *testing.T) {
	l := List{
		New(KindSchema, "a"),
		New(KindSchema, "b"),
		New(KindAPI, "c").WithHint("h"),
	}
	var buf bytes.Buffer
	if err := Render(&buf, l, FormatJSON); err != nil {
		t.Fatalf("Render returned error: %v", err)
	}

	var decoded struct {
		Passed bool `json:"passed"`
		Total  int  `json:"total"`
		Counts []struct {
			Kind  string `json:"kind"`
			Count int    `json:"count"`
		} `json:"counts"`
		Problems []Problem `json:"problems"`
	}
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, buf.String())
	}
	if decoded.Passed {
		t.Error("expected passed=false")
	}
	if decoded.Total != 3 {
		t.Errorf("expected total 3, got %d", decoded.Total)
	}
	if len(decoded.Counts) != 2 || decoded.Counts[0].Kind != KindAPI || decoded.Counts[1].Count != 2 {
		t.Errorf("unexpected counts: %+v", decoded.Counts)
	}
	if decoded.Problems[2].Hint != "h" {
		t.Errorf("expected hint to survive encoding, got %q", decoded.Problems[2].Hint)
	}
}

func TestRenderJSONEmptyList(t *testing.T) {
	var buf bytes.Buffer
	if err := RenderJSON(&buf, nil); err != nil {
		t.Fatalf("RenderJSON returned error: %v", err)
	}
	if !strings.Contains(buf.String(), `"problems": []`) {
		t.Errorf("expected empty problems array, got %s", buf.String())
	}
}

func TestParseFormat(t *testing.T) {
	for _, s := range []string{"", "text", "json"} {
		if _, err := ParseFormat(s); err != nil {
			t.Errorf("ParseFormat(%q) returned error: %v", s, err)
		}
	}
	if _, err := ParseFormat("xml"); err == nil {
		t.Error("expected error for unknown format")
	}
}
