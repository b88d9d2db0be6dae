package doctree

import (
	"errors"
	"io/fs"
	"testing"
	"testing/fstest"
)

const sampleYAML = `
openapi: 3.0.3
paths:
  /devices/{id}:
    get:
      responses:
        200:
          description: ok
        "404":
          description: missing
        default:
          description: error
      security: []
  /health:
    summary: probe
`

func TestParseYAMLOrderedMapping(t *testing.T) {
	root, err := ParseYAML([]byte(sampleYAML))
	if err != nil {
		t.Fatalf("ParseYAML returned error: %v", err)
	}
	if !root.IsMapping() {
		t.Fatalf("expected mapping root, got %s", root.Kind())
	}
	keys, err := root.Keys()
	if err != nil {
		t.Fatalf("Keys returned error: %v", err)
	}
	if len(keys) != 2 || keys[0] != "openapi" || keys[1] != "paths" {
		t.Errorf("expected document key order [openapi paths], got %v", keys)
	}

	paths, _ := root.Lookup("paths")
	entries, err := paths.Entries()
	if err != nil {
		t.Fatalf("Entries returned error: %v", err)
	}
	if entries[0].Key != "/devices/{id}" || entries[1].Key != "/health" {
		t.Errorf("unexpected path order: %q, %q", entries[0].Key, entries[1].Key)
	}
}

func TestParseYAMLNumericKeysBecomeText(t *testing.T) {
	root, err := ParseYAML([]byte(sampleYAML))
	if err != nil {
		t.Fatalf("ParseYAML returned error: %v", err)
	}
	paths, _ := root.Lookup("paths")
	item, _ := paths.Lookup("/devices/{id}")
	get, _ := item.Lookup("get")
	responses, ok := get.Lookup("responses")
	if !ok {
		t.Fatal("expected responses")
	}
	for _, code := range []string{"200", "404", "default"} {
		if !responses.Has(code) {
			t.Errorf("expected response code %q to be present", code)
		}
	}
}

func TestEmptySequenceIsDistinctFromAbsent(t *testing.T) {
	root, err := ParseYAML([]byte(sampleYAML))
	if err != nil {
		t.Fatalf("ParseYAML returned error: %v", err)
	}
	paths, _ := root.Lookup("paths")
	item, _ := paths.Lookup("/devices/{id}")
	get, _ := item.Lookup("get")

	sec, ok := get.Lookup("security")
	if !ok {
		t.Fatal("expected security key")
	}
	if !sec.IsSequence() || sec.Len() != 0 {
		t.Errorf("expected empty sequence, got %s len=%d", sec.Kind(), sec.Len())
	}
	if _, ok := get.Lookup("missing"); ok {
		t.Error("expected absent key to report false")
	}
}

func TestFallibleAccessors(t *testing.T) {
	scalar := FromValue("text")
	if _, err := scalar.Entries(); !errors.Is(err, ErrNotMapping) {
		t.Errorf("expected ErrNotMapping, got %v", err)
	}
	if _, err := scalar.Items(); !errors.Is(err, ErrNotSequence) {
		t.Errorf("expected ErrNotSequence, got %v", err)
	}
	mapping := FromValue(map[string]any{"a": 1})
	if _, err := mapping.Text(); !errors.Is(err, ErrNotScalar) {
		t.Errorf("expected ErrNotScalar, got %v", err)
	}
	var nilNode *Node
	if nilNode.Kind() != KindNull {
		t.Errorf("expected nil node to be null, got %s", nilNode.Kind())
	}
	if _, ok := nilNode.Lookup("x"); ok {
		t.Error("expected lookup on nil node to fail")
	}
}

func TestFromValueSortsUnorderedMaps(t *testing.T) {
	n := FromValue(map[string]any{"b": 1, "a": []any{"x", nil}})
	keys, _ := n.Keys()
	if keys[0] != "a" || keys[1] != "b" {
		t.Errorf("expected sorted keys, got %v", keys)
	}
	a, _ := n.Lookup("a")
	items, err := a.Items()
	if err != nil {
		t.Fatalf("Items returned error: %v", err)
	}
	if len(items) != 2 || !items[1].IsNull() {
		t.Errorf("unexpected items: %+v", items)
	}
}

func TestReadYAML(t *testing.T) {
	fsys := fstest.MapFS{
		"ok.yaml":  {Data: []byte("a: 1\n")},
		"bad.yaml": {Data: []byte("a: [1, 2\n")},
	}

	if _, err := ReadYAML(fsys, "ok.yaml"); err != nil {
		t.Fatalf("ReadYAML(ok.yaml) returned error: %v", err)
	}

	_, err := ReadYAML(fsys, "bad.yaml")
	if err == nil || !IsParseError(err) {
		t.Fatalf("expected parse error, got %v", err)
	}

	_, err = ReadYAML(fsys, "missing.yaml")
	if err == nil || IsParseError(err) {
		t.Fatalf("expected read error, got %v", err)
	}
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("expected fs.ErrNotExist, got %v", err)
	}
}
