package openapi

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/kipp7/landslide-monitoring-v2/internal/doctree"
)

// httpMethods are the path-item keys treated as operations.
var httpMethods = map[string]bool{
	"get": true, "post": true, "put": true, "delete": true, "patch": true,
}

// ErrPathsNotMapping is returned by Build when the top-level paths value is
// present but not a mapping.
var ErrPathsNotMapping = errors.New("openapi.paths must be a mapping")

// reservedKeys are path-item keys that are never operations.
var reservedKeys = map[string]bool{
	"parameters": true, "summary": true, "description": true,
}

// EndpointKey identifies an operation by uppercased method and verbatim path.
type EndpointKey struct {
	Method string
	Path   string
}

func (k EndpointKey) String() string {
	return k.Method + " " + k.Path
}

// Less orders keys by method, then path.
func (k EndpointKey) Less(o EndpointKey) bool {
	if k.Method != o.Method {
		return k.Method < o.Method
	}
	return k.Path < o.Path
}

// SortKeys sorts keys in place by method, then path.
func SortKeys(keys []EndpointKey) {
	sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })
}

// Operation is one method bound to one path.
type Operation struct {
	Key EndpointKey

	// Responses holds the declared status codes. It is nil when the operation
	// has no responses mapping (absent or malformed).
	Responses map[string]bool

	// Public is true only when the operation declares an empty security
	// requirement list. A missing security field means secured.
	Public bool
}

// HasResponses reports whether a responses mapping was declared.
func (o Operation) HasResponses() bool {
	return o.Responses != nil
}

// Declares reports whether code is among the declared responses.
func (o Operation) Declares(code string) bool {
	return o.Responses[code]
}

// HasPathParam reports whether the path template contains a {param} segment.
func (o Operation) HasPathParam() bool {
	open := strings.Index(o.Key.Path, "{")
	return open >= 0 && strings.Contains(o.Key.Path[open:], "}")
}

// Document is the operation table of a specification, in document order.
type Document struct {
	// Version is the top-level "openapi" field; empty when absent.
	Version    string
	Operations []Operation
}

// Endpoints returns the set of endpoint keys declared by the document.
func (d *Document) Endpoints() map[EndpointKey]bool {
	set := make(map[EndpointKey]bool, len(d.Operations))
	for _, op := range d.Operations {
		set[op.Key] = true
	}
	return set
}

// Build extracts the operation table from a parsed specification. Path items
// and operations that are not mappings are skipped, and only get, post, put,
// delete and patch keys (case-insensitive) count as operations.
func Build(root *doctree.Node) (*Document, error) {
	if !root.IsMapping() {
		return nil, fmt.Errorf("openapi root must be a mapping, got %s", root.Kind())
	}
	doc := &Document{}
	if v, ok := root.Lookup("openapi"); ok {
		doc.Version, _ = v.Text()
	}

	paths, ok := root.Lookup("paths")
	if !ok {
		return doc, nil
	}
	entries, err := paths.Entries()
	if err != nil {
		return nil, ErrPathsNotMapping
	}

	for _, pe := range entries {
		items, err := pe.Value.Entries()
		if err != nil {
			continue
		}
		for _, me := range items {
			if reservedKeys[me.Key] || !httpMethods[strings.ToLower(me.Key)] {
				continue
			}
			if !me.Value.IsMapping() {
				continue
			}
			doc.Operations = append(doc.Operations, buildOperation(pe.Key, me.Key, me.Value))
		}
	}
	return doc, nil
}

func buildOperation(path, method string, node *doctree.Node) Operation {
	op := Operation{Key: EndpointKey{Method: strings.ToUpper(method), Path: path}}

	if responses, ok := node.Lookup("responses"); ok && responses.IsMapping() {
		keys, _ := responses.Keys()
		op.Responses = make(map[string]bool, len(keys))
		for _, k := range keys {
			op.Responses[k] = true
		}
	}

	if sec, ok := node.Lookup("security"); ok && sec.IsSequence() && sec.Len() == 0 {
		op.Public = true
	}
	return op
}
