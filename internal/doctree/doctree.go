package doctree

import (
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/goccy/go-yaml"
)

// Kind tags the variant held by a Node.
type Kind int

const (
	KindNull Kind = iota
	KindScalar
	KindMapping
	KindSequence
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindScalar:
		return "scalar"
	case KindMapping:
		return "mapping"
	case KindSequence:
		return "sequence"
	default:
		return "unknown"
	}
}

// Accessor errors. Callers match them with errors.Is.
var (
	ErrNotMapping  = errors.New("not a mapping")
	ErrNotSequence = errors.New("not a sequence")
	ErrNotScalar   = errors.New("not a scalar")
)

// Node is a parsed document value: a mapping, a sequence, a scalar, or null.
// Mapping keys keep document order.
type Node struct {
	kind   Kind
	value  any
	keys   []string
	fields map[string]*Node
	items  []*Node
}

// Entry is one key/value pair of a mapping node.
type Entry struct {
	Key   string
	Value *Node
}

// Kind returns the variant tag. A nil node is null.
func (n *Node) Kind() Kind {
	if n == nil {
		return KindNull
	}
	return n.kind
}

func (n *Node) IsMapping() bool  { return n.Kind() == KindMapping }
func (n *Node) IsSequence() bool { return n.Kind() == KindSequence }
func (n *Node) IsNull() bool     { return n.Kind() == KindNull }

// Lookup returns the value stored under key. It reports false when n is not a
// mapping or the key is absent.
func (n *Node) Lookup(key string) (*Node, bool) {
	if !n.IsMapping() {
		return nil, false
	}
	v, ok := n.fields[key]
	return v, ok
}

// Has reports whether n is a mapping containing key.
func (n *Node) Has(key string) bool {
	_, ok := n.Lookup(key)
	return ok
}

// Entries returns the mapping's pairs in document order.
func (n *Node) Entries() ([]Entry, error) {
	if !n.IsMapping() {
		return nil, fmt.Errorf("%s: %w", n.Kind(), ErrNotMapping)
	}
	out := make([]Entry, 0, len(n.keys))
	for _, k := range n.keys {
		out = append(out, Entry{Key: k, Value: n.fields[k]})
	}
	return out, nil
}

// Keys returns the mapping's keys in document order.
func (n *Node) Keys() ([]string, error) {
	if !n.IsMapping() {
		return nil, fmt.Errorf("%s: %w", n.Kind(), ErrNotMapping)
	}
	return append([]string(nil), n.keys...), nil
}

// Items returns the sequence's elements.
func (n *Node) Items() ([]*Node, error) {
	if !n.IsSequence() {
		return nil, fmt.Errorf("%s: %w", n.Kind(), ErrNotSequence)
	}
	return n.items, nil
}

// Len returns the number of entries or items; zero for scalars and null.
func (n *Node) Len() int {
	switch n.Kind() {
	case KindMapping:
		return len(n.keys)
	case KindSequence:
		return len(n.items)
	default:
		return 0
	}
}

// Text returns the scalar's textual form.
func (n *Node) Text() (string, error) {
	if n.Kind() != KindScalar {
		return "", fmt.Errorf("%s: %w", n.Kind(), ErrNotScalar)
	}
	return scalarText(n.value), nil
}

// Value returns the raw scalar value, or nil for other kinds.
func (n *Node) Value() any {
	if n.Kind() != KindScalar {
		return nil
	}
	return n.value
}

// ParseYAML parses a single YAML document into a Node. An empty document
// yields a null node.
func ParseYAML(data []byte) (*Node, error) {
	var raw any
	if err := yaml.UnmarshalWithOptions(data, &raw, yaml.UseOrderedMap()); err != nil {
		return nil, err
	}
	return FromValue(raw), nil
}

// FromValue converts a decoded value (YAML ordered maps, JSON maps, slices and
// scalars) into a Node. Keys of unordered maps are sorted.
func FromValue(v any) *Node {
	switch t := v.(type) {
	case nil:
		return &Node{kind: KindNull}
	case yaml.MapSlice:
		n := newMapping(len(t))
		for _, item := range t {
			n.set(scalarText(item.Key), FromValue(item.Value))
		}
		return n
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		n := newMapping(len(t))
		for _, k := range keys {
			n.set(k, FromValue(t[k]))
		}
		return n
	case map[any]any:
		keys := make([]string, 0, len(t))
		byText := make(map[string]any, len(t))
		for k, vv := range t {
			s := scalarText(k)
			keys = append(keys, s)
			byText[s] = vv
		}
		sort.Strings(keys)
		n := newMapping(len(t))
		for _, k := range keys {
			n.set(k, FromValue(byText[k]))
		}
		return n
	case []any:
		items := make([]*Node, 0, len(t))
		for _, item := range t {
			items = append(items, FromValue(item))
		}
		return &Node{kind: KindSequence, items: items}
	default:
		return &Node{kind: KindScalar, value: v}
	}
}

func newMapping(size int) *Node {
	return &Node{
		kind:   KindMapping,
		keys:   make([]string, 0, size),
		fields: make(map[string]*Node, size),
	}
}

// set stores a pair; a repeated key keeps its first position and the last value.
func (n *Node) set(key string, v *Node) {
	if _, exists := n.fields[key]; !exists {
		n.keys = append(n.keys, key)
	}
	n.fields[key] = v
}

func scalarText(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprint(t)
	}
}
