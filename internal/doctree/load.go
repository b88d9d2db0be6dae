package doctree

import (
	"errors"
	"fmt"
	"io/fs"
)

// ParseError reports a file that exists but could not be parsed.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// IsParseError reports whether err came from a document that failed to parse,
// as opposed to one that could not be read.
func IsParseError(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe)
}

// ReadYAML reads name from fsys and parses it as YAML.
func ReadYAML(fsys fs.FS, name string) (*Node, error) {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	n, err := ParseYAML(data)
	if err != nil {
		return nil, &ParseError{Path: name, Err: err}
	}
	return n, nil
}
