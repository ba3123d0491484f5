package trpt

import (
	"encoding/json"
	"fmt"
	"strings"
)

// JSONString is the mapping that selects the whole structured value rendered
// as JSON text instead of a single leaf.
const JSONString = "jsonString"

// Lookup resolves a dotted path such as "intHdr.mdStackHdr.origMac" against
// the value returned by Report.Fields.
func Lookup(fields map[string]any, path string) (any, error) {
	if path == JSONString {
		b, err := json.Marshal(fields)
		if err != nil {
			return nil, fmt.Errorf("render %s: %w", JSONString, err)
		}
		return string(b), nil
	}
	if path == "" {
		return nil, fmt.Errorf("%w: empty path", ErrFieldNotFound)
	}

	var cur any = fields
	segments := strings.Split(path, ".")
	for i, seg := range segments {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: %q is a leaf", ErrFieldNotFound, strings.Join(segments[:i], "."))
		}
		if cur, ok = m[seg]; !ok {
			return nil, fmt.Errorf("%w: %q", ErrFieldNotFound, strings.Join(segments[:i+1], "."))
		}
	}
	return cur, nil
}

// Lookup resolves path against r.Fields.
func (r *Report) Lookup(path string) (any, error) {
	return Lookup(r.Fields(), path)
}
