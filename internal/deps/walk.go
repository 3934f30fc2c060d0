package deps

import (
	"encoding/json"
	"fmt"
	"math"
	"slices"
)

// MissingResolutionError is returned by Replace when a reference has no
// entry in the resolution map. Callers that resolve everything Extract
// returned never see it.
type MissingResolutionError struct {
	Dependency Dependency
}

func (e *MissingResolutionError) Error() string {
	return fmt.Sprintf("missing resolution for %s", e.Dependency)
}

// Parse reports whether v is a reference object and returns it.
func Parse(v any) (Dependency, bool) {
	obj, ok := v.(map[string]any)
	if !ok {
		return Dependency{}, false
	}
	name, ok := obj["kind"].(string)
	if !ok {
		return Dependency{}, false
	}
	kind, ok := ParseKind(name)
	if !ok {
		return Dependency{}, false
	}
	id, ok := parseID(obj["id"])
	if !ok {
		return Dependency{}, false
	}
	return Dependency{Kind: kind, ID: id}, true
}

// parseID accepts the numeric forms a decoded value may carry.
func parseID(v any) (uint32, bool) {
	switch n := v.(type) {
	case float64:
		if n < 0 || n > math.MaxUint32 || n != math.Trunc(n) {
			return 0, false
		}
		return uint32(n), true
	case int:
		if n < 0 || n > math.MaxUint32 {
			return 0, false
		}
		return uint32(n), true
	case int64:
		if n < 0 || n > math.MaxUint32 {
			return 0, false
		}
		return uint32(n), true
	case uint32:
		return n, true
	case uint64:
		if n > math.MaxUint32 {
			return 0, false
		}
		return uint32(n), true
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, false
		}
		return parseID(i)
	default:
		return 0, false
	}
}

// Extract returns the references embedded in v as an ordered set: in walk
// order, each reference once.
func Extract(v any) []Dependency {
	var out []Dependency
	seen := make(map[Dependency]struct{})
	walk(v, func(d Dependency) {
		if _, ok := seen[d]; ok {
			return
		}
		seen[d] = struct{}{}
		out = append(out, d)
	})
	return out
}

// ExtractInputs returns the file-producing references embedded in v.
// Toolchain references are skipped.
func ExtractInputs(v any) []Input {
	var out []Input
	for _, d := range Extract(v) {
		if in, ok := d.Input(); ok {
			out = append(out, in)
		}
	}
	return out
}

func walk(v any, visit func(Dependency)) {
	if d, ok := Parse(v); ok {
		visit(d)
		return
	}
	switch t := v.(type) {
	case map[string]any:
		for _, k := range sortedKeys(t) {
			walk(t[k], visit)
		}
	case []any:
		for _, e := range t {
			walk(e, visit)
		}
	}
}

// Replace returns a copy of v in which every reference is replaced by the
// JSON shape of its entry in resolved. v itself is not modified.
func Replace(v any, resolved map[Dependency]any) (any, error) {
	if d, ok := Parse(v); ok {
		r, ok := resolved[d]
		if !ok {
			return nil, &MissingResolutionError{Dependency: d}
		}
		return toWire(r)
	}
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for _, k := range sortedKeys(t) {
			nv, err := Replace(t[k], resolved)
			if err != nil {
				return nil, err
			}
			out[k] = nv
		}
		return out, nil
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			nv, err := Replace(e, resolved)
			if err != nil {
				return nil, err
			}
			out[i] = nv
		}
		return out, nil
	default:
		return v, nil
	}
}

// toWire serializes a resolved value into the map/slice/scalar shape so the
// substituted tree stays uniform.
func toWire(v any) (any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("serializing resolved value: %w", err)
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decoding resolved value: %w", err)
	}
	return out, nil
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
