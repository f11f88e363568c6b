package planweave

import "fmt"

// MergeSpec expresses, for one multi-writer data input, the declared
// aggregation rule and the writers in declaration order. The compiler
// emits one per data input with two or more incoming connections; an
// undeclared strategy never reaches a MergeSpec, it is a validator error.
type MergeSpec struct {
	// Input is the local data input port.
	Input string `json:"input"`
	// Strategy is the declared merge strategy.
	Strategy MergeStrategy `json:"strategy"`
	// Writers are the source endpoints in declaration order.
	Writers []Endpoint `json:"writers"`
}

// Value is a possibly-absent runtime value. A writer on a branch that
// never fired contributes an undefined Value.
type Value struct {
	Defined bool
	V       any
}

// Defined wraps a present value.
func Defined(v any) Value { return Value{Defined: true, V: v} }

// Undefined is the absent value.
var Undefined = Value{}

// ResolveMerge combines the writer values, given in declaration order,
// under the declared strategy:
//
//   - COLLECT: ordered list of the defined values (a skipped writer
//     contributes nothing).
//   - MERGE: shallow union of object values; later writers override
//     earlier keys.
//   - CONCAT: COLLECT, then flattened one level.
//   - FIRST: first defined value.
//   - LAST: last defined value.
func ResolveMerge(strategy MergeStrategy, values []Value) (Value, error) {
	switch strategy {
	case MergeCollect:
		return Defined(collect(values)), nil
	case MergeUnion:
		out := make(map[string]any)
		for _, v := range values {
			if !v.Defined {
				continue
			}
			obj, ok := v.V.(map[string]any)
			if !ok {
				return Undefined, fmt.Errorf("MERGE requires object values, got %T", v.V)
			}
			for k, val := range obj {
				out[k] = val
			}
		}
		return Defined(out), nil
	case MergeConcat:
		var out []any
		for _, v := range collect(values) {
			if elems, ok := v.([]any); ok {
				out = append(out, elems...)
			} else {
				out = append(out, v)
			}
		}
		return Defined(out), nil
	case MergeFirst:
		for _, v := range values {
			if v.Defined {
				return v, nil
			}
		}
		return Undefined, nil
	case MergeLast:
		for i := len(values) - 1; i >= 0; i-- {
			if values[i].Defined {
				return values[i], nil
			}
		}
		return Undefined, nil
	default:
		return Undefined, fmt.Errorf("no merge strategy declared")
	}
}

func collect(values []Value) []any {
	out := make([]any, 0, len(values))
	for _, v := range values {
		if v.Defined {
			out = append(out, v.V)
		}
	}
	return out
}

// mergeSpecsFor computes the merge specs for one instance: one spec per
// data input with two or more writers. remap translates scope contract
// endpoints, as in guardFor.
func mergeSpecsFor(wf *Workflow, inst *NodeInstance, remap func(Endpoint) Endpoint) []MergeSpec {
	var specs []MergeSpec
	for _, port := range inst.Type.Inputs() {
		if port.Kind != DataPort || port.Scope != "" {
			continue
		}
		writers := wf.WritersTo(Endpoint{Instance: inst.ID, Port: port.Name})
		if len(writers) < 2 {
			continue
		}
		spec := MergeSpec{Input: port.Name, Strategy: port.Merge}
		for _, c := range writers {
			spec.Writers = append(spec.Writers, remap(c.From))
		}
		specs = append(specs, spec)
	}
	return specs
}
