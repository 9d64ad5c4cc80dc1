package grammar

import (
	"fmt"
	"slices"

	"github.com/ai-den/jsongrammar/format"
	"github.com/ai-den/jsongrammar/grammar/jsonschema"
)

// registry assigns production names for one compilation. Schemas with equal
// canonical keys share a name, and every reference path that has been seen
// is bound to the name of the schema it points at.
//
// Short "#/$defs/Name" aliases of nested definitions live in scopes, one per
// schema with definitions on the current path, and resolve only below it.
type registry struct {
	names    map[string]string // canonical key -> production name
	refs     map[string]string // reference path -> production name
	scopes   []map[string]string
	taken    map[string]bool
	counters map[string]int
}

func newRegistry() *registry {
	r := &registry{
		names:    make(map[string]string),
		refs:     make(map[string]string),
		taken:    map[string]bool{ruleRoot: true, ruleSpace: true},
		counters: make(map[string]int),
	}
	for name := range builtinRules {
		r.taken[name] = true
	}
	return r
}

// nameFor returns the production name for s, assigning one on first sight.
// explicit is a preferred name for a new production; ref, if not empty, is
// bound to the result.
func (r *registry) nameFor(s *jsonschema.Schema, explicit, ref string) (string, error) {
	n := jsonschema.Normalize(s)
	key := n.Key()
	if name, ok := r.names[key]; ok {
		r.bind(ref, name)
		return name, nil
	}

	var name string
	switch kind := n.Kind(); kind {
	case jsonschema.KindRef:
		target, ok := r.resolve(n.Ref)
		if !ok {
			return "", &SchemaError{Err: ErrUnresolvedReference, Detail: fmt.Sprintf("%q", n.Ref)}
		}
		r.bind(ref, target)
		return target, nil
	case jsonschema.KindEmpty:
		name = ruleValue
	default:
		if rule, ok := typeRules[n.Type]; ok && key == (&jsonschema.Schema{Type: n.Type}).Key() {
			name = rule
		} else {
			name = r.fresh(prefix(kind), explicit)
		}
	}

	r.names[key] = name
	r.bind(ref, name)
	return name, nil
}

// fresh returns an unused name: explicit if it is usable, otherwise
// prefix-N with N counting from 1 for each prefix.
func (r *registry) fresh(prefix, explicit string) string {
	if name := format.RuleName(explicit); name != "" && !r.taken[name] {
		r.taken[name] = true
		return name
	}

	for {
		r.counters[prefix]++
		name := fmt.Sprintf("%s-%d", prefix, r.counters[prefix])
		if !r.taken[name] {
			r.taken[name] = true
			return name
		}
	}
}

func (r *registry) bind(ref, name string) {
	if ref != "" {
		r.refs[ref] = name
	}
}

func (r *registry) push() {
	r.scopes = append(r.scopes, make(map[string]string))
}

func (r *registry) pop() {
	r.scopes = r.scopes[:len(r.scopes)-1]
}

// alias binds ref to name in the innermost scope, or globally outside any
// scope, unless ref is already bound there.
func (r *registry) alias(ref, name string) {
	if len(r.scopes) == 0 {
		if _, ok := r.refs[ref]; !ok {
			r.bind(ref, name)
		}
		return
	}

	scope := r.scopes[len(r.scopes)-1]
	if _, ok := scope[ref]; !ok {
		scope[ref] = name
	}
}

// resolve looks ref up among the global bindings, then in the open scopes
// from the innermost out.
func (r *registry) resolve(ref string) (string, bool) {
	if name, ok := r.refs[ref]; ok {
		return name, true
	}

	for _, scope := range slices.Backward(r.scopes) {
		if name, ok := scope[ref]; ok {
			return name, true
		}
	}
	return "", false
}

func prefix(k jsonschema.Kind) string {
	switch k {
	case jsonschema.KindEnum:
		return "enum"
	case jsonschema.KindUnion:
		return "union"
	case jsonschema.KindArray:
		return "array"
	case jsonschema.KindObject:
		return "object"
	default:
		return "prod"
	}
}
