package grammar

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/emirpasic/gods/v2/maps/linkedhashmap"

	"github.com/ai-den/jsongrammar/format"
	"github.com/ai-den/jsongrammar/gbnf"
	"github.com/ai-den/jsongrammar/grammar/jsonschema"
	"github.com/ai-den/jsongrammar/logutil"
)

type compiler struct {
	opts options
	reg  *registry

	// rules holds schema productions in the order their bodies were
	// completed. Built-ins are added when the grammar is assembled.
	rules    *linkedhashmap.Map[string, string]
	building map[string]bool
}

func newCompiler(o options) *compiler {
	return &compiler{
		opts:     o,
		reg:      newRegistry(),
		rules:    linkedhashmap.New[string, string](),
		building: make(map[string]bool),
	}
}

// compileRoot defines the production for the root schema s and returns its
// name. The root is named before its definitions are compiled so that "#"
// resolves to it from inside them. A root that is only a $ref is bound to
// its target by defineDefs instead.
func (c *compiler) compileRoot(s *jsonschema.Schema) (string, error) {
	if rest := s.WithoutDefs(); rest.Kind() != jsonschema.KindRef {
		if _, err := c.reg.nameFor(rest, c.opts.rootName, "#"); err != nil {
			return "", wrap("#", err)
		}
	}
	return c.define(s, c.opts.rootName, "#")
}

// define compiles s and its definitions and returns the name of the
// production that accepts s. path is the JSON pointer of s, used in
// errors.
func (c *compiler) define(s *jsonschema.Schema, explicit, path string) (string, error) {
	scoped, err := c.defineDefs(s, path)
	if scoped {
		defer c.reg.pop()
	}
	if err != nil {
		return "", err
	}

	rest := s.WithoutDefs()
	name, err := c.reg.nameFor(rest, explicit, "")
	if err != nil {
		return "", wrap(path, err)
	}

	// a name being built is a recursive reference to it
	if _, done := c.rules.Get(name); done || isBuiltin(name) || c.building[name] || rest.Kind() == jsonschema.KindRef {
		return name, nil
	}

	c.building[name] = true
	body, err := c.body(name, rest, path)
	delete(c.building, name)
	if err != nil {
		return "", err
	}

	c.rules.Put(name, body)
	logutil.Trace("grammar: defined production", "name", name, "path", path)
	return name, nil
}

type definition struct {
	schema *jsonschema.Schema
	path   string
	// refs are the reference paths that name this definition. The first
	// is its full pointer; the second is the short "#/$defs/Name" form.
	refs []string
}

func definitions(s *jsonschema.Schema, path string) []definition {
	var defs []definition
	for _, group := range []struct {
		keyword string
		schemas []*jsonschema.Schema
	}{
		{"$defs", s.Defs},
		{"definitions", s.Definitions},
	} {
		for _, d := range group.schemas {
			suffix := "/" + group.keyword + "/" + escapePointer(d.Name)
			defs = append(defs, definition{
				schema: d,
				path:   path + suffix,
				refs:   []string{path + suffix, "#" + suffix},
			})
		}
	}
	return defs
}

// defineDefs names every definition of s before compiling any of them, so
// definitions may refer to each other in any order. Below the root, the
// short aliases of the definitions are scoped to s; scoped reports whether
// the caller must pop that scope.
func (c *compiler) defineDefs(s *jsonschema.Schema, path string) (scoped bool, err error) {
	defs := definitions(s, path)
	if len(defs) == 0 {
		return false, nil
	}

	if path != "#" {
		c.reg.push()
		scoped = true
	}

	var aliases []definition
	for _, d := range defs {
		rest := d.schema.WithoutDefs()
		if rest.Kind() == jsonschema.KindRef {
			aliases = append(aliases, d)
			continue
		}

		name, err := c.reg.nameFor(rest, d.schema.Name, d.refs[0])
		if err != nil {
			return scoped, wrap(d.path, err)
		}
		c.reg.alias(d.refs[1], name)
	}

	// a definition that is only a $ref takes the name of its target, which
	// may itself be an alias
	for len(aliases) > 0 {
		var pending []definition
		for _, d := range aliases {
			target, ok := c.reg.resolve(d.schema.Ref)
			if !ok {
				pending = append(pending, d)
				continue
			}
			c.reg.bind(d.refs[0], target)
			c.reg.alias(d.refs[1], target)
		}

		if len(pending) == len(aliases) {
			d := pending[0]
			return scoped, &SchemaError{Path: d.path, Err: ErrUnresolvedReference, Detail: fmt.Sprintf("%q", d.schema.Ref)}
		}
		aliases = pending
	}

	// a root that is only a $ref is the definition it names, so "#" inside
	// the definitions must resolve to it
	if rest := s.WithoutDefs(); path == "#" && rest.Kind() == jsonschema.KindRef {
		if target, ok := c.reg.resolve(rest.Ref); ok {
			c.reg.bind("#", target)
		}
	}

	for _, d := range defs {
		if _, err := c.define(d.schema, d.schema.Name, d.path); err != nil {
			return scoped, err
		}
	}
	return scoped, nil
}

func (c *compiler) body(name string, s *jsonschema.Schema, path string) (string, error) {
	switch s.Kind() {
	case jsonschema.KindEnum:
		return c.enum(s, path)
	case jsonschema.KindUnion:
		return c.union(s, path)
	case jsonschema.KindArray:
		return c.array(s, path)
	case jsonschema.KindObject:
		return c.object(name, s, path)
	case jsonschema.KindPrimitive:
		return typeRules[s.Type], nil
	case jsonschema.KindEmpty:
		return ruleValue, nil
	default:
		return "", &SchemaError{Path: path, Err: ErrUnsupportedSchema, Detail: s.Describe()}
	}
}

func (c *compiler) enum(s *jsonschema.Schema, path string) (string, error) {
	alts := make([]string, 0, len(s.Enum))
	for i, v := range s.Enum {
		lit, err := format.ValueLiteral(v)
		if err != nil {
			return "", &SchemaError{Path: fmt.Sprintf("%s/enum/%d", path, i), Err: ErrMalformedSchema, Detail: err.Error()}
		}
		if !slices.Contains(alts, lit) {
			alts = append(alts, lit)
		}
	}
	return strings.Join(alts, " | "), nil
}

func (c *compiler) union(s *jsonschema.Schema, path string) (string, error) {
	var alts []string
	for i, clause := range s.AnyOf {
		name, err := c.define(clause, "", fmt.Sprintf("%s/anyOf/%d", path, i))
		if err != nil {
			return "", err
		}
		if !slices.Contains(alts, name) {
			alts = append(alts, name)
		}
	}
	return strings.Join(alts, " | "), nil
}

func (c *compiler) array(s *jsonschema.Schema, path string) (string, error) {
	var e expr
	e.q("[")
	e.u(ruleSpace)
	for i, item := range s.PrefixItems {
		name, err := c.define(item, "", fmt.Sprintf("%s/prefixItems/%d", path, i))
		if err != nil {
			return "", err
		}
		if i > 0 {
			e.q(",")
			e.u(ruleSpace)
		}
		e.u(name)
		e.u(ruleSpace)
	}

	if s.Items != nil {
		name, err := c.define(s.Items, "", path+"/items")
		if err != nil {
			return "", err
		}
		if len(s.PrefixItems) > 0 {
			e.u(`("," space ` + name + ` space)*`)
		} else {
			e.u(`(` + name + ` space ("," space ` + name + ` space)*)?`)
		}
	}

	e.q("]")
	return e.String(), nil
}

// object renders properties in declaration order. Properties without a
// default are required. Each key-value pair gets its own production named
// after the object and the property.
func (c *compiler) object(name string, s *jsonschema.Schema, path string) (string, error) {
	var required, optional []string
	for _, p := range s.Properties {
		value, err := c.define(p, "", path+"/properties/"+escapePointer(p.Name))
		if err != nil {
			return "", err
		}

		chunk := c.pair(name, p.Name, value) + " " + ruleSpace
		if p.Default != nil {
			optional = append(optional, chunk)
		} else {
			required = append(required, chunk)
		}
	}

	var extra string
	if s.AdditionalProperties != nil {
		value, err := c.define(s.AdditionalProperties, "", path+"/additionalProperties")
		if err != nil {
			return "", err
		}

		pair := ruleKVPair
		if value != ruleValue {
			pair = c.additionalPair(name, value)
		}
		extra = pair + " " + ruleSpace
	}

	var e expr
	e.q("{")
	e.u(ruleSpace)
	if len(required) > 0 {
		for i, r := range required {
			if i > 0 {
				e.q(",")
				e.u(ruleSpace)
			}
			e.u(r)
		}
		for _, o := range optional {
			e.u(`("," space ` + o + `)?`)
		}
		if extra != "" {
			e.u(`("," space ` + extra + `)*`)
		}
	} else {
		chunks := slices.Clone(optional)
		if extra != "" {
			chunks = append(chunks, extra+` ("," space `+extra+`)*`)
		}

		switch alts := expandOptionals(chunks); len(alts) {
		case 0:
		case 1:
			e.u(alts[0])
		default:
			e.u("(" + strings.Join(alts, " | ") + ")")
		}
	}
	e.q("}")
	return e.String(), nil
}

func (c *compiler) pair(object, property, value string) string {
	name := c.reg.fresh(object+"-kv", object+"-"+property)

	var e expr
	e.u(format.StringLiteral(property))
	e.u(ruleSpace)
	e.q(":")
	e.u(ruleSpace)
	e.u(value)
	c.rules.Put(name, e.String())
	return name
}

func (c *compiler) additionalPair(object, value string) string {
	name := c.reg.fresh(object+"-kv", object+"-additional")

	var e expr
	e.u(ruleString)
	e.u(ruleSpace)
	e.q(":")
	e.u(ruleSpace)
	e.u(value)
	c.rules.Put(name, e.String())
	return name
}

// lookup returns the body of a schema or built-in production.
func (c *compiler) lookup(name string) (string, bool) {
	if body, ok := c.rules.Get(name); ok {
		return body, true
	}
	if name == ruleSpace {
		return spaceRules[c.opts.whitespace], true
	}
	body, ok := builtinRules[name]
	return body, ok
}

// used returns the built-in productions reachable from the root, the
// space production and the schema productions.
func (c *compiler) used(root string) (map[string]bool, error) {
	seen := make(map[string]bool)
	queue := append([]string{root, ruleSpace}, c.rules.Keys()...)
	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]
		if seen[name] {
			continue
		}
		seen[name] = true

		body, ok := c.lookup(name)
		if !ok {
			return nil, fmt.Errorf("grammar: production %q is referenced but not defined", name)
		}

		tokens, err := gbnf.Tokenize(body)
		if err != nil {
			return nil, fmt.Errorf("grammar: production %q: %w", name, err)
		}
		for _, t := range tokens {
			if t.Type == gbnf.TokenNonTerminal {
				queue = append(queue, t.Value)
			}
		}
	}
	return seen, nil
}

// assemble orders the productions for rendering. Rendering walks the map
// from the back, so built-ins are inserted first, in reverse, and schema
// productions follow in completion order.
func (c *compiler) assemble(root string) (*Grammar, error) {
	if _, ok := c.spaceRule(); !ok {
		return nil, fmt.Errorf("grammar: unknown whitespace policy %v", c.opts.whitespace)
	}

	used, err := c.used(root)
	if err != nil {
		return nil, err
	}

	rules := linkedhashmap.New[string, string]()
	for _, name := range slices.Backward(builtinOrder) {
		if used[name] {
			body, _ := c.lookup(name)
			rules.Put(name, body)
		}
	}

	for _, name := range c.rules.Keys() {
		body, _ := c.rules.Get(name)
		rules.Put(name, body)
	}

	return &Grammar{root: root, rules: rules}, nil
}

func (c *compiler) spaceRule() (string, bool) {
	body, ok := spaceRules[c.opts.whitespace]
	return body, ok
}

// wrap attaches path to err if err does not already carry one.
func wrap(path string, err error) error {
	var se *SchemaError
	if errors.As(err, &se) {
		if se.Path == "" {
			se.Path = path
		}
		return se
	}
	return &SchemaError{Path: path, Err: ErrMalformedSchema, Detail: err.Error()}
}

var pointerEscaper = strings.NewReplacer("~", "~0", "/", "~1")

func escapePointer(s string) string {
	return pointerEscaper.Replace(s)
}
