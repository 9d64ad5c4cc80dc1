// Package gbnf parses, validates and evaluates grammars written in GBNF,
// the BNF dialect accepted by llama.cpp for constrained sampling.
package gbnf

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// Grammar is a parsed GBNF grammar.
type Grammar struct {
	names []string
	rules map[string]node
}

// Parse reads the rule definitions in input. It does not check that every
// referenced rule is defined; see [Grammar.Verify].
func Parse(input string) (*Grammar, error) {
	defs, err := breakIntoArrayOfRules(removeComments(input))
	if err != nil {
		return nil, err
	}

	g := &Grammar{rules: make(map[string]node, len(defs))}
	for _, def := range defs {
		i := topLevelIndex(def, ruleSeparator)
		name := strings.TrimSpace(def[:i])
		if ok, err := isValidRuleName(name); !ok {
			return nil, err
		}

		if _, ok := g.rules[name]; ok {
			return nil, fmt.Errorf("rule %q is defined more than once", name)
		}

		tokens, err := parseRule(def[i+len(ruleSeparator):])
		if err != nil {
			return nil, fmt.Errorf("rule %q: %w", name, err)
		}

		n, err := parseExpr(tokens)
		if err != nil {
			return nil, fmt.Errorf("rule %q: %w", name, err)
		}

		g.names = append(g.names, name)
		g.rules[name] = n
	}

	return g, nil
}

// ValidateGrammar reports whether input is a complete grammar: every rule
// parses, every referenced rule is defined, and a root rule exists.
func ValidateGrammar(input string) error {
	g, err := Parse(input)
	if err != nil {
		return err
	}

	return g.Verify("root")
}

// Names returns the rule names in definition order.
func (g *Grammar) Names() []string {
	return slices.Clone(g.names)
}

// References returns the rules referenced by the body of name, in order of
// first use.
func (g *Grammar) References(name string) []string {
	var refs []string
	walk(g.rules[name], func(r reference) {
		if !slices.Contains(refs, string(r)) {
			refs = append(refs, string(r))
		}
	})
	return refs
}

// Verify checks that start is defined and that no rule references an
// undefined one.
func (g *Grammar) Verify(start string) error {
	if _, ok := g.rules[start]; !ok {
		return fmt.Errorf("missing %q rule", start)
	}

	var errs []error
	for _, name := range g.names {
		for _, ref := range g.References(name) {
			if _, ok := g.rules[ref]; !ok {
				errs = append(errs, fmt.Errorf("rule %q references undefined rule %q", name, ref))
			}
		}
	}

	return errors.Join(errs...)
}

type node any

type literal []rune

type runeRange struct {
	lo, hi rune
}

type class struct {
	negate bool
	ranges []runeRange
}

func (c *class) matches(r rune) bool {
	for _, rr := range c.ranges {
		if rr.lo <= r && r <= rr.hi {
			return !c.negate
		}
	}
	return c.negate
}

type reference string

type sequence []node

type alternation []node

type repeat struct {
	node node
	// min is 0 or 1; max is 1 or -1 for unbounded
	min, max int
}

func walk(n node, fn func(reference)) {
	switch n := n.(type) {
	case reference:
		fn(n)
	case sequence:
		for _, c := range n {
			walk(c, fn)
		}
	case alternation:
		for _, c := range n {
			walk(c, fn)
		}
	case *repeat:
		walk(n.node, fn)
	}
}

type parser struct {
	tokens []Token
	pos    int
}

func parseExpr(tokens []Token) (node, error) {
	p := parser{tokens: tokens}
	n, err := p.alternates()
	if err != nil {
		return nil, err
	}

	if p.pos < len(p.tokens) {
		return nil, fmt.Errorf("unexpected %q", p.tokens[p.pos].Value)
	}

	return n, nil
}

func (p *parser) peek(tt TokenType) bool {
	return p.pos < len(p.tokens) && p.tokens[p.pos].Type == tt
}

func (p *parser) alternates() (node, error) {
	var alts alternation
	for {
		s, err := p.sequence()
		if err != nil {
			return nil, err
		}

		alts = append(alts, s)
		if !p.peek(TokenPipe) {
			break
		}
		p.pos++
	}

	if len(alts) == 1 {
		return alts[0], nil
	}
	return alts, nil
}

func (p *parser) sequence() (node, error) {
	var seq sequence
	for p.pos < len(p.tokens) {
		var n node
		switch t := p.tokens[p.pos]; t.Type {
		case TokenPipe, TokenRParen:
			return seq, nil
		case TokenTerminal:
			s, err := Unquote(t.Value)
			if err != nil {
				return nil, err
			}
			n = literal(s)
		case TokenCharacterClass:
			c, err := parseClass(t.Value)
			if err != nil {
				return nil, err
			}
			n = c
		case TokenNonTerminal:
			n = reference(t.Value)
		case TokenLParen:
			p.pos++
			inner, err := p.alternates()
			if err != nil {
				return nil, err
			}
			if !p.peek(TokenRParen) {
				return nil, errors.New("unbalanced parentheses")
			}
			n = inner
		default:
			return nil, fmt.Errorf("unexpected %q", t.Value)
		}
		p.pos++

		if p.pos < len(p.tokens) {
			switch p.tokens[p.pos].Type {
			case TokenQuestion:
				n = &repeat{node: n, min: 0, max: 1}
				p.pos++
			case TokenStar:
				n = &repeat{node: n, min: 0, max: -1}
				p.pos++
			case TokenPlus:
				n = &repeat{node: n, min: 1, max: -1}
				p.pos++
			}
		}

		seq = append(seq, n)
	}

	return seq, nil
}

func parseClass(value string) (*class, error) {
	rs := []rune(value)
	if len(rs) < 3 || rs[0] != '[' || rs[len(rs)-1] != ']' {
		return nil, fmt.Errorf("not a character class: %s", value)
	}

	rs = rs[1 : len(rs)-1]
	c := &class{}
	if rs[0] == '^' {
		c.negate = true
		rs = rs[1:]
	}

	next := func(i int) (rune, int) {
		if rs[i] == '\\' {
			return decodeEscape(rs, i)
		}
		return rs[i], i + 1
	}

	for i := 0; i < len(rs); {
		var lo rune
		lo, i = next(i)
		hi := lo
		if i+1 < len(rs) && rs[i] == '-' {
			hi, i = next(i + 1)
			if hi < lo {
				return nil, fmt.Errorf("invalid range %q-%q in %s", lo, hi, value)
			}
		}
		c.ranges = append(c.ranges, runeRange{lo, hi})
	}

	return c, nil
}
