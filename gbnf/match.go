package gbnf

import (
	"fmt"
	"slices"
)

// Match reports whether the root rule derives exactly input.
func (g *Grammar) Match(input string) bool {
	ok, err := g.MatchRule("root", input)
	return ok && err == nil
}

// MatchRule reports whether the rule name derives exactly input.
//
// Matching explores every alternative, memoizing the end offsets reachable
// from each (rule, offset) pair. Left-recursive rules never match.
func (g *Grammar) MatchRule(name, input string) (bool, error) {
	if _, ok := g.rules[name]; !ok {
		return false, fmt.Errorf("undefined rule %q", name)
	}

	m := matcher{
		g:      g,
		input:  []rune(input),
		memo:   make(map[memoKey][]int),
		active: make(map[memoKey]bool),
	}

	ends, err := m.match(reference(name), 0)
	if err != nil {
		return false, err
	}
	return slices.Contains(ends, len(m.input)), nil
}

type memoKey struct {
	rule string
	pos  int
}

type matcher struct {
	g      *Grammar
	input  []rune
	memo   map[memoKey][]int
	active map[memoKey]bool
}

func (m *matcher) match(n node, pos int) ([]int, error) {
	switch n := n.(type) {
	case literal:
		if pos+len(n) > len(m.input) {
			return nil, nil
		}
		for i, r := range n {
			if m.input[pos+i] != r {
				return nil, nil
			}
		}
		return []int{pos + len(n)}, nil
	case *class:
		if pos < len(m.input) && n.matches(m.input[pos]) {
			return []int{pos + 1}, nil
		}
		return nil, nil
	case reference:
		body, ok := m.g.rules[string(n)]
		if !ok {
			return nil, fmt.Errorf("undefined rule %q", string(n))
		}

		k := memoKey{string(n), pos}
		if ends, ok := m.memo[k]; ok {
			return ends, nil
		}
		if m.active[k] {
			return nil, nil
		}

		m.active[k] = true
		ends, err := m.match(body, pos)
		delete(m.active, k)
		if err != nil {
			return nil, err
		}

		m.memo[k] = ends
		return ends, nil
	case sequence:
		ends := []int{pos}
		for _, item := range n {
			var next []int
			for _, p := range ends {
				e, err := m.match(item, p)
				if err != nil {
					return nil, err
				}
				next = union(next, e)
			}
			if len(next) == 0 {
				return nil, nil
			}
			ends = next
		}
		return ends, nil
	case alternation:
		var ends []int
		for _, alt := range n {
			e, err := m.match(alt, pos)
			if err != nil {
				return nil, err
			}
			ends = union(ends, e)
		}
		return ends, nil
	case *repeat:
		return m.repeat(n, pos)
	default:
		return nil, fmt.Errorf("unexpected node %T", n)
	}
}

func (m *matcher) repeat(r *repeat, pos int) ([]int, error) {
	var ends []int
	seen := make(map[int]bool)
	if r.min == 0 {
		ends = []int{pos}
		seen[pos] = true
	}

	frontier := []int{pos}
	for count := 1; r.max < 0 || count <= r.max; count++ {
		var next []int
		for _, p := range frontier {
			e, err := m.match(r.node, p)
			if err != nil {
				return nil, err
			}
			for _, end := range e {
				if !seen[end] {
					seen[end] = true
					next = append(next, end)
				}
			}
		}

		if len(next) == 0 {
			break
		}

		ends = append(ends, next...)
		frontier = next
	}

	return ends, nil
}

func union(a, b []int) []int {
	for _, v := range b {
		if !slices.Contains(a, v) {
			a = append(a, v)
		}
	}
	return a
}
