package grammar

import (
	"strings"

	"github.com/ai-den/jsongrammar/format"
)

// expr accumulates the space-separated items of a production body.
type expr struct {
	b strings.Builder
}

// q appends a terminal matching s.
func (e *expr) q(s string) {
	e.u(format.Quote(s))
}

// u appends s as written: a non-terminal or an already rendered group.
func (e *expr) u(s string) {
	if e.b.Len() > 0 {
		e.b.WriteByte(' ')
	}
	e.b.WriteString(s)
}

func (e *expr) String() string {
	return e.b.String()
}

// expandOptionals returns alternatives that together accept every
// order-preserving subset of chunks, the empty subset included, with a comma
// before every chunk but the first one present.
//
// The first alternative starts with chunks[0] and makes each later chunk
// optional. The rest are the alternatives for chunks[1:].
func expandOptionals(chunks []string) []string {
	switch len(chunks) {
	case 0:
		return nil
	case 1:
		return []string{"(" + chunks[0] + ")?"}
	}

	var e expr
	e.u("(" + chunks[0] + ")")
	for _, c := range chunks[1:] {
		e.u(`("," space (` + c + `))?`)
	}
	return append([]string{e.String()}, expandOptionals(chunks[1:])...)
}
