package grammar

import (
	"fmt"
	"strings"
)

// Whitespace selects the body of the "space" production, which is placed
// at every point where JSON allows insignificant whitespace.
type Whitespace int

const (
	// WhitespaceSingle allows at most one space character.
	WhitespaceSingle Whitespace = iota

	// WhitespaceNone allows no whitespace, producing compact JSON.
	WhitespaceNone

	// WhitespaceFlexible allows any run of spaces, tabs and newlines.
	// Models sampling under this policy can loop on whitespace.
	WhitespaceFlexible
)

func (w Whitespace) String() string {
	switch w {
	case WhitespaceSingle:
		return "single"
	case WhitespaceNone:
		return "none"
	case WhitespaceFlexible:
		return "flexible"
	default:
		return fmt.Sprintf("Whitespace(%d)", int(w))
	}
}

// ParseWhitespace parses a whitespace policy name. The empty string selects
// WhitespaceSingle.
func ParseWhitespace(s string) (Whitespace, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "single":
		return WhitespaceSingle, nil
	case "none":
		return WhitespaceNone, nil
	case "flexible":
		return WhitespaceFlexible, nil
	default:
		return 0, fmt.Errorf("unknown whitespace policy %q", s)
	}
}

type options struct {
	rootName   string
	whitespace Whitespace
}

type Option func(*options)

// WithRootName names the production for the root schema instead of
// numbering it. The name is reduced to a valid rule name and ignored if it
// collides with a built-in production.
func WithRootName(name string) Option {
	return func(o *options) {
		o.rootName = name
	}
}

// WithWhitespace sets the whitespace policy. The default is
// WhitespaceSingle.
func WithWhitespace(w Whitespace) Option {
	return func(o *options) {
		o.whitespace = w
	}
}
