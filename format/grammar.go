// Package format renders Go values as GBNF terminals and rule names.
package format

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

var invalidRuleCharsRegex = regexp.MustCompile(`[^\dA-Za-z-]+`)

var grammarLiteralEscapes = map[rune]string{
	'"':  `\"`,
	'\\': `\\`,
	'\n': `\n`,
	'\r': `\r`,
	'\t': `\t`,
}

// Quote returns a GBNF string terminal that matches exactly s.
func Quote(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('"')
	for _, r := range s {
		if e, ok := grammarLiteralEscapes[r]; ok {
			b.WriteString(e)
			continue
		}
		if r < 0x20 || r == 0x7f {
			fmt.Fprintf(&b, `\x%02X`, r)
			continue
		}
		b.WriteRune(r)
	}
	b.WriteByte('"')
	return b.String()
}

// StringLiteral returns a GBNF terminal that matches the JSON encoding of s,
// surrounding quotes included.
func StringLiteral(s string) string {
	var b bytes.Buffer
	enc := json.NewEncoder(&b)
	enc.SetEscapeHTML(false)
	// encoding a string never fails
	_ = enc.Encode(s)
	return Quote(strings.TrimSuffix(b.String(), "\n"))
}

// ValueLiteral returns a GBNF terminal that matches the compact JSON text of
// raw. Strings are re-encoded so equal values always produce equal terminals.
func ValueLiteral(raw json.RawMessage) (string, error) {
	if t := bytes.TrimSpace(raw); len(t) > 0 && t[0] == '"' {
		var s string
		if err := json.Unmarshal(t, &s); err != nil {
			return "", fmt.Errorf("invalid literal %s: %w", raw, err)
		}
		return StringLiteral(s), nil
	}

	var b bytes.Buffer
	if err := json.Compact(&b, raw); err != nil {
		return "", fmt.Errorf("invalid literal %s: %w", raw, err)
	}
	return Quote(b.String()), nil
}

// RuleName reduces s to a valid GBNF rule name. Runs of characters outside
// [A-Za-z0-9-] collapse to a single dash. It returns "" when nothing usable
// remains or the result does not start with a letter.
func RuleName(s string) string {
	name := strings.Trim(invalidRuleCharsRegex.ReplaceAllString(s, "-"), "-")
	if name == "" {
		return ""
	}
	if c := name[0]; (c < 'a' || c > 'z') && (c < 'A' || c > 'Z') {
		return ""
	}
	return name
}
