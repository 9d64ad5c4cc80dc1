package gbnf

import (
	"errors"
	"fmt"
	"strings"
)

const ruleSeparator = "::="

func isDigit(c rune) bool {
	return '0' <= c && c <= '9'
}

func isLetter(c rune) bool {
	return ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z')
}

func isValidIdCharacter(c rune) bool {
	return isLetter(c) || isDigit(c) || c == '-' || c == '_'
}

func isValidRuleName(name string) (bool, error) {
	if name == "" {
		return false, errors.New("empty rule name")
	}

	for i, c := range name {
		if i == 0 && !isLetter(c) {
			return false, fmt.Errorf("rule name %q must start with a letter", name)
		}
		if !isValidIdCharacter(c) {
			return false, fmt.Errorf("rule name %q contains invalid character %q", name, c)
		}
	}

	return true, nil
}

// topLevelIndex returns the byte offset of the first occurrence of substr in
// line that is outside any terminal or character class, or -1.
func topLevelIndex(line, substr string) int {
	var quoted, class bool
	for i := 0; i < len(line); i++ {
		switch c := line[i]; {
		case c == '\\' && (quoted || class):
			i++
		case quoted:
			quoted = c != '"'
		case class:
			class = c != ']'
		case c == '"':
			quoted = true
		case c == '[':
			class = true
		case strings.HasPrefix(line[i:], substr):
			return i
		}
	}

	return -1
}

// removeComments strips '#' comments and the whitespace before them.
func removeComments(input string) string {
	lines := strings.Split(input, "\n")
	for i, line := range lines {
		if n := topLevelIndex(line, "#"); n >= 0 {
			lines[i] = strings.TrimRight(line[:n], " \t\r")
		}
	}

	return strings.Join(lines, "\n")
}

// breakIntoArrayOfRules groups the lines of input into rule definitions. A
// definition continues until the next line containing "::=".
func breakIntoArrayOfRules(input string) ([]string, error) {
	var rules []string
	for n, line := range strings.Split(input, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}

		if topLevelIndex(line, ruleSeparator) >= 0 {
			rules = append(rules, strings.TrimSpace(line))
			continue
		}

		if len(rules) == 0 {
			return nil, fmt.Errorf("line %d: expected a rule definition", n+1)
		}

		rules[len(rules)-1] += "\n" + line
	}

	return rules, nil
}
