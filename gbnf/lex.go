package gbnf

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

type TokenType int

const (
	TokenNonTerminal TokenType = iota
	TokenTerminal
	TokenCharacterClass
	TokenLParen
	TokenRParen
	TokenPipe
	TokenQuestion
	TokenStar
	TokenPlus
)

func (t TokenType) String() string {
	switch t {
	case TokenNonTerminal:
		return "non-terminal"
	case TokenTerminal:
		return "terminal"
	case TokenCharacterClass:
		return "character class"
	case TokenLParen:
		return "("
	case TokenRParen:
		return ")"
	case TokenPipe:
		return "|"
	case TokenQuestion:
		return "?"
	case TokenStar:
		return "*"
	case TokenPlus:
		return "+"
	default:
		return "TokenType(" + strconv.Itoa(int(t)) + ")"
	}
}

// Token is a lexical element of a rule body. Terminals and character
// classes keep their delimiters and escapes as written.
type Token struct {
	Type  TokenType
	Value string
}

var punctuation = map[rune]TokenType{
	'(': TokenLParen,
	')': TokenRParen,
	'|': TokenPipe,
	'?': TokenQuestion,
	'*': TokenStar,
	'+': TokenPlus,
}

// Tokenize splits a rule body, the text to the right of "::=", into tokens.
func Tokenize(body string) ([]Token, error) {
	return parseRule(body)
}

func parseRule(rule string) ([]Token, error) {
	rs := []rune(rule)

	var tokens []Token
	for i := 0; i < len(rs); {
		c := rs[i]
		switch {
		case unicode.IsSpace(c):
			i++
		case c == '"':
			end, err := scanTerminal(rs, i)
			if err != nil {
				return nil, err
			}
			tokens = append(tokens, Token{Type: TokenTerminal, Value: string(rs[i:end])})
			i = end
		case c == '[':
			end, err := scanClass(rs, i)
			if err != nil {
				return nil, err
			}
			tokens = append(tokens, Token{Type: TokenCharacterClass, Value: string(rs[i:end])})
			i = end
		case isLetter(c):
			end := i
			for end < len(rs) && isValidIdCharacter(rs[end]) {
				end++
			}
			if end < len(rs) && (rs[end] == '"' || rs[end] == '[') {
				return nil, fmt.Errorf("unexpected %q after %q at offset %d", rs[end], string(rs[i:end]), end)
			}
			tokens = append(tokens, Token{Type: TokenNonTerminal, Value: string(rs[i:end])})
			i = end
		default:
			tt, ok := punctuation[c]
			if !ok {
				return nil, fmt.Errorf("unexpected character %q at offset %d", c, i)
			}
			tokens = append(tokens, Token{Type: tt, Value: string(c)})
			i++
		}
	}

	return tokens, nil
}

func scanTerminal(rs []rune, start int) (int, error) {
	for i := start + 1; i < len(rs); {
		switch rs[i] {
		case '"':
			return i + 1, nil
		case '\n':
			return 0, fmt.Errorf("unterminated literal at offset %d", start)
		case '\\':
			next, err := scanEscape(rs, i, false)
			if err != nil {
				return 0, err
			}
			i = next
		default:
			i++
		}
	}

	return 0, fmt.Errorf("unterminated literal at offset %d", start)
}

func scanClass(rs []rune, start int) (int, error) {
	i := start + 1
	if i < len(rs) && rs[i] == '^' {
		i++
	}

	first := i
	for i < len(rs) {
		switch rs[i] {
		case ']':
			if i == first {
				return 0, fmt.Errorf("empty character class at offset %d", start)
			}
			return i + 1, nil
		case '^':
			return 0, fmt.Errorf("'^' is only allowed at the start of a character class, offset %d", i)
		case '\n':
			return 0, fmt.Errorf("unterminated character class at offset %d", start)
		case '\\':
			next, err := scanEscape(rs, i, true)
			if err != nil {
				return 0, err
			}
			i = next
		default:
			i++
		}
	}

	return 0, fmt.Errorf("unterminated character class at offset %d", start)
}

var hexDigits = map[rune]int{'x': 2, 'u': 4, 'U': 8}

// scanEscape validates the escape sequence starting at rs[i] and returns the
// offset just past it.
func scanEscape(rs []rune, i int, class bool) (int, error) {
	if i+1 >= len(rs) {
		return 0, fmt.Errorf("incomplete escape at offset %d", i)
	}

	c := rs[i+1]
	switch c {
	case '"', '\\', 'n', 'r', 't', '[', ']':
		return i + 2, nil
	case '-', '^':
		if class {
			return i + 2, nil
		}
	case 'x', 'u', 'U':
		n := hexDigits[c]
		if i+2+n > len(rs) {
			return 0, fmt.Errorf("incomplete \\%c escape at offset %d", c, i)
		}
		for _, h := range rs[i+2 : i+2+n] {
			if !isHexDigit(h) {
				return 0, fmt.Errorf("invalid hex digit %q in \\%c escape at offset %d", h, c, i)
			}
		}
		return i + 2 + n, nil
	}

	return 0, fmt.Errorf("invalid escape \\%c at offset %d", c, i)
}

// decodeEscape returns the rune denoted by the escape at rs[i], which must
// already have been validated by scanEscape.
func decodeEscape(rs []rune, i int) (rune, int) {
	switch c := rs[i+1]; c {
	case 'n':
		return '\n', i + 2
	case 'r':
		return '\r', i + 2
	case 't':
		return '\t', i + 2
	case 'x', 'u', 'U':
		n := hexDigits[c]
		v, _ := strconv.ParseUint(string(rs[i+2:i+2+n]), 16, 32)
		return rune(v), i + 2 + n
	default:
		return c, i + 2
	}
}

// Unquote returns the text matched by a terminal such as "a\"b".
func Unquote(literal string) (string, error) {
	rs := []rune(literal)
	if len(rs) < 2 || rs[0] != '"' || rs[len(rs)-1] != '"' {
		return "", fmt.Errorf("not a terminal: %s", literal)
	}

	if end, err := scanTerminal(rs, 0); err != nil {
		return "", err
	} else if end != len(rs) {
		return "", fmt.Errorf("trailing characters after terminal: %s", literal)
	}

	var b strings.Builder
	for i := 1; i < len(rs)-1; {
		if rs[i] == '\\' {
			var r rune
			r, i = decodeEscape(rs, i)
			b.WriteRune(r)
			continue
		}
		b.WriteRune(rs[i])
		i++
	}
	return b.String(), nil
}

func isHexDigit(c rune) bool {
	return isDigit(c) || ('a' <= c && c <= 'f') || ('A' <= c && c <= 'F')
}
