package queryengine

import (
	"fmt"
	"unicode"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokIdent
	tokNumber
	tokString
	tokSymbol
)

type token struct {
	kind tokenKind
	text string
	pos  int
}

func isIdentStart(r rune) bool {
	return unicode.IsLetter(r) || r == '_'
}

func isIdentRune(r rune) bool {
	return isIdentStart(r) || unicode.IsDigit(r)
}

// lex splits a query string into tokens. Identifiers keep their original
// casing; keyword recognition happens in the parser. Single and double
// quotes both delimit string tokens, which the parser also accepts where a
// column name is expected.
func lex(input string) ([]token, error) {
	var toks []token
	runes := []rune(input)

	i := 0
	for i < len(runes) {
		r := runes[i]
		switch {
		case unicode.IsSpace(r):
			i++

		case r == '\'' || r == '"' || r == '`':
			j := i + 1
			for j < len(runes) && runes[j] != r {
				j++
			}
			if j >= len(runes) {
				return nil, &CompilationError{Detail: fmt.Sprintf("unterminated quote at position %d", i)}
			}
			toks = append(toks, token{kind: tokString, text: string(runes[i+1 : j]), pos: i})
			i = j + 1

		case unicode.IsDigit(r) || (r == '.' && i+1 < len(runes) && unicode.IsDigit(runes[i+1])):
			j := i
			for j < len(runes) && (unicode.IsDigit(runes[j]) || runes[j] == '.') {
				j++
			}
			toks = append(toks, token{kind: tokNumber, text: string(runes[i:j]), pos: i})
			i = j

		case isIdentStart(r):
			j := i
			for j < len(runes) && isIdentRune(runes[j]) {
				j++
			}
			toks = append(toks, token{kind: tokIdent, text: string(runes[i:j]), pos: i})
			i = j

		default:
			if i+1 < len(runes) {
				switch two := string(runes[i : i+2]); two {
				case "!=", "<>", ">=", "<=", "==":
					toks = append(toks, token{kind: tokSymbol, text: two, pos: i})
					i += 2
					continue
				}
			}
			switch r {
			case '(', ')', ',', '*', '=', '>', '<', '-', ';':
				toks = append(toks, token{kind: tokSymbol, text: string(r), pos: i})
				i++
			default:
				return nil, &CompilationError{Detail: fmt.Sprintf("unexpected character %q at position %d", r, i)}
			}
		}
	}

	toks = append(toks, token{kind: tokEOF, pos: len(runes)})
	return toks, nil
}
