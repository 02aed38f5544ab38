package compiler

import (
	"github.com/nanolang/ncc/internal/lang"
	"github.com/nanolang/ncc/internal/symtab"
)

// firstPassScan walks the entire source once collecting every top-level
// `fn name params… { … }` declaration, recording each body's
// [open_brace+1, matching_close_brace) span. The function array is reset
// afterward so the main emission pass can re-register the same
// declarations in source order.
func (c *Compiler) firstPassScan() error {
	src := c.src
	i := 0
	depth := 0
	for i < len(src) {
		b := src[i]
		switch {
		case b == '#' || (b == '/' && i+1 < len(src) && src[i+1] == '/'):
			for i < len(src) && src[i] != '\n' {
				i++
			}
		case b == '"':
			i = skipStringLiteral(src, i)
		case depth == 0 && matchKeyword(src, i, "fn"):
			fn, next, err := parseFunctionHeader(src, i)
			if err != nil {
				if le, ok := err.(*lang.Error); ok {
					c.pos = le.Pos.Offset
					le.Pos = c.position()
				}
				return err
			}
			c.sym.DeclareFunction(fn)
			i = next
		case b == '{':
			depth++
			i++
		case b == '}':
			if depth > 0 {
				depth--
			}
			i++
		default:
			i++
		}
	}
	return nil
}

// skipStringLiteral advances i past a quote-delimited string starting at
// src[i] (the opening quote), honoring backslash escapes so an escaped
// quote doesn't end the literal early.
func skipStringLiteral(src []byte, i int) int {
	i++ // opening quote
	for i < len(src) && src[i] != '"' {
		if src[i] == '\\' && i+1 < len(src) {
			i += 2
			continue
		}
		i++
	}
	if i < len(src) {
		i++ // closing quote
	}
	return i
}

// parseFunctionHeader parses `fn name p1 p2 … {` starting at pos (which
// must be at the 'f' of "fn"), and locates the matching closing brace. It
// returns the Function record and the index just past the closing brace.
func parseFunctionHeader(src []byte, pos int) (symtab.Function, int, error) {
	i := pos + len("fn")
	i = skipSpacesOnly(src, i)
	name, i := scanBareIdentifier(src, i)

	var params []string
	for {
		i = skipSpacesOnly(src, i)
		if i >= len(src) || src[i] == '{' {
			break
		}
		var p string
		p, i = scanBareIdentifier(src, i)
		if p == "" {
			break
		}
		params = append(params, p)
	}

	if i >= len(src) || src[i] != '{' {
		return symtab.Function{}, i, &lang.Error{
			Pos: lang.Position{Offset: i},
			Msg: "expected '{' to open function body",
		}
	}
	bodyStart := i + 1
	bodyEnd, err := findMatchingBrace(src, bodyStart)
	if err != nil {
		return symtab.Function{}, bodyStart, err
	}

	return symtab.Function{
		Name:      name,
		Params:    params,
		BodyStart: bodyStart,
		BodyEnd:   bodyEnd,
	}, bodyEnd + 1, nil
}

// findMatchingBrace locates the '}' matching the '{' whose body begins at
// start (i.e. start is the index right after the opening brace), tracking
// nested depth and skipping string literals and comments along the way.
// Reaching EOF without a match is one of the two cases internal/lang.Error
// is raised for, the other being a `fn` header with no opening brace (see
// parseFunctionHeader) — every other malformed input in this compiler is a
// silent default or skip, not an error.
func findMatchingBrace(src []byte, start int) (int, error) {
	depth := 1
	i := start
	for i < len(src) {
		b := src[i]
		switch {
		case b == '#' || (b == '/' && i+1 < len(src) && src[i+1] == '/'):
			for i < len(src) && src[i] != '\n' {
				i++
			}
		case b == '"':
			i = skipStringLiteral(src, i)
		case b == '{':
			depth++
			i++
		case b == '}':
			depth--
			if depth == 0 {
				return i, nil
			}
			i++
		default:
			i++
		}
	}
	return len(src), &lang.Error{
		Pos: lang.Position{Offset: start},
		Msg: "unmatched '{' in function body",
	}
}

func skipSpacesOnly(src []byte, i int) int {
	for i < len(src) && lang.IsSpace(src[i]) {
		i++
	}
	return i
}

// scanBareIdentifier reads a plain identifier (letters/digits/underscore,
// no embedded '.') used for function and parameter names in the header.
func scanBareIdentifier(src []byte, i int) (string, int) {
	if i >= len(src) || !lang.IsIdentStart(src[i]) {
		return "", i
	}
	start := i
	i++
	for i < len(src) && (lang.IsIdentStart(src[i]) || lang.IsDigit(src[i])) {
		i++
	}
	return string(src[start:i]), i
}
