package compiler

import "github.com/nanolang/ncc/internal/lang"

// skipTrivia advances past whitespace and line comments (# or //),
// inline, the way the source language's lexing is specified: there is no
// separate tokenizer pass, every parser consumes trivia as it goes.
func (c *Compiler) skipTrivia() {
	for c.pos < len(c.src) {
		b := c.src[c.pos]
		switch {
		case lang.IsSpace(b):
			c.pos++
		case b == '#':
			c.skipToEOL()
		case b == '/' && c.pos+1 < len(c.src) && c.src[c.pos+1] == '/':
			c.skipToEOL()
		default:
			return
		}
	}
}

func (c *Compiler) skipToEOL() {
	for c.pos < len(c.src) && c.src[c.pos] != '\n' {
		c.pos++
	}
}

// skipLine discards the remainder of the current line, used for the
// "unknown statement keyword" best-effort recovery: when a statement
// doesn't start with anything recognized, just move past it.
func (c *Compiler) skipLine() {
	c.skipToEOL()
}

// scanIdentifier reads an identifier (including embedded '.') starting at
// the current cursor, which must point at an identifier-start byte.
func (c *Compiler) scanIdentifier() string {
	start := c.pos
	c.pos++ // caller already verified IsIdentStart at start
	for c.pos < len(c.src) && lang.IsIdentPart(c.src[c.pos]) {
		c.pos++
	}
	return string(c.src[start:c.pos])
}

// peekIdentAt reports the identifier at pos without moving the cursor, or
// "" if pos is not at an identifier start.
func peekIdentAt(src []byte, pos int) string {
	if pos >= len(src) || !lang.IsIdentStart(src[pos]) {
		return ""
	}
	end := pos + 1
	for end < len(src) && lang.IsIdentPart(src[end]) {
		end++
	}
	return string(src[pos:end])
}

// scanNumber reads a number literal: optional leading '-', decimal digits,
// a "0x" hex form, or a decimal point that truncates to integer (this
// language has no floating-point literals outside the unified-field
// construct, which parses its own floats separately).
func (c *Compiler) scanNumber() int64 {
	start := c.pos
	neg := false
	if c.pos < len(c.src) && c.src[c.pos] == '-' {
		neg = true
		c.pos++
	}
	var val int64
	if c.pos+1 < len(c.src) && c.src[c.pos] == '0' && (c.src[c.pos+1] == 'x' || c.src[c.pos+1] == 'X') {
		c.pos += 2
		for c.pos < len(c.src) && lang.IsHexDigit(c.src[c.pos]) {
			val = val*16 + int64(hexDigit(c.src[c.pos]))
			c.pos++
		}
	} else {
		for c.pos < len(c.src) && lang.IsDigit(c.src[c.pos]) {
			val = val*10 + int64(c.src[c.pos]-'0')
			c.pos++
		}
		// Non-standard decimal point: truncate to integer, discard the
		// fractional digits entirely.
		if c.pos < len(c.src) && c.src[c.pos] == '.' && c.pos+1 < len(c.src) && lang.IsDigit(c.src[c.pos+1]) {
			c.pos++
			for c.pos < len(c.src) && lang.IsDigit(c.src[c.pos]) {
				c.pos++
			}
		}
	}
	if c.pos == start || (neg && c.pos == start+1) {
		// nothing parsed: treat as zero, the error model's default for
		// any construct that can't make sense of what's in front of it.
		return 0
	}
	if neg {
		return -val
	}
	return val
}

func hexDigit(b byte) byte {
	switch {
	case b >= '0' && b <= '9':
		return b - '0'
	case b >= 'a' && b <= 'f':
		return b - 'a' + 10
	case b >= 'A' && b <= 'F':
		return b - 'A' + 10
	}
	return 0
}

// scanStringLiteral reads a quote-delimited literal starting at the
// current cursor (which must be at the opening '"'). When decodeEscapes
// is true, \n \t \r \0 \xHH are decoded via internal/lang; otherwise the
// raw bytes between the quotes are copied verbatim (no escape awareness
// at all — this is what lets `emit` carry arbitrary binary payloads, at
// the cost of not being able to embed a literal quote byte).
func (c *Compiler) scanStringLiteral(decodeEscapes bool) []byte {
	if c.pos >= len(c.src) || c.src[c.pos] != '"' {
		return nil
	}
	c.pos++
	var out []byte
	for c.pos < len(c.src) && c.src[c.pos] != '"' {
		if decodeEscapes && c.src[c.pos] == '\\' {
			c.pos++
			b, next := lang.DecodeEscape(c.src, c.pos)
			out = append(out, b)
			c.pos = next
			continue
		}
		out = append(out, c.src[c.pos])
		c.pos++
	}
	if c.pos < len(c.src) {
		c.pos++ // consume closing quote
	}
	return out
}

// matchKeyword reports whether word occurs at pos as a whole word (not a
// prefix of a longer identifier).
func matchKeyword(src []byte, pos int, word string) bool {
	if pos+len(word) > len(src) {
		return false
	}
	if pos > 0 && lang.IsIdentPart(src[pos-1]) {
		return false
	}
	if string(src[pos:pos+len(word)]) != word {
		return false
	}
	end := pos + len(word)
	return end >= len(src) || !lang.IsIdentPart(src[end])
}
