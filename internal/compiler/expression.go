package compiler

import (
	"strings"

	"github.com/nanolang/ncc/internal/lang"
	"github.com/nanolang/ncc/internal/symtab"
	"github.com/nanolang/ncc/pkg/amd64"
)

// parseExpression compiles one expression, leaving its result in %rax.
// Binary operators are flat and left-to-right with no precedence
// differentiation: `a + b * c` evaluates as `(a + b) * c`. Each step
// evaluates the left operand first (pushed to the stack), then the right
// operand (landing in %rax), moves the right operand into %rcx, pops the
// left operand back into %rax, and applies the operator as "left op
// right" — rax and rcx end up holding the left and right operands
// respectively, regardless of which register each was originally
// computed in.
func (c *Compiler) parseExpression() {
	c.parsePrimary()
	for {
		op, width := c.peekBinaryOp()
		if op == "" {
			return
		}
		c.code.EmitBytes(amd64.PushRax())
		c.pos += width
		c.skipTrivia()
		c.parsePrimary()
		c.code.EmitBytes(amd64.MovRcxRax())
		c.code.EmitBytes(amd64.PopRax())
		c.applyBinaryOp(op)
	}
}

// peekBinaryOp reports the operator token at the current cursor (after
// skipping trivia) and its width in bytes, or "" if none matches. Two-
// character operators are checked before their single-character prefixes
// so `==` isn't mistaken for a bare `=`. A `-` immediately followed by `>`
// is the return arrow, not subtraction, and is left for the statement
// parser.
func (c *Compiler) peekBinaryOp() (string, int) {
	c.skipTrivia()
	if c.pos >= len(c.src) {
		return "", 0
	}
	rest := c.src[c.pos:]
	for _, op := range [...]string{"==", "!=", "<=", ">="} {
		if len(rest) >= 2 && rest[0] == op[0] && rest[1] == op[1] {
			return op, 2
		}
	}
	switch rest[0] {
	case '+', '*', '/', '<', '>':
		return string(rest[0]), 1
	case '-':
		if len(rest) >= 2 && rest[1] == '>' {
			return "", 0
		}
		return "-", 1
	}
	return "", 0
}

// applyBinaryOp emits the instruction(s) for op, operating on %rax (left)
// and %rcx (right), leaving the result in %rax.
func (c *Compiler) applyBinaryOp(op string) {
	switch op {
	case "+":
		c.code.EmitBytes(amd64.AddRaxRcx())
	case "-":
		c.code.EmitBytes(amd64.SubRaxRcx())
	case "*":
		c.code.EmitBytes(amd64.ImulRaxRcx())
	case "/":
		c.code.EmitBytes(amd64.IdivRcx())
	case "==":
		c.code.EmitBytes(amd64.CompareSetEQ())
	case "!=":
		c.code.EmitBytes(amd64.CompareSetNE())
	case "<":
		c.code.EmitBytes(amd64.CompareSetLT())
	case "<=":
		c.code.EmitBytes(amd64.CompareSetLE())
	case ">":
		c.code.EmitBytes(amd64.CompareSetGT())
	case ">=":
		c.code.EmitBytes(amd64.CompareSetGE())
	}
}

// parsePrimary compiles one primary expression — a literal, a
// parenthesised subexpression, or an identifier-led form — leaving its
// value in %rax. Anything unrecognised at the cursor defaults to the
// constant zero, matching the rest of this compiler's best-effort stance.
func (c *Compiler) parsePrimary() {
	c.skipTrivia()
	if c.pos >= len(c.src) {
		c.code.EmitBytes(amd64.MovImm32Rax(0))
		return
	}
	b := c.src[c.pos]
	switch {
	case b == '(':
		c.pos++
		c.parseExpression()
		c.expectByte(')')
	case b == '"':
		c.parseStringPrimary()
	case lang.IsDigit(b), b == '-' && c.pos+1 < len(c.src) && lang.IsDigit(c.src[c.pos+1]):
		v := c.scanNumber()
		c.code.EmitBytes(amd64.MovImm32Rax(int32(v)))
	case lang.IsIdentStart(b):
		c.parseIdentifierPrimary()
	default:
		c.pos++
		c.code.EmitBytes(amd64.MovImm32Rax(0))
	}
}

// parseStringPrimary compiles a string literal appearing in expression
// context: the bytes are inlined the same way `out`/`emit` inline them,
// but the result is the literal's address in %rax rather than a write
// syscall.
func (c *Compiler) parseStringPrimary() {
	data := c.scanStringLiteral(true)
	c.code.EmitBytes(amd64.JmpRel32(int32(len(data))))
	dataOffset := c.code.Len()
	c.code.EmitBytes(data)
	c.emitLeaRipRax(dataOffset)
}

// parseIdentifierPrimary handles an identifier appearing in expression
// context: a syscall expression, a function call, or a variable load.
func (c *Compiler) parseIdentifierPrimary() {
	name := c.scanIdentifier()
	if strings.HasPrefix(name, "syscall.") {
		c.emitSyscallCall(strings.TrimPrefix(name, "syscall."))
		return
	}
	c.skipTrivia()
	if c.pos < len(c.src) && c.src[c.pos] == '(' {
		c.emitCallStatement(name)
		return
	}
	c.loadVariable(name)
}

// loadVariable emits the load instruction for name, or the constant zero
// if name was never declared.
func (c *Compiler) loadVariable(name string) {
	v := c.sym.Lookup(name)
	if v == nil {
		c.code.EmitBytes(amd64.MovImm32Rax(0))
		return
	}
	switch v.Scope {
	case symtab.ScopeGlobal:
		c.code.EmitBytes(amd64.LoadAbs(v.Address))
	default:
		c.code.EmitBytes(amd64.LoadFrame(v.Offset))
	}
}
