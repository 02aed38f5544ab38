package compiler

import (
	"fmt"
	"strings"

	"github.com/nanolang/ncc/internal/lang"
	"github.com/nanolang/ncc/internal/symtab"
	"github.com/nanolang/ncc/pkg/amd64"
)

// parseStatements consumes statements from the current cursor up to end,
// the byte-range form every caller (top level, function body, when/loop
// block) uses uniformly.
func (c *Compiler) parseStatements(end int) {
	for {
		c.skipTrivia()
		if c.pos >= end {
			return
		}
		c.parseStatement(end)
	}
}

// parseStatement recognises one statement by keyword prefix matching at
// the current cursor.
func (c *Compiler) parseStatement(end int) {
	if c.pos+1 < end && c.src[c.pos] == '-' && c.src[c.pos+1] == '>' {
		c.pos += 2
		c.emitReturnLike()
		return
	}

	if !lang.IsIdentStart(c.src[c.pos]) {
		c.skipLine()
		return
	}

	word := c.scanIdentifier()
	switch word {
	case "out":
		c.emitOutOrEmit(true)
	case "emit":
		c.emitOutOrEmit(false)
	case "fn":
		c.parseFnStatement()
	case "when":
		c.parseWhen()
	case "loop":
		c.parseLoop()
	case "break":
		c.emitBreak()
	case "return":
		c.emitReturnLike()
	case "keep":
		c.code.EmitBytes(amd64.KeepSpin())
	case "fate":
		c.parseFateKeyword()
	case "otherwise":
		c.parseOtherwise()
	case "limit":
		c.parseLimit()
	case "unified":
		c.parseUnified()
	case "peek":
		c.emitPeek()
	case "poke":
		c.emitPoke()
	case "putchar", "byte":
		c.emitPutchar()
	case "getchar":
		c.emitGetchar()
	case "platform.probe":
		c.meta.ProbePlatform()
	case "bridge.read":
		c.meta.ReadBridge()
	case "compat.probe":
		c.meta.ProbeCompat()
	default:
		c.parseIdentifierLedStatement(word)
	}
}

// parseIdentifierLedStatement handles the forms that start with an
// arbitrary identifier: syscall.<name>(...), a named skip-block, a plain
// assignment, or a function call. Anything else is an unknown statement
// keyword, and the rest of the line is skipped.
func (c *Compiler) parseIdentifierLedStatement(word string) {
	if strings.HasPrefix(word, "syscall.") {
		c.emitSyscallCall(strings.TrimPrefix(word, "syscall."))
		return
	}
	if lang.SkipBlockKeywords[word] {
		c.skipNamedBlock()
		return
	}

	c.skipTrivia()
	if c.pos < len(c.src) && c.src[c.pos] == '=' && !(c.pos+1 < len(c.src) && c.src[c.pos+1] == '=') {
		c.pos++
		c.emitAssignment(word)
		return
	}
	if c.pos < len(c.src) && c.src[c.pos] == '(' {
		c.emitCallStatement(word)
		return
	}
	c.skipLine()
}

// skipNamedBlock skips a `<ident> { … }` block declaration without
// emitting anything for it.
func (c *Compiler) skipNamedBlock() {
	c.skipTrivia()
	if c.pos >= len(c.src) || c.src[c.pos] != '{' {
		return
	}
	bodyStart := c.pos + 1
	bodyEnd, err := findMatchingBrace(c.src, bodyStart)
	if err != nil {
		c.pos = len(c.src)
		return
	}
	c.pos = bodyEnd + 1
}

// emitOutOrEmit handles `out "…"` and `emit "…"`: jump over the inline
// string bytes, then write(stdout, that address, that length).
func (c *Compiler) emitOutOrEmit(decodeEscapes bool) {
	c.skipTrivia()
	data := c.scanStringLiteral(decodeEscapes)

	c.code.EmitBytes(amd64.JmpRel32(int32(len(data))))
	dataOffset := c.code.Len()
	c.code.EmitBytes(data)

	c.emitLeaRipRsi(dataOffset)
	c.code.EmitBytes(amd64.MovImm32Rax(lang.SyscallNumbers["write"]))
	c.code.EmitBytes(amd64.MovImm32Rdi(1))
	c.code.EmitBytes(amd64.MovImm32Rdx(int32(len(data))))
	c.code.EmitBytes(amd64.Syscall())
}

// emitLeaRipRsi emits a RIP-relative LEA targeting dataOffset into %rsi.
// The LEA is fixed at 7 bytes, so the displacement can be computed
// immediately without a fixup.
func (c *Compiler) emitLeaRipRsi(dataOffset int) {
	leaPos := c.code.Len()
	disp := int32(dataOffset - (leaPos + 7))
	c.code.EmitBytes(amd64.LeaRipRsi(disp))
}

// emitLeaRipRax is the expression-context counterpart of emitLeaRipRsi:
// loads the inline data's address into %rax instead of %rsi.
func (c *Compiler) emitLeaRipRax(dataOffset int) {
	leaPos := c.code.Len()
	disp := int32(dataOffset - (leaPos + 7))
	c.code.EmitBytes(amd64.LeaRipRax(disp))
}

// parseFnStatement re-registers a function declaration encountered during
// the main emission pass (the array was reset before this pass began, so
// this rebuild happens in source order) and skips its body without
// emitting code for it.
func (c *Compiler) parseFnStatement() {
	start := c.pos - len("fn")
	fn, next, err := parseFunctionHeader(c.src, start)
	if err != nil {
		c.pos = len(c.src)
		return
	}
	c.sym.DeclareFunction(fn)
	c.pos = next
}

// parseWhen handles `when <expr> { … }`: no else branch. A following
// `otherwise { … }` is its own statement (see parseOtherwise), not part of
// when's own grammar.
func (c *Compiler) parseWhen() {
	c.parseExpression()
	id := c.sym.NextWhenID()
	endLabel := fmt.Sprintf("_when_end_%d", id)

	c.code.EmitBytes(amd64.TestRaxRax())
	c.emitJumpFixup(amd64.JzRel32, 2, endLabel)

	c.skipTrivia()
	if c.pos >= len(c.src) || c.src[c.pos] != '{' {
		c.sym.PlaceLabel(endLabel, c.code.Len())
		return
	}
	bodyStart := c.pos + 1
	bodyEnd, err := findMatchingBrace(c.src, bodyStart)
	if err != nil {
		bodyEnd = len(c.src)
	}
	c.pos = bodyStart
	c.parseStatements(bodyEnd)
	c.pos = bodyEnd + 1

	c.sym.PlaceLabel(endLabel, c.code.Len())
}

// parseOtherwise handles `otherwise { … }` as a standalone statement: an
// unconditional block whose body is compiled and emitted exactly like a
// top-level sequence of statements, not skipped.
func (c *Compiler) parseOtherwise() {
	c.skipTrivia()
	if c.pos >= len(c.src) || c.src[c.pos] != '{' {
		return
	}
	bodyStart := c.pos + 1
	bodyEnd, err := findMatchingBrace(c.src, bodyStart)
	if err != nil {
		bodyEnd = len(c.src)
	}
	c.pos = bodyStart
	c.parseStatements(bodyEnd)
	c.pos = bodyEnd + 1
}

// parseLoop handles `loop { … }`.
func (c *Compiler) parseLoop() {
	id := c.sym.NextLoopID()
	startLabel := fmt.Sprintf("_loop_start_%d", id)
	endLabel := fmt.Sprintf("_loop_end_%d", id)

	c.sym.PlaceLabel(startLabel, c.code.Len())
	c.sym.PushLoop(startLabel, endLabel)

	c.skipTrivia()
	if c.pos < len(c.src) && c.src[c.pos] == '{' {
		bodyStart := c.pos + 1
		bodyEnd, err := findMatchingBrace(c.src, bodyStart)
		if err != nil {
			bodyEnd = len(c.src)
		}
		c.pos = bodyStart
		c.parseStatements(bodyEnd)
		c.pos = bodyEnd + 1
	}

	c.emitJumpFixup(amd64.JmpRel32, 1, startLabel)
	c.sym.PlaceLabel(endLabel, c.code.Len())
	c.sym.PopLoop()
}

// emitBreak handles `break`: a no-op outside any loop.
func (c *Compiler) emitBreak() {
	_, end, ok := c.sym.InLoop()
	if !ok {
		return
	}
	c.emitJumpFixup(amd64.JmpRel32, 1, end)
}

// emitReturnLike handles both `return <expr>` and `-> <expr>`: inside a
// loop, either form jumps to the innermost loop's end-label instead of
// returning from the function; otherwise it emits the epilogue matching
// whichever scratch size the active prologue reserved.
func (c *Compiler) emitReturnLike() {
	c.parseExpression()
	if _, end, ok := c.sym.InLoop(); ok {
		c.emitJumpFixup(amd64.JmpRel32, 1, end)
		return
	}
	c.emitEpilogue(c.currentScratch)
}

// parseFateKeyword dispatches on what follows the `fate` keyword: `fate {
// … }` is a named skip-block like `pool`/`task`/etc, parsed and discarded
// via skipNamedBlock; only a bare following identifier is the `fate on` /
// `fate off` toggle parseFate handles.
func (c *Compiler) parseFateKeyword() {
	c.skipTrivia()
	if c.pos < len(c.src) && c.src[c.pos] == '{' {
		c.skipNamedBlock()
		return
	}
	c.parseFate()
}

// parseFate handles `fate on` / `fate off`.
func (c *Compiler) parseFate() {
	c.skipTrivia()
	word := ""
	if c.pos < len(c.src) && lang.IsIdentStart(c.src[c.pos]) {
		word = c.scanIdentifier()
	}
	c.meta.SetFate(word == "on")
}

// parseLimit handles `limit <N>`.
func (c *Compiler) parseLimit() {
	c.skipTrivia()
	n := c.scanNumber()
	c.meta.SetLimit(int(n))
}

// parseUnified handles `unified { i:<n>, e:<n>, r:<n> }`.
func (c *Compiler) parseUnified() {
	c.skipTrivia()
	if c.pos >= len(c.src) || c.src[c.pos] != '{' {
		return
	}
	c.pos++
	fields := map[string]float64{}
	for c.pos < len(c.src) && c.src[c.pos] != '}' {
		c.skipTrivia()
		if c.pos >= len(c.src) || c.src[c.pos] == '}' {
			break
		}
		if !lang.IsIdentStart(c.src[c.pos]) {
			c.pos++
			continue
		}
		name := c.scanIdentifier()
		c.skipTrivia()
		if c.pos < len(c.src) && c.src[c.pos] == ':' {
			c.pos++
		}
		c.skipTrivia()
		fields[name] = c.scanFloat()
		c.skipTrivia()
		if c.pos < len(c.src) && c.src[c.pos] == ',' {
			c.pos++
		}
	}
	if c.pos < len(c.src) && c.src[c.pos] == '}' {
		c.pos++
	}
	c.meta.SetUnified(fields["i"], fields["e"], fields["r"])
}

// scanFloat reads a simple decimal float literal (no exponent form —
// the source language has no use for one here).
func (c *Compiler) scanFloat() float64 {
	start := c.pos
	if c.pos < len(c.src) && c.src[c.pos] == '-' {
		c.pos++
	}
	for c.pos < len(c.src) && lang.IsDigit(c.src[c.pos]) {
		c.pos++
	}
	if c.pos < len(c.src) && c.src[c.pos] == '.' {
		c.pos++
		for c.pos < len(c.src) && lang.IsDigit(c.src[c.pos]) {
			c.pos++
		}
	}
	text := string(c.src[start:c.pos])
	var v float64
	fmt.Sscanf(text, "%g", &v)
	return v
}

// emitPeek handles `peek(addr)`: byte load at addr into %rax.
func (c *Compiler) emitPeek() {
	c.expectByte('(')
	c.parseExpression() // address -> rax
	c.expectByte(')')
	c.code.EmitBytes(amd64.PeekByte())
}

// emitPoke handles `poke(addr, val)`: byte store of val at addr.
func (c *Compiler) emitPoke() {
	c.expectByte('(')
	c.parseExpression() // address -> rax
	c.code.EmitBytes(amd64.PushRax())
	c.skipTrivia()
	if c.pos < len(c.src) && c.src[c.pos] == ',' {
		c.pos++
	}
	c.parseExpression() // value -> rax
	c.code.EmitBytes(amd64.PopRcx()) // address into rcx
	c.code.EmitBytes(amd64.PokeByte())
	c.expectByte(')')
}

// emitPutchar handles `putchar(n)` and `byte(n)`: write a single byte to
// stdout via the stack red zone.
func (c *Compiler) emitPutchar() {
	c.expectByte('(')
	c.parseExpression() // byte value -> rax
	c.expectByte(')')
	c.code.EmitBytes(amd64.StoreByteRedZone())
	c.code.EmitBytes(amd64.LeaRedZoneRsi())
	c.code.EmitBytes(amd64.MovImm32Rax(lang.SyscallNumbers["write"]))
	c.code.EmitBytes(amd64.MovImm32Rdi(1))
	c.code.EmitBytes(amd64.MovImm32Rdx(1))
	c.code.EmitBytes(amd64.Syscall())
}

// emitGetchar handles `getchar()`: read a single byte from stdin into
// %rax via the stack red zone.
func (c *Compiler) emitGetchar() {
	c.expectByte('(')
	c.expectByte(')')
	c.code.EmitBytes(amd64.LeaRedZoneRsi())
	c.code.EmitBytes(amd64.MovImm32Rax(lang.SyscallNumbers["read"]))
	c.code.EmitBytes(amd64.MovImm32Rdi(0))
	c.code.EmitBytes(amd64.MovImm32Rdx(1))
	c.code.EmitBytes(amd64.Syscall())
	c.code.EmitBytes(amd64.LoadByteRedZone())
}

// emitSyscallCall handles `syscall.<name>(args…)`. `exit` with a single
// literal integer argument is specialised to skip expression machinery
// entirely and load the status straight into the argument register.
func (c *Compiler) emitSyscallCall(name string) {
	num, ok := lang.SyscallNumbers[name]
	if !ok {
		num = 0
	}
	c.expectByte('(')

	if name == "exit" {
		c.skipTrivia()
		if save := c.pos; c.tryLiteralInt() {
			lit := c.lastLiteralInt
			c.expectByte(')')
			c.code.EmitBytes(amd64.MovImm32Rax(num))
			c.code.EmitBytes(amd64.MovImm32Rdi(int32(lit)))
			c.code.EmitBytes(amd64.Syscall())
			return
		} else {
			c.pos = save
		}
	}

	var argCount int
	c.skipTrivia()
	for c.pos < len(c.src) && c.src[c.pos] != ')' {
		c.parseExpression()
		c.code.EmitBytes(amd64.PushRax())
		argCount++
		c.skipTrivia()
		if c.pos < len(c.src) && c.src[c.pos] == ',' {
			c.pos++
			c.skipTrivia()
		}
	}
	c.expectByte(')')

	for i := argCount - 1; i >= 0; i-- {
		c.code.EmitBytes(amd64.PopRax())
		if i < len(amd64.SyscallArgMoversFromRax) {
			c.code.EmitBytes(amd64.SyscallArgMoversFromRax[i]())
		}
	}
	c.code.EmitBytes(amd64.MovImm32Rax(num))
	c.code.EmitBytes(amd64.Syscall())
}

// tryLiteralInt attempts to parse a literal integer (optionally negative)
// at the current cursor, succeeding only if it is immediately followed by
// the closing paren (so a larger expression like `x + 1` isn't mistaken
// for a bare literal). Records the value in lastLiteralInt.
func (c *Compiler) tryLiteralInt() bool {
	start := c.pos
	digitPos := c.pos
	if digitPos < len(c.src) && c.src[digitPos] == '-' {
		digitPos++
	}
	if digitPos >= len(c.src) || !lang.IsDigit(c.src[digitPos]) {
		c.pos = start
		return false
	}
	v := c.scanNumber()
	c.skipTrivia()
	if c.pos < len(c.src) && c.src[c.pos] != ')' {
		c.pos = start
		return false
	}
	c.lastLiteralInt = v
	return true
}

// emitAssignment handles `name = <expr>`: resolve or create the variable,
// compile the expression, store the result. Creation happens only at
// assignment — there is no explicit declaration form.
func (c *Compiler) emitAssignment(name string) {
	c.parseExpression()
	v := c.sym.Lookup(name)
	if v == nil {
		if c.inFunctionBody() {
			v = c.sym.AddLocal(name)
		} else {
			v = c.sym.AddGlobal(name)
		}
	}
	if v == nil {
		return // variable table capacity exhausted: silent discard
	}
	c.storeVariable(v)
}

// storeVariable emits the store instruction matching v's scope.
func (c *Compiler) storeVariable(v *symtab.Variable) {
	switch v.Scope {
	case symtab.ScopeGlobal:
		c.code.EmitBytes(amd64.StoreAbs(v.Address))
	default:
		c.code.EmitBytes(amd64.StoreFrame(v.Offset))
	}
}

// emitCallStatement handles `name(args…)` as a statement: each argument is
// compiled and pushed left-to-right, then a direct call is made to the
// function's label, and on return 8*argc bytes are popped off the stack.
func (c *Compiler) emitCallStatement(name string) {
	c.expectByte('(')
	argc := c.parseArgList()
	c.expectByte(')')
	c.emitJumpFixup(amd64.CallRel32, 1, name)
	if argc > 0 {
		c.code.EmitBytes(amd64.AddRspImm32(int32(8 * argc)))
	}
}

// parseArgList compiles each argument expression left to right, pushing
// each result onto the stack, and returns the argument count.
func (c *Compiler) parseArgList() int {
	argc := 0
	c.skipTrivia()
	for c.pos < len(c.src) && c.src[c.pos] != ')' {
		c.parseExpression()
		c.code.EmitBytes(amd64.PushRax())
		argc++
		c.skipTrivia()
		if c.pos < len(c.src) && c.src[c.pos] == ',' {
			c.pos++
			c.skipTrivia()
		}
	}
	return argc
}

func (c *Compiler) expectByte(b byte) {
	c.skipTrivia()
	if c.pos < len(c.src) && c.src[c.pos] == b {
		c.pos++
	}
}

func (c *Compiler) inFunctionBody() bool {
	return c.currentScratch == funcScratch
}
