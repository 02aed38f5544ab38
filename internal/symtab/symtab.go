// Package symtab implements the symbol & fixup table: variable scoping,
// function records, labels, and branch/call fixups. It generalises a flat
// label-address-and-fixups bookkeeping scheme into the nested function
// scoping the source language requires.
package symtab

// Scope identifies where a variable lives.
type Scope int

const (
	ScopeGlobal Scope = iota
	ScopeLocal
	ScopeParam
)

// GlobalBase is the fixed virtual address the first global is bound to;
// subsequent globals are assigned GlobalBase + 8*i.
const GlobalBase = 0x600000

const (
	maxVariables = 4096
	maxFunctions = 2048
	maxLabels    = 8192
	maxFixups    = 8192
	maxLoopDepth = 16
)

// Variable is a symbol table entry for a local, parameter, or global.
type Variable struct {
	Name    string
	Scope   Scope
	Offset  int32  // frame-relative, for ScopeLocal/ScopeParam
	Address uint64 // absolute, for ScopeGlobal
}

// Function is a first-pass-discovered function declaration.
type Function struct {
	Name       string
	Params     []string
	BodyStart  int // offset of the first byte of the body (one past the opening brace)
	BodyEnd    int // offset just past the last byte of the body (exclusive), matching close-brace excluded
	CodeOffset int // filled in during emission
}

// Fixup is a pending 32-bit relative displacement patch.
type Fixup struct {
	Offset int // code buffer offset of the four zero bytes
	Label  string
}

// loopFrame is the (start, end) label pair for an active loop.
type loopFrame struct {
	StartLabel string
	EndLabel   string
}

// Table owns all of the symbol-table bookkeeping for one compilation.
type Table struct {
	vars       []Variable
	globalNext uint64

	funcs   []Function
	funcIdx map[string]int // name -> first index, for call-target and redeclaration lookup

	labels map[string]int
	fixups []Fixup

	loopStack []loopFrame

	whenCounter int
	loopCounter int

	// frame accounting for the active function (0 at top level)
	frameSize int32
}

// NewTable constructs an empty symbol table.
func NewTable() *Table {
	return &Table{
		globalNext: GlobalBase,
		funcIdx:    make(map[string]int),
		labels:     make(map[string]int),
	}
}

// AddGlobal declares a new global variable, or returns the existing one if
// already declared (globals persist for the whole compilation and have no
// shadowing semantics worth re-allocating on reassignment).
func (t *Table) AddGlobal(name string) *Variable {
	if v := t.lookupGlobal(name); v != nil {
		return v
	}
	if len(t.vars) >= maxVariables {
		return nil
	}
	v := Variable{Name: name, Scope: ScopeGlobal, Address: t.globalNext}
	t.globalNext += 8
	t.vars = append(t.vars, v)
	return &t.vars[len(t.vars)-1]
}

func (t *Table) lookupGlobal(name string) *Variable {
	for i := len(t.vars) - 1; i >= 0; i-- {
		if t.vars[i].Scope == ScopeGlobal && t.vars[i].Name == name {
			return &t.vars[i]
		}
	}
	return nil
}

// AddLocal declares a new local in the current function, growing the
// frame size by 8: the k-th local (1-indexed) sits at -8k.
func (t *Table) AddLocal(name string) *Variable {
	if len(t.vars) >= maxVariables {
		return nil
	}
	t.frameSize += 8
	v := Variable{Name: name, Scope: ScopeLocal, Offset: -t.frameSize}
	t.vars = append(t.vars, v)
	return &t.vars[len(t.vars)-1]
}

// AddParam declares the k-th (0-indexed) parameter of a function with p
// total parameters, at frame offset 16+8*(p-1-k) — equivalently, the k-th
// parameter counting from 1 sits at 16 + 8*(p-k), just above the saved
// return address and frame pointer.
func (t *Table) AddParam(name string, index, total int) *Variable {
	if len(t.vars) >= maxVariables {
		return nil
	}
	offset := int32(16 + 8*(total-1-index))
	v := Variable{Name: name, Scope: ScopeParam, Offset: offset}
	t.vars = append(t.vars, v)
	return &t.vars[len(t.vars)-1]
}

// Lookup resolves name by scanning from newest to oldest, so shadowing is
// by declaration recency. Returns nil (not found) for an undeclared name;
// callers compile that as a constant zero.
func (t *Table) Lookup(name string) *Variable {
	for i := len(t.vars) - 1; i >= 0; i-- {
		if t.vars[i].Name == name {
			return &t.vars[i]
		}
	}
	return nil
}

// funcScope snapshots what EnterFunction needs to restore on exit.
type funcScope struct {
	varCursor int
	frameSize int32
}

// EnterFunction records the current variable cursor and frame size so
// ExitFunction can roll them back, dropping the function's locals and
// parameters from the table.
func (t *Table) EnterFunction() funcScope {
	return funcScope{varCursor: len(t.vars), frameSize: t.frameSize}
}

// ExitFunction restores the table to the state EnterFunction captured.
func (t *Table) ExitFunction(saved funcScope) {
	t.vars = t.vars[:saved.varCursor]
	t.frameSize = saved.frameSize
}

// FrameSize returns the current function's accumulated local frame size
// (locals only; parameters don't grow it).
func (t *Table) FrameSize() int32 {
	return t.frameSize
}

// DeclareFunction appends a function record discovered by the first-pass
// scan. Redeclaration is not detected: duplicates are appended and the
// first one registered in funcIdx wins at lookup.
func (t *Table) DeclareFunction(fn Function) {
	if len(t.funcs) >= maxFunctions {
		return
	}
	t.funcs = append(t.funcs, fn)
	if _, exists := t.funcIdx[fn.Name]; !exists {
		t.funcIdx[fn.Name] = len(t.funcs) - 1
	}
}

// ResetFunctions clears the function array's cursor and the funcIdx name
// index before the main emission pass re-registers them in source order.
func (t *Table) ResetFunctions() {
	t.funcs = t.funcs[:0]
	t.funcIdx = make(map[string]int)
}

// Functions returns all discovered function records, in first-pass
// discovery order — emission iterates this slice directly.
func (t *Table) Functions() []Function {
	return t.funcs
}

// SetFunctionCodeOffset records where a function's body begins once it is
// emitted.
func (t *Table) SetFunctionCodeOffset(index, offset int) {
	if index < 0 || index >= len(t.funcs) {
		return
	}
	t.funcs[index].CodeOffset = offset
}

// FindFunction looks up a function record by name, first-match-wins.
// Emitted calls do not go through it: they are resolved through labels,
// where the last-placed label of a name wins (see PlaceLabel).
func (t *Table) FindFunction(name string) (Function, bool) {
	idx, ok := t.funcIdx[name]
	if !ok {
		return Function{}, false
	}
	return t.funcs[idx], true
}

// NextWhenID returns the next monotonic ID for a `when` construct.
func (t *Table) NextWhenID() int {
	id := t.whenCounter
	t.whenCounter++
	return id
}

// NextLoopID returns the next monotonic ID for a `loop` construct.
func (t *Table) NextLoopID() int {
	id := t.loopCounter
	t.loopCounter++
	return id
}

// PushLoop records the innermost (start, end) label pair, up to the
// bounded loop-stack depth.
func (t *Table) PushLoop(start, end string) {
	if len(t.loopStack) >= maxLoopDepth {
		return
	}
	t.loopStack = append(t.loopStack, loopFrame{StartLabel: start, EndLabel: end})
}

// PopLoop removes the innermost loop frame.
func (t *Table) PopLoop() {
	if len(t.loopStack) == 0 {
		return
	}
	t.loopStack = t.loopStack[:len(t.loopStack)-1]
}

// InLoop reports whether a loop is currently active, and if so its
// innermost (start, end) label pair.
func (t *Table) InLoop() (start, end string, ok bool) {
	if len(t.loopStack) == 0 {
		return "", "", false
	}
	top := t.loopStack[len(t.loopStack)-1]
	return top.StartLabel, top.EndLabel, true
}

// PlaceLabel records offset as the target of name. Overwrites any prior
// definition under the same name: last-placed wins, which is what lets a
// duplicate function declaration simply replace the earlier one's label.
func (t *Table) PlaceLabel(name string, offset int) {
	if len(t.labels) >= maxLabels && t.labels[name] == 0 {
		return
	}
	t.labels[name] = offset
}

// LabelOffset looks up a previously placed label.
func (t *Table) LabelOffset(name string) (int, bool) {
	off, ok := t.labels[name]
	return off, ok
}

// AddFixup records a pending fixup at offset targeting label.
func (t *Table) AddFixup(offset int, label string) {
	if len(t.fixups) >= maxFixups {
		return
	}
	t.fixups = append(t.fixups, Fixup{Offset: offset, Label: label})
}

// Fixups returns all pending fixups for resolution.
func (t *Table) Fixups() []Fixup {
	return t.fixups
}

// GlobalCount returns how many globals have been declared, used for the
// report line and to size the global data region.
func (t *Table) GlobalCount() int {
	n := 0
	for _, v := range t.vars {
		if v.Scope == ScopeGlobal {
			n++
		}
	}
	return n
}

// GlobalBytes returns the number of bytes the global region spans, used
// to size the ELF segment's memsz.
func (t *Table) GlobalBytes() uint64 {
	return uint64(t.GlobalCount()) * 8
}
