package compiler

import (
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nanolang/ncc/internal/lang"
	"github.com/nanolang/ncc/internal/symtab"
	"github.com/nanolang/ncc/pkg/amd64"
	"github.com/nanolang/ncc/pkg/elf"
)

func TestCompileEmptyProgramEmitsOnlyPrologueAndSafetyExit(t *testing.T) {
	result, err := New([]byte("")).Compile()
	require.NoError(t, err)

	var want []byte
	want = append(want, amd64.Prologue()...)
	want = append(want, amd64.SubRspImm32(topLevelScratch)...)
	want = append(want, amd64.MovImm32Rax(lang.SyscallNumbers["exit"])...)
	want = append(want, amd64.MovImm32Rdi(0)...)
	want = append(want, amd64.Syscall()...)

	assert.Equal(t, want, result.Code)
	assert.Equal(t, uint64(0), result.GlobalBytes)
}

func TestGlobalAssignmentStoresToSequentialAbsoluteAddresses(t *testing.T) {
	result, err := New([]byte("x = 42\ny = 7\n")).Compile()
	require.NoError(t, err)

	addrX := uint64(symtab.GlobalBase)
	addrY := addrX + 8

	var want []byte
	want = append(want, amd64.Prologue()...)
	want = append(want, amd64.SubRspImm32(topLevelScratch)...)
	want = append(want, amd64.MovImm32Rax(42)...)
	want = append(want, amd64.StoreAbs(addrX)...)
	want = append(want, amd64.MovImm32Rax(7)...)
	want = append(want, amd64.StoreAbs(addrY)...)
	want = append(want, amd64.MovImm32Rax(lang.SyscallNumbers["exit"])...)
	want = append(want, amd64.MovImm32Rdi(0)...)
	want = append(want, amd64.Syscall()...)

	assert.Equal(t, want, result.Code)
	assert.Equal(t, uint64(16), result.GlobalBytes)
}

// TestBinaryExpressionEvaluatesLeftOperandFirst pins the evaluation order a
// binary expression must follow: the left operand is computed and pushed,
// the right operand is computed into %rax, moved into %rcx, then the left
// operand is popped back into %rax so "rax op rcx" always reads as
// "left op right" — subtraction being the case where getting this backwards
// is observable.
func TestBinaryExpressionEvaluatesLeftOperandFirst(t *testing.T) {
	result, err := New([]byte("x = 7\ny = 5\nz = x - y\n")).Compile()
	require.NoError(t, err)

	addrX := uint64(symtab.GlobalBase)
	addrY := addrX + 8
	addrZ := addrX + 16

	var want []byte
	want = append(want, amd64.Prologue()...)
	want = append(want, amd64.SubRspImm32(topLevelScratch)...)
	want = append(want, amd64.MovImm32Rax(7)...)
	want = append(want, amd64.StoreAbs(addrX)...)
	want = append(want, amd64.MovImm32Rax(5)...)
	want = append(want, amd64.StoreAbs(addrY)...)
	want = append(want, amd64.LoadAbs(addrX)...) // left operand -> %rax
	want = append(want, amd64.PushRax()...)       // ... pushed
	want = append(want, amd64.LoadAbs(addrY)...) // right operand -> %rax
	want = append(want, amd64.MovRcxRax()...)     // right operand out of the way
	want = append(want, amd64.PopRax()...)        // left operand back into %rax
	want = append(want, amd64.SubRaxRcx()...)     // left - right
	want = append(want, amd64.StoreAbs(addrZ)...)
	want = append(want, amd64.MovImm32Rax(lang.SyscallNumbers["exit"])...)
	want = append(want, amd64.MovImm32Rdi(0)...)
	want = append(want, amd64.Syscall()...)

	assert.Equal(t, want, result.Code)
	assert.Equal(t, uint64(24), result.GlobalBytes)
}

func TestLiteralExitBypassesExpressionMachinery(t *testing.T) {
	result, err := New([]byte("syscall.exit(5)\n")).Compile()
	require.NoError(t, err)

	var want []byte
	want = append(want, amd64.Prologue()...)
	want = append(want, amd64.SubRspImm32(topLevelScratch)...)
	want = append(want, amd64.MovImm32Rax(lang.SyscallNumbers["exit"])...)
	want = append(want, amd64.MovImm32Rdi(5)...)
	want = append(want, amd64.Syscall()...)
	// safety exit(0) still follows
	want = append(want, amd64.MovImm32Rax(lang.SyscallNumbers["exit"])...)
	want = append(want, amd64.MovImm32Rdi(0)...)
	want = append(want, amd64.Syscall()...)

	assert.Equal(t, want, result.Code)
}

func TestOutStatementInlinesBytesAndWritesToStdout(t *testing.T) {
	result, err := New([]byte(`out "hi"` + "\n")).Compile()
	require.NoError(t, err)

	prefixLen := len(amd64.Prologue()) + len(amd64.SubRspImm32(topLevelScratch))
	body := result.Code[prefixLen:]

	// jmp rel32 over the 2 inlined bytes, then the bytes themselves.
	jmp := amd64.JmpRel32(2)
	require.True(t, len(body) >= len(jmp)+2)
	assert.Equal(t, jmp, body[:len(jmp)])
	assert.Equal(t, []byte("hi"), body[len(jmp):len(jmp)+2])

	rest := body[len(jmp)+2:]
	require.True(t, len(rest) >= 7, "lea rip, %%rsi is a fixed 7 bytes")
	assert.Equal(t, byte(0x48), rest[0])
	assert.Equal(t, byte(0x8D), rest[1])
	assert.Equal(t, byte(0x35), rest[2], "ModRM selecting %%rsi as destination")

	rest = rest[7:]
	assert.Equal(t, amd64.MovImm32Rax(lang.SyscallNumbers["write"]), rest[:7])
	assert.Equal(t, amd64.MovImm32Rdi(1), rest[7:14])
	assert.Equal(t, amd64.MovImm32Rdx(2), rest[14:21])
	assert.Equal(t, amd64.Syscall(), rest[21:23])
}

func TestFunctionCallPushesArgumentsAndRestoresStackAfterReturn(t *testing.T) {
	result, err := New([]byte("fn add a b { -> a + b }\nadd(1, 2)\n")).Compile()
	require.NoError(t, err)

	prefixLen := len(amd64.Prologue()) + len(amd64.SubRspImm32(topLevelScratch))
	body := result.Code[prefixLen:]

	var want []byte
	want = append(want, amd64.MovImm32Rax(1)...)
	want = append(want, amd64.PushRax()...)
	want = append(want, amd64.MovImm32Rax(2)...)
	want = append(want, amd64.PushRax()...)
	want = append(want, amd64.CallRel32(0)...) // placeholder; patched by fixup resolution
	want = append(want, amd64.AddRspImm32(16)...)

	require.True(t, len(body) >= len(want))
	// Compare everything except the call's rel32 field, which is patched
	// to a real displacement rather than staying zero.
	callStart := len(want) - len(amd64.AddRspImm32(16)) - len(amd64.CallRel32(0))
	assert.Equal(t, want[:callStart], body[:callStart])
	assert.Equal(t, byte(0xE8), body[callStart], "call opcode byte; the rel32 field occupies the next 4 bytes")
	assert.Equal(t, want[callStart+5:], body[callStart+5:callStart+5+len(amd64.AddRspImm32(16))])
}

func TestCallToUndeclaredFunctionLeavesRel32Zero(t *testing.T) {
	result, err := New([]byte("nonexistent()\n")).Compile()
	require.NoError(t, err)

	prefixLen := len(amd64.Prologue()) + len(amd64.SubRspImm32(topLevelScratch))
	body := result.Code[prefixLen:]

	require.True(t, len(body) >= 5)
	assert.Equal(t, byte(0xE8), body[0])
	assert.Equal(t, []byte{0, 0, 0, 0}, body[1:5], "unresolved fixup left as zero")
}

func TestLoopBreakJumpsPastLoopBody(t *testing.T) {
	result, err := New([]byte("loop {\nbreak\n}\n")).Compile()
	require.NoError(t, err)

	prefixLen := len(amd64.Prologue()) + len(amd64.SubRspImm32(topLevelScratch))
	body := result.Code[prefixLen:]

	// break: jmp rel32 (patched, forward); loop footer: jmp rel32 (patched, backward).
	require.True(t, len(body) >= 10)
	assert.Equal(t, byte(0xE9), body[0], "break lowers to an unconditional jump")
	assert.Equal(t, byte(0xE9), body[5], "loop footer jumps back to the loop start")

	breakRel := int32(body[1]) | int32(body[2])<<8 | int32(body[3])<<16 | int32(body[4])<<24
	// The break jump target is the loop end, i.e. right after the footer jump (10 bytes in).
	assert.Equal(t, int32(10-(1+4)), breakRel)
}

// runCompiledSource compiles src, wraps it in an ELF64 executable, runs it,
// and returns its exit code. Skips the test on anything but linux/amd64,
// since the output is a native x86-64 Linux binary.
func runCompiledSource(t *testing.T, src string) int {
	t.Helper()
	if runtime.GOOS != "linux" || runtime.GOARCH != "amd64" {
		t.Skip("requires linux/amd64 to execute the generated machine code directly")
	}

	result, err := New([]byte(src)).Compile()
	require.NoError(t, err)

	b := elf.NewBuilder()
	b.SetCode(result.Code)
	b.SetGlobalBytes(result.GlobalBytes)
	binary := b.Build()

	path := filepath.Join(t.TempDir(), "prog")
	require.NoError(t, os.WriteFile(path, binary, 0755))

	err = exec.Command(path).Run()
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	require.ErrorAs(t, err, &exitErr)
	return exitErr.ExitCode()
}

func TestScenarioTwoExecutesAndExitsWithDifference(t *testing.T) {
	code := runCompiledSource(t, "x = 7\ny = 5\nsyscall.exit(x - y)\n")
	assert.Equal(t, 2, code)
}

func TestScenarioThreeFunctionCallReturnsComputedValue(t *testing.T) {
	code := runCompiledSource(t, "fn add a b { -> a + b }\nsyscall.exit(add(40, 2))\n")
	assert.Equal(t, 42, code)
}

func TestScenarioFourLoopBreaksAtThreshold(t *testing.T) {
	code := runCompiledSource(t, "i = 0\nloop {\ni = i + 1\nwhen i >= 5 { break }\n}\nsyscall.exit(i)\n")
	assert.Equal(t, 5, code)
}

func TestScenarioFiveGlobalSharedAcrossFunctionCalls(t *testing.T) {
	code := runCompiledSource(t, "g = 100\nfn bump { g = g + 1 }\nbump()\nbump()\nsyscall.exit(g)\n")
	assert.Equal(t, 102, code)
}

// TestFateBlockIsSkippedAndOtherwiseBlockIsUnconditional exercises the two
// defects found by hand-tracing: `fate { … }` must be parsed and discarded
// like any other named skip-block rather than falling into the on/off
// toggle with the cursor left stuck on '{', and `otherwise { … }` must have
// its body compiled and emitted unconditionally rather than silently
// dropped or line-skipped.
func TestFateBlockIsSkippedAndOtherwiseBlockIsUnconditional(t *testing.T) {
	code := runCompiledSource(t, "otherwise { x = 41 }\nfate { x = 999 }\nsyscall.exit(x)\n")
	assert.Equal(t, 41, code)
}

func TestScenarioSixUnifiedFieldReportAndExitZero(t *testing.T) {
	if runtime.GOOS != "linux" || runtime.GOARCH != "amd64" {
		t.Skip("requires linux/amd64 to execute the generated machine code directly")
	}
	result, err := New([]byte("unified { i: 0.9, e: 0.2, r: 0.5 }\nsyscall.exit(0)\n")).Compile()
	require.NoError(t, err)
	assert.Contains(t, result.Report, "i=0.90 e=0.20 r=0.50")

	b := elf.NewBuilder()
	b.SetCode(result.Code)
	b.SetGlobalBytes(result.GlobalBytes)
	path := filepath.Join(t.TempDir(), "scenario6")
	require.NoError(t, os.WriteFile(path, b.Build(), 0755))

	err = exec.Command(path).Run()
	assert.NoError(t, err, "exit 0 reports no error from exec")
}
