package symtab

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddLocalFrameOffsetsGoNegativeInStepsOfEight(t *testing.T) {
	tab := NewTable()
	first := tab.AddLocal("a")
	second := tab.AddLocal("b")
	third := tab.AddLocal("c")

	require.NotNil(t, first)
	require.NotNil(t, second)
	require.NotNil(t, third)
	assert.Equal(t, int32(-8), first.Offset)
	assert.Equal(t, int32(-16), second.Offset)
	assert.Equal(t, int32(-24), third.Offset)
}

func TestAddParamOffsetsCountDownFromSixteenPlusEight(t *testing.T) {
	tab := NewTable()
	// Three parameters declared in order: p, q, r.
	p := tab.AddParam("p", 0, 3)
	q := tab.AddParam("q", 1, 3)
	r := tab.AddParam("r", 2, 3)

	// k-th (1-indexed) parameter of p params sits at 16 + 8*(p-k):
	// p=1st -> 16+8*2=32, q=2nd -> 16+8*1=24, r=3rd -> 16+8*0=16.
	assert.Equal(t, int32(32), p.Offset)
	assert.Equal(t, int32(24), q.Offset)
	assert.Equal(t, int32(16), r.Offset)
}

func TestAddGlobalAssignsSequentialAddressesFromGlobalBase(t *testing.T) {
	tab := NewTable()
	g0 := tab.AddGlobal("g")
	g1 := tab.AddGlobal("h")

	assert.Equal(t, uint64(GlobalBase), g0.Address)
	assert.Equal(t, uint64(GlobalBase+8), g1.Address)
}

func TestAddGlobalReusesExistingDeclaration(t *testing.T) {
	tab := NewTable()
	first := tab.AddGlobal("g")
	second := tab.AddGlobal("g")
	assert.Equal(t, first.Address, second.Address)
	assert.Equal(t, 1, tab.GlobalCount())
}

func TestLookupFindsMostRecentDeclaration(t *testing.T) {
	tab := NewTable()
	tab.AddGlobal("x")
	local := tab.AddLocal("x")

	found := tab.Lookup("x")
	require.NotNil(t, found)
	assert.Equal(t, ScopeLocal, found.Scope)
	assert.Equal(t, local.Offset, found.Offset)
}

func TestLookupUndeclaredReturnsNil(t *testing.T) {
	tab := NewTable()
	assert.Nil(t, tab.Lookup("nope"))
}

func TestEnterExitFunctionRestoresFrameAndDropsLocals(t *testing.T) {
	tab := NewTable()
	tab.AddGlobal("g")

	saved := tab.EnterFunction()
	tab.AddLocal("a")
	tab.AddLocal("b")
	assert.Equal(t, int32(16), tab.FrameSize())

	tab.ExitFunction(saved)
	assert.Equal(t, int32(0), tab.FrameSize())
	assert.Nil(t, tab.Lookup("a"))
	assert.NotNil(t, tab.Lookup("g"), "globals survive function exit")
}

func TestDeclareFunctionFirstNameWinsAtLookup(t *testing.T) {
	tab := NewTable()
	tab.DeclareFunction(Function{Name: "f", BodyStart: 10, BodyEnd: 20})
	tab.DeclareFunction(Function{Name: "f", BodyStart: 30, BodyEnd: 40})

	fn, ok := tab.FindFunction("f")
	require.True(t, ok)
	assert.Equal(t, 10, fn.BodyStart)
	assert.Len(t, tab.Functions(), 2, "both records are retained for emission order")
}

func TestResetFunctionsClearsArrayAndIndex(t *testing.T) {
	tab := NewTable()
	tab.DeclareFunction(Function{Name: "f"})
	tab.ResetFunctions()

	assert.Empty(t, tab.Functions())
	_, ok := tab.FindFunction("f")
	assert.False(t, ok)
}

func TestFixupsRecordOffsetAndLabel(t *testing.T) {
	tab := NewTable()
	tab.AddFixup(4, "loop_start")
	tab.AddFixup(12, "loop_end")

	fixups := tab.Fixups()
	require.Len(t, fixups, 2)
	assert.Equal(t, Fixup{Offset: 4, Label: "loop_start"}, fixups[0])
}

func TestPlaceLabelOverwritesOnDuplicate(t *testing.T) {
	tab := NewTable()
	tab.PlaceLabel("f", 10)
	tab.PlaceLabel("f", 50)

	off, ok := tab.LabelOffset("f")
	require.True(t, ok)
	assert.Equal(t, 50, off)
}

func TestLoopStackTracksInnermostFrame(t *testing.T) {
	tab := NewTable()
	_, _, ok := tab.InLoop()
	assert.False(t, ok)

	tab.PushLoop("outer_start", "outer_end")
	tab.PushLoop("inner_start", "inner_end")

	start, end, ok := tab.InLoop()
	require.True(t, ok)
	assert.Equal(t, "inner_start", start)
	assert.Equal(t, "inner_end", end)

	tab.PopLoop()
	start, end, ok = tab.InLoop()
	require.True(t, ok)
	assert.Equal(t, "outer_start", start)
	assert.Equal(t, "outer_end", end)
}

func TestGlobalBytesIsEightTimesGlobalCount(t *testing.T) {
	tab := NewTable()
	tab.AddGlobal("a")
	tab.AddGlobal("b")
	tab.AddGlobal("c")
	assert.Equal(t, uint64(24), tab.GlobalBytes())
}

func TestNextWhenAndLoopIDsAreMonotonicAndIndependent(t *testing.T) {
	tab := NewTable()
	assert.Equal(t, 0, tab.NextWhenID())
	assert.Equal(t, 1, tab.NextWhenID())
	assert.Equal(t, 0, tab.NextLoopID())
	assert.Equal(t, 2, tab.NextWhenID())
}
