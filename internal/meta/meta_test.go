package meta

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClamp01BoundsToUnitInterval(t *testing.T) {
	assert.Equal(t, 0.0, clamp01(-5))
	assert.Equal(t, 1.0, clamp01(5))
	assert.Equal(t, 0.5, clamp01(0.5))
}

func TestSetUnifiedClampsAllThreeFields(t *testing.T) {
	r := NewRecord()
	r.SetUnified(-1, 2, 0.3)
	assert.Equal(t, UnifiedField{I: 0, E: 1, R: 0.3}, r.Unified)
}

func TestSetUnifiedIsIdempotent(t *testing.T) {
	r := NewRecord()
	r.SetUnified(0.2, 0.4, 0.6)
	first := r.Unified
	r.SetUnified(0.2, 0.4, 0.6)
	assert.Equal(t, first, r.Unified)
}

func TestSetFateTogglesOnOff(t *testing.T) {
	r := NewRecord()
	assert.False(t, r.FateOn)
	r.SetFate(true)
	assert.True(t, r.FateOn)
	r.SetFate(false)
	assert.False(t, r.FateOn)
}

func TestSetLimitComputesReciprocal(t *testing.T) {
	r := NewRecord()
	r.SetLimit(4)
	assert.Equal(t, 0.25, r.FateThreshold)
}

func TestSetLimitClampsNonPositiveToOne(t *testing.T) {
	r := NewRecord()
	r.SetLimit(0)
	assert.Equal(t, 1.0, r.FateThreshold)
	r.SetLimit(-10)
	assert.Equal(t, 1.0, r.FateThreshold)
}

func TestTouchTileAddsNewEntryWithOneUse(t *testing.T) {
	r := NewRecord()
	r.TouchTile("a")
	assert.Equal(t, []Tile{{Name: "a", Uses: 1}}, r.Tiles)
}

func TestTouchTileIncrementsExistingEntry(t *testing.T) {
	r := NewRecord()
	r.TouchTile("a")
	r.TouchTile("b")
	r.TouchTile("a")
	assert.Equal(t, 2, r.Tiles[0].Uses)
	assert.Equal(t, 1, r.Tiles[1].Uses)
	assert.Len(t, r.Tiles, 2)
}

func TestTouchTileStopsGrowingAtPoolCapacity(t *testing.T) {
	r := NewRecord()
	for i := 0; i < maxTiles+5; i++ {
		r.TouchTile(string(rune('a' + i)))
	}
	assert.Len(t, r.Tiles, maxTiles)
}

func TestProbeFlagsStartFalseAndLatch(t *testing.T) {
	r := NewRecord()
	assert.False(t, r.PlatformProbed)
	assert.False(t, r.BridgeRead)
	assert.False(t, r.CompatProbed)

	r.ProbePlatform()
	r.ReadBridge()
	r.ProbeCompat()

	assert.True(t, r.PlatformProbed)
	assert.True(t, r.BridgeRead)
	assert.True(t, r.CompatProbed)
}

func TestReportFormatsAllFields(t *testing.T) {
	r := NewRecord()
	r.SetUnified(0.5, 0.25, 0.75)
	r.SetFate(true)
	r.TouchTile("x")

	got := r.Report(Stats{CodeSize: 120, VariableCount: 3, FunctionCount: 1})
	want := "code=120 vars=3 funcs=1 i=0.50 e=0.25 r=0.75 tiles=1 fate=on platform=generic"
	assert.Equal(t, want, got)
}
