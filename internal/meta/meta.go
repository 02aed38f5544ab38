// Package meta holds the Unified Field, Fate, Tile, Platform, and Bridge
// records: metadata the parser updates from dedicated source constructs
// but which never influences emitted machine code. These are collapsed
// into a single configuration record, mutated by the parser and read only
// by the final report printer — the same "collect stats, print stats"
// shape as a text accumulator that only ever grows and gets dumped once
// at the end, just for numbers instead of assembly text.
package meta

import "fmt"

// UnifiedField is a triple of floating-point parameters carried through
// the compilation as metadata. Each field is clamped to [0,1] at set time.
type UnifiedField struct {
	I, E, R float64
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Tile is a single named byte range tracked by the Tile pool.
type Tile struct {
	Name string
	Uses int
}

// maxTiles bounds the Tile pool array, matching the fixed-capacity arrays
// used everywhere else in this compiler's bookkeeping.
const maxTiles = 16

// Record aggregates all of the auxiliary metadata for one compilation.
type Record struct {
	Unified UnifiedField

	FateOn        bool
	FateThreshold float64 // 1/N, set by `limit <N>`

	Tiles []Tile

	PlatformProbed bool
	PlatformID     string

	BridgeRead   bool
	CompatProbed bool
}

// NewRecord constructs an empty metadata record.
func NewRecord() *Record {
	return &Record{PlatformID: "generic"}
}

// SetUnified applies `unified { i:.., e:.., r:.. }`, clamping each field.
// Applying the same values twice leaves the record unchanged: clamping is
// a pure function of its input, so it's idempotent by construction.
func (r *Record) SetUnified(i, e, ev float64) {
	r.Unified.I = clamp01(i)
	r.Unified.E = clamp01(e)
	r.Unified.R = clamp01(ev)
}

// SetFate toggles the Fate boolean, for `fate on` / `fate off`.
func (r *Record) SetFate(on bool) {
	r.FateOn = on
}

// SetLimit sets the Fate marginal threshold to 1/n, for `limit <N>`. N<=0
// is clamped to 1 to avoid division by zero; this is metadata only and
// never reaches emitted code.
func (r *Record) SetLimit(n int) {
	if n <= 0 {
		n = 1
	}
	r.FateThreshold = 1.0 / float64(n)
}

// TouchTile records a use of the named tile, appending a new entry if the
// pool has room and the name hasn't been seen yet.
func (r *Record) TouchTile(name string) {
	for i := range r.Tiles {
		if r.Tiles[i].Name == name {
			r.Tiles[i].Uses++
			return
		}
	}
	if len(r.Tiles) >= maxTiles {
		return
	}
	r.Tiles = append(r.Tiles, Tile{Name: name, Uses: 1})
}

// ProbePlatform marks `platform.probe` as having been seen.
func (r *Record) ProbePlatform() {
	r.PlatformProbed = true
}

// ReadBridge marks `bridge.read` as having been seen.
func (r *Record) ReadBridge() {
	r.BridgeRead = true
}

// ProbeCompat marks `compat.probe` as having been seen.
func (r *Record) ProbeCompat() {
	r.CompatProbed = true
}

// Stats is the subset of compilation statistics the report line quotes
// alongside the metadata record.
type Stats struct {
	CodeSize      int
	VariableCount int
	FunctionCount int
}

// Report formats the one-line statistical summary the compiler prints
// on success: code size, variable count, function count, Unified Field
// parameters, Tile pool usage, Fate mode, probed platform id.
func (r *Record) Report(s Stats) string {
	fateMode := "off"
	if r.FateOn {
		fateMode = "on"
	}
	return fmt.Sprintf(
		"code=%d vars=%d funcs=%d i=%.2f e=%.2f r=%.2f tiles=%d fate=%s platform=%s",
		s.CodeSize, s.VariableCount, s.FunctionCount,
		r.Unified.I, r.Unified.E, r.Unified.R,
		len(r.Tiles), fateMode, r.PlatformID,
	)
}
