package elf

import (
	"bytes"
	dbgelf "debug/elf"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildFixture(t *testing.T, code []byte, globalBytes uint64) []byte {
	t.Helper()
	b := NewBuilder()
	b.SetCode(code)
	b.SetGlobalBytes(globalBytes)
	return b.Build()
}

func TestELFMagicAndClass(t *testing.T) {
	data := buildFixture(t, []byte{0x0F, 0x05}, 0)
	assert.Equal(t, []byte{ELFMAG0, ELFMAG1, ELFMAG2, ELFMAG3}, data[:4])
	assert.Equal(t, byte(ELFCLASS64), data[4])
	assert.Equal(t, byte(ELFDATA2LSB), data[5])
}

func TestEntryPointIsBasePlus120(t *testing.T) {
	b := NewBuilder()
	b.SetCode([]byte{0x90})
	assert.Equal(t, uint64(Base+120), b.Entry())
}

func TestSingleProgramHeaderLoadsWholeFileAtBase(t *testing.T) {
	code := []byte{0x90, 0x90, 0x90}
	data := buildFixture(t, code, 0)

	f, err := dbgelf.NewFile(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	require.Len(t, f.Progs, 1)
	p := f.Progs[0]
	assert.Equal(t, dbgelf.PT_LOAD, p.Type)
	assert.Equal(t, uint64(Base), p.Vaddr)
	assert.Equal(t, uint64(EntryOffset+len(code)), p.Filesz)
	assert.Equal(t, uint64(0), p.Off)
}

func TestMemszCoversGlobalsRegionPlusSlack(t *testing.T) {
	data := buildFixture(t, []byte{0x90}, 800)

	f, err := dbgelf.NewFile(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	p := f.Progs[0]
	wantMemsz := uint64(GlobalsBase-Base) + 0x1000 + globalsSlack // globalBytes clamped up to one page
	assert.Equal(t, wantMemsz, p.Memsz)
}

func TestMemszGrowsWithLargeGlobalRegion(t *testing.T) {
	data := buildFixture(t, []byte{0x90}, 0x20000)

	f, err := dbgelf.NewFile(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	p := f.Progs[0]
	wantMemsz := uint64(GlobalsBase-Base) + 0x20000 + globalsSlack
	assert.Equal(t, wantMemsz, p.Memsz)
}

func TestCodeStartsAtOffset120(t *testing.T) {
	code := []byte{0xDE, 0xAD, 0xBE, 0xEF}
	data := buildFixture(t, code, 0)
	assert.Equal(t, code, data[EntryOffset:EntryOffset+len(code)])
}

func TestParsesAsValidX86_64Executable(t *testing.T) {
	data := buildFixture(t, []byte{0x0F, 0x05}, 0)

	f, err := dbgelf.NewFile(bytes.NewReader(data))
	require.NoError(t, err, "must parse as valid ELF")
	defer f.Close()

	assert.Equal(t, dbgelf.ELFCLASS64, f.Class)
	assert.Equal(t, dbgelf.EM_X86_64, f.Machine)
	assert.Equal(t, dbgelf.ET_EXEC, f.Type)
}

func TestNoSectionHeaders(t *testing.T) {
	data := buildFixture(t, []byte{0x90}, 0)
	phnum := le16(data[56:58])
	shnum := le16(data[60:62])
	assert.Equal(t, uint16(1), phnum)
	assert.Equal(t, uint16(0), shnum)
}

func le16(b []byte) uint16 {
	return uint16(b[0]) | uint16(b[1])<<8
}
