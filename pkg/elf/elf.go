// Package elf provides ELF64 binary format building utilities.
// This package has no dependencies on the compiler internals and can be used
// standalone for generating ELF executables.
package elf

import "encoding/binary"

// ELF64 constants
const (
	// ELF identification
	ELFMAG0       = 0x7f
	ELFMAG1       = 'E'
	ELFMAG2       = 'L'
	ELFMAG3       = 'F'
	ELFCLASS64    = 2
	ELFDATA2LSB   = 1 // Little endian
	EV_CURRENT    = 1
	ELFOSABI_NONE = 0

	// ELF types
	ET_EXEC = 2 // Executable file

	// Machine types
	EM_X86_64 = 0x3E

	// Program header types
	PT_LOAD = 1

	// Program header flags
	PF_X = 0x1 // Execute
	PF_W = 0x2 // Write
	PF_R = 0x4 // Read

	// Sizes
	ELF64HeaderSize = 64
	ELF64PhdrSize   = 56

	// EntryOffset is the fixed file offset (and offset from Base) at which
	// the emitted code begins, immediately following the header and the
	// single program header.
	EntryOffset = ELF64HeaderSize + ELF64PhdrSize // 120

	// Base is the virtual address the single loadable segment is mapped at.
	Base = 0x400000

	// GlobalsBase is the virtual address globals are laid out from; it
	// falls inside the segment's memsz but outside its filesz, so the
	// kernel zero-fills the region at load time.
	GlobalsBase = 0x600000

	// globalsSlack is added to memsz beyond the globals region so that a
	// compiler's scratch/guard space for the global area has room to grow
	// without touching unmapped memory.
	globalsSlack = 0x10000
)

// Header64 represents the ELF64 file header.
type Header64 struct {
	Ident     [16]byte
	Type      uint16
	Machine   uint16
	Version   uint32
	Entry     uint64
	PhOff     uint64
	ShOff     uint64
	Flags     uint32
	EhSize    uint16
	PhEntSize uint16
	PhNum     uint16
	ShEntSize uint16
	ShNum     uint16
	ShStrNdx  uint16
}

// Phdr64 represents an ELF64 program header.
type Phdr64 struct {
	Type   uint32
	Flags  uint32
	Off    uint64
	VAddr  uint64
	PAddr  uint64
	FileSz uint64
	MemSz  uint64
	Align  uint64
}

// Builder constructs the single-segment ELF64 executable image described in
// the layout table: a 64-byte header, one 56-byte program header, then
// code+data starting at offset 120. There is no page alignment and no
// second segment — globals are addressed above GlobalsBase purely via the
// first segment's oversized memsz, never backed by their own Phdr.
type Builder struct {
	code        []byte
	globalBytes uint64
}

// NewBuilder creates a new single-segment ELF64 builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// SetCode sets the code+data bytes to be placed at file offset 120.
func (b *Builder) SetCode(code []byte) {
	b.code = code
}

// SetGlobalBytes records how many bytes of global storage the program uses,
// so memsz can be sized to cover them (the kernel zero-fills this region
// since it lies outside filesz).
func (b *Builder) SetGlobalBytes(n uint64) {
	b.globalBytes = n
}

// Entry returns the fixed entry point address: Base + EntryOffset.
func (b *Builder) Entry() uint64 {
	return Base + EntryOffset
}

// Build produces the final ELF binary per the single-segment layout table:
// header at 0, one PT_LOAD Phdr at 64, code+data at 120.
func (b *Builder) Build() []byte {
	filesz := uint64(EntryOffset + len(b.code))

	globalSpan := b.globalBytes
	if globalSpan < 0x1000 {
		globalSpan = 0x1000
	}
	memsz := (GlobalsBase - Base) + globalSpan + globalsSlack

	out := make([]byte, 0, filesz)
	out = b.writeHeader(out)

	phdr := Phdr64{
		Type:   PT_LOAD,
		Flags:  PF_R | PF_W | PF_X,
		Off:    0,
		VAddr:  Base,
		PAddr:  Base,
		FileSz: filesz,
		MemSz:  memsz,
		Align:  0x1000,
	}
	out = writePhdr(out, &phdr)

	out = append(out, b.code...)
	return out
}

// writeHeader writes the ELF64 header.
func (b *Builder) writeHeader(out []byte) []byte {
	hdr := Header64{
		Type:      ET_EXEC,
		Machine:   EM_X86_64,
		Version:   EV_CURRENT,
		Entry:     b.Entry(),
		PhOff:     ELF64HeaderSize,
		ShOff:     0,
		Flags:     0,
		EhSize:    ELF64HeaderSize,
		PhEntSize: ELF64PhdrSize,
		PhNum:     1,
		ShEntSize: 0,
		ShNum:     0,
		ShStrNdx:  0,
	}

	hdr.Ident[0] = ELFMAG0
	hdr.Ident[1] = ELFMAG1
	hdr.Ident[2] = ELFMAG2
	hdr.Ident[3] = ELFMAG3
	hdr.Ident[4] = ELFCLASS64
	hdr.Ident[5] = ELFDATA2LSB
	hdr.Ident[6] = EV_CURRENT
	hdr.Ident[7] = ELFOSABI_NONE
	// Ident[8..15] left zero (padding)

	out = append(out, hdr.Ident[:]...)
	out = appendLE16(out, hdr.Type)
	out = appendLE16(out, hdr.Machine)
	out = appendLE32(out, hdr.Version)
	out = appendLE64(out, hdr.Entry)
	out = appendLE64(out, hdr.PhOff)
	out = appendLE64(out, hdr.ShOff)
	out = appendLE32(out, hdr.Flags)
	out = appendLE16(out, hdr.EhSize)
	out = appendLE16(out, hdr.PhEntSize)
	out = appendLE16(out, hdr.PhNum)
	out = appendLE16(out, hdr.ShEntSize)
	out = appendLE16(out, hdr.ShNum)
	out = appendLE16(out, hdr.ShStrNdx)

	return out
}

func writePhdr(out []byte, phdr *Phdr64) []byte {
	out = appendLE32(out, phdr.Type)
	out = appendLE32(out, phdr.Flags)
	out = appendLE64(out, phdr.Off)
	out = appendLE64(out, phdr.VAddr)
	out = appendLE64(out, phdr.PAddr)
	out = appendLE64(out, phdr.FileSz)
	out = appendLE64(out, phdr.MemSz)
	out = appendLE64(out, phdr.Align)
	return out
}

// Little-endian append helpers
func appendLE16(out []byte, v uint16) []byte {
	var buf [2]byte
	binary.LittleEndian.PutUint16(buf[:], v)
	return append(out, buf[:]...)
}

func appendLE32(out []byte, v uint32) []byte {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	return append(out, buf[:]...)
}

func appendLE64(out []byte, v uint64) []byte {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	return append(out, buf[:]...)
}
