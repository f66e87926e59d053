package hwio

import (
	"fmt"

	"avrsim/emu/log"
)

// Table maps the addresses of a device data space to memory cells. Every
// address that isn't mapped resolves to an InvalidMem.
type Table struct {
	Name string

	cells    []BankIO8
	reserved Bitset
}

// NewTable creates a table covering addresses [0, size).
func NewTable(name string, size int) *Table {
	if size <= 0 || size > NumBits {
		panic(fmt.Sprintf("hwio: invalid table size %d", size))
	}
	t := &Table{
		Name:  name,
		cells: make([]BankIO8, size),
	}
	t.Reset()
	return t
}

// Reset unmaps every address.
func (t *Table) Reset() {
	for i := range t.cells {
		t.cells[i] = nil
	}
	t.reserved.Reset()
}

// Size returns the number of addresses covered by the table.
func (t *Table) Size() int { return len(t.cells) }

// Cell returns the cell mapped at addr. It never returns nil.
func (t *Table) Cell(addr uint16) BankIO8 {
	if int(addr) < len(t.cells) && t.cells[addr] != nil {
		return t.cells[addr]
	}
	return &InvalidMem{Bus: t.Name, Addr: addr, Reserved: t.reserved.Test(uint(addr))}
}

// Mapped reports whether a cell is mapped at addr.
func (t *Table) Mapped(addr uint16) bool {
	return int(addr) < len(t.cells) && t.cells[addr] != nil
}

// Map maps io at addr. Mapping an already mapped address or an address out
// of the table range is a device assembly error, and panics.
func (t *Table) Map(addr uint16, io BankIO8) {
	if int(addr) >= len(t.cells) {
		panic(fmt.Errorf("%s: address %04x out of range", t.Name, addr))
	}
	if t.cells[addr] != nil {
		panic(fmt.Errorf("%s: address %04x already mapped", t.Name, addr))
	}
	t.cells[addr] = io
	t.reserved.Clear(uint(addr))
}

// MapCell maps any cell at addr.
func (t *Table) MapCell(addr uint16, io BankIO8) {
	log.ModHwIo.DebugZ("mapping cell").
		Hex16("addr", addr).
		String("bus", t.Name).
		End()
	t.Map(addr, io)
}

func (t *Table) MapReg8(addr uint16, reg *Reg8) {
	log.ModHwIo.DebugZ("mapping reg8").
		Hex16("addr", addr).
		String("name", reg.Name).
		String("bus", t.Name).
		End()
	t.Map(addr, reg)
}

func (t *Table) MapIOReg(addr uint16, reg *IOReg) {
	if err := reg.checkBound(); err != nil {
		panic(err)
	}
	log.ModHwIo.DebugZ("mapping ioreg").
		Hex16("addr", addr).
		String("name", reg.Name).
		String("bus", t.Name).
		End()
	t.Map(addr, reg)
}

func (t *Table) MapSpecial(addr uint16, reg *SpecialReg) {
	log.ModHwIo.DebugZ("mapping special reg").
		Hex16("addr", addr).
		String("name", reg.Name).
		String("bus", t.Name).
		End()
	t.Map(addr, reg)
}

func (t *Table) MapMem(addr uint16, mem *Mem) {
	log.ModHwIo.DebugZ("mapping mem").
		Hex16("addr", addr).
		Hex16("size", uint16(mem.vsize())).
		String("area", mem.Name).
		String("bus", t.Name).
		End()

	if len(mem.Data) == 0 {
		panic(fmt.Errorf("%s: empty memory area %q", t.Name, mem.Name))
	}
	io := memIO{Mem: mem, base: addr}
	for i := range mem.vsize() {
		t.Map(addr+uint16(i), io)
	}
}

// Reserve marks [begin, end] as reserved addresses. Reserved addresses behave
// like unmapped ones, they're only reported differently.
func (t *Table) Reserve(begin, end uint16) {
	for addr := int(begin); addr <= int(end); addr++ {
		if !t.Mapped(uint16(addr)) {
			t.reserved.Set(uint(addr))
		}
	}
}

// Unmap unmaps all addresses in [begin, end].
func (t *Table) Unmap(begin, end uint16) {
	for addr := int(begin); addr <= int(end) && addr < len(t.cells); addr++ {
		t.cells[addr] = nil
	}
}

// Map a register bank (that is, a structure containing multiple Reg8, IOReg
// or SpecialReg fields). For this function to work, registers must have a
// struct tag "hwio", containing the following fields:
//
//	offset=0x12     Byte-offset within the register bank at which this
//	                register is mapped. There is no default value: if this
//	                option is missing, the register is assumed not to be
//	                part of the bank, and is ignored by this call.
//
//	bank=NN         Ordinal bank number (if not specified, default to zero).
//	                This option allows for a structure to expose multiple
//	                banks, as regs can be grouped by bank by specified the
//	                bank number.
func (t *Table) MapBank(addr uint16, bank any, bankNum int) {
	regs, err := bankGetRegs(bank, bankNum)
	if err != nil {
		panic(err)
	}

	for _, reg := range regs {
		switch r := reg.regPtr.(type) {
		case *Mem:
			t.MapMem(addr+reg.offset, r)
		case *Reg8:
			t.MapReg8(addr+reg.offset, r)
		case *IOReg:
			t.MapIOReg(addr+reg.offset, r)
		case *SpecialReg:
			t.MapSpecial(addr+reg.offset, r)
		default:
			panic(fmt.Errorf("invalid reg type: %T", r))
		}
	}
}

// Read8 forwards the read to the cell mapped at addr.
func (t *Table) Read8(addr uint16) uint8 {
	return t.Cell(addr).Read8(addr, false)
}

// Peek8 reads the cell at addr without side effects.
func (t *Table) Peek8(addr uint16) uint8 {
	return t.Cell(addr).Read8(addr, true)
}

func (t *Table) Write8(addr uint16, val uint8) {
	t.Cell(addr).Write8(addr, val)
}

// SetBit8 sets bit n at addr, using the cell bit accessors if it has some.
func (t *Table) SetBit8(addr uint16, n uint) {
	SetBit8(t.Cell(addr), addr, n)
}

// ClearBit8 clears bit n at addr, using the cell bit accessors if it has some.
func (t *Table) ClearBit8(addr uint16, n uint) {
	ClearBit8(t.Cell(addr), addr, n)
}

// GetBit8 reports whether bit n at addr is set.
func (t *Table) GetBit8(addr uint16, n uint) bool {
	return GetBit8Of(t.Cell(addr), addr, n)
}

// Read16 reads the 16-bit register at addr (low byte) and addr+1, low byte
// first, as the CPU does: reading the low byte of ADC or timer registers
// latches the high byte.
func (t *Table) Read16(addr uint16) uint16 {
	lo := t.Read8(addr)
	hi := t.Read8(addr + 1)
	return uint16(hi)<<8 | uint16(lo)
}

// Write16 writes the 16-bit register at addr, high byte first.
func (t *Table) Write16(addr uint16, val uint16) {
	t.Write8(addr+1, uint8(val>>8))
	t.Write8(addr, uint8(val))
}
