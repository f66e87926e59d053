package hwio

import (
	"avrsim/emu/log"
)

type MemFlags int

const (
	MemFlagReadWrite MemFlags = 0
	MemFlagReadOnly  MemFlags = (1 << iota) // writes are rejected
	MemFlagNoROLog                          // skip logging attempts to write when configured to readonly
)

// Mem is a linear memory area (SRAM, register file) that can be mapped into
// a Table. Every byte behaves as a plain stored value.
type Mem struct {
	Name    string              // name of the memory area (for debugging)
	Data    []byte              // actual memory buffer
	VSize   int                 // virtual size of the memory (mirrors Data if bigger), defaults to len(Data)
	Flags   MemFlags            // flags determining how the memory can be accessed
	WriteCb func(uint16, uint8) // optional write callback (called after the write)
}

// Reset zeroes the memory.
func (m *Mem) Reset() {
	clear(m.Data)
}

func (m *Mem) vsize() int {
	if m.VSize == 0 {
		return len(m.Data)
	}
	return m.VSize
}

// memIO adapts a Mem mapped at base into a BankIO8.
type memIO struct {
	*Mem
	base uint16
}

func (m memIO) off(addr uint16) int {
	return int(addr-m.base) % len(m.Data)
}

func (m memIO) Read8(addr uint16, _ bool) uint8 {
	return m.Data[m.off(addr)]
}

func (m memIO) Write8(addr uint16, val uint8) {
	switch {
	case m.Flags&MemFlagReadOnly == 0:
		m.Data[m.off(addr)] = val
		if m.WriteCb != nil {
			m.WriteCb(addr, val)
		}
	case m.Flags&MemFlagNoROLog == 0:
		log.ModHwIo.WarnZ("Write8 to readonly memory").
			String("name", m.Name).
			Hex16("addr", addr).
			Hex8("val", val).
			End()
	}
}
