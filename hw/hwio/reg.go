package hwio

import (
	"fmt"

	"avrsim/emu/log"
	"avrsim/hw/trace"
)

type RWFlags uint8

const (
	ReadWriteFlag RWFlags = 0
	ReadOnlyFlag  RWFlags = (1 << iota)
	WriteOnlyFlag
)

// Reg8 is a register holding its own value, unrelated to any peripheral
// state (general purpose I/O registers), with optional hooks.
type Reg8 struct {
	Name       string
	Value      uint8
	RoMask     uint8
	ResetValue uint8

	Flags   RWFlags
	ReadCb  func(val uint8) uint8
	PeekCb  func(val uint8) uint8
	WriteCb func(old uint8, val uint8)

	tv *trace.Value
}

func (reg Reg8) String() string {
	s := fmt.Sprintf("%s{%02x", reg.Name, reg.Value)
	if reg.ReadCb != nil {
		s += ",r!"
	}
	if reg.PeekCb != nil {
		s += ",p!"
	}
	if reg.WriteCb != nil {
		s += ",w!"
	}
	return s + "}"
}

// Trace registers the register value into the trace registry.
func (reg *Reg8) Trace(r *trace.Registry) {
	reg.tv = r.Register(reg.Name, nil)
	reg.tv.SetWritten(uint32(reg.Value))
}

func (reg *Reg8) Reset() {
	reg.Value = reg.ResetValue
	reg.tv.Change(uint32(reg.Value))
}

func (reg *Reg8) write(val uint8) {
	old := reg.Value
	reg.Value = (reg.Value & reg.RoMask) | (val &^ reg.RoMask)
	reg.tv.Change(uint32(reg.Value))
	if reg.WriteCb != nil {
		reg.WriteCb(old, reg.Value)
	}
}

func (reg *Reg8) Write8(addr uint16, val uint8) {
	if reg.Flags&ReadOnlyFlag != 0 {
		log.ModHwIo.WarnZ("invalid Write8 to readonly reg").
			String("name", reg.Name).
			Hex16("addr", addr).
			Hex8("val", val).
			End()
		return
	}
	reg.write(val)
}

func (reg *Reg8) Read8(addr uint16, peek bool) uint8 {
	if peek {
		if reg.PeekCb != nil {
			return reg.PeekCb(reg.Value)
		}
		return reg.Value
	}
	if reg.Flags&WriteOnlyFlag != 0 {
		log.ModHwIo.WarnZ("invalid Read8 from writeonly reg").
			String("name", reg.Name).
			Hex16("addr", addr).
			End()
		return 0
	}
	if reg.ReadCb != nil {
		return reg.ReadCb(reg.Value)
	}
	return reg.Value
}
