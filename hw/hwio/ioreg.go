package hwio

import (
	"github.com/pkg/errors"

	"avrsim/emu/log"
	"avrsim/hw/trace"
)

// IOReg is a register owned by a single peripheral. It holds no value: reads
// and writes are forwarded to the peripheral through the bound accessors.
// Any accessor may be nil, in which case the corresponding access is reported
// and defaulted.
type IOReg struct {
	Name string

	Get    func() uint8
	Set    func(val uint8)
	Peek   func() uint8           // side-effect free Get, defaults to Get
	GetBit func(n uint) uint8     // optional, single bit read
	SetBit func(val bool, n uint) // optional, single bit write

	tv *trace.Value
}

func (reg *IOReg) String() string {
	s := reg.Name + "{"
	if reg.Get != nil {
		s += "g"
	}
	if reg.Set != nil {
		s += "s"
	}
	if reg.GetBit != nil {
		s += "G"
	}
	if reg.SetBit != nil {
		s += "S"
	}
	return s + "}"
}

// Trace registers the register into the trace registry. IO registers have no
// undefined state, so the current value is marked as written right away.
func (reg *IOReg) Trace(r *trace.Registry) {
	reg.tv = r.Register(reg.Name, nil)
	var val uint8
	if reg.Peek != nil {
		val = reg.Peek()
	} else if reg.Get != nil {
		val = reg.Get()
	}
	reg.tv.SetWritten(uint32(val))
}

// ReleaseTrace hides the register from its trace registry.
func (reg *IOReg) ReleaseTrace(r *trace.Registry) {
	if reg.tv != nil {
		r.Unregister(reg.tv)
		reg.tv = nil
	}
}

// HardwareChange reflects a change of the register value made by the
// hardware itself (not by a bus access).
func (reg *IOReg) HardwareChange(val uint8) {
	reg.tv.Change(uint32(val))
}

// HardwareChangeMask reflects a change of the bits in mask.
func (reg *IOReg) HardwareChangeMask(val, mask uint8) {
	reg.tv.ChangeMask(uint32(val), uint32(mask))
}

func (reg *IOReg) Read8(addr uint16, peek bool) uint8 {
	if peek {
		switch {
		case reg.Peek != nil:
			return reg.Peek()
		case reg.Get != nil:
			return reg.Get()
		}
		return 0
	}

	if reg.Get == nil {
		log.ModHwIo.WarnZ("reading of register is not supported").
			String("name", reg.Name).
			Hex16("addr", addr).
			End()
		return 0
	}
	val := reg.Get()
	reg.tv.Access(trace.Read, uint32(val))
	return val
}

func (reg *IOReg) Write8(addr uint16, val uint8) {
	reg.tv.Access(trace.Write, uint32(val))
	if reg.Set == nil {
		log.ModHwIo.WarnZ("writing of register is not supported").
			String("name", reg.Name).
			Hex16("addr", addr).
			Hex8("val", val).
			End()
		return
	}
	reg.Set(val)
}

func (reg *IOReg) setBit(addr uint16, n uint, set bool) {
	if reg.SetBit != nil {
		reg.SetBit(set, n)
		return
	}
	if reg.Get == nil || reg.Set == nil {
		log.ModHwIo.WarnZ("bitwise access of register is not supported").
			String("name", reg.Name).
			Hex16("addr", addr).
			Uint("bit", n).
			End()
		return
	}
	val := reg.Get()
	SetBitTo8(&val, n, set)
	reg.Set(val)
}

func (reg *IOReg) SetBit8(addr uint16, n uint) {
	reg.setBit(addr, n, true)
}

func (reg *IOReg) ClearBit8(addr uint16, n uint) {
	reg.setBit(addr, n, false)
}

func (reg *IOReg) GetBit8(addr uint16, n uint) bool {
	if reg.GetBit != nil {
		return reg.GetBit(n) != 0
	}
	return GetBit8(reg.Read8(addr, false), n)
}

// checkBound returns an error if reg has no accessor at all, which is a
// device assembly mistake.
func (reg *IOReg) checkBound() error {
	if reg.Get == nil && reg.Set == nil && reg.SetBit == nil {
		return errors.Errorf("register %q has no accessor", reg.Name)
	}
	return nil
}
