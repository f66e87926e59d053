package hwio

import (
	"avrsim/emu/log"
)

// InvalidMem stands for an address with nothing behind it (out of range or
// reserved). Every access is reported; reads return 0.
type InvalidMem struct {
	Bus      string
	Addr     uint16
	Reserved bool
}

func (m *InvalidMem) IsInvalid() bool { return true }

func (m *InvalidMem) reason() string {
	if m.Reserved {
		return "reserved"
	}
	return "unmapped"
}

func (m *InvalidMem) Read8(addr uint16, peek bool) uint8 {
	if !peek {
		log.ModHwIo.WarnZ("invalid read access").
			String("bus", m.Bus).
			String("reason", m.reason()).
			Hex16("addr", addr).
			End()
	}
	return 0
}

func (m *InvalidMem) Write8(addr uint16, val uint8) {
	log.ModHwIo.WarnZ("invalid write access").
		String("bus", m.Bus).
		String("reason", m.reason()).
		Hex16("addr", addr).
		Hex8("val", val).
		End()
}

// NotSimulated is a register which exists on the device but is not modeled.
// Reads return 0 and writes are dropped, both with a warning.
type NotSimulated struct {
	Name    string
	Message string
}

func (r *NotSimulated) msg() string {
	if r.Message == "" {
		return "register is not simulated"
	}
	return r.Message
}

func (r *NotSimulated) Read8(addr uint16, peek bool) uint8 {
	if !peek {
		log.ModHwIo.WarnZ(r.msg()).
			String("name", r.Name).
			String("access", "read").
			Hex16("addr", addr).
			End()
	}
	return 0
}

func (r *NotSimulated) Write8(addr uint16, val uint8) {
	log.ModHwIo.WarnZ(r.msg()).
		String("name", r.Name).
		String("access", "write").
		Hex16("addr", addr).
		Hex8("val", val).
		End()
}

func (m *InvalidMem) SetBit8(addr uint16, n uint)   { m.Write8(addr, 1<<n) }
func (m *InvalidMem) ClearBit8(addr uint16, n uint) { m.Write8(addr, 0) }
