package hwio

import (
	"avrsim/hw/trace"
)

// SpecialRegClient is implemented by the hardware units sharing a
// SpecialReg. Each client is informed of every access and may adjust the
// value; a client not interested in a given access simply returns its input.
type SpecialRegClient interface {
	// SetFromReg is called on a write with the value written to the
	// register, as adjusted by the previous clients. It returns the value
	// to pass on to the next client.
	SetFromReg(reg *SpecialReg, val uint8) uint8

	// GetFromClient is called on a read with the stored value, as adjusted
	// by the previous clients. It returns the value to pass on to the next
	// client.
	GetFromClient(reg *SpecialReg, val uint8) uint8
}

// SpecialReg is a register holding configuration bits for more than one
// hardware unit. Clients are called in registration order, on writes as well
// as on reads.
type SpecialReg struct {
	Name string

	value   uint8
	clients []SpecialRegClient
	tv      *trace.Value
}

// Connect registers a client. Registration order is part of the device
// assembly: the first registered client sees accesses first.
func (reg *SpecialReg) Connect(c SpecialRegClient) {
	reg.clients = append(reg.clients, c)
}

func (reg *SpecialReg) Trace(r *trace.Registry) {
	reg.tv = r.Register(reg.Name, nil)
	reg.tv.SetWritten(uint32(reg.value))
}

// Value returns the stored value, without involving clients.
func (reg *SpecialReg) Value() uint8 { return reg.value }

func (reg *SpecialReg) Reset() { reg.ResetTo(0) }

func (reg *SpecialReg) ResetTo(val uint8) {
	reg.value = val
	reg.tv.SetWritten(uint32(val))
}

// HardwareChange reflects a change made by the hardware on the register
// bits (for example a self-clearing bit).
func (reg *SpecialReg) HardwareChange(val uint8) {
	reg.value = val
	reg.tv.Change(uint32(val))
}

// HardwareChangeMask is like HardwareChange, for the bits in mask only.
func (reg *SpecialReg) HardwareChangeMask(val, mask uint8) {
	reg.HardwareChange(reg.value&^mask | val&mask)
}

func (reg *SpecialReg) Write8(addr uint16, val uint8) {
	reg.tv.Access(trace.Write, uint32(val))
	for _, c := range reg.clients {
		val = c.SetFromReg(reg, val)
	}
	reg.value = val
	reg.tv.Change(uint32(val))
}

func (reg *SpecialReg) Read8(addr uint16, peek bool) uint8 {
	val := reg.value
	for _, c := range reg.clients {
		val = c.GetFromClient(reg, val)
	}
	if !peek {
		reg.tv.Access(trace.Read, uint32(val))
	}
	return val
}
