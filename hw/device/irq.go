package device

import (
	"math/bits"

	"avrsim/emu/log"
	"avrsim/hw/hwdefs"
)

// IRQs records the pending interrupt vectors of a device. Executing
// interrupts is left to the CPU; it acknowledges a vector with Acknowledge.
type IRQs struct {
	n        uint
	pending  uint64
	clearers map[uint]hwdefs.IRQClearer
}

func NewIRQs(vectors uint) *IRQs {
	if vectors > 64 {
		panic("device: too many interrupt vectors")
	}
	return &IRQs{
		n:        vectors,
		clearers: make(map[uint]hwdefs.IRQClearer),
	}
}

// Register sets the peripheral to inform when vec is acknowledged.
func (s *IRQs) Register(vec uint, c hwdefs.IRQClearer) {
	s.clearers[vec] = c
}

func (s *IRQs) valid(vec uint) bool {
	if vec >= s.n {
		log.ModDevice.WarnZ("invalid interrupt vector").
			Uint("vec", vec).
			End()
		return false
	}
	return true
}

func (s *IRQs) SetIRQ(vec uint) {
	if !s.valid(vec) || s.pending&(1<<vec) != 0 {
		return
	}
	s.pending |= 1 << vec
	log.ModDevice.DebugZ("irq raised").Uint("vec", vec).End()
}

func (s *IRQs) ClearIRQ(vec uint) {
	if !s.valid(vec) {
		return
	}
	s.pending &^= 1 << vec
}

func (s *IRQs) IsPending(vec uint) bool {
	return vec < s.n && s.pending&(1<<vec) != 0
}

// Pending returns the pending vectors, in priority order.
func (s *IRQs) Pending() []uint {
	var vecs []uint
	for p := s.pending; p != 0; p &= p - 1 {
		vecs = append(vecs, uint(bits.TrailingZeros64(p)))
	}
	return vecs
}

// Acknowledge clears vec and lets the peripheral which raised it clear its
// interrupt flag.
func (s *IRQs) Acknowledge(vec uint) {
	if !s.IsPending(vec) {
		return
	}
	s.pending &^= 1 << vec
	if c, ok := s.clearers[vec]; ok {
		c.ClearIrqFlag(vec)
	}
}

func (s *IRQs) Reset() {
	s.pending = 0
}
