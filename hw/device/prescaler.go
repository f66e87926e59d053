package device

import (
	"avrsim/hw/hwio"
)

// GTCCR bits handled by the prescaler.
const (
	TSM  = 0x80 // timer/counter synchronization mode
	PSR0 = 0x01 // prescaler reset
)

// Prescaler is the 10-bit clock prescaler of timer 0. It is a client of the
// shared GTCCR register: writing PSR0 resets it. PSR0 is cleared by
// hardware right away, unless TSM is set, which holds the prescaler in
// reset until TSM is cleared.
type Prescaler struct {
	counter uint16
	held    bool
}

func (p *Prescaler) SetFromReg(reg *hwio.SpecialReg, val uint8) uint8 {
	if val&PSR0 != 0 {
		p.counter = 0
	}
	p.held = val&(TSM|PSR0) == TSM|PSR0
	if val&TSM == 0 {
		val &^= PSR0
	}
	return val
}

func (p *Prescaler) GetFromClient(reg *hwio.SpecialReg, val uint8) uint8 {
	return val
}

// Step counts one CPU clock.
func (p *Prescaler) Step() {
	if !p.held {
		p.counter = (p.counter + 1) & 0x3ff
	}
}

// Counter returns the prescaler counter value.
func (p *Prescaler) Counter() uint16 { return p.counter }

// Held reports whether the prescaler is held in reset.
func (p *Prescaler) Held() bool { return p.held }

func (p *Prescaler) Reset() {
	p.counter = 0
	p.held = false
}
