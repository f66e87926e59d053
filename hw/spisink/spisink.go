// Package spisink implements a passive SPI receiver. It samples three nets
// (slave select, clock and data) at a fixed period, shifts in the data bits
// MSB first and reports every received byte.
package spisink

import (
	"fmt"

	"avrsim/emu/log"
	"avrsim/hw/gpio"
)

// DefaultQuantum is the sampling period, in ticks.
const DefaultQuantum = 1000

type Option func(*Sink)

// ClockIdleHigh sets the clock polarity: true if the clock is high when
// idle.
func ClockIdleHigh(v bool) Option {
	return func(s *Sink) { s.idleHigh = v }
}

// SampleOnLeadingEdge selects the clock edge data is sampled on.
func SampleOnLeadingEdge(v bool) Option {
	return func(s *Sink) { s.leading = v }
}

// Quantum sets the sampling period.
func Quantum(ticks int64) Option {
	return func(s *Sink) { s.quantum = ticks }
}

// OnByte sets a function called with every received byte.
func OnByte(fn func(b uint8)) Option {
	return func(s *Sink) { s.onByte = fn }
}

// Emit sets a function called with every output line ("spisink: 0xA5",
// "spisink: /SS asserted"...).
func Emit(fn func(line string)) Option {
	return func(s *Sink) { s.emit = fn }
}

// Sink is the SPI receiver. Its three pins weakly pull the nets up.
type Sink struct {
	ss, sclk, data *gpio.Pin

	idleHigh bool
	leading  bool
	quantum  int64
	onByte   func(b uint8)
	emit     func(line string)

	state   int // 0: waiting for /SS, 1..8: next bit
	sr      uint8
	prevClk bool
	prevSS  bool
}

// New returns a sink connected to the given nets. By default the clock is
// idle high and data is sampled on the leading edge.
func New(ssNet, sclkNet, dataNet *gpio.Net, opts ...Option) *Sink {
	s := &Sink{
		ss:       gpio.NewPin("spisink.ss"),
		sclk:     gpio.NewPin("spisink.sclk"),
		data:     gpio.NewPin("spisink.data"),
		idleHigh: true,
		leading:  true,
		quantum:  DefaultQuantum,
		prevSS:   true,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.prevClk = s.idleHigh

	for _, c := range []struct {
		pin *gpio.Pin
		net *gpio.Net
	}{{s.ss, ssNet}, {s.sclk, sclkNet}, {s.data, dataNet}} {
		c.pin.SetState(gpio.PullUp)
		c.net.Add(c.pin)
	}
	return s
}

// Pins returns the sink pins: slave select, clock and data.
func (s *Sink) Pins() (ss, sclk, data *gpio.Pin) {
	return s.ss, s.sclk, s.data
}

// sampleOnRising reports whether data is sampled on the rising clock edge.
func (s *Sink) sampleOnRising() bool {
	return s.idleHigh != s.leading
}

func (s *Sink) Reset() {
	s.state = 0
	s.sr = 0
	s.prevClk = s.idleHigh
	s.prevSS = true
}

// Step polls the nets once.
func (s *Sink) Step() (bool, int64) {
	ss := s.ss.Level()
	clk := s.sclk.Level()
	data := s.data.Level()

	sample := false
	if !ss {
		if clk != s.prevClk {
			s.prevClk = clk
			sample = clk == s.sampleOnRising()
		}
	} else {
		s.sr = 0
		s.state = 0
	}

	if s.state == 0 && !ss {
		s.state = 1
	}
	if s.state > 0 && sample {
		s.sr <<= 1
		if data {
			s.sr |= 1
		}
		if s.state == 8 {
			s.state = 1
			s.received(s.sr)
		} else {
			s.state++
		}
	}

	if ss != s.prevSS {
		s.prevSS = ss
		if ss {
			s.output("/SS negated")
		} else {
			s.output("/SS asserted")
		}
	}
	return true, s.quantum
}

func (s *Sink) received(b uint8) {
	log.ModSPI.InfoZ("byte received").
		Hex8("val", b).
		End()
	s.output(fmt.Sprintf("0x%02X", b))
	if s.onByte != nil {
		s.onByte(b)
	}
}

func (s *Sink) output(msg string) {
	if s.emit != nil {
		s.emit("spisink: " + msg)
	}
}
