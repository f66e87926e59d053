package adc

import (
	"avrsim/emu/log"
	"avrsim/hw/gpio"
)

// SignalChangeListener is notified when the analog signal on the selected
// multiplexer input changes.
type SignalChangeListener interface {
	SignalChanged()
}

// Mux is the analog input multiplexer in front of the converter.
type Mux interface {
	// Value returns the voltage presented to the converter for channel,
	// including the gain of differential channels.
	Value(channel int, vcc float64) float64

	// ComparatorValue returns the voltage the analog comparator sees when
	// it uses the multiplexer as negative input.
	ComparatorValue(channel int, vcc float64) float64

	IsDifferential(channel int) bool

	// SetSelect selects the channel observed for signal changes.
	SetSelect(channel int)
	SetListener(l SignalChangeListener)
}

// Internal voltage sources.
const (
	Bandgap     = 1.1
	BandgapM8   = 1.30
	BandgapM16  = 1.22
	Internal256 = 2.56
)

// muxBase holds the input pins and forwards changes of the selected pin to
// the listener.
type muxBase struct {
	name     string
	pins     []*gpio.Pin
	sel      int
	listener SignalChangeListener
}

func newMuxBase(name string, pins []*gpio.Pin) muxBase {
	return muxBase{name: name, pins: pins}
}

// observe registers m on every input pin. It must be called once m has
// reached its final address.
func (m *muxBase) observe() {
	for _, p := range m.pins {
		if p != nil {
			p.Observe(m)
		}
	}
}

func (m *muxBase) SetSelect(channel int)                { m.sel = channel }
func (m *muxBase) SetListener(l SignalChangeListener)   { m.listener = l }
func (m *muxBase) IsDifferential(channel int) bool      { return false }
func (m *muxBase) ComparatorValue(int, float64) float64 { return 0 }

func (m *muxBase) PinStateChanged(p *gpio.Pin) {
	if m.listener == nil || m.sel < 0 || m.sel >= len(m.pins) {
		return
	}
	if m.pins[m.sel] == p {
		m.listener.SignalChanged()
	}
}

func (m *muxBase) pin(n int, vcc float64) float64 {
	return m.pins[n].AnalogValue(vcc)
}

func (m *muxBase) invalid(channel int) float64 {
	log.ModADC.WarnZ("invalid mux channel").
		String("mux", m.name).
		Int("channel", channel).
		End()
	return 0
}

// Mux6 selects between 6 single-ended inputs.
type Mux6 struct {
	muxBase
}

func NewMux6(pins [6]*gpio.Pin) *Mux6 {
	m := &Mux6{newMuxBase("mux6", pins[:])}
	m.observe()
	return m
}

func (m *Mux6) Value(channel int, vcc float64) float64 {
	if channel < 0 || channel >= 6 {
		return m.invalid(channel)
	}
	return m.pin(channel, vcc)
}

// MuxM8 selects between 8 single-ended inputs, the bandgap reference and
// ground.
type MuxM8 struct {
	muxBase
}

func NewMuxM8(pins [8]*gpio.Pin) *MuxM8 {
	m := &MuxM8{newMuxBase("mux-m8", pins[:])}
	m.observe()
	return m
}

func (m *MuxM8) Value(channel int, vcc float64) float64 {
	switch {
	case channel >= 0 && channel < 8:
		return m.pin(channel, vcc)
	case channel == 14:
		return BandgapM8
	case channel == 15:
		return 0
	}
	return m.invalid(channel)
}

func (m *MuxM8) ComparatorValue(channel int, vcc float64) float64 {
	return m.pin(channel&7, vcc)
}

// diffInput describes a differential channel.
type diffInput struct {
	pos, neg int
	gain     float64
}

func (m *muxBase) diff(d diffInput, vcc float64) float64 {
	return (m.pin(d.pos, vcc) - m.pin(d.neg, vcc)) * d.gain
}

// MuxM16 selects between 8 single-ended inputs and 22 differential pairs
// with gains of 1, 10 or 200.
type MuxM16 struct {
	muxBase
}

var m16Diff = func() map[int]diffInput {
	d := map[int]diffInput{
		8:  {0, 0, 10},
		9:  {1, 0, 10},
		10: {0, 0, 200},
		11: {1, 0, 200},
		12: {2, 2, 10},
		13: {3, 2, 10},
		14: {2, 2, 200},
		15: {3, 2, 200},
	}
	for n := range 8 {
		d[16+n] = diffInput{n, 1, 1}
	}
	for n := range 6 {
		d[24+n] = diffInput{n, 2, 1}
	}
	return d
}()

func NewMuxM16(pins [8]*gpio.Pin) *MuxM16 {
	m := &MuxM16{newMuxBase("mux-m16", pins[:])}
	m.observe()
	return m
}

func (m *MuxM16) Value(channel int, vcc float64) float64 {
	if channel >= 0 && channel < 8 {
		return m.pin(channel, vcc)
	}
	if d, ok := m16Diff[channel]; ok {
		return m.diff(d, vcc)
	}
	switch channel {
	case 30:
		return BandgapM16
	case 31:
		return 0
	}
	return m.invalid(channel)
}

func (m *MuxM16) IsDifferential(channel int) bool {
	_, ok := m16Diff[channel]
	return ok
}

func (m *MuxM16) ComparatorValue(channel int, vcc float64) float64 {
	return m.pin(channel&7, vcc)
}

// MuxT25 is the 8-pin part multiplexer: 4 single-ended inputs, differential
// pairs with a gain of 1 or 20, the bandgap reference, ground and the
// temperature sensor.
type MuxT25 struct {
	muxBase

	// Temperature of the sensor, in °C.
	Temperature float64
}

var t25Diff = map[int]diffInput{
	4:  {2, 2, 1},
	5:  {2, 2, 20},
	6:  {2, 3, 1},
	7:  {2, 3, 20},
	8:  {0, 0, 1},
	9:  {0, 0, 20},
	10: {0, 1, 1},
	11: {0, 1, 20},
}

// NewMuxT25 returns the multiplexer with pins ADC0 to ADC3.
func NewMuxT25(pins [4]*gpio.Pin) *MuxT25 {
	m := &MuxT25{
		muxBase:     newMuxBase("mux-t25", pins[:]),
		Temperature: 25,
	}
	m.observe()
	return m
}

func (m *MuxT25) Value(channel int, vcc float64) float64 {
	if channel >= 0 && channel < 4 {
		return m.pin(channel, vcc)
	}
	if d, ok := t25Diff[channel]; ok {
		return m.diff(d, vcc)
	}
	switch channel {
	case 12:
		return Bandgap
	case 13:
		return 0
	case 15:
		// 300 LSB at 25°C against the 1.1V reference, about 1 LSB per °C.
		return (300 + (m.Temperature - 25)) * Bandgap / 1024
	}
	return m.invalid(channel)
}

func (m *MuxT25) IsDifferential(channel int) bool {
	_, ok := t25Diff[channel]
	return ok
}

func (m *MuxT25) ComparatorValue(channel int, vcc float64) float64 {
	return m.pin(channel&3, vcc)
}

// MuxM2560 selects between 16 single-ended inputs. Channels 8 to 15 are
// selected through the MUX5 bit (channel 0x20 to 0x27).
type MuxM2560 struct {
	muxBase
}

func NewMuxM2560(pins [16]*gpio.Pin) *MuxM2560 {
	m := &MuxM2560{newMuxBase("mux-m2560", pins[:])}
	m.observe()
	return m
}

func (m *MuxM2560) index(channel int) int {
	switch {
	case channel >= 0 && channel < 8:
		return channel
	case channel >= 0x20 && channel < 0x28:
		return channel - 0x20 + 8
	}
	return -1
}

func (m *MuxM2560) SetSelect(channel int) {
	m.sel = m.index(channel)
}

func (m *MuxM2560) Value(channel int, vcc float64) float64 {
	if n := m.index(channel); n >= 0 {
		return m.pin(n, vcc)
	}
	switch channel {
	case 0x1e:
		return Bandgap
	case 0x1f:
		return 0
	}
	return m.invalid(channel)
}

func (m *MuxM2560) ComparatorValue(channel int, vcc float64) float64 {
	if n := m.index(channel); n >= 0 {
		return m.pin(n, vcc)
	}
	return 0
}
