package gpio

import (
	"fmt"
	"strconv"
	"strings"

	"avrsim/emu/log"
	"avrsim/hw/hwio"
	"avrsim/hw/trace"
)

// Port is an I/O port of up to 8 pins, controlled through its PORT (data),
// DDR (data direction) and PIN (input) registers.
type Port struct {
	name   string
	size   int
	mask   uint8
	toggle bool // writing PIN toggles PORT bits

	port uint8
	ddr  uint8
	pud  bool

	pins []*Pin

	PORT hwio.IOReg
	DDR  hwio.IOReg
	PIN  hwio.IOReg
}

// NewPort returns a port with size pins named <name><index>. toggle enables
// the PIN write feature toggling PORT bits. NewPort panics if size is not
// within 1..8.
func NewPort(name string, size int, toggle bool) *Port {
	if size < 1 || size > 8 {
		panic(fmt.Sprintf("gpio: port %s: invalid width %d", name, size))
	}
	p := &Port{
		name:   name,
		size:   size,
		mask:   uint8(1<<size - 1),
		toggle: toggle,
		pins:   make([]*Pin, size),
	}
	for i := range p.pins {
		p.pins[i] = &Pin{
			name: name + strconv.Itoa(i),
			port: p,
			mask: 1 << i,
		}
	}

	p.PORT = hwio.IOReg{
		Name: "PORT" + name,
		Get:  p.Port,
		Set:  p.SetPort,
	}
	p.DDR = hwio.IOReg{
		Name: "DDR" + name,
		Get:  p.Ddr,
		Set:  p.SetDdr,
	}
	p.PIN = hwio.IOReg{
		Name:   "PIN" + name,
		Get:    p.GetPin,
		Set:    p.SetPin,
		GetBit: p.getPinBit,
		SetBit: p.SetPinBit,
	}

	p.CalcOutputs()
	return p
}

func (p *Port) Name() string { return p.name }
func (p *Port) Size() int    { return p.size }

// Pin returns the pin at index n.
func (p *Port) Pin(n int) *Pin { return p.pins[n] }

// Pins returns the port pins, lsb first.
func (p *Port) Pins() []*Pin { return append([]*Pin(nil), p.pins...) }

// PinByName returns the pin named name, "B3" for pin 3 of port B.
func (p *Port) PinByName(name string) (*Pin, bool) {
	idx, ok := strings.CutPrefix(name, p.name)
	if !ok {
		return nil, false
	}
	n, err := strconv.Atoi(idx)
	if err != nil || n < 0 || n >= p.size {
		return nil, false
	}
	return p.pins[n], true
}

// Port returns the PORT register value.
func (p *Port) Port() uint8 { return p.port }

// Ddr returns the DDR register value.
func (p *Port) Ddr() uint8 { return p.ddr }

func (p *Port) SetPort(val uint8) {
	p.port = val & p.mask
	p.CalcOutputs()
	p.PORT.HardwareChange(p.port)
}

func (p *Port) SetDdr(val uint8) {
	p.ddr = val & p.mask
	p.CalcOutputs()
	p.DDR.HardwareChange(p.ddr)
}

// SetPUD sets the global pull-up disable input.
func (p *Port) SetPUD(pud bool) {
	if p.pud == pud {
		return
	}
	p.pud = pud
	p.CalcOutputs()
}

func (p *Port) PUD() bool { return p.pud }

// SetPin handles a write to the PIN register: each bit set toggles the
// corresponding PORT bit. Ports without the toggle feature ignore the write.
func (p *Port) SetPin(val uint8) {
	if !p.toggle {
		log.ModPort.WarnZ("writing of PIN register is not supported").
			String("port", p.name).
			Hex8("val", val).
			End()
		return
	}
	p.SetPort(p.port ^ val)
}

// SetPinBit handles a single bit write to the PIN register. Writing 1
// toggles the PORT bit, writing 0 has no effect.
func (p *Port) SetPinBit(val bool, n uint) {
	if !p.toggle {
		log.ModPort.WarnZ("writing of PIN register is not supported").
			String("port", p.name).
			Uint("bit", n).
			End()
		return
	}
	if !val || int(n) >= p.size {
		return
	}
	port := p.port
	hwio.FlipBit8(&port, n)
	p.SetPort(port)
}

// GetPin returns the levels observed on the pins.
func (p *Port) GetPin() uint8 {
	var val uint8
	for _, pin := range p.pins {
		if pin.Level() {
			val |= pin.mask
		}
	}
	return val
}

func (p *Port) getPinBit(n uint) uint8 {
	if int(n) >= p.size {
		return 0
	}
	return hwio.GetBiti8(p.GetPin(), n)
}

// CalcOutputs recomputes the driver state of every pin and publishes all of
// them, changed or not. Calling it twice in a row has no additional effect.
func (p *Port) CalcOutputs() {
	for _, pin := range p.pins {
		ddr := p.ddr&pin.mask != 0
		port := p.port&pin.mask != 0
		pin.local = pin.calcLocal(ddr, port, p.pud)
	}
	for _, pin := range p.pins {
		pin.publish()
	}
}

func (p *Port) pinChanged() {
	p.PIN.HardwareChange(p.GetPin())
}

// Reset clears PORT and DDR and any alternate function override. External
// drivers are left in place.
func (p *Port) Reset() {
	p.port, p.ddr = 0, 0
	for _, pin := range p.pins {
		pin.ov = Override{}
	}
	p.CalcOutputs()
	p.PORT.HardwareChange(0)
	p.DDR.HardwareChange(0)
}

// Trace registers the port registers and pins into the trace registry.
func (p *Port) Trace(r *trace.Registry) {
	p.PORT.Trace(r)
	p.DDR.Trace(r)
	p.PIN.Trace(r)
	for _, pin := range p.pins {
		pin.Trace(r)
	}
}

// String returns the pin states, msb first.
func (p *Port) String() string {
	b := make([]byte, p.size)
	for i, pin := range p.pins {
		b[p.size-1-i] = pin.State().Char()
	}
	return string(b)
}
