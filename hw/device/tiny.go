// Package device assembles hardware units into a complete microcontroller
// I/O space.
package device

import (
	"sort"

	"github.com/pkg/errors"

	"avrsim/emu/log"
	"avrsim/hw/adc"
	"avrsim/hw/gpio"
	"avrsim/hw/hwdefs"
	"avrsim/hw/hwio"
	"avrsim/hw/sim"
	"avrsim/hw/snapshot"
	"avrsim/hw/trace"
)

// Data space layout.
const (
	gprBase = 0x00
	ioBase  = 0x20
	ioEnd   = 0x5f
	ramBase = 0x60
	busSize = 0x260
)

// Interrupt vectors.
const (
	VectorADC  = 8
	numVectors = 15
)

const mcucrPUD = 0x40

const snapshotVersion = 1

// Models maps the supported models to their SRAM size.
var Models = map[string]int{
	"attiny25": 128,
	"attiny45": 256,
	"attiny85": 512,
}

// Config holds the device parameters.
type Config struct {
	Model  string  // one of Models, attiny85 if empty
	Vcc    float64 // supply voltage, gpio.DefaultVcc if zero
	Period int64   // CPU clock period in ticks, 1 if zero
}

// coreRegs holds the registers owned by the device itself.
type coreRegs struct {
	GPIOR0 hwio.Reg8 `hwio:"offset=0x11"`
	GPIOR1 hwio.Reg8 `hwio:"offset=0x12"`
	GPIOR2 hwio.Reg8 `hwio:"offset=0x13"`
	MCUCR  hwio.Reg8 `hwio:"offset=0x35,rwmask=0xff,wcb"`

	port *gpio.Port
}

func (r *coreRegs) WriteMCUCR(old, val uint8) {
	r.port.SetPUD(val&mcucrPUD != 0)
}

func (r *coreRegs) Trace(reg *trace.Registry) {
	r.GPIOR0.Trace(reg)
	r.GPIOR1.Trace(reg)
	r.GPIOR2.Trace(reg)
	r.MCUCR.Trace(reg)
}

func (r *coreRegs) Reset() {
	r.GPIOR0.Reset()
	r.GPIOR1.Reset()
	r.GPIOR2.Reset()
	r.MCUCR.Reset()
}

// registers known to the device but not modelled.
var notSimulated = []struct {
	addr uint16
	name string
	msg  string
}{
	{0x5f, "SREG", "status register is owned by the CPU"},
	{0x5e, "SPH", "stack pointer is owned by the CPU"},
	{0x5d, "SPL", "stack pointer is owned by the CPU"},
	{0x59, "TIMSK", "timer interrupts are not simulated"},
	{0x58, "TIFR", "timer interrupts are not simulated"},
	{0x53, "TCCR0B", "timer 0 is not simulated"},
	{0x52, "TCNT0", "timer 0 is not simulated"},
	{0x4a, "TCCR0A", "timer 0 is not simulated"},
	{0x49, "OCR0A", "timer 0 is not simulated"},
	{0x48, "OCR0B", "timer 0 is not simulated"},
	{0x3f, "EEARH", "eeprom is not simulated"},
	{0x3e, "EEARL", "eeprom is not simulated"},
	{0x3d, "EEDR", "eeprom is not simulated"},
	{0x3c, "EECR", "eeprom is not simulated"},
}

// Tiny is an 8-pin microcontroller of the attiny25/45/85 family: port B,
// general purpose I/O registers, the GTCCR shared register with the timer
// prescaler and the ADC. The CPU is not part of the device: it accesses the
// data space through Bus.
type Tiny struct {
	Model string
	Vcc   float64

	Clock  *sim.Clock
	Tracer *trace.Tracer
	Bus    *hwio.Table
	IRQ    *IRQs

	PortB     *gpio.Port
	ADC       *adc.ADC
	Mux       *adc.MuxT25
	Prescaler *Prescaler
	GTCCR     hwio.SpecialReg
	GPR       hwio.Mem
	SRAM      hwio.Mem

	regs   coreRegs
	period int64
	pins   gpio.PinRegistry
	nets   map[string]*gpio.Net
}

// NewTiny assembles a device. It returns an error if the configuration is
// invalid.
func NewTiny(cfg Config) (*Tiny, error) {
	if cfg.Model == "" {
		cfg.Model = "attiny85"
	}
	ramSize, ok := Models[cfg.Model]
	if !ok {
		return nil, errors.Errorf("unknown device model %q", cfg.Model)
	}
	if cfg.Vcc < 0 {
		return nil, errors.Errorf("invalid supply voltage %v", cfg.Vcc)
	}
	if cfg.Vcc == 0 {
		cfg.Vcc = gpio.DefaultVcc
	}
	if cfg.Period <= 0 {
		cfg.Period = 1
	}

	d := &Tiny{
		Model:     cfg.Model,
		Vcc:       cfg.Vcc,
		Clock:     sim.NewClock(),
		Bus:       hwio.NewTable(cfg.Model, busSize),
		IRQ:       NewIRQs(numVectors),
		PortB:     gpio.NewPort("B", 6, true),
		Prescaler: &Prescaler{},
		GTCCR:     hwio.SpecialReg{Name: "GTCCR"},
		GPR:       hwio.Mem{Name: "GPR", Data: make([]byte, 32)},
		SRAM:      hwio.Mem{Name: "SRAM", Data: make([]byte, ramSize)},
		period:    cfg.Period,
		nets:      make(map[string]*gpio.Net),
	}
	d.Tracer = trace.NewTracer(d.Clock)
	d.pins.RegisterPort(d.PortB)

	pb := d.PortB.Pin
	d.Mux = adc.NewMuxT25([4]*gpio.Pin{pb(5), pb(2), pb(4), pb(3)})
	d.ADC = adc.New(adc.Config{
		Type:   adc.TypeT25,
		Mux:    d.Mux,
		Ref:    &adc.Ref8{ARef: pb(0)},
		IRQ:    d.IRQ,
		Vector: VectorADC,
		Vcc:    cfg.Vcc,
		Period: cfg.Period,
	})
	d.IRQ.Register(VectorADC, d.ADC)
	d.GTCCR.Connect(d.Prescaler)

	d.regs.port = d.PortB
	if err := hwio.InitRegs(&d.regs); err != nil {
		return nil, errors.Wrap(err, "core registers")
	}

	d.mapIO()
	d.trace()
	d.Clock.Add(d)
	return d, nil
}

func (d *Tiny) mapIO() {
	bus := d.Bus
	bus.MapMem(gprBase, &d.GPR)
	bus.MapBank(ioBase, &d.regs, 0)
	bus.MapIOReg(0x38, &d.PortB.PORT)
	bus.MapIOReg(0x37, &d.PortB.DDR)
	bus.MapIOReg(0x36, &d.PortB.PIN)
	bus.MapSpecial(0x4c, &d.GTCCR)
	bus.MapIOReg(0x27, &d.ADC.ADMUX)
	bus.MapIOReg(0x26, &d.ADC.ADCSRA)
	bus.MapIOReg(0x25, &d.ADC.ADCH)
	bus.MapIOReg(0x24, &d.ADC.ADCL)
	bus.MapIOReg(0x23, &d.ADC.ADCSRB)
	for _, r := range notSimulated {
		bus.MapCell(r.addr, &hwio.NotSimulated{Name: r.name, Message: r.msg})
	}
	bus.Reserve(ioBase, ioEnd)
	bus.MapMem(ramBase, &d.SRAM)
}

func (d *Tiny) trace() {
	d.regs.Trace(d.Tracer.Registry("core"))
	d.GTCCR.Trace(d.Tracer.Registry("core"))
	d.PortB.Trace(d.Tracer.Registry("PORTB"))
	d.ADC.Trace(d.Tracer.Registry("ADC"))
}

// Reset resets all hardware units. Memory contents are left untouched.
func (d *Tiny) Reset() {
	d.PortB.SetPUD(false)
	for _, r := range d.resetters() {
		r.Reset()
	}
	log.ModDevice.DebugZ("reset").String("model", d.Model).End()
}

// resetters returns the units reset by Reset. Their order doesn't matter.
func (d *Tiny) resetters() []hwdefs.Resetter {
	return []hwdefs.Resetter{&d.regs, d.PortB, &d.GTCCR, d.Prescaler, d.ADC, d.IRQ}
}

// Step runs the CPU clock driven hardware for one CPU clock.
func (d *Tiny) Step() (bool, int64) {
	d.Prescaler.Step()
	d.ADC.Step()
	return true, d.period
}

// Pin returns the pin named name ("B3").
func (d *Tiny) Pin(name string) (*gpio.Pin, bool) {
	return d.pins.Pin(name)
}

// PinNames returns the sorted names of all device pins.
func (d *Tiny) PinNames() []string {
	return d.pins.Names()
}

// Net returns the net connected to the named pin, creating it if the pin is
// not yet connected. Nets are named after the first pin connected to them.
func (d *Tiny) Net(pin string) (*gpio.Net, error) {
	p, ok := d.pins.Pin(pin)
	if !ok {
		return nil, errors.Errorf("unknown pin %q", pin)
	}
	if n := p.Net(); n != nil {
		return n, nil
	}
	n := gpio.NewNet(pin)
	n.Vcc = d.Vcc
	n.Add(p)
	d.nets[pin] = n
	return n, nil
}

// Nets returns the names of the nets created through Net.
func (d *Tiny) Nets() []string {
	names := make([]string, 0, len(d.nets))
	for name := range d.nets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// State returns a snapshot of the device state.
func (d *Tiny) State() *snapshot.Tiny {
	state := &snapshot.Tiny{
		Version: snapshotVersion,
		Model:   d.Model,
		Tick:    d.Clock.Now(),
		SRAM:    append([]uint8(nil), d.SRAM.Data...),
		GPIOR:   [3]uint8{d.regs.GPIOR0.Value, d.regs.GPIOR1.Value, d.regs.GPIOR2.Value},
		MCUCR:   d.regs.MCUCR.Value,
		GTCCR:   d.GTCCR.Value(),
		Prescaler: snapshot.Prescaler{
			Counter: d.Prescaler.counter,
			Held:    d.Prescaler.held,
		},
		PortB: *d.PortB.State(),
		ADC:   *d.ADC.Snapshot(),
		IRQs:  d.IRQ.Pending(),
	}
	copy(state.GPR[:], d.GPR.Data)
	return state
}

// SetState restores a snapshot taken with State. The simulation time is not
// restored.
func (d *Tiny) SetState(state *snapshot.Tiny) error {
	switch {
	case state.Version != snapshotVersion:
		return errors.Errorf("unsupported snapshot version %d", state.Version)
	case state.Model != d.Model:
		return errors.Errorf("snapshot of a %s, device is a %s", state.Model, d.Model)
	case len(state.SRAM) != len(d.SRAM.Data):
		return errors.Errorf("snapshot SRAM size %d, want %d", len(state.SRAM), len(d.SRAM.Data))
	}

	copy(d.GPR.Data, state.GPR[:])
	copy(d.SRAM.Data, state.SRAM)
	d.regs.GPIOR0.Value = state.GPIOR[0]
	d.regs.GPIOR1.Value = state.GPIOR[1]
	d.regs.GPIOR2.Value = state.GPIOR[2]
	d.regs.MCUCR.Value = state.MCUCR
	d.GTCCR.ResetTo(state.GTCCR)
	d.Prescaler.counter = state.Prescaler.Counter
	d.Prescaler.held = state.Prescaler.Held
	d.PortB.SetState(&state.PortB)
	d.ADC.Restore(&state.ADC)
	d.IRQ.Reset()
	for _, vec := range state.IRQs {
		d.IRQ.SetIRQ(vec)
	}
	return nil
}
