// Package adc implements the 10-bit successive approximation
// analog-to-digital converter with its input multiplexer and reference
// selection.
package adc

import (
	"avrsim/emu/log"
	"avrsim/hw/gpio"
	"avrsim/hw/hwdefs"
	"avrsim/hw/hwio"
	"avrsim/hw/trace"
)

// ADCSRA bits.
const (
	ADEN  = 0x80
	ADSC  = 0x40
	ADATE = 0x20
	ADIF  = 0x10
	ADIE  = 0x08
	ADPS  = 0x07
)

// ADCSRB bits.
const (
	BIN  = 0x80
	ACME = 0x40
	IPR  = 0x20
	MUX5 = 0x08
	ADTS = 0x07
)

// ADMUX bits.
const ADLAR = 0x20

// Type selects the register layout of a converter variant.
type Type int

const (
	TypeM8    Type = iota // 4 bits MUX, 2 bits REFS
	TypeM16               // 5 bits MUX, 2 bits REFS
	TypeT25               // 4 bits MUX, 3 bits REFS, BIN and IPR in ADCSRB
	TypeM2560             // 5 bits MUX plus MUX5 in ADCSRB
)

// State of the conversion state machine.
type State int

const (
	Idle    State = iota // no conversion
	Init                 // analog circuitry start-up, first conversion only
	Running              // converting
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Init:
		return "init"
	case Running:
		return "running"
	}
	return "unknown"
}

// FreeRunning is the auto trigger source restarting a conversion as soon as
// the previous one completes.
const FreeRunning = 0

// Durations in half ADC clocks.
const (
	initHalfClocks   = 12 * 2
	convHalfClocks   = 13 * 2
	sampleHalfClocks = 3
)

var prescalerDiv = [8]int{2, 2, 4, 8, 16, 32, 64, 128}

// Config describes a converter instance.
type Config struct {
	Type   Type
	Mux    Mux
	Ref    Ref
	IRQ    hwdefs.IRQLine // may be nil
	Vector uint
	Vcc    float64 // supply voltage, gpio.DefaultVcc if zero
	Period int64   // CPU clock period, in ticks, 1 if zero
}

// ADC is the converter. It must be stepped once per CPU clock.
type ADC struct {
	cfg Config

	adch, adcl uint8
	adcsra     uint8
	adcsrb     uint8
	admux      uint8

	adchLocked bool
	sample     float64 // held input voltage
	sampleMux  uint8   // ADMUX at sampling time
	sampleSrb  uint8   // ADCSRB at sampling time
	prescaler  int
	halfClocks int
	first      bool
	state      State

	sfior    *TriggerClient
	listener SignalChangeListener

	ADCH   hwio.IOReg
	ADCL   hwio.IOReg
	ADCSRA hwio.IOReg
	ADCSRB hwio.IOReg
	ADMUX  hwio.IOReg
}

func New(cfg Config) *ADC {
	if cfg.Vcc == 0 {
		cfg.Vcc = gpio.DefaultVcc
	}
	if cfg.Period <= 0 {
		cfg.Period = 1
	}
	a := &ADC{
		cfg:   cfg,
		first: true,
	}
	a.ADCH = hwio.IOReg{
		Name: "ADCH",
		Get:  a.getADCH,
		Peek: func() uint8 { return a.adch },
	}
	a.ADCL = hwio.IOReg{
		Name: "ADCL",
		Get:  a.getADCL,
		Peek: func() uint8 { return a.adcl },
	}
	a.ADCSRA = hwio.IOReg{
		Name: "ADCSRA",
		Get:  func() uint8 { return a.adcsra },
		Set:  a.setADCSRA,
	}
	a.ADCSRB = hwio.IOReg{
		Name: "ADCSRB",
		Get:  func() uint8 { return a.adcsrb },
		Set:  a.setADCSRB,
	}
	a.ADMUX = hwio.IOReg{
		Name: "ADMUX",
		Get:  func() uint8 { return a.admux },
		Set:  a.setADMUX,
	}
	cfg.Mux.SetListener(a)
	return a
}

// Trace registers the converter registers into the trace registry.
func (a *ADC) Trace(r *trace.Registry) {
	a.ADCH.Trace(r)
	a.ADCL.Trace(r)
	a.ADCSRA.Trace(r)
	a.ADCSRB.Trace(r)
	a.ADMUX.Trace(r)
}

func (a *ADC) Reset() {
	a.adch, a.adcl = 0, 0
	a.adcsra, a.adcsrb, a.admux = 0, 0, 0
	a.adchLocked = false
	a.prescaler = 0
	a.halfClocks = 0
	a.sample, a.sampleMux, a.sampleSrb = 0, 0, 0
	a.first = true
	a.state = Idle
	if a.sfior != nil {
		a.sfior.adts = 0
	}
	a.cfg.Mux.SetSelect(0)
	a.clearIRQ()

	a.ADCH.HardwareChange(0)
	a.ADCL.HardwareChange(0)
	a.ADCSRA.HardwareChange(0)
	a.ADCSRB.HardwareChange(0)
	a.ADMUX.HardwareChange(0)
}

func (a *ADC) State() State { return a.state }

// Result returns the last conversion result, right adjusted.
func (a *ADC) Result() uint16 {
	if a.admux&ADLAR != 0 {
		return uint16(a.adch)<<2 | uint16(a.adcl>>6)
	}
	return uint16(a.adch&3)<<8 | uint16(a.adcl)
}

func (a *ADC) getADCH() uint8 {
	a.adchLocked = false
	return a.adch
}

func (a *ADC) getADCL() uint8 {
	a.adchLocked = true
	return a.adcl
}

func (a *ADC) setADCSRA(val uint8) {
	old := a.adcsra
	nv := val&^ADIF | old&ADIF
	if val&ADIF != 0 {
		// ADIF is cleared by writing a one.
		nv &^= ADIF
	}
	if old&ADSC != 0 {
		// ADSC is cleared by hardware only.
		nv |= ADSC
	}
	if nv&ADEN == 0 {
		nv &^= ADSC
		if old&ADEN != 0 {
			a.disable()
		}
	}
	a.adcsra = nv
	a.ADCSRA.HardwareChange(nv)
	a.updateIRQ()
}

func (a *ADC) disable() {
	if a.state != Idle {
		log.ModADC.DebugZ("conversion aborted").
			String("state", a.state.String()).
			End()
	}
	a.state = Idle
	a.first = true
	a.prescaler = 0
	a.halfClocks = 0
}

func (a *ADC) setADCSRB(val uint8) {
	a.adcsrb = val
	a.ADCSRB.HardwareChange(val)
	a.cfg.Mux.SetSelect(a.channel(a.admux, a.adcsrb))
}

func (a *ADC) setADMUX(val uint8) {
	a.admux = val
	a.ADMUX.HardwareChange(val)
	a.cfg.Mux.SetSelect(a.channel(a.admux, a.adcsrb))
}

// channel extracts the multiplexer channel.
func (a *ADC) channel(admux, adcsrb uint8) int {
	switch a.cfg.Type {
	case TypeM16:
		return int(admux & 0x1f)
	case TypeM2560:
		return int(admux&0x1f) | int(adcsrb&MUX5)<<2
	}
	return int(admux & 0x0f)
}

// refSelect extracts the reference selection.
func (a *ADC) refSelect(admux uint8) int {
	sel := int(admux >> 6)
	if a.cfg.Type == TypeT25 {
		sel |= int(admux>>2) & 4
	}
	return sel
}

// TriggerSource returns the auto trigger source.
func (a *ADC) TriggerSource() int {
	if a.sfior != nil {
		return int(a.sfior.adts)
	}
	return int(a.adcsrb & ADTS)
}

func (a *ADC) freeRunning() bool {
	return a.adcsra&ADATE != 0 && a.TriggerSource() == FreeRunning
}

func (a *ADC) prescalerClock() bool {
	if a.adcsra&ADEN == 0 {
		a.prescaler = 0
		return false
	}
	a.prescaler++
	if a.prescaler >= prescalerDiv[a.adcsra&ADPS]/2 {
		a.prescaler = 0
		return true
	}
	return false
}

// Step advances the converter by one CPU clock.
func (a *ADC) Step() (bool, int64) {
	if !a.prescalerClock() {
		return false, a.cfg.Period
	}

	switch a.state {
	case Idle:
		a.halfClocks = 0
		if a.adcsra&ADSC != 0 {
			if a.first {
				a.first = false
				a.state = Init
			} else {
				a.state = Running
			}
		}
	case Init:
		a.halfClocks++
		if a.halfClocks == initHalfClocks {
			a.state = Running
			a.halfClocks = 0
		}
	case Running:
		a.halfClocks++
		switch a.halfClocks {
		case sampleHalfClocks:
			a.sampleMux = a.admux
			a.sampleSrb = a.adcsrb
			a.sample = a.cfg.Mux.Value(a.channel(a.admux, a.adcsrb), a.cfg.Vcc)
		case convHalfClocks:
			a.complete()
		}
	}
	return true, a.cfg.Period
}

func (a *ADC) bipolar(channel int) bool {
	if !a.cfg.Mux.IsDifferential(channel) {
		return false
	}
	if a.cfg.Type == TypeT25 {
		return a.sampleSrb&BIN != 0
	}
	return true
}

func (a *ADC) convert() uint16 {
	ch := a.channel(a.sampleMux, a.sampleSrb)
	ref := a.cfg.Ref.Value(a.refSelect(a.sampleMux), a.cfg.Vcc)
	if ref <= 0 {
		log.ModADC.WarnZ("invalid reference voltage").
			Float("ref", ref).
			End()
		return 0
	}
	v := a.sample
	if a.cfg.Type == TypeT25 && a.sampleSrb&IPR != 0 && a.cfg.Mux.IsDifferential(ch) {
		v = -v
	}
	if a.bipolar(ch) {
		return ConvertBipolar(v, ref)
	}
	return ConvertUnipolar(v, ref)
}

func (a *ADC) complete() {
	code := a.convert()
	if a.adchLocked {
		log.ModADC.WarnZ("conversion result lost, ADCH not read").
			Uint("code", uint(code)).
			End()
	} else {
		if a.sampleMux&ADLAR != 0 {
			a.adch = uint8(code >> 2)
			a.adcl = uint8(code << 6)
		} else {
			a.adch = uint8(code>>8) & 3
			a.adcl = uint8(code)
		}
		a.ADCH.HardwareChange(a.adch)
		a.ADCL.HardwareChange(a.adcl)
	}
	log.ModADC.DebugZ("conversion done").
		Uint("code", uint(code)).
		Float("volt", a.sample).
		End()

	a.adcsra |= ADIF
	if a.freeRunning() {
		a.halfClocks = 0
	} else {
		hwio.ClearBits8(&a.adcsra, ADSC)
		a.state = Idle
	}
	a.ADCSRA.HardwareChangeMask(a.adcsra, ADIF|ADSC)
	a.updateIRQ()
}

func (a *ADC) updateIRQ() {
	if a.cfg.IRQ == nil {
		return
	}
	if a.adcsra&(ADIE|ADIF) == ADIE|ADIF {
		a.cfg.IRQ.SetIRQ(a.cfg.Vector)
	} else {
		a.cfg.IRQ.ClearIRQ(a.cfg.Vector)
	}
}

func (a *ADC) clearIRQ() {
	if a.cfg.IRQ != nil {
		a.cfg.IRQ.ClearIRQ(a.cfg.Vector)
	}
}

// ClearIrqFlag is called by the interrupt system when the conversion
// complete interrupt is taken.
func (a *ADC) ClearIrqFlag(vec uint) {
	if vec != a.cfg.Vector {
		return
	}
	a.adcsra &^= ADIF
	a.ADCSRA.HardwareChange(a.adcsra)
	a.clearIRQ()
}

// SignalChanged forwards a change on the selected multiplexer input to the
// analog comparator.
func (a *ADC) SignalChanged() {
	if a.listener != nil {
		a.listener.SignalChanged()
	}
}

// SetListener registers the analog comparator, nil unregisters it.
func (a *ADC) SetListener(l SignalChangeListener) {
	a.listener = l
}

// Enabled reports whether ADEN is set.
func (a *ADC) Enabled() bool { return a.adcsra&ADEN != 0 }

// ACME reports whether the comparator multiplexer enable bit is set.
func (a *ADC) ACME() bool { return a.adcsrb&ACME != 0 }

// MuxValue returns the multiplexer voltage seen by the analog comparator.
func (a *ADC) MuxValue(vcc float64) float64 {
	return a.cfg.Mux.ComparatorValue(a.channel(a.admux, a.adcsrb), vcc)
}
