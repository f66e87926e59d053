// Package gpio models the electrical side of a microcontroller: pins with
// their driver state, nets connecting pins together and the I/O ports
// driving pins from the PORT and DDR registers.
package gpio

import (
	"fmt"

	"avrsim/hw/trace"
)

// DefaultVcc is the supply voltage used by nets and standalone pins unless
// configured otherwise.
const DefaultVcc = 5.0

// State is the driver state of a pin, or the resolved state of a net.
type State uint8

const (
	Tristate  State = iota // input, hi-Z
	Low                    // driven low
	High                   // driven high
	PullUp                 // weak pull-up
	PullDown               // weak pull-down
	OpenDrain              // open-drain output, released (hi-Z)
	Analog                 // externally driven voltage
	Shorted                // net only: drivers disagree
)

var stateChars = [...]byte{'t', 'L', 'H', 'h', 'l', 'o', 'a', 'S'}

// Char returns the character used for tracing the state.
func (s State) Char() byte {
	if int(s) < len(stateChars) {
		return stateChars[s]
	}
	return '?'
}

func (s State) String() string {
	return string(s.Char())
}

// Active reports whether the state actively drives a net.
func (s State) Active() bool {
	return s == Low || s == High || s == Analog
}

func levelOf(s State, volt, vcc float64) bool {
	switch s {
	case High, PullUp:
		return true
	case Analog:
		return volt > vcc/2
	}
	return false
}

// Override lets an alternate pin function take control over the data
// direction, the output value or the pull-up of a port pin. Each value is
// only used when its enable flag is set.
type Override struct {
	DDOE, DDOV bool // data direction
	PVOE, PVOV bool // port value
	PUOE, PUOV bool // pull-up
}

// Observer is notified when the level observed on a pin changes.
type Observer interface {
	PinStateChanged(p *Pin)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(p *Pin)

func (f ObserverFunc) PinStateChanged(p *Pin) { f(p) }

// A Pin is a single electrical connection point. Port pins are owned by a
// Port which computes their driver state; standalone pins are driven by
// their owner through SetState.
type Pin struct {
	name string
	port *Port
	mask uint8

	local     State // driver state computed by the owner
	forced    State // external driver, when isForced
	isForced  bool
	voltage   float64 // volts, for Analog
	ov        Override
	openDrain bool

	net       *Net
	observers []Observer

	// last notified observation
	seen     State
	seenVolt float64
	seenOnce bool

	tv *trace.Value
}

// NewPin returns a standalone pin, initially tristate.
func NewPin(name string) *Pin {
	return &Pin{name: name}
}

func (p *Pin) Name() string { return p.name }
func (p *Pin) Port() *Port  { return p.port }
func (p *Pin) Net() *Net    { return p.net }

func (p *Pin) String() string {
	return fmt.Sprintf("%s(%s)", p.name, p.State())
}

// State returns the driver state of the pin: the forced state when an
// external driver is applied, otherwise the state computed by its owner.
func (p *Pin) State() State {
	if p.isForced {
		return p.forced
	}
	return p.local
}

// SetState sets the driver state of a standalone pin. For port pins, the
// state is recomputed by the port and SetState has a transient effect only.
func (p *Pin) SetState(s State) {
	p.local = s
	p.publish()
}

// Force applies an external driver to the pin, overriding whatever the
// owner drives. It is used for fault injection and external stimuli.
func (p *Pin) Force(s State) {
	p.forced = s
	p.isForced = true
	p.publish()
}

// Release removes the external driver applied by Force or SetAnalog.
func (p *Pin) Release() {
	if !p.isForced {
		return
	}
	p.isForced = false
	p.publish()
}

// Forced reports whether an external driver is applied.
func (p *Pin) Forced() bool { return p.isForced }

// SetAnalog drives the pin with an external voltage.
func (p *Pin) SetAnalog(volt float64) {
	p.voltage = volt
	p.Force(Analog)
}

// SetOpenDrain configures the pin output as open-drain: a high output
// releases the pin instead of driving it.
func (p *Pin) SetOpenDrain(on bool) {
	p.openDrain = on
	p.recalc()
}

// SetOverride installs the alternate function override of a port pin.
func (p *Pin) SetOverride(o Override) {
	p.ov = o
	p.recalc()
}

// ClearOverride removes any alternate function override.
func (p *Pin) ClearOverride() {
	p.SetOverride(Override{})
}

// Override returns the current alternate function override.
func (p *Pin) Override() Override { return p.ov }

func (p *Pin) recalc() {
	if p.port != nil {
		p.port.CalcOutputs()
	}
}

// Calc computes the driver state of a port pin from its data direction bit,
// its data bit and the global pull-up disable input. An applied external
// driver wins over the local computation.
func (p *Pin) Calc(ddr, port, pud bool) State {
	if p.isForced {
		return p.forced
	}
	return p.calcLocal(ddr, port, pud)
}

func (p *Pin) calcLocal(ddr, port, pud bool) State {
	o := p.ov
	if o.DDOE {
		ddr = o.DDOV
	}
	if o.PVOE {
		port = o.PVOV
	}

	if ddr {
		switch {
		case !port:
			return Low
		case p.openDrain:
			return OpenDrain
		}
		return High
	}

	pullup := port && !pud
	if o.PUOE {
		pullup = o.PUOV
	}
	if pullup {
		return PullUp
	}
	return Tristate
}

func (p *Pin) vcc() float64 {
	if p.net != nil {
		return p.net.Vcc
	}
	return DefaultVcc
}

// observed returns the state seen from the pin: the resolved state of its
// net, or its own driver state when unconnected.
func (p *Pin) observed() (State, float64) {
	if p.net != nil {
		return p.net.state, p.net.voltage
	}
	s := p.State()
	switch s {
	case High, PullUp:
		return s, p.vcc()
	case Analog:
		return s, p.voltage
	}
	return s, 0
}

// Level returns the logic level observed on the pin.
func (p *Pin) Level() bool {
	s, v := p.observed()
	return levelOf(s, v, p.vcc())
}

// AnalogValue returns the voltage observed on the pin, for a supply voltage
// of vcc.
func (p *Pin) AnalogValue(vcc float64) float64 {
	s, v := p.observed()
	switch s {
	case High, PullUp:
		return vcc
	case Analog:
		return v
	}
	return 0
}

// Observe registers an observer. Observers are notified in registration
// order.
func (p *Pin) Observe(o Observer) {
	p.observers = append(p.observers, o)
}

// Unobserve removes an observer.
func (p *Pin) Unobserve(o Observer) {
	for i, oo := range p.observers {
		if oo == o {
			p.observers = append(p.observers[:i], p.observers[i+1:]...)
			return
		}
	}
}

// Trace registers the pin driver state into the trace registry.
func (p *Pin) Trace(r *trace.Registry) {
	p.tv = r.Register(p.name+"-Out", trace.Char)
	p.tv.SetWritten(uint32(p.State().Char()))
}

// publish makes the current driver state visible: trace, then net or
// observers.
func (p *Pin) publish() {
	p.tv.Change(uint32(p.State().Char()))
	if p.net != nil {
		p.net.Update()
		return
	}
	p.notify()
}

// notify calls the observers if the observed state changed since the last
// notification.
func (p *Pin) notify() {
	s, v := p.observed()
	if p.seenOnce && s == p.seen && v == p.seenVolt {
		return
	}
	p.seen, p.seenVolt, p.seenOnce = s, v, true
	if p.port != nil {
		p.port.pinChanged()
	}
	for _, o := range p.observers {
		o.PinStateChanged(p)
	}
}
