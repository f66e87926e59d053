package gpio

import (
	"strings"

	"avrsim/emu/log"
)

// maxNetPasses bounds the number of resolution passes caused by observers
// changing pins of the net they observe.
const maxNetPasses = 64

type conflictKind uint8

const (
	noConflict conflictKind = iota
	driverConflict
	pullConflict
)

// A Net electrically connects pins. Its state is resolved from the driver
// states of all connected pins, independently of the connection order.
type Net struct {
	Name string
	Vcc  float64

	pins     []*Pin
	state    State
	voltage  float64
	conflict conflictKind

	updating bool
	pending  bool
}

func NewNet(name string) *Net {
	return &Net{Name: name, Vcc: DefaultVcc}
}

// Add connects p to the net, disconnecting it from any other net first.
func (n *Net) Add(p *Pin) {
	if p.net == n {
		return
	}
	if p.net != nil {
		p.net.Remove(p)
	}
	n.pins = append(n.pins, p)
	p.net = n
	n.Update()
}

// Remove disconnects p from the net.
func (n *Net) Remove(p *Pin) {
	for i, pp := range n.pins {
		if pp == p {
			n.pins = append(n.pins[:i], n.pins[i+1:]...)
			p.net = nil
			n.Update()
			p.notify()
			return
		}
	}
}

// Pins returns the connected pins, in connection order.
func (n *Net) Pins() []*Pin {
	return append([]*Pin(nil), n.pins...)
}

// Resolved returns the resolved state of the net.
func (n *Net) Resolved() State { return n.state }

// Level returns the logic level of the net. A floating net reads low.
func (n *Net) Level() bool {
	return levelOf(n.state, n.voltage, n.Vcc)
}

// Voltage returns the resolved voltage of the net.
func (n *Net) Voltage() float64 { return n.voltage }

// Update resolves the net and notifies the pins whose observed state
// changed, in connection order. An update requested while notifying is run
// once the current pass is over.
func (n *Net) Update() {
	if n.updating {
		n.pending = true
		return
	}
	n.updating = true
	defer func() { n.updating = false }()

	for pass := 0; ; pass++ {
		if pass == maxNetPasses {
			log.ModNet.WarnZ("net does not settle").
				String("net", n.Name).
				End()
			return
		}
		n.pending = false
		n.resolve()
		for _, p := range n.pins {
			p.notify()
		}
		if !n.pending {
			return
		}
	}
}

func (n *Net) resolve() {
	var (
		lo, hi, pu, pd int
		analog         int
		volts          float64
	)
	for _, p := range n.pins {
		switch p.State() {
		case Low:
			lo++
		case High:
			hi++
		case Analog:
			analog++
			volts += p.voltage
			if p.voltage > n.Vcc/2 {
				hi++
			} else {
				lo++
			}
		case PullUp:
			pu++
		case PullDown:
			pd++
		}
	}

	prev := n.conflict
	n.conflict = noConflict
	switch {
	case lo > 0 && hi > 0:
		n.state, n.voltage = Shorted, 0
		n.conflict = driverConflict
	case analog > 0 && analog == lo+hi:
		// only analog drivers, agreeing on the logic level
		n.state, n.voltage = Analog, volts/float64(analog)
	case hi > 0:
		n.state, n.voltage = High, n.Vcc
	case lo > 0:
		n.state, n.voltage = Low, 0
	case pu > 0 && pd > 0:
		n.state, n.voltage = PullDown, 0
		n.conflict = pullConflict
	case pu > 0:
		n.state, n.voltage = PullUp, n.Vcc
	case pd > 0:
		n.state, n.voltage = PullDown, 0
	default:
		n.state, n.voltage = Tristate, 0
	}

	// Report a conflict once, when it appears.
	if n.conflict == prev {
		return
	}
	switch n.conflict {
	case driverConflict:
		log.ModNet.WarnZ("net driver conflict").
			String("net", n.Name).
			String("pins", n.pinStates()).
			End()
	case pullConflict:
		log.ModNet.WarnZ("net pull conflict").
			String("net", n.Name).
			String("pins", n.pinStates()).
			End()
	}
}

func (n *Net) pinStates() string {
	var sb strings.Builder
	for i, p := range n.pins {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(p.String())
	}
	return sb.String()
}
