package gpio

import (
	"fmt"
	"sort"
)

// PinRegistry indexes the pins of a device by name.
type PinRegistry struct {
	pins map[string]*Pin
}

// Register adds pins to the registry. It panics on duplicate names.
func (r *PinRegistry) Register(pins ...*Pin) {
	if r.pins == nil {
		r.pins = make(map[string]*Pin)
	}
	for _, p := range pins {
		if _, ok := r.pins[p.name]; ok {
			panic(fmt.Sprintf("gpio: duplicate pin name %q", p.name))
		}
		r.pins[p.name] = p
	}
}

// RegisterPort adds all pins of port.
func (r *PinRegistry) RegisterPort(port *Port) {
	r.Register(port.pins...)
}

func (r *PinRegistry) Pin(name string) (*Pin, bool) {
	p, ok := r.pins[name]
	return p, ok
}

// Names returns the sorted pin names.
func (r *PinRegistry) Names() []string {
	names := make([]string, 0, len(r.pins))
	for name := range r.pins {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
