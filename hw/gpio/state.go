package gpio

import "avrsim/hw/snapshot"

func (p *Port) State() *snapshot.Port {
	return &snapshot.Port{
		Name: p.name,
		Port: p.port,
		DDR:  p.ddr,
		PIN:  p.GetPin(),
		PUD:  p.pud,
		Pins: p.String(),
	}
}

// SetState restores PORT, DDR and the pull-up disable input. Overrides and
// external drivers are not part of the state.
func (p *Port) SetState(state *snapshot.Port) {
	p.port = state.Port & p.mask
	p.ddr = state.DDR & p.mask
	p.pud = state.PUD
	p.CalcOutputs()
	p.PORT.HardwareChange(p.port)
	p.DDR.HardwareChange(p.ddr)
}
