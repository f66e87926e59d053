package adc

import "avrsim/hw/snapshot"

// Snapshot returns the converter state.
func (a *ADC) Snapshot() *snapshot.ADC {
	state := &snapshot.ADC{
		ADCH:       a.adch,
		ADCL:       a.adcl,
		ADCSRA:     a.adcsra,
		ADCSRB:     a.adcsrb,
		ADMUX:      a.admux,
		State:      int(a.state),
		First:      a.first,
		Locked:     a.adchLocked,
		Prescaler:  a.prescaler,
		HalfClocks: a.halfClocks,
		Sample:     a.sample,
		SampleMux:  a.sampleMux,
		SampleSrb:  a.sampleSrb,
	}
	if a.sfior != nil {
		state.ADTS = a.sfior.adts
	}
	return state
}

// Restore restores a state taken with Snapshot.
func (a *ADC) Restore(state *snapshot.ADC) {
	a.adch = state.ADCH
	a.adcl = state.ADCL
	a.adcsra = state.ADCSRA
	a.adcsrb = state.ADCSRB
	a.admux = state.ADMUX
	a.state = State(state.State)
	a.first = state.First
	a.adchLocked = state.Locked
	a.prescaler = state.Prescaler
	a.halfClocks = state.HalfClocks
	a.sample = state.Sample
	a.sampleMux = state.SampleMux
	a.sampleSrb = state.SampleSrb
	if a.sfior != nil {
		a.sfior.adts = state.ADTS
	}
	a.cfg.Mux.SetSelect(a.channel(a.admux, a.adcsrb))
	a.updateIRQ()
}
