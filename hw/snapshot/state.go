// Package snapshot holds plain data copies of the device state, used to save
// and restore a simulation and to display it.
package snapshot

type Tiny struct {
	Version int
	Model   string
	Tick    int64

	GPR   [32]uint8
	SRAM  []uint8
	GPIOR [3]uint8
	MCUCR uint8
	GTCCR uint8

	Prescaler Prescaler
	PortB     Port
	ADC       ADC
	IRQs      []uint
}

type Prescaler struct {
	Counter uint16
	Held    bool
}

type Port struct {
	Name string
	Port uint8
	DDR  uint8
	PIN  uint8 // observed levels, informative
	PUD  bool
	Pins string // pin states, msb first
}

type ADC struct {
	ADCH   uint8
	ADCL   uint8
	ADCSRA uint8
	ADCSRB uint8
	ADMUX  uint8

	State      int
	First      bool
	Locked     bool
	Prescaler  int
	HalfClocks int
	Sample     float64
	SampleMux  uint8
	SampleSrb  uint8
	ADTS       uint8 // SFIOR trigger source, if any
}
