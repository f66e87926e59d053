package adc

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"avrsim/emu/log/logtest"
	"avrsim/hw/gpio"
	"avrsim/hw/hwio"
)

type fakeIRQ struct {
	pending map[uint]bool
}

func (f *fakeIRQ) SetIRQ(vec uint)   { f.pending[vec] = true }
func (f *fakeIRQ) ClearIRQ(vec uint) { delete(f.pending, vec) }

const vecADC = 8

type fixture struct {
	adc  *ADC
	pins [4]*gpio.Pin
	aref *gpio.Pin
	irq  *fakeIRQ
}

func newFixture() *fixture {
	f := &fixture{
		aref: gpio.NewPin("AREF"),
		irq:  &fakeIRQ{pending: make(map[uint]bool)},
	}
	for i := range f.pins {
		f.pins[i] = gpio.NewPin("ADC" + string(rune('0'+i)))
	}
	f.adc = New(Config{
		Type:   TypeT25,
		Mux:    NewMuxT25(f.pins),
		Ref:    &Ref8{ARef: f.aref},
		IRQ:    f.irq,
		Vector: vecADC,
	})
	return f
}

// run steps the converter until a conversion completes and returns the
// number of CPU clocks it took.
func (f *fixture) run(t *testing.T) int {
	t.Helper()
	for n := 1; n < 100000; n++ {
		f.adc.Step()
		if f.adc.adcsra&ADIF != 0 {
			return n
		}
	}
	t.Fatalf("conversion did not complete")
	return 0
}

// start clears ADIF and starts a single conversion.
func (f *fixture) start(extra uint8) {
	f.adc.ADCSRA.Write8(0, ADEN|ADSC|ADIF|extra)
}

func (f *fixture) result() (adch, adcl uint8) {
	adcl = f.adc.ADCL.Read8(0, false)
	adch = f.adc.ADCH.Read8(0, false)
	return adch, adcl
}

func TestConvertUnipolar(t *testing.T) {
	tests := []struct {
		volt, ref float64
		want      uint16
	}{
		{2.5, 5, 512},
		{2.4999, 5, 511},
		{1.25, 5, 256},
		{0, 5, 0},
		{5, 5, 1023},
		{6, 5, 1023},
		{-1, 5, 0},
		{1, 0, 0},
	}
	for _, tt := range tests {
		if got := ConvertUnipolar(tt.volt, tt.ref); got != tt.want {
			t.Errorf("ConvertUnipolar(%v, %v) = %d, want %d", tt.volt, tt.ref, got, tt.want)
		}
	}
}

func TestConvertBipolar(t *testing.T) {
	tests := []struct {
		volt, ref float64
		want      uint16
	}{
		{0, 5, 0},
		{1, 5, 102},
		{-1, 5, 0x39a},
		{10, 5, 511},
		{-10, 5, 0x200},
	}
	for _, tt := range tests {
		if got := ConvertBipolar(tt.volt, tt.ref); got != tt.want {
			t.Errorf("ConvertBipolar(%v, %v) = %#x, want %#x", tt.volt, tt.ref, got, tt.want)
		}
	}
}

func TestSingleConversion(t *testing.T) {
	f := newFixture()
	f.pins[1].SetAnalog(2.5)
	f.adc.ADMUX.Write8(0, 0x01)

	f.start(0)
	if n := f.run(t); n != 51 {
		t.Errorf("first conversion took %d clocks, want 51", n)
	}
	if f.adc.State() != Idle {
		t.Errorf("State() = %v, want idle", f.adc.State())
	}
	if f.adc.adcsra&ADSC != 0 {
		t.Errorf("ADSC still set after a single conversion")
	}
	if adch, adcl := f.result(); adch != 0x02 || adcl != 0x00 {
		t.Errorf("result = %02x:%02x, want 02:00", adch, adcl)
	}

	f.pins[1].SetAnalog(2.4999)
	f.start(0)
	if n := f.run(t); n != 27 {
		t.Errorf("second conversion took %d clocks, want 27", n)
	}
	if adch, adcl := f.result(); adch != 0x01 || adcl != 0xff {
		t.Errorf("result = %02x:%02x, want 01:ff", adch, adcl)
	}
}

func TestPrescaler(t *testing.T) {
	f := newFixture()
	f.pins[0].SetAnalog(1)
	f.start(3) // division by 8
	if n := f.run(t); n != 51*4 {
		t.Errorf("first conversion took %d clocks, want %d", n, 51*4)
	}
}

func TestArefReference(t *testing.T) {
	f := newFixture()
	f.aref.SetAnalog(2.5)
	f.pins[2].SetAnalog(1.25)
	f.adc.ADMUX.Write8(0, 0x40|0x02)
	f.start(0)
	f.run(t)
	if got := f.adc.Result(); got != 512 {
		t.Errorf("Result() = %d, want 512", got)
	}
}

func TestLeftAdjust(t *testing.T) {
	f := newFixture()
	f.pins[0].SetAnalog(5)
	f.adc.ADMUX.Write8(0, ADLAR)
	f.start(0)
	f.run(t)
	if adch, adcl := f.result(); adch != 0xff || adcl != 0xc0 {
		t.Errorf("result = %02x:%02x, want ff:c0", adch, adcl)
	}
	if got := f.adc.Result(); got != 1023 {
		t.Errorf("Result() = %d, want 1023", got)
	}
}

func TestDataProtection(t *testing.T) {
	rec := logtest.Capture(t)
	f := newFixture()

	f.pins[0].SetAnalog(1.25)
	f.start(0)
	f.run(t)
	if adcl := f.adc.ADCL.Read8(0, false); adcl != 0x00 {
		t.Fatalf("ADCL = %02x, want 00", adcl)
	}

	// ADCH not read yet: the next result is dropped.
	f.pins[0].SetAnalog(2.5)
	f.start(0)
	f.run(t)
	if adch := f.adc.ADCH.Read8(0, false); adch != 0x01 {
		t.Errorf("ADCH = %02x, want 01 (first result)", adch)
	}
	if diff := cmp.Diff([]string{"conversion result lost, ADCH not read"}, rec.Messages("adc")); diff != "" {
		t.Errorf("diagnostics mismatch (-want +got):\n%s", diff)
	}

	f.start(0)
	f.run(t)
	if adch, _ := f.result(); adch != 0x02 {
		t.Errorf("ADCH = %02x, want 02 after unlock", adch)
	}
}

func TestDifferential(t *testing.T) {
	tests := []struct {
		name       string
		admux      uint8
		adcsrb     uint8
		adch, adcl uint8
	}{
		{"bipolar", 0x06, BIN, 0x03, 0x9a},
		{"unipolar clamps", 0x06, 0, 0x00, 0x00},
		{"polarity reversed", 0x06, BIN | IPR, 0x00, 0x66},
		{"gain saturates", 0x07, BIN, 0x02, 0x00},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			f.pins[2].SetAnalog(1)
			f.pins[3].SetAnalog(2)
			f.adc.ADCSRB.Write8(0, tt.adcsrb)
			f.adc.ADMUX.Write8(0, tt.admux)
			f.start(0)
			f.run(t)
			if adch, adcl := f.result(); adch != tt.adch || adcl != tt.adcl {
				t.Errorf("result = %02x:%02x, want %02x:%02x", adch, adcl, tt.adch, tt.adcl)
			}
		})
	}
}

func TestDisable(t *testing.T) {
	f := newFixture()
	f.pins[0].SetAnalog(1)
	f.start(0)
	f.run(t)

	f.start(0)
	for range 10 {
		f.adc.Step()
	}
	if f.adc.State() != Running {
		t.Fatalf("State() = %v, want running", f.adc.State())
	}
	f.adc.ADCSRA.Write8(0, 0)
	if f.adc.State() != Idle {
		t.Errorf("State() after disable = %v, want idle", f.adc.State())
	}
	if f.adc.adcsra&ADSC != 0 {
		t.Errorf("ADSC set after disable")
	}

	// Next conversion is a first conversion again.
	f.start(0)
	if n := f.run(t); n != 51 {
		t.Errorf("conversion after re-enable took %d clocks, want 51", n)
	}
}

func TestInterrupt(t *testing.T) {
	f := newFixture()
	f.pins[0].SetAnalog(1)

	f.start(ADIE)
	f.run(t)
	if !f.irq.pending[vecADC] {
		t.Fatalf("interrupt not raised")
	}

	// Writing one to ADIF clears it.
	f.adc.ADCSRA.Write8(0, ADEN|ADIE|ADIF)
	if f.adc.adcsra&ADIF != 0 || f.irq.pending[vecADC] {
		t.Errorf("ADIF/irq not cleared by writing one")
	}

	f.start(ADIE)
	f.run(t)
	f.adc.ClearIrqFlag(vecADC)
	if f.adc.adcsra&ADIF != 0 || f.irq.pending[vecADC] {
		t.Errorf("ADIF/irq not cleared by interrupt acknowledge")
	}

	// No interrupt without ADIE.
	f.start(0)
	f.run(t)
	if f.irq.pending[vecADC] {
		t.Errorf("interrupt raised with ADIE clear")
	}
}

func TestFreeRunning(t *testing.T) {
	f := newFixture()
	f.pins[0].SetAnalog(1)
	f.start(ADATE)
	if n := f.run(t); n != 51 {
		t.Errorf("first conversion took %d clocks, want 51", n)
	}
	if f.adc.State() != Running || f.adc.adcsra&ADSC == 0 {
		t.Fatalf("free running conversion stopped: state %v, ADCSRA %02x", f.adc.State(), f.adc.adcsra)
	}
	f.adc.ADCSRA.Write8(0, ADEN|ADATE|ADIF)
	if n := f.run(t); n != 26 {
		t.Errorf("next conversion took %d clocks, want 26", n)
	}
}

func TestSFIORTrigger(t *testing.T) {
	sfior := &hwio.SpecialReg{Name: "SFIOR"}
	pin := gpio.NewPin("ADC0")
	pin.SetAnalog(1)
	var pins [4]*gpio.Pin
	pins[0] = pin
	for i := 1; i < 4; i++ {
		pins[i] = gpio.NewPin("ADC" + string(rune('0'+i)))
	}
	a := NewWithSFIOR(Config{Type: TypeM16, Mux: NewMuxT25(pins), Ref: &Ref8{ARef: pin}}, sfior)
	f := &fixture{adc: a}

	sfior.Write8(0, 0x20|0x01)
	if got := a.TriggerSource(); got != 1 {
		t.Fatalf("TriggerSource() = %d, want 1", got)
	}
	if got := sfior.Read8(0, false); got != 0x21 {
		t.Errorf("SFIOR = %02x, want 21", got)
	}
	f.start(ADATE)
	f.run(t)
	if a.State() != Idle {
		t.Errorf("State() = %v with external trigger source, want idle", a.State())
	}

	sfior.Write8(0, 0)
	f.start(ADATE)
	f.run(t)
	if a.State() != Running {
		t.Errorf("State() = %v in free running mode, want running", a.State())
	}

	sfior.Write8(0, 0x40)
	a.Reset()
	if got := a.TriggerSource(); got != 0 {
		t.Errorf("TriggerSource() after reset = %d, want 0", got)
	}
}

type countListener int

func (c *countListener) SignalChanged() { *c++ }

func TestMuxSignalChange(t *testing.T) {
	f := newFixture()
	var n countListener
	f.adc.SetListener(&n)
	f.adc.ADMUX.Write8(0, 0x01)

	f.pins[1].SetAnalog(1)
	f.pins[0].SetAnalog(1)
	f.pins[1].SetAnalog(2)
	if n != 2 {
		t.Errorf("listener called %d times, want 2", n)
	}

	f.adc.ADCSRB.Write8(0, ACME)
	if !f.adc.ACME() || f.adc.Enabled() {
		t.Errorf("ACME() = %t, Enabled() = %t", f.adc.ACME(), f.adc.Enabled())
	}
	if got := f.adc.MuxValue(5); got != 2 {
		t.Errorf("MuxValue() = %v, want 2", got)
	}
}

func TestReset(t *testing.T) {
	f := newFixture()
	f.pins[0].SetAnalog(1)
	f.adc.ADMUX.Write8(0, ADLAR)
	f.start(ADIE)
	f.run(t)

	f.adc.Reset()
	for _, reg := range []*hwio.IOReg{&f.adc.ADCH, &f.adc.ADCL, &f.adc.ADCSRA, &f.adc.ADCSRB, &f.adc.ADMUX} {
		if got := reg.Read8(0, true); got != 0 {
			t.Errorf("%s = %02x after reset, want 00", reg.Name, got)
		}
	}
	if f.adc.State() != Idle || len(f.irq.pending) != 0 {
		t.Errorf("State() = %v, pending irqs %v after reset", f.adc.State(), f.irq.pending)
	}
	if diff := cmp.Diff(newFixture().adc.Snapshot(), f.adc.Snapshot()); diff != "" {
		t.Errorf("state after reset differs from power-on (-want +got):\n%s", diff)
	}
}
