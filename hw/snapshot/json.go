package snapshot

import (
	"github.com/go-faster/jx"
)

// EncodeJSON writes the snapshot as a JSON object.
func (t *Tiny) EncodeJSON(e *jx.Encoder) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("version", func(e *jx.Encoder) { e.Int(t.Version) })
		e.Field("model", func(e *jx.Encoder) { e.Str(t.Model) })
		e.Field("tick", func(e *jx.Encoder) { e.Int64(t.Tick) })
		e.Field("gpr", func(e *jx.Encoder) { e.Base64(t.GPR[:]) })
		e.Field("sram", func(e *jx.Encoder) { e.Base64(t.SRAM) })
		e.Field("gpior", func(e *jx.Encoder) {
			e.Arr(func(e *jx.Encoder) {
				for _, v := range t.GPIOR {
					e.UInt8(v)
				}
			})
		})
		e.Field("mcucr", func(e *jx.Encoder) { e.UInt8(t.MCUCR) })
		e.Field("gtccr", func(e *jx.Encoder) { e.UInt8(t.GTCCR) })
		e.Field("prescaler", func(e *jx.Encoder) {
			e.Obj(func(e *jx.Encoder) {
				e.Field("counter", func(e *jx.Encoder) { e.UInt16(t.Prescaler.Counter) })
				e.Field("held", func(e *jx.Encoder) { e.Bool(t.Prescaler.Held) })
			})
		})
		e.Field("portb", func(e *jx.Encoder) { t.PortB.encodeJSON(e) })
		e.Field("adc", func(e *jx.Encoder) { t.ADC.encodeJSON(e) })
		e.Field("irqs", func(e *jx.Encoder) {
			e.Arr(func(e *jx.Encoder) {
				for _, v := range t.IRQs {
					e.UInt(v)
				}
			})
		})
	})
}

func (p *Port) encodeJSON(e *jx.Encoder) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("name", func(e *jx.Encoder) { e.Str(p.Name) })
		e.Field("port", func(e *jx.Encoder) { e.UInt8(p.Port) })
		e.Field("ddr", func(e *jx.Encoder) { e.UInt8(p.DDR) })
		e.Field("pin", func(e *jx.Encoder) { e.UInt8(p.PIN) })
		e.Field("pud", func(e *jx.Encoder) { e.Bool(p.PUD) })
		e.Field("pins", func(e *jx.Encoder) { e.Str(p.Pins) })
	})
}

func (a *ADC) encodeJSON(e *jx.Encoder) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("adch", func(e *jx.Encoder) { e.UInt8(a.ADCH) })
		e.Field("adcl", func(e *jx.Encoder) { e.UInt8(a.ADCL) })
		e.Field("adcsra", func(e *jx.Encoder) { e.UInt8(a.ADCSRA) })
		e.Field("adcsrb", func(e *jx.Encoder) { e.UInt8(a.ADCSRB) })
		e.Field("admux", func(e *jx.Encoder) { e.UInt8(a.ADMUX) })
		e.Field("state", func(e *jx.Encoder) { e.Int(a.State) })
		e.Field("first", func(e *jx.Encoder) { e.Bool(a.First) })
		e.Field("locked", func(e *jx.Encoder) { e.Bool(a.Locked) })
	})
}
