package adc

import (
	"avrsim/emu/log"
	"avrsim/hw/gpio"
)

// Ref is the reference voltage source of the converter.
type Ref interface {
	// Value returns the reference voltage for the REFS selection sel.
	Value(sel int, vcc float64) float64
}

func invalidRef(name string, sel int) float64 {
	log.ModADC.WarnZ("invalid reference selection").
		String("ref", name).
		Int("sel", sel).
		End()
	return 0
}

// RefPin takes the reference from a dedicated AREF pin, whatever the
// selection.
type RefPin struct {
	Pin *gpio.Pin
}

func (r *RefPin) Value(sel int, vcc float64) float64 {
	return r.Pin.AnalogValue(vcc)
}

// Ref4Type is the layout of the 2-bit REFS selection of a Ref4.
type Ref4Type int

const (
	Ref4NoBandgap Ref4Type = iota // 0:aref, 1:vcc, 2:-,  3:2.56V
	Ref4BG3                       // 0:aref, 1:vcc, 2:bg, 3:2.56V
	Ref4BG4                       // 0:aref, 1:vcc, 2:-,  3:bg
)

// Ref4 selects between 3 or 4 sources: AREF pin, vcc, bandgap or internal
// 2.56V.
type Ref4 struct {
	RefPin
	Type Ref4Type
}

func (r *Ref4) Value(sel int, vcc float64) float64 {
	switch sel {
	case 0:
		return r.RefPin.Value(sel, vcc)
	case 1:
		return vcc
	case 2:
		if r.Type == Ref4BG3 {
			return Bandgap
		}
	case 3:
		if r.Type == Ref4BG4 {
			return Bandgap
		}
		return Internal256
	}
	return invalidRef("ref4", sel)
}

// Ref8 selects through 3 REFS bits between vcc, an AREF port pin, the
// 1.1V bandgap and the internal 2.56V reference.
type Ref8 struct {
	ARef *gpio.Pin
}

func (r *Ref8) Value(sel int, vcc float64) float64 {
	switch sel {
	case 0, 4:
		return vcc
	case 1, 5:
		return r.ARef.AnalogValue(vcc)
	case 2:
		return Bandgap
	case 6, 7:
		return Internal256
	}
	return invalidRef("ref8", sel)
}
