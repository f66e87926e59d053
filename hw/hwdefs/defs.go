// Package hwdefs holds definitions shared by the hardware units.
package hwdefs

// Resetter is implemented by every hardware unit. Reset is idempotent and
// brings the unit back to its power-on state.
type Resetter interface {
	Reset()
}

// Stepper is implemented by hardware units polled by the simulation clock
// rather than notified by pin or register changes. Step returns whether a
// real hardware step happened and the number of ticks until the unit wants
// to be stepped again. A unit returning next <= 0 is descheduled.
type Stepper interface {
	Step() (hwStep bool, next int64)
}

// IRQLine lets a peripheral raise and clear one interrupt vector.
type IRQLine interface {
	SetIRQ(vec uint)
	ClearIRQ(vec uint)
}

// IRQClearer is implemented by peripherals wanting to be told when the
// interrupt system acknowledges one of their vectors.
type IRQClearer interface {
	ClearIrqFlag(vec uint)
}
