package hwio_test

import (
	"testing"

	"avrsim/emu/log/logtest"
	"avrsim/hw/hwio"
	"avrsim/hw/trace"
)

// periph is a peripheral owning a register with side effects on byte writes.
type periph struct {
	val       uint8
	byteSets  int
	bitWrites int
}

func (p *periph) get() uint8 { return p.val }
func (p *periph) set(v uint8) {
	p.byteSets++
	p.val = v
}
func (p *periph) setBit(v bool, n uint) {
	p.bitWrites++
	hwio.SetBitTo8(&p.val, n, v)
}

func TestIORegBitAccessEquivalence(t *testing.T) {
	// For every start value and bit position, SetBit8/ClearBit8 must be
	// equivalent to the read-modify-write, with or without bit accessors.
	for _, withBitAcc := range []bool{false, true} {
		for start := range 256 {
			for n := range uint(8) {
				p := &periph{val: uint8(start)}
				reg := &hwio.IOReg{Name: "R", Get: p.get, Set: p.set}
				if withBitAcc {
					reg.SetBit = p.setBit
				}

				before := reg.Read8(0, false)
				reg.SetBit8(0, n)
				if got, want := reg.Read8(0, false), before|1<<n; got != want {
					t.Fatalf("bitacc=%t start=%02x SetBit8(%d) = %02x, want %02x", withBitAcc, start, n, got, want)
				}

				before = reg.Read8(0, false)
				reg.ClearBit8(0, n)
				if got, want := reg.Read8(0, false), before&^(1<<n); got != want {
					t.Fatalf("bitacc=%t start=%02x ClearBit8(%d) = %02x, want %02x", withBitAcc, start, n, got, want)
				}

				if withBitAcc && p.byteSets != 0 {
					t.Fatalf("byte setter called %d times, bit accessor should have been used", p.byteSets)
				}
			}
		}
	}
}

func TestPlainCellBitAccess(t *testing.T) {
	// Cells without BitIO8 go through the read-modify-write fallback.
	reg := &hwio.Reg8{Name: "GPIOR0", Value: 0x5a}
	hwio.SetBit8(reg, 0, 0)
	hwio.ClearBit8(reg, 0, 1)
	if reg.Value != 0x59 {
		t.Errorf("GPIOR0 = %02x, want 59", reg.Value)
	}
}

func TestIORegUnsupported(t *testing.T) {
	rec := logtest.Capture(t)

	p := &periph{val: 0x33}
	ro := &hwio.IOReg{Name: "RO", Get: p.get}
	wo := &hwio.IOReg{Name: "WO", Set: p.set}

	ro.Write8(0x20, 0xff)
	if p.val != 0x33 {
		t.Errorf("write to getter-only reg changed value to %02x", p.val)
	}
	if got := wo.Read8(0x21, false); got != 0 {
		t.Errorf("read of setter-only reg = %02x, want 0", got)
	}
	ro.SetBit8(0x20, 1)
	if p.val != 0x33 {
		t.Errorf("bit write to getter-only reg changed value to %02x", p.val)
	}
	if got := rec.Warnings(); got != 3 {
		t.Errorf("got %d warnings, want 3", got)
	}

	// peek never warns
	rec.Reset()
	wo.Read8(0x21, true)
	if got := rec.Warnings(); got != 0 {
		t.Errorf("peek emitted %d warnings", got)
	}
}

// adder adds a constant on writes and xors a mask on reads.
type adder struct {
	add, xor uint8
	seen     []uint8
}

func (a *adder) SetFromReg(_ *hwio.SpecialReg, v uint8) uint8 {
	a.seen = append(a.seen, v)
	return v + a.add
}

func (a *adder) GetFromClient(_ *hwio.SpecialReg, v uint8) uint8 {
	return v ^ a.xor
}

// doubler multiplies by 2 on writes and adds on reads.
type doubler struct{}

func (doubler) SetFromReg(_ *hwio.SpecialReg, v uint8) uint8    { return v * 2 }
func (doubler) GetFromClient(_ *hwio.SpecialReg, v uint8) uint8 { return v + 3 }

func TestSpecialRegClientOrder(t *testing.T) {
	s0 := &adder{add: 1, xor: 0x80}
	s1 := doubler{}

	reg := &hwio.SpecialReg{Name: "GTCCR"}
	reg.Connect(s0)
	reg.Connect(s1)

	reg.Write8(0, 10)
	// stored = S1.write(S0.write(10)) = (10+1)*2
	if got := reg.Value(); got != 22 {
		t.Fatalf("stored value = %d, want 22", got)
	}
	// read = S1.read(S0.read(22)) = (22^0x80)+3
	if got := reg.Read8(0, false); got != (22^0x80)+3 {
		t.Fatalf("read = %d, want %d", got, (22^0x80)+3)
	}
	if reg.Value() != 22 {
		t.Fatalf("read modified the stored value: %d", reg.Value())
	}
	if len(s0.seen) != 1 || s0.seen[0] != 10 {
		t.Errorf("first client saw %v, want [10]", s0.seen)
	}

	// Swapping registration order changes the outcome.
	reg2 := &hwio.SpecialReg{Name: "GTCCR"}
	reg2.Connect(s1)
	reg2.Connect(s0)
	reg2.Write8(0, 10)
	if got := reg2.Value(); got != 21 {
		t.Errorf("stored value with swapped clients = %d, want 21", got)
	}
}

func TestSpecialRegNoClients(t *testing.T) {
	reg := &hwio.SpecialReg{Name: "SFIOR"}
	reg.Write8(0, 0xa5)
	if got := reg.Read8(0, false); got != 0xa5 {
		t.Errorf("read = %02x, want a5", got)
	}
	reg.HardwareChangeMask(0x00, 0x0f)
	if got := reg.Value(); got != 0xa0 {
		t.Errorf("value after masked change = %02x, want a0", got)
	}
	reg.Reset()
	if got := reg.Read8(0, false); got != 0 {
		t.Errorf("read after reset = %02x, want 0", got)
	}
}

func TestTableInvalidAddress(t *testing.T) {
	rec := logtest.Capture(t)

	tbl := hwio.NewTable("data", 0x60)
	gpior := &hwio.Reg8{Name: "GPIOR0"}
	tbl.MapReg8(0x31, gpior)
	tbl.Reserve(0x20, 0x2f)

	for _, addr := range []uint16{0x20, 0x50, 0x1234} {
		rec.Reset()
		if got := tbl.Read8(addr); got != 0 {
			t.Errorf("Read8(%04x) = %02x, want 0", addr, got)
		}
		if got := rec.Warnings(); got != 1 {
			t.Errorf("Read8(%04x) emitted %d diagnostics, want 1", addr, got)
		}
		if !hwio.IsInvalid(tbl.Cell(addr)) {
			t.Errorf("Cell(%04x) should be invalid", addr)
		}
	}

	rec.Reset()
	tbl.Write8(0x50, 0x12)
	tbl.SetBit8(0x50, 3)
	if got := rec.Warnings(); got != 2 {
		t.Errorf("invalid writes emitted %d diagnostics, want 2", got)
	}

	rec.Reset()
	tbl.Write8(0x31, 0x12)
	tbl.SetBit8(0x31, 7)
	if got := tbl.Read8(0x31); got != 0x92 {
		t.Errorf("GPIOR0 = %02x, want 92", got)
	}
	if got := rec.Warnings(); got != 0 {
		t.Errorf("valid accesses emitted %d diagnostics", got)
	}
}

func TestTableNotSimulated(t *testing.T) {
	rec := logtest.Capture(t)

	tbl := hwio.NewTable("data", 0x60)
	tbl.Map(0x3c, &hwio.NotSimulated{Name: "EECR", Message: "eeprom is not simulated"})
	tbl.Write8(0x3c, 1)
	if got := tbl.Read8(0x3c); got != 0 {
		t.Errorf("Read8 = %02x, want 0", got)
	}
	msgs := rec.Messages("hwio")
	if len(msgs) != 2 || msgs[0] != "eeprom is not simulated" {
		t.Errorf("got messages %q", msgs)
	}
}

type bank struct {
	GPIOR0 hwio.Reg8  `hwio:"offset=0x0,reset=0x11"`
	GPIOR1 hwio.Reg8  `hwio:"offset=0x1"`
	RAM    hwio.Mem   `hwio:"offset=0x10,bank=1"`
	STATUS hwio.IOReg `hwio:"offset=0x2,get"`
}

func (b *bank) GetSTATUS() uint8 { return 0x80 }

func TestTableMapBank(t *testing.T) {
	b := &bank{RAM: hwio.Mem{Data: make([]byte, 4), VSize: 8}}
	hwio.MustInitRegs(b)

	tbl := hwio.NewTable("data", 0x100)
	tbl.MapBank(0x30, b, 0)
	tbl.MapBank(0x60, b, 1)

	if got := tbl.Read8(0x30); got != 0x11 {
		t.Errorf("GPIOR0 = %02x, want 11", got)
	}
	if got := tbl.Read8(0x32); got != 0x80 {
		t.Errorf("STATUS = %02x, want 80", got)
	}

	tbl.Write8(0x70, 0xab)
	if got := tbl.Read8(0x74); got != 0xab {
		t.Errorf("mirrored RAM = %02x, want ab", got)
	}
	if tbl.Mapped(0x78) {
		t.Errorf("RAM mapped beyond its virtual size")
	}

	tbl.Unmap(0x30, 0x31)
	if tbl.Mapped(0x30) || tbl.Mapped(0x31) || !tbl.Mapped(0x32) {
		t.Errorf("Unmap unmapped the wrong range")
	}
}

func TestTableDoubleMapPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("mapping twice the same address should panic")
		}
	}()
	tbl := hwio.NewTable("data", 0x10)
	tbl.MapReg8(1, &hwio.Reg8{})
	tbl.MapReg8(1, &hwio.Reg8{})
}

func TestIORegTrace(t *testing.T) {
	tr := trace.NewTracer(nil)
	mem := &trace.Memory{}

	p := &periph{}
	reg := &hwio.IOReg{Name: "DDRB", Get: p.get, Set: p.set}
	r := tr.Registry("PORTB")
	reg.Trace(r)

	reg.Write8(0x37, 1) // tracing off: no record
	tr.SetSink(mem)
	reg.Write8(0x37, 3)
	reg.HardwareChange(3)
	reg.Read8(0x37, false)
	reg.Read8(0x37, true) // peek: no record

	kinds := []trace.Kind{trace.Write, trace.Change, trace.Read}
	if len(mem.Records) != len(kinds) {
		t.Fatalf("got %d records, want %d: %v", len(mem.Records), len(kinds), mem.Records)
	}
	for i, k := range kinds {
		if mem.Records[i].Kind != k || mem.Records[i].Name != "PORTB.DDRB" {
			t.Errorf("record %d = %+v, want kind %v", i, mem.Records[i], k)
		}
	}
	if p.val != 3 {
		t.Errorf("tracing altered behavior, value = %d", p.val)
	}

	reg.ReleaseTrace(r)
	reg.Write8(0x37, 4)
	if len(mem.Records) != len(kinds) {
		t.Errorf("released register still traced: %v", mem.Records[len(kinds):])
	}
	if _, ok := r.Find("PORTB.DDRB"); ok {
		t.Errorf("released register still in registry")
	}
}

func TestTable16(t *testing.T) {
	var order []string
	lo := &hwio.Reg8{Name: "L", WriteCb: func(old, val uint8) { order = append(order, "L") }}
	hi := &hwio.Reg8{Name: "H", WriteCb: func(old, val uint8) { order = append(order, "H") }}

	tbl := hwio.NewTable("data", 0x10)
	tbl.MapReg8(4, lo)
	tbl.MapReg8(5, hi)

	tbl.Write16(4, 0x1234)
	if got := tbl.Read16(4); got != 0x1234 {
		t.Errorf("Read16 = %#04x, want 0x1234", got)
	}
	if len(order) != 2 || order[0] != "H" {
		t.Errorf("write order = %v, want [H L]", order)
	}
}
