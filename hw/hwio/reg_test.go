package hwio

import "testing"

func TestReg8(t *testing.T) {
	r := Reg8{Value: 0x11, RoMask: 0xF0}

	if got := r.Read8(0, false); got != 0x11 {
		t.Errorf("invalid read: %x", got)
	}
	if got := r.Read8(9999, false); got != 0x11 {
		t.Errorf("invalid read with offset: %x", got)
	}

	r.Write8(0, 0x77)
	if r.Value != 0x17 {
		t.Errorf("writemask not respected: %x", r.Value)
	}
	r.Write8(9999, 0x88)
	if r.Value != 0x18 {
		t.Errorf("writemask with offset not respected: %x", r.Value)
	}
}

func TestReg8ReadWriteOnly(t *testing.T) {
	ro := Reg8{Name: "RO", Value: 0x23, Flags: ReadOnlyFlag}
	ro.Write8(0, 0)
	if got := ro.Read8(0, false); got != 0x23 {
		t.Errorf("readonly reg read = %02x, want 23", got)
	}

	wo := Reg8{Name: "WO", Flags: WriteOnlyFlag}
	wo.Write8(0, 0x23)
	if got := wo.Read8(0, false); got != 0 {
		t.Errorf("writeonly reg read = %02x, want 0", got)
	}
	if got := wo.Read8(0, true); got != 0x23 {
		t.Errorf("writeonly reg peek = %02x, want 23", got)
	}
}
