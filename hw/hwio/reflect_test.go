package hwio

import "testing"

type test1 struct {
	Reg1   Reg8  `hwio:"offset=0x11,reset=0x23,rwmask=0x1,wcb"`
	Reg2   Reg8  `hwio:"offset=0x44,bank=1,rcb"`
	Reg3   Reg8  `hwio:"offset=0x45,bank=1,pcb=PeekStatus"`
	CTRL   IOReg `hwio:"offset=0x12,get,set,setbit"`
	called bool
	ctrl   uint8
}

func (t *test1) WriteREG1(old, val uint8) {
	t.called = true
}

func (t *test1) ReadREG2(val uint8) uint8 {
	return val | 1
}

func (t *test1) PeekStatus(val uint8) uint8 { return 0x42 }

func (t *test1) GetCTRL() uint8    { return t.ctrl }
func (t *test1) SetCTRL(val uint8)  { t.ctrl = val }
func (t *test1) SetBitCTRL(val bool, n uint) {
	SetBitTo8(&t.ctrl, n, val)
}

func TestInitRegs(t *testing.T) {
	ts := &test1{}

	if err := InitRegs(ts); err != nil {
		t.Fatal(err)
	}

	if ts.Reg1.Name != "Reg1" || ts.Reg2.Name != "Reg2" || ts.CTRL.Name != "CTRL" {
		t.Error("invalid names:", ts.Reg1, ts.Reg2, ts.CTRL.String())
	}

	if got := ts.Reg2.Read8(0, false); got != 1 {
		t.Error("invalid read8:", got)
	}
	if got := ts.Reg3.Read8(0, true); got != 0x42 {
		t.Error("invalid peek8:", got)
	}

	if val := ts.Reg1.Read8(0, false); val != 0x23 {
		t.Error("invalid read8", val)
	}

	ts.Reg1.Write8(0, 0)
	if ts.Reg1.Value != 0x22 {
		t.Error("invalid read after rwmask", ts.Reg1.Value)
	}
	if !ts.called {
		t.Error("callback not called")
	}

	ts.CTRL.Write8(0, 0x81)
	ts.CTRL.SetBit8(0, 3)
	if got := ts.CTRL.Read8(0, false); got != 0x89 {
		t.Errorf("CTRL = %02x, want 89", got)
	}
}

func TestBankGetRegs(t *testing.T) {
	ts := &test1{}
	info, err := bankGetRegs(ts, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(info) != 2 {
		t.Fatal("wrong number of regs in bank:", len(info))
	}
	if info[0].offset != 0x11 {
		t.Errorf("invalid reg offset: %x", info[0].offset)
	}
	if rptr, ok := info[0].regPtr.(*Reg8); !ok || rptr != &ts.Reg1 {
		t.Errorf("invalid reg ptr %T", info[0].regPtr)
	}
	if rptr, ok := info[1].regPtr.(*IOReg); !ok || rptr != &ts.CTRL {
		t.Errorf("invalid reg ptr %T", info[1].regPtr)
	}

	info, err = bankGetRegs(ts, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(info) != 2 {
		t.Fatal("wrong number of regs in bank:", len(info))
	}
	if info[0].offset != 0x44 {
		t.Errorf("invalid reg offset: %x", info[0].offset)
	}
}

func TestInitRegsErrors(t *testing.T) {
	tests := []struct {
		name string
		bank any
	}{
		{"reset too big", &struct {
			R Reg8 `hwio:"reset=0x123"`
		}{}},
		{"rwmask too big", &struct {
			R Reg8 `hwio:"rwmask=0x123"`
		}{}},
		{"unknown option", &struct {
			R Reg8 `hwio:"foo"`
		}{}},
		{"missing method", &struct {
			R Reg8 `hwio:"rcb"`
		}{}},
		{"ioreg without accessor", &struct {
			R IOReg `hwio:"offset=0"`
		}{}},
		{"ioreg with reset", &struct {
			R IOReg `hwio:"reset=1"`
		}{}},
		{"not a pointer", struct{}{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := InitRegs(tt.bank); err == nil {
				t.Fatal("InitRegs should fail")
			} else {
				t.Log(err)
			}
		})
	}
}

type wrongSig struct {
	R Reg8 `hwio:"rcb"`
}

func (w *wrongSig) ReadR() uint8 { return 0 }

func TestInitRegsWrongSignature(t *testing.T) {
	if err := InitRegs(&wrongSig{}); err == nil {
		t.Fatal("InitRegs should fail with a wrong callback signature")
	}
}
