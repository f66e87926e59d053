package device

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"avrsim/emu/log/logtest"
)

type flagClearer struct{ cleared []uint }

func (f *flagClearer) ClearIrqFlag(vec uint) { f.cleared = append(f.cleared, vec) }

func TestIRQs(t *testing.T) {
	rec := logtest.Capture(t)

	irqs := NewIRQs(15)
	var fc flagClearer
	irqs.Register(8, &fc)

	irqs.SetIRQ(8)
	irqs.SetIRQ(3)
	irqs.SetIRQ(8)
	if diff := cmp.Diff([]uint{3, 8}, irqs.Pending()); diff != "" {
		t.Errorf("Pending() mismatch (-want +got):\n%s", diff)
	}

	irqs.Acknowledge(8)
	irqs.Acknowledge(8)
	irqs.Acknowledge(3)
	if diff := cmp.Diff([]uint{8}, fc.cleared); diff != "" {
		t.Errorf("cleared flags mismatch (-want +got):\n%s", diff)
	}
	if len(irqs.Pending()) != 0 {
		t.Errorf("Pending() = %v, want none", irqs.Pending())
	}

	irqs.SetIRQ(15)
	if n := rec.Warnings(); n != 1 {
		t.Errorf("got %d warnings for an invalid vector, want 1", n)
	}
}
