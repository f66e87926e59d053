package emu

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/go-faster/jx"
	"github.com/google/go-cmp/cmp"

	"avrsim/emu/log/logtest"
	"avrsim/hw/trace"
)

func mustParse(t *testing.T, data string) *Scenario {
	t.Helper()
	sc, err := ParseScenario(t.Name(), data)
	if err != nil {
		t.Fatal(err)
	}
	return sc
}

func mustRun(t *testing.T, sc *Scenario, opts RunOptions) *Result {
	t.Helper()
	if opts.Config.Device.Model == "" {
		opts.Config = DefaultConfig
	}
	res, err := Run(context.Background(), sc, opts)
	if err != nil {
		t.Fatal(err)
	}
	return res
}

func TestRunPort(t *testing.T) {
	logtest.Capture(t)

	sc := mustParse(t, `
[[step]]
op = "write"
addr = 0x37
value = 0x0f

[[step]]
op = "write"
addr = 0x38
value = 0x35

[[step]]
op = "read"
addr = 0x36
expect = 0x35

[[step]]
op = "setbit"
addr = 0x36
bit = 0

[[step]]
op = "read"
addr = 0x38
expect = 0x34

[[step]]
op = "level"
pin = "B5"
high = true

[[step]]
op = "read"
addr = 0x36
expect = 0xff
`)
	res := mustRun(t, sc, RunOptions{})

	want := []string{"read 0036: got 34, want ff"}
	if diff := cmp.Diff(want, res.Failures); diff != "" {
		t.Errorf("failures mismatch (-want +got):\n%s", diff)
	}
	if got := res.State.PortB.Port; got != 0x34 {
		t.Errorf("state PORTB = %#02x, want 0x34", got)
	}
}

func TestRunADC(t *testing.T) {
	logtest.Capture(t)

	sc := mustParse(t, `
model = "attiny45"

[[step]]
op = "analog"
pin = "B4"
volts = 2.5

[[step]]
op = "write"
addr = 0x27
value = 0x02

[[step]]
op = "write"
addr = 0x26
value = 0xc8

[[step]]
op = "run"
ticks = 100

[[step]]
op = "read"
addr = 0x26
expect = 0x98

[[step]]
op = "read"
addr = 0x24
expect = 0x00

[[step]]
op = "read"
addr = 0x25
expect = 0x02
`)
	res := mustRun(t, sc, RunOptions{})
	if res.Failed() {
		t.Errorf("failures: %q", res.Failures)
	}
	if res.Ticks != 100 {
		t.Errorf("ticks = %d, want 100", res.Ticks)
	}
	if diff := cmp.Diff([]uint{8}, res.State.IRQs); diff != "" {
		t.Errorf("pending irqs mismatch (-want +got):\n%s", diff)
	}
}

// spiScenario returns a scenario bit-banging b over port B: data on B0, clock
// on B2 (idle high) and slave select on B3.
func spiScenario(b uint8) string {
	var sb strings.Builder
	sb.WriteString(`
[spi]
ss = "B3"
sclk = "B2"
data = "B0"
`)
	write := func(val uint8) {
		fmt.Fprintf(&sb, "\n[[step]]\nop = \"write\"\naddr = 0x38\nvalue = %#02x\n", val)
		sb.WriteString("\n[[step]]\nop = \"run\"\nticks = 1000\n")
	}
	fmt.Fprintf(&sb, "\n[[step]]\nop = \"write\"\naddr = 0x37\nvalue = 0x0d\n")
	write(0x0c)
	write(0x04)
	for i := 7; i >= 0; i-- {
		bit := b >> i & 1
		write(bit)
		write(0x04 | bit)
	}
	write(0x0c)
	fmt.Fprintf(&sb, "\n[[step]]\nop = \"spi\"\nbytes = [%d]\n", b)
	return sb.String()
}

func TestRunSPI(t *testing.T) {
	logtest.Capture(t)

	var out bytes.Buffer
	res := mustRun(t, mustParse(t, spiScenario(0x5a)), RunOptions{Output: &out})
	if res.Failed() {
		t.Errorf("failures: %q", res.Failures)
	}
	if diff := cmp.Diff([]uint8{0x5a}, res.SPI); diff != "" {
		t.Errorf("received bytes mismatch (-want +got):\n%s", diff)
	}

	want := "spisink: /SS asserted\nspisink: 0x5A\nspisink: /SS negated\n"
	if got := out.String(); got != want {
		t.Errorf("output = %q, want %q", got, want)
	}
}

func TestRunTrace(t *testing.T) {
	logtest.Capture(t)

	sc := mustParse(t, `
[[step]]
op = "run"
ticks = 10

[[step]]
op = "write"
addr = 0x37
value = 0x0d
`)
	var text bytes.Buffer
	mustRun(t, sc, RunOptions{Trace: &text})
	if !strings.Contains(text.String(), "10 PORTB.DDRB=0d\n") {
		t.Errorf("text trace is missing the DDRB write:\n%s", text.String())
	}

	sc.Trace = "json"
	var js bytes.Buffer
	mustRun(t, sc, RunOptions{Trace: &js})

	var recs []trace.Record
	d := jx.DecodeBytes(js.Bytes())
	for d.Next() != jx.Invalid {
		r, err := trace.DecodeRecord(d)
		if err != nil {
			t.Fatal(err)
		}
		recs = append(recs, r)
	}
	want := trace.Record{Tick: 10, Name: "PORTB.DDRB", Kind: trace.Write, New: 0x0d, Text: "0d"}
	found := false
	for _, r := range recs {
		if r.Name == want.Name && r.Kind == trace.Write {
			found = true
			if diff := cmp.Diff(want, r); diff != "" {
				t.Errorf("DDRB record mismatch (-want +got):\n%s", diff)
			}
		}
	}
	if !found {
		t.Errorf("json trace is missing the DDRB write: %v", recs)
	}
}

func TestRunErrors(t *testing.T) {
	logtest.Capture(t)

	tests := []struct {
		name string
		sc   string
	}{
		{"model", `model = "atmega8"`},
		{"spi pin", "[spi]\nss = \"B9\"\nsclk = \"B2\"\ndata = \"B0\"\n"},
		{"pin", "[[step]]\nop = \"analog\"\npin = \"C1\"\nvolts = 1.0\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sc := mustParse(t, tt.sc)
			if _, err := Run(context.Background(), sc, RunOptions{Config: DefaultConfig}); err == nil {
				t.Error("Run succeeded, want error")
			}
		})
	}
}

func TestRunCanceled(t *testing.T) {
	logtest.Capture(t)

	sc := mustParse(t, "[[step]]\nop = \"run\"\nticks = 1000000\n")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Run(ctx, sc, RunOptions{Config: DefaultConfig}); err == nil {
		t.Error("Run succeeded on a canceled context")
	}
}
