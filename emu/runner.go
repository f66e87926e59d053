package emu

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/pkg/errors"

	"avrsim/emu/log"
	"avrsim/hw/device"
	"avrsim/hw/gpio"
	"avrsim/hw/snapshot"
	"avrsim/hw/spisink"
	"avrsim/hw/trace"
)

// Number of ticks run between two checks for cancellation.
const runChunk = 1 << 16

// RunOptions controls how a scenario is run.
type RunOptions struct {
	Config Config

	// Trace receives the trace records, in the format chosen by the scenario
	// or, by default, by the config. Tracing is off if nil.
	Trace io.Writer

	// Output receives the lines emitted by attached devices (SPI sink).
	Output io.Writer

	// TickContext adds the simulation tick to every log record. Log contexts
	// are global: only set it if a single scenario runs at a time.
	TickContext bool
}

// Result is the outcome of a scenario run.
type Result struct {
	Name     string
	Ticks    int64
	SPI      []uint8  // bytes received by the SPI sink
	Failures []string // failed expectations
	State    *snapshot.Tiny
}

// Failed reports whether an expectation failed.
func (r *Result) Failed() bool { return len(r.Failures) > 0 }

// A runner performs the steps of a scenario on a device.
type runner struct {
	sc   *Scenario
	dev  *device.Tiny
	sink *spisink.Sink
	res  *Result
	out  io.Writer
}

// Run assembles the scenario device and performs its steps. Expectation
// failures are reported in the result and don't stop the scenario. An error
// is returned if the device can't be assembled, a step can't be performed or
// ctx is done.
func Run(ctx context.Context, sc *Scenario, opts RunOptions) (*Result, error) {
	dcfg := device.Config{
		Model:  opts.Config.Device.Model,
		Vcc:    opts.Config.Device.Vcc,
		Period: opts.Config.Device.Period,
	}
	if sc.Model != "" {
		dcfg.Model = sc.Model
	}
	if sc.Vcc != 0 {
		dcfg.Vcc = sc.Vcc
	}
	if sc.Period != 0 {
		dcfg.Period = sc.Period
	}
	dev, err := device.NewTiny(dcfg)
	if err != nil {
		return nil, errors.Wrapf(err, "scenario %s", sc.Name)
	}

	r := &runner{
		sc:  sc,
		dev: dev,
		res: &Result{Name: sc.Name},
		out: opts.Output,
	}
	if r.out == nil {
		r.out = io.Discard
	}
	if err := r.attachSPI(); err != nil {
		return nil, errors.Wrapf(err, "scenario %s", sc.Name)
	}
	if opts.Trace != nil {
		format := opts.Config.Trace.Format
		if sc.Trace != "" {
			format = sc.Trace
		}
		dev.Tracer.SetSink(newSink(format, opts.Trace))
	}
	if opts.TickContext {
		log.AddContext(dev.Clock)
		defer log.RemoveContext(dev.Clock)
	}

	log.ModEmu.InfoZ("running scenario").
		String("name", sc.Name).
		String("model", dev.Model).
		Int("steps", len(sc.Steps)).
		End()

	for i := range sc.Steps {
		st := &sc.Steps[i]
		if err := r.step(ctx, st); err != nil {
			return r.res, errors.Wrapf(err, "scenario %s: step %d (%s)", sc.Name, i+1, st.Op)
		}
	}
	r.res.Ticks = dev.Clock.Now()
	r.res.State = dev.State()
	return r.res, nil
}

func newSink(format string, w io.Writer) trace.Sink {
	if format == "json" {
		return trace.NewJSONSink(w)
	}
	return trace.TextSink{W: w}
}

func (r *runner) attachSPI() error {
	spec := r.sc.SPI
	if spec == nil {
		return nil
	}
	var nets [3]*gpio.Net
	for i, pin := range []string{spec.SS, spec.SCLK, spec.Data} {
		n, err := r.dev.Net(pin)
		if err != nil {
			return errors.Wrap(err, "spi")
		}
		nets[i] = n
	}
	opts := []spisink.Option{
		spisink.ClockIdleHigh(!spec.IdleLow),
		spisink.SampleOnLeadingEdge(!spec.Trail),
		spisink.OnByte(func(b uint8) { r.res.SPI = append(r.res.SPI, b) }),
		spisink.Emit(func(line string) { fmt.Fprintln(r.out, line) }),
	}
	if spec.Quantum > 0 {
		opts = append(opts, spisink.Quantum(spec.Quantum))
	}
	r.sink = spisink.New(nets[0], nets[1], nets[2], opts...)
	r.dev.Clock.Add(r.sink)
	return nil
}

func (r *runner) fail(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	log.ModEmu.WarnZ("expectation failed").
		String("scenario", r.sc.Name).
		String("what", msg).
		End()
	r.res.Failures = append(r.res.Failures, msg)
}

func (r *runner) pin(name string) (*gpio.Pin, error) {
	p, ok := r.dev.Pin(name)
	if !ok {
		return nil, errors.Errorf("unknown pin %q", name)
	}
	return p, nil
}

func (r *runner) step(ctx context.Context, st *Step) error {
	bus := r.dev.Bus
	switch st.Op {
	case OpWrite:
		bus.Write8(st.Addr, st.Value)
	case OpSetBit:
		bus.SetBit8(st.Addr, st.Bit)
	case OpClearBit:
		bus.ClearBit8(st.Addr, st.Bit)
	case OpRead:
		val := bus.Read8(st.Addr)
		if st.Expect != nil && val != *st.Expect {
			r.fail("read %04x: got %02x, want %02x", st.Addr, val, *st.Expect)
		}
	case OpAnalog:
		p, err := r.pin(st.Pin)
		if err != nil {
			return err
		}
		p.SetAnalog(st.Volts)
	case OpForce:
		p, err := r.pin(st.Pin)
		if err != nil {
			return err
		}
		s, err := parseState(st.State)
		if err != nil {
			return err
		}
		p.Force(s)
	case OpRelease:
		p, err := r.pin(st.Pin)
		if err != nil {
			return err
		}
		p.Release()
	case OpLevel:
		p, err := r.pin(st.Pin)
		if err != nil {
			return err
		}
		if p.Level() != st.High {
			r.fail("pin %s: got level %t, want %t", st.Pin, p.Level(), st.High)
		}
	case OpSPI:
		if !bytes.Equal(r.res.SPI, st.Bytes) {
			r.fail("spi: got % x, want % x", r.res.SPI, st.Bytes)
		}
	case OpRun:
		return r.run(ctx, st.Ticks)
	case OpReset:
		r.dev.Reset()
		if r.sink != nil {
			r.sink.Reset()
		}
	default:
		return errors.Errorf("unknown op %q", st.Op)
	}
	return nil
}

func (r *runner) run(ctx context.Context, ticks int64) error {
	clock := r.dev.Clock
	end := clock.Now() + ticks
	for clock.Now() < end {
		if err := ctx.Err(); err != nil {
			return err
		}
		clock.Run(min(end, clock.Now()+runChunk))
	}
	return nil
}

var stateNames = map[string]gpio.State{
	"tristate":  gpio.Tristate,
	"low":       gpio.Low,
	"high":      gpio.High,
	"pullup":    gpio.PullUp,
	"pulldown":  gpio.PullDown,
	"opendrain": gpio.OpenDrain,
}

// parseState parses a driver state, either by name ("pullup") or by its
// trace character ("h").
func parseState(s string) (gpio.State, error) {
	if st, ok := stateNames[strings.ToLower(s)]; ok {
		return st, nil
	}
	for _, st := range stateNames {
		if s == st.String() {
			return st, nil
		}
	}
	return 0, errors.Errorf("invalid pin state %q", s)
}
