package main

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/go-faster/jx"
	"github.com/k0kubun/pp/v3"
	"golang.org/x/sync/errgroup"

	"avrsim/emu"
	"avrsim/hw/device"
)

// run runs the scenarios, at most args.Jobs at a time, and reports their
// outcome in order. It returns false if an expectation failed.
func run(ctx context.Context, w io.Writer, cfg emu.Config, args Run) (bool, error) {
	scenarios := make([]*emu.Scenario, len(args.Scenarios))
	for i, path := range args.Scenarios {
		sc, err := emu.LoadScenario(path)
		if err != nil {
			return false, err
		}
		scenarios[i] = sc
	}

	jobs := max(args.Jobs, 1)
	if args.Trace != nil {
		jobs = 1
	}

	results := make([]*emu.Result, len(scenarios))
	outputs := make([]bytes.Buffer, len(scenarios))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(jobs)
	for i, sc := range scenarios {
		opts := emu.RunOptions{
			Config:      cfg,
			Output:      &outputs[i],
			TickContext: jobs == 1,
		}
		if args.Trace != nil {
			opts.Trace = args.Trace
		}
		g.Go(func() error {
			res, err := emu.Run(ctx, sc, opts)
			results[i] = res
			return err
		})
	}
	err := g.Wait()

	ok := true
	for i, res := range results {
		if res == nil {
			continue
		}
		w.Write(outputs[i].Bytes())
		if res.Failed() {
			ok = false
			fmt.Fprintf(w, "FAIL %s (%d ticks)\n", res.Name, res.Ticks)
			for _, f := range res.Failures {
				fmt.Fprintf(w, "\t%s\n", f)
			}
			continue
		}
		fmt.Fprintf(w, "ok   %s (%d ticks)\n", res.Name, res.Ticks)
	}
	return ok, err
}

// dump runs a scenario and prints the final device state.
func dump(ctx context.Context, w io.Writer, cfg emu.Config, args Dump) error {
	sc, err := emu.LoadScenario(args.Scenario)
	if err != nil {
		return err
	}
	res, err := emu.Run(ctx, sc, emu.RunOptions{Config: cfg, Output: w, TickContext: true})
	if err != nil {
		return err
	}

	if args.JSON {
		var e jx.Encoder
		e.SetIdent(2)
		res.State.EncodeJSON(&e)
		e.RawStr("\n")
		_, err := w.Write(e.Bytes())
		return err
	}

	printer := pp.New()
	printer.SetColoringEnabled(!args.NoColor)
	printer.SetOutput(w)
	_, err = printer.Println(res.State)
	return err
}

// listPins prints the pins of a device model with their current state.
func listPins(w io.Writer, model string) error {
	dev, err := device.NewTiny(device.Config{Model: model})
	if err != nil {
		return err
	}
	for _, name := range dev.PinNames() {
		pin, _ := dev.Pin(name)
		if _, err := fmt.Fprintf(w, "%-4s %s\n", name, pin.State()); err != nil {
			return err
		}
	}
	return nil
}
