package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"avrsim/emu"
	"avrsim/emu/log"
)

const version = "0.3.0"

func main() {
	cli := parseArgs(os.Args[1:])

	cfg := emu.LoadConfigOrDefault()
	if cli.Config != "" {
		var err error
		cfg, err = emu.LoadConfig(cli.Config)
		checkf(err, "failed to load configuration")
	}
	log.EnableDebugModules(cfg.LogMask())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	switch cli.mode {
	case versionMode:
		fmt.Println("avrsim", version)
	case pinsMode:
		checkf(listPins(os.Stdout, cli.Pins.Model), "failed to list pins")
	case dumpMode:
		checkf(dump(ctx, os.Stdout, cfg, cli.Dump), "dump failed")
	case runMode:
		ok, err := run(ctx, os.Stdout, cfg, cli.Run)
		if cli.Run.Trace != nil {
			cli.Run.Trace.Close()
		}
		checkf(err, "run failed")
		if !ok {
			os.Exit(1)
		}
	}
}
