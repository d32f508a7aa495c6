// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// gt9xx-ts attaches to a Goodix GT9xx touch controller and prints its
// multi-touch event stream.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/goodix/dmi"
	"periph.io/x/goodix/firmware"
	"periph.io/x/goodix/gt9xx"
	"periph.io/x/host/v3"
)

func mainImpl() error {
	busName := flag.String("bus", "", "I²C bus to use (default: first available)")
	addr := flag.Uint("addr", 0x5d, "controller slave address (0x5d or 0x14)")
	var hz physic.Frequency
	flag.Var(&hz, "hz", "I²C bus speed")
	resetName := flag.String("reset", "", "name of the reset GPIO (empty: always-on panel)")
	intName := flag.String("int", "", "name of the interrupt GPIO")
	subAddr := flag.Uint("sub-addr", 0, "substitute I²C expander address driving the INT line")
	swapXY := flag.Bool("swap-xy", false, "swap the X and Y axes")
	invertX := flag.Bool("invert-x", false, "invert the X axis")
	invertY := flag.Bool("invert-y", false, "invert the Y axis")
	esd := flag.Duration("esd", 0, "ESD watchdog period (0 disables)")
	fwDir := flag.String("fw-dir", "/lib/firmware", "directory holding goodix_<id>_cfg.bin blobs")
	dump := flag.Bool("dump-config", false, "dump the controller configuration and exit")
	flag.Parse()
	if flag.NArg() != 0 {
		return fmt.Errorf("unexpected argument: %s", flag.Arg(0))
	}

	if _, err := host.Init(); err != nil {
		return err
	}
	bus, err := i2creg.Open(*busName)
	if err != nil {
		return err
	}
	defer bus.Close()
	if hz != 0 {
		if err := bus.SetSpeed(hz); err != nil {
			return err
		}
	}

	opts := &gt9xx.Opts{
		Addr:           uint16(*addr),
		SubstituteAddr: uint16(*subAddr),
		SwappedXY:      *swapXY,
		InvertedX:      *invertX,
		InvertedY:      *invertY,
		ESDTimeout:     *esd,
		Loader:         firmware.Dir(*fwDir),
	}
	id := dmi.Host()
	opts.Identity = gt9xx.Identity{SysVendor: id.SysVendor, ProductName: id.ProductName}
	if *resetName != "" || *intName != "" {
		if opts.Reset = gpioreg.ByName(*resetName); opts.Reset == nil {
			return fmt.Errorf("no such GPIO %q", *resetName)
		}
		if opts.Int = gpioreg.ByName(*intName); opts.Int == nil {
			return fmt.Errorf("no such GPIO %q", *intName)
		}
	}

	d, err := gt9xx.New(bus, opts)
	if err != nil {
		return err
	}
	defer d.Close()
	id16, ver := d.ID()
	fmt.Printf("%s: id %d, version 0x%04x\n", d, id16, ver)

	if *dump {
		cfg, err := d.DumpConfig()
		if err != nil {
			return err
		}
		fmt.Println(cfg)
		return nil
	}

	in := d.Input()
	if in == nil {
		return fmt.Errorf("%s: initialization failed", d)
	}
	if err := in.Open(); err != nil {
		return err
	}
	defer in.Close()
	fmt.Printf("%s: %dx%d, up to %d contacts\n", in.Info.Name, in.AbsXMax, in.AbsYMax, in.Slots())

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	start := time.Now()
	for {
		select {
		case <-stop:
			return nil
		case f := <-in.Frames():
			t := time.Since(start).Round(time.Millisecond)
			for _, c := range f.Contacts {
				fmt.Printf("%8s slot %2d: %4d,%4d w=%d\n", t, c.Slot, c.X, c.Y, c.TouchMajor)
			}
			for _, s := range f.Released {
				fmt.Printf("%8s slot %2d: up\n", t, s)
			}
		}
	}
}

func main() {
	if err := mainImpl(); err != nil {
		log.Fatalf("gt9xx-ts: %v", err)
	}
}
