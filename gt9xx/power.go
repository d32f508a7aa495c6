// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package gt9xx

import (
	"fmt"
	"log"
	"time"

	"periph.io/x/conn/v3/gpio"
)

// sleep puts the controller into its low-power screen-off state. Shared by
// runtime autosuspend and system suspend. The interrupt line doubles as an
// output during the sequence, so the interrupt service is torn down first
// and restored on failure.
func (d *Dev) sleep() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.suspended {
		return nil
	}

	d.disableESD()
	d.freeIRQ()
	if err := d.setIntOutput(gpio.Low); err != nil {
		if rerr := d.requestIRQ(); rerr != nil {
			log.Printf("gt9xx: %v", rerr)
		}
		return err
	}
	time.Sleep(5 * time.Millisecond)

	if err := d.writeReg(regCommand, cmdScreenOff); err != nil {
		if ierr := d.setIntInput(gpio.NoEdge); ierr != nil {
			log.Printf("gt9xx: %v", ierr)
		}
		if rerr := d.requestIRQ(); rerr != nil {
			log.Printf("gt9xx: %v", rerr)
		}
		return fmt.Errorf("gt9xx: screen off command: %w", err)
	}
	// Datasheet: the interval between the screen-off command and the
	// next wake-up must exceed 58ms.
	time.Sleep(screenOffSettle)
	d.suspended = true
	return nil
}

// wakeup brings the controller out of screen-off: interrupt line high for
// a few milliseconds, then the INT sync pulse hands the line back, and the
// interrupt pipeline and ESD supervisor are re-armed.
func (d *Dev) wakeup() error {
	if !d.bothPins() {
		return nil
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.suspended {
		return nil
	}

	if err := d.setIntOutput(gpio.High); err != nil {
		return err
	}
	time.Sleep(2 * time.Millisecond)

	if err := d.intSync(); err != nil {
		return err
	}
	if err := d.requestIRQ(); err != nil {
		return err
	}
	if err := d.enableESD(); err != nil {
		return err
	}
	d.suspended = false
	return nil
}

// Suspend is the system sleep entry point. It waits for the asynchronous
// initialization to finish, then shares the runtime suspend path.
func (d *Dev) Suspend() error {
	if !d.bothPins() {
		return nil
	}
	<-d.fwLoaded
	return d.sleep()
}

// Resume is the system wake entry point. A controller nobody has opened
// stays asleep; it will be woken on the next open.
func (d *Dev) Resume() error {
	if d.openCount.Load() == 0 {
		return nil
	}
	return d.wakeup()
}

// setPower requests the controller on or off through the runtime power
// facade.
func (d *Dev) setPower(on bool) error {
	if on {
		return d.pm.GetSync()
	}
	d.pm.MarkLastBusy()
	return d.pm.PutAutosuspend()
}

// inputOpen is called by the input device when its first consumer arrives.
func (d *Dev) inputOpen() error {
	if !d.bothPins() {
		return nil
	}
	<-d.fwLoaded
	if err := d.setPower(true); err != nil {
		return err
	}
	d.openCount.Add(1)
	return nil
}

// inputClose is the mirror of inputOpen.
func (d *Dev) inputClose() {
	if !d.bothPins() {
		return
	}
	if err := d.setPower(false); err != nil {
		log.Printf("gt9xx: %v", err)
	}
	d.openCount.Add(-1)
}
