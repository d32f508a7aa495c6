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

// irqPollInterval bounds each edge wait so the service goroutine notices
// a stop request even on a quiet line.
const irqPollInterval = 100 * time.Millisecond

type irqTrigger struct {
	edge    gpio.Edge
	level   gpio.Level
	isLevel bool
}

// irqTriggers maps the trigger type from the panel configuration onto
// line conditions: rising, falling, active-low level, active-high level.
// Level types arm the edge leading into the active level and poll the
// line in between.
var irqTriggers = [4]irqTrigger{
	{gpio.RisingEdge, gpio.High, false},
	{gpio.FallingEdge, gpio.Low, false},
	{gpio.FallingEdge, gpio.Low, true},
	{gpio.RisingEdge, gpio.High, true},
}

// irqService is one armed interrupt pipeline. The goroutine owns the
// report scratch buffer and is serialized with itself by construction.
type irqService struct {
	stop chan struct{}
	done chan struct{}
}

// requestIRQ arms the interrupt line with the polarity selected by the
// panel configuration and starts the service goroutine.
func (d *Dev) requestIRQ() error {
	if d.pinINT == nil {
		// Always-on panel without a wired interrupt line; nothing to
		// service.
		return nil
	}
	t := irqTriggers[d.triggerType&0x03]
	if err := d.setIntInput(t.edge); err != nil {
		return fmt.Errorf("gt9xx: requesting interrupt: %w", err)
	}
	s := &irqService{
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
	d.irq = s
	go d.serviceInterrupts(s, t)
	return nil
}

// freeIRQ stops the interrupt service and waits for the in-flight handler
// to finish. The line is left as an input.
func (d *Dev) freeIRQ() {
	if d.irq == nil {
		return
	}
	close(d.irq.stop)
	<-d.irq.done
	d.irq = nil
}

func (d *Dev) serviceInterrupts(s *irqService, t irqTrigger) {
	defer close(s.done)
	for {
		select {
		case <-s.stop:
			return
		default:
		}
		fired := d.pinINT.WaitForEdge(irqPollInterval)
		if !fired && t.isLevel {
			fired = d.pinINT.Read() == t.level
		}
		if !fired {
			continue
		}
		select {
		case <-s.stop:
			return
		default:
		}
		d.handleInterrupt()
	}
}

// handleInterrupt services one interrupt: drain a report, then acknowledge
// by clearing the coordinate register. The acknowledge happens even when
// the frame was dropped, or the controller would never raise the line
// again.
func (d *Dev) handleInterrupt() {
	d.processEvents()
	if err := d.writeReg(regCoordAddr, 0); err != nil {
		log.Printf("gt9xx: interrupt acknowledge: %v", err)
	}
}
