// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package gt9xx

import (
	"log"
	"sync"
	"time"
)

// delayedWork runs fn once after a delay. schedule re-arms it; cancelSync
// stops a pending run and waits for an in-flight one to return.
type delayedWork struct {
	fn func()

	mu       sync.Mutex
	gen      uint64
	timer    *time.Timer
	inflight sync.WaitGroup
}

func (w *delayedWork) schedule(d time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.gen++
	gen := w.gen
	w.timer = time.AfterFunc(d, func() { w.run(gen) })
}

func (w *delayedWork) run(gen uint64) {
	w.mu.Lock()
	if gen != w.gen || w.timer == nil {
		// Cancelled or superseded between firing and running.
		w.mu.Unlock()
		return
	}
	w.timer = nil
	w.inflight.Add(1)
	w.mu.Unlock()
	defer w.inflight.Done()
	w.fn()
}

func (w *delayedWork) cancelSync() {
	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	w.gen++
	w.mu.Unlock()
	w.inflight.Wait()
}

// enableESD arms the controller's ESD watchdog and schedules the first
// tick. A zero timeout leaves the supervisor disabled.
func (d *Dev) enableESD() error {
	t := d.esdTimeout.Load()
	if t == 0 {
		return nil
	}
	if err := d.writeReg(regESDCheck, cmdESDEnabled); err != nil {
		log.Printf("gt9xx: enabling ESD watchdog: %v", err)
		return err
	}
	d.esd.schedule(time.Duration(t) * time.Millisecond)
	return nil
}

// disableESD cancels the pending tick and waits for an in-flight one.
func (d *Dev) disableESD() {
	if d.esdTimeout.Load() == 0 {
		return
	}
	d.esd.cancelSync()
}

// esdWork is one supervisor tick. The controller is healthy when the
// command register no longer echoes the ESD command but the enabled flag
// is still set; everything else counts as a failed attempt. Three failed
// attempts trigger a full recovery: re-reset, re-send the configuration,
// re-arm the interrupt pipeline and the watchdog.
func (d *Dev) esdWork() {
	<-d.fwLoaded

	var health [2]byte
	healthy := false
	for attempt := 0; attempt < 3; attempt++ {
		if err := d.readRegs(regCommand, health[:]); err != nil {
			continue
		}
		if health[0] != cmdESDEnabled && health[1] == cmdESDEnabled {
			// Feed the watchdog.
			_ = d.writeReg(regCommand, cmdESDEnabled)
			healthy = true
			break
		}
	}

	if !healthy {
		log.Printf("gt9xx: performing ESD recovery")
		d.freeIRQ()
		if err := d.reset(); err != nil {
			log.Printf("gt9xx: ESD recovery: %v", err)
		}
		if d.loader != nil {
			if blob, err := d.loader.Load(d.cfgName); err == nil && blob != nil {
				_ = d.sendConfig(blob)
			}
		}
		if err := d.requestIRQ(); err != nil {
			log.Printf("gt9xx: ESD recovery: %v", err)
		}
		// Re-arming the watchdog schedules the next tick.
		_ = d.enableESD()
		return
	}

	d.esd.schedule(time.Duration(d.esdTimeout.Load()) * time.Millisecond)
}
