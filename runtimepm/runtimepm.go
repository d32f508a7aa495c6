// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package runtimepm provides usage-counted runtime power management with
// autosuspend for a single device.
//
// A device is suspended when its usage count has been zero for at least
// the autosuspend delay. GetSync resumes it and pins it; PutAutosuspend
// unpins it and schedules the suspend check. A disabled device never
// transitions and reports as active.
package runtimepm

import (
	"sync"
	"time"
)

// Ops are the device's power transitions. They are invoked with the
// Device lock held and must not call back into the Device.
type Ops interface {
	// RuntimeSuspend puts the device into its low-power state.
	RuntimeSuspend() error
	// RuntimeResume brings the device back from RuntimeSuspend.
	RuntimeResume() error
}

// Device tracks the runtime power state of one device.
type Device struct {
	ops Ops

	mu          sync.Mutex
	enabled     bool
	suspended   bool
	usage       int
	autosuspend bool
	delay       time.Duration
	lastBusy    time.Time
	timer       *time.Timer
}

// New returns a Device in the disabled, active state.
func New(ops Ops) *Device {
	return &Device{ops: ops}
}

// SetAutosuspendDelay sets how long the device stays powered after its
// last use.
func (d *Device) SetAutosuspendDelay(delay time.Duration) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.delay = delay
}

// UseAutosuspend enables delayed suspend instead of immediate suspend on
// the last put.
func (d *Device) UseAutosuspend() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.autosuspend = true
}

// SetActive records the device as powered without invoking callbacks.
func (d *Device) SetActive() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.suspended = false
	return nil
}

// SetSuspended records the device as suspended without invoking
// callbacks.
func (d *Device) SetSuspended() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.suspended = true
}

// Enable allows power transitions.
func (d *Device) Enable() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.enabled = true
}

// Disable forbids further transitions. It cancels a pending autosuspend
// and waits for an in-flight transition to finish before returning.
func (d *Device) Disable() {
	// Acquiring the lock waits out a transition running under it.
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.enabled = false
}

// GetSync pins the device powered, resuming it first if needed. On resume
// failure the pin is dropped again.
func (d *Device) GetSync() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.usage++
	if !d.enabled || !d.suspended {
		return nil
	}
	if err := d.ops.RuntimeResume(); err != nil {
		d.usage--
		return err
	}
	d.suspended = false
	return nil
}

// MarkLastBusy restarts the autosuspend clock.
func (d *Device) MarkLastBusy() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.lastBusy = time.Now()
}

// PutAutosuspend drops one pin and schedules the suspend check.
func (d *Device) PutAutosuspend() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.usage > 0 {
		d.usage--
	}
	d.scheduleLocked()
	return nil
}

// RequestAutosuspend schedules the suspend check without touching the
// usage count.
func (d *Device) RequestAutosuspend() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.scheduleLocked()
}

// Active reports whether the device is powered. A disabled device counts
// as active: nothing will suspend it.
func (d *Device) Active() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return !d.enabled || !d.suspended
}

func (d *Device) scheduleLocked() {
	if !d.enabled || d.suspended || d.usage != 0 || !d.autosuspend {
		return
	}
	delay := d.delay - time.Since(d.lastBusy)
	if delay < 0 {
		delay = 0
	}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(delay, d.expire)
}

func (d *Device) expire() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.enabled || d.suspended || d.usage != 0 {
		return
	}
	if remain := d.delay - time.Since(d.lastBusy); remain > 0 {
		// The device was busy since the timer was armed.
		d.timer = time.AfterFunc(remain, d.expire)
		return
	}
	if err := d.ops.RuntimeSuspend(); err != nil {
		return
	}
	d.suspended = true
}
