// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package mt implements the multi-touch slot protocol used by touch
// controllers that track contacts across report frames.
//
// A slot is a persistent identifier for one finger: a contact reported
// with the same slot id in consecutive frames is the same finger moving.
// A slot that was active in the previous frame but is not reported in the
// current one is released when the frame is closed.
package mt

import (
	"sync"
	"sync/atomic"
)

// Info identifies the input device to its consumers.
type Info struct {
	Name    string
	Vendor  uint16
	Product uint16
	Version uint16
}

// Contact is one finger in one frame.
type Contact struct {
	Slot       int
	X          int
	Y          int
	TouchMajor int
	WidthMajor int
}

// Frame is one closed report frame: the contacts reported in it, and the
// slots released because they went unreported.
type Frame struct {
	Contacts []Contact
	Released []int
}

// Device is a multi-touch input device. The producer reports contacts with
// ReportSlot and closes frames with SyncFrame; consumers read closed
// frames from Frames.
type Device struct {
	Info    Info
	AbsXMax int
	AbsYMax int

	// OnOpen is invoked when the first consumer opens the device. An
	// error aborts the open.
	OnOpen func() error
	// OnClose is invoked when the device is closed.
	OnClose func()

	mu      sync.Mutex
	active  []bool
	pending []Contact

	frames  chan Frame
	dropped atomic.Uint32
}

// New returns a Device with maxSlots contact slots and the given axis
// extents.
func New(info Info, maxSlots, absXMax, absYMax int) *Device {
	if maxSlots <= 0 {
		maxSlots = 1
	}
	return &Device{
		Info:    info,
		AbsXMax: absXMax,
		AbsYMax: absYMax,
		active:  make([]bool, maxSlots),
		frames:  make(chan Frame, 16),
	}
}

// Slots returns the number of contact slots.
func (d *Device) Slots() int {
	return len(d.active)
}

// Frames returns the channel of closed frames.
func (d *Device) Frames() <-chan Frame {
	return d.frames
}

// Dropped returns the number of frames discarded because no consumer kept
// up with the channel.
func (d *Device) Dropped() uint32 {
	return d.dropped.Load()
}

// ReportSlot marks a slot active in the current frame. Slot ids outside
// the device's range are ignored.
func (d *Device) ReportSlot(slot, x, y, touchMajor, widthMajor int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if slot < 0 || slot >= len(d.active) {
		return
	}
	d.pending = append(d.pending, Contact{
		Slot:       slot,
		X:          x,
		Y:          y,
		TouchMajor: touchMajor,
		WidthMajor: widthMajor,
	})
}

// SyncFrame closes the current frame: slots active in the previous frame
// but unreported since are released, and the frame is delivered. A frame
// is delivered even when empty so consumers see one sync per report.
func (d *Device) SyncFrame() {
	d.mu.Lock()
	reported := make([]bool, len(d.active))
	for _, c := range d.pending {
		reported[c.Slot] = true
	}
	var released []int
	for i, a := range d.active {
		if a && !reported[i] {
			released = append(released, i)
		}
	}
	copy(d.active, reported)
	f := Frame{Contacts: d.pending, Released: released}
	d.pending = nil
	d.mu.Unlock()

	select {
	case d.frames <- f:
	default:
		d.dropped.Add(1)
	}
}

// Open signals that a consumer starts reading frames.
func (d *Device) Open() error {
	if d.OnOpen != nil {
		return d.OnOpen()
	}
	return nil
}

// Close signals that the consumer is gone.
func (d *Device) Close() {
	if d.OnClose != nil {
		d.OnClose()
	}
}
