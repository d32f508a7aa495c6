// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package gt9xx

import (
	"encoding/binary"
	"errors"
	"log"
)

var (
	// errNotReady: the report-ready bit is clear; the frame is not there
	// yet and the read should be retried on the next interrupt.
	errNotReady = errors.New("gt9xx: report not ready")
	// errProtocol: the header announces more contacts than the panel
	// supports; the frame is garbage and is dropped.
	errProtocol = errors.New("gt9xx: contact count out of range")
)

// readInputReport reads one report frame into buf and returns the contact
// count. buf must hold 1 + contactSize*maxContacts bytes. The header and
// first contact are fetched in one transfer; the remaining contacts, if
// any, in a second one.
func (d *Dev) readInputReport(buf []byte) (int, error) {
	if err := d.readRegs(regCoordAddr, buf[:1+contactSize]); err != nil {
		return 0, err
	}
	if buf[0]&0x80 == 0 {
		return 0, errNotReady
	}
	n := int(buf[0] & 0x0F)
	if n > d.maxTouch {
		return 0, errProtocol
	}
	if n > 1 {
		off := 1 + contactSize
		if err := d.readRegs(regCoordAddr+uint16(off), buf[off:off+contactSize*(n-1)]); err != nil {
			return 0, err
		}
	}
	return n, nil
}

// reportTouch decodes one 8-byte contact block and emits it into the sink.
// Inversions happen before axis swapping.
func (d *Dev) reportTouch(c []byte) {
	slot := int(c[0] & 0x0F)
	x := int(binary.LittleEndian.Uint16(c[1:3]))
	y := int(binary.LittleEndian.Uint16(c[3:5]))
	w := int(binary.LittleEndian.Uint16(c[5:7]))

	if d.invertedX {
		x = d.absXMax - x
	}
	if d.invertedY {
		y = d.absYMax - y
	}
	if d.swappedXY {
		x, y = y, x
	}
	d.sink.ReportSlot(slot, x, y, w, w)
}

// processEvents drains one report frame and pushes it to the sink. Frames
// that are not ready or malformed are dropped without emission.
func (d *Dev) processEvents() {
	n, err := d.readInputReport(d.reportBuf[:])
	if err != nil {
		if !errors.Is(err, errNotReady) && !errors.Is(err, errProtocol) {
			log.Printf("gt9xx: %v", err)
		}
		return
	}
	for i := 0; i < n; i++ {
		d.reportTouch(d.reportBuf[1+contactSize*i : 1+contactSize*(i+1)])
	}
	d.sink.SyncFrame()
}
