// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package gt9xx

import (
	"encoding/binary"
	"fmt"
)

// readRegs reads len(buf) bytes starting at reg. The 16-bit register
// address is sent big-endian, then the data phase follows in the same
// combined transaction.
//
// Blocking; must not be called while holding a lock the interrupt service
// needs.
func (d *Dev) readRegs(reg uint16, buf []byte) error {
	var a [2]byte
	binary.BigEndian.PutUint16(a[:], reg)
	if err := d.c.Tx(a[:], buf); err != nil {
		return fmt.Errorf("gt9xx: reading %d bytes at 0x%04x: %w", len(buf), reg, err)
	}
	return nil
}

// writeRegs writes buf starting at reg as a single message: register
// address big-endian, then the payload.
func (d *Dev) writeRegs(reg uint16, buf []byte) error {
	w := make([]byte, 2+len(buf))
	binary.BigEndian.PutUint16(w, reg)
	copy(w[2:], buf)
	if err := d.c.Tx(w, nil); err != nil {
		return fmt.Errorf("gt9xx: writing %d bytes at 0x%04x: %w", len(buf), reg, err)
	}
	return nil
}

func (d *Dev) writeReg(reg uint16, v byte) error {
	return d.writeRegs(reg, []byte{v})
}
