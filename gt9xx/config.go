// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package gt9xx

import (
	"encoding/binary"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"
)

// Layout of the configuration blob.
const (
	configMaxLength = 240
	config911Length = 186
	config967Length = 228

	resolutionLoc  = 1 // x max LE, then y max LE
	maxContactsLoc = 5 // low nibble
	triggerLoc     = 6 // low 2 bits
)

var (
	// ErrConfigSize is returned for blobs longer than the register space.
	ErrConfigSize = errors.New("gt9xx: config blob has invalid size")
	// ErrBadChecksum is returned when the blob checksum does not add up.
	ErrBadChecksum = errors.New("gt9xx: config blob checksum mismatch")
	// ErrNotFresh is returned when the Config_Fresh byte is not set, which
	// would make the controller ignore the blob.
	ErrNotFresh = errors.New("gt9xx: config blob fresh flag not set")
)

// configLength returns the configuration blob length for a controller id.
func configLength(id uint16) int {
	switch id {
	case 911, 9271, 9110, 927, 928:
		return config911Length
	case 912, 967:
		return config967Length
	default:
		return configMaxLength
	}
}

// checkConfig validates a configuration blob: length, two's-complement
// checksum over everything but the last two bytes, and the fresh flag.
func checkConfig(cfg []byte) error {
	if len(cfg) < 3 || len(cfg) > configMaxLength {
		return ErrConfigSize
	}
	var sum byte
	raw := cfg[:len(cfg)-2]
	for _, b := range raw {
		sum += b
	}
	if ^sum+1 != cfg[len(cfg)-2] {
		return ErrBadChecksum
	}
	if cfg[len(cfg)-1] != 1 {
		return ErrNotFresh
	}
	return nil
}

// sendConfig validates cfg and writes it to the controller, then waits for
// the firmware to reconfigure itself.
func (d *Dev) sendConfig(cfg []byte) error {
	if err := checkConfig(cfg); err != nil {
		return err
	}
	if err := d.writeRegs(regConfigData, cfg); err != nil {
		return err
	}
	time.Sleep(10 * time.Millisecond)
	return nil
}

// readConfig reads the panel capabilities out of the controller's embedded
// configuration: resolution, contact count and interrupt trigger type.
// Unreadable or nonsensical values fall back to defaults.
func (d *Dev) readConfig() {
	buf := make([]byte, d.cfgLen)
	if err := d.readRegs(regConfigData, buf); err != nil {
		log.Printf("gt9xx: reading config, using defaults: %v", err)
		d.applyDefaultConfig()
		return
	}
	d.absXMax = int(binary.LittleEndian.Uint16(buf[resolutionLoc:]))
	d.absYMax = int(binary.LittleEndian.Uint16(buf[resolutionLoc+2:]))
	if d.swappedXY {
		d.absXMax, d.absYMax = d.absYMax, d.absXMax
	}
	d.triggerType = buf[triggerLoc] & 0x03
	d.maxTouch = int(buf[maxContactsLoc] & 0x0F)
	// The protocol caps at 10 contacts; a larger nibble is as nonsensical
	// as a zero resolution.
	if d.absXMax == 0 || d.absYMax == 0 || d.maxTouch == 0 || d.maxTouch > maxContacts {
		log.Printf("gt9xx: invalid config, using defaults")
		d.applyDefaultConfig()
	}

	if matchRotatedScreen(d.identity) {
		d.invertedX = true
		d.invertedY = true
	}
}

func (d *Dev) applyDefaultConfig() {
	d.absXMax = maxWidth
	d.absYMax = maxHeight
	if d.swappedXY {
		d.absXMax, d.absYMax = d.absYMax, d.absXMax
	}
	d.triggerType = 1 // falling edge
	d.maxTouch = maxContacts
}

// readVersion reads the controller identity: 4 ASCII digits of product id
// and a 16-bit firmware version. Controllers with an unparseable id report
// as 0x1001.
func (d *Dev) readVersion() error {
	var buf [6]byte
	if err := d.readRegs(regID, buf[:]); err != nil {
		return fmt.Errorf("gt9xx: reading identity: %w", err)
	}
	id, err := strconv.ParseUint(string(buf[:4]), 10, 16)
	if err != nil {
		d.id = 0x1001
	} else {
		d.id = uint16(id)
	}
	d.version = binary.LittleEndian.Uint16(buf[4:])
	return nil
}
