// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package gt9xx

import (
	"fmt"

	"periph.io/x/conn/v3/gpio"
)

// Direction register of the substitute I²C expander. Writing 3 makes the
// line an input, 9 an output driven high, 1 an output driven low.
const subRegDirection = 0x1D

const (
	subInput      = 3
	subOutputHigh = 9
	subOutputLow  = 1
)

// setReset drives the reset line. Reset is always a direct GPIO.
func (d *Dev) setReset(l gpio.Level) error {
	return d.pinRST.Out(l)
}

// setIntOutput drives the interrupt line as an output. When a substitute
// expander is configured the write goes to its direction register instead
// of the pin.
func (d *Dev) setIntOutput(l gpio.Level) error {
	if d.sub != nil {
		v := byte(subOutputLow)
		if l {
			v = subOutputHigh
		}
		return d.subDirection(v)
	}
	return d.pinINT.Out(l)
}

// setIntInput floats the interrupt line, handing it back to the
// controller. The direct pin is reconfigured even with an expander
// present so that edge detection keeps working.
func (d *Dev) setIntInput(edge gpio.Edge) error {
	if d.pinINT != nil {
		if err := d.pinINT.In(gpio.Float, edge); err != nil {
			return err
		}
	}
	if d.sub != nil {
		return d.subDirection(subInput)
	}
	return nil
}

func (d *Dev) subDirection(v byte) error {
	if err := d.sub.Tx([]byte{subRegDirection, v}, nil); err != nil {
		return fmt.Errorf("gt9xx: expander 0x%02x: %w", d.sub.Addr, err)
	}
	return nil
}
