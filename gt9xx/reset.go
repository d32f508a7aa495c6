// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package gt9xx

import (
	"fmt"
	"time"

	"periph.io/x/conn/v3/gpio"
)

// reset runs the power-on reset sequence. The level of the interrupt line
// while reset is released selects the slave address: high latches 0x14,
// low latches 0x5D.
func (d *Dev) reset() error {
	if err := d.setReset(gpio.Low); err != nil {
		return fmt.Errorf("%w: %v", ErrResetFailed, err)
	}
	time.Sleep(20 * time.Millisecond) // T2: > 10ms
	if err := d.setIntOutput(gpio.Level(d.c.Addr == 0x14)); err != nil {
		return fmt.Errorf("%w: %v", ErrResetFailed, err)
	}
	time.Sleep(150 * time.Microsecond) // T3: > 100µs
	if err := d.setReset(gpio.High); err != nil {
		return fmt.Errorf("%w: %v", ErrResetFailed, err)
	}
	time.Sleep(6 * time.Millisecond) // T4: > 5ms
	if err := d.intSync(); err != nil {
		return fmt.Errorf("%w: %v", ErrResetFailed, err)
	}
	return nil
}

// intSync pulses the interrupt line low and floats it, handing the line
// back to the controller after address selection or wake-up.
func (d *Dev) intSync() error {
	if err := d.setIntOutput(gpio.Low); err != nil {
		return err
	}
	time.Sleep(50 * time.Millisecond) // T5: 50ms, mandatory
	return d.setIntInput(gpio.NoEdge)
}
