// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package gt9xx

import (
	"fmt"
	"strings"
	"time"
)

// ESDTimeout returns the current ESD watchdog period. Zero means the
// supervisor is disabled.
func (d *Dev) ESDTimeout() time.Duration {
	return time.Duration(d.esdTimeout.Load()) * time.Millisecond
}

// SetESDTimeout changes the ESD watchdog period. When the controller is
// runtime-active, the supervisor is started or stopped as the value
// crosses zero; setting the current value again is a no-op.
func (d *Dev) SetESDTimeout(t time.Duration) {
	old := d.esdTimeout.Load()
	v := int32(t / time.Millisecond)
	if old != 0 && v == 0 && d.pm.Active() {
		d.disableESD()
	}
	d.esdTimeout.Store(v)
	if old == 0 && v != 0 && d.pm.Active() {
		_ = d.enableESD()
	}
}

// DumpConfig powers the controller on, reads back its configuration blob
// and formats it as lowercase hex bytes separated by spaces.
func (d *Dev) DumpConfig() (string, error) {
	if err := d.setPower(true); err != nil {
		return "", err
	}
	buf := make([]byte, d.cfgLen)
	err := d.readRegs(regConfigData, buf)
	if perr := d.setPower(false); perr != nil && err == nil {
		err = perr
	}
	if err != nil {
		return "", err
	}
	var b strings.Builder
	for _, c := range buf {
		fmt.Fprintf(&b, "%02x ", c)
	}
	return b.String(), nil
}
