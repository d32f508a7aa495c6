// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package gt9xx

import (
	"encoding/binary"
	"errors"
	"testing"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpiotest"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2ctest"
	"periph.io/x/goodix/mt"
	"periph.io/x/goodix/runtimepm"
)

// makeConfig builds a valid configuration blob of length n.
func makeConfig(n int, xMax, yMax uint16, contacts, trigger byte) []byte {
	cfg := make([]byte, n)
	binary.LittleEndian.PutUint16(cfg[resolutionLoc:], xMax)
	binary.LittleEndian.PutUint16(cfg[resolutionLoc+2:], yMax)
	cfg[maxContactsLoc] = contacts
	cfg[triggerLoc] = trigger
	var sum byte
	for _, b := range cfg[:n-2] {
		sum += b
	}
	cfg[n-2] = ^sum + 1
	cfg[n-1] = 1
	return cfg
}

// testDev returns a Dev in the configured state, bypassing probe.
func testDev(bus i2c.Bus, rst, intp gpio.PinIO) *Dev {
	d := &Dev{
		c:           &i2c.Dev{Bus: bus, Addr: 0x5D},
		pinRST:      rst,
		pinINT:      intp,
		absXMax:     maxWidth,
		absYMax:     maxHeight,
		maxTouch:    maxContacts,
		triggerType: 1,
		cfgLen:      config911Length,
		cfgName:     "goodix_911_cfg.bin",
		fwLoaded:    make(chan struct{}),
	}
	d.esd = &delayedWork{fn: d.esdWork}
	d.pm = runtimepm.New(pmOps{d})
	d.sink = mt.New(mt.Info{}, d.maxTouch, d.absXMax, d.absYMax)
	d.sink.OnOpen = d.inputOpen
	d.sink.OnClose = d.inputClose
	close(d.fwLoaded)
	return d
}

func testPins() (*gpiotest.Pin, *gpiotest.Pin) {
	rst := &gpiotest.Pin{N: "RST1", Num: 1}
	intp := &gpiotest.Pin{N: "INT1", Num: 2, EdgesChan: make(chan gpio.Level, 8)}
	return rst, intp
}

type mapLoader map[string][]byte

func (m mapLoader) Load(name string) ([]byte, error) {
	return m[name], nil
}

func waitFrame(t *testing.T, d *mt.Device) mt.Frame {
	t.Helper()
	select {
	case f := <-d.Frames():
		return f
	case <-time.After(2 * time.Second):
		t.Fatal("no frame within 2s")
		return mt.Frame{}
	}
}

func TestNewCleanProbe(t *testing.T) {
	cfg := makeConfig(config911Length, 4096, 4096, 10, 1)
	rst, intp := testPins()
	p := &i2ctest.Playback{
		Ops: []i2ctest.IO{
			// Bus probe.
			{Addr: 0x14, W: []byte{0x80, 0x47}, R: []byte{0x00}},
			// Identity.
			{Addr: 0x14, W: []byte{0x81, 0x40}, R: []byte{'0', '9', '1', '1', 0x00, 0x01}},
			// Configuration download.
			{Addr: 0x14, W: append([]byte{0x80, 0x47}, cfg...)},
			// Capabilities read-back.
			{Addr: 0x14, W: []byte{0x80, 0x47}, R: cfg},
			// One report: slot 3, x=100, y=200, w=5.
			{Addr: 0x14, W: []byte{0x81, 0x4E}, R: []byte{0x81, 0x03, 100, 0, 200, 0, 5, 0, 0}},
			// Acknowledge.
			{Addr: 0x14, W: []byte{0x81, 0x4E, 0x00}},
		},
	}
	d, err := New(p, &Opts{
		Addr:   0x14,
		Reset:  rst,
		Int:    intp,
		Loader: mapLoader{"goodix_911_cfg.bin": cfg},
	})
	if err != nil {
		t.Fatal(err)
	}
	if id, ver := d.ID(); id != 911 || ver != 0x0100 {
		t.Fatalf("ID() = %d, 0x%04x", id, ver)
	}
	if rst.L != gpio.High {
		t.Fatal("reset line should be released")
	}

	in := d.Input()
	if in == nil {
		t.Fatal("initialization failed")
	}
	if in.Info.Vendor != 0x0416 || in.Info.Product != 911 || in.Info.Version != 0x0100 {
		t.Fatalf("unexpected identity: %+v", in.Info)
	}
	if err := in.Open(); err != nil {
		t.Fatal(err)
	}
	if got := d.openCount.Load(); got != 1 {
		t.Fatalf("openCount = %d", got)
	}

	intp.EdgesChan <- gpio.Low
	f := waitFrame(t, in)
	if len(f.Contacts) != 1 || len(f.Released) != 0 {
		t.Fatalf("frame = %+v", f)
	}
	c := f.Contacts[0]
	if c.Slot != 3 || c.X != 100 || c.Y != 200 || c.TouchMajor != 5 {
		t.Fatalf("contact = %+v", c)
	}

	in.Close()
	if got := d.openCount.Load(); got != 0 {
		t.Fatalf("openCount = %d", got)
	}
	if err := d.Close(); err != nil {
		t.Fatal(err)
	}
	if err := p.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestNewNoGPIO(t *testing.T) {
	cfg := makeConfig(config911Length, 1024, 768, 5, 0)
	p := &i2ctest.Playback{
		Ops: []i2ctest.IO{
			{Addr: 0x5D, W: []byte{0x80, 0x47}, R: []byte{0x00}},
			{Addr: 0x5D, W: []byte{0x81, 0x40}, R: []byte{'0', '9', '1', '1', 0x34, 0x12}},
			{Addr: 0x5D, W: []byte{0x80, 0x47}, R: cfg},
		},
	}
	d, err := New(p, nil)
	if err != nil {
		t.Fatal(err)
	}
	if d.absXMax != 1024 || d.absYMax != 768 || d.maxTouch != 5 {
		t.Fatalf("capabilities = %dx%d, %d contacts", d.absXMax, d.absYMax, d.maxTouch)
	}
	in := d.Input()
	if in == nil {
		t.Fatal("no input device")
	}
	// Always-on panel: open succeeds without touching power management.
	if err := in.Open(); err != nil {
		t.Fatal(err)
	}
	if got := d.openCount.Load(); got != 0 {
		t.Fatalf("openCount = %d", got)
	}
	in.Close()
	if err := d.Suspend(); err != nil {
		t.Fatal(err)
	}
	if err := d.Close(); err != nil {
		t.Fatal(err)
	}
	if err := p.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestNewSubstituteExpander(t *testing.T) {
	cfg := makeConfig(config911Length, 4096, 4096, 10, 1)
	rst, intp := testPins()
	p := &i2ctest.Playback{
		Ops: []i2ctest.IO{
			// Expander probe.
			{Addr: 0x40, W: []byte{0x1D, 3}},
			// Reset: INT low selects 0x5D.
			{Addr: 0x40, W: []byte{0x1D, 1}},
			// INT sync: low, then float.
			{Addr: 0x40, W: []byte{0x1D, 1}},
			{Addr: 0x40, W: []byte{0x1D, 3}},
			// Bus probe, identity.
			{Addr: 0x5D, W: []byte{0x80, 0x47}, R: []byte{0x00}},
			{Addr: 0x5D, W: []byte{0x81, 0x40}, R: []byte{'0', '9', '1', '1', 0x00, 0x01}},
			// No blob from the loader; capabilities read-back only.
			{Addr: 0x5D, W: []byte{0x80, 0x47}, R: cfg},
			// Interrupt service arming floats the line again.
			{Addr: 0x40, W: []byte{0x1D, 3}},
		},
	}
	d, err := New(p, &Opts{
		Reset:          rst,
		Int:            intp,
		SubstituteAddr: 0x40,
	})
	if err != nil {
		t.Fatal(err)
	}
	if d.Input() == nil {
		t.Fatal("initialization failed")
	}
	if err := d.Close(); err != nil {
		t.Fatal(err)
	}
	if err := p.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestNewBadAddress(t *testing.T) {
	p := &i2ctest.Playback{DontPanic: true}
	if _, err := New(p, &Opts{Addr: 0x99}); err == nil {
		t.Fatal("expected error for invalid address")
	}
}

func TestNewResetWithoutInt(t *testing.T) {
	rst, _ := testPins()
	p := &i2ctest.Playback{DontPanic: true}
	if _, err := New(p, &Opts{Reset: rst}); err == nil {
		t.Fatal("expected error for reset line without interrupt line")
	}
}

func TestConfigCBWatchdogFailureStillEnablesPM(t *testing.T) {
	rst, intp := testPins()
	// The bus does not answer: the capability read falls back to
	// defaults and arming the watchdog fails.
	p := &i2ctest.Playback{DontPanic: true}
	d := testDev(p, rst, intp)
	d.fwLoaded = make(chan struct{})
	d.esdTimeout.Store(10000)

	d.configCB(nil)
	select {
	case <-d.fwLoaded:
	default:
		t.Fatal("initialization barrier not signalled")
	}
	d.freeIRQ()

	// Power management must be live despite the failed arm: a get on a
	// suspended device performs the wake transition.
	d.esdTimeout.Store(0)
	d.suspended = true
	d.pm.SetSuspended()
	if err := d.pm.GetSync(); err != nil {
		t.Fatal(err)
	}
	if d.suspended {
		t.Fatal("runtime PM not enabled after a failed watchdog arm")
	}
	d.freeIRQ()
}

func TestNewNotResponding(t *testing.T) {
	p := &i2ctest.Playback{DontPanic: true}
	_, err := New(p, nil)
	if !errors.Is(err, ErrI2CTest) {
		t.Fatalf("err = %v", err)
	}
}
