// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package gt9xx implements a driver for the Goodix GT9xx family of
// capacitive multi-touch controllers connected over I²C.
//
// The controller exposes a 16-bit register space. Besides the bus it uses
// two lines: a reset line and an interrupt line. During power-on reset the
// level of the interrupt line selects the controller's 7-bit slave address
// (0x5D or 0x14). On boards where the two lines are not wired to host
// GPIOs, a secondary I²C expander can drive the interrupt line instead; see
// Opts.SubstituteAddr.
//
// Datasheet: GT911 Programming Guide, Goodix Technology.
package gt9xx

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/goodix/firmware"
	"periph.io/x/goodix/mt"
	"periph.io/x/goodix/runtimepm"
)

// Controller registers.
const (
	regCommand    = 0x8040 // command; 2-byte read returns {last command, ESD flag}
	regESDCheck   = 0x8041 // write 0xAA to arm the ESD watchdog
	regConfigData = 0x8047 // start of the configuration blob
	regID         = 0x8140 // 4 ASCII digits, then 2-byte LE version
	regCoordAddr  = 0x814E // report header + contacts; writing 0 acks
)

const (
	cmdScreenOff  = 0x05
	cmdESDEnabled = 0xAA
)

const (
	maxWidth    = 4096
	maxHeight   = 4096
	maxContacts = 10
	contactSize = 8

	// The controller must not receive a wake-up earlier than 58ms after a
	// screen-off command.
	screenOffSettle = 58 * time.Millisecond

	autosuspendDelay = 2000 * time.Millisecond
)

var (
	// ErrResetFailed is returned when the power-on reset and address
	// selection sequence could not be driven on the lines.
	ErrResetFailed = errors.New("gt9xx: controller reset failed")
	// ErrI2CTest is returned when the controller does not answer on the
	// bus after reset.
	ErrI2CTest = errors.New("gt9xx: controller not responding")
)

// Opts holds the platform description of one GT9xx controller.
type Opts struct {
	// Addr is the 7-bit slave address, 0x5D or 0x14. Defaults to 0x5D.
	// When both lines are wired, the reset sequence latches this address
	// into the controller.
	Addr uint16

	// Reset and Int are the reset and interrupt lines. Without both the
	// controller is treated as always-on: no reset, no power management,
	// no ESD supervision. Int alone still feeds the interrupt service;
	// Reset alone is rejected.
	Reset gpio.PinIO
	Int   gpio.PinIO

	// SubstituteAddr is the address of an I²C expander that drives the
	// interrupt line on boards where it is not wired to a host GPIO.
	// Zero disables it.
	SubstituteAddr uint16

	// Panel orientation.
	SwappedXY bool
	InvertedX bool
	InvertedY bool

	// ESDTimeout is the watchdog period. Zero disables ESD supervision.
	ESDTimeout time.Duration

	// Loader locates the controller configuration blob
	// ("goodix_<id>_cfg.bin"). May be nil.
	Loader firmware.Loader

	// Identity is the host identity used to select panel quirks.
	Identity Identity
}

// Dev is a handle to one GT9xx controller.
type Dev struct {
	c   *i2c.Dev // controller
	sub *i2c.Dev // substitute expander for the INT line, or nil

	pinRST gpio.PinIO
	pinINT gpio.PinIO

	loader   firmware.Loader
	identity Identity

	// Panel capabilities, fixed once the configuration is read.
	absXMax     int
	absYMax     int
	maxTouch    int
	triggerType uint8
	swappedXY   bool
	invertedX   bool
	invertedY   bool

	id      uint16
	version uint16
	cfgLen  int
	cfgName string

	sink *mt.Device
	pm   *runtimepm.Device
	esd  *delayedWork

	esdTimeout atomic.Int32 // milliseconds; 0 disables
	openCount  atomic.Int32

	// fwLoaded is closed once the asynchronous configuration load has
	// finished, success or not. Everything that assumes a configured
	// device waits on it.
	fwLoaded chan struct{}
	fwOnce   sync.Once

	// mu serializes power transitions and guards suspended. It is never
	// held across the interrupt service.
	mu        sync.Mutex
	suspended bool

	// irq is the running interrupt service, nil when torn down. Mutated
	// only by the configuration continuation, the ESD tick and the
	// sleep/wake paths, which are mutually excluded by construction.
	irq *irqService

	// Scratch for one report frame. Only touched by the interrupt
	// service, which is single-threaded.
	reportBuf [1 + contactSize*maxContacts]byte
}

// New opens a GT9xx controller on the given bus.
//
// When reset and interrupt lines are present the controller is reset, its
// address latched, and the configuration blob is requested asynchronously;
// the returned Dev finishes initializing in the background. Input() blocks
// until that happened. Without lines the controller is configured before
// New returns.
func New(bus i2c.Bus, opts *Opts) (*Dev, error) {
	if opts == nil {
		opts = &Opts{}
	}
	addr := opts.Addr
	if addr == 0 {
		addr = 0x5D
	}
	if addr != 0x5D && addr != 0x14 {
		return nil, fmt.Errorf("gt9xx: invalid slave address 0x%02x", addr)
	}
	if opts.Reset != nil && opts.Int == nil {
		return nil, errors.New("gt9xx: a reset line requires an interrupt line")
	}
	d := &Dev{
		c:         &i2c.Dev{Bus: bus, Addr: addr},
		pinRST:    opts.Reset,
		pinINT:    opts.Int,
		loader:    opts.Loader,
		identity:  opts.Identity,
		swappedXY: opts.SwappedXY,
		invertedX: opts.InvertedX,
		invertedY: opts.InvertedY,
		fwLoaded:  make(chan struct{}),
	}
	d.esd = &delayedWork{fn: d.esdWork}
	d.pm = runtimepm.New(pmOps{d})

	if opts.SubstituteAddr != 0 && d.bothPins() {
		d.sub = &i2c.Dev{Bus: bus, Addr: opts.SubstituteAddr}
		// The expander is optional equipment; probe it once and fall
		// back to direct GPIO if it does not answer.
		if err := d.setIntInput(gpio.NoEdge); err != nil {
			log.Printf("gt9xx: expander at 0x%02x not responding, using direct GPIO: %v", opts.SubstituteAddr, err)
			d.sub = nil
		}
	}

	if d.bothPins() {
		if err := d.reset(); err != nil {
			return nil, err
		}
	}
	if err := d.i2cTest(); err != nil {
		return nil, err
	}
	if err := d.readVersion(); err != nil {
		return nil, err
	}
	d.cfgLen = configLength(d.id)

	if d.bothPins() {
		d.esdTimeout.Store(int32(opts.ESDTimeout / time.Millisecond))
		d.cfgName = fmt.Sprintf("goodix_%d_cfg.bin", d.id)
		firmware.RequestNowait(d.loader, d.cfgName, d.configCB)
		return d, nil
	}
	// Always-on panel: configure right away.
	err := d.configureDev()
	d.fwOnce.Do(func() { close(d.fwLoaded) })
	if err != nil {
		return nil, err
	}
	return d, nil
}

// configCB finishes device initialization once the configuration blob is
// available. blob is nil when the loader had nothing to offer, which is not
// an error: the controller then runs its built-in configuration.
func (d *Dev) configCB(blob []byte) {
	// The barrier must be signalled on every exit, or waiters (ESD
	// ticks, Open, Close, Suspend) would hang forever.
	defer d.fwOnce.Do(func() { close(d.fwLoaded) })

	if blob != nil {
		if err := d.sendConfig(blob); err != nil {
			log.Printf("gt9xx: sending %s: %v", d.cfgName, err)
			return
		}
	}
	if err := d.configureDev(); err != nil {
		log.Printf("gt9xx: %v", err)
		return
	}
	// A failed watchdog arm must not keep power management from coming
	// up; enableESD already logged it.
	_ = d.enableESD()
	d.pm.SetAutosuspendDelay(autosuspendDelay)
	d.pm.UseAutosuspend()
	if err := d.pm.SetActive(); err != nil {
		return
	}
	d.pm.Enable()
	// Must not suspend immediately after initialization.
	d.pm.MarkLastBusy()
	d.pm.RequestAutosuspend()
}

// configureDev reads the panel capabilities, creates the input device and
// arms the interrupt service. Common to the line-less path in New and the
// configuration continuation.
func (d *Dev) configureDev() error {
	d.readConfig()
	d.sink = mt.New(mt.Info{
		Name:    "Goodix Capacitive TouchScreen",
		Vendor:  0x0416,
		Product: d.id,
		Version: d.version,
	}, d.maxTouch, d.absXMax, d.absYMax)
	d.sink.OnOpen = d.inputOpen
	d.sink.OnClose = d.inputClose
	if err := d.requestIRQ(); err != nil {
		return err
	}
	return nil
}

// Input returns the multi-touch event device, blocking until the
// asynchronous initialization has finished. It returns nil if
// initialization failed.
func (d *Dev) Input() *mt.Device {
	<-d.fwLoaded
	return d.sink
}

// ID returns the decimal controller id (e.g. 911) and firmware version.
func (d *Dev) ID() (id, version uint16) {
	return d.id, d.version
}

func (d *Dev) String() string {
	return fmt.Sprintf("gt9xx{%s}", d.c.String())
}

// Halt implements conn.Resource. It is equivalent to Close.
func (d *Dev) Halt() error {
	return d.Close()
}

// Close releases the controller: it stops power management, the ESD
// supervisor and the interrupt service. The controller itself is left
// running.
func (d *Dev) Close() error {
	if !d.bothPins() {
		return nil
	}
	<-d.fwLoaded
	d.pm.Disable()
	d.disableESD()
	d.freeIRQ()
	return nil
}

func (d *Dev) bothPins() bool {
	return d.pinRST != nil && d.pinINT != nil
}

// i2cTest checks that the controller answers on the bus, with one retry.
func (d *Dev) i2cTest() error {
	var buf [1]byte
	var err error
	for retry := 0; retry < 2; retry++ {
		if err = d.readRegs(regConfigData, buf[:]); err == nil {
			return nil
		}
		time.Sleep(20 * time.Millisecond)
	}
	return fmt.Errorf("%w: %v", ErrI2CTest, err)
}

// pmOps connects the runtime power management facade to the device's
// sleep and wake transitions. Runtime resume and system resume share the
// same wake routine.
type pmOps struct {
	d *Dev
}

func (o pmOps) RuntimeSuspend() error {
	return o.d.sleep()
}

func (o pmOps) RuntimeResume() error {
	return o.d.wakeup()
}

var _ runtimepm.Ops = pmOps{}
