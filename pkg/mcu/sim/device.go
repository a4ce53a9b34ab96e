// Package sim provides a simulated heating timer MCU.
//
// Device follows the firmware behaviour byte by byte, including the bit
// widths of the stored timer slots (1 bit state, 3 bit day, 11 bit minute),
// so it can stand in for hardware in tests and with the sim: transport.
package sim

import (
	"context"
	"io"
	"net"
	"sync"
	"time"

	"github.com/robotalks/heating.go/pkg/mcu"
)

type rxState int

const (
	rxCommand rxState = iota
	rxSetDay
	rxSetMinuteHi
	rxSetMinuteLo
	rxSetEntryPos
	rxSetEntryOnOff
	rxSetEntryMinuteHi
	rxSetEntryMinuteLo
	rxSetEntryDay
	rxGetEntry
)

// entry is the EEPROM layout of a timer slot.
type entry struct {
	on     byte
	day    byte
	minute uint16
}

func (e *entry) set(on, day byte, minute uint16) {
	e.on, e.day, e.minute = on&0x01, day&0x07, minute&0x07ff
}

// DefaultPIN is the input register with all pull-ups high.
const DefaultPIN byte = 0xff

// Device is a simulated MCU.
type Device struct {
	// Interval is the simulated length of a minute used by Run.
	Interval time.Duration

	lock    sync.Mutex
	pin     byte
	state   byte
	timedOp bool
	day     byte
	minute  uint16
	table   [mcu.NumEntries]entry

	rx        rxState
	minuteTmp byte
	newEntry  entry
	newPos    byte
}

// NewDevice creates a Device in the firmware power-on state.
func NewDevice() *Device {
	return &Device{
		Interval: time.Minute,
		pin:      DefaultPIN,
		day:      byte(mcu.Sunday),
	}
}

// Handle processes one received byte and returns the bytes sent back.
func (d *Device) Handle(b byte) []byte {
	d.lock.Lock()
	defer d.lock.Unlock()
	switch d.rx {
	case rxCommand:
		return d.command(mcu.Opcode(b))
	case rxSetDay:
		d.day = b
		d.rx = rxCommand
	case rxSetMinuteHi:
		d.minuteTmp = b
		d.rx = rxSetMinuteLo
	case rxSetMinuteLo:
		d.minute = mcu.Uint16(d.minuteTmp, b)
		d.rx = rxCommand
	case rxSetEntryPos:
		d.newPos = b
		d.rx = rxSetEntryOnOff
	case rxSetEntryOnOff:
		d.newEntry.on = b & 0x01
		d.rx = rxSetEntryMinuteHi
	case rxSetEntryMinuteHi:
		d.newEntry.minute = uint16(b) << 8
		d.rx = rxSetEntryMinuteLo
	case rxSetEntryMinuteLo:
		d.newEntry.minute = (d.newEntry.minute | uint16(b)) & 0x07ff
		d.rx = rxSetEntryDay
	case rxSetEntryDay:
		d.newEntry.day = b & 0x07
		if int(d.newPos) < len(d.table) {
			d.table[d.newPos] = d.newEntry
		}
		d.rx = rxCommand
	case rxGetEntry:
		var e entry
		if int(b) < len(d.table) {
			e = d.table[b]
		}
		d.newEntry = e
		d.rx = rxCommand
		reply := []byte{e.on, e.day}
		return mcu.AppendUint16(reply, e.minute)
	}
	return nil
}

func (d *Device) command(op mcu.Opcode) []byte {
	switch op {
	case mcu.OpHeatingOff:
		d.state = 0
	case mcu.OpHeatingOn:
		d.state = 0xff
	case mcu.OpQueryHeating:
		return []byte{d.state}
	case mcu.OpSetDay:
		d.rx = rxSetDay
	case mcu.OpSetMinute:
		d.rx = rxSetMinuteHi
	case mcu.OpSetEntry:
		d.rx = rxSetEntryPos
	case mcu.OpDisableTimedOp:
		d.timedOp = false
	case mcu.OpEnableTimedOp:
		d.timedOp = true
	case mcu.OpQueryTime:
		return mcu.AppendUint16([]byte{d.day}, d.minute)
	case mcu.OpQueryEntry:
		d.rx = rxGetEntry
	case mcu.OpQueryTimedOp:
		if d.timedOp {
			return []byte{1}
		}
		return []byte{0}
	case mcu.OpQueryPIN:
		return []byte{d.pin}
	}
	return nil
}

// Tick advances the clock by one minute and applies the timer table when
// timed operation is enabled.
func (d *Device) Tick() {
	d.lock.Lock()
	defer d.lock.Unlock()
	if d.minute++; d.minute == mcu.MinutesPerDay {
		d.minute = 0
		if d.day++; d.day == 8 {
			d.day = 1
		}
	}
	if !d.timedOp {
		return
	}
	for _, e := range d.table {
		if e.day == d.day && e.minute == d.minute {
			d.state = 0
			if e.on != 0 {
				d.state = 0xff
			}
			return
		}
	}
}

// Run ticks the clock every Interval until ctx is done.
func (d *Device) Run(ctx context.Context) error {
	ticker := time.NewTicker(d.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			d.Tick()
		}
	}
}

// Serve answers requests read from rw until it's closed.
func (d *Device) Serve(rw io.ReadWriter) error {
	buf := make([]byte, 1)
	for {
		if _, err := io.ReadFull(rw, buf); err != nil {
			if err == io.EOF || err == io.ErrClosedPipe {
				return nil
			}
			return err
		}
		if reply := d.Handle(buf[0]); len(reply) > 0 {
			if _, err := rw.Write(reply); err != nil {
				return err
			}
		}
	}
}

// HeatingOn returns the heating output state.
func (d *Device) HeatingOn() bool {
	d.lock.Lock()
	defer d.lock.Unlock()
	return d.state != 0
}

// TimedOperation returns the scheduler state.
func (d *Device) TimedOperation() bool {
	d.lock.Lock()
	defer d.lock.Unlock()
	return d.timedOp
}

// SetPIN sets the input pin register.
func (d *Device) SetPIN(pin byte) {
	d.lock.Lock()
	d.pin = pin
	d.lock.Unlock()
}

// Clock returns the current clock.
func (d *Device) Clock() mcu.DeviceTime {
	d.lock.Lock()
	defer d.lock.Unlock()
	return mcu.DeviceTime{Day: mcu.Weekday(d.day), Minute: mcu.TimeOfDay(d.minute)}
}

// SetClock sets the clock without going through the wire.
func (d *Device) SetClock(t mcu.DeviceTime) {
	d.lock.Lock()
	d.day, d.minute = byte(t.Day), uint16(t.Minute)
	d.lock.Unlock()
}

// Entry returns a stored timer slot.
func (d *Device) Entry(pos int) mcu.TimerEntry {
	d.lock.Lock()
	defer d.lock.Unlock()
	e := d.table[pos]
	return mcu.TimerEntry{
		Position: pos,
		TurnOn:   e.on != 0,
		Day:      mcu.Weekday(e.day),
		Minute:   mcu.TimeOfDay(e.minute),
	}
}

// StoreEntry preloads a timer slot without going through the wire.
func (d *Device) StoreEntry(e mcu.TimerEntry) {
	d.lock.Lock()
	var on byte
	if e.TurnOn {
		on = 1
	}
	d.table[e.Position].set(on, byte(e.Day), uint16(e.Minute))
	d.lock.Unlock()
}

type pipe struct {
	net.Conn
	cancel func()
}

func (p *pipe) Close() error {
	p.cancel()
	return p.Conn.Close()
}

// Pipe connects a stream to the device, the device is served in the
// background until the returned stream is closed. When tick is set the
// device clock runs as well.
func (d *Device) Pipe(tick bool) io.ReadWriteCloser {
	host, dev := net.Pipe()
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		d.Serve(dev)
		dev.Close()
	}()
	if tick {
		go d.Run(ctx)
	}
	return &pipe{Conn: host, cancel: cancel}
}
