package mcu

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/golang/glog"
	"golang.org/x/time/rate"
)

// DefaultEntryWriteRate is the pace of consecutive timer slot writes in
// ClearAllEntries. The firmware commits a slot to EEPROM from its main loop
// after the frame has been received.
const DefaultEntryWriteRate = rate.Limit(32)

// Client provides typed operations over the MCU byte stream.
//
// Each operation holds the client for the whole request/reply exchange, so
// a Client may be shared between goroutines. The wire read has no timeout:
// an operation blocks until the MCU replies or the stream is closed.
type Client struct {
	// Limiter paces slot writes in ClearAllEntries.
	Limiter *rate.Limiter

	stream io.ReadWriteCloser
	conn   byteConn
	lock   sync.Mutex

	closeOnce sync.Once
	closeErr  error
	closedCh  chan struct{}
}

// NewClient creates a client owning the stream.
// The stream must pass bytes unmodified (e.g. a serial port in raw mode).
func NewClient(stream io.ReadWriteCloser) *Client {
	return &Client{
		Limiter:  rate.NewLimiter(DefaultEntryWriteRate, 1),
		stream:   stream,
		conn:     newByteConn(stream),
		closedCh: make(chan struct{}),
	}
}

// Close releases the stream. It's safe to call Close multiple times and
// concurrently with a blocked operation, which then fails.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		close(c.closedCh)
		c.closeErr = c.stream.Close()
	})
	return c.closeErr
}

func (c *Client) isClosed() bool {
	select {
	case <-c.closedCh:
		return true
	default:
		return false
	}
}

// do sends one request and reads its reply. The caller must hold c.lock.
func (c *Client) do(op Opcode, params ...byte) ([]byte, error) {
	shape, ok := op.Shape()
	if !ok {
		return nil, fmt.Errorf("%w: 0x%02x", ErrUnknownOpcode, byte(op))
	}
	if len(params) != shape.Request {
		return nil, fmt.Errorf("%s expects %d parameter bytes, got %d", op, shape.Request, len(params))
	}
	if c.isClosed() {
		return nil, &TransportError{Op: op.String(), Err: ErrClosed}
	}
	if glog.V(3) {
		glog.Infof("TX % x", NewRequest(op, params...).Bytes())
	}
	if err := c.conn.writeByte(byte(op)); err != nil {
		return nil, c.transportError(op, err)
	}
	for _, b := range params {
		if err := c.conn.writeByte(b); err != nil {
			return nil, c.transportError(op, err)
		}
	}
	if shape.Response == 0 {
		return nil, nil
	}
	reply := make([]byte, shape.Response)
	for n := range reply {
		b, err := c.conn.readByte()
		if err != nil {
			return nil, c.transportError(op, err)
		}
		reply[n] = b
	}
	if glog.V(3) {
		glog.Infof("RX % x", reply)
	}
	return reply, nil
}

func (c *Client) transportError(op Opcode, err error) error {
	if c.isClosed() {
		err = ErrClosed
	}
	return &TransportError{Op: op.String(), Err: err}
}

func (c *Client) exec(op Opcode, params ...byte) ([]byte, error) {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.do(op, params...)
}

func (c *Client) queryBool(op Opcode) (bool, error) {
	reply, err := c.exec(op)
	if err != nil {
		return false, err
	}
	return Bool(reply[0]), nil
}

// SetHeating turns heating on or off.
func (c *Client) SetHeating(on bool) error {
	op := OpHeatingOff
	if on {
		op = OpHeatingOn
	}
	_, err := c.exec(op)
	return err
}

// HeatingOn queries the heating state.
func (c *Client) HeatingOn() (bool, error) {
	return c.queryBool(OpQueryHeating)
}

// SetTimedOperation enables or disables the MCU scheduler.
func (c *Client) SetTimedOperation(enabled bool) error {
	op := OpDisableTimedOp
	if enabled {
		op = OpEnableTimedOp
	}
	_, err := c.exec(op)
	return err
}

// TimedOperationEnabled queries the scheduler state.
func (c *Client) TimedOperationEnabled() (bool, error) {
	return c.queryBool(OpQueryTimedOp)
}

// ReadPIN reads the raw input pin register.
func (c *Client) ReadPIN() (byte, error) {
	reply, err := c.exec(OpQueryPIN)
	if err != nil {
		return 0, err
	}
	return reply[0], nil
}

// SetClock sets the MCU clock. The firmware splits this into SetDay and
// SetMinute, both are sent back to back without releasing the client.
func (c *Client) SetClock(day Weekday, minute TimeOfDay) error {
	if err := checkRange("day", int(day), int(Saturday)); err != nil {
		return err
	}
	if err := checkRange("minute", int(minute), MinutesPerDay-1); err != nil {
		return err
	}
	c.lock.Lock()
	defer c.lock.Unlock()
	if _, err := c.do(OpSetDay, byte(day)); err != nil {
		return err
	}
	_, err := c.do(OpSetMinute, AppendUint16(nil, uint16(minute))...)
	return err
}

// Time reads the MCU clock.
func (c *Client) Time() (DeviceTime, error) {
	reply, err := c.exec(OpQueryTime)
	if err != nil {
		return DeviceTime{}, err
	}
	return DeviceTime{
		Day:    Weekday(reply[0]),
		Minute: TimeOfDay(Uint16(reply[1], reply[2])),
	}, nil
}

// SyncClock sets the MCU clock from host time and enables timed operation.
func (c *Client) SyncClock(now time.Time) (DeviceTime, error) {
	t := DeviceTime{Day: WeekdayOf(now.Weekday()), Minute: TimeOfDayOf(now)}
	if err := c.SetClock(t.Day, t.Minute); err != nil {
		return t, err
	}
	return t, c.SetTimedOperation(true)
}

// SetEntry writes one timer slot. A Day of Invalid deactivates the slot.
func (c *Client) SetEntry(e TimerEntry) error {
	if err := checkRange("position", e.Position, NumEntries-1); err != nil {
		return err
	}
	if err := checkRange("day", int(e.Day), int(Saturday)); err != nil {
		return err
	}
	if err := checkRange("minute", int(e.Minute), MinutesPerDay-1); err != nil {
		return err
	}
	// The parameter order differs from the QueryEntry reply.
	params := []byte{byte(e.Position), boolByte(e.TurnOn)}
	params = AppendUint16(params, uint16(e.Minute))
	params = append(params, byte(e.Day))
	_, err := c.exec(OpSetEntry, params...)
	return err
}

// ClearEntry deactivates one timer slot.
func (c *Client) ClearEntry(pos int) error {
	return c.SetEntry(TimerEntry{Position: pos, Day: Invalid})
}

// ClearAllEntries deactivates all timer slots, paced by Limiter.
func (c *Client) ClearAllEntries(ctx context.Context) error {
	for pos := 0; pos < NumEntries; pos++ {
		if c.Limiter != nil {
			if err := c.Limiter.Wait(ctx); err != nil {
				return err
			}
		}
		if err := c.ClearEntry(pos); err != nil {
			return err
		}
	}
	return nil
}

// Entry reads one timer slot.
func (c *Client) Entry(pos int) (TimerEntry, error) {
	if err := checkRange("position", pos, NumEntries-1); err != nil {
		return TimerEntry{}, err
	}
	reply, err := c.exec(OpQueryEntry, byte(pos))
	if err != nil {
		return TimerEntry{}, err
	}
	return TimerEntry{
		Position: pos,
		TurnOn:   Bool(reply[0]),
		Day:      Weekday(reply[1]),
		Minute:   TimeOfDay(Uint16(reply[2], reply[3])),
	}, nil
}

// DumpEntries reads all timer slots in position order.
func (c *Client) DumpEntries() ([]TimerEntry, error) {
	entries := make([]TimerEntry, 0, NumEntries)
	for pos := 0; pos < NumEntries; pos++ {
		e, err := c.Entry(pos)
		if err != nil {
			return entries, err
		}
		entries = append(entries, e)
	}
	return entries, nil
}
