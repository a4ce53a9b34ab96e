package mcu

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

// scriptStream records written bytes and replies with canned bytes.
type scriptStream struct {
	written bytes.Buffer
	reply   *bytes.Reader
	closed  int
}

func newScriptStream(reply ...byte) *scriptStream {
	return &scriptStream{reply: bytes.NewReader(reply)}
}

func (s *scriptStream) Read(p []byte) (int, error) {
	return s.reply.Read(p)
}

func (s *scriptStream) Write(p []byte) (int, error) {
	return s.written.Write(p)
}

func (s *scriptStream) Close() error {
	s.closed++
	return nil
}

func TestRequest(t *testing.T) {
	testCases := []struct {
		name   string
		req    *Request
		expect []byte
	}{
		{"no params", NewRequest(OpHeatingOn), []byte{0x02}},
		{"day", NewRequest(OpSetDay, 3), []byte{0x04, 3}},
		{"minute", NewRequest(OpSetMinute, AppendUint16(nil, 1439)...), []byte{0x05, 0x05, 0x9f}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.expect, tc.req.Bytes())
			var buf bytes.Buffer
			n, err := tc.req.WriteTo(&buf)
			require.NoError(t, err)
			require.Equal(t, tc.expect, buf.Bytes())
			require.EqualValues(t, len(tc.expect), n)
		})
	}
}

func TestUint16RoundTrip(t *testing.T) {
	for m := 0; m < MinutesPerDay; m++ {
		b := AppendUint16(nil, uint16(m))
		require.Len(t, b, 2)
		require.Equal(t, uint16(m), Uint16(b[0], b[1]))
	}
	// truncation to 16 bits
	require.Equal(t, []byte{0x23, 0x45}, AppendUint16(nil, uint16(0x12345&0xffff)))
}

func TestBool(t *testing.T) {
	require.False(t, Bool(0x00))
	for _, b := range []byte{0x01, 0xff, 0x7a} {
		require.True(t, Bool(b))
	}
}

func TestOpcodeShapes(t *testing.T) {
	for op := Opcode(0x01); op <= OpQueryPIN; op++ {
		require.True(t, op.IsValid(), op.String())
	}
	require.False(t, Opcode(0).IsValid())
	require.False(t, Opcode(0x0d).IsValid())
	require.Equal(t, "Opcode(0x0d)", Opcode(0x0d).String())
	shape, ok := OpQueryEntry.Shape()
	require.True(t, ok)
	require.Equal(t, Shape{Request: 1, Response: 4}, shape)
}

func TestClientRequestBytes(t *testing.T) {
	testCases := []struct {
		name   string
		reply  []byte
		fn     func(c *Client) error
		expect []byte
	}{
		{"heating on", nil, func(c *Client) error { return c.SetHeating(true) }, []byte{0x02}},
		{"heating off", nil, func(c *Client) error { return c.SetHeating(false) }, []byte{0x01}},
		{"query heating", []byte{0xff}, func(c *Client) error {
			on, err := c.HeatingOn()
			require.True(t, on)
			return err
		}, []byte{0x03}},
		{"set clock", nil, func(c *Client) error { return c.SetClock(Monday, 600) }, []byte{0x04, 0x02, 0x05, 0x02, 0x58}},
		{"set entry", nil, func(c *Client) error {
			return c.SetEntry(TimerEntry{Position: 7, TurnOn: true, Day: Wednesday, Minute: 90})
		}, []byte{0x06, 7, 1, 0x00, 0x5a, 4}},
		{"clear entry", nil, func(c *Client) error { return c.ClearEntry(31) }, []byte{0x06, 31, 0, 0, 0, 0}},
		{"disable timed", nil, func(c *Client) error { return c.SetTimedOperation(false) }, []byte{0x07}},
		{"enable timed", nil, func(c *Client) error { return c.SetTimedOperation(true) }, []byte{0x08}},
		{"query time", []byte{6, 0x04, 0x1a}, func(c *Client) error {
			tm, err := c.Time()
			require.Equal(t, DeviceTime{Day: Friday, Minute: 1050}, tm)
			return err
		}, []byte{0x09}},
		{"query entry", []byte{1, 6, 0x04, 0x1a}, func(c *Client) error {
			e, err := c.Entry(5)
			require.Equal(t, TimerEntry{Position: 5, TurnOn: true, Day: Friday, Minute: 1050}, e)
			return err
		}, []byte{0x0a, 5}},
		{"query timed", []byte{0x7a}, func(c *Client) error {
			en, err := c.TimedOperationEnabled()
			require.True(t, en)
			return err
		}, []byte{0x0b}},
		{"query pin", []byte{0xbf}, func(c *Client) error {
			pin, err := c.ReadPIN()
			require.Equal(t, byte(0xbf), pin)
			return err
		}, []byte{0x0c}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			s := newScriptStream(tc.reply...)
			c := NewClient(s)
			require.NoError(t, tc.fn(c))
			require.Equal(t, tc.expect, s.written.Bytes())
		})
	}
}

func TestClientRangeValidation(t *testing.T) {
	s := newScriptStream()
	c := NewClient(s)
	var rangeErr *RangeError

	err := c.SetClock(Monday, MinutesPerDay)
	require.True(t, errors.As(err, &rangeErr))
	require.Equal(t, "minute", rangeErr.Field)

	err = c.SetClock(Weekday(8), 0)
	require.True(t, errors.As(err, &rangeErr))
	require.Equal(t, "day", rangeErr.Field)

	err = c.SetEntry(TimerEntry{Position: NumEntries, Day: Monday})
	require.True(t, errors.As(err, &rangeErr))
	require.Equal(t, "position", rangeErr.Field)

	_, err = c.Entry(-1)
	require.True(t, errors.As(err, &rangeErr))

	require.Zero(t, s.written.Len())
}

func TestClientEOF(t *testing.T) {
	s := newScriptStream(0x01)
	c := NewClient(s)
	_, err := c.Time()
	require.Error(t, err)
	require.True(t, IsTransportError(err))
	require.True(t, errors.Is(err, io.ErrUnexpectedEOF))
}

func TestClientClose(t *testing.T) {
	s := newScriptStream()
	c := NewClient(s)
	require.NoError(t, c.Close())
	require.NoError(t, c.Close())
	require.Equal(t, 1, s.closed)

	err := c.SetHeating(true)
	require.True(t, IsTransportError(err))
	require.True(t, errors.Is(err, ErrClosed))
	require.Zero(t, s.written.Len())
}

func TestClientUnknownOpcode(t *testing.T) {
	c := NewClient(newScriptStream())
	_, err := c.exec(Opcode(0x20))
	require.True(t, errors.Is(err, ErrUnknownOpcode))
	_, err = c.exec(OpSetDay)
	require.Error(t, err)
}
