package mcu_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/robotalks/heating.go/pkg/mcu"
	"github.com/robotalks/heating.go/pkg/mcu/sim"
)

func newSimClient(t *testing.T) (*mcu.Client, *sim.Device) {
	dev := sim.NewDevice()
	c := mcu.NewClient(dev.Pipe(false))
	c.Limiter = rate.NewLimiter(rate.Inf, 1)
	t.Cleanup(func() { c.Close() })
	return c, dev
}

func TestHeating(t *testing.T) {
	c, dev := newSimClient(t)
	require.NoError(t, c.SetHeating(true))
	on, err := c.HeatingOn()
	require.NoError(t, err)
	require.True(t, on)
	require.True(t, dev.HeatingOn())

	require.NoError(t, c.SetHeating(false))
	on, err = c.HeatingOn()
	require.NoError(t, err)
	require.False(t, on)
}

func TestTimedOperation(t *testing.T) {
	c, _ := newSimClient(t)
	require.NoError(t, c.SetTimedOperation(true))
	en, err := c.TimedOperationEnabled()
	require.NoError(t, err)
	require.True(t, en)
	require.NoError(t, c.SetTimedOperation(false))
	en, err = c.TimedOperationEnabled()
	require.NoError(t, err)
	require.False(t, en)
}

func TestSetClock(t *testing.T) {
	c, _ := newSimClient(t)
	require.NoError(t, c.SetClock(mcu.Monday, 600))
	tm, err := c.Time()
	require.NoError(t, err)
	require.Equal(t, mcu.DeviceTime{Day: mcu.Monday, Minute: 600}, tm)
}

func TestSyncClock(t *testing.T) {
	c, dev := newSimClient(t)
	// 2024-01-03 is a Wednesday.
	now := time.Date(2024, 1, 3, 7, 45, 12, 0, time.Local)
	written, err := c.SyncClock(now)
	require.NoError(t, err)
	require.Equal(t, mcu.DeviceTime{Day: mcu.Wednesday, Minute: 465}, written)
	require.Equal(t, written, dev.Clock())
	require.True(t, dev.TimedOperation())
}

func TestSetEntry(t *testing.T) {
	c, _ := newSimClient(t)
	require.NoError(t, c.SetEntry(mcu.TimerEntry{Position: 9, TurnOn: true, Day: mcu.Wednesday, Minute: 90}))
	e, err := c.Entry(9)
	require.NoError(t, err)
	require.Equal(t, mcu.TimerEntry{Position: 9, TurnOn: true, Day: mcu.Wednesday, Minute: 90}, e)
}

func TestClearEntry(t *testing.T) {
	c, dev := newSimClient(t)
	for pos := 0; pos < mcu.NumEntries; pos += 7 {
		dev.StoreEntry(mcu.TimerEntry{Position: pos, TurnOn: true, Day: mcu.Saturday, Minute: 1200})
		require.NoError(t, c.ClearEntry(pos))
		e, err := c.Entry(pos)
		require.NoError(t, err)
		require.Equal(t, mcu.Invalid, e.Day)
		require.False(t, e.Active())
	}
}

func TestClearAllEntries(t *testing.T) {
	c, dev := newSimClient(t)
	for pos := 0; pos < mcu.NumEntries; pos++ {
		dev.StoreEntry(mcu.TimerEntry{Position: pos, Day: mcu.Tuesday, Minute: mcu.TimeOfDay(pos)})
	}
	require.NoError(t, c.ClearAllEntries(context.Background()))
	entries, err := c.DumpEntries()
	require.NoError(t, err)
	for _, e := range entries {
		require.False(t, e.Active(), "slot %d", e.Position)
	}
}

func TestClearAllEntriesCanceled(t *testing.T) {
	c, _ := newSimClient(t)
	c.Limiter = rate.NewLimiter(rate.Every(time.Hour), 1)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	require.Error(t, c.ClearAllEntries(ctx))
}

func TestDumpEntries(t *testing.T) {
	c, dev := newSimClient(t)
	dev.StoreEntry(mcu.TimerEntry{Position: 5, TurnOn: true, Day: mcu.Friday, Minute: mcu.NewTimeOfDay(17, 30)})
	entries, err := c.DumpEntries()
	require.NoError(t, err)
	require.Len(t, entries, mcu.NumEntries)
	for n, e := range entries {
		require.Equal(t, n, e.Position)
		line := fmt.Sprintf("%d : %s", e.Position, e)
		if n == 5 {
			require.True(t, e.Active())
			require.Equal(t, "5 : fri 17:30 -> on", line)
		} else {
			require.False(t, e.Active())
			require.Equal(t, fmt.Sprintf("%d : Not active", n), line)
		}
	}
}

func TestReadPIN(t *testing.T) {
	c, dev := newSimClient(t)
	pin, err := c.ReadPIN()
	require.NoError(t, err)
	require.Equal(t, sim.DefaultPIN, pin)
	dev.SetPIN(0x3c)
	pin, err = c.ReadPIN()
	require.NoError(t, err)
	require.Equal(t, byte(0x3c), pin)
}

func TestConcurrentCallers(t *testing.T) {
	c, _ := newSimClient(t)
	errCh := make(chan error, 2)
	go func() {
		for n := 0; n < 50; n++ {
			if err := c.SetClock(mcu.Thursday, mcu.TimeOfDay(n)); err != nil {
				errCh <- err
				return
			}
		}
		errCh <- nil
	}()
	go func() {
		for n := 0; n < 50; n++ {
			if _, err := c.Entry(n % mcu.NumEntries); err != nil {
				errCh <- err
				return
			}
		}
		errCh <- nil
	}()
	require.NoError(t, <-errCh)
	require.NoError(t, <-errCh)
	tm, err := c.Time()
	require.NoError(t, err)
	require.Equal(t, mcu.DeviceTime{Day: mcu.Thursday, Minute: 49}, tm)
}

func TestCloseUnblocksRead(t *testing.T) {
	c, _ := newSimClient(t)
	require.NoError(t, c.Close())
	_, err := c.HeatingOn()
	require.True(t, mcu.IsTransportError(err))
}
