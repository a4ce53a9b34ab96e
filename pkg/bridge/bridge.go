// Package bridge exposes the MCU over MQTT.
//
// The bridge is the only user of the MCU while it runs: status polls and
// commands received from the broker are executed one at a time from Run.
package bridge

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/golang/glog"
	"github.com/golang/protobuf/proto"
	"golang.org/x/time/rate"

	"github.com/robotalks/heating.go/pkg/comm/mqtt"
	"github.com/robotalks/heating.go/pkg/mcu"
	"github.com/robotalks/heating.go/pkg/msgs"
)

// Topics, relative to the queue prefix.
const (
	TopicStatus        = "status"
	TopicEntries       = "entries"
	TopicCommands      = "cmd/#"
	TopicCmdHeating    = "cmd/heating"
	TopicCmdTimed      = "cmd/timed"
	TopicCmdSync       = "cmd/sync"
	TopicCmdEntrySet   = "cmd/entry/set"
	TopicCmdEntryClear = "cmd/entry/clear"
	TopicCmdEntries    = "cmd/entries"
)

// Device is the set of MCU operations used by the bridge.
type Device interface {
	SetHeating(on bool) error
	HeatingOn() (bool, error)
	SetTimedOperation(enabled bool) error
	TimedOperationEnabled() (bool, error)
	Time() (mcu.DeviceTime, error)
	SyncClock(now time.Time) (mcu.DeviceTime, error)
	ReadPIN() (byte, error)
	SetEntry(e mcu.TimerEntry) error
	ClearEntry(pos int) error
	DumpEntries() ([]mcu.TimerEntry, error)
}

// Publisher publishes messages.
type Publisher interface {
	PubWith(topic string, payload []byte, qos byte, retain bool) paho.Token
}

// Command is a message received on a command topic.
type Command struct {
	Topic   string
	Payload []byte
}

// Bridge polls the MCU and executes commands from MQTT.
type Bridge struct {
	Device   Device
	Queue    *mqtt.Queue
	Pub      Publisher
	Interval time.Duration
	// Limiter paces command execution.
	Limiter        *rate.Limiter
	PublishTimeout time.Duration
	Now            func() time.Time

	cmdCh chan Command
}

// DefaultCommandRate limits commands executed per second.
const DefaultCommandRate = rate.Limit(4)

// New creates a Bridge.
func New(dev Device, q *mqtt.Queue, interval time.Duration) *Bridge {
	b := &Bridge{
		Device:         dev,
		Queue:          q,
		Interval:       interval,
		Limiter:        rate.NewLimiter(DefaultCommandRate, 4),
		PublishTimeout: 5 * time.Second,
		Now:            time.Now,
		cmdCh:          make(chan Command, 16),
	}
	if q != nil {
		b.Pub = q
	}
	return b
}

// Name implements framework.Named.
func (b *Bridge) Name() string {
	return "bridge"
}

// HandleMessage queues a command, it's the MQTT subscription handler.
func (b *Bridge) HandleMessage(topic string, payload []byte) {
	select {
	case b.cmdCh <- Command{Topic: topic, Payload: payload}:
	default:
		glog.Warningf("command queue full, drop %q", topic)
	}
}

// Run implements framework.Runnable.
func (b *Bridge) Run(ctx context.Context) error {
	sub := b.Queue.Sub(TopicCommands, b.HandleMessage)
	defer sub.Close()

	if err := b.PublishEntries(); err != nil {
		return err
	}
	if err := b.PublishStatus(); err != nil {
		return err
	}
	ticker := time.NewTicker(b.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := b.PublishStatus(); err != nil {
				return err
			}
		case cmd := <-b.cmdCh:
			if err := b.Execute(ctx, cmd); err != nil {
				if mcu.IsTransportError(err) || ctx.Err() != nil {
					return err
				}
				glog.Errorf("command %s failed: %v", cmd.Topic, err)
			}
		}
	}
}

// Execute runs one command and publishes the changed state.
func (b *Bridge) Execute(ctx context.Context, cmd Command) error {
	if b.Limiter != nil {
		if err := b.Limiter.Wait(ctx); err != nil {
			return err
		}
	}
	glog.V(1).Infof("execute %s", cmd.Topic)
	switch cmd.Topic {
	case TopicCmdHeating:
		on, err := parseSwitch(cmd.Payload)
		if err != nil {
			return err
		}
		if err := b.Device.SetHeating(on); err != nil {
			return err
		}
		return b.PublishStatus()
	case TopicCmdTimed:
		en, err := parseSwitch(cmd.Payload)
		if err != nil {
			return err
		}
		if err := b.Device.SetTimedOperation(en); err != nil {
			return err
		}
		return b.PublishStatus()
	case TopicCmdSync:
		t, err := b.Device.SyncClock(b.Now())
		if err != nil {
			return err
		}
		glog.Infof("clock synchronized to %s", t)
		return b.PublishStatus()
	case TopicCmdEntrySet:
		var entry msgs.Entry
		if err := msgs.Decode(cmd.Payload, &entry); err != nil {
			return fmt.Errorf("invalid entry: %w", err)
		}
		if err := b.Device.SetEntry(entry.TimerEntry()); err != nil {
			return err
		}
		return b.PublishEntries()
	case TopicCmdEntryClear:
		pos, err := strconv.Atoi(strings.TrimSpace(string(cmd.Payload)))
		if err != nil {
			return fmt.Errorf("invalid position %q", cmd.Payload)
		}
		if err := b.Device.ClearEntry(pos); err != nil {
			return err
		}
		return b.PublishEntries()
	case TopicCmdEntries:
		return b.PublishEntries()
	}
	return fmt.Errorf("unknown command topic %q", cmd.Topic)
}

func parseSwitch(payload []byte) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(string(payload))) {
	case "on", "true", "1":
		return true, nil
	case "off", "false", "0":
		return false, nil
	}
	return false, fmt.Errorf("invalid switch value %q", payload)
}

// Status reads the current MCU state.
func (b *Bridge) Status() (*msgs.Status, error) {
	var err error
	s := &msgs.Status{Timestamp: b.Now().Unix()}
	if s.HeatingOn, err = b.Device.HeatingOn(); err != nil {
		return nil, err
	}
	if s.TimedOperation, err = b.Device.TimedOperationEnabled(); err != nil {
		return nil, err
	}
	t, err := b.Device.Time()
	if err != nil {
		return nil, err
	}
	s.Day, s.Minute = uint32(t.Day), uint32(t.Minute)
	pin, err := b.Device.ReadPIN()
	if err != nil {
		return nil, err
	}
	s.Pin = uint32(pin)
	return s, nil
}

// PublishStatus polls and publishes the status.
func (b *Bridge) PublishStatus() error {
	s, err := b.Status()
	if err != nil {
		return err
	}
	b.publish(TopicStatus, s)
	return nil
}

// PublishEntries reads and publishes the timer table.
func (b *Bridge) PublishEntries() error {
	entries, err := b.Device.DumpEntries()
	if err != nil {
		return err
	}
	b.publish(TopicEntries, msgs.EntriesFrom(entries))
	return nil
}

// publish failures are logged only, the broker connection recovers by itself.
func (b *Bridge) publish(topic string, m proto.Message) {
	data, err := msgs.Encode(m)
	if err != nil {
		glog.Errorf("encode %s: %v", topic, err)
		return
	}
	token := b.Pub.PubWith(topic, data, 1, true)
	if !token.WaitTimeout(b.PublishTimeout) {
		glog.Warningf("publish %s timeout", topic)
		return
	}
	if err := token.Error(); err != nil {
		glog.Warningf("publish %s: %v", topic, err)
	}
}
