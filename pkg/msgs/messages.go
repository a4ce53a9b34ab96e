// Package msgs defines the protobuf messages published by the bridge.
//
// The messages are declared with protobuf struct tags and encoded by
// github.com/golang/protobuf through reflection, field numbers must never
// be reused.
package msgs

import (
	"github.com/golang/protobuf/proto"

	"github.com/robotalks/heating.go/pkg/mcu"
)

// Status is the MCU state published on the status topic.
type Status struct {
	HeatingOn      bool   `protobuf:"varint,1,opt,name=heating_on,json=heatingOn,proto3" json:"heating_on,omitempty"`
	TimedOperation bool   `protobuf:"varint,2,opt,name=timed_operation,json=timedOperation,proto3" json:"timed_operation,omitempty"`
	Day            uint32 `protobuf:"varint,3,opt,name=day,proto3" json:"day,omitempty"`
	Minute         uint32 `protobuf:"varint,4,opt,name=minute,proto3" json:"minute,omitempty"`
	Pin            uint32 `protobuf:"varint,5,opt,name=pin,proto3" json:"pin,omitempty"`
	// Timestamp is the host time of the poll in unix seconds.
	Timestamp int64 `protobuf:"varint,6,opt,name=timestamp,proto3" json:"timestamp,omitempty"`
}

// Reset implements proto.Message.
func (m *Status) Reset() { *m = Status{} }

// String implements proto.Message.
func (m *Status) String() string { return proto.CompactTextString(m) }

// ProtoMessage implements proto.Message.
func (*Status) ProtoMessage() {}

// DeviceTime converts the clock fields.
func (m *Status) DeviceTime() mcu.DeviceTime {
	return mcu.DeviceTime{Day: mcu.Weekday(m.Day), Minute: mcu.TimeOfDay(m.Minute)}
}

// Entry is a timer slot.
type Entry struct {
	Position uint32 `protobuf:"varint,1,opt,name=position,proto3" json:"position,omitempty"`
	TurnOn   bool   `protobuf:"varint,2,opt,name=turn_on,json=turnOn,proto3" json:"turn_on,omitempty"`
	Day      uint32 `protobuf:"varint,3,opt,name=day,proto3" json:"day,omitempty"`
	Minute   uint32 `protobuf:"varint,4,opt,name=minute,proto3" json:"minute,omitempty"`
}

// Reset implements proto.Message.
func (m *Entry) Reset() { *m = Entry{} }

// String implements proto.Message.
func (m *Entry) String() string { return proto.CompactTextString(m) }

// ProtoMessage implements proto.Message.
func (*Entry) ProtoMessage() {}

// EntryFrom converts a TimerEntry.
func EntryFrom(e mcu.TimerEntry) *Entry {
	return &Entry{
		Position: uint32(e.Position),
		TurnOn:   e.TurnOn,
		Day:      uint32(e.Day),
		Minute:   uint32(e.Minute),
	}
}

// TimerEntry converts back to a TimerEntry. Values too large for the wire
// are kept so that the client rejects them instead of truncating.
func (m *Entry) TimerEntry() mcu.TimerEntry {
	e := mcu.TimerEntry{
		Position: int(m.Position),
		TurnOn:   m.TurnOn,
		Day:      mcu.Weekday(m.Day),
		Minute:   mcu.TimeOfDay(m.Minute),
	}
	if m.Day > 0xff {
		e.Day = 0xff
	}
	if m.Minute > 0xffff {
		e.Minute = 0xffff
	}
	return e
}

// Entries is the timer table.
type Entries struct {
	Entries []*Entry `protobuf:"bytes,1,rep,name=entries,proto3" json:"entries,omitempty"`
}

// Reset implements proto.Message.
func (m *Entries) Reset() { *m = Entries{} }

// String implements proto.Message.
func (m *Entries) String() string { return proto.CompactTextString(m) }

// ProtoMessage implements proto.Message.
func (*Entries) ProtoMessage() {}

// EntriesFrom converts a timer table.
func EntriesFrom(entries []mcu.TimerEntry) *Entries {
	m := &Entries{Entries: make([]*Entry, len(entries))}
	for n, e := range entries {
		m.Entries[n] = EntryFrom(e)
	}
	return m
}

// Encode encodes a message.
func Encode(m proto.Message) ([]byte, error) {
	return proto.Marshal(m)
}

// Decode decodes bytes into m.
func Decode(data []byte, m proto.Message) error {
	return proto.Unmarshal(data, m)
}
