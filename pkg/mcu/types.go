package mcu

import (
	"fmt"
	"strings"
	"time"
)

const (
	// NumEntries is the number of timer slots stored by the MCU.
	NumEntries = 32
	// MinutesPerDay is the exclusive upper bound of TimeOfDay.
	MinutesPerDay = 24 * 60
)

// Weekday is the 1-indexed day encoding used on the wire.
// Invalid (0) marks an unused timer slot.
type Weekday byte

// Weekdays.
const (
	Invalid Weekday = iota
	Sunday
	Monday
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
)

var weekdayNames = [...]string{"invalid", "sun", "mon", "tue", "wed", "thu", "fri", "sat"}

// WeekdayOf converts a host weekday.
func WeekdayOf(d time.Weekday) Weekday {
	return Weekday(d) + Sunday
}

// ParseWeekday maps a short name (sun, mon, ...) to the weekday code.
func ParseWeekday(name string) (Weekday, error) {
	name = strings.ToLower(name)
	for n := Sunday; n <= Saturday; n++ {
		if weekdayNames[n] == name {
			return n, nil
		}
	}
	return Invalid, fmt.Errorf("invalid day: %s", name)
}

// IsValid indicates the weekday is one of Sunday..Saturday.
func (d Weekday) IsValid() bool {
	return d >= Sunday && d <= Saturday
}

// String returns the short name.
func (d Weekday) String() string {
	if int(d) < len(weekdayNames) {
		return weekdayNames[d]
	}
	return fmt.Sprintf("day(%d)", byte(d))
}

// TimeOfDay is the minute of the day, 0..1439.
type TimeOfDay uint16

// NewTimeOfDay computes the minute of day from hour and minute.
func NewTimeOfDay(hour, minute int) TimeOfDay {
	return TimeOfDay(hour*60 + minute)
}

// TimeOfDayOf extracts the minute of day from a host time.
func TimeOfDayOf(t time.Time) TimeOfDay {
	return NewTimeOfDay(t.Hour(), t.Minute())
}

// Hour returns the hour part.
func (m TimeOfDay) Hour() int {
	return int(m) / 60
}

// Minute returns the minute within the hour.
func (m TimeOfDay) Minute() int {
	return int(m) % 60
}

// IsValid indicates the value is within a day.
func (m TimeOfDay) IsValid() bool {
	return m < MinutesPerDay
}

// String formats as H:MM.
func (m TimeOfDay) String() string {
	return fmt.Sprintf("%d:%02d", m.Hour(), m.Minute())
}

// DeviceTime is the clock reading of the MCU.
type DeviceTime struct {
	Day    Weekday
	Minute TimeOfDay
}

// String formats as "mon 10:00".
func (t DeviceTime) String() string {
	return t.Day.String() + " " + t.Minute.String()
}

// TimerEntry is one slot of the MCU schedule.
type TimerEntry struct {
	Position int
	TurnOn   bool
	Day      Weekday
	Minute   TimeOfDay
}

// Active indicates the slot is in use.
func (e TimerEntry) Active() bool {
	return e.Day != Invalid
}

// String formats the entry as "fri 17:30 -> on", or "Not active".
func (e TimerEntry) String() string {
	if !e.Active() {
		return "Not active"
	}
	state := "off"
	if e.TurnOn {
		state = "on"
	}
	return fmt.Sprintf("%s %s -> %s", e.Day, e.Minute, state)
}
