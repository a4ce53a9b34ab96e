package heating

import (
	"context"
	"strconv"

	"github.com/robotalks/heating.go/pkg/cli/sh"
	"github.com/robotalks/heating.go/pkg/mcu"
)

type entryView struct {
	Position int    `json:"position"`
	Active   bool   `json:"active"`
	TurnOn   bool   `json:"turn_on"`
	Day      string `json:"day,omitempty"`
	Time     string `json:"time,omitempty"`
}

func viewOf(e mcu.TimerEntry) entryView {
	v := entryView{Position: e.Position, Active: e.Active(), TurnOn: e.TurnOn}
	if v.Active {
		v.Day, v.Time = e.Day.String(), e.Minute.String()
	}
	return v
}

type timeView struct {
	Day  string `json:"day"`
	Time string `json:"time"`
}

func printTime(c *sh.Context, prefix string) error {
	t, err := c.Client.Time()
	if err != nil {
		return err
	}
	return c.Print(timeView{Day: t.Day.String(), Time: t.Minute.String()}, "%s: %s\n", prefix, t)
}

func printTimedOperation(c *sh.Context) error {
	en, err := c.Client.TimedOperationEnabled()
	if err != nil {
		return err
	}
	return c.Print(map[string]bool{"timed_operation": en}, "Timed operation enabled: %v\n", en)
}

func dumpEntries(c *sh.Context) error {
	entries, err := c.Client.DumpEntries()
	if err != nil {
		return err
	}
	if c.OutputJSON {
		views := make([]entryView, len(entries))
		for n, e := range entries {
			views[n] = viewOf(e)
		}
		return c.Print(views, "")
	}
	for _, e := range entries {
		c.Printf("%d : %s\n", e.Position, e)
	}
	return nil
}

func parseInt(name, val string) (int, error) {
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, sh.Usagef("invalid %s: %s", name, val)
	}
	return n, nil
}

func parsePosition(val string) (int, error) {
	pos, err := parseInt("position", val)
	if err != nil {
		return 0, err
	}
	if pos < 0 || pos >= mcu.NumEntries {
		return 0, sh.Usagef("invalid position: %d (0..%d)", pos, mcu.NumEntries-1)
	}
	return pos, nil
}

func requireArgs(c *sh.Context, n int, help string) error {
	if len(c.Args) < n {
		return sh.Usagef("arguments required: %s", help)
	}
	return nil
}

func enableTimedOperation(en bool) func(c *sh.Context) error {
	return func(c *sh.Context) error {
		if err := c.Client.SetTimedOperation(en); err != nil {
			return err
		}
		return printTimedOperation(c)
	}
}

func turnHeating(on bool) func(c *sh.Context) error {
	return func(c *sh.Context) error {
		return c.Client.SetHeating(on)
	}
}

var (
	// ReadPINCmd prints the raw input pin register.
	ReadPINCmd = sh.Command{
		Name:    "readPINA",
		Aliases: []string{"pin"},
		Func: func(c *sh.Context) error {
			pin, err := c.Client.ReadPIN()
			if err != nil {
				return err
			}
			return c.Print(map[string]byte{"pin": pin}, "0x%02x\n", pin)
		},
	}

	// EnableTimedOperationCmd enables the MCU scheduler.
	EnableTimedOperationCmd = sh.Command{
		Name: "enableTimedOperation",
		Func: enableTimedOperation(true),
	}

	// DisableTimedOperationCmd disables the MCU scheduler.
	DisableTimedOperationCmd = sh.Command{
		Name: "disableTimedOperation",
		Func: enableTimedOperation(false),
	}

	// GetTimeCmd prints the MCU clock.
	GetTimeCmd = sh.Command{
		Name: "getTime",
		Func: func(c *sh.Context) error {
			return printTime(c, "Current time")
		},
	}

	// SyncTimeCmd sets the MCU clock from host time and enables timed operation.
	SyncTimeCmd = sh.Command{
		Name: "syncTime",
		Func: func(c *sh.Context) error {
			if _, err := c.Client.SyncClock(c.Now()); err != nil {
				return err
			}
			if err := printTime(c, "Time is now"); err != nil {
				return err
			}
			return printTimedOperation(c)
		},
	}

	// TurnHeatingOnCmd turns heating on.
	TurnHeatingOnCmd = sh.Command{
		Name: "turnHeatingOn",
		Func: turnHeating(true),
	}

	// TurnHeatingOffCmd turns heating off.
	TurnHeatingOffCmd = sh.Command{
		Name: "turnHeatingOff",
		Func: turnHeating(false),
	}

	// IsHeatingOnCmd prints the heating state.
	IsHeatingOnCmd = sh.Command{
		Name: "isHeatingOn",
		Func: func(c *sh.Context) error {
			on, err := c.Client.HeatingOn()
			if err != nil {
				return err
			}
			return c.Print(map[string]bool{"heating": on}, "Heating on: %v\n", on)
		},
	}

	// DumpEntriesCmd prints all timer slots.
	DumpEntriesCmd = sh.Command{
		Name:    "dumpEntries",
		Aliases: []string{"ls"},
		Func:    dumpEntries,
	}

	// ClearEntryCmd clears one timer slot and prints all slots.
	ClearEntryCmd = sh.Command{
		Name: "clearEntry",
		Help: "<pos>",
		Func: func(c *sh.Context) error {
			if err := requireArgs(c, 1, "<pos>"); err != nil {
				return err
			}
			pos, err := parsePosition(c.Args[0])
			if err != nil {
				return err
			}
			if err := c.Client.ClearEntry(pos); err != nil {
				return err
			}
			return dumpEntries(c)
		},
	}

	// ClearAllEntriesCmd clears all timer slots.
	ClearAllEntriesCmd = sh.Command{
		Name: "clearAllEntries",
		Func: func(c *sh.Context) error {
			return c.Client.ClearAllEntries(context.Background())
		},
	}

	// SetEntryCmd writes one timer slot.
	SetEntryCmd = sh.Command{
		Name: "setEntry",
		Help: "<pos> <sun|mon|tue|wed|thu|fri|sat> <hour> <minute> <on|off>",
		Func: func(c *sh.Context) error {
			if err := requireArgs(c, 5, "<pos> <day> <hour> <minute> <on|off>"); err != nil {
				return err
			}
			pos, err := parsePosition(c.Args[0])
			if err != nil {
				return err
			}
			day, err := mcu.ParseWeekday(c.Args[1])
			if err != nil {
				return sh.Usagef("Invalid day: %s", c.Args[1])
			}
			hour, err := parseInt("hour", c.Args[2])
			if err != nil {
				return err
			}
			minute, err := parseInt("minute", c.Args[3])
			if err != nil {
				return err
			}
			if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
				return sh.Usagef("invalid time: %s:%s", c.Args[2], c.Args[3])
			}
			var on bool
			switch c.Args[4] {
			case "on":
				on = true
			case "off":
			default:
				return sh.Usagef("invalid state: %s (on|off)", c.Args[4])
			}
			return c.Client.SetEntry(mcu.TimerEntry{
				Position: pos,
				TurnOn:   on,
				Day:      day,
				Minute:   mcu.NewTimeOfDay(hour, minute),
			})
		},
	}
)

func init() {
	sh.AddCmds(
		&ReadPINCmd,
		&EnableTimedOperationCmd,
		&DisableTimedOperationCmd,
		&GetTimeCmd,
		&SyncTimeCmd,
		&TurnHeatingOnCmd,
		&TurnHeatingOffCmd,
		&IsHeatingOnCmd,
		&DumpEntriesCmd,
		&ClearEntryCmd,
		&ClearAllEntriesCmd,
		&SetEntryCmd,
	)
}
