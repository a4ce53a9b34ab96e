package mcu

import "fmt"

// Opcode is the first byte of a request frame.
type Opcode byte

// Opcodes understood by the MCU firmware.
const (
	OpHeatingOff     Opcode = 0x01
	OpHeatingOn      Opcode = 0x02
	OpQueryHeating   Opcode = 0x03
	OpSetDay         Opcode = 0x04
	OpSetMinute      Opcode = 0x05
	OpSetEntry       Opcode = 0x06
	OpDisableTimedOp Opcode = 0x07
	OpEnableTimedOp  Opcode = 0x08
	OpQueryTime      Opcode = 0x09
	OpQueryEntry     Opcode = 0x0A
	OpQueryTimedOp   Opcode = 0x0B
	OpQueryPIN       Opcode = 0x0C
)

// Shape is the number of parameter bytes following the opcode in a request,
// and the number of bytes in the reply.
type Shape struct {
	Request  int
	Response int
}

type opcodeInfo struct {
	name  string
	shape Shape
}

var opcodes = map[Opcode]opcodeInfo{
	OpHeatingOff:     {"HeatingOff", Shape{0, 0}},
	OpHeatingOn:      {"HeatingOn", Shape{0, 0}},
	OpQueryHeating:   {"QueryHeating", Shape{0, 1}},
	OpSetDay:         {"SetDay", Shape{1, 0}},
	OpSetMinute:      {"SetMinute", Shape{2, 0}},
	OpSetEntry:       {"SetEntry", Shape{5, 0}},
	OpDisableTimedOp: {"DisableTimedOp", Shape{0, 0}},
	OpEnableTimedOp:  {"EnableTimedOp", Shape{0, 0}},
	OpQueryTime:      {"QueryTime", Shape{0, 3}},
	OpQueryEntry:     {"QueryEntry", Shape{1, 4}},
	OpQueryTimedOp:   {"QueryTimedOp", Shape{0, 1}},
	OpQueryPIN:       {"QueryPIN", Shape{0, 1}},
}

// IsValid indicates the opcode is known to the firmware.
func (op Opcode) IsValid() bool {
	_, ok := opcodes[op]
	return ok
}

// Shape returns the request/response sizes of the opcode.
func (op Opcode) Shape() (Shape, bool) {
	info, ok := opcodes[op]
	return info.shape, ok
}

// String implements fmt.Stringer.
func (op Opcode) String() string {
	if info, ok := opcodes[op]; ok {
		return info.name
	}
	return fmt.Sprintf("Opcode(0x%02x)", byte(op))
}
