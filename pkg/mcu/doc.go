// Package mcu implements the host side of the heating timer MCU protocol.
package mcu

// The MCU is driven over a plain byte stream (usually a serial port in raw
// 9600-8N1 mode). Every request starts with a single opcode byte followed by
// a fixed number of parameter bytes. Query opcodes are answered with a fixed
// number of response bytes. There is no framing, sequence number, checksum
// or error reply: a lost or extra byte silently desynchronizes the stream.
//
// Multi-byte values (minute of day) are sent high byte first.
//
// Producer: MCU firmware
// Consumer: heatctl, heatd
