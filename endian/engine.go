// Package endian provides byte order utilities for the columnar wire format.
//
// It combines the ByteOrder and AppendByteOrder interfaces of the standard
// encoding/binary package into a single EndianEngine interface, so encoders
// can both append to growing buffers and decode from fixed offsets through
// one value. binary.LittleEndian and binary.BigEndian satisfy the interface
// directly; the engines are immutable and safe for concurrent use.
//
// The columnar format is little-endian by default. Big-endian output is
// supported for interoperability and is recorded in the buffer header so a
// decoder always picks the matching engine.
package endian

import (
	"encoding/binary"
	"unsafe"
)

// EndianEngine combines binary.ByteOrder and binary.AppendByteOrder for
// convenient byte order operations on column buffers.
type EndianEngine interface {
	binary.ByteOrder
	binary.AppendByteOrder
}

// Native returns the host machine's byte order, determined by inspecting
// the in-memory layout of a fixed integer value.
func Native() binary.ByteOrder {
	// 0x0100 stores its MSB (0x01) first on a big-endian host.
	var i uint16 = 0x0100
	b := (*[2]byte)(unsafe.Pointer(&i))
	if b[0] == 0x01 {
		return binary.BigEndian
	}

	return binary.LittleEndian
}

// IsNativeLittleEndian reports whether the host is little-endian.
func IsNativeLittleEndian() bool {
	return Native() == binary.LittleEndian
}

// GetLittleEndianEngine returns the little-endian engine.
func GetLittleEndianEngine() EndianEngine {
	return binary.LittleEndian
}

// GetBigEndianEngine returns the big-endian engine.
func GetBigEndianEngine() EndianEngine {
	return binary.BigEndian
}
