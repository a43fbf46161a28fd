// Package record implements the on-disk license record format.
//
// A record is a 512-byte block stored in the last 512 bytes of a device.
// Four fields carry meaning:
//
//	0x034  license count     uint16 little-endian
//	0x065  aux field A       raw bytes, always 01 02
//	0x069  aux field B       raw bytes, always 03 04
//	0x1FC  stored checksum   uint16 little-endian
//
// Every other byte is filler and is regenerated on each write.
//
// # Checksum
//
// The checksum sums the two bytes of each field (not their 16-bit values)
// and adds the three sums with 16-bit wraparound:
//
//	sum := FieldSum(count) + FieldSum(auxA) + FieldSum(auxB)
//
// It is a compatibility check only and offers no tamper resistance.
//
// The package performs no I/O; see package device for reading and writing
// records and package license for the operations built on top of it.
package record
