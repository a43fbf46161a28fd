package record

// FieldSum returns the sum of the two bytes of a field. This is a byte
// sum, not the 16-bit value of the field.
func FieldSum(f [2]byte) uint16 {
	return uint16(f[0]) + uint16(f[1])
}

// Checksum is the legacy additive checksum over the count and both aux
// fields. The total wraps at 16 bits.
func Checksum(count, auxA, auxB [2]byte) uint16 {
	return FieldSum(count) + FieldSum(auxA) + FieldSum(auxB)
}
