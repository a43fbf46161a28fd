package record

import (
	"encoding/binary"
	"fmt"
)

// Size is the fixed length of a license record on the device.
const Size = 512

// Field offsets inside the record.
const (
	CountOffset    = 0x34
	AuxAOffset     = 0x65
	AuxBOffset     = 0x69
	ChecksumOffset = 0x1FC
)

// Legacy aux constants. Readers of the on-disk format expect exactly these bytes.
var (
	AuxA = [2]byte{0x01, 0x02}
	AuxB = [2]byte{0x03, 0x04}
)

// Record is the raw 512-byte license block. Bytes outside the four
// semantic fields are filler and carry no meaning.
type Record [Size]byte

// Fields is the decoded view of a record
type Fields struct {
	Count            uint16
	AuxA             [2]byte
	AuxB             [2]byte
	StoredChecksum   uint16
	ComputedChecksum uint16
}

// Decode copies a raw block into a Record.
func Decode(data []byte) (Record, error) {
	var r Record
	if len(data) != Size {
		return r, fmt.Errorf("record must be %d bytes, got %d", Size, len(data))
	}
	copy(r[:], data)
	return r, nil
}

// Encode builds a record holding count. All bytes are first drawn from
// filler, then the count, aux constants and checksum are written over them.
func Encode(count uint16, filler Filler) (Record, error) {
	var r Record
	if filler == nil {
		filler = ZeroFiller{}
	}
	if err := filler.Fill(r[:]); err != nil {
		return r, fmt.Errorf("failed to generate filler: %w", err)
	}
	r.SetCount(count)
	copy(r[AuxAOffset:AuxAOffset+2], AuxA[:])
	copy(r[AuxBOffset:AuxBOffset+2], AuxB[:])
	r.Seal()
	return r, nil
}

// Count returns the little-endian license count.
func (r *Record) Count() uint16 {
	return binary.LittleEndian.Uint16(r[CountOffset : CountOffset+2])
}

// SetCount stores count without touching the checksum.
func (r *Record) SetCount(count uint16) {
	binary.LittleEndian.PutUint16(r[CountOffset:CountOffset+2], count)
}

func (r *Record) CountBytes() [2]byte {
	return [2]byte{r[CountOffset], r[CountOffset+1]}
}

func (r *Record) AuxA() [2]byte {
	return [2]byte{r[AuxAOffset], r[AuxAOffset+1]}
}

func (r *Record) AuxB() [2]byte {
	return [2]byte{r[AuxBOffset], r[AuxBOffset+1]}
}

// StoredChecksum returns the checksum persisted at ChecksumOffset.
func (r *Record) StoredChecksum() uint16 {
	return binary.LittleEndian.Uint16(r[ChecksumOffset : ChecksumOffset+2])
}

// ComputedChecksum recomputes the checksum from the current field bytes.
func (r *Record) ComputedChecksum() uint16 {
	return Checksum(r.CountBytes(), r.AuxA(), r.AuxB())
}

// Valid reports whether the stored checksum matches the field bytes.
func (r *Record) Valid() bool {
	return r.StoredChecksum() == r.ComputedChecksum()
}

// Seal writes the computed checksum into the record.
func (r *Record) Seal() {
	binary.LittleEndian.PutUint16(r[ChecksumOffset:ChecksumOffset+2], r.ComputedChecksum())
}

// Fields decodes the semantic fields of the record.
func (r *Record) Fields() Fields {
	return Fields{
		Count:            r.Count(),
		AuxA:             r.AuxA(),
		AuxB:             r.AuxB(),
		StoredChecksum:   r.StoredChecksum(),
		ComputedChecksum: r.ComputedChecksum(),
	}
}
