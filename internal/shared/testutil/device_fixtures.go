package testutil

import (
	"math/rand/v2"
	"os"
	"path/filepath"
	"testing"

	"usblicense/internal/record"
)

// DefaultImageSize is a small stand-in for a USB stick.
const DefaultImageSize = 64 * 1024

// NewDeviceImage creates a zero-filled image file of size bytes under
// t.TempDir and returns its path.
func NewDeviceImage(t *testing.T, size int) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "usb.img")
	if err := os.WriteFile(path, make([]byte, size), 0600); err != nil {
		t.Fatalf("failed to create device image: %v", err)
	}
	return path
}

// ReadImage returns the full image contents.
func ReadImage(t *testing.T, path string) []byte {
	t.Helper()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read device image: %v", err)
	}
	return data
}

// ReadRecord returns the license block at the end of the image.
func ReadRecord(t *testing.T, path string) record.Record {
	t.Helper()

	data := ReadImage(t, path)
	if len(data) < record.Size {
		t.Fatalf("image %s is %d bytes, smaller than a record", path, len(data))
	}
	rec, err := record.Decode(data[len(data)-record.Size:])
	if err != nil {
		t.Fatalf("failed to decode record: %v", err)
	}
	return rec
}

// WriteRecord places rec at the end of the image without touching other bytes.
func WriteRecord(t *testing.T, path string, rec record.Record) {
	t.Helper()

	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		t.Fatalf("failed to open device image: %v", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		t.Fatalf("failed to stat device image: %v", err)
	}
	if _, err := f.WriteAt(rec[:], info.Size()-record.Size); err != nil {
		t.Fatalf("failed to write record: %v", err)
	}
}

// CorruptByte XORs mask into the byte at offset within the record.
func CorruptByte(t *testing.T, path string, offset int, mask byte) {
	t.Helper()

	rec := ReadRecord(t, path)
	rec[offset] ^= mask
	WriteRecord(t, path, rec)
}

// SeededFiller returns a deterministic filler for reproducible images.
func SeededFiller(seed uint64) record.Filler {
	return record.NewRandomFiller(rand.NewPCG(seed, seed^0x9E3779B97F4A7C15))
}

// FillerBytes returns the record bytes outside the four semantic fields.
func FillerBytes(rec record.Record) []byte {
	out := make([]byte, 0, record.Size-8)
	for i, b := range rec {
		switch {
		case i >= record.CountOffset && i < record.CountOffset+2,
			i >= record.AuxAOffset && i < record.AuxAOffset+2,
			i >= record.AuxBOffset && i < record.AuxBOffset+2,
			i >= record.ChecksumOffset && i < record.ChecksumOffset+2:
			continue
		}
		out = append(out, b)
	}
	return out
}
