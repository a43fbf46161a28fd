package device

import (
	"fmt"
	"io"
	"os"

	apperrors "usblicense/internal/errors"
	"usblicense/internal/record"
)

// Mode selects how a device is opened
type Mode int

const (
	ReadOnly Mode = iota
	ReadWrite
)

func (m Mode) String() string {
	if m == ReadWrite {
		return "read-write"
	}
	return "read-only"
}

// Storage is a random-access byte store holding the license record in
// its last record.Size bytes.
type Storage interface {
	io.ReaderAt
	io.WriterAt
	Size() (int64, error)
	Sync() error
	Close() error
}

// Opener acquires storage for a path.
type Opener func(path string, mode Mode) (Storage, error)

// Device locates and transfers the license record on a Storage.
type Device struct {
	storage Storage
	path    string
	size    int64
}

// Open opens path through opener and sizes it. The caller must Close the
// returned Device.
func Open(opener Opener, path string, mode Mode) (*Device, error) {
	if opener == nil {
		opener = OpenFile
	}
	s, err := opener(path, mode)
	if err != nil {
		return nil, apperrors.NewDeviceOpenError(path, err).WithContext("mode", mode.String())
	}

	size, err := s.Size()
	if err != nil {
		s.Close()
		return nil, apperrors.NewDeviceOpenError(path, fmt.Errorf("failed to determine device size: %w", err))
	}

	return &Device{storage: s, path: path, size: size}, nil
}

// Path returns the device path.
func (d *Device) Path() string {
	return d.path
}

// Size returns the device size in bytes as seen at open time.
func (d *Device) Size() int64 {
	return d.size
}

// RecordOffset returns the offset of the license record, size-512.
func (d *Device) RecordOffset() (int64, error) {
	if d.size < record.Size {
		return 0, fmt.Errorf("device is %d bytes, smaller than the %d-byte license block", d.size, record.Size)
	}
	return d.size - record.Size, nil
}

// ReadRecord reads the full license block.
func (d *Device) ReadRecord() (record.Record, error) {
	var r record.Record

	off, err := d.RecordOffset()
	if err != nil {
		return r, apperrors.NewReadError("could not seek to license block", err).
			WithContext("device", d.path)
	}

	n, err := d.storage.ReadAt(r[:], off)
	if n != record.Size {
		if err == nil {
			err = io.ErrUnexpectedEOF
		}
		return r, apperrors.NewReadError("could not read license block", err).
			WithContext("device", d.path).
			WithContext("offset", off).
			WithContext("bytes_read", n)
	}
	// A full read may still report io.EOF at the end of the extent.
	return r, nil
}

// WriteRecord writes the license block in one call and flushes it.
func (d *Device) WriteRecord(r *record.Record) error {
	off, err := d.RecordOffset()
	if err != nil {
		return apperrors.NewWriteError("could not seek to write position", err).
			WithContext("device", d.path)
	}

	n, err := d.storage.WriteAt(r[:], off)
	if err == nil && n != record.Size {
		err = io.ErrShortWrite
	}
	if err != nil {
		return apperrors.NewWriteError("could not write license block", err).
			WithContext("device", d.path).
			WithContext("offset", off).
			WithContext("bytes_written", n)
	}

	if err := d.storage.Sync(); err != nil {
		return apperrors.NewWriteError("could not flush license block", err).
			WithContext("device", d.path)
	}
	return nil
}

// Close releases the underlying storage.
func (d *Device) Close() error {
	return d.storage.Close()
}

// fileStorage is a Storage backed by an *os.File, either a regular image
// file or a block device node.
type fileStorage struct {
	*os.File
}

// OpenFile is the default Opener.
func OpenFile(path string, mode Mode) (Storage, error) {
	flag := os.O_RDONLY
	if mode == ReadWrite {
		flag = os.O_RDWR
	}
	f, err := os.OpenFile(path, flag, 0)
	if err != nil {
		return nil, err
	}
	return &fileStorage{File: f}, nil
}

// Size seeks to the end, since stat reports zero for block device nodes.
func (f *fileStorage) Size() (int64, error) {
	return f.Seek(0, io.SeekEnd)
}
