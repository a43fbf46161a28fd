package device

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "usblicense/internal/errors"
	"usblicense/internal/record"
)

func newImage(t *testing.T, size int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "usb.img")
	require.NoError(t, os.WriteFile(path, make([]byte, size), 0600))
	return path
}

func TestOpenFile_WriteThenRead(t *testing.T) {
	path := newImage(t, 4096)

	dev, err := Open(nil, path, ReadWrite)
	require.NoError(t, err)
	assert.Equal(t, int64(4096), dev.Size())
	assert.Equal(t, path, dev.Path())

	off, err := dev.RecordOffset()
	require.NoError(t, err)
	assert.Equal(t, int64(4096-512), off)

	rec, err := record.Encode(5, record.ZeroFiller{})
	require.NoError(t, err)
	require.NoError(t, dev.WriteRecord(&rec))
	require.NoError(t, dev.Close())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Len(t, raw, 4096)
	assert.Equal(t, rec[:], raw[4096-512:])
	assert.Equal(t, make([]byte, 4096-512), raw[:4096-512], "bytes before the record must be untouched")

	dev, err = Open(OpenFile, path, ReadOnly)
	require.NoError(t, err)
	defer dev.Close()

	got, err := dev.ReadRecord()
	require.NoError(t, err)
	assert.Equal(t, rec, got)
}

func TestOpen_ExactlyOneRecord(t *testing.T) {
	path := newImage(t, record.Size)

	dev, err := Open(nil, path, ReadWrite)
	require.NoError(t, err)
	defer dev.Close()

	off, err := dev.RecordOffset()
	require.NoError(t, err)
	assert.Equal(t, int64(0), off)

	_, err = dev.ReadRecord()
	assert.NoError(t, err)
}

func TestOpen_MissingPath(t *testing.T) {
	_, err := Open(nil, filepath.Join(t.TempDir(), "missing"), ReadOnly)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrDeviceOpen)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestOpen_ReadOnlyRejectsWrite(t *testing.T) {
	path := newImage(t, 1024)

	dev, err := Open(nil, path, ReadOnly)
	require.NoError(t, err)
	defer dev.Close()

	rec, err := record.Encode(1, nil)
	require.NoError(t, err)
	err = dev.WriteRecord(&rec)
	assert.ErrorIs(t, err, apperrors.ErrWrite)
}

func TestDevice_TooSmall(t *testing.T) {
	mem := MemOpener{"small": NewMemStorage(100)}

	dev, err := Open(mem.Open, "small", ReadWrite)
	require.NoError(t, err)
	defer dev.Close()

	_, err = dev.ReadRecord()
	assert.ErrorIs(t, err, apperrors.ErrRead)

	rec, err := record.Encode(1, nil)
	require.NoError(t, err)
	assert.ErrorIs(t, dev.WriteRecord(&rec), apperrors.ErrWrite)
}

func TestMemStorage_Roundtrip(t *testing.T) {
	store := NewMemStorage(2048)
	mem := MemOpener{"/dev/mem0": store}

	dev, err := Open(mem.Open, "/dev/mem0", ReadWrite)
	require.NoError(t, err)

	rec, err := record.Encode(77, nil)
	require.NoError(t, err)
	require.NoError(t, dev.WriteRecord(&rec))
	require.NoError(t, dev.Close())

	assert.True(t, store.Closed())
	assert.Equal(t, 1, store.Syncs())
	assert.Equal(t, rec[:], store.Bytes()[2048-512:])

	_, err = Open(mem.Open, "/dev/mem1", ReadOnly)
	assert.ErrorIs(t, err, apperrors.ErrDeviceOpen)
}

// faultyStorage wraps a MemStorage and truncates transfers.
type faultyStorage struct {
	*MemStorage
	readLimit  int
	writeLimit int
	syncErr    error
	sizeErr    error
}

func (f *faultyStorage) ReadAt(p []byte, off int64) (int, error) {
	if f.readLimit > 0 && len(p) > f.readLimit {
		n, _ := f.MemStorage.ReadAt(p[:f.readLimit], off)
		return n, io.EOF
	}
	return f.MemStorage.ReadAt(p, off)
}

func (f *faultyStorage) WriteAt(p []byte, off int64) (int, error) {
	if f.writeLimit > 0 && len(p) > f.writeLimit {
		n, _ := f.MemStorage.WriteAt(p[:f.writeLimit], off)
		return n, nil
	}
	return f.MemStorage.WriteAt(p, off)
}

func (f *faultyStorage) Sync() error {
	if f.syncErr != nil {
		return f.syncErr
	}
	return f.MemStorage.Sync()
}

func (f *faultyStorage) Size() (int64, error) {
	if f.sizeErr != nil {
		return 0, f.sizeErr
	}
	return f.MemStorage.Size()
}

func openFaulty(t *testing.T, f *faultyStorage) *Device {
	t.Helper()
	dev, err := Open(func(string, Mode) (Storage, error) { return f, nil }, "faulty", ReadWrite)
	require.NoError(t, err)
	t.Cleanup(func() { dev.Close() })
	return dev
}

func TestDevice_ShortRead(t *testing.T) {
	dev := openFaulty(t, &faultyStorage{MemStorage: NewMemStorage(1024), readLimit: 100})

	_, err := dev.ReadRecord()
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrRead)

	var appErr *apperrors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, 100, appErr.Context["bytes_read"])
}

func TestDevice_ShortWrite(t *testing.T) {
	f := &faultyStorage{MemStorage: NewMemStorage(1024), writeLimit: 10}
	dev := openFaulty(t, f)

	rec, err := record.Encode(3, nil)
	require.NoError(t, err)

	err = dev.WriteRecord(&rec)
	assert.ErrorIs(t, err, apperrors.ErrWrite)
	assert.ErrorIs(t, err, io.ErrShortWrite)
	assert.Equal(t, 0, f.Syncs())
}

func TestDevice_SyncFailure(t *testing.T) {
	syncErr := errors.New("flush failed")
	dev := openFaulty(t, &faultyStorage{MemStorage: NewMemStorage(1024), syncErr: syncErr})

	rec, err := record.Encode(3, nil)
	require.NoError(t, err)

	err = dev.WriteRecord(&rec)
	assert.ErrorIs(t, err, apperrors.ErrWrite)
	assert.ErrorIs(t, err, syncErr)
}

func TestOpen_SizeFailureClosesStorage(t *testing.T) {
	f := &faultyStorage{MemStorage: NewMemStorage(1024), sizeErr: errors.New("seek failed")}

	_, err := Open(func(string, Mode) (Storage, error) { return f, nil }, "faulty", ReadOnly)
	assert.ErrorIs(t, err, apperrors.ErrDeviceOpen)
	assert.True(t, f.Closed())
}

func TestMode_String(t *testing.T) {
	assert.Equal(t, "read-only", ReadOnly.String())
	assert.Equal(t, "read-write", ReadWrite.String())
}
