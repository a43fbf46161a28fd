package testutil

import (
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"usblicense/internal/record"
)

func TestBufferedSlogHandler(t *testing.T) {
	t.Run("captures log records", func(t *testing.T) {
		logger, handler := NewTestLogger(t)

		logger.Info("test message", slog.String("key", "value"))
		logger.Error("error message", slog.Int("code", 500))

		require.Len(t, handler.GetRecords(), 2)
		assert.True(t, handler.ContainsMessage("test message"))
		assert.True(t, handler.ContainsAttr("key", "value"))
		assert.True(t, handler.ContainsAttr("code", int64(500)))
	})

	t.Run("derived loggers share the buffer", func(t *testing.T) {
		logger, handler := NewTestLogger(t)

		derived := logger.With(slog.String("component", "license_manager"))
		derived.Warn("from derived", slog.String("device", "/dev/sdb"))
		logger.Info("from root")

		require.Equal(t, 2, handler.Count())

		rec, ok := handler.FindMessage("from derived")
		require.True(t, ok)
		assert.Equal(t, "license_manager", rec.Attrs["component"])
		assert.Equal(t, "/dev/sdb", rec.Attrs["device"])

		rec, ok = handler.FindMessage("from root")
		require.True(t, ok)
		assert.NotContains(t, rec.Attrs, "component")
	})

	t.Run("filters by level", func(t *testing.T) {
		logger, handler := NewTestLogger(t)

		logger.Debug("debug msg")
		logger.Info("info msg")
		logger.Warn("warn msg")
		logger.Error("error msg")

		assert.Len(t, handler.GetRecordsByLevel(slog.LevelDebug), 1)
		assert.Len(t, handler.GetRecordsByLevel(slog.LevelInfo), 1)
		assert.Len(t, handler.GetRecordsByLevel(slog.LevelError), 1)
	})

	t.Run("clear", func(t *testing.T) {
		logger, handler := NewTestLogger(t)

		logger.Info("message 1")
		logger.Info("message 2")
		assert.Equal(t, 2, handler.Count())

		handler.Clear()
		assert.Equal(t, 0, handler.Count())
		_, ok := handler.FindMessage("message 1")
		assert.False(t, ok)
	})

	t.Run("assertion helpers", func(t *testing.T) {
		logger, handler := NewTestLogger(t)

		logger.Info("important message", slog.String("component", "test"))
		logger.Warn("warning message", slog.Int("retry", 3))

		AssertLogContains(t, handler, slog.LevelInfo, "important")
		AssertLogAttr(t, handler, "component", "test")
		AssertLogAttr(t, handler, "retry", int64(3))
		AssertNoErrors(t, handler)
	})

	t.Run("thread safety", func(t *testing.T) {
		logger, handler := NewTestLogger(t)

		var wg sync.WaitGroup
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func(n int) {
				defer wg.Done()
				logger.With(slog.Int("goroutine", n)).Info("concurrent log")
			}(i)
		}
		wg.Wait()

		assert.Equal(t, 10, handler.Count())
	})
}

func TestDeviceFixtures(t *testing.T) {
	path := NewDeviceImage(t, 2048)
	assert.Len(t, ReadImage(t, path), 2048)

	rec, err := record.Encode(42, SeededFiller(7))
	require.NoError(t, err)
	WriteRecord(t, path, rec)

	img := ReadImage(t, path)
	assert.Equal(t, make([]byte, 2048-record.Size), img[:2048-record.Size], "prefix untouched")
	assert.Equal(t, rec, ReadRecord(t, path))

	CorruptByte(t, path, record.CountOffset, 0x01)
	got := ReadRecord(t, path)
	assert.Equal(t, uint16(43), got.Count())
	assert.False(t, got.Valid())

	assert.Len(t, FillerBytes(rec), record.Size-8)
}

func TestSeededFiller_Deterministic(t *testing.T) {
	a, err := record.Encode(1, SeededFiller(99))
	require.NoError(t, err)
	b, err := record.Encode(1, SeededFiller(99))
	require.NoError(t, err)
	c, err := record.Encode(1, SeededFiller(100))
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.NotEqual(t, FillerBytes(a), FillerBytes(c))
}
