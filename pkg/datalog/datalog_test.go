package datalog

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStartAppendFinishRoundTripsThroughOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.wpilog")

	w, err := Create(path)
	require.NoError(t, err)

	sender := w.Sender()
	require.NoError(t, sender.StartEntry("roboRIO/voltage", "double", ""))
	require.NoError(t, sender.AppendAt("roboRIO/voltage", 100, []byte{0, 0, 0, 0, 0, 0, 0, 0}))
	require.NoError(t, sender.AppendAt("roboRIO/voltage", 200, []byte{1, 0, 0, 0, 0, 0, 0, 0}))
	require.NoError(t, sender.Finish("roboRIO/voltage"))

	summary, ok := w.Summary("roboRIO/voltage")
	require.True(t, ok)
	require.Equal(t, 2, summary.NumMarks)
	require.False(t, summary.Open)

	require.NoError(t, w.Close())

	reopened, err := Open(path)
	require.NoError(t, err)

	reSummary, ok := reopened.Summary("roboRIO/voltage")
	require.True(t, ok)
	require.Equal(t, summary.NumMarks, reSummary.NumMarks)
	require.Equal(t, "double", reSummary.Type)

	marks, err := reopened.Marks("roboRIO/voltage")
	require.NoError(t, err)
	require.Len(t, marks, 2)
	require.Equal(t, int64(100), marks[0].Micros)
	require.Equal(t, int64(200), marks[1].Micros)
}

func TestStartEntryRejectsDuplicateName(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dup.wpilog")
	w, err := Create(path)
	require.NoError(t, err)
	defer w.Close()

	sender := w.Sender()
	require.NoError(t, sender.StartEntry("topic", "boolean", ""))
	err = sender.StartEntry("topic", "boolean", "")
	require.ErrorIs(t, err, ErrAlreadyExists)
}

func TestAppendToUnknownEntryFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.wpilog")
	w, err := Create(path)
	require.NoError(t, err)
	defer w.Close()

	err = w.Sender().AppendAt("nope", 0, nil)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestOutOfOrderTimestampIsClampedNotRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clamp.wpilog")
	w, err := Create(path)
	require.NoError(t, err)
	defer w.Close()

	sender := w.Sender()
	require.NoError(t, sender.StartEntry("t", "int64", ""))
	require.NoError(t, sender.AppendAt("t", 1000, []byte{0, 0, 0, 0, 0, 0, 0, 0}))
	require.NoError(t, sender.AppendAt("t", 500, []byte{1, 0, 0, 0, 0, 0, 0, 0}))

	marks, err := w.Marks("t")
	require.NoError(t, err)
	require.Len(t, marks, 2)
	require.Equal(t, int64(1000), marks[0].Micros)
	require.Equal(t, int64(1001), marks[1].Micros, "clamped to prior mark's timestamp plus one")
}

func TestCloseIsIdempotentAndRejectsFurtherWrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "closed.wpilog")
	w, err := Create(path)
	require.NoError(t, err)

	require.NoError(t, w.Close())
	require.NoError(t, w.Close())

	err = w.Sender().StartEntry("x", "boolean", "")
	require.ErrorIs(t, err, ErrClosed)
}
