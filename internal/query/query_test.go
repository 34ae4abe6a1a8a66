package query

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fieldtrace/telemetry-bridge/pkg/datalog"
	"github.com/fieldtrace/telemetry-bridge/pkg/value"
)

func TestAllEntriesAsObjectBuildsFullHistory(t *testing.T) {
	w, err := datalog.Create(filepath.Join(t.TempDir(), "q.wpilog"))
	require.NoError(t, err)
	defer w.Close()

	sender := w.Sender()
	require.NoError(t, sender.StartEntry("roboRIO/pdp/voltage", "double", ""))

	v1 := value.F64(12.0)
	p1, err := value.ToDatalog(v1)
	require.NoError(t, err)
	require.NoError(t, sender.AppendAt("roboRIO/pdp/voltage", 100, p1))

	v2 := value.F64(12.4)
	p2, err := value.ToDatalog(v2)
	require.NoError(t, err)
	require.NoError(t, sender.AppendAt("roboRIO/pdp/voltage", 200, p2))

	s := NewSurface(nil)
	obj, err := s.AllEntriesAsObject(w)
	require.NoError(t, err)

	field, ok := obj.GetField(value.ParseKey("roboRIO/pdp/voltage"))
	require.True(t, ok)
	require.True(t, field.Timestamped.Value.Equal(v2))

	hist := obj.GetFieldWithHistory(value.ParseKey("roboRIO/pdp/voltage"))
	require.Len(t, hist, 2)
	require.True(t, hist[0].Value.Equal(v1))
	require.True(t, hist[1].Value.Equal(v2))
}
