package timesync

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestUpdateSeedsOffsetOnFirstSample(t *testing.T) {
	b := New()
	require.False(t, b.Seeded())

	// client sends at 1000, server reports 900, client receives at 1100
	// => rtt = 100, sample = 1100 - (900 + 50) = 150
	b.Update(1000, 900, 1100)
	require.True(t, b.Seeded())
	require.Equal(t, int64(150), b.OffsetMicros())
}

func TestUpdateAppliesEWMA(t *testing.T) {
	b := New()
	b.Update(1000, 900, 1100) // offset = 150
	b.Update(2000, 1900, 2100) // same-shaped sample = 150 again
	require.Equal(t, int64(150), b.OffsetMicros())

	// a very different sample should move the estimate only partially
	b.Update(3000, 2600, 3100) // rtt=100, sample = 3100-(2600+50) = 450
	// 0.1*450 + 0.9*150 = 180
	require.InDelta(t, 180, b.OffsetMicros(), 1)
}

func TestResetClearsState(t *testing.T) {
	b := New()
	b.Update(1000, 900, 1100)
	require.True(t, b.Seeded())
	b.Reset()
	require.False(t, b.Seeded())
	require.Equal(t, int64(0), b.OffsetMicros())
}

func TestToClientTimeAppliesOffset(t *testing.T) {
	b := New()
	b.Update(1000, 900, 1100) // offset = 150
	require.Equal(t, int64(1150), b.ToClientTime(1000))
}
