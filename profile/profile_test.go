package profile

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestProfileFor_DeviceTiers(t *testing.T) {
	testCases := []struct {
		tier        DeviceTier
		concurrency int
		capacity    int
		threshold   float64
		batch       int
	}{
		{DeviceLow, 1, 20, 0.55, 3},
		{DeviceMid, 2, 50, 0.65, 5},
		{DeviceHigh, 4, 100, 0.75, 10},
	}

	for _, tc := range testCases {
		t.Run(string(tc.tier), func(t *testing.T) {
			p := ProfileFor(tc.tier, NetworkGood)
			assert.Equal(t, tc.concurrency, p.MaxConcurrentJobs)
			assert.Equal(t, tc.capacity, p.QueueCapacity)
			assert.Equal(t, tc.threshold, p.MemoryPressureThreshold)
			assert.Equal(t, tc.batch, p.BatchSize)
		})
	}
}

func TestProfileFor_PoorNetworkHalvesCleanupAndCache(t *testing.T) {
	for _, tier := range []DeviceTier{DeviceLow, DeviceMid, DeviceHigh} {
		base := ProfileFor(tier, NetworkGood)
		poor := ProfileFor(tier, NetworkPoor)

		assert.Equal(t, base.CleanupInterval/2, poor.CleanupInterval, "tier %s", tier)
		assert.Equal(t, base.CacheCeilingBytes/2, poor.CacheCeilingBytes, "tier %s", tier)

		// Everything else is untouched by the network tier
		assert.Equal(t, base.MaxConcurrentJobs, poor.MaxConcurrentJobs)
		assert.Equal(t, base.QueueCapacity, poor.QueueCapacity)
		assert.Equal(t, base.MemoryPressureThreshold, poor.MemoryPressureThreshold)
	}
}

func TestProfileFor_LowDevicePoorNetwork(t *testing.T) {
	p := ProfileFor(DeviceLow, NetworkPoor)

	assert.Equal(t, 1, p.MaxConcurrentJobs)
	assert.Equal(t, int64(32*mib), p.CacheCeilingBytes)
	assert.Equal(t, 5*time.Minute, p.CleanupInterval)
}

func TestProfileFor_FairNetworkIsBase(t *testing.T) {
	assert.Equal(t, ProfileFor(DeviceMid, NetworkGood), ProfileFor(DeviceMid, NetworkFair))
}

func TestProfileFor_UnknownTierFallsBackToLow(t *testing.T) {
	assert.Equal(t, ProfileFor(DeviceLow, NetworkGood), ProfileFor(DeviceTier("watch"), NetworkGood))
}

func TestProfileFor_Pure(t *testing.T) {
	a := ProfileFor(DeviceHigh, NetworkPoor)
	b := ProfileFor(DeviceHigh, NetworkPoor)
	assert.Equal(t, a, b)

	// Halving must not leak into the base table
	base := ProfileFor(DeviceHigh, NetworkGood)
	assert.Equal(t, 30*time.Minute, base.CleanupInterval)
}
