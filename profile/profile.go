// Package profile derives scheduler tuning parameters from coarse device
// and network classifications.
package profile

import "time"

// DeviceTier is a coarse classification of host capability.
type DeviceTier string

const (
	DeviceLow  DeviceTier = "low"
	DeviceMid  DeviceTier = "mid"
	DeviceHigh DeviceTier = "high"
)

// NetworkTier is a coarse classification of link quality.
type NetworkTier string

const (
	NetworkPoor NetworkTier = "poor"
	NetworkFair NetworkTier = "fair"
	NetworkGood NetworkTier = "good"
)

// ResourceProfile holds the tuning values the scheduler runs under. It is
// derived, never persisted; recompute on every tier change.
type ResourceProfile struct {
	MaxConcurrentJobs       int
	QueueCapacity           int
	MemoryPressureThreshold float64 // fraction 0-1
	IdleThreshold           float64
	BatchSize               int
	CleanupInterval         time.Duration
	CacheCeilingBytes       int64
}

const mib = 1 << 20

var baseProfiles = map[DeviceTier]ResourceProfile{
	DeviceLow: {
		MaxConcurrentJobs:       1,
		QueueCapacity:           20,
		MemoryPressureThreshold: 0.55,
		IdleThreshold:           0.3,
		BatchSize:               3,
		CleanupInterval:         10 * time.Minute,
		CacheCeilingBytes:       64 * mib,
	},
	DeviceMid: {
		MaxConcurrentJobs:       2,
		QueueCapacity:           50,
		MemoryPressureThreshold: 0.65,
		IdleThreshold:           0.3,
		BatchSize:               5,
		CleanupInterval:         15 * time.Minute,
		CacheCeilingBytes:       128 * mib,
	},
	DeviceHigh: {
		MaxConcurrentJobs:       4,
		QueueCapacity:           100,
		MemoryPressureThreshold: 0.75,
		IdleThreshold:           0.3,
		BatchSize:               10,
		CleanupInterval:         30 * time.Minute,
		CacheCeilingBytes:       256 * mib,
	},
}

// ProfileFor returns the tuning profile for a device/network tier pair.
// Unknown device tiers fall back to the low-tier profile. On a poor link
// the cleanup interval and cache ceiling are halved regardless of device
// tier, shedding cached load faster on constrained links. Pure function,
// safe to call on every tier change.
func ProfileFor(device DeviceTier, network NetworkTier) ResourceProfile {
	p, ok := baseProfiles[device]
	if !ok {
		p = baseProfiles[DeviceLow]
	}

	if network == NetworkPoor {
		p.CleanupInterval /= 2
		p.CacheCeilingBytes /= 2
	}

	return p
}
