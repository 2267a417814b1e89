package scheduler

import (
	"time"

	"github.com/mediakit/mediasched/job"
	"github.com/mediakit/mediasched/profile"
)

// Config holds scheduler configuration
type Config struct {
	DeviceTier      profile.DeviceTier
	NetworkTier     profile.NetworkTier
	ShutdownTimeout time.Duration
	BackoffBase     time.Duration
	DefaultRetries  int
}

// Option is a function that modifies scheduler configuration
type Option func(*Config)

// defaultConfig returns default configuration
func defaultConfig() *Config {
	return &Config{
		DeviceTier:      profile.DeviceMid,
		NetworkTier:     profile.NetworkGood,
		ShutdownTimeout: 30 * time.Second,
		BackoffBase:     time.Second,
		DefaultRetries:  3,
	}
}

// WithDeviceTier sets the device performance tier
func WithDeviceTier(t profile.DeviceTier) Option {
	return func(c *Config) {
		c.DeviceTier = t
	}
}

// WithNetworkTier sets the network quality tier
func WithNetworkTier(t profile.NetworkTier) Option {
	return func(c *Config) {
		c.NetworkTier = t
	}
}

// WithShutdownTimeout sets the graceful shutdown timeout
func WithShutdownTimeout(d time.Duration) Option {
	return func(c *Config) {
		c.ShutdownTimeout = d
	}
}

// WithBackoffBase sets the unit of the exponential retry delay. The delay
// before retry n is base * 2^n; the default base is one second.
func WithBackoffBase(d time.Duration) Option {
	return func(c *Config) {
		c.BackoffBase = d
	}
}

// WithDefaultRetries sets the retry budget for jobs enqueued without one
func WithDefaultRetries(n int) Option {
	return func(c *Config) {
		c.DefaultRetries = n
	}
}

// enqueueOptions collect per-job settings
type enqueueOptions struct {
	maxRetries *int
	timeout    time.Duration
	onComplete job.CompletionFunc
	onProgress job.ProgressFunc
}

// EnqueueOption is a function that modifies per-job settings
type EnqueueOption func(*enqueueOptions)

// WithMaxRetries overrides the scheduler's default retry budget
func WithMaxRetries(n int) EnqueueOption {
	return func(o *enqueueOptions) {
		o.maxRetries = &n
	}
}

// WithTimeout sets a deadline on the handler's context. Zero means no
// deadline; a handler that ignores its context still occupies a slot until
// it returns.
func WithTimeout(d time.Duration) EnqueueOption {
	return func(o *enqueueOptions) {
		o.timeout = d
	}
}

// WithOnComplete registers a listener for the job's terminal result
func WithOnComplete(fn job.CompletionFunc) EnqueueOption {
	return func(o *enqueueOptions) {
		o.onComplete = fn
	}
}

// WithOnProgress registers a listener for handler progress updates
func WithOnProgress(fn job.ProgressFunc) EnqueueOption {
	return func(o *enqueueOptions) {
		o.onProgress = fn
	}
}
