// Package redis provides a persistence bridge storing the job snapshot in
// a namespaced Redis hash.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/gomodule/redigo/redis"

	schederrors "github.com/mediakit/mediasched/errors"
	"github.com/mediakit/mediasched/job"
)

// Bridge implements persistence.Bridge on Redis.
type Bridge struct {
	pool    *redis.Pool
	options Options
}

// NewBridge creates a new Redis persistence bridge
func NewBridge(options Options) *Bridge {
	return &Bridge{options: options}
}

// Connect establishes the connection pool
func (b *Bridge) Connect(ctx context.Context) error {
	uri, err := url.Parse(b.options.URI)
	if err != nil {
		return schederrors.NewPersistenceError("connect", "",
			fmt.Errorf("invalid URI %q: %w", b.options.URI, err))
	}

	pool := &redis.Pool{
		MaxActive:   b.options.MaxConnections,
		MaxIdle:     b.options.MaxIdle,
		IdleTimeout: b.options.IdleTimeout,
		Dial: func() (redis.Conn, error) {
			dialOptions := []redis.DialOption{
				redis.DialConnectTimeout(b.options.ConnectTimeout),
				redis.DialReadTimeout(b.options.ReadTimeout),
				redis.DialWriteTimeout(b.options.WriteTimeout),
			}
			if uri.User != nil {
				if password, ok := uri.User.Password(); ok {
					dialOptions = append(dialOptions, redis.DialPassword(password))
				}
			}
			if len(uri.Path) > 1 {
				var db int
				if _, err := fmt.Sscanf(uri.Path[1:], "%d", &db); err == nil {
					dialOptions = append(dialOptions, redis.DialDatabase(db))
				}
			}
			return redis.Dial("tcp", uri.Host, dialOptions...)
		},
	}

	// Test connection
	conn := pool.Get()
	defer conn.Close()
	if _, err := conn.Do("PING"); err != nil {
		_ = pool.Close()
		return schederrors.NewPersistenceError("connect", "",
			fmt.Errorf("ping failed: %w", err))
	}

	b.pool = pool
	return nil
}

// Close closes the connection pool
func (b *Bridge) Close() error {
	if b.pool != nil {
		return b.pool.Close()
	}
	return nil
}

// Health checks the Redis connection
func (b *Bridge) Health() error {
	if b.pool == nil {
		return schederrors.ErrNotConnected
	}

	conn := b.pool.Get()
	defer conn.Close()

	if _, err := conn.Do("PING"); err != nil {
		return schederrors.NewPersistenceError("health", "", err)
	}
	return nil
}

// Type returns the bridge type
func (b *Bridge) Type() string {
	return "redis"
}

// Save writes the record for a job into the jobs hash
func (b *Bridge) Save(ctx context.Context, j *job.Job) error {
	if b.pool == nil {
		return schederrors.ErrNotConnected
	}

	record, err := json.Marshal(j)
	if err != nil {
		return schederrors.NewPersistenceError("save", j.ID, err)
	}

	conn := b.pool.Get()
	defer conn.Close()

	if _, err := conn.Do("HSET", b.jobsKey(), j.ID, record); err != nil {
		return schederrors.NewPersistenceError("save", j.ID, err)
	}
	return nil
}

// Delete removes the record for a job
func (b *Bridge) Delete(ctx context.Context, jobID string) error {
	if b.pool == nil {
		return schederrors.ErrNotConnected
	}

	conn := b.pool.Get()
	defer conn.Close()

	if _, err := conn.Do("HDEL", b.jobsKey(), jobID); err != nil {
		return schederrors.NewPersistenceError("delete", jobID, err)
	}
	return nil
}

// LoadAll returns every stored record keyed by job id
func (b *Bridge) LoadAll(ctx context.Context) (map[string]*job.Job, error) {
	if b.pool == nil {
		return nil, schederrors.ErrNotConnected
	}

	conn := b.pool.Get()
	defer conn.Close()

	records, err := redis.StringMap(conn.Do("HGETALL", b.jobsKey()))
	if err != nil {
		return nil, schederrors.NewPersistenceError("load", "", err)
	}

	jobs := make(map[string]*job.Job, len(records))
	for id, record := range records {
		var j job.Job
		if err := json.Unmarshal([]byte(record), &j); err != nil {
			// A corrupt field should not block recovery of the rest.
			continue
		}
		jobs[id] = &j
	}
	return jobs, nil
}

func (b *Bridge) jobsKey() string {
	return b.options.Namespace + "jobs"
}
