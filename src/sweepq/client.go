package sweepq

import "time"

type Client struct {
	ops     SweepOps
	metrics *Metrics
}

type ClientOpts struct {
	Redis     RedisLike
	RedisURL  string
	Host      string
	Port      int
	DB        int
	Username  string
	Password  string
	SSL       bool
	Prefix    string
	ScanCount int64

	// LockRedis or Locks selects the connection scanned for overlap locks.
	// Without either, lock scans fail with ErrNoLockStore.
	LockRedis  RedisLike
	LockPrefix string
	Locks      *RedisConnOpts
	LockMarker string

	Retention time.Duration
	Now       func() time.Time
	Metrics   *Metrics
}

func NewClient(opts ClientOpts) (*Client, error) {
	var r RedisLike
	if opts.Redis != nil {
		r = opts.Redis
	} else {
		conn := RedisConnOpts{
			RedisURL:  opts.RedisURL,
			Host:      opts.Host,
			Port:      opts.Port,
			DB:        opts.DB,
			Username:  opts.Username,
			Password:  opts.Password,
			SSL:       opts.SSL,
			Prefix:    opts.Prefix,
			ScanCount: opts.ScanCount,
		}

		var err error
		r, err = BuildRedisClient(conn)
		if err != nil {
			return nil, err
		}
	}

	locks := opts.LockRedis
	lockPrefix := opts.LockPrefix
	if locks == nil && opts.Locks != nil {
		var err error
		locks, err = BuildRedisClient(*opts.Locks)
		if err != nil {
			return nil, err
		}
		lockPrefix = opts.Locks.Prefix
	}

	return &Client{
		ops: SweepOps{
			R:          r,
			Prefix:     opts.Prefix,
			Locks:      locks,
			LockPrefix: lockPrefix,
			LockMarker: opts.LockMarker,
			Retention:  opts.Retention,
			Now:        opts.Now,
		},
		metrics: opts.Metrics,
	}, nil
}

// Cleanup runs one reconciliation pass over the store.
func (c *Client) Cleanup(opts SweepOpts) (*Report, error) {
	if opts.Metrics == nil {
		opts.Metrics = c.metrics
	}
	return runSweep(&c.ops, opts)
}

func (c *Client) Ops() *SweepOps {
	return &c.ops
}
