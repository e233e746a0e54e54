package sweepq

import (
	"context"
	"crypto/tls"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisLike is the set of store commands the sweeper issues. Key arguments
// are unprefixed; implementations apply their own prefix. Keys returns
// names as stored, prefix included.
type RedisLike interface {
	Keys(pattern string) ([]string, error)
	Type(key string) (KeyType, error)
	HGetAll(key string) (map[string]string, error)
	Del(key string) (int64, error)

	LLen(key string) (int64, error)
	LRange(key string, start, stop int64) ([]string, error)
	LPush(key string, value string) (int64, error)
	SCard(key string) (int64, error)
	ZCard(key string) (int64, error)

	// TTL returns whole seconds, -1 for no expiry and -2 for a missing key.
	TTL(key string) (int64, error)

	Ping() error
}

type RedisConnOpts struct {
	RedisURL             string
	Host                 string
	Port                 int
	DB                   int
	Username             string
	Password             string
	SSL                  bool
	Prefix               string
	ScanCount            int64
	SocketTimeout        *time.Duration
	SocketConnectTimeout *time.Duration
}

func looksLikeClusterError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())

	return strings.Contains(msg, "cluster support disabled") ||
		strings.Contains(msg, "cluster mode is not enabled") ||
		(strings.Contains(msg, "unknown command") && strings.Contains(msg, "cluster")) ||
		strings.Contains(msg, "this instance has cluster support disabled") ||
		strings.Contains(msg, "moved") ||
		strings.Contains(msg, "ask")
}

type redisWrap struct {
	rdb       redis.Cmdable
	prefix    string
	scanCount int64
}

// WrapRedis adapts an existing go-redis client. prefix is prepended to every
// key argument and to the enumeration pattern.
func WrapRedis(rdb redis.Cmdable, prefix string, scanCount int64) RedisLike {
	if scanCount <= 0 {
		scanCount = DefaultScanCount
	}
	return &redisWrap{rdb: rdb, prefix: prefix, scanCount: scanCount}
}

func (w *redisWrap) ctx() context.Context { return context.Background() }

func (w *redisWrap) k(key string) string { return w.prefix + key }

func (w *redisWrap) Ping() error {
	return w.rdb.Ping(w.ctx()).Err()
}

func (w *redisWrap) Keys(pattern string) ([]string, error) {
	match := escapeGlob(w.prefix) + pattern

	if c, ok := w.rdb.(*redis.ClusterClient); ok {
		var mu sync.Mutex
		var out []string
		err := c.ForEachMaster(w.ctx(), func(ctx context.Context, node *redis.Client) error {
			keys, err := scanAll(ctx, node, match, w.scanCount)
			if err != nil {
				return err
			}
			mu.Lock()
			out = append(out, keys...)
			mu.Unlock()
			return nil
		})
		if err != nil {
			return nil, err
		}
		return out, nil
	}

	return scanAll(w.ctx(), w.rdb, match, w.scanCount)
}

// scanAll walks a full SCAN cycle. SCAN may return a key more than once, so
// the result is deduplicated.
func scanAll(ctx context.Context, c redis.Cmdable, match string, count int64) ([]string, error) {
	seen := make(map[string]struct{})
	var out []string

	iter := c.Scan(ctx, 0, match, count).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, key)
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (w *redisWrap) Type(key string) (KeyType, error) {
	s, err := w.rdb.Type(w.ctx(), w.k(key)).Result()
	if err != nil {
		return TypeNone, err
	}
	return ParseKeyType(s), nil
}

func (w *redisWrap) HGetAll(key string) (map[string]string, error) {
	return w.rdb.HGetAll(w.ctx(), w.k(key)).Result()
}

func (w *redisWrap) Del(key string) (int64, error) {
	return w.rdb.Del(w.ctx(), w.k(key)).Result()
}

func (w *redisWrap) LLen(key string) (int64, error) {
	return w.rdb.LLen(w.ctx(), w.k(key)).Result()
}

func (w *redisWrap) LRange(key string, start, stop int64) ([]string, error) {
	return w.rdb.LRange(w.ctx(), w.k(key), start, stop).Result()
}

func (w *redisWrap) LPush(key string, value string) (int64, error) {
	return w.rdb.LPush(w.ctx(), w.k(key), value).Result()
}

func (w *redisWrap) SCard(key string) (int64, error) {
	return w.rdb.SCard(w.ctx(), w.k(key)).Result()
}

func (w *redisWrap) ZCard(key string) (int64, error) {
	return w.rdb.ZCard(w.ctx(), w.k(key)).Result()
}

func (w *redisWrap) TTL(key string) (int64, error) {
	d, err := w.rdb.TTL(w.ctx(), w.k(key)).Result()
	if err != nil {
		return 0, err
	}
	// go-redis passes the -1/-2 sentinels through unscaled.
	switch d {
	case -1:
		return TTLNoExpiry, nil
	case -2:
		return TTLMissing, nil
	}
	return int64(d / time.Second), nil
}

func BuildRedisClient(opts RedisConnOpts) (RedisLike, error) {
	if opts.RedisURL != "" {
		ropts, err := redis.ParseURL(opts.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("parse redis_url: %w", err)
		}
		if opts.SSL && ropts.TLSConfig == nil {
			ropts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
		}
		if opts.SocketTimeout != nil {
			ropts.ReadTimeout = *opts.SocketTimeout
			ropts.WriteTimeout = *opts.SocketTimeout
		}
		if opts.SocketConnectTimeout != nil {
			ropts.DialTimeout = *opts.SocketConnectTimeout
		}

		c := redis.NewClient(ropts)
		if err := c.Ping(context.Background()).Err(); err != nil {
			_ = c.Close()
			return nil, err
		}
		return WrapRedis(c, opts.Prefix, opts.ScanCount), nil
	}

	if opts.Host == "" {
		return nil, fmt.Errorf("RedisConnOpts requires host (or redis_url)")
	}
	port := opts.Port
	if port == 0 {
		port = 6379
	}

	addr := fmt.Sprintf("%s:%d", opts.Host, port)
	var tlsCfg *tls.Config
	if opts.SSL {
		tlsCfg = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	// Cluster mode has no logical databases; only try it for DB 0.
	if opts.DB == 0 {
		c := redis.NewClusterClient(&redis.ClusterOptions{
			Addrs:        []string{addr},
			Username:     opts.Username,
			Password:     opts.Password,
			TLSConfig:    tlsCfg,
			ReadTimeout:  durOrZero(opts.SocketTimeout),
			WriteTimeout: durOrZero(opts.SocketTimeout),
			DialTimeout:  durOrZero(opts.SocketConnectTimeout),
		})

		err := c.Ping(context.Background()).Err()
		if err == nil {
			return WrapRedis(c, opts.Prefix, opts.ScanCount), nil
		}
		_ = c.Close()

		if !looksLikeClusterError(err) {
			return nil, err
		}
	}

	c := redis.NewClient(&redis.Options{
		Addr:         addr,
		DB:           opts.DB,
		Username:     opts.Username,
		Password:     opts.Password,
		TLSConfig:    tlsCfg,
		ReadTimeout:  durOrZero(opts.SocketTimeout),
		WriteTimeout: durOrZero(opts.SocketTimeout),
		DialTimeout:  durOrZero(opts.SocketConnectTimeout),
	})

	if err := c.Ping(context.Background()).Err(); err != nil {
		_ = c.Close()
		return nil, err
	}
	return WrapRedis(c, opts.Prefix, opts.ScanCount), nil
}

func durOrZero(d *time.Duration) time.Duration {
	if d == nil {
		return 0
	}
	return *d
}
