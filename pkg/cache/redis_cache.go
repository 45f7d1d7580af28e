// Package cache provides an optional Redis-backed read-through cache for
// BBO/L2 query paths, kept off the hot matching path per spec.md §6: the
// engine writes to it as a Subscriber, query handlers may read from it
// instead of taking the per-symbol lock. Grounded on the teacher's
// pkg/infra/redis/redis.go connection setup.
package cache

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/lattice-markets/matchcore/pkg/events"
)

// bboCacheQueueSize bounds how many pending book-changed views the
// background writer goroutine can fall behind by before Deliver starts
// dropping, matching events.ChannelSubscriber's bounded-drop contract.
const bboCacheQueueSize = 256

// Config mirrors the teacher's RedisConfig field set.
type Config struct {
	ConnectionURL       string `yaml:"connection_url"`
	PoolSize            int    `yaml:"pool_size"`
	DialTimeoutSeconds  int    `yaml:"dial_timeout_seconds"`
	ReadTimeoutSeconds  int    `yaml:"read_timeout_seconds"`
	WriteTimeoutSeconds int    `yaml:"write_timeout_seconds"`
	IdleTimeoutSeconds  int    `yaml:"idle_timeout_seconds"`
}

// Connect dials Redis per cfg, grounded on the teacher's InitRedis.
func Connect(cfg Config) (*redis.Client, error) {
	opts, err := redis.ParseURL(cfg.ConnectionURL)
	if err != nil {
		return nil, err
	}
	opts.PoolSize = cfg.PoolSize
	opts.DialTimeout = time.Duration(cfg.DialTimeoutSeconds) * time.Second
	opts.ReadTimeout = time.Duration(cfg.ReadTimeoutSeconds) * time.Second
	opts.WriteTimeout = time.Duration(cfg.WriteTimeoutSeconds) * time.Second
	opts.ConnMaxIdleTime = time.Duration(cfg.IdleTimeoutSeconds) * time.Second

	client := redis.NewClient(opts)
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, err
	}
	return client, nil
}

// BBOCache is a Subscriber that mirrors each symbol's latest L2 view into
// Redis under "book:<symbol>", so a read-only view endpoint can serve BBO
// without contending with the matching engine's per-symbol mutex. Deliver
// only hands the view off to a bounded queue; a background goroutine does
// the actual Set call, so a slow or unreachable Redis never blocks the
// caller of Engine.Submit — it just starts dropping updates, per
// events.Subscriber's non-blocking contract.
type BBOCache struct {
	client  *redis.Client
	ttl     time.Duration
	log     *zap.Logger
	ctx     context.Context
	cancel  context.CancelFunc
	queue   chan *events.BookChangedEvent
	dropped uint64
}

// NewBBOCache wraps an already-connected client and starts its background
// writer goroutine.
func NewBBOCache(client *redis.Client, ttl time.Duration, log *zap.Logger) *BBOCache {
	ctx, cancel := context.WithCancel(context.Background())
	c := &BBOCache{
		client: client,
		ttl:    ttl,
		log:    log,
		ctx:    ctx,
		cancel: cancel,
		queue:  make(chan *events.BookChangedEvent, bboCacheQueueSize),
	}
	go c.run()
	return c
}

func (c *BBOCache) run() {
	for {
		select {
		case view := <-c.queue:
			c.write(view)
		case <-c.ctx.Done():
			return
		}
	}
}

func (c *BBOCache) write(view *events.BookChangedEvent) {
	b, err := json.Marshal(view)
	if err != nil {
		c.log.Error("bbo cache: marshal book view", zap.Error(err))
		return
	}
	key := "book:" + view.Symbol
	if err := c.client.Set(c.ctx, key, b, c.ttl).Err(); err != nil {
		c.log.Warn("bbo cache: set failed", zap.Error(err))
	}
}

func (c *BBOCache) Deliver(ev events.Event) {
	if ev.BookChanged == nil {
		return
	}
	select {
	case c.queue <- ev.BookChanged:
	default:
		atomic.AddUint64(&c.dropped, 1)
		c.log.Warn("bbo cache: queue full, dropping book-changed view", zap.String("symbol", ev.BookChanged.Symbol))
	}
}

// Close stops the background writer goroutine.
func (c *BBOCache) Close() {
	c.cancel()
}

// Get returns the last cached L2 view for symbol, if present.
func (c *BBOCache) Get(symbol string) (*events.BookChangedEvent, error) {
	raw, err := c.client.Get(c.ctx, "book:"+symbol).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var view events.BookChangedEvent
	if err := json.Unmarshal(raw, &view); err != nil {
		return nil, err
	}
	return &view, nil
}
