// Package ratelimit implements the token-bucket scheduler that enforces a
// venue's request, weight, and order-submission ceilings.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// maxAcquireWait bounds how long a single Acquire retry sleeps, even if a
// bucket's own wait_time would suggest longer.
const maxAcquireWait = 30 * time.Second

// bucket is a single token bucket: capacity tokens, refilled lazily at
// refillRate tokens/second. Mutations happen under the owning Limiter's
// lock, not a per-bucket lock, because Acquire must check and consume
// across three buckets as one atomic unit.
type bucket struct {
	capacity   float64
	refillRate float64
	tokens     float64
	lastRefill time.Time
}

func newBucket(capacity, refillRate float64) *bucket {
	return &bucket{capacity: capacity, refillRate: refillRate, tokens: capacity, lastRefill: time.Now()}
}

func (b *bucket) refill(now time.Time) {
	elapsed := now.Sub(b.lastRefill).Seconds()
	if elapsed <= 0 {
		return
	}
	b.tokens = min(b.capacity, b.tokens+elapsed*b.refillRate)
	b.lastRefill = now
}

// consume attempts to take n tokens, refilling first. Returns true on success.
func (b *bucket) consume(now time.Time, n float64) bool {
	b.refill(now)
	if b.tokens >= n {
		b.tokens -= n
		return true
	}
	return false
}

// waitTime returns how long the caller must wait before n tokens are
// available, refilling first. Zero if already available.
func (b *bucket) waitTime(now time.Time, n float64) time.Duration {
	b.refill(now)
	if b.tokens >= n {
		return 0
	}
	needed := n - b.tokens
	return time.Duration(needed / b.refillRate * float64(time.Second))
}

func (b *bucket) utilization() float64 {
	if b.capacity == 0 {
		return 0
	}
	return 1.0 - (b.tokens / b.capacity)
}

// Limits describes a venue's request/weight/order ceilings, per spec §6's
// defaults for Binance USD-M Futures.
type Limits struct {
	RequestsPerMinute int
	WeightPerMinute   int
	OrdersPerSecond   int
}

// BinanceFuturesLimits are the documented defaults: 2400 requests/minute,
// 2400 weight/minute, 300 orders/second.
var BinanceFuturesLimits = Limits{
	RequestsPerMinute: 2400,
	WeightPerMinute:   2400,
	OrdersPerSecond:   300,
}

// Stats is a snapshot of a Limiter's cumulative counters, mirroring the
// source's get_stats().
type Stats struct {
	TotalRequests  int64
	TotalWeight    int64
	TotalOrders    int64
	RateLimitHits  int64
	RequestUtil    float64
	WeightUtil     float64
	OrderUtil      float64
}

// Limiter enforces a venue's rate ceilings via three token buckets, guarded
// by a single mutex so Acquire's three-bucket check is atomic as a unit.
type Limiter struct {
	mu sync.Mutex

	requestBucket *bucket
	weightBucket  *bucket
	orderBucket   *bucket

	totalRequests int64
	totalWeight   int64
	totalOrders   int64
	rateLimitHits int64

	venue   string
	metrics *metrics
}

// New constructs a Limiter for one venue's limits. venue is a label used
// only for logging and metrics (e.g. "binance-futures").
func New(venue string, limits Limits) *Limiter {
	return &Limiter{
		requestBucket: newBucket(float64(limits.RequestsPerMinute), float64(limits.RequestsPerMinute)/60.0),
		weightBucket:  newBucket(float64(limits.WeightPerMinute), float64(limits.WeightPerMinute)/60.0),
		// Order bucket sizes to a 10-second window, per spec §4.1 and the
		// source's `order_rate_per_second * 10` capacity sizing.
		orderBucket: newBucket(float64(limits.OrdersPerSecond)*10, float64(limits.OrdersPerSecond)),
		venue:       venue,
		metrics:     globalMetrics,
	}
}

// Acquire blocks until weight (and, if isOrder, one order slot) can be
// taken from all applicable buckets atomically. It retries at the maximum
// of the individual buckets' wait times, clamped to 30s, per spec §4.1.
func (l *Limiter) Acquire(ctx context.Context, weight int, isOrder bool) error {
	if weight < 1 {
		weight = 1
	}
	for {
		l.mu.Lock()
		now := time.Now()

		requestOK := l.requestBucket.consume(now, 1)
		weightOK := l.weightBucket.consume(now, float64(weight))
		orderOK := true
		if isOrder {
			orderOK = l.orderBucket.consume(now, 1)
		}

		if requestOK && weightOK && orderOK {
			l.totalRequests++
			l.totalWeight += int64(weight)
			if isOrder {
				l.totalOrders++
			}
			if l.metrics != nil {
				l.metrics.observe(l.venue, l.requestBucket.utilization(), l.weightBucket.utilization(), l.orderBucket.utilization())
			}
			l.mu.Unlock()
			return nil
		}

		// Something was denied: put back whatever we did manage to
		// consume so a denial on one bucket doesn't silently spend
		// tokens from the others.
		if requestOK {
			l.requestBucket.tokens += 1
		}
		if weightOK {
			l.weightBucket.tokens += float64(weight)
		}
		if isOrder && orderOK {
			l.orderBucket.tokens += 1
		}

		var wait time.Duration
		if !requestOK {
			wait = maxDuration(wait, l.requestBucket.waitTime(now, 1))
		}
		if !weightOK {
			wait = maxDuration(wait, l.weightBucket.waitTime(now, float64(weight)))
		}
		if isOrder && !orderOK {
			wait = maxDuration(wait, l.orderBucket.waitTime(now, 1))
		}
		if wait > maxAcquireWait {
			wait = maxAcquireWait
		}
		l.rateLimitHits++
		l.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}

func maxDuration(a, b time.Duration) time.Duration {
	if b > a {
		return b
	}
	return a
}

// Reset restores all buckets to full capacity and zeroes the statistics.
func (l *Limiter) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := time.Now()
	l.requestBucket.tokens = l.requestBucket.capacity
	l.requestBucket.lastRefill = now
	l.weightBucket.tokens = l.weightBucket.capacity
	l.weightBucket.lastRefill = now
	l.orderBucket.tokens = l.orderBucket.capacity
	l.orderBucket.lastRefill = now
	l.totalRequests, l.totalWeight, l.totalOrders, l.rateLimitHits = 0, 0, 0, 0
}

// Stats returns a snapshot of the limiter's cumulative counters and current
// bucket utilization (0.0-1.0).
func (l *Limiter) Stats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := time.Now()
	l.requestBucket.refill(now)
	l.weightBucket.refill(now)
	l.orderBucket.refill(now)
	return Stats{
		TotalRequests: l.totalRequests,
		TotalWeight:   l.totalWeight,
		TotalOrders:   l.totalOrders,
		RateLimitHits: l.rateLimitHits,
		RequestUtil:   l.requestBucket.utilization(),
		WeightUtil:    l.weightBucket.utilization(),
		OrderUtil:     l.orderBucket.utilization(),
	}
}

// Registry is the "global registry indexed by venue" required by spec §4.1:
// it hands out one long-lived Limiter per venue, creating it lazily.
type Registry struct {
	mu       sync.Mutex
	limiters map[string]*Limiter
	limits   func(venue string) Limits
}

// NewRegistry builds a Registry. limitsFor resolves a venue identifier to
// its Limits the first time that venue is requested.
func NewRegistry(limitsFor func(venue string) Limits) *Registry {
	return &Registry{limiters: make(map[string]*Limiter), limits: limitsFor}
}

// Get returns the long-lived Limiter for venue, creating it on first use.
func (r *Registry) Get(venue string) *Limiter {
	r.mu.Lock()
	defer r.mu.Unlock()
	if l, ok := r.limiters[venue]; ok {
		return l
	}
	l := New(venue, r.limits(venue))
	r.limiters[venue] = l
	return l
}

// ResetAll resets every limiter currently held by the registry.
func (r *Registry) ResetAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, l := range r.limiters {
		l.Reset()
	}
}

// metrics wraps the Prometheus gauges tracking bucket utilization per venue,
// grounded on chidi150c-coinbase's metrics.go package-var-plus-init pattern.
type metrics struct {
	requestUtil *prometheus.GaugeVec
	weightUtil  *prometheus.GaugeVec
	orderUtil   *prometheus.GaugeVec
}

func (m *metrics) observe(venue string, requestUtil, weightUtil, orderUtil float64) {
	if m == nil {
		return
	}
	m.requestUtil.WithLabelValues(venue).Set(requestUtil)
	m.weightUtil.WithLabelValues(venue).Set(weightUtil)
	m.orderUtil.WithLabelValues(venue).Set(orderUtil)
}

var globalMetrics = newMetrics()

func newMetrics() *metrics {
	m := &metrics{
		requestUtil: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "gateway_ratelimit_request_utilization",
			Help: "Fraction of the request-per-minute bucket currently consumed.",
		}, []string{"venue"}),
		weightUtil: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "gateway_ratelimit_weight_utilization",
			Help: "Fraction of the weight-per-minute bucket currently consumed.",
		}, []string{"venue"}),
		orderUtil: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "gateway_ratelimit_order_utilization",
			Help: "Fraction of the order-rate bucket currently consumed.",
		}, []string{"venue"}),
	}
	prometheus.MustRegister(m.requestUtil, m.weightUtil, m.orderUtil)
	return m
}
