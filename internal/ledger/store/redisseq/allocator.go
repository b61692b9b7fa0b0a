// Package redisseq reserves per-tenant sequence numbers through Redis.
//
// INCR is the atomic increment-and-reserve primitive: every caller across
// every instance gets a distinct, strictly increasing number for the tenant.
// Reserved numbers are never returned on failure, so a crashed writer leaves
// a gap, which the ledger tolerates (sequences must be unique and ordered,
// not gapless).
package redisseq

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"

	id "github.com/julianlaycock/caelith-sub002/pkg/domain"
	"github.com/julianlaycock/caelith-sub002/pkg/platform/sentinel"
)

var reserveDurationMs = promauto.NewHistogram(prometheus.HistogramOpts{
	Name:    "caelith_sequence_reserve_duration_ms",
	Help:    "Latency of per-tenant sequence reservations in milliseconds",
	Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 25},
})

const sequenceKeyPrefix = "ledger:seq:"

// Allocator is a Redis-backed store.SequenceAllocator for deployments where
// multiple engine instances share one tenant ledger.
type Allocator struct {
	client *redis.Client
}

func New(client *redis.Client) *Allocator {
	return &Allocator{client: client}
}

// Next reserves the tenant's next sequence number.
func (a *Allocator) Next(ctx context.Context, tenantID id.TenantID) (int64, error) {
	start := time.Now()
	seq, err := a.client.Incr(ctx, sequenceKeyPrefix+tenantID.String()).Result()
	reserveDurationMs.Observe(float64(time.Since(start).Microseconds()) / 1000.0)
	if err != nil {
		return 0, fmt.Errorf("reserve sequence for tenant %s: %w (%w)", tenantID, err, sentinel.ErrUnavailable)
	}
	return seq, nil
}
