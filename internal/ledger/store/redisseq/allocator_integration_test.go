//go:build integration

package redisseq_test

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/julianlaycock/caelith-sub002/internal/ledger/store/redisseq"
	id "github.com/julianlaycock/caelith-sub002/pkg/domain"
	"github.com/julianlaycock/caelith-sub002/pkg/testutil/containers"
)

func TestAllocator_Next(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	rc := containers.GetManager().GetRedis(t)
	require.NoError(t, rc.FlushAll(ctx))

	allocator := redisseq.New(rc.Client)
	tenantID := id.TenantID(uuid.New())

	t.Run("starts at one and increments", func(t *testing.T) {
		first, err := allocator.Next(ctx, tenantID)
		require.NoError(t, err)
		second, err := allocator.Next(ctx, tenantID)
		require.NoError(t, err)

		assert.Equal(t, int64(1), first)
		assert.Equal(t, int64(2), second)
	})

	t.Run("tenants keep independent counters", func(t *testing.T) {
		other := id.TenantID(uuid.New())

		seq, err := allocator.Next(ctx, other)
		require.NoError(t, err)
		assert.Equal(t, int64(1), seq)
	})

	t.Run("concurrent reservations never collide", func(t *testing.T) {
		tenant := id.TenantID(uuid.New())
		const callers = 50

		var wg sync.WaitGroup
		var mu sync.Mutex
		seen := make(map[int64]int, callers)

		for i := 0; i < callers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()

				seq, err := allocator.Next(ctx, tenant)
				if err != nil {
					return
				}
				mu.Lock()
				seen[seq]++
				mu.Unlock()
			}()
		}
		wg.Wait()

		require.Len(t, seen, callers)
		for seq := int64(1); seq <= callers; seq++ {
			assert.Equal(t, 1, seen[seq], "sequence %d reserved exactly once", seq)
		}
	})
}
