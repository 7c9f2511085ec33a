package reportcache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/availability-engine/availability"
)

func TestKey(t *testing.T) {
	assert.Equal(t, "availability:report:santa-maria:2025-09", Key("santa-maria", "2025-09"))
	assert.Equal(t, "availability:report-version:santa-maria:2025-09", VersionKey("santa-maria", "2025-09"))
	assert.Equal(t, "availability:report-version:santa-maria", VersionKey("santa-maria", ""))
	assert.Equal(t, "2025-09", MonthOf("2025-09-14"))
	assert.Equal(t, "2025", MonthOf("2025"))
}

func TestNoop(t *testing.T) {
	ctx := context.Background()
	var c Cache = Noop{}
	v, err := c.Version(ctx, "santa-maria", time.September, 2025)
	require.NoError(t, err)
	require.NoError(t, c.SetIfVersion(ctx, "santa-maria", time.September, 2025, v, "report"))
	_, ok, err := c.Get(ctx, "santa-maria", time.September, 2025)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, c.Invalidate(ctx, "santa-maria"))
}

func newRedis(t *testing.T) (*Redis, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	c, err := NewRedis(context.Background(), "redis://"+mr.Addr(), time.Minute)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c, mr
}

// fill stores report under the month's current version.
func fill(t *testing.T, c *Redis, rid availability.ResourceID, month time.Month, report string) {
	t.Helper()
	ctx := context.Background()
	v, err := c.Version(ctx, rid, month, 2025)
	require.NoError(t, err)
	require.NoError(t, c.SetIfVersion(ctx, rid, month, 2025, v, report))
}

func TestRedis_SetGet(t *testing.T) {
	ctx := context.Background()
	c, mr := newRedis(t)

	_, ok, err := c.Get(ctx, "santa-maria", time.September, 2025)
	require.NoError(t, err)
	assert.False(t, ok)

	fill(t, c, "santa-maria", time.September, "Availability for 09/2025:")

	got, ok, err := c.Get(ctx, "santa-maria", time.September, 2025)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "Availability for 09/2025:", got)

	assert.Equal(t, time.Minute, mr.TTL(Key("santa-maria", "2025-09")))

	mr.FastForward(2 * time.Minute)
	_, ok, err = c.Get(ctx, "santa-maria", time.September, 2025)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedis_InvalidateMonths(t *testing.T) {
	ctx := context.Background()
	c, mr := newRedis(t)

	fill(t, c, "santa-maria", time.September, "sep")
	fill(t, c, "santa-maria", time.October, "oct")

	require.NoError(t, c.Invalidate(ctx, "santa-maria", "2025-09"))

	assert.False(t, mr.Exists(Key("santa-maria", "2025-09")))
	assert.True(t, mr.Exists(Key("santa-maria", "2025-10")))
}

func TestRedis_InvalidateResource(t *testing.T) {
	ctx := context.Background()
	c, mr := newRedis(t)

	fill(t, c, "santa-maria", time.September, "sep")
	fill(t, c, "santa-maria", time.October, "oct")
	fill(t, c, "casa-azul", time.September, "other")

	require.NoError(t, c.Invalidate(ctx, "santa-maria"))

	assert.False(t, mr.Exists(Key("santa-maria", "2025-09")))
	assert.False(t, mr.Exists(Key("santa-maria", "2025-10")))
	assert.True(t, mr.Exists(Key("casa-azul", "2025-09")))

	// nothing left to delete
	require.NoError(t, c.Invalidate(ctx, "santa-maria"))
}

func TestRedis_StaleFillIsDropped(t *testing.T) {
	ctx := context.Background()

	t.Run("month invalidated after version read", func(t *testing.T) {
		c, mr := newRedis(t)
		v, err := c.Version(ctx, "santa-maria", time.September, 2025)
		require.NoError(t, err)

		require.NoError(t, c.Invalidate(ctx, "santa-maria", "2025-09"))

		require.NoError(t, c.SetIfVersion(ctx, "santa-maria", time.September, 2025, v, "stale"))
		assert.False(t, mr.Exists(Key("santa-maria", "2025-09")))

		// a fresh read under the new version fills normally
		fill(t, c, "santa-maria", time.September, "fresh")
		got, ok, err := c.Get(ctx, "santa-maria", time.September, 2025)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "fresh", got)
	})

	t.Run("resource invalidated after version read", func(t *testing.T) {
		c, mr := newRedis(t)
		v, err := c.Version(ctx, "santa-maria", time.September, 2025)
		require.NoError(t, err)

		require.NoError(t, c.Invalidate(ctx, "santa-maria"))

		require.NoError(t, c.SetIfVersion(ctx, "santa-maria", time.September, 2025, v, "stale"))
		assert.False(t, mr.Exists(Key("santa-maria", "2025-09")))
	})

	t.Run("other month invalidated", func(t *testing.T) {
		c, mr := newRedis(t)
		v, err := c.Version(ctx, "santa-maria", time.September, 2025)
		require.NoError(t, err)

		require.NoError(t, c.Invalidate(ctx, "santa-maria", "2025-10"))

		require.NoError(t, c.SetIfVersion(ctx, "santa-maria", time.September, 2025, v, "sep"))
		assert.True(t, mr.Exists(Key("santa-maria", "2025-09")))
	})
}

func TestNewRedis_BadURL(t *testing.T) {
	_, err := NewRedis(context.Background(), "not a url", time.Minute)
	assert.ErrorContains(t, err, "invalid REDIS_URL")
}
