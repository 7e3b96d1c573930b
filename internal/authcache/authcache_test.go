package authcache

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryRoundTrip(t *testing.T) {
	ctx := context.Background()
	c := NewMemory()

	ok, err := c.Get(ctx, 7)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, 7, true))
	ok, _ = c.Get(ctx, 7)
	assert.True(t, ok)

	require.NoError(t, c.Set(ctx, 7, false))
	ok, _ = c.Get(ctx, 7)
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, 7, true))
	require.NoError(t, c.Delete(ctx, 7))
	ok, _ = c.Get(ctx, 7)
	assert.False(t, ok)
}

func TestMemoryConcurrentWriters(t *testing.T) {
	ctx := context.Background()
	c := NewMemory()
	var wg sync.WaitGroup
	for i := int64(0); i < 64; i++ {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			_ = c.Set(ctx, id, id%2 == 0)
		}(i)
	}
	wg.Wait()
	for i := int64(0); i < 64; i++ {
		ok, _ := c.Get(ctx, i)
		assert.Equal(t, i%2 == 0, ok)
	}
}

type failing struct{}

func (failing) Get(context.Context, int64) (bool, error) { return true, errors.New("down") }
func (failing) Set(context.Context, int64, bool) error { return errors.New("down") }
func (failing) Delete(context.Context, int64) error { return errors.New("down") }

func TestIsAuthenticatedTreatsErrorsAsFalse(t *testing.T) {
	assert.False(t, IsAuthenticated(context.Background(), failing{}, 1))
	assert.False(t, IsAuthenticated(context.Background(), nil, 1))
}

func TestOpenSelectsBackend(t *testing.T) {
	ctx := context.Background()

	c, closer, err := Open(ctx, Config{}, NamespaceClient, nil)
	require.NoError(t, err)
	assert.IsType(t, &Memory{}, c)
	assert.NoError(t, closer.Close())

	_, _, err = Open(ctx, Config{Backend: BackendPostgres}, NamespaceStaff, nil)
	assert.Error(t, err)

	_, _, err = Open(ctx, Config{Backend: "etcd"}, NamespaceStaff, nil)
	assert.Error(t, err)
}

func TestRedisKeyPrefix(t *testing.T) {
	assert.Equal(t, "servicebot:auth:staff:", prefix("", NamespaceStaff))
	assert.Equal(t, "shop:client:", prefix("shop:", NamespaceClient))

	r := NewRedisClient(nil, prefix("", NamespaceClient))
	assert.Equal(t, "servicebot:auth:client:42", r.key(42))
}
