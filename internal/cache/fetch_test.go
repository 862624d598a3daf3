package cache

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gzcache "github.com/zeromicro/go-zero/core/stores/cache"
)

var errMiss = errors.New("miss")

// memCache is a map-backed gzcache.Cache covering the calls Fetch makes.
type memCache struct {
	gzcache.Cache
	items map[string][]byte
	ttls  map[string]time.Duration
}

func newMemCache() *memCache {
	return &memCache{items: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (m *memCache) GetCtx(_ context.Context, key string, val any) error {
	data, ok := m.items[key]
	if !ok {
		return errMiss
	}
	return json.Unmarshal(data, val)
}

func (m *memCache) SetWithExpireCtx(_ context.Context, key string, val any, expire time.Duration) error {
	data, err := json.Marshal(val)
	if err != nil {
		return err
	}
	m.items[key] = data
	m.ttls[key] = expire
	return nil
}

func (m *memCache) IsNotFound(err error) bool {
	return errors.Is(err, errMiss)
}

func TestFetch(t *testing.T) {
	ctx := context.Background()
	c := newMemCache()
	loads := 0
	load := func() ([]string, error) {
		loads++
		return []string{"BTC/USDT:USDT"}, nil
	}

	got, err := Fetch(ctx, c, "k", time.Minute, load)
	require.NoError(t, err)
	assert.Equal(t, []string{"BTC/USDT:USDT"}, got)
	got, err = Fetch(ctx, c, "k", time.Minute, load)
	require.NoError(t, err)
	assert.Equal(t, []string{"BTC/USDT:USDT"}, got)
	assert.Equal(t, 1, loads)
	assert.Equal(t, time.Minute, c.ttls["k"])
}

func TestFetchWithoutCache(t *testing.T) {
	loads := 0
	for i := 0; i < 2; i++ {
		_, err := Fetch(context.Background(), nil, "k", time.Minute, func() (int, error) {
			loads++
			return loads, nil
		})
		require.NoError(t, err)
	}
	assert.Equal(t, 2, loads)
}

func TestFetchDoesNotCacheErrors(t *testing.T) {
	c := newMemCache()
	_, err := Fetch(context.Background(), c, "k", time.Minute, func() (int, error) {
		return 0, errors.New("upstream down")
	})
	require.Error(t, err)
	assert.Empty(t, c.items)
}
