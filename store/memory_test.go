package store

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()

	t.Run("Put and Get return copies", func(t *testing.T) {
		s := NewMemoryStore()
		in := [][]byte{[]byte("core"), []byte("section")}

		require.NoError(t, s.Put(ctx, "a", in))
		in[0][0] = 'X'

		out, err := s.Get(ctx, "a")
		require.NoError(t, err)
		assert.Equal(t, [][]byte{[]byte("core"), []byte("section")}, out)

		out[1][0] = 'Y'
		again, err := s.Get(ctx, "a")
		require.NoError(t, err)
		assert.Equal(t, []byte("section"), again[1])
	})

	t.Run("Put replaces without reordering", func(t *testing.T) {
		s := NewMemoryStore()
		require.NoError(t, s.Put(ctx, "a", [][]byte{{1}}))
		require.NoError(t, s.Put(ctx, "b", [][]byte{{2}}))
		require.NoError(t, s.Put(ctx, "a", [][]byte{{3}}))

		keys, err := s.Keys(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b"}, keys)

		out, err := s.Get(ctx, "a")
		require.NoError(t, err)
		assert.Equal(t, [][]byte{{3}}, out)
	})

	t.Run("Get missing key", func(t *testing.T) {
		s := NewMemoryStore()
		_, err := s.Get(ctx, "missing")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		s := NewMemoryStore()
		require.NoError(t, s.Put(ctx, "a", [][]byte{{1}}))
		require.NoError(t, s.Put(ctx, "b", [][]byte{{2}}))

		require.NoError(t, s.Delete(ctx, "a"))
		assert.ErrorIs(t, s.Delete(ctx, "a"), ErrNotFound)

		keys, err := s.Keys(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"b"}, keys)
	})

	t.Run("Rejects bad input", func(t *testing.T) {
		s := NewMemoryStore()
		assert.ErrorIs(t, s.Put(ctx, "", [][]byte{{1}}), ErrInvalidKey)
		assert.ErrorIs(t, s.Put(ctx, "a", nil), ErrNoSlices)
		assert.Equal(t, 0, s.Len())
	})

	t.Run("Honors cancelled context", func(t *testing.T) {
		s := NewMemoryStore()
		cancelled, cancel := context.WithCancel(ctx)
		cancel()

		assert.ErrorIs(t, s.Put(cancelled, "a", [][]byte{{1}}), context.Canceled)
		_, err := s.Get(cancelled, "a")
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestMemoryStoreRotation(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name       string
		maxEntries int
		percent    float64
		puts       int
		wantKeys   []string
	}{
		{
			name:       "evicts the configured share",
			maxEntries: 5,
			percent:    0.4,
			puts:       6,
			wantKeys:   []string{"k2", "k3", "k4", "k5"},
		},
		{
			name:       "evicts at least one entry",
			maxEntries: 3,
			percent:    0.1,
			puts:       5,
			wantKeys:   []string{"k2", "k3", "k4"},
		},
		{
			name:       "unlimited",
			maxEntries: 0,
			puts:       4,
			wantKeys:   []string{"k0", "k1", "k2", "k3"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewMemoryStore(WithMaxEntries(tt.maxEntries), WithRotatePercent(tt.percent))
			for i := 0; i < tt.puts; i++ {
				require.NoError(t, s.Put(ctx, fmt.Sprintf("k%d", i), [][]byte{{byte(i)}}))
			}

			keys, err := s.Keys(ctx)
			require.NoError(t, err)
			assert.Equal(t, tt.wantKeys, keys)

			_, err = s.Get(ctx, "k0")
			if tt.maxEntries > 0 {
				assert.ErrorIs(t, err, ErrNotFound)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestMemoryStoreConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := fmt.Sprintf("k%d", i)
			assert.NoError(t, s.Put(ctx, key, [][]byte{{byte(i)}}))
			out, err := s.Get(ctx, key)
			assert.NoError(t, err)
			assert.Equal(t, [][]byte{{byte(i)}}, out)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 20, s.Len())
}
