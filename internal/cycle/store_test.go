package cycle

import (
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func musicianIDs(items []Item) []string {
	ids := make([]string, len(items))
	for i, item := range items {
		ids[i] = item.MusicianID
	}
	return ids
}

func assertDense(t *testing.T, items []Item) {
	t.Helper()
	seen := make(map[string]struct{}, len(items))
	for i, item := range items {
		require.Equal(t, i, item.Position)
		_, dup := seen[item.MusicianID]
		require.False(t, dup, "duplicate musician %s", item.MusicianID)
		seen[item.MusicianID] = struct{}{}
	}
}

func TestStoreMutations(t *testing.T) {
	t.Parallel()

	store := NewStore()
	key := Key{ChurchID: "church-1", Number: 1}

	_, err := store.Get(key)
	require.ErrorIs(t, err, ErrUnknownCycle)

	store.Load(key, []string{"a", "b", "c"})
	assert.False(t, store.Dirty(key))

	items, err := store.Add(key, "d")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c", "d"}, musicianIDs(items))
	assert.True(t, store.Dirty(key))

	_, err = store.Add(key, "b")
	var dup *DuplicateMusicianError
	require.True(t, errors.As(err, &dup))
	assert.Equal(t, "b", dup.MusicianID)

	items, err = store.RemoveAt(key, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c", "d"}, musicianIDs(items))
	assertDense(t, items)

	_, err = store.RemoveAt(key, 3)
	var rangeErr *IndexOutOfRangeError
	require.True(t, errors.As(err, &rangeErr))
	assert.Equal(t, 3, rangeErr.Len)

	items, err = store.Reorder(key, 2, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"d", "a", "c"}, musicianIDs(items))
}

func TestStoreSaveTracking(t *testing.T) {
	t.Parallel()

	store := NewStore()
	key := Key{ChurchID: "church-1", Number: 2}
	store.Load(key, []string{"a", "b"})

	_, err := store.Add(key, "c")
	require.NoError(t, err)

	ids, version, err := store.Snapshot(key)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, ids)

	_, err = store.Reorder(key, 0, 3)
	require.NoError(t, err)

	store.MarkSaved(key, version)
	assert.True(t, store.Dirty(key), "edits after the snapshot stay dirty")

	_, version, err = store.Snapshot(key)
	require.NoError(t, err)
	store.MarkSaved(key, version)
	assert.False(t, store.Dirty(key))
}

func TestStoreKeepsDenseUnderRandomMutations(t *testing.T) {
	t.Parallel()

	store := NewStore()
	key := Key{ChurchID: "church-1", Number: 1}
	store.Load(key, nil)
	rng := rand.New(rand.NewSource(42))

	for step := 0; step < 500; step++ {
		items, err := store.Get(key)
		require.NoError(t, err)
		n := len(items)

		switch op := rng.Intn(3); {
		case op == 0 || n == 0:
			_, err = store.Add(key, fmt.Sprintf("m%d", rng.Intn(20)))
			var dup *DuplicateMusicianError
			if err != nil {
				require.True(t, errors.As(err, &dup))
			}
		case op == 1:
			_, err = store.RemoveAt(key, rng.Intn(n))
			require.NoError(t, err)
		default:
			_, err = store.Reorder(key, rng.Intn(n), rng.Intn(n+1))
			require.NoError(t, err)
		}

		items, err = store.Get(key)
		require.NoError(t, err)
		assertDense(t, items)
	}
}

func TestStoreConcurrentReordersDoNotLoseUpdates(t *testing.T) {
	t.Parallel()

	store := NewStore()
	key := Key{ChurchID: "church-1", Number: 1}
	initial := []string{"a", "b", "c", "d", "e", "f"}
	store.Load(key, initial)

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := store.Reorder(key, i%len(initial), (i*7)%(len(initial)+1))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	items, err := store.Get(key)
	require.NoError(t, err)
	assertDense(t, items)
	assert.ElementsMatch(t, initial, musicianIDs(items))
}

func TestStoreKeys(t *testing.T) {
	t.Parallel()

	store := NewStore()
	store.Load(Key{ChurchID: "c1", Number: 2}, nil)
	store.Load(Key{ChurchID: "c1", Number: 1}, nil)
	store.Load(Key{ChurchID: "c2", Number: 1}, nil)

	assert.Equal(t, []Key{{ChurchID: "c1", Number: 1}, {ChurchID: "c1", Number: 2}}, store.Keys("c1"))
	assert.True(t, store.Loaded(Key{ChurchID: "c2", Number: 1}))
	assert.False(t, store.Loaded(Key{ChurchID: "c3", Number: 1}))
}

func TestStoreLoadDropsUnsavedEdits(t *testing.T) {
	t.Parallel()

	store := NewStore()
	key := Key{ChurchID: "c1", Number: 1}
	store.Load(key, []string{"A", "B"})

	_, err := store.Add(key, "C")
	require.NoError(t, err)
	require.True(t, store.Dirty(key))

	items := store.Load(key, []string{"A", "B"})
	assert.Equal(t, []string{"A", "B"}, musicianIDs(items))
	assert.False(t, store.Dirty(key))
}
