package models

import (
	"math"
	"sync"
	"testing"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/hagall-spatial/quadtree"
	"github.com/stretchr/testify/require"
)

func TestSpaceStoreNew(t *testing.T) {
	t.Run("uses default options", func(t *testing.T) {
		var store SpaceStore

		s, err := store.New(quadtree.NewRectangle(0, 0, 10, 10), 0, 0)
		require.NoError(t, err)
		require.Equal(t, uint32(1), s.ID)
		require.Equal(t, quadtree.DefaultOptions(), s.Options())
		require.Equal(t, 1, store.Count())
	})

	t.Run("uses given options", func(t *testing.T) {
		store := SpaceStore{
			DefaultOptions: quadtree.Options{MaxItems: 8, MaxDepth: 2},
		}

		s, err := store.New(quadtree.NewRectangle(0, 0, 10, 10), 16, 0)
		require.NoError(t, err)
		require.Equal(t, quadtree.Options{MaxItems: 16, MaxDepth: 2}, s.Options())
	})

	t.Run("rejects invalid bounds", func(t *testing.T) {
		var store SpaceStore

		invalid := []quadtree.Rectangle{
			quadtree.NewRectangle(0, 0, 0, 10),
			quadtree.NewRectangle(0, 0, 10, -1),
			quadtree.NewRectangle(math.NaN(), 0, 10, 10),
			quadtree.NewRectangle(0, 0, math.Inf(1), 10),
		}

		for _, r := range invalid {
			_, err := store.New(r, 0, 0)
			require.Error(t, err, r.String())
			require.True(t, errors.IsType(err, ErrTypeInvalidBounds))
		}
		require.Zero(t, store.Count())
	})

	t.Run("enforces max spaces", func(t *testing.T) {
		store := SpaceStore{MaxSpaces: 1}

		_, err := store.New(quadtree.NewRectangle(0, 0, 10, 10), 0, 0)
		require.NoError(t, err)

		_, err = store.New(quadtree.NewRectangle(0, 0, 10, 10), 0, 0)
		require.Error(t, err)
		require.True(t, errors.IsType(err, ErrTypeTooManySpaces))
	})
}

func TestSpaceStoreGetAndRemove(t *testing.T) {
	var store SpaceStore

	a, err := store.New(quadtree.NewRectangle(0, 0, 10, 10), 0, 0)
	require.NoError(t, err)

	b, err := store.New(quadtree.NewRectangle(0, 0, 20, 20), 0, 0)
	require.NoError(t, err)
	require.Equal(t, []*Space{a, b}, store.Spaces())

	s, err := store.Get(b.ID)
	require.NoError(t, err)
	require.Same(t, b, s)

	require.True(t, store.RemoveIfUnused(a))
	_, err = store.Get(a.ID)
	require.Error(t, err)
	require.True(t, errors.IsType(err, ErrTypeSpaceNotFound))

	require.False(t, store.RemoveIfUnused(a))
	require.Equal(t, 1, store.Count())

	c, err := store.New(quadtree.NewRectangle(0, 0, 30, 30), 0, 0)
	require.NoError(t, err)
	require.Equal(t, a.ID, c.ID)
	require.NotEqual(t, a.SpaceUUID, c.SpaceUUID)

	require.False(t, store.RemoveIfUnused(a))
	got, err := store.Get(c.ID)
	require.NoError(t, err)
	require.Same(t, c, got)
}

func TestSpaceStoreRemoveIfUnused(t *testing.T) {
	t.Run("space with participants is kept", func(t *testing.T) {
		var store SpaceStore

		space, err := store.New(quadtree.NewRectangle(0, 0, 10, 10), 0, 0)
		require.NoError(t, err)

		joined, p, err := store.Join(space.ID, "ted")
		require.NoError(t, err)
		require.Same(t, space, joined)
		require.Equal(t, "ted", p.ClientID)
		require.Equal(t, 1, space.ParticipantCount())

		require.False(t, store.RemoveIfUnused(space))
		require.Equal(t, 1, store.Count())

		space.RemoveParticipant(p)
		require.True(t, store.RemoveIfUnused(space))
		require.Zero(t, store.Count())
	})

	t.Run("persistent space is kept", func(t *testing.T) {
		var store SpaceStore

		space, err := store.New(quadtree.NewRectangle(0, 0, 10, 10), 0, 0)
		require.NoError(t, err)
		space.Persist = true

		require.False(t, store.RemoveIfUnused(space))
		require.Equal(t, 1, store.Count())
	})

	t.Run("join unknown space", func(t *testing.T) {
		var store SpaceStore

		_, _, err := store.Join(42, "ted")
		require.True(t, errors.IsType(err, ErrTypeSpaceNotFound))
	})

	t.Run("concurrent join and leave", func(t *testing.T) {
		var store SpaceStore

		space, err := store.New(quadtree.NewRectangle(0, 0, 10, 10), 0, 0)
		require.NoError(t, err)

		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()

				for j := 0; j < 100; j++ {
					joined, p, err := store.Join(space.ID, "")
					if err != nil {
						return
					}
					if store.RemoveIfUnused(joined) {
						t.Error("space with a participant was removed")
					}
					joined.RemoveParticipant(p)
					store.RemoveIfUnused(joined)
				}
			}()
		}
		wg.Wait()
	})
}
