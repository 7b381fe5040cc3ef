package quadtree

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDebugInfo(t *testing.T) {
	t.Run("leaf", func(t *testing.T) {
		var e entity
		q := New[Item[entity]](NewRectangle(0, 0, 100, 100))
		q.Put(NewItem(NewPoint(1, 1), &e))
		q.Put(NewItem(NewPoint(2, 2), &e))

		info := q.DebugInfo()
		require.Equal(t, NewRectangle(0, 0, 100, 100), info.Bounds)
		require.Equal(t, 20, info.MaxItems)
		require.Equal(t, uint8(3), info.MaxDepth)
		require.Equal(t, 1, info.NodeCount)
		require.Equal(t, 1, info.LeafCount)
		require.Equal(t, 2, info.ItemCount)
		require.Zero(t, info.Depth)
		require.Equal(t, []int{2}, info.Occupancy)
		require.Zero(t, info.StrandedCount)
	})

	t.Run("split", func(t *testing.T) {
		var e entity
		q := New[Item[entity]](NewRectangle(0, 0, 200, 200), WithMaxItems(1))
		q.Put(NewItem(NewPoint(10, 10), &e))
		q.Put(NewItem(NewPoint(110, 10), &e))
		q.Put(NewItem(NewPoint(110, 110), &e))
		q.Put(NewItem(NewPoint(10, 110), &e))

		info := q.DebugInfo()
		require.Equal(t, 5, info.NodeCount)
		require.Equal(t, 4, info.LeafCount)
		require.Equal(t, 4, info.ItemCount)
		require.Equal(t, uint8(1), info.Depth)
		require.Equal(t, []int{0, 4}, info.Occupancy)
		require.Zero(t, info.StrandedCount)
	})

	t.Run("stranded items are reported", func(t *testing.T) {
		var e entity
		// The right edge of the root rounds above the right edge of its right
		// quadrants once split.
		bounds := NewRectangle(7.525730355516119, 0, 2.065826619136986, 10)
		edge := NewPoint(9.591556974653106, 5)
		require.True(t, Contains(edge, bounds))

		q := New[Item[entity]](bounds, WithMaxItems(1))
		q.Put(NewItem(edge, &e))
		q.Put(NewItem(edge, &e))
		require.False(t, q.IsLeaf())
		for _, child := range q.Children() {
			require.False(t, Contains(edge, child.Bounds()))
		}

		info := q.DebugInfo()
		require.Equal(t, 2, info.ItemCount)
		require.Equal(t, 2, info.StrandedCount)
		require.Equal(t, []int{2, 0}, info.Occupancy)
		require.Equal(t, 2, q.Len())

		q.Put(NewItem(edge, &e))
		require.Equal(t, 2, q.Len())
		require.Equal(t, 2, q.DebugInfo().StrandedCount)
		require.Empty(t, q.Query(bounds))

		q.Put(NewItem(NewPoint(8, 1), &e))
		require.Equal(t, 3, q.Len())
		require.Len(t, q.Query(bounds), 1)
	})
}
