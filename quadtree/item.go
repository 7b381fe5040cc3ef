package quadtree

// Positioner is the capability required from anything stored in a Quadtree.
type Positioner interface {
	Position() Point
}

// Item associates a position with data owned by the caller. The quadtree only
// keeps the pointer: the data must outlive the tree it is put in.
type Item[T any] struct {
	point Point
	data  *T
}

func NewItem[T any](p Point, data *T) Item[T] {
	return Item[T]{
		point: p,
		data:  data,
	}
}

func (i Item[T]) Position() Point {
	return i.point
}

// Data returns the referenced caller data.
func (i Item[T]) Data() *T {
	return i.data
}
