// Package quadtree implements a generic point quadtree over a bounded
// rectangle.
//
// A node keeps its items in a list until it overflows. On the first overflow it
// creates four children covering its quadrants and moves every item into the
// first child whose bounds contain it. Items routed to existing children are
// appended to the child's list as is: a tree never grows deeper than one split
// per put.
//
// A Quadtree is not safe for concurrent use. Concurrent queries are fine as
// long as no put is in flight.
package quadtree

// Quadrant indexes of a node's children.
const (
	TopLeft = iota
	TopRight
	BottomRight
	BottomLeft
)

// Quadtree is a node of a quadtree. A node either holds items or has four
// children, never both.
type Quadtree[T Positioner] struct {
	bounds   Rectangle
	items    []T
	children *[4]*Quadtree[T]
	options  Options
}

// New creates an empty root node covering bounds. Options default to
// DefaultOptions and can be overridden with opts.
func New[T Positioner](bounds Rectangle, opts ...Option) *Quadtree[T] {
	options := DefaultOptions()
	for _, o := range opts {
		o(&options)
	}
	return NewWithOptions[T](bounds, options)
}

// NewWithOptions creates an empty node covering bounds with the given options
// used verbatim.
func NewWithOptions[T Positioner](bounds Rectangle, options Options) *Quadtree[T] {
	return &Quadtree[T]{
		bounds:  bounds,
		options: options,
	}
}

// Put inserts an item. Items positioned outside of the node bounds are
// silently dropped.
func (q *Quadtree[T]) Put(item T) {
	if !q.contains(item) {
		return
	}

	if q.children == nil {
		if q.options.Depth >= q.options.MaxDepth || len(q.items) < q.options.MaxItems {
			q.items = append(q.items, item)
			return
		}

		q.items = append(q.items, item)
		q.split()
		return
	}

	if child := q.route(item); child != nil {
		child.items = append(child.items, item)
	}
}

// split creates the children and drains the node items into them, last
// inserted first. Items that no child contains stay in the node.
func (q *Quadtree[T]) split() {
	children := q.subdivide()
	q.children = &children

	var stranded []T
	for len(q.items) != 0 {
		last := len(q.items) - 1
		item := q.items[last]

		var zero T
		q.items[last] = zero
		q.items = q.items[:last]

		if child := q.route(item); child != nil {
			child.items = append(child.items, item)
		} else {
			stranded = append(stranded, item)
		}
	}

	q.items = stranded
}

// route returns the first child, in quadrant order, that contains the item.
func (q *Quadtree[T]) route(item T) *Quadtree[T] {
	for _, child := range q.children {
		if child.contains(item) {
			return child
		}
	}
	return nil
}

// Query returns the items positioned within rng. Points on the edges of rng
// are included.
func (q *Quadtree[T]) Query(rng Rectangle) []T {
	if q.children != nil {
		if !q.intersects(rng) {
			return nil
		}

		var items []T
		for _, child := range q.children {
			items = append(items, child.Query(rng)...)
		}
		return items
	}

	var items []T
	for _, item := range q.items {
		if Contains(item.Position(), rng) {
			items = append(items, item)
		}
	}
	return items
}

func (q *Quadtree[T]) subdivide() [4]*Quadtree[T] {
	b := q.bounds
	w := b.Width / 2
	h := b.Height / 2
	options := q.options.child()

	return [4]*Quadtree[T]{
		TopLeft:     NewWithOptions[T](NewRectangle(b.X, b.Y, w, h), options),
		TopRight:    NewWithOptions[T](NewRectangle(b.X+w, b.Y, w, h), options),
		BottomRight: NewWithOptions[T](NewRectangle(b.X+w, b.Y+h, w, h), options),
		BottomLeft:  NewWithOptions[T](NewRectangle(b.X, b.Y+h, w, h), options),
	}
}

func (q *Quadtree[T]) contains(item T) bool {
	return Contains(item.Position(), q.bounds)
}

func (q *Quadtree[T]) intersects(r Rectangle) bool {
	return Intersects(r, q.bounds)
}

// Bounds returns the rectangle covered by the node.
func (q *Quadtree[T]) Bounds() Rectangle {
	return q.bounds
}

// Options returns the options the node was created with.
func (q *Quadtree[T]) Options() Options {
	return q.options
}

// IsLeaf reports whether the node has not split yet.
func (q *Quadtree[T]) IsLeaf() bool {
	return q.children == nil
}

// Children returns the node children in quadrant order, or nil when the node
// is a leaf.
func (q *Quadtree[T]) Children() []*Quadtree[T] {
	if q.children == nil {
		return nil
	}
	return q.children[:]
}

// Len returns the number of items stored under the node.
func (q *Quadtree[T]) Len() int {
	n := len(q.items)
	for _, child := range q.Children() {
		n += child.Len()
	}
	return n
}
