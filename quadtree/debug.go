package quadtree

// SpatialIndex is the interface of an index that stores positioned items and
// answers range queries.
type SpatialIndex[T Positioner] interface {
	Put(item T)
	Query(rng Rectangle) []T

	// debug stuff:
	DebugInfo() DebugInfo
}

type DebugInfo struct {
	Bounds    Rectangle `json:"bounds"`
	MaxItems  int       `json:"max_items"`
	MaxDepth  uint8     `json:"max_depth"`
	NodeCount int       `json:"node_count"`
	LeafCount int       `json:"leaf_count"`
	ItemCount int       `json:"item_count"`
	Depth     uint8     `json:"depth"`

	// The number of items held at each depth, indexed by depth relative to
	// the node DebugInfo was called on.
	Occupancy []int `json:"occupancy"`

	// Items that no child contained when their node split.
	StrandedCount int `json:"stranded_count"`
}

// DebugInfo walks the node and its descendants and reports their shape.
func (q *Quadtree[T]) DebugInfo() DebugInfo {
	info := DebugInfo{
		Bounds:   q.bounds,
		MaxItems: q.options.MaxItems,
		MaxDepth: q.options.MaxDepth,
	}
	q.collectDebugInfo(&info, 0)
	return info
}

func (q *Quadtree[T]) collectDebugInfo(info *DebugInfo, level int) {
	info.NodeCount++
	info.ItemCount += len(q.items)

	if level > int(info.Depth) {
		info.Depth = uint8(level)
	}
	for len(info.Occupancy) <= level {
		info.Occupancy = append(info.Occupancy, 0)
	}
	info.Occupancy[level] += len(q.items)

	if q.children == nil {
		info.LeafCount++
		return
	}

	info.StrandedCount += len(q.items)
	for _, child := range q.children {
		child.collectDebugInfo(info, level+1)
	}
}
