package quadtree

const (
	DefaultMaxItems = 20
	DefaultMaxDepth = 3
)

// Options is the capacity policy of a quadtree node.
type Options struct {
	// The number of items a node holds before it splits.
	MaxItems int

	// The depth at which nodes stop splitting and keep every item they
	// receive.
	MaxDepth uint8

	// The depth of the node. Set by the parent when a child is created; root
	// nodes are at depth 0.
	Depth uint8
}

// DefaultOptions returns the options used by New.
func DefaultOptions() Options {
	return Options{
		MaxItems: DefaultMaxItems,
		MaxDepth: DefaultMaxDepth,
	}
}

// Option is a function that overrides a default option.
type Option func(*Options)

// WithMaxItems sets the number of items a node holds before it splits.
func WithMaxItems(n int) Option {
	return func(o *Options) {
		o.MaxItems = n
	}
}

// WithMaxDepth sets the depth at which nodes stop splitting.
func WithMaxDepth(d uint8) Option {
	return func(o *Options) {
		o.MaxDepth = d
	}
}

// WithDepth sets the depth of the created node.
func WithDepth(d uint8) Option {
	return func(o *Options) {
		o.Depth = d
	}
}

func (o Options) child() Options {
	return Options{
		MaxItems: o.MaxItems,
		MaxDepth: o.MaxDepth,
		Depth:    o.Depth + 1,
	}
}
