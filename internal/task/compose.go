package task

// NewLeaf returns a leaf composition for the given spec.
func NewLeaf(spec LeafSpec) Composition {
	return Composition{Kind: Leaf, Leaf: &spec}
}

// NewSeries composes the referenced tasks in declaration order.
func NewSeries(refs ...string) Composition {
	return Composition{Kind: Series, Members: append([]string(nil), refs...)}
}

// NewParallel composes the referenced tasks without any ordering.
func NewParallel(refs ...string) Composition {
	return Composition{Kind: Parallel, Members: append([]string(nil), refs...)}
}

// WithStyleOnly returns a copy of c classified as style-only.
func (c Composition) WithStyleOnly() Composition {
	c.StyleOnly = true
	return c
}
