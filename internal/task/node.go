package task

import "strings"

// Node is one vertex of a resolved composition tree. Leaves have no
// children; composites have one child per member, in member order.
type Node struct {
	Task     *Task
	Children []*Node
}

// Name returns the task name of the node.
func (n *Node) Name() string {
	return n.Task.Name
}

// Kind returns the composition kind of the node.
func (n *Node) Kind() Kind {
	return n.Task.Kind
}

// Leaves returns every leaf reachable from n in depth-first, member order.
// A task reachable along several paths is listed once per path.
func (n *Node) Leaves() []*Node {
	if n.Kind() == Leaf {
		return []*Node{n}
	}
	var out []*Node
	for _, c := range n.Children {
		out = append(out, c.Leaves()...)
	}
	return out
}

// String renders the tree, e.g. "build(series: clear, assets(parallel: a, b))".
func (n *Node) String() string {
	if n.Kind() == Leaf {
		return n.Name()
	}
	parts := make([]string, len(n.Children))
	for i, c := range n.Children {
		parts[i] = c.String()
	}
	return n.Name() + "(" + n.Kind().String() + ": " + strings.Join(parts, ", ") + ")"
}
