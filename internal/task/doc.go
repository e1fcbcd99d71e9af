// Package task defines the data model of the build graph: named tasks whose
// body is either a single transform invocation (a leaf) or a series/parallel
// composition of other named tasks.
//
// Composition is plain data. The registry resolves it into a tree of Nodes
// and the scheduler interprets that tree; nothing in this package executes
// anything, so graphs can be built and inspected in isolation.
package task
