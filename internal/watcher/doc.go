// Package watcher maps file-system changes to the tasks they affect.
//
// Each Rule pairs path patterns with task names. A matching change opens (or
// extends) a debounce window for that rule; when the window closes the rule's
// tasks are queued as one Trigger. Triggers execute one at a time: while a
// run is in flight, newly queued triggers are merged and wait for it to end.
package watcher
