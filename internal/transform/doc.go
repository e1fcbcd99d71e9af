// Package transform defines the contract between the scheduler and the
// opaque build steps it drives. A Step receives the (already filtered) input
// files of one leaf task and reports the files it produced, or fails. The
// scheduler never looks inside a step.
//
// Concrete steps live under modules/ and are registered into a Registry by
// name; pipeline files refer to them by that name.
package transform
