// Package scheduler interprets resolved composition trees.
//
// Execution rules:
//   - Leaf: expand the input globs, pass them through the incremental gate
//     (when the leaf is incremental) and run the transform. An empty filtered
//     set skips the transform and counts as success. After a success the gate
//     record is advanced to the moment the transform started.
//   - Series: members run one after another; the first failure stops the
//     series and is propagated unchanged.
//   - Parallel: members run concurrently; the composite waits for all of them
//     and fails with an AggregateFailure carrying every member failure.
//
// Transform errors and panics are converted into a Failed outcome for that
// leaf only, so callers such as the watcher never see a crash from a step.
package scheduler
