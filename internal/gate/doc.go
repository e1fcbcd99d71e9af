// Package gate implements incremental execution: it remembers when each leaf
// task last started a successful run and filters the task's candidate inputs
// down to the files modified after that moment.
//
// The record is the run *start* time, not its end, so a file saved while a
// transform is still running is picked up again on the next run. Records
// live in memory only; after a restart the first run of every task sees all
// of its inputs.
package gate
