// Package registry holds the named task definitions of a pipeline.
//
// Tasks are registered during the configuration phase, either one at a time
// with Define or as a batch with DefineAll (the configuration loader does the
// latter because declaration order inside a file is arbitrary). Every
// registration is checked for duplicate names, dangling references and
// reference cycles before anything is stored, so a registry that accepted
// its definitions can always be resolved into finite composition trees.
//
// Once Freeze is called the registry is read-only and safe for concurrent
// use by the scheduler and the watcher.
package registry
