// Package app contains the core application logic. It wires the pipeline
// model into a task registry, a scheduler, a watcher and a dev server, and
// runs one of the commands on top of them, decoupled from any specific
// entrypoint like a CLI.
package app
