// Package cli turns the command line into an app.Config.
//
// It owns usage text, flag validation and exit codes: usage errors are
// returned as *ExitError with code 2, and -h asks the caller to exit
// cleanly. The profile falls back to the ASSETGRID_ENV environment variable.
package cli
