// Package devserver serves the build output to browsers and keeps a
// socket.io channel open to each of them for live reload notifications.
//
// HTML pages are rewritten on the way out so that they load the reload
// client; no change to the project's templates is needed.
package devserver
