// Package pipeline runs one ISP/period validation from input discovery to
// the final status write.
//
// A run moves through a fixed sequence of stages:
//
//	status begin -> classify -> clean outputs -> upstream (optional)
//	-> validate -> persist -> aggregate and write -> notify
//	-> status finish -> save run manifest
//
// Each stage opens a span and is recorded in the run manifest. A header
// failure skips straight to the error report, notification and status
// write. Row-level errors never stop a run; persistence and notification
// failures are logged and never change its outcome.
package pipeline
