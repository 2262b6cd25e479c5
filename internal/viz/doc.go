// Package viz renders a running embedding in the terminal.
//
// [Model] is a Bubble Tea model fed by a [Feed]: the feed is registered with
// the schedule controller as both metric and observer and forwards progress
// over a channel, so the simulation goroutine never touches UI state.
//
// # Key Bindings
//
//	Q, Ctrl+C - cancel the run and quit
//	Space     - freeze/unfreeze the display
//	?         - toggle help
package viz
