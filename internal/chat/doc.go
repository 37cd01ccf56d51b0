// Package chat implements the line protocol of the linechat server: the user
// and room registries, the command parser, the wire formatting helpers, and
// the per-connection protocol state machine driven by Engine.
//
// Nothing in this package is safe for concurrent use. The server owns one
// Engine and calls it from a single goroutine, which gives every history
// append and broadcast a total order.
package chat
