// Package server implements the linechat connection multiplexer.
//
// A single Hub goroutine owns the protocol engine and the routing table from
// user id to Connection. Each Connection runs a read pump that assembles
// newline delimited lines and a write pump that drains an unbounded FIFO, so a
// stalled client only grows its own queue. Plain TCP clients and the
// WebSocket gateway share the same Connection and Hub path.
//
// The implementation is organized into specialized files for configuration,
// hub management, connections, framing, routing, and HTTP handlers.
package server
