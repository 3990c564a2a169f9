// Package trace records and replays endpoint-0 token traces.
//
// A [Recorder] is a device.Observer that encodes one CBOR [Event] per token
// the control pipe processes: token kind, state before and after, the cached
// SETUP bytes, payload bytes moved, and whether the transfer paused. Every
// event carries the session UUID of its recorder and a sequence number.
//
// A [Reader] decodes a trace stream, optionally filtered by session or
// token kind.
package trace
