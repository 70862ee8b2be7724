// Package transport provides byte channels that carry envelope streams.
//
// Ownership boundary:
// - Channel adapts buffered readers and writers to protocol.Transport.
// - File helpers open and create rawlog files, optionally compressed.
// - Socket helpers dial and listen for streamed records over TCP or TLS.
package transport
