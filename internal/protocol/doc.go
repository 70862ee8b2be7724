// Package protocol owns the polymorphic, versioned binary serialization core.
//
// Ownership boundary:
// - archive primitives and the fixed little-endian wire encoding
// - envelope framing (type name, version, payload) on top of frame
// - process-wide type registry and the versioned codec contract
// - object-graph streams of heterogeneous envelopes
//
// A Stream or Archive is not safe for concurrent use; the Registry is.
package protocol
