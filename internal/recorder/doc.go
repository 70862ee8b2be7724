// Package recorder ingests envelope streams over TCP. Each accepted
// connection is copied, record by record and without decoding, into a new
// rawlog file under the configured output directory.
package recorder
