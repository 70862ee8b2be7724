// Package rawlog reads, writes and rewrites rawlog files: back-to-back
// envelope streams of observations, sensory frames and poses.
//
// Ownership boundary:
// - Reader applies the abort/skip policies on top of protocol.Stream.
// - Scan, Filter and ExportGPS are the offline processing operations.
package rawlog
