// Package obs holds sensor observations and the sensory frames that group
// them.
//
// Each observation type keeps one decoder per historical payload layout and
// always encodes the newest one.
package obs
