// Package geometry holds the point and pose types persisted in rawlogs,
// together with the small amount of math needed to use them.
package geometry
