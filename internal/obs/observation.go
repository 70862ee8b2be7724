package obs

import (
	"time"

	"github.com/danmuck/rawlog/internal/protocol"
)

// Observation is a timestamped reading from a labelled sensor.
type Observation interface {
	protocol.Serializable
	Label() string
	Time() time.Time
}

// Register adds the observation types to r. The geometry types they embed
// must be registered on the same registry before streams are read.
func Register(r *protocol.Registry) error {
	if err := r.Register(TypeBeaconRanges, func() protocol.Serializable { return &BeaconRanges{} }, beaconVersions.Current()); err != nil {
		return err
	}
	if err := r.Register(TypeGPS, func() protocol.Serializable { return &GPS{} }, gpsVersions.Current()); err != nil {
		return err
	}
	return r.Register(TypeSensoryFrame, func() protocol.Serializable { return &SensoryFrame{} }, 0)
}
