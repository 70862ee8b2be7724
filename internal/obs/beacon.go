package obs

import (
	"time"

	"github.com/danmuck/rawlog/internal/geometry"
	"github.com/danmuck/rawlog/internal/protocol"
)

const TypeBeaconRanges = "BeaconRanges"

// BeaconMeasurement is one range to an identified beacon.
type BeaconMeasurement struct {
	SensorLocation geometry.Point3D
	Distance       float32
	BeaconID       int32
}

// BeaconRanges is a set of range measurements to radio beacons.
//
// Layout history: v1 added AuxEstimatePose, v2 added SensorLabel and v3
// added Timestamp.
type BeaconRanges struct {
	SensorLabel       string
	Timestamp         time.Time
	MinSensorDistance float32
	MaxSensorDistance float32
	StdError          float32
	Measurements      []BeaconMeasurement
	AuxEstimatePose   geometry.Pose3D
}

func beaconLayout(version uint8) protocol.DecodeFunc[*BeaconRanges] {
	return func(in *protocol.Archive, b *BeaconRanges) error {
		return b.decodeLayout(in, version)
	}
}

var beaconVersions = protocol.NewVersionTable(TypeBeaconRanges,
	beaconLayout(0), beaconLayout(1), beaconLayout(2), beaconLayout(3))

func (b *BeaconRanges) CurrentVersion() uint8 { return beaconVersions.Current() }

func (b *BeaconRanges) Label() string   { return b.SensorLabel }
func (b *BeaconRanges) Time() time.Time { return b.Timestamp }

func (b *BeaconRanges) Encode(out *protocol.Archive) error {
	out.WriteFloat32(b.MinSensorDistance)
	out.WriteFloat32(b.MaxSensorDistance)
	out.WriteFloat32(b.StdError)
	protocol.WriteSeq(out, b.Measurements, func(a *protocol.Archive, m BeaconMeasurement) error {
		a.WriteObject(&m.SensorLocation)
		a.WriteFloat32(m.Distance)
		return a.WriteInt32(m.BeaconID)
	})
	out.WriteObject(&b.AuxEstimatePose)
	out.WriteString(b.SensorLabel)
	out.WriteTimestamp(b.Timestamp)
	return out.Err()
}

func (b *BeaconRanges) Decode(in *protocol.Archive, version uint8) error {
	return beaconVersions.Decode(in, b, version)
}

func (b *BeaconRanges) decodeLayout(in *protocol.Archive, version uint8) error {
	b.MinSensorDistance, _ = in.ReadFloat32()
	b.MaxSensorDistance, _ = in.ReadFloat32()
	b.StdError, _ = in.ReadFloat32()
	b.Measurements, _ = protocol.ReadSeq(in, func(a *protocol.Archive) (BeaconMeasurement, error) {
		var m BeaconMeasurement
		a.ReadObjectInto(&m.SensorLocation)
		m.Distance, _ = a.ReadFloat32()
		m.BeaconID, _ = a.ReadInt32()
		return m, a.Err()
	})

	b.AuxEstimatePose = geometry.Pose3D{}
	if version >= 1 {
		in.ReadObjectInto(&b.AuxEstimatePose)
	}
	b.SensorLabel = ""
	if version >= 2 {
		b.SensorLabel, _ = in.ReadString()
	}
	b.Timestamp = time.Time{}
	if version >= 3 {
		b.Timestamp, _ = in.ReadTimestamp()
	}
	return in.Err()
}

// Range returns the distance measured to beaconID.
func (b *BeaconRanges) Range(beaconID int32) (float32, bool) {
	for _, m := range b.Measurements {
		if m.BeaconID == beaconID {
			return m.Distance, true
		}
	}
	return 0, false
}

// GlobalSensorLocations places every measurement's sensor in the frame of
// the auxiliary pose estimate.
func (b *BeaconRanges) GlobalSensorLocations() []geometry.Point3D {
	out := make([]geometry.Point3D, len(b.Measurements))
	for i, m := range b.Measurements {
		out[i] = b.AuxEstimatePose.ComposePoint(m.SensorLocation)
	}
	return out
}
