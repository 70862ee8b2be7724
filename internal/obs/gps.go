package obs

import (
	"time"

	"github.com/danmuck/rawlog/internal/geometry"
	"github.com/danmuck/rawlog/internal/protocol"
)

const TypeGPS = "GPS"

// Fix quality codes as reported by NMEA GGA sentences.
const (
	FixInvalid    uint8 = 0
	FixStandalone uint8 = 1
	FixDGPS       uint8 = 2
	FixPPS        uint8 = 3
	FixRTK        uint8 = 4
	FixFloatRTK   uint8 = 5
)

// GPS is one position fix from a GNSS receiver.
//
// Version 1 added FixQuality and Satellites. Older payloads get
// FixStandalone when HasFix is set and FixInvalid otherwise.
type GPS struct {
	SensorLabel string
	Timestamp   time.Time
	HasFix      bool
	Position    geometry.Geodetic
	FixQuality  uint8
	Satellites  uint8
}

var gpsVersions = protocol.NewVersionTable(TypeGPS,
	func(in *protocol.Archive, g *GPS) error {
		g.decodeBase(in)
		g.FixQuality = FixInvalid
		if g.HasFix {
			g.FixQuality = FixStandalone
		}
		g.Satellites = 0
		return in.Err()
	},
	func(in *protocol.Archive, g *GPS) error {
		g.decodeBase(in)
		g.FixQuality, _ = in.ReadUint8()
		g.Satellites, _ = in.ReadUint8()
		return in.Err()
	},
)

func (g *GPS) CurrentVersion() uint8 { return gpsVersions.Current() }

func (g *GPS) Label() string   { return g.SensorLabel }
func (g *GPS) Time() time.Time { return g.Timestamp }

func (g *GPS) Encode(out *protocol.Archive) error {
	out.WriteString(g.SensorLabel)
	out.WriteTimestamp(g.Timestamp)
	out.WriteBool(g.HasFix)
	out.WriteFloat64(g.Position.Lon)
	out.WriteFloat64(g.Position.Lat)
	out.WriteFloat64(g.Position.Alt)
	out.WriteUint8(g.FixQuality)
	out.WriteUint8(g.Satellites)
	return out.Err()
}

func (g *GPS) Decode(in *protocol.Archive, version uint8) error {
	return gpsVersions.Decode(in, g, version)
}

func (g *GPS) decodeBase(in *protocol.Archive) {
	g.SensorLabel, _ = in.ReadString()
	g.Timestamp, _ = in.ReadTimestamp()
	g.HasFix, _ = in.ReadBool()
	g.Position.Lon, _ = in.ReadFloat64()
	g.Position.Lat, _ = in.ReadFloat64()
	g.Position.Alt, _ = in.ReadFloat64()
}

// IsRTK reports an RTK fixed-integer solution.
func (g *GPS) IsRTK() bool {
	return g.HasFix && g.FixQuality == FixRTK
}
