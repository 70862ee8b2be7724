package geometry

import (
	"math"

	"github.com/danmuck/rawlog/internal/protocol"
)

const (
	TypePoint2D = "Point2D"
	TypePoint3D = "Point3D"
)

// Point2D is a planar point. Version 0 stored float32 coordinates.
type Point2D struct {
	X, Y float64
}

var point2DVersions = protocol.NewVersionTable[*Point2D](TypePoint2D,
	func(in *protocol.Archive, p *Point2D) error {
		x, _ := in.ReadFloat32()
		y, _ := in.ReadFloat32()
		p.X, p.Y = float64(x), float64(y)
		return in.Err()
	},
	func(in *protocol.Archive, p *Point2D) error {
		p.X, _ = in.ReadFloat64()
		p.Y, _ = in.ReadFloat64()
		return in.Err()
	},
)

func (p *Point2D) CurrentVersion() uint8 { return point2DVersions.Current() }

func (p *Point2D) Encode(out *protocol.Archive) error {
	out.WriteFloat64(p.X)
	out.WriteFloat64(p.Y)
	return out.Err()
}

func (p *Point2D) Decode(in *protocol.Archive, version uint8) error {
	return point2DVersions.Decode(in, p, version)
}

func (p Point2D) Norm() float64 {
	return math.Hypot(p.X, p.Y)
}

// Point3D is a point in space.
type Point3D struct {
	X, Y, Z float64
}

func (p *Point3D) CurrentVersion() uint8 { return 0 }

func (p *Point3D) Encode(out *protocol.Archive) error {
	out.WriteFloat64(p.X)
	out.WriteFloat64(p.Y)
	out.WriteFloat64(p.Z)
	return out.Err()
}

func (p *Point3D) Decode(in *protocol.Archive, version uint8) error {
	if version != 0 {
		return in.Fail(&protocol.UnsupportedVersionError{TypeName: TypePoint3D, Version: version})
	}
	p.X, _ = in.ReadFloat64()
	p.Y, _ = in.ReadFloat64()
	p.Z, _ = in.ReadFloat64()
	return in.Err()
}

func (p Point3D) Add(o Point3D) Point3D {
	return Point3D{X: p.X + o.X, Y: p.Y + o.Y, Z: p.Z + o.Z}
}

func (p Point3D) Sub(o Point3D) Point3D {
	return Point3D{X: p.X - o.X, Y: p.Y - o.Y, Z: p.Z - o.Z}
}

func (p Point3D) Norm() float64 {
	return math.Sqrt(p.X*p.X + p.Y*p.Y + p.Z*p.Z)
}

func (p Point3D) Distance(o Point3D) float64 {
	return p.Sub(o).Norm()
}
