package geometry

import (
	"math"

	"github.com/danmuck/rawlog/internal/protocol"
)

const (
	TypePose3D     = "Pose3D"
	TypePose3DQuat = "Pose3DQuat"
)

// Pose3D is a position plus yaw/pitch/roll in radians. The zero value is the
// identity pose. Version 0 stored float32 components.
type Pose3D struct {
	X, Y, Z          float64
	Yaw, Pitch, Roll float64
}

var pose3DVersions = protocol.NewVersionTable[*Pose3D](TypePose3D,
	func(in *protocol.Archive, p *Pose3D) error {
		var v [6]float32
		for i := range v {
			v[i], _ = in.ReadFloat32()
		}
		*p = Pose3D{
			X: float64(v[0]), Y: float64(v[1]), Z: float64(v[2]),
			Yaw: float64(v[3]), Pitch: float64(v[4]), Roll: float64(v[5]),
		}
		return in.Err()
	},
	func(in *protocol.Archive, p *Pose3D) error {
		for _, f := range p.fields() {
			*f, _ = in.ReadFloat64()
		}
		return in.Err()
	},
)

func (p *Pose3D) fields() []*float64 {
	return []*float64{&p.X, &p.Y, &p.Z, &p.Yaw, &p.Pitch, &p.Roll}
}

func (p *Pose3D) CurrentVersion() uint8 { return pose3DVersions.Current() }

func (p *Pose3D) Encode(out *protocol.Archive) error {
	for _, f := range p.fields() {
		out.WriteFloat64(*f)
	}
	return out.Err()
}

func (p *Pose3D) Decode(in *protocol.Archive, version uint8) error {
	return pose3DVersions.Decode(in, p, version)
}

func (p Pose3D) Translation() Point3D {
	return Point3D{X: p.X, Y: p.Y, Z: p.Z}
}

// Rotation returns the row-major rotation matrix Rz(yaw)·Ry(pitch)·Rx(roll).
func (p Pose3D) Rotation() [3][3]float64 {
	cy, sy := math.Cos(p.Yaw), math.Sin(p.Yaw)
	cp, sp := math.Cos(p.Pitch), math.Sin(p.Pitch)
	cr, sr := math.Cos(p.Roll), math.Sin(p.Roll)
	return [3][3]float64{
		{cy * cp, cy*sp*sr - sy*cr, cy*sp*cr + sy*sr},
		{sy * cp, sy*sp*sr + cy*cr, sy*sp*cr - cy*sr},
		{-sp, cp * sr, cp * cr},
	}
}

// ComposePoint maps a point from the pose's local frame to the global frame.
func (p Pose3D) ComposePoint(local Point3D) Point3D {
	r := p.Rotation()
	return Point3D{
		X: p.X + r[0][0]*local.X + r[0][1]*local.Y + r[0][2]*local.Z,
		Y: p.Y + r[1][0]*local.X + r[1][1]*local.Y + r[1][2]*local.Z,
		Z: p.Z + r[2][0]*local.X + r[2][1]*local.Y + r[2][2]*local.Z,
	}
}

// Quat converts the pose to its quaternion form.
func (p Pose3D) Quat() Pose3DQuat {
	cy, sy := math.Cos(p.Yaw/2), math.Sin(p.Yaw/2)
	cp, sp := math.Cos(p.Pitch/2), math.Sin(p.Pitch/2)
	cr, sr := math.Cos(p.Roll/2), math.Sin(p.Roll/2)
	return Pose3DQuat{
		X: p.X, Y: p.Y, Z: p.Z,
		QR: cr*cp*cy + sr*sp*sy,
		QX: sr*cp*cy - cr*sp*sy,
		QY: cr*sp*cy + sr*cp*sy,
		QZ: cr*cp*sy - sr*sp*cy,
	}
}

// Pose3DQuat is a position plus unit quaternion (QR is the real part).
type Pose3DQuat struct {
	X, Y, Z        float64
	QR, QX, QY, QZ float64
}

// IdentityQuat is the pose with no translation or rotation.
func IdentityQuat() Pose3DQuat {
	return Pose3DQuat{QR: 1}
}

func (q *Pose3DQuat) fields() []*float64 {
	return []*float64{&q.X, &q.Y, &q.Z, &q.QR, &q.QX, &q.QY, &q.QZ}
}

func (q *Pose3DQuat) CurrentVersion() uint8 { return 0 }

func (q *Pose3DQuat) Encode(out *protocol.Archive) error {
	for _, f := range q.fields() {
		out.WriteFloat64(*f)
	}
	return out.Err()
}

func (q *Pose3DQuat) Decode(in *protocol.Archive, version uint8) error {
	if version != 0 {
		return in.Fail(&protocol.UnsupportedVersionError{TypeName: TypePose3DQuat, Version: version})
	}
	for _, f := range q.fields() {
		*f, _ = in.ReadFloat64()
	}
	return in.Err()
}

// Normalize scales the quaternion to unit length. A zero quaternion becomes
// the identity rotation.
func (q Pose3DQuat) Normalize() Pose3DQuat {
	n := math.Sqrt(q.QR*q.QR + q.QX*q.QX + q.QY*q.QY + q.QZ*q.QZ)
	if n == 0 {
		q.QR, q.QX, q.QY, q.QZ = 1, 0, 0, 0
		return q
	}
	q.QR, q.QX, q.QY, q.QZ = q.QR/n, q.QX/n, q.QY/n, q.QZ/n
	return q
}

// Rotate applies the rotation part to v.
func (q Pose3DQuat) Rotate(v Point3D) Point3D {
	tx := 2 * (q.QY*v.Z - q.QZ*v.Y)
	ty := 2 * (q.QZ*v.X - q.QX*v.Z)
	tz := 2 * (q.QX*v.Y - q.QY*v.X)
	return Point3D{
		X: v.X + q.QR*tx + (q.QY*tz - q.QZ*ty),
		Y: v.Y + q.QR*ty + (q.QZ*tx - q.QX*tz),
		Z: v.Z + q.QR*tz + (q.QX*ty - q.QY*tx),
	}
}

// Compose returns q ⊕ u: u expressed in the frame of q.
func (q Pose3DQuat) Compose(u Pose3DQuat) Pose3DQuat {
	t := q.Rotate(Point3D{X: u.X, Y: u.Y, Z: u.Z})
	out := Pose3DQuat{
		X:  q.X + t.X,
		Y:  q.Y + t.Y,
		Z:  q.Z + t.Z,
		QR: q.QR*u.QR - q.QX*u.QX - q.QY*u.QY - q.QZ*u.QZ,
		QX: q.QR*u.QX + q.QX*u.QR + q.QY*u.QZ - q.QZ*u.QY,
		QY: q.QR*u.QY - q.QX*u.QZ + q.QY*u.QR + q.QZ*u.QX,
		QZ: q.QR*u.QZ + q.QX*u.QY - q.QY*u.QX + q.QZ*u.QR,
	}
	return out.Normalize()
}
