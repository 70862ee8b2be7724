package geometry

import (
	"github.com/danmuck/rawlog/internal/protocol"
)

const TypePose3DQuatPDFGaussian = "Pose3DQuatPDFGaussian"

// Cov7 is a symmetric 7x7 covariance over (x, y, z, qr, qx, qy, qz).
type Cov7 [7][7]float64

// Pose3DQuatPDFGaussian is a Gaussian distribution over quaternion poses.
//
// Version 0 stored all 49 covariance entries row-major; version 1 stores the
// 28 entries of the upper triangle.
type Pose3DQuatPDFGaussian struct {
	Mean Pose3DQuat
	Cov  Cov7
}

// NewPose3DQuatPDFGaussian returns a distribution centred on the identity with
// zero covariance.
func NewPose3DQuatPDFGaussian() *Pose3DQuatPDFGaussian {
	return &Pose3DQuatPDFGaussian{Mean: IdentityQuat()}
}

var pdfVersions = protocol.NewVersionTable[*Pose3DQuatPDFGaussian](TypePose3DQuatPDFGaussian,
	func(in *protocol.Archive, p *Pose3DQuatPDFGaussian) error {
		in.ReadObjectInto(&p.Mean)
		for i := 0; i < 7; i++ {
			for j := 0; j < 7; j++ {
				p.Cov[i][j], _ = in.ReadFloat64()
			}
		}
		return in.Err()
	},
	func(in *protocol.Archive, p *Pose3DQuatPDFGaussian) error {
		in.ReadObjectInto(&p.Mean)
		for i := 0; i < 7; i++ {
			for j := i; j < 7; j++ {
				v, _ := in.ReadFloat64()
				p.Cov[i][j] = v
				p.Cov[j][i] = v
			}
		}
		return in.Err()
	},
)

func (p *Pose3DQuatPDFGaussian) CurrentVersion() uint8 { return pdfVersions.Current() }

func (p *Pose3DQuatPDFGaussian) Encode(out *protocol.Archive) error {
	out.WriteObject(&p.Mean)
	for i := 0; i < 7; i++ {
		for j := i; j < 7; j++ {
			out.WriteFloat64(p.Cov[i][j])
		}
	}
	return out.Err()
}

func (p *Pose3DQuatPDFGaussian) Decode(in *protocol.Archive, version uint8) error {
	return pdfVersions.Decode(in, p, version)
}

// IsSymmetric reports whether the covariance equals its transpose.
func (c Cov7) IsSymmetric() bool {
	for i := 0; i < 7; i++ {
		for j := i + 1; j < 7; j++ {
			if c[i][j] != c[j][i] {
				return false
			}
		}
	}
	return true
}

// Diagonal returns the per-component variances.
func (c Cov7) Diagonal() [7]float64 {
	var d [7]float64
	for i := range d {
		d[i] = c[i][i]
	}
	return d
}
