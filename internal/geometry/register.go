package geometry

import "github.com/danmuck/rawlog/internal/protocol"

// Register adds the geometry types to r.
func Register(r *protocol.Registry) error {
	entries := []struct {
		name    string
		factory protocol.Factory
		version uint8
	}{
		{TypePoint2D, func() protocol.Serializable { return &Point2D{} }, point2DVersions.Current()},
		{TypePoint3D, func() protocol.Serializable { return &Point3D{} }, 0},
		{TypePose3D, func() protocol.Serializable { return &Pose3D{} }, pose3DVersions.Current()},
		{TypePose3DQuat, func() protocol.Serializable { p := IdentityQuat(); return &p }, 0},
		{TypePose3DQuatPDFGaussian, func() protocol.Serializable { return NewPose3DQuatPDFGaussian() }, pdfVersions.Current()},
	}
	for _, e := range entries {
		if err := r.Register(e.name, e.factory, e.version); err != nil {
			return err
		}
	}
	return nil
}
