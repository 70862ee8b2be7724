package catalog

import (
	"testing"

	"github.com/danmuck/rawlog/internal/geometry"
	"github.com/danmuck/rawlog/internal/obs"
	"github.com/danmuck/rawlog/internal/protocol"
	"github.com/danmuck/rawlog/internal/testutil/testlog"
	"github.com/stretchr/testify/require"
)

func TestRegisterAllIsIdempotent(t *testing.T) {
	testlog.Start(t)

	r, err := New()
	require.NoError(t, err)
	n := r.Len()
	require.NoError(t, RegisterAll(r))
	require.Equal(t, n, r.Len())

	names := make([]string, 0, n)
	for _, desc := range r.List() {
		names = append(names, desc.Name)
	}
	require.Equal(t, []string{
		"BeaconRanges", "GPS", "Point2D", "Point3D", "Pose3D", "Pose3DQuat",
		"Pose3DQuatPDFGaussian", "SensoryFrame", "VectorDouble", "VectorFloat",
	}, names)
}

func TestCurrentVersions(t *testing.T) {
	testlog.Start(t)

	r, err := New()
	require.NoError(t, err)
	for name, want := range map[string]uint8{
		geometry.TypePoint2D:               1,
		geometry.TypePose3D:                1,
		geometry.TypePose3DQuatPDFGaussian: 1,
		obs.TypeBeaconRanges:               3,
		obs.TypeGPS:                        1,
		obs.TypeSensoryFrame:               0,
	} {
		got, err := r.CurrentVersionOf(name)
		require.NoError(t, err, name)
		require.Equal(t, want, got, name)
	}
}

func TestRegisterDefault(t *testing.T) {
	testlog.Start(t)

	require.NoError(t, RegisterDefault())
	require.NoError(t, RegisterDefault())
	_, err := protocol.Default.Create(obs.TypeGPS)
	require.NoError(t, err)
}

func TestModuleOf(t *testing.T) {
	testlog.Start(t)

	require.Equal(t, "geometry", ModuleOf(geometry.TypePose3D))
	require.Equal(t, "obs", ModuleOf(obs.TypeSensoryFrame))
	require.Equal(t, "numeric", ModuleOf("VectorFloat"))
	require.Empty(t, ModuleOf("Nope"))
	require.Len(t, Modules(), 3)
}
