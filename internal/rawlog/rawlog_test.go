package rawlog

import (
	"bytes"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/danmuck/rawlog/internal/catalog"
	"github.com/danmuck/rawlog/internal/geometry"
	"github.com/danmuck/rawlog/internal/obs"
	"github.com/danmuck/rawlog/internal/protocol"
	"github.com/danmuck/rawlog/internal/testutil/testlog"
	"github.com/danmuck/rawlog/internal/transport"
	"github.com/stretchr/testify/require"
)

func testRegistry(t *testing.T) *protocol.Registry {
	t.Helper()
	r, err := catalog.New()
	require.NoError(t, err)
	return r
}

func fix(label string, sec int64, lat, lon float64, quality uint8) *obs.GPS {
	return &obs.GPS{
		SensorLabel: label,
		Timestamp:   time.Unix(sec, 0).UTC(),
		HasFix:      true,
		Position:    geometry.Geodetic{Lat: lat, Lon: lon, Alt: 10},
		FixQuality:  quality,
		Satellites:  8,
	}
}

// legacyGPS is a version 0 GPS envelope without fix quality or satellites.
func legacyGPS(t *testing.T, label string, sec int64) protocol.Envelope {
	t.Helper()
	buf := protocol.NewBuffer(nil)
	a := protocol.NewArchive(buf)
	a.WriteString(label)
	a.WriteTimestamp(time.Unix(sec, 0).UTC())
	a.WriteBool(true)
	a.WriteFloat64(-4.40)
	a.WriteFloat64(36.70)
	a.WriteFloat64(5)
	require.NoError(t, a.Err())
	return protocol.Envelope{TypeName: obs.TypeGPS, Version: 0, Payload: buf.Bytes()}
}

// buildLog writes:
//
//	0 GPS A (t=30)   1 frame{GPS B, null, beacons}   2 null
//	3 unknown type   4 corrupt GPS payload           5 GPS v0 A (t=10)
//	6 GPS A RTK (t=20)
func buildLog(t *testing.T, reg *protocol.Registry) []byte {
	t.Helper()
	buf := protocol.NewBuffer(nil)
	w := NewWriter(buf, Options{Registry: reg})
	require.NoError(t, w.Write(fix("A", 30, 36.7002, -4.4002, obs.FixStandalone)))
	require.NoError(t, w.Write(&obs.SensoryFrame{Observations: []protocol.Serializable{
		fix("B", 15, 40.1, -3.5, obs.FixDGPS),
		nil,
		&obs.BeaconRanges{SensorLabel: "BEACON", Measurements: []obs.BeaconMeasurement{{Distance: 3, BeaconID: 1}}},
	}}))
	require.NoError(t, w.WriteNull())
	require.NoError(t, w.WriteEnvelope(protocol.Envelope{TypeName: "LaserScan", Version: 2, Payload: []byte{1, 2, 3}}))
	require.NoError(t, w.WriteEnvelope(protocol.Envelope{TypeName: obs.TypeGPS, Version: 1, Payload: []byte{9}}))
	require.NoError(t, w.WriteEnvelope(legacyGPS(t, "A", 10)))
	require.NoError(t, w.Write(fix("A", 20, 36.7001, -4.4001, obs.FixRTK)))
	require.Equal(t, int64(7), w.Count())
	return append([]byte(nil), buf.Bytes()...)
}

func skipAll(reg *protocol.Registry) Options {
	return Options{Registry: reg, OnUnknown: PolicySkip, OnCorrupt: PolicySkip}
}

func TestReaderAbortPolicyStopsAtUnknownType(t *testing.T) {
	testlog.Start(t)

	reg := testRegistry(t)
	r := NewReader(protocol.NewBuffer(buildLog(t, reg)), Options{Registry: reg})
	var err error
	n := 0
	for err == nil {
		_, err = r.Next()
		n++
	}
	require.ErrorIs(t, err, protocol.ErrUnknownType)
	require.Equal(t, 4, n)
	require.Empty(t, r.Skipped())
}

func TestReaderSkipUnknownButAbortOnCorrupt(t *testing.T) {
	testlog.Start(t)

	reg := testRegistry(t)
	r := NewReader(protocol.NewBuffer(buildLog(t, reg)), Options{Registry: reg, OnUnknown: PolicySkip})
	var err error
	for err == nil {
		_, err = r.Next()
	}
	require.ErrorIs(t, err, protocol.ErrPayloadLength)
	require.Len(t, r.Skipped(), 1)
	require.Equal(t, "LaserScan", r.Skipped()[0].Record.TypeName)
}

func TestScanSummarisesRecords(t *testing.T) {
	testlog.Start(t)

	reg := testRegistry(t)
	r := NewReader(protocol.NewBuffer(buildLog(t, reg)), skipAll(reg))
	sum, err := Scan(r)
	require.NoError(t, err)
	require.Equal(t, int64(7), sum.Records)
	require.Equal(t, int64(1), sum.Nulls)
	require.Equal(t, int64(2), sum.Skipped)

	gps := sum.Types[obs.TypeGPS]
	require.NotNil(t, gps)
	require.Equal(t, int64(4), gps.Count)
	require.Equal(t, map[uint8]int64{0: 1, 1: 3}, gps.Versions)
	require.Equal(t, int64(1), sum.Types["LaserScan"].Count)

	names := []string{}
	for _, st := range sum.SortedTypes() {
		names = append(names, st.Name)
	}
	require.Equal(t, []string{"GPS", "LaserScan", "SensoryFrame"}, names)
}

func TestForEachFlattensFrames(t *testing.T) {
	testlog.Start(t)

	reg := testRegistry(t)
	r := NewReader(protocol.NewBuffer(buildLog(t, reg)), skipAll(reg))
	var labels []string
	var indexes []int64
	require.NoError(t, r.ForEach(func(index int64, o obs.Observation) error {
		labels = append(labels, o.Label())
		indexes = append(indexes, index)
		return nil
	}))
	require.Equal(t, []string{"A", "B", "BEACON", "A", "A"}, labels)
	require.Equal(t, []int64{0, 1, 1, 5, 6}, indexes)
}

func TestFilterKeepsSelectedTypesAndUpgrades(t *testing.T) {
	testlog.Start(t)

	reg := testRegistry(t)
	in := NewReader(protocol.NewBuffer(buildLog(t, reg)), skipAll(reg))
	out := protocol.NewBuffer(nil)
	w := NewWriter(out, Options{Registry: reg})
	stats, err := Filter(in, w, Selection{Types: []string{obs.TypeGPS}, To: -1, DropNulls: true})
	require.NoError(t, err)
	require.Equal(t, FilterStats{Read: 5, Written: 4, Dropped: 1}, stats)

	r := NewReader(out, Options{Registry: reg})
	var versions []uint8
	var types []string
	for {
		rec, err := r.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		versions = append(versions, rec.Version)
		types = append(types, rec.TypeName)
		if frame, ok := rec.Object.(*obs.SensoryFrame); ok {
			require.Len(t, frame.Observations, 1)
			require.IsType(t, &obs.GPS{}, frame.Observations[0])
		}
	}
	require.Equal(t, []string{"GPS", "SensoryFrame", "GPS", "GPS"}, types)
	require.Equal(t, []uint8{1, 0, 1, 1}, versions)
}

func TestFilterIndexRange(t *testing.T) {
	testlog.Start(t)

	reg := testRegistry(t)
	in := NewReader(protocol.NewBuffer(buildLog(t, reg)), skipAll(reg))
	out := protocol.NewBuffer(nil)
	stats, err := Filter(in, NewWriter(out, Options{Registry: reg}), Selection{From: 1, To: 2})
	require.NoError(t, err)
	require.Equal(t, int64(2), stats.Written)

	sum, err := Scan(NewReader(out, Options{Registry: reg}))
	require.NoError(t, err)
	require.Equal(t, int64(2), sum.Records)
	require.Equal(t, int64(1), sum.Nulls)
	require.Equal(t, int64(1), sum.Types[obs.TypeSensoryFrame].Count)
}

func TestExportGPSKML(t *testing.T) {
	testlog.Start(t)

	reg := testRegistry(t)
	r := NewReader(protocol.NewBuffer(buildLog(t, reg)), skipAll(reg))
	var out bytes.Buffer
	require.NoError(t, ExportGPS(r, &out, GPSFormatKML, "test <log>"))
	kml := out.String()

	require.True(t, strings.HasPrefix(kml, "<?xml"))
	require.Contains(t, kml, "test &lt;log&gt;")
	require.Contains(t, kml, "<name>A all points</name>")
	require.Contains(t, kml, "<name>B all points</name>")
	require.Contains(t, kml, "<name>A RTK only</name>")
	require.NotContains(t, kml, "<name>B RTK only</name>")
	require.Equal(t, 3, strings.Count(kml, "<Placemark>"))

	// Sensor A is sorted by timestamp: the legacy fix (t=10) comes first.
	first := strings.Index(kml, "-4.400000000000000,36.700000000000003")
	second := strings.Index(kml, "-4.400100000000000")
	require.True(t, first >= 0 && second > first, "unexpected point order:\n%s", kml)
}

func TestExportGPSTXT(t *testing.T) {
	testlog.Start(t)

	reg := testRegistry(t)
	r := NewReader(protocol.NewBuffer(buildLog(t, reg)), skipAll(reg))
	var out bytes.Buffer
	require.NoError(t, ExportGPS(r, &out, GPSFormatTXT, "x"))
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 5)
	require.True(t, strings.HasPrefix(lines[0], "%"))
	require.True(t, strings.HasPrefix(lines[1], "A "))
	require.True(t, strings.HasPrefix(lines[4], "B "))
}

func TestParseHelpers(t *testing.T) {
	testlog.Start(t)

	p, err := ParsePolicy("SKIP")
	require.NoError(t, err)
	require.Equal(t, PolicySkip, p)
	_, err = ParsePolicy("retry")
	require.ErrorIs(t, err, ErrUnknownPolicy)

	f, err := ParseGPSFormat("")
	require.NoError(t, err)
	require.Equal(t, GPSFormatKML, f)
	_, err = ParseGPSFormat("gpx")
	require.ErrorIs(t, err, ErrUnknownGPSFormat)
}

func TestCreateAndOpenCompressedFile(t *testing.T) {
	testlog.Start(t)

	reg := testRegistry(t)
	path := filepath.Join(t.TempDir(), "run.rawlog.gz")
	w, err := Create(path, Options{Registry: reg})
	require.NoError(t, err)
	require.NoError(t, w.Write(fix("A", 1, 1, 2, obs.FixRTK)))
	require.NoError(t, w.Write(&geometry.Pose3D{X: 1}))
	require.NoError(t, w.Close())

	r, err := Open(path, Options{Registry: reg})
	require.NoError(t, err)
	defer r.Close()
	require.Equal(t, transport.CompressionGzip, r.Compression())
	require.Equal(t, path, r.Name())

	sum, err := Scan(r)
	require.NoError(t, err)
	require.Equal(t, int64(2), sum.Records)
}

func TestNextEnvelopeIgnoresPolicies(t *testing.T) {
	testlog.Start(t)

	reg := testRegistry(t)
	r := NewReader(protocol.NewBuffer(buildLog(t, reg)), Options{Registry: reg})
	var names []string
	for {
		env, err := r.NextEnvelope()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		names = append(names, env.TypeName)
	}
	require.Equal(t, []string{obs.TypeGPS, obs.TypeSensoryFrame, "", "LaserScan", obs.TypeGPS, obs.TypeGPS, obs.TypeGPS}, names)
	require.Empty(t, r.Skipped())
}
