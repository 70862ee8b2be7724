package main

import (
	"bytes"
	"context"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/danmuck/rawlog/internal/catalog"
	"github.com/danmuck/rawlog/internal/geometry"
	"github.com/danmuck/rawlog/internal/obs"
	"github.com/danmuck/rawlog/internal/rawlog"
	"github.com/danmuck/rawlog/internal/recorder"
	"github.com/danmuck/rawlog/internal/testutil/testlog"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeSampleLog(t *testing.T) string {
	t.Helper()
	reg, err := catalog.New()
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "sample.rawlog")
	w, err := rawlog.Create(path, rawlog.Options{Registry: reg})
	require.NoError(t, err)
	require.NoError(t, w.Write(&obs.GPS{
		SensorLabel: "GPS1",
		Timestamp:   time.Unix(1700000000, 0).UTC(),
		HasFix:      true,
		Position:    geometry.Geodetic{Lat: 36.7, Lon: -4.4, Alt: 20},
		FixQuality:  obs.FixRTK,
		Satellites:  9,
	}))
	require.NoError(t, w.Write(&geometry.Point2D{X: 1, Y: 2}))
	require.NoError(t, w.WriteNull())
	require.NoError(t, w.Close())
	return path
}

func TestTypesCommand(t *testing.T) {
	testlog.Start(t)
	out, err := run(t, "types")
	require.NoError(t, err)
	require.Contains(t, out, geometry.TypePose3DQuatPDFGaussian)
	require.Contains(t, out, obs.TypeBeaconRanges)
	require.Contains(t, out, "geometry")
}

func TestInfoAndList(t *testing.T) {
	testlog.Start(t)
	path := writeSampleLog(t)

	out, err := run(t, "info", path)
	require.NoError(t, err)
	require.Contains(t, out, "records:     3")
	require.Contains(t, out, "nulls:       1")
	require.Contains(t, out, obs.TypeGPS)
	require.Contains(t, out, "v1:1")

	out, err = run(t, "list", path)
	require.NoError(t, err)
	require.Contains(t, out, geometry.TypePoint2D)
	require.Contains(t, out, "null")
}

func TestConvertAndFilter(t *testing.T) {
	testlog.Start(t)
	path := writeSampleLog(t)
	dir := t.TempDir()

	converted := filepath.Join(dir, "converted.rawlog.sz")
	out, err := run(t, "convert", path, converted)
	require.NoError(t, err)
	require.Contains(t, out, "wrote 3")

	out, err = run(t, "info", converted)
	require.NoError(t, err)
	require.Contains(t, out, "compression: snappy")
	require.Contains(t, out, "records:     3")

	filtered := filepath.Join(dir, "points.rawlog")
	out, err = run(t, "filter", "--type", geometry.TypePoint2D, "--drop-nulls", "--compression", "gzip", path, filtered)
	require.NoError(t, err)
	require.Contains(t, out, "wrote 1")

	out, err = run(t, "info", filtered)
	require.NoError(t, err)
	require.Contains(t, out, "compression: gzip")
	require.Contains(t, out, "records:     1")

	_, err = run(t, "convert", "--compression", "zip", path, filepath.Join(dir, "bad.rawlog"))
	require.Error(t, err)
}

func TestExportGPS(t *testing.T) {
	testlog.Start(t)
	path := writeSampleLog(t)
	kml := filepath.Join(t.TempDir(), "paths.kml")

	_, err := run(t, "export-gps", path, kml)
	require.NoError(t, err)
	data, err := os.ReadFile(kml)
	require.NoError(t, err)
	require.Contains(t, string(data), "<kml")
	require.Contains(t, string(data), "GPS1")

	out, err := run(t, "export-gps", "--format", "txt", path, "-")
	require.NoError(t, err)
	require.NotEmpty(t, out)
}

func TestConfigCommands(t *testing.T) {
	testlog.Start(t)
	path := filepath.Join(t.TempDir(), "rawlog.toml")

	_, err := run(t, "config", "init", path)
	require.NoError(t, err)
	_, err = run(t, "config", "init", path)
	require.Error(t, err)
	_, err = run(t, "config", "init", "--force", path)
	require.NoError(t, err)

	out, err := run(t, "config", "validate", path)
	require.NoError(t, err)
	require.Contains(t, out, "validated")

	_, err = run(t, "config", "validate", "ex.config.toml")
	require.NoError(t, err)
}

func TestGlobalFlags(t *testing.T) {
	testlog.Start(t)
	_, err := run(t, "--config", "ex.config.toml", "types")
	require.NoError(t, err)

	_, err = run(t, "--log-level", "chatty", "types")
	require.Error(t, err)

	_, err = run(t, "--config", filepath.Join(t.TempDir(), "missing.toml"), "types")
	require.Error(t, err)
}

func TestSendToRecorder(t *testing.T) {
	testlog.Start(t)
	path := writeSampleLog(t)

	svc := recorder.New(recorder.Config{OutputDir: t.TempDir()})
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx, ln) }()
	defer func() {
		cancel()
		<-done
	}()

	out, err := run(t, "send", path, ln.Addr().String())
	require.NoError(t, err)
	require.Contains(t, out, "sent 3 records")

	require.Eventually(t, func() bool { return len(svc.Sessions()) == 1 }, 5*time.Second, 10*time.Millisecond)
	sess := svc.Sessions()[0]
	require.Equal(t, recorder.OutcomeOK, sess.Outcome)
	require.Equal(t, int64(3), sess.Records)

	out, err = run(t, "info", sess.Path)
	require.NoError(t, err)
	require.Contains(t, out, "records:     3")
}
