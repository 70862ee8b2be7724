package rawlog

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/danmuck/rawlog/internal/geometry"
	"github.com/danmuck/rawlog/internal/obs"
)

type GPSFormat string

const (
	GPSFormatKML GPSFormat = "kml"
	GPSFormatTXT GPSFormat = "txt"
)

var ErrUnknownGPSFormat = errors.New("rawlog: unknown gps export format")

const (
	kmlLineWidth      = 2
	kmlThickLineWidth = 5
	// rtkSplitDistance starts a new RTK line segment after a jump, in metres.
	rtkSplitDistance = 15.0
	earthRadius      = 6.371e6
)

var kmlColors = []string{"a000ffff", "a00000ff", "a0ff0000", "a0707070", "a0000000"}

func ParseGPSFormat(raw string) (GPSFormat, error) {
	switch f := GPSFormat(strings.ToLower(strings.TrimSpace(raw))); f {
	case "", GPSFormatKML:
		return GPSFormatKML, nil
	case GPSFormatTXT:
		return f, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownGPSFormat, raw)
	}
}

// GPSPoint is one fix collected from a rawlog.
type GPSPoint struct {
	Index int64
	GPS   *obs.GPS
}

// GPSPaths maps sensor label to fixes ordered by timestamp.
type GPSPaths map[string][]GPSPoint

func (p GPSPaths) Labels() []string {
	labels := make([]string, 0, len(p))
	for label := range p {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	return labels
}

// CollectGPS gathers every GPS observation with a fix, grouped by sensor.
func CollectGPS(r *Reader) (GPSPaths, error) {
	paths := make(GPSPaths)
	err := r.ForEach(func(index int64, o obs.Observation) error {
		g, ok := o.(*obs.GPS)
		if !ok || !g.HasFix {
			return nil
		}
		paths[g.SensorLabel] = append(paths[g.SensorLabel], GPSPoint{Index: index, GPS: g})
		return nil
	})
	if err != nil {
		return nil, err
	}
	for _, pts := range paths {
		sort.SliceStable(pts, func(i, j int) bool {
			return pts[i].GPS.Timestamp.Before(pts[j].GPS.Timestamp)
		})
	}
	return paths, nil
}

// ExportGPS writes the GPS paths of r to w in the given format.
func ExportGPS(r *Reader, w io.Writer, format GPSFormat, source string) error {
	paths, err := CollectGPS(r)
	if err != nil {
		return err
	}
	bw := bufio.NewWriter(w)
	switch format {
	case GPSFormatKML:
		writeKML(bw, paths, source)
	case GPSFormatTXT:
		writeTXT(bw, paths)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownGPSFormat, format)
	}
	return bw.Flush()
}

func writeKML(w *bufio.Writer, paths GPSPaths, source string) {
	fmt.Fprintf(w, "<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n")
	fmt.Fprintf(w, "<kml xmlns=\"http://www.opengis.net/kml/2.2\">\n")
	fmt.Fprintf(w, "  <Document>\n")
	fmt.Fprintf(w, "    <name>Paths</name>\n")
	fmt.Fprintf(w, "    <description>GPS paths from dataset '%s'</description>\n", xmlEscape(source))
	for i, color := range kmlColors {
		writeKMLStyle(w, fmt.Sprintf("gpscolor%d", i), color, kmlLineWidth)
		writeKMLStyle(w, fmt.Sprintf("gpscolor%d_thick", i), color, kmlThickLineWidth)
	}

	for i, label := range paths.Labels() {
		pts := paths[label]
		color := i % len(kmlColors)
		name := xmlEscape(label)

		fmt.Fprintf(w, "    <Placemark>\n")
		fmt.Fprintf(w, "      <name>%s all points</name>\n", name)
		fmt.Fprintf(w, "      <description>%s: All received points (for all quality levels)</description>\n", name)
		fmt.Fprintf(w, "      <styleUrl>#gpscolor%d</styleUrl>\n", color)
		startLine(w)
		hasRTK := false
		for _, p := range pts {
			writeCoord(w, p.GPS.Position)
			hasRTK = hasRTK || p.GPS.IsRTK()
		}
		endLine(w)
		fmt.Fprintf(w, "    </Placemark>\n")

		if !hasRTK {
			continue
		}
		fmt.Fprintf(w, "    <Placemark>\n")
		fmt.Fprintf(w, "      <name>%s RTK only</name>\n", name)
		fmt.Fprintf(w, "      <description>%s: RTK fixed points only</description>\n", name)
		fmt.Fprintf(w, "      <styleUrl>#gpscolor%d_thick</styleUrl>\n", color)
		fmt.Fprintf(w, "      <MultiGeometry>\n")
		startLine(w)
		var last *geometry.Geodetic
		for _, p := range pts {
			if !p.GPS.IsRTK() {
				continue
			}
			pos := p.GPS.Position
			if last != nil && roughDistance(*last, pos) > rtkSplitDistance {
				endLine(w)
				startLine(w)
			}
			writeCoord(w, pos)
			last = &pos
		}
		endLine(w)
		fmt.Fprintf(w, "      </MultiGeometry>\n")
		fmt.Fprintf(w, "    </Placemark>\n")
	}
	fmt.Fprintf(w, "  </Document>\n")
	fmt.Fprintf(w, "</kml>\n")
}

func writeKMLStyle(w *bufio.Writer, id, color string, width int) {
	fmt.Fprintf(w, "    <Style id=\"%s\">\n", id)
	fmt.Fprintf(w, "      <LineStyle>\n")
	fmt.Fprintf(w, "        <color>%s</color>\n", color)
	fmt.Fprintf(w, "        <width>%d</width>\n", width)
	fmt.Fprintf(w, "      </LineStyle>\n")
	fmt.Fprintf(w, "    </Style>\n")
}

func startLine(w *bufio.Writer) {
	fmt.Fprintf(w, "      <LineString>\n")
	fmt.Fprintf(w, "        <altitudeMode>absolute</altitudeMode>\n")
	fmt.Fprintf(w, "        <coordinates>\n")
}

func endLine(w *bufio.Writer) {
	fmt.Fprintf(w, "        </coordinates>\n")
	fmt.Fprintf(w, "      </LineString>\n")
}

func writeCoord(w *bufio.Writer, g geometry.Geodetic) {
	fmt.Fprintf(w, "          %.15f,%.15f,%.3f\n", g.Lon, g.Lat, g.Alt)
}

// roughDistance is a fast spherical approximation in metres.
func roughDistance(a, b geometry.Geodetic) float64 {
	return earthRadius * math.Hypot(a.Lon-b.Lon, a.Lat-b.Lat) * math.Pi / 180
}

// writeTXT writes one row per fix. Local coordinates are east-north-up
// relative to the first fix of each sensor.
func writeTXT(w *bufio.Writer, paths GPSPaths) {
	fmt.Fprintf(w, "%% %-16s %14s %23s %23s %12s %4s %5s %16s %16s %16s %8s %21s %21s %21s\n",
		"label", "time", "lat", "lon", "alt", "fix", "sats",
		"local_x", "local_y", "local_z", "index", "geocen_x", "geocen_y", "geocen_z")
	for _, label := range paths.Labels() {
		pts := paths[label]
		ref := pts[0].GPS.Position
		for _, p := range pts {
			g := p.GPS
			local := g.Position.ENU(ref)
			geo := g.Position.Geocentric()
			fmt.Fprintf(w, "%-18s %14.4f %23.16f %23.16f %12.6f %4d %5d %16.6f %16.6f %16.6f %8d %21.6f %21.6f %21.6f\n",
				txtLabel(label), unixSeconds(g.Timestamp),
				g.Position.Lat*math.Pi/180, g.Position.Lon*math.Pi/180, g.Position.Alt,
				g.FixQuality, g.Satellites,
				local.X, local.Y, local.Z, p.Index,
				geo.X, geo.Y, geo.Z)
		}
	}
}

func txtLabel(label string) string {
	if label == "" {
		return "-"
	}
	return strings.Map(func(r rune) rune {
		if r == ' ' || r == '\t' {
			return '_'
		}
		return r
	}, label)
}

func unixSeconds(t time.Time) float64 {
	if t.IsZero() {
		return 0
	}
	return float64(t.UnixNano()) / 1e9
}

func xmlEscape(s string) string {
	r := strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", "'", "&apos;", "\"", "&quot;")
	return r.Replace(s)
}
