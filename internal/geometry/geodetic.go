package geometry

import "math"

// WGS84 ellipsoid.
const (
	wgs84A  = 6378137.0
	wgs84F  = 1 / 298.257223563
	wgs84E2 = wgs84F * (2 - wgs84F)
)

// Geodetic is a WGS84 coordinate: degrees and metres above the ellipsoid.
type Geodetic struct {
	Lat, Lon, Alt float64
}

func (g Geodetic) IsZero() bool {
	return g.Lat == 0 && g.Lon == 0 && g.Alt == 0
}

// Geocentric returns the Earth-centred, Earth-fixed coordinates of g.
func (g Geodetic) Geocentric() Point3D {
	lat, lon := g.Lat*math.Pi/180, g.Lon*math.Pi/180
	sinLat := math.Sin(lat)
	n := wgs84A / math.Sqrt(1-wgs84E2*sinLat*sinLat)
	return Point3D{
		X: (n + g.Alt) * math.Cos(lat) * math.Cos(lon),
		Y: (n + g.Alt) * math.Cos(lat) * math.Sin(lon),
		Z: (n*(1-wgs84E2) + g.Alt) * sinLat,
	}
}

// ENU returns g in the local east-north-up frame anchored at ref.
func (g Geodetic) ENU(ref Geodetic) Point3D {
	d := g.Geocentric().Sub(ref.Geocentric())
	lat, lon := ref.Lat*math.Pi/180, ref.Lon*math.Pi/180
	sLat, cLat := math.Sin(lat), math.Cos(lat)
	sLon, cLon := math.Sin(lon), math.Cos(lon)
	return Point3D{
		X: -sLon*d.X + cLon*d.Y,
		Y: -sLat*cLon*d.X - sLat*sLon*d.Y + cLat*d.Z,
		Z: cLat*cLon*d.X + cLat*sLon*d.Y + sLat*d.Z,
	}
}
