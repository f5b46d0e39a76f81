package sim

import (
	"hash/fnv"
	"math"
)

type shapePoint struct {
	Lat float64
	Lon float64
}

const (
	earthRadiusM = 6371000.0
	baseLat      = 42.3554
	baseLon      = -71.0605
	loopPoints   = 24
	loopRadiusM  = 1500.0
)

// loopShape returns a closed polygon around a centre derived from routeID,
// so every route gets a stable, distinct path.
func loopShape(routeID string) []shapePoint {
	h := fnv.New32a()
	h.Write([]byte(routeID))
	sum := h.Sum32()
	// spread centres over roughly +-5km
	cLat := baseLat + (float64(sum%1000)/1000-0.5)*0.09
	cLon := baseLon + (float64((sum/1000)%1000)/1000-0.5)*0.12

	dLat := loopRadiusM / earthRadiusM * 180 / math.Pi
	dLon := dLat / math.Cos(cLat*math.Pi/180)
	pts := make([]shapePoint, 0, loopPoints+1)
	for i := 0; i <= loopPoints; i++ {
		a := 2 * math.Pi * float64(i%loopPoints) / loopPoints
		pts = append(pts, shapePoint{Lat: cLat + dLat*math.Sin(a), Lon: cLon + dLon*math.Cos(a)})
	}
	return pts
}

// Haversine distance in meters
func haversine(lat1, lon1, lat2, lon2 float64) float64 {
	toRad := func(d float64) float64 { return d * math.Pi / 180 }
	dLat := toRad(lat2 - lat1)
	dLon := toRad(lon2 - lon1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusM * c
}

func cumDistances(pts []shapePoint) []float64 {
	n := len(pts)
	if n == 0 {
		return nil
	}
	cum := make([]float64, n)
	sum := 0.0
	for i := 1; i < n; i++ {
		sum += haversine(pts[i-1].Lat, pts[i-1].Lon, pts[i].Lat, pts[i].Lon)
		cum[i] = sum
	}
	return cum
}

// interpolateShape returns the position and bearing at dist meters along
// the shape, clamped to its ends.
func interpolateShape(pts []shapePoint, cum []float64, dist float64) (lat, lon, bearing float64) {
	n := len(pts)
	if n == 0 {
		return 0, 0, 0
	}
	if n == 1 || cum[n-1] == 0 {
		return pts[0].Lat, pts[0].Lon, 0
	}
	if dist <= 0 {
		return pts[0].Lat, pts[0].Lon, bearingDeg(pts[0], pts[1])
	}
	if dist >= cum[n-1] {
		return pts[n-1].Lat, pts[n-1].Lon, bearingDeg(pts[n-2], pts[n-1])
	}
	i := 1
	for i < n && cum[i] < dist {
		i++
	}
	p0, p1 := pts[i-1], pts[i]
	d0, d1 := cum[i-1], cum[i]
	if d1 == d0 {
		return p0.Lat, p0.Lon, bearingDeg(p0, p1)
	}
	frac := (dist - d0) / (d1 - d0)
	return p0.Lat + (p1.Lat-p0.Lat)*frac, p0.Lon + (p1.Lon-p0.Lon)*frac, bearingDeg(p0, p1)
}

func bearingDeg(a, b shapePoint) float64 {
	y := math.Sin((b.Lon-a.Lon)*math.Pi/180.0) * math.Cos(b.Lat*math.Pi/180.0)
	x := math.Cos(a.Lat*math.Pi/180.0)*math.Sin(b.Lat*math.Pi/180.0) - math.Sin(a.Lat*math.Pi/180.0)*math.Cos(b.Lat*math.Pi/180.0)*math.Cos((b.Lon-a.Lon)*math.Pi/180.0)
	brng := math.Atan2(y, x) * 180.0 / math.Pi
	if brng < 0 {
		brng += 360
	}
	return brng
}
