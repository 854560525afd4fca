// Package territory answers whether a coordinate falls inside the utility
// service area the company sells into. Service-area polygons come from an
// ESRI shapefile and are held in memory as go-geom polygons.
package territory

import (
	"github.com/jonas-p/go-shp"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/xy"
	"go.uber.org/zap"
)

// Territory is an immutable set of service-area polygons. Safe for
// concurrent use once loaded.
type Territory struct {
	polygons []*geom.Polygon
}

// Areas returns the number of loaded polygons.
func (t *Territory) Areas() int {
	return len(t.polygons)
}

// Contains reports whether the coordinate falls inside any service-area
// polygon. A point inside a hole is outside the territory.
func (t *Territory) Contains(lat, lng float64) bool {
	p := geom.Coord{lng, lat}
	for _, poly := range t.polygons {
		if polygonContains(poly, p) {
			return true
		}
	}
	return false
}

func polygonContains(poly *geom.Polygon, p geom.Coord) bool {
	if poly.NumLinearRings() == 0 {
		return false
	}
	if !xy.IsPointInRing(poly.Layout(), p, poly.LinearRing(0).FlatCoords()) {
		return false
	}
	for i := 1; i < poly.NumLinearRings(); i++ {
		if xy.IsPointInRing(poly.Layout(), p, poly.LinearRing(i).FlatCoords()) {
			return false
		}
	}
	return true
}

// assemblePolygons converts one shapefile Polygon record into go-geom
// polygons. Shapefile parts carry winding instead of nesting: clockwise
// rings are exteriors, counter-clockwise rings are holes, and each hole
// belongs to whichever exterior encloses it.
func assemblePolygons(p *shp.Polygon) []*geom.Polygon {
	type ring struct {
		flat []float64
		hole bool
	}

	rings := make([]ring, 0, p.NumParts)
	for i := int32(0); i < p.NumParts; i++ {
		start := p.Parts[i]
		end := int32(len(p.Points))
		if i+1 < p.NumParts {
			end = p.Parts[i+1]
		}
		// A closed ring needs at least four points.
		if end-start < 4 {
			continue
		}
		flat := make([]float64, 0, (end-start)*2)
		for j := start; j < end; j++ {
			flat = append(flat, p.Points[j].X, p.Points[j].Y)
		}
		rings = append(rings, ring{flat: flat, hole: xy.IsRingCounterClockwise(geom.XY, flat)})
	}

	// Some shapefiles ignore the winding convention. If no ring is
	// clockwise, treat them all as exteriors.
	hasExterior := false
	for _, r := range rings {
		if !r.hole {
			hasExterior = true
			break
		}
	}
	if !hasExterior {
		for i := range rings {
			rings[i].hole = false
		}
	}

	var polys []*geom.Polygon
	for _, r := range rings {
		if r.hole {
			continue
		}
		poly := geom.NewPolygon(geom.XY).SetSRID(4326)
		if err := poly.Push(geom.NewLinearRingFlat(geom.XY, r.flat)); err != nil {
			zap.L().Debug("territory: skipping malformed exterior ring", zap.Error(err))
			continue
		}
		polys = append(polys, poly)
	}

	for _, r := range rings {
		if !r.hole {
			continue
		}
		pt := geom.Coord{r.flat[0], r.flat[1]}
		for _, poly := range polys {
			if xy.IsPointInRing(geom.XY, pt, poly.LinearRing(0).FlatCoords()) {
				if err := poly.Push(geom.NewLinearRingFlat(geom.XY, r.flat)); err != nil {
					zap.L().Debug("territory: skipping malformed hole ring", zap.Error(err))
				}
				break
			}
		}
	}
	return polys
}
