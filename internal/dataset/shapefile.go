package dataset

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// readShapefile converts a polygon or point shapefile and its dBASE
// attributes to a feature collection.
func readShapefile(p string) (*geojson.FeatureCollection, error) {
	// The reader yields features without attributes when the table is missing.
	dbf := strings.TrimSuffix(p, filepath.Ext(p)) + ".dbf"
	if _, err := os.Stat(dbf); err != nil {
		return nil, eris.Wrapf(err, "dataset: shapefile attributes %s", dbf)
	}

	reader, err := shp.Open(p)
	if err != nil {
		return nil, eris.Wrapf(err, "dataset: open shapefile %s", p)
	}
	defer func() { _ = reader.Close() }()

	fields := reader.Fields()
	names := make([]string, len(fields))
	numeric := make([]bool, len(fields))
	for i, f := range fields {
		names[i] = strings.TrimRight(f.String(), "\x00")
		numeric[i] = f.Fieldtype == 'N' || f.Fieldtype == 'F'
	}

	fc := geojson.NewFeatureCollection()
	var skipped int
	for reader.Next() {
		_, shape := reader.Shape()
		geom := shapeGeometry(shape)
		if geom == nil {
			skipped++
			continue
		}
		f := geojson.NewFeature(geom)
		for i, name := range names {
			val := strings.TrimSpace(strings.TrimRight(reader.Attribute(i), "\x00"))
			if val == "" {
				continue
			}
			if numeric[i] {
				if num, err := strconv.ParseFloat(val, 64); err == nil {
					f.Properties[name] = num
					continue
				}
			}
			f.Properties[name] = val
		}
		fc.Append(f)
	}
	if err := reader.Err(); err != nil {
		return nil, eris.Wrapf(err, "dataset: read shapefile %s", p)
	}

	if skipped > 0 {
		zap.L().Debug("dataset: skipped shapefile records",
			zap.String("path", p),
			zap.Int("skipped", skipped),
		)
	}
	return fc, nil
}

func shapeGeometry(s shp.Shape) orb.Geometry {
	switch shape := s.(type) {
	case *shp.Polygon:
		return polygonGeometry(shape.NumParts, shape.Parts, shape.Points)
	case *shp.PolygonZ:
		return polygonGeometry(shape.NumParts, shape.Parts, shape.Points)
	case *shp.Point:
		return orb.Point{shape.X, shape.Y}
	default:
		return nil
	}
}

// polygonGeometry groups shapefile rings into polygons. Clockwise rings are
// outer boundaries; the counter-clockwise rings after one are its holes.
func polygonGeometry(numParts int32, parts []int32, points []shp.Point) orb.Geometry {
	if numParts == 0 || len(points) == 0 {
		return nil
	}

	var mp orb.MultiPolygon
	for i := int32(0); i < numParts; i++ {
		start := parts[i]
		end := int32(len(points))
		if i+1 < numParts {
			end = parts[i+1]
		}
		if end-start < 4 {
			continue
		}
		ring := make(orb.Ring, 0, end-start)
		for j := start; j < end; j++ {
			ring = append(ring, orb.Point{points[j].X, points[j].Y})
		}
		if ring.Orientation() == orb.CCW && len(mp) > 0 {
			last := len(mp) - 1
			mp[last] = append(mp[last], ring)
			continue
		}
		if ring.Orientation() == orb.CCW {
			ring.Reverse()
		}
		mp = append(mp, orb.Polygon{ring})
	}

	switch len(mp) {
	case 0:
		return nil
	case 1:
		return mp[0]
	default:
		return mp
	}
}
