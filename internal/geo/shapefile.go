package geo

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/im7mortal/UTM"
	"github.com/jonas-p/go-shp"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/simplify"
	"golang.org/x/text/encoding/charmap"

	"github.com/EmpoweredVote/wahlkreis/internal/logging"
)

// ErrNoDistricts is returned when a shapefile holds no usable polygons.
var ErrNoDistricts = errors.New("shapefile contains no district polygons")

// Options control how district outlines are read.
type Options struct {
	NumberField string  `yaml:"number_field"`
	NameField   string  `yaml:"name_field"`
	UTMZone     int     `yaml:"utm_zone" validate:"gte=0,lte=60"`
	Tolerance   float64 `yaml:"tolerance" validate:"gte=0"` // Douglas-Peucker threshold in degrees, 0 disables
}

// DefaultOptions match the official Wahlkreis shapefiles (ETRS89 / UTM 32N).
func DefaultOptions() Options {
	return Options{
		NumberField: "WKR_NR",
		NameField:   "WKR_NAME",
		UTMZone:     32,
		Tolerance:   0.001,
	}
}

// District is one electoral district outline in WGS84.
type District struct {
	Number   int
	Name     string
	Geometry orb.MultiPolygon
}

// Map is the set of district outlines.
type Map struct {
	Districts []District
	Bound     orb.Bound
}

// LoadShapefile reads polygon outlines from path. Coordinates are reprojected
// from UTM unless a .prj next to the file declares a geographic system or
// opts.UTMZone is 0.
func LoadShapefile(path string, opts Options) (*Map, error) {
	start := time.Now()
	if opts.NumberField == "" {
		opts.NumberField = DefaultOptions().NumberField
	}
	if opts.NameField == "" {
		opts.NameField = DefaultOptions().NameField
	}

	r, err := shp.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open shapefile: %w", err)
	}
	defer r.Close()

	numIdx, nameIdx := -1, -1
	for i, f := range r.Fields() {
		switch strings.ToUpper(strings.TrimSpace(f.String())) {
		case strings.ToUpper(opts.NumberField):
			numIdx = i
		case strings.ToUpper(opts.NameField):
			nameIdx = i
		}
	}
	if numIdx < 0 {
		return nil, fmt.Errorf("shapefile: missing attribute %q", opts.NumberField)
	}

	project := utmProjection(opts.UTMZone)
	if opts.UTMZone == 0 || isGeographic(path) {
		project = identity
	}

	m := &Map{}
	for r.Next() {
		n, shape := r.Shape()
		poly, ok := shape.(*shp.Polygon)
		if !ok {
			continue
		}
		number, err := strconv.Atoi(strings.TrimSpace(r.ReadAttribute(n, numIdx)))
		if err != nil {
			return nil, fmt.Errorf("shapefile record %d: bad %s: %w", n, opts.NumberField, err)
		}
		var name string
		if nameIdx >= 0 {
			name = decodeAttr(r.ReadAttribute(n, nameIdx))
		}

		geom, err := toMultiPolygon(poly, project)
		if err != nil {
			return nil, fmt.Errorf("shapefile record %d: %w", n, err)
		}
		if opts.Tolerance > 0 {
			geom = simplify.DouglasPeucker(opts.Tolerance).MultiPolygon(geom)
		}

		d := District{Number: number, Name: name, Geometry: geom}
		if len(m.Districts) == 0 {
			m.Bound = geom.Bound()
		} else {
			m.Bound = m.Bound.Union(geom.Bound())
		}
		m.Districts = append(m.Districts, d)
	}
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("read shapefile: %w", err)
	}
	if len(m.Districts) == 0 {
		return nil, ErrNoDistricts
	}

	logging.L().Infof("[geo] loaded %d districts from %s in %dms",
		len(m.Districts), path, time.Since(start).Milliseconds())
	return m, nil
}

type projection func(x, y float64) (orb.Point, error)

func identity(x, y float64) (orb.Point, error) { return orb.Point{x, y}, nil }

func utmProjection(zone int) projection {
	return func(x, y float64) (orb.Point, error) {
		lat, lon, err := UTM.ToLatLon(x, y, zone, "", true)
		if err != nil {
			return orb.Point{}, err
		}
		return orb.Point{lon, lat}, nil
	}
}

// toMultiPolygon groups shapefile rings: clockwise rings are outer
// boundaries, counter-clockwise rings are holes of the preceding outer ring.
// Output rings follow the GeoJSON winding (outer counter-clockwise).
func toMultiPolygon(p *shp.Polygon, project projection) (orb.MultiPolygon, error) {
	var mp orb.MultiPolygon
	for i := range p.Parts {
		start := int(p.Parts[i])
		end := len(p.Points)
		if i+1 < len(p.Parts) {
			end = int(p.Parts[i+1])
		}
		if start >= end || end > len(p.Points) {
			return nil, fmt.Errorf("invalid part %d", i)
		}

		ring := make(orb.Ring, 0, end-start)
		for _, pt := range p.Points[start:end] {
			q, err := project(pt.X, pt.Y)
			if err != nil {
				return nil, err
			}
			ring = append(ring, q)
		}

		if ring.Orientation() == orb.CW || len(mp) == 0 {
			if ring.Orientation() == orb.CW {
				ring.Reverse()
			}
			mp = append(mp, orb.Polygon{ring})
			continue
		}
		ring.Reverse()
		last := len(mp) - 1
		mp[last] = append(mp[last], ring)
	}
	return mp, nil
}

// isGeographic reports whether the projection file declares lon/lat.
func isGeographic(path string) bool {
	prj := strings.TrimSuffix(path, ".shp") + ".prj"
	b, err := os.ReadFile(prj)
	if err != nil {
		return false
	}
	return strings.HasPrefix(strings.TrimSpace(string(b)), "GEOGCS")
}

// decodeAttr trims dBASE padding and decodes Latin-1 attributes.
func decodeAttr(s string) string {
	s = strings.TrimRight(s, " \x00")
	if utf8.ValidString(s) {
		return s
	}
	out, err := charmap.ISO8859_1.NewDecoder().String(s)
	if err != nil {
		return s
	}
	return out
}
