package geo

import (
	"github.com/paulmach/orb/geojson"

	"github.com/EmpoweredVote/wahlkreis/internal/chart"
	"github.com/EmpoweredVote/wahlkreis/internal/election"
)

// FeatureCollection colors every outline by the party of the district winner.
// Districts without a known winner keep the fallback color.
func FeatureCollection(m *Map, snap *election.Snapshot, palette chart.Palette) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	if m == nil {
		return fc
	}
	if len(m.Districts) > 0 && !m.Bound.IsZero() {
		fc.BBox = geojson.NewBBox(m.Bound)
	}
	for _, d := range m.Districts {
		f := geojson.NewFeature(d.Geometry)
		f.ID = d.Number
		f.Properties["number"] = d.Number
		f.Properties["name"] = d.Name
		f.Properties["label"] = election.FormatLabel(d.Number, d.Name)
		f.Properties["color"] = chart.FallbackColor

		if snap != nil {
			if ref, ok := snap.Index.ByNumber(d.Number); ok {
				f.Properties["name"] = ref.Name
				f.Properties["label"] = ref.Label
			}
			if w, ok := snap.Winners[d.Number]; ok {
				f.Properties["winner"] = w.Name
				f.Properties["party"] = w.Party
				f.Properties["share"] = w.Share
				f.Properties["color"] = palette.Color(w.Party)
			}
		}
		fc.Append(f)
	}
	return fc
}
