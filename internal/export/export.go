// Package export encodes batch results for the map renderer and for files.
package export

import (
	"encoding/json"
	"io"
	"math"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/addrmap/internal/model"
)

// Format selects an output encoding.
type Format string

const (
	FormatJSON    Format = "json"
	FormatYAML    Format = "yaml"
	FormatGeoJSON Format = "geojson"
)

// ParseFormat validates a user-supplied format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatJSON, FormatYAML, FormatGeoJSON:
		return f, nil
	case "yml":
		return FormatYAML, nil
	case "":
		return FormatJSON, nil
	default:
		return "", eris.Errorf("export: unknown format %q", s)
	}
}

// Marker circles grow with the square root of the count, capped at MaxRadius.
const (
	RadiusScale = 3.0
	MaxRadius   = 30.0
)

// Radius is the circle marker radius in pixels for a marker with count
// occurrences.
func Radius(count int) float64 {
	if count < 1 {
		count = 1
	}
	return math.Min(RadiusScale*math.Sqrt(float64(count)), MaxRadius)
}

// Report is a complete batch result.
type Report struct {
	RunID   string          `json:"runId" yaml:"runId"`
	Summary model.Summary   `json:"summary" yaml:"summary"`
	Markers []*model.Marker `json:"markers" yaml:"markers"`
}

// FeatureCollection converts markers into GeoJSON point features.
func FeatureCollection(markers []*model.Marker) *geojson.FeatureCollection {
	fc := &geojson.FeatureCollection{Features: make([]*geojson.Feature, 0, len(markers))}
	for _, m := range markers {
		props := map[string]any{
			"address":     m.RepresentativeAddress,
			"count":       m.OccurrenceCount,
			"addresses":   m.ContributingAddresses,
			"isApartment": m.IsApartmentComplex,
			"radius":      Radius(m.OccurrenceCount),
		}
		if m.Dong != "" {
			props["dong"] = m.Dong
		}
		fc.Features = append(fc.Features, &geojson.Feature{
			Geometry:   geom.NewPointFlat(geom.XY, []float64{m.Longitude, m.Latitude}),
			Properties: props,
		})
	}
	return fc
}

// Write encodes rep to w. GeoJSON output carries only the markers.
func Write(w io.Writer, format Format, rep *Report) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		return eris.Wrap(enc.Encode(rep), "export: encode json")
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(rep); err != nil {
			return eris.Wrap(err, "export: encode yaml")
		}
		return eris.Wrap(enc.Close(), "export: close yaml")
	case FormatGeoJSON:
		data, err := FeatureCollection(rep.Markers).MarshalJSON()
		if err != nil {
			return eris.Wrap(err, "export: encode geojson")
		}
		_, err = w.Write(append(data, '\n'))
		return eris.Wrap(err, "export: write geojson")
	default:
		return eris.Errorf("export: unknown format %q", format)
	}
}
