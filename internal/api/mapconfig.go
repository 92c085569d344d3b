package api

import (
	"net/http"

	"github.com/sells-group/addrmap/internal/export"
	"github.com/sells-group/addrmap/pkg/vworld"
)

// MapConfig is what the front end needs to draw the map.
type MapConfig struct {
	Tiles   map[string]string `json:"tiles"`
	Center  [2]float64        `json:"center"`
	Zoom    int               `json:"zoom"`
	MinZoom int               `json:"minZoom"`
	MaxZoom int               `json:"maxZoom"`
	Marker  MarkerStyle       `json:"marker"`
}

// MarkerStyle describes how circle markers scale with their count.
type MarkerStyle struct {
	RadiusScale float64 `json:"radiusScale"`
	MaxRadius   float64 `json:"maxRadius"`
}

// NewMapConfig returns the default view centred on Suwon with VWorld tiles.
func NewMapConfig(tileBaseURL, key string) MapConfig {
	return MapConfig{
		Tiles: map[string]string{
			"base":      vworld.TileURL(tileBaseURL, key, vworld.LayerBase),
			"satellite": vworld.TileURL(tileBaseURL, key, vworld.LayerSatellite),
			"hybrid":    vworld.TileURL(tileBaseURL, key, vworld.LayerHybrid),
		},
		Center:  [2]float64{37.2911, 127.0089},
		Zoom:    11,
		MinZoom: 7,
		MaxZoom: 19,
		Marker: MarkerStyle{
			RadiusScale: export.RadiusScale,
			MaxRadius:   export.MaxRadius,
		},
	}
}

func (s *Server) handleMapConfig(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.opts.Map)
}
