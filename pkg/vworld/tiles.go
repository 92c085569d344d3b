package vworld

import "fmt"

// Tile layers served by the VWorld WMTS endpoint.
const (
	LayerBase      = "Base"
	LayerSatellite = "Satellite"
	LayerHybrid    = "Hybrid"
)

// DefaultTileBaseURL is the WMTS root.
const DefaultTileBaseURL = "https://api.vworld.kr/req/wmts/1.0.0"

// TileURL returns a Leaflet-style {z}/{y}/{x} template for layer.
// Satellite tiles are JPEG; the others are PNG.
func TileURL(baseURL, key, layer string) string {
	if baseURL == "" {
		baseURL = DefaultTileBaseURL
	}
	ext := "png"
	if layer == LayerSatellite {
		ext = "jpeg"
	}
	return fmt.Sprintf("%s/%s/%s/{z}/{y}/{x}.%s", baseURL, key, layer, ext)
}
