// Package model holds the address, geocode, and marker types shared across addrmap.
package model

// Kind selects the VWorld address type used for a lookup.
type Kind string

const (
	KindRoad   Kind = "road"   // 도로명주소
	KindParcel Kind = "parcel" // 지번주소
)

// Kinds is the canonical lookup order: road first, parcel as fallback.
var Kinds = []Kind{KindRoad, KindParcel}

// Query is a single lookup against the geocoding service.
type Query struct {
	Address string `json:"address"`
	Kind    Kind   `json:"kind"`
}

// GeocodeResult is a resolved coordinate. A failed lookup yields a nil
// *GeocodeResult, never a zero value.
type GeocodeResult struct {
	Latitude       float64 `json:"lat"`
	Longitude      float64 `json:"lng"`
	Dong           string  `json:"dong,omitempty"`           // 행정동
	BuildingNumber string  `json:"buildingNumber,omitempty"` // e.g. "1502동"
	Address        string  `json:"address"`                  // normalized address that was looked up
	Refined        string  `json:"refined,omitempty"`        // provider's refined address text
	Kind           Kind    `json:"kind"`
}
