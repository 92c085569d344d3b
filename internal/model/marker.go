package model

// Marker is one map point aggregating every input row that resolved to the
// same coordinate and normalized address.
type Marker struct {
	Latitude              float64  `json:"lat" yaml:"lat"`
	Longitude             float64  `json:"lng" yaml:"lng"`
	RepresentativeAddress string   `json:"address" yaml:"address"`
	OccurrenceCount       int      `json:"count" yaml:"count"`
	ContributingAddresses []string `json:"addresses" yaml:"addresses"`
	IsApartmentComplex    bool     `json:"isApartment" yaml:"isApartment"`
	Dong                  string   `json:"dong,omitempty" yaml:"dong,omitempty"`
}

// NewMarker starts a marker with a single contributing address.
func NewMarker(lat, lng float64, original string, apartment bool) *Marker {
	return &Marker{
		Latitude:              lat,
		Longitude:             lng,
		RepresentativeAddress: original,
		OccurrenceCount:       1,
		ContributingAddresses: []string{original},
		IsApartmentComplex:    apartment,
	}
}

// Add appends another contributing address. OccurrenceCount always equals
// len(ContributingAddresses).
func (m *Marker) Add(original string, apartment bool) {
	m.ContributingAddresses = append(m.ContributingAddresses, original)
	m.OccurrenceCount = len(m.ContributingAddresses)
	m.IsApartmentComplex = m.IsApartmentComplex || apartment
}

// FailedAddress records an input row that could not be placed on the map.
type FailedAddress struct {
	OriginalAddress string `json:"address" yaml:"address"`
	Reason          string `json:"reason" yaml:"reason"`
	Row             int    `json:"row" yaml:"row"`
}

// Summary is the batch report consumed by the upload UI.
type Summary struct {
	TotalAddresses  int             `json:"totalAddresses" yaml:"totalAddresses"`
	SuccessCount    int             `json:"successCount" yaml:"successCount"`
	FailedAddresses []FailedAddress `json:"failedAddresses" yaml:"failedAddresses"`
}

// Row is one address read from a spreadsheet. Number is the 1-based sheet row.
type Row struct {
	Address string `json:"address"`
	Number  int    `json:"row"`
}
