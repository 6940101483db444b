package domain

// Coordinates is a WGS84 point in decimal degrees.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// LocationSource records how a LocationQuery obtained its coordinates.
type LocationSource string

const (
	SourceGeolocation LocationSource = "geolocation"
	SourceGeocode     LocationSource = "geocode"
)

// LocationQuery is the authoritative "focus location" of a session: either the
// device position or the result of geocoding free text.
type LocationQuery struct {
	Raw         string
	Coordinates *Coordinates
	Source      LocationSource
}

// Place is a geocoder hit.
type Place struct {
	Coordinates
	DisplayName string
}

// RankedItem is a single commodity suitability score returned by the backend.
type RankedItem struct {
	Nama       string  `json:"nama"`
	Skor       float64 `json:"skor"`
	AlasanSkor string  `json:"alasan_skor"`
}

// Assessment groups ranked items per commodity class.
type Assessment struct {
	Hewan   []RankedItem `json:"hewan"`
	Sayuran []RankedItem `json:"sayuran"`
}

// Picks lists the commodity names the backend marks as a good fit.
type Picks struct {
	Hewan   []string `json:"hewan"`
	Sayuran []string `json:"sayuran"`
}

// DailyTemperature is today's temperature summary for a location.
type DailyTemperature struct {
	Rata2 *float64 `json:"rata2"`
	Max   *float64 `json:"max"`
	Min   *float64 `json:"min"`
}

// LocationRecord is an administrative location from the pre-seeded backend
// dataset. Weather fields are optional and only present on search results.
type LocationRecord struct {
	Nama      string   `json:"nama"`
	Provinsi  string   `json:"provinsi"`
	KotaKab   string   `json:"kotakab"`
	Kecamatan string   `json:"kecamatan"`
	Desa      string   `json:"desa"`
	Lat       *float64 `json:"lat"`
	Lon       *float64 `json:"lon"`

	SuhuRealtime       *float64          `json:"suhu_realtime,omitempty"`
	KelembapanRealtime *float64          `json:"kelembapan_realtime,omitempty"`
	WeatherDesc        string            `json:"weather_desc,omitempty"`
	SuhuHariIni        *DailyTemperature `json:"suhu_hari_ini,omitempty"`
	Rata2Suhu          *float64          `json:"rata2_suhu,omitempty"`
	Rata2Hu            *float64          `json:"rata2_hu,omitempty"`
	PilihanTepat       *Picks            `json:"pilihan_tepat,omitempty"`
	CocokUntuk         *Assessment       `json:"cocok_untuk,omitempty"`
}

// HasCoordinates reports whether the record can take part in distance ranking.
func (r LocationRecord) HasCoordinates() bool {
	return r.Lat != nil && r.Lon != nil
}

// NearestResult is the nearest-location service payload.
type NearestResult struct {
	LokasiTerdekat LocationRecord `json:"lokasi_terdekat"`
	Penilaian      Assessment     `json:"penilaian"`
}
