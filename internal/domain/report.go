package domain

// Report is a citizen report (laporan) as accepted by POST /api/laporan.
type Report struct {
	Lokasi    string  `json:"lokasi"`
	Kategori  string  `json:"kategori"`
	Deskripsi string  `json:"deskripsi"`
	Waktu     string  `json:"waktu"`
	Kontak    string  `json:"kontak"`
	Lat       float64 `json:"lat"`
	Lon       float64 `json:"lon"`
}
