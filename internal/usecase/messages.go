package usecase

import "fmt"

// User-facing texts. The advisory client is Indonesian-only.
const (
	TextLocationUnavailable  = "❌ Gagal menemukan lokasi Anda. Pastikan layanan lokasi diaktifkan."
	TextNoCandidateLocations = "❌ Tidak ada data lokasi yang tersedia."
	TextChatFailure          = "Maaf, terjadi kesalahan saat berkomunikasi. Mohon coba lagi nanti."
	TextSearchFailure        = "Terjadi kesalahan saat mengambil data lokasi. Mohon coba lagi."

	TextFindMeRequest = "Temukan lokasi saya."
)

func textGeocodeNotFound(query string) string {
	return fmt.Sprintf("❌ Lokasi %q tidak ditemukan. Coba nama lokasi yang lebih spesifik.", query)
}

// SearchRequestText is the user message logged for a location search.
func SearchRequestText(query string) string {
	return "Mencari lokasi: " + query
}

// FailureText is the apology that replaces the placeholder when a dispatch of
// the given kind ends in BACKEND_UNREACHABLE.
func FailureText(kind Kind) string {
	if kind == KindLocationSearch {
		return TextSearchFailure
	}
	return TextChatFailure
}
