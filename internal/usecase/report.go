package usecase

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"wargabantuin/internal/domain"
)

// topN is how many ranked items a report lists per commodity class.
const topN = 5

const (
	textUnknown  = "Tidak diketahui"
	textNoReason = "Tidak ada alasan"
	textNA       = "N/A"
	textNoData   = "Tidak ada data"
)

// RankTop returns at most n items sorted by descending score. Items with equal
// scores keep their input order. The input slice is not modified.
func RankTop(items []domain.RankedItem, n int) []domain.RankedItem {
	ranked := slices.Clone(items)
	slices.SortStableFunc(ranked, func(a, b domain.RankedItem) int {
		switch {
		case a.Skor > b.Skor:
			return -1
		case a.Skor < b.Skor:
			return 1
		default:
			return 0
		}
	})
	if len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}

// nearestReport renders the self-locate answer.
func nearestReport(res domain.NearestResult) string {
	loc := res.LokasiTerdekat
	return strings.Join([]string{
		fmt.Sprintf("**📍 Lokasi Terdekat dari posisi Anda: %s**", orDefault(loc.Nama, textUnknown)),
		"- **Provinsi:** " + orDefault(loc.Provinsi, textUnknown),
		"- **Kota/Kabupaten:** " + orDefault(loc.KotaKab, textUnknown),
		"- **Kecamatan:** " + orDefault(loc.Kecamatan, textUnknown),
		"- **Desa:** " + orDefault(loc.Desa, textUnknown),
		"",
		"---",
		"",
		"**🌱 5 Rekomendasi Hewan Teratas:**",
		rankedLines(res.Penilaian.Hewan, "Tidak ada rekomendasi hewan yang cocok."),
		"",
		"---",
		"",
		"**🌿 5 Rekomendasi Sayuran Teratas:**",
		rankedLines(res.Penilaian.Sayuran, "Tidak ada rekomendasi sayuran yang cocok."),
	}, "\n")
}

func rankedLines(items []domain.RankedItem, empty string) string {
	if len(items) == 0 {
		return empty
	}
	lines := make([]string, 0, topN)
	for _, it := range RankTop(items, topN) {
		lines = append(lines, fmt.Sprintf("- **%s** (Skor: %s) - *%s*",
			orDefault(it.Nama, textUnknown), formatNumber(it.Skor), orDefault(it.AlasanSkor, textNoReason)))
	}
	return strings.Join(lines, "\n")
}

// searchReport renders the location-search answer for the candidate nearest
// to the geocoded query.
func searchReport(query string, loc domain.LocationRecord) string {
	var picks domain.Picks
	if loc.PilihanTepat != nil {
		picks = *loc.PilihanTepat
	}
	var assessment domain.Assessment
	if loc.CocokUntuk != nil {
		assessment = *loc.CocokUntuk
	}
	today := domain.DailyTemperature{}
	if loc.SuhuHariIni != nil {
		today = *loc.SuhuHariIni
	}

	return strings.Join([]string{
		fmt.Sprintf("**📍 Lokasi terdekat dari pencarian Anda %q: %s, %s, %s, %s**", query,
			orDefault(loc.Desa, textNA), orDefault(loc.Kecamatan, textNA),
			orDefault(loc.KotaKab, textNA), orDefault(loc.Provinsi, textNA)),
		"",
		"🌡 Suhu Saat Ini: " + withUnit(loc.SuhuRealtime, "°C"),
		"💧 Kelembapan Saat Ini: " + withUnit(loc.KelembapanRealtime, "%"),
		"☁️ Kondisi Cuaca: " + orDefault(loc.WeatherDesc, textNoData),
		"",
		"📅 Suhu Hari Ini:",
		"- Rata-rata: " + withUnit(today.Rata2, "°C"),
		"- Maksimum: " + withUnit(today.Max, "°C"),
		"- Minimum: " + withUnit(today.Min, "°C"),
		"",
		"📊 Periode Rata-rata (2 hari kedepan):",
		"🌡 Suhu rata-rata periode: " + withUnit(loc.Rata2Suhu, "°C"),
		"💧 Kelembapan rata-rata periode: " + withUnit(loc.Rata2Hu, "%"),
		"",
		"🐄 Rekomendasi Hewan (Skor > 70):",
		joinOr(picks.Hewan, textNoData),
		"🥬 Rekomendasi Sayuran (Skor > 70):",
		joinOr(picks.Sayuran, textNoData),
		"",
		"**Penilaian:**",
		"🐄 Hewan:",
		assessmentLines(assessment.Hewan),
		"🥬 Sayuran:",
		assessmentLines(assessment.Sayuran),
	}, "\n")
}

func assessmentLines(items []domain.RankedItem) string {
	if len(items) == 0 {
		return "Tidak ada"
	}
	lines := make([]string, 0, topN)
	for _, it := range RankTop(items, topN) {
		lines = append(lines, fmt.Sprintf("- %s (Skor: %s, %s)",
			orDefault(it.Nama, textNA), formatNumber(it.Skor), it.AlasanSkor))
	}
	return strings.Join(lines, "\n")
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}

func withUnit(v *float64, unit string) string {
	if v == nil {
		return textNA
	}
	return formatNumber(*v) + unit
}

func joinOr(items []string, empty string) string {
	if len(items) == 0 {
		return empty
	}
	return strings.Join(items, ", ")
}

// formatNumber prints scores and readings the way the backend sends them:
// 82 stays "82", 27.5 stays "27.5".
func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
