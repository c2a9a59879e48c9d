package geo

import (
	"github.com/uber/h3-go/v4"
)

// H3 resolution levels for different use cases.
// See: https://h3geo.org/docs/core-library/restable
const (
	// H3ResolutionRiskZone is used for high-risk zone lookups (~460m edge, ~0.74 km²).
	H3ResolutionRiskZone = 8

	// H3ResolutionRegion is used for regional fraud aggregation (~3.2 km edge, ~36.13 km²).
	H3ResolutionRegion = 6

	// H3KRingRiskZone is the k-ring radius for risk zone proximity checks.
	// At resolution 8, k=2 covers roughly a 2.3 km radius.
	H3KRingRiskZone = 2
)

// LatLngToCell converts latitude/longitude to an H3 cell index at the given resolution.
// Returns the zero cell on invalid input, which should be validated upstream.
func LatLngToCell(lat, lng float64, resolution int) h3.Cell {
	latLng := h3.NewLatLng(lat, lng)
	cell, err := h3.LatLngToCell(latLng, resolution)
	if err != nil {
		return 0
	}
	return cell
}

// CellToLatLng returns the center coordinates of an H3 cell.
func CellToLatLng(cell h3.Cell) (lat, lng float64) {
	latLng, err := cell.LatLng()
	if err != nil {
		return 0, 0
	}
	return latLng.Lat, latLng.Lng
}

// RiskZoneCell returns the H3 cell index (as string) used for high-risk zone
// lookups at the given location.
func RiskZoneCell(lat, lng float64) string {
	return LatLngToCell(lat, lng, H3ResolutionRiskZone).String()
}

// RegionCell returns the H3 cell index (as string) for regional aggregation.
func RegionCell(lat, lng float64) string {
	return LatLngToCell(lat, lng, H3ResolutionRegion).String()
}

// NearbyRiskCells returns the set of H3 cells within k rings of the location,
// as hex strings. Used to match a transaction against zone definitions that
// cover an area rather than a single cell.
func NearbyRiskCells(lat, lng float64, k int) []string {
	origin := LatLngToCell(lat, lng, H3ResolutionRiskZone)
	cells, err := origin.GridDisk(k)
	if err != nil {
		cells = []h3.Cell{origin}
	}
	result := make([]string, len(cells))
	for i, cell := range cells {
		result[i] = cell.String()
	}
	return result
}

// StringToCell parses an H3 cell hex string back to a Cell.
func StringToCell(s string) h3.Cell {
	return h3.CellFromString(s)
}
