package dedupe

import (
	"math"
	"strconv"
	"strings"

	"njcrashes/internal/domain"
)

// earthRadiusFeet is the mean Earth radius (6,371,008.8 m) in feet.
const earthRadiusFeet = 20_902_259.8

// HaversineFeet returns the great-circle distance between two points in feet.
func HaversineFeet(lat1, lon1, lat2, lon2 float64) float64 {
	rlat1 := radians(lat1)
	rlat2 := radians(lat2)
	dLat := radians(lat2 - lat1)
	dLon := radians(lon2 - lon1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(rlat1)*math.Cos(rlat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusFeet * math.Asin(math.Min(1, math.Sqrt(a)))
}

func radians(deg float64) float64 { return deg * math.Pi / 180 }

// coord is one member's parsed lat/lon pair.
type coord struct {
	lat, lon         float64
	latText, lonText string
	precision        int
	line             int
}

// coordOf parses the lat/lon columns of r. Empty, unparsable and zero values
// count as missing; the agency writes 0 for "not geocoded".
func coordOf(r domain.RawRecord, latField, lonField string) (coord, bool) {
	latText, _ := r.Get(latField)
	lonText, _ := r.Get(lonField)
	lat, err := strconv.ParseFloat(latText, 64)
	if err != nil || lat == 0 {
		return coord{}, false
	}
	lon, err := strconv.ParseFloat(lonText, 64)
	if err != nil || lon == 0 {
		return coord{}, false
	}
	return coord{
		lat:       lat,
		lon:       lon,
		latText:   latText,
		lonText:   lonText,
		precision: min(decimals(latText), decimals(lonText)),
		line:      r.Line,
	}, true
}

func decimals(s string) int {
	i := strings.IndexByte(s, '.')
	if i < 0 {
		return 0
	}
	return len(s) - i - 1
}

// maxDistance is the largest pairwise distance among cs; it does not depend on
// the order of cs.
func maxDistance(cs []coord) float64 {
	var d float64
	for i := range cs {
		for j := i + 1; j < len(cs); j++ {
			d = math.Max(d, HaversineFeet(cs[i].lat, cs[i].lon, cs[j].lat, cs[j].lon))
		}
	}
	return d
}

// mostPrecise picks the pair with the most decimal places, breaking ties by
// the earlier source line.
func mostPrecise(cs []coord) coord {
	best := cs[0]
	for _, c := range cs[1:] {
		if c.precision > best.precision || (c.precision == best.precision && c.line < best.line) {
			best = c
		}
	}
	return best
}
