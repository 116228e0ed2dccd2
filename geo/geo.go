package geo

import (
	"math"

	"spot-letter/models"
)

const earthRadiusMeters = 6371000.0

// DistanceMeters 는 두 좌표 사이의 대원 거리(haversine)를 미터로 반환한다.
func DistanceMeters(a, b models.Coordinates) float64 {
	lat1 := toRadians(a.Lat)
	lat2 := toRadians(b.Lat)
	dLat := toRadians(b.Lat - a.Lat)
	dLon := toRadians(b.Lon - a.Lon)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusMeters * math.Asin(math.Min(1, math.Sqrt(h)))
}

// Closest 는 radius 이내에서 origin 에 가장 가까운 후보의 인덱스와 거리를 반환한다.
// 좌표가 없는 후보는 건너뛴다. 해당 후보가 없으면 ok 는 false 다.
func Closest(origin models.Coordinates, candidates []*models.Coordinates, radiusMeters float64) (idx int, dist float64, ok bool) {
	idx = -1
	for i, c := range candidates {
		if c == nil {
			continue
		}
		d := DistanceMeters(origin, *c)
		if d > radiusMeters {
			continue
		}
		if idx == -1 || d < dist {
			idx, dist = i, d
		}
	}
	return idx, dist, idx != -1
}

// Within 은 두 좌표가 radius 이내인지 반환한다.
func Within(a, b models.Coordinates, radiusMeters float64) bool {
	return DistanceMeters(a, b) <= radiusMeters
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}
