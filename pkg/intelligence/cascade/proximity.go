package cascade

import (
	"math"

	"github.com/PeterJemley/bridget-sub000/pkg/domain"
)

const earthRadiusKm = 6371.0

// entityPair is an unordered pair of entity IDs. The lexically smaller ID
// always comes first so lookups are direction-independent.
type entityPair struct {
	a string
	b string
}

func pairOf(a, b string) entityPair {
	if b < a {
		a, b = b, a
	}
	return entityPair{a: a, b: b}
}

// proximityGraph records which located entities sit within the configured
// distance of each other, along with the great-circle distance per edge.
type proximityGraph struct {
	distances map[entityPair]float64
}

// buildProximityGraph computes pairwise distances between all located
// entities and keeps the pairs within maxDistanceKm. Entities without a
// location contribute no edges; a duplicate location for the same entity
// overwrites the earlier one.
func buildProximityGraph(locations []domain.EntityLocation, maxDistanceKm float64) *proximityGraph {
	byEntity := make(map[string]domain.EntityLocation, len(locations))
	for _, loc := range locations {
		if loc.EntityID == "" {
			continue
		}
		byEntity[loc.EntityID] = loc
	}

	ids := make([]string, 0, len(byEntity))
	for id := range byEntity {
		ids = append(ids, id)
	}

	graph := &proximityGraph{distances: make(map[entityPair]float64)}
	for i := 0; i < len(ids); i++ {
		for j := i + 1; j < len(ids); j++ {
			a := byEntity[ids[i]]
			b := byEntity[ids[j]]
			d := haversineKm(a.Latitude, a.Longitude, b.Latitude, b.Longitude)
			if d <= maxDistanceKm {
				graph.distances[pairOf(ids[i], ids[j])] = d
			}
		}
	}
	return graph
}

// distance returns the edge distance between two entities and whether the
// entities are adjacent in the graph.
func (g *proximityGraph) distance(a, b string) (float64, bool) {
	d, ok := g.distances[pairOf(a, b)]
	return d, ok
}

func (g *proximityGraph) edgeCount() int {
	return len(g.distances)
}

// haversineKm computes the great-circle distance between two coordinates
// in kilometers.
func haversineKm(lat1, lon1, lat2, lon2 float64) float64 {
	latA := lat1 * math.Pi / 180
	latB := lat2 * math.Pi / 180
	dLat := latB - latA
	dLon := (lon2 - lon1) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(latA)*math.Cos(latB)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusKm * math.Asin(math.Min(1, math.Sqrt(h)))
}
