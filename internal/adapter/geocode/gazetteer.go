package geocode

import (
	"sort"
	"strings"

	"github.com/couchcryptid/gdelt-geojson/internal/domain"
)

// Place is one gazetteer candidate for a normalized name.
type Place struct {
	Name       string
	Admin      string // country or region, for display and tie-breaking
	Lon        float64
	Lat        float64
	Population int64
}

// Gazetteer is the embedded place-name table. Report location strings repeat
// a small set of world cities heavily, so a static table resolves the bulk
// of rows without any network call.
type Gazetteer struct {
	byName map[string][]Place
}

// NewGazetteer builds the lookup index over the embedded table.
func NewGazetteer() *Gazetteer {
	g := &Gazetteer{byName: make(map[string][]Place, len(places))}
	for _, p := range places {
		key := Normalize(p.Name)
		g.byName[key] = append(g.byName[key], p)
	}
	// Candidate lists are ordered once at build time: population descending,
	// ties by admin name ascending. Lookup then always returns the first
	// entry, keeping ambiguity resolution stable across runs.
	for _, candidates := range g.byName {
		sort.Slice(candidates, func(i, j int) bool {
			if candidates[i].Population != candidates[j].Population {
				return candidates[i].Population > candidates[j].Population
			}
			return candidates[i].Admin < candidates[j].Admin
		})
	}
	return g
}

// Lookup resolves a normalized name. It tries the full string first, then
// progressively drops trailing tokens, so "paris france" (the normalized
// form of "Paris, France") still lands on the "paris" entry.
func (g *Gazetteer) Lookup(normalized string) (domain.ResolvedLocation, bool) {
	for prefix := normalized; prefix != ""; {
		if p, ok := g.first(prefix); ok {
			return resolved(p), true
		}
		idx := strings.LastIndex(prefix, " ")
		if idx < 0 {
			break
		}
		prefix = prefix[:idx]
	}
	return domain.ResolvedLocation{}, false
}

func (g *Gazetteer) first(key string) (Place, bool) {
	candidates, ok := g.byName[key]
	if !ok || len(candidates) == 0 {
		return Place{}, false
	}
	return candidates[0], true
}

func resolved(p Place) domain.ResolvedLocation {
	return domain.ResolvedLocation{
		Coordinates: domain.Coordinates{Lon: p.Lon, Lat: p.Lat},
		PlaceName:   p.Name + ", " + p.Admin,
		Source:      "gazetteer",
		Resolved:    true,
	}
}

// places covers the world cities that recur in daily trend reports.
// Population figures are city-proper estimates and only matter for ordering.
var places = []Place{
	{Name: "Paris", Admin: "France", Lon: 2.3522, Lat: 48.8566, Population: 2161000},
	{Name: "Paris", Admin: "Texas", Lon: -95.5555, Lat: 33.6609, Population: 24900},
	{Name: "London", Admin: "United Kingdom", Lon: -0.1276, Lat: 51.5072, Population: 8982000},
	{Name: "Berlin", Admin: "Germany", Lon: 13.4050, Lat: 52.5200, Population: 3645000},
	{Name: "Madrid", Admin: "Spain", Lon: -3.7038, Lat: 40.4168, Population: 3223000},
	{Name: "Rome", Admin: "Italy", Lon: 12.4964, Lat: 41.9028, Population: 2873000},
	{Name: "Moscow", Admin: "Russia", Lon: 37.6173, Lat: 55.7558, Population: 12506000},
	{Name: "Kyiv", Admin: "Ukraine", Lon: 30.5234, Lat: 50.4501, Population: 2884000},
	{Name: "Warsaw", Admin: "Poland", Lon: 21.0122, Lat: 52.2297, Population: 1765000},
	{Name: "Geneva", Admin: "Switzerland", Lon: 6.1432, Lat: 46.2044, Population: 201000},
	{Name: "Brussels", Admin: "Belgium", Lon: 4.3517, Lat: 50.8503, Population: 1209000},
	{Name: "Istanbul", Admin: "Turkey", Lon: 28.9784, Lat: 41.0082, Population: 15462000},
	{Name: "Ankara", Admin: "Turkey", Lon: 32.8597, Lat: 39.9334, Population: 5445000},
	{Name: "Washington", Admin: "United States", Lon: -77.0369, Lat: 38.9072, Population: 705000},
	{Name: "New York", Admin: "United States", Lon: -74.0060, Lat: 40.7128, Population: 8399000},
	{Name: "Los Angeles", Admin: "United States", Lon: -118.2437, Lat: 34.0522, Population: 3990000},
	{Name: "Mexico City", Admin: "Mexico", Lon: -99.1332, Lat: 19.4326, Population: 9209000},
	{Name: "Bogota", Admin: "Colombia", Lon: -74.0721, Lat: 4.7110, Population: 7181000},
	{Name: "Caracas", Admin: "Venezuela", Lon: -66.9036, Lat: 10.4806, Population: 2245000},
	{Name: "Sao Paulo", Admin: "Brazil", Lon: -46.6333, Lat: -23.5505, Population: 12252000},
	{Name: "Buenos Aires", Admin: "Argentina", Lon: -58.3816, Lat: -34.6037, Population: 2891000},
	{Name: "Cairo", Admin: "Egypt", Lon: 31.2357, Lat: 30.0444, Population: 9540000},
	{Name: "Khartoum", Admin: "Sudan", Lon: 32.5599, Lat: 15.5007, Population: 5274000},
	{Name: "Lagos", Admin: "Nigeria", Lon: 3.3792, Lat: 6.5244, Population: 14862000},
	{Name: "Nairobi", Admin: "Kenya", Lon: 36.8219, Lat: -1.2921, Population: 4397000},
	{Name: "Addis Ababa", Admin: "Ethiopia", Lon: 38.7469, Lat: 9.0320, Population: 3352000},
	{Name: "Johannesburg", Admin: "South Africa", Lon: 28.0473, Lat: -26.2041, Population: 5635000},
	{Name: "Tripoli", Admin: "Libya", Lon: 13.1913, Lat: 32.8872, Population: 1126000},
	{Name: "Tripoli", Admin: "Lebanon", Lon: 35.8497, Lat: 34.4367, Population: 229000},
	{Name: "Jerusalem", Admin: "Israel", Lon: 35.2137, Lat: 31.7683, Population: 936000},
	{Name: "Gaza", Admin: "Palestinian Territories", Lon: 34.4668, Lat: 31.5017, Population: 590000},
	{Name: "Damascus", Admin: "Syria", Lon: 36.2765, Lat: 33.5138, Population: 2079000},
	{Name: "Baghdad", Admin: "Iraq", Lon: 44.3661, Lat: 33.3152, Population: 7144000},
	{Name: "Tehran", Admin: "Iran", Lon: 51.3890, Lat: 35.6892, Population: 8694000},
	{Name: "Riyadh", Admin: "Saudi Arabia", Lon: 46.6753, Lat: 24.7136, Population: 7676000},
	{Name: "Kabul", Admin: "Afghanistan", Lon: 69.2075, Lat: 34.5553, Population: 4222000},
	{Name: "Islamabad", Admin: "Pakistan", Lon: 73.0479, Lat: 33.6844, Population: 1015000},
	{Name: "New Delhi", Admin: "India", Lon: 77.2090, Lat: 28.6139, Population: 257000},
	{Name: "Mumbai", Admin: "India", Lon: 72.8777, Lat: 19.0760, Population: 12442000},
	{Name: "Dhaka", Admin: "Bangladesh", Lon: 90.4125, Lat: 23.8103, Population: 8906000},
	{Name: "Yangon", Admin: "Myanmar", Lon: 96.1561, Lat: 16.8661, Population: 5214000},
	{Name: "Bangkok", Admin: "Thailand", Lon: 100.5018, Lat: 13.7563, Population: 10539000},
	{Name: "Jakarta", Admin: "Indonesia", Lon: 106.8456, Lat: -6.2088, Population: 10562000},
	{Name: "Manila", Admin: "Philippines", Lon: 120.9842, Lat: 14.5995, Population: 1780000},
	{Name: "Hanoi", Admin: "Vietnam", Lon: 105.8342, Lat: 21.0278, Population: 8054000},
	{Name: "Beijing", Admin: "China", Lon: 116.4074, Lat: 39.9042, Population: 21542000},
	{Name: "Hong Kong", Admin: "China", Lon: 114.1694, Lat: 22.3193, Population: 7482000},
	{Name: "Taipei", Admin: "Taiwan", Lon: 121.5654, Lat: 25.0330, Population: 2646000},
	{Name: "Seoul", Admin: "South Korea", Lon: 126.9780, Lat: 37.5665, Population: 9776000},
	{Name: "Pyongyang", Admin: "North Korea", Lon: 125.7625, Lat: 39.0392, Population: 2870000},
	{Name: "Tokyo", Admin: "Japan", Lon: 139.6503, Lat: 35.6762, Population: 13960000},
	{Name: "Singapore", Admin: "Singapore", Lon: 103.8198, Lat: 1.3521, Population: 5686000},
	{Name: "Sydney", Admin: "Australia", Lon: 151.2093, Lat: -33.8688, Population: 5312000},
	{Name: "Canberra", Admin: "Australia", Lon: 149.1300, Lat: -35.2809, Population: 431000},
	{Name: "Ottawa", Admin: "Canada", Lon: -75.6972, Lat: 45.4215, Population: 994000},
	{Name: "Toronto", Admin: "Canada", Lon: -79.3832, Lat: 43.6532, Population: 2930000},
}
