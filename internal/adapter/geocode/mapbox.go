package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/couchcryptid/gdelt-geojson/internal/domain"
	"github.com/couchcryptid/gdelt-geojson/internal/observability"
)

// MapboxClient performs forward geocoding against the Mapbox Geocoding API.
// It is the remote fallback behind the gazetteer.
type MapboxClient struct {
	token      string
	httpClient *http.Client
	baseURL    string
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewMapboxClient creates a Mapbox geocoding client.
func NewMapboxClient(token string, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *MapboxClient {
	return &MapboxClient{
		token:      token,
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    "https://api.mapbox.com/geocoding/v5/mapbox.places",
		metrics:    metrics,
		logger:     logger,
	}
}

// Geocode converts a free-text place name to coordinates. A query the API
// does not know yields (unresolved, nil); errors are reserved for transport
// and API failures.
func (c *MapboxClient) Geocode(ctx context.Context, query string) (domain.ResolvedLocation, error) {
	u := fmt.Sprintf("%s/%s.json", c.baseURL, url.PathEscape(query))
	params := url.Values{
		"access_token": {c.token},
		"limit":        {"1"},
		"types":        {"place,locality,country"},
	}

	start := domain.Clock().Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u+"?"+params.Encode(), nil)
	if err != nil {
		return domain.ResolvedLocation{}, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.ResolvedLocation{}, fmt.Errorf("geocode request: %w", err)
	}
	defer resp.Body.Close()

	c.metrics.GeocodeAPIDuration.Observe(domain.Clock().Since(start).Seconds())

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return domain.ResolvedLocation{}, fmt.Errorf("mapbox API error: status %d: %s", resp.StatusCode, body)
	}

	var mapboxResp response
	if err := json.NewDecoder(resp.Body).Decode(&mapboxResp); err != nil {
		return domain.ResolvedLocation{}, fmt.Errorf("decode response: %w", err)
	}

	if len(mapboxResp.Features) == 0 {
		return domain.ResolvedLocation{}, nil
	}

	f := mapboxResp.Features[0]
	if len(f.Center) != 2 {
		return domain.ResolvedLocation{}, nil
	}
	return domain.ResolvedLocation{
		Coordinates: domain.Coordinates{Lon: f.Center[0], Lat: f.Center[1]},
		PlaceName:   f.PlaceName,
		Source:      "remote",
		Resolved:    true,
	}, nil
}

// Mapbox API response types.

type response struct {
	Features []feature `json:"features"`
}

type feature struct {
	Center    []float64 `json:"center"` // [lon, lat]
	PlaceName string    `json:"place_name"`
	Text      string    `json:"text"`
	Relevance float64   `json:"relevance"`
}
