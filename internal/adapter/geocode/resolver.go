// Package geocode resolves free-text place names to WGS-84 coordinates.
//
// Resolution order: normalize → embedded gazetteer → optional remote
// geocoder → unresolved marker. Every outcome is cached per run by
// normalized input, so Resolve is a pure function of its input for the
// lifetime of one Resolver.
package geocode

import (
	"context"
	"log/slog"
	"strings"
	"unicode"

	"github.com/couchcryptid/gdelt-geojson/internal/domain"
	"github.com/couchcryptid/gdelt-geojson/internal/observability"
)

// RemoteGeocoder is the external fallback lookup. Implementations return an
// unresolved marker with a nil error when the service simply does not know
// the name.
type RemoteGeocoder interface {
	Geocode(ctx context.Context, query string) (domain.ResolvedLocation, error)
}

// Resolver implements domain.Resolver.
type Resolver struct {
	gazetteer *Gazetteer
	remote    RemoteGeocoder // nil disables the remote fallback
	cache     *lruCache
	metrics   *observability.Metrics
	logger    *slog.Logger
}

// NewResolver creates a Resolver. Pass a nil remote to resolve from the
// gazetteer alone.
func NewResolver(remote RemoteGeocoder, cacheLen int, metrics *observability.Metrics, logger *slog.Logger) *Resolver {
	return &Resolver{
		gazetteer: NewGazetteer(),
		remote:    remote,
		cache:     newLRUCache(cacheLen),
		metrics:   metrics,
		logger:    logger,
	}
}

// Resolve maps a location string to coordinates. Unknown names return the
// unresolved marker, never an error; the error return is reserved for
// context cancellation.
func (r *Resolver) Resolve(ctx context.Context, locationText string) (domain.ResolvedLocation, error) {
	if err := ctx.Err(); err != nil {
		return domain.ResolvedLocation{}, err
	}

	key := Normalize(locationText)
	if key == "" {
		return domain.ResolvedLocation{}, nil
	}

	if result, ok := r.cache.get(key); ok {
		r.metrics.GeocodeCache.WithLabelValues("hit").Inc()
		return result, nil
	}
	r.metrics.GeocodeCache.WithLabelValues("miss").Inc()

	result := r.lookup(ctx, locationText, key)
	if ctx.Err() != nil {
		// Don't cache an outcome cut short by cancellation.
		return domain.ResolvedLocation{}, ctx.Err()
	}
	r.cache.put(key, result)

	if result.Resolved {
		r.metrics.LocationsResolved.WithLabelValues(result.Source).Inc()
	} else {
		r.metrics.LocationsUnresolved.Inc()
	}
	return result, nil
}

func (r *Resolver) lookup(ctx context.Context, locationText, key string) domain.ResolvedLocation {
	if result, ok := r.gazetteer.Lookup(key); ok {
		return result
	}

	if r.remote == nil {
		return domain.ResolvedLocation{}
	}

	result, err := r.remote.Geocode(ctx, locationText)
	if err != nil {
		r.logger.Warn("remote geocoding failed",
			"location", locationText,
			"error", err,
		)
		return domain.ResolvedLocation{}
	}
	if !result.Coordinates.Valid() {
		r.logger.Warn("remote geocoder returned out-of-range coordinates",
			"location", locationText,
			"lon", result.Coordinates.Lon,
			"lat", result.Coordinates.Lat,
		)
		return domain.ResolvedLocation{}
	}
	return result
}

// Normalize case-folds, strips punctuation, and collapses whitespace so
// "Paris,  France." and "paris france" key the same cache and gazetteer
// entries.
func Normalize(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	lastSpace := true
	for _, r := range strings.ToLower(s) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastSpace = false
		case unicode.IsSpace(r) || unicode.IsPunct(r):
			if !lastSpace {
				b.WriteByte(' ')
				lastSpace = true
			}
		}
	}
	return strings.TrimRight(b.String(), " ")
}
